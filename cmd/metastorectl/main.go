// Command metastorectl is an operator CLI over a metastore data file: it
// opens the store directly rather than talking to a running metastored,
// for offline inspection and scripted administration.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"metastore/internal/model"
	"metastore/internal/notify"
	"metastore/internal/search"
	"metastore/internal/service"
	"metastore/internal/store"
	"metastore/internal/types"

	"github.com/spf13/cobra"
)

var (
	dataPath string
	tenant   string
	trusted  bool
)

func main() {
	root := &cobra.Command{
		Use:   "metastorectl",
		Short: "Operator CLI for a metastore data file",
	}
	root.PersistentFlags().StringVar(&dataPath, "data", "./var/metastore.db", "path to the metastore data file")
	root.PersistentFlags().StringVar(&tenant, "tenant", "default", "tenant code to operate under")
	root.PersistentFlags().BoolVar(&trusted, "trusted", false, "act as a trusted internal caller")

	root.AddCommand(newSearchCmd())
	root.AddCommand(newConfigCmd())
	root.AddCommand(newObjectCmd())

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func openService() (*service.Service, *store.Store, error) {
	s, err := store.Open(dataPath)
	if err != nil {
		return nil, nil, fmt.Errorf("opening %s: %w", dataPath, err)
	}
	return service.New(s, notify.LogNotifier{}), s, nil
}

func callerFromFlags() service.Caller {
	return service.Caller{Trusted: trusted, UserID: "metastorectl", UserName: "metastorectl"}
}

func printJSON(v interface{}) {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return
	}
	fmt.Println(string(b))
}

func newObjectCmd() *cobra.Command {
	var objectType, objectID string
	cmd := &cobra.Command{
		Use:   "object",
		Short: "Read the latest tag for an object",
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, s, err := openService()
			if err != nil {
				return err
			}
			defer s.Close()

			sel := model.TagSelector{
				ObjectType:   model.ObjectType(objectType),
				ObjectID:     objectID,
				LatestObject: true,
				LatestTag:    true,
			}
			tag, err := svc.ReadObject(context.Background(), tenant, sel)
			if err != nil {
				return err
			}
			printJSON(tag)
			return nil
		},
	}
	cmd.Flags().StringVar(&objectType, "type", "", "object type")
	cmd.Flags().StringVar(&objectID, "id", "", "object id")
	return cmd
}

func newSearchCmd() *cobra.Command {
	var objectType, attrName, attrType, operator, value string
	cmd := &cobra.Command{
		Use:   "search",
		Short: "Run a single-term attribute search from the command line",
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, s, err := openService()
			if err != nil {
				return err
			}
			defer s.Close()

			basicType, err := types.ParseBasicType(attrType)
			if err != nil {
				return err
			}
			v, err := valueFromString(basicType, value)
			if err != nil {
				return err
			}
			term := search.Term{
				AttrName: attrName,
				AttrType: basicType,
				Operator: search.Operator(operator),
				Value:    v,
			}

			tags, err := svc.Search(context.Background(), tenant, model.ObjectType(objectType), term, store.SearchOptions{})
			if err != nil {
				return err
			}
			printJSON(tags)
			return nil
		},
	}
	cmd.Flags().StringVar(&objectType, "type", "", "object type to search")
	cmd.Flags().StringVar(&attrName, "attr", "", "attribute name")
	cmd.Flags().StringVar(&attrType, "attr-type", "STRING", "attribute basic type")
	cmd.Flags().StringVar(&operator, "op", "EQ", "comparison operator (EQ, NE, GT, GE, LT, LE; IN needs an array value, which --value cannot express)")
	cmd.Flags().StringVar(&value, "value", "", "comparison value")
	return cmd
}

func valueFromString(basicType types.BasicType, s string) (types.Value, error) {
	switch basicType {
	case types.STRING:
		return types.NewString(s), nil
	case types.BOOLEAN:
		return types.NewBool(s == "true"), nil
	case types.INTEGER:
		var n int64
		if _, err := fmt.Sscanf(s, "%d", &n); err != nil {
			return types.Value{}, err
		}
		return types.NewInt(n), nil
	case types.FLOAT:
		var f float64
		if _, err := fmt.Sscanf(s, "%g", &f); err != nil {
			return types.Value{}, err
		}
		return types.NewFloat(f), nil
	case types.DATETIME:
		t, err := time.Parse(time.RFC3339, s)
		if err != nil {
			return types.Value{}, err
		}
		return types.NewDateTime(t), nil
	default:
		return types.Value{}, fmt.Errorf("unsupported attr-type %s for CLI search", basicType)
	}
}

func newConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect config entries (trusted operation)",
	}
	cmd.AddCommand(newConfigListCmd())
	return cmd
}

func newConfigListCmd() *cobra.Command {
	var class string
	var includeDeleted bool
	cmd := &cobra.Command{
		Use:   "list",
		Short: "Dump every config entry in a class",
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, s, err := openService()
			if err != nil {
				return err
			}
			defer s.Close()

			entries, err := svc.ListConfigEntries(context.Background(), tenant, callerFromFlags(), class, includeDeleted, nil, nil)
			if err != nil {
				return err
			}
			printJSON(entries)
			return nil
		},
	}
	cmd.Flags().StringVar(&class, "class", "", "config class to list")
	cmd.Flags().BoolVar(&includeDeleted, "include-deleted", false, "include tombstoned entries")
	return cmd
}
