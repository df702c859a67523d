package api

import (
	"fmt"
	"net/http"

	"metastore/internal/model"
	"metastore/internal/search"
	"metastore/internal/service"
	"metastore/internal/store"
	"metastore/internal/types"
)

// SearchHandler implements spec.md section 4.6's search RPC.
type SearchHandler struct {
	svc *service.Service
}

func NewSearchHandler(svc *service.Service) *SearchHandler {
	return &SearchHandler{svc: svc}
}

// wireExpr is the JSON wire shape of a search.Expression tree: exactly one
// of Term or Logical is set, discriminated by presence rather than an
// explicit "kind" field.
type wireExpr struct {
	AttrName string      `json:"attrName,omitempty"`
	AttrType string      `json:"attrType,omitempty"`
	Operator string      `json:"operator,omitempty"`
	Value    *wireValue  `json:"value,omitempty"`

	Op       string      `json:"op,omitempty"`
	Children []wireExpr  `json:"children,omitempty"`
}

func wireToExpr(w wireExpr) (search.Expression, error) {
	if w.Op != "" {
		children := make([]search.Expression, len(w.Children))
		for i, c := range w.Children {
			ce, err := wireToExpr(c)
			if err != nil {
				return nil, err
			}
			children[i] = ce
		}
		return search.Logical{Op: search.LogicalOp(w.Op), Children: children}, nil
	}
	if w.AttrName == "" {
		return nil, fmt.Errorf("expression node must set either op or attrName")
	}
	basicType, err := types.ParseBasicType(w.AttrType)
	if err != nil {
		return nil, err
	}
	var value types.Value
	if w.Value != nil {
		value, err = wireToValue(*w.Value)
		if err != nil {
			return nil, err
		}
	}
	return search.Term{AttrName: w.AttrName, AttrType: basicType, Operator: search.Operator(w.Operator), Value: value}, nil
}

type searchRequest struct {
	ObjectType    model.ObjectType `json:"objectType"`
	Expression    *wireExpr        `json:"expression,omitempty"`
	PriorVersions bool             `json:"priorVersions,omitempty"`
	PriorTags     bool             `json:"priorTags,omitempty"`
	SearchAsOf    *string          `json:"searchAsOf,omitempty"`
	Offset        int              `json:"offset,omitempty"`
	Limit         int              `json:"limit,omitempty"`
}

// Search handles POST /v1/search.
//
// @Summary Search objects of a type by a boolean attribute expression
// @Tags search
// @Accept json
// @Produce json
// @Router /v1/search [post]
func (h *SearchHandler) Search(w http.ResponseWriter, r *http.Request) {
	var req searchRequest
	if err := DecodeJSON(r, &req); err != nil {
		RespondError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	var expr search.Expression
	if req.Expression != nil {
		e, err := wireToExpr(*req.Expression)
		if err != nil {
			RespondError(w, http.StatusBadRequest, err.Error())
			return
		}
		expr = e
		if err := search.Validate(expr); err != nil {
			RespondError(w, http.StatusBadRequest, err.Error())
			return
		}
	}

	opts := store.SearchOptions{
		PriorVersions: req.PriorVersions, PriorTags: req.PriorTags,
		Offset: req.Offset, Limit: req.Limit,
	}
	if req.SearchAsOf != nil {
		t, err := parseRFC3339(*req.SearchAsOf)
		if err != nil {
			RespondError(w, http.StatusBadRequest, "invalid searchAsOf: "+err.Error())
			return
		}
		opts.SearchAsOf = &t
	}

	tags, err := h.svc.Search(r.Context(), tenantFromRequest(r), req.ObjectType, expr, opts)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	out := make([]wireTag, len(tags))
	for i, t := range tags {
		wt, err := tagToWire(t)
		if err != nil {
			RespondError(w, http.StatusInternalServerError, err.Error())
			return
		}
		out[i] = wt
	}
	RespondJSON(w, http.StatusOK, out)
}
