package api

import (
	"net/http"

	"metastore/internal/config"
	"metastore/internal/model"
	"metastore/internal/service"
)

// BatchHandler implements spec.md section 4.6's writeBatch RPC.
type BatchHandler struct {
	svc *service.Service
	cfg *config.Config
}

func NewBatchHandler(svc *service.Service, cfg *config.Config) *BatchHandler {
	return &BatchHandler{svc: svc, cfg: cfg}
}

type wireBatchRequest struct {
	Preallocate []struct {
		ObjectType model.ObjectType `json:"objectType"`
	} `json:"preallocate,omitempty"`
	CreateObjects []struct {
		ObjectType model.ObjectType `json:"objectType"`
		Definition *wireDefinition  `json:"definition,omitempty"`
		Updates    []wireUpdate     `json:"updates"`
	} `json:"createObjects,omitempty"`
	NewVersions []struct {
		ObjectID   string           `json:"objectId"`
		ObjectType model.ObjectType `json:"objectType"`
		Definition *wireDefinition  `json:"definition,omitempty"`
		Updates    []wireUpdate     `json:"updates"`
	} `json:"newVersions,omitempty"`
	NewTags []struct {
		ObjectType    model.ObjectType `json:"objectType"`
		ObjectID      string           `json:"objectId"`
		ObjectVersion *int32           `json:"objectVersion,omitempty"`
		LatestObject  bool             `json:"latestObject,omitempty"`
		TagVersion    *int32           `json:"tagVersion,omitempty"`
		LatestTag     bool             `json:"latestTag,omitempty"`
		Updates       []wireUpdate     `json:"updates"`
	} `json:"newTags,omitempty"`
	ConfigEntries []struct {
		ConfigClass     string           `json:"configClass"`
		ConfigKey       string           `json:"configKey"`
		ObjectType      model.ObjectType `json:"objectType"`
		ObjectID        string           `json:"objectId"`
		ResourceSubType string           `json:"resourceSubType,omitempty"`
	} `json:"configEntries,omitempty"`
	Tombstones []struct {
		ConfigClass string `json:"configClass"`
		ConfigKey   string `json:"configKey"`
	} `json:"tombstones,omitempty"`
}

type wireBatchResult struct {
	PreallocatedIDs []string          `json:"preallocatedIds,omitempty"`
	Objects         []model.Header    `json:"objects,omitempty"`
	Tags            []model.Header    `json:"tags,omitempty"`
	ConfigEntries   []wireConfigEntry `json:"configEntries,omitempty"`
}

// WriteBatch handles POST /v1/batch.
//
// @Summary Apply a bundle of writes atomically
// @Tags batch
// @Accept json
// @Produce json
// @Router /v1/batch [post]
func (h *BatchHandler) WriteBatch(w http.ResponseWriter, r *http.Request) {
	var wreq wireBatchRequest
	if err := DecodeJSON(r, &wreq); err != nil {
		RespondError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	req := service.BatchRequest{}
	for _, p := range wreq.Preallocate {
		req.Preallocate = append(req.Preallocate, service.PreallocateBatchItem{ObjectType: p.ObjectType})
	}
	for _, c := range wreq.CreateObjects {
		updates, err := wireToUpdates(c.Updates)
		if err != nil {
			RespondError(w, http.StatusBadRequest, err.Error())
			return
		}
		var def model.Definition
		if c.Definition != nil {
			def = model.Definition{SchemaType: c.Definition.SchemaType, Bytes: c.Definition.Bytes}
		}
		req.CreateObjects = append(req.CreateObjects, service.CreateObjectBatchItem{ObjectType: c.ObjectType, Definition: def, Updates: updates})
	}
	for _, nv := range wreq.NewVersions {
		updates, err := wireToUpdates(nv.Updates)
		if err != nil {
			RespondError(w, http.StatusBadRequest, err.Error())
			return
		}
		var def model.Definition
		if nv.Definition != nil {
			def = model.Definition{SchemaType: nv.Definition.SchemaType, Bytes: nv.Definition.Bytes}
		}
		req.NewVersions = append(req.NewVersions, service.NewVersionBatchItem{ObjectID: nv.ObjectID, ObjectType: nv.ObjectType, Definition: def, Updates: updates})
	}
	for _, nt := range wreq.NewTags {
		updates, err := wireToUpdates(nt.Updates)
		if err != nil {
			RespondError(w, http.StatusBadRequest, err.Error())
			return
		}
		req.NewTags = append(req.NewTags, service.NewTagBatchItem{
			Selector: model.TagSelector{
				ObjectType: nt.ObjectType, ObjectID: nt.ObjectID,
				ObjectVersion: nt.ObjectVersion, LatestObject: nt.LatestObject,
				TagVersion: nt.TagVersion, LatestTag: nt.LatestTag,
			},
			Updates: updates,
		})
	}
	for _, ce := range wreq.ConfigEntries {
		req.ConfigEntries = append(req.ConfigEntries, service.ConfigEntryBatchItem{
			ConfigClass: ce.ConfigClass, ConfigKey: ce.ConfigKey,
			ObjectType: ce.ObjectType, ObjectID: ce.ObjectID, ResourceSubType: ce.ResourceSubType,
		})
	}
	for _, ts := range wreq.Tombstones {
		req.Tombstones = append(req.Tombstones, service.ConfigTombstoneBatchItem{ConfigClass: ts.ConfigClass, ConfigKey: ts.ConfigKey})
	}

	caller := callerFromRequest(h.cfg, r)
	result, err := h.svc.WriteBatch(r.Context(), tenantFromRequest(r), caller, req)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	wr := wireBatchResult{PreallocatedIDs: result.PreallocatedIDs, Objects: result.Objects, Tags: result.Tags}
	for _, e := range result.ConfigEntries {
		wr.ConfigEntries = append(wr.ConfigEntries, configEntryToWire(e))
	}
	RespondJSON(w, http.StatusOK, wr)
}
