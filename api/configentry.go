package api

import (
	"net/http"

	"metastore/internal/config"
	"metastore/internal/configentry"
	"metastore/internal/model"
	"metastore/internal/service"
)

// ConfigHandler implements spec.md section 4.6's config-entry admin RPCs.
// Every route here is trusted-only; the service layer enforces the gate,
// this handler only maps the resulting PermissionDenied onto 403.
type ConfigHandler struct {
	svc *service.Service
	cfg *config.Config
}

func NewConfigHandler(svc *service.Service, cfg *config.Config) *ConfigHandler {
	return &ConfigHandler{svc: svc, cfg: cfg}
}

type createConfigRequest struct {
	ConfigClass     string           `json:"configClass"`
	ConfigKey       string           `json:"configKey"`
	ObjectType      model.ObjectType `json:"objectType"`
	ObjectID        string           `json:"objectId"`
	ObjectVersion   *int32           `json:"objectVersion,omitempty"`
	ResourceSubType string           `json:"resourceSubType,omitempty"`
}

// CreateConfigObject handles POST /v1/config.
//
// @Summary Create a config entry
// @Tags config
// @Accept json
// @Produce json
// @Router /v1/config [post]
func (h *ConfigHandler) CreateConfigObject(w http.ResponseWriter, r *http.Request) {
	var req createConfigRequest
	if err := DecodeJSON(r, &req); err != nil {
		RespondError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	caller := callerFromRequest(h.cfg, r)
	entry, err := h.svc.CreateConfigObject(r.Context(), tenantFromRequest(r), caller,
		req.ConfigClass, req.ConfigKey, req.ObjectType, req.ObjectID, req.ObjectVersion, nil, req.ResourceSubType)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	RespondJSON(w, http.StatusCreated, configEntryToWire(entry))
}

// UpdateConfigObject handles PUT /v1/config/{class}/{key}.
//
// @Summary Update a config entry to point at a new selector
// @Tags config
// @Accept json
// @Produce json
// @Router /v1/config/{class}/{key} [put]
func (h *ConfigHandler) UpdateConfigObject(w http.ResponseWriter, r *http.Request) {
	var req createConfigRequest
	if err := DecodeJSON(r, &req); err != nil {
		RespondError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	caller := callerFromRequest(h.cfg, r)
	entry, err := h.svc.UpdateConfigObject(r.Context(), tenantFromRequest(r), caller,
		muxVar(r, "class"), muxVar(r, "key"), req.ObjectType, req.ObjectID, req.ObjectVersion, nil, req.ResourceSubType)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	RespondJSON(w, http.StatusOK, configEntryToWire(entry))
}

// DeleteConfigObject handles DELETE /v1/config/{class}/{key}.
//
// @Summary Tombstone a config entry
// @Tags config
// @Produce json
// @Router /v1/config/{class}/{key} [delete]
func (h *ConfigHandler) DeleteConfigObject(w http.ResponseWriter, r *http.Request) {
	caller := callerFromRequest(h.cfg, r)
	entry, err := h.svc.DeleteConfigObject(r.Context(), tenantFromRequest(r), caller, muxVar(r, "class"), muxVar(r, "key"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	RespondJSON(w, http.StatusOK, configEntryToWire(entry))
}

// ReadConfigObject handles GET /v1/config/{class}/{key}.
//
// @Summary Read the current config entry for a key
// @Tags config
// @Produce json
// @Router /v1/config/{class}/{key} [get]
func (h *ConfigHandler) ReadConfigObject(w http.ResponseWriter, r *http.Request) {
	caller := callerFromRequest(h.cfg, r)
	entry, err := h.svc.ReadConfigObject(r.Context(), tenantFromRequest(r), caller, muxVar(r, "class"), muxVar(r, "key"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	RespondJSON(w, http.StatusOK, configEntryToWire(entry))
}

type readConfigBatchRequest struct {
	Keys []configentry.Key `json:"keys"`
}

// ReadConfigBatch handles POST /v1/config/read-batch.
//
// @Summary Read several config entries in one call
// @Tags config
// @Accept json
// @Produce json
// @Router /v1/config/read-batch [post]
func (h *ConfigHandler) ReadConfigBatch(w http.ResponseWriter, r *http.Request) {
	var req readConfigBatchRequest
	if err := DecodeJSON(r, &req); err != nil {
		RespondError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	caller := callerFromRequest(h.cfg, r)
	entries, err := h.svc.ReadConfigBatch(r.Context(), tenantFromRequest(r), caller, req.Keys)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	out := make([]wireConfigEntry, len(entries))
	for i, e := range entries {
		out[i] = configEntryToWire(e)
	}
	RespondJSON(w, http.StatusOK, out)
}

// ListConfigEntries handles GET /v1/config?class=...&includeDeleted=...
//
// @Summary List config entries of a class
// @Tags config
// @Produce json
// @Router /v1/config [get]
func (h *ConfigHandler) ListConfigEntries(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	class := q.Get("class")
	includeDeleted := q.Get("includeDeleted") == "true"
	var objectType *model.ObjectType
	if ot := q.Get("objectType"); ot != "" {
		t := model.ObjectType(ot)
		objectType = &t
	}
	var resourceSubType *string
	if rst := q.Get("resourceSubType"); rst != "" {
		resourceSubType = &rst
	}

	caller := callerFromRequest(h.cfg, r)
	entries, err := h.svc.ListConfigEntries(r.Context(), tenantFromRequest(r), caller, class, includeDeleted, objectType, resourceSubType)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	out := make([]wireConfigEntry, len(entries))
	for i, e := range entries {
		out[i] = configEntryToWire(e)
	}
	RespondJSON(w, http.StatusOK, out)
}
