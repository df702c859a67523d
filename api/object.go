package api

import (
	"net/http"

	"metastore/internal/config"
	"metastore/internal/model"
	"metastore/internal/service"
)

// ObjectHandler implements spec.md section 4.6's object/tag RPCs as HTTP
// handlers, the thinnest possible shim over a *service.Service.
type ObjectHandler struct {
	svc *service.Service
	cfg *config.Config
}

func NewObjectHandler(svc *service.Service, cfg *config.Config) *ObjectHandler {
	return &ObjectHandler{svc: svc, cfg: cfg}
}

type createObjectRequest struct {
	ObjectType model.ObjectType `json:"objectType"`
	Definition *wireDefinition  `json:"definition,omitempty"`
	Updates    []wireUpdate     `json:"updates"`
}

// CreateObject handles POST /v1/objects.
//
// @Summary Create a new object
// @Tags objects
// @Accept json
// @Produce json
// @Router /v1/objects [post]
func (h *ObjectHandler) CreateObject(w http.ResponseWriter, r *http.Request) {
	var req createObjectRequest
	if err := DecodeJSON(r, &req); err != nil {
		RespondError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	updates, err := wireToUpdates(req.Updates)
	if err != nil {
		RespondError(w, http.StatusBadRequest, err.Error())
		return
	}
	var def model.Definition
	if req.Definition != nil {
		def = model.Definition{SchemaType: req.Definition.SchemaType, Bytes: req.Definition.Bytes}
	}

	caller := callerFromRequest(h.cfg, r)
	tag, err := h.svc.CreateObject(r.Context(), tenantFromRequest(r), caller, req.ObjectType, def, updates)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	wt, err := tagToWire(tag)
	if err != nil {
		RespondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	RespondJSON(w, http.StatusCreated, wt)
}

type updateObjectRequest struct {
	ObjectType model.ObjectType `json:"objectType"`
	Definition *wireDefinition  `json:"definition,omitempty"`
	Updates    []wireUpdate     `json:"updates"`
}

// UpdateObject handles POST /v1/objects/{id}/versions.
//
// @Summary Save a new version of an existing object
// @Tags objects
// @Accept json
// @Produce json
// @Router /v1/objects/{id}/versions [post]
func (h *ObjectHandler) UpdateObject(w http.ResponseWriter, r *http.Request) {
	objectID := muxVar(r, "id")
	var req updateObjectRequest
	if err := DecodeJSON(r, &req); err != nil {
		RespondError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	updates, err := wireToUpdates(req.Updates)
	if err != nil {
		RespondError(w, http.StatusBadRequest, err.Error())
		return
	}
	var def model.Definition
	if req.Definition != nil {
		def = model.Definition{SchemaType: req.Definition.SchemaType, Bytes: req.Definition.Bytes}
	}

	caller := callerFromRequest(h.cfg, r)
	tag, err := h.svc.UpdateObject(r.Context(), tenantFromRequest(r), caller, objectID, req.ObjectType, def, updates)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	wt, err := tagToWire(tag)
	if err != nil {
		RespondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	RespondJSON(w, http.StatusOK, wt)
}

type updateTagRequest struct {
	Updates []wireUpdate `json:"updates"`
}

// UpdateTag handles POST /v1/objects/{id}/tags: the object version is
// selected by the same query parameters as ReadObject.
//
// @Summary Save a new tag of an existing object version
// @Tags objects
// @Accept json
// @Produce json
// @Router /v1/objects/{id}/tags [post]
func (h *ObjectHandler) UpdateTag(w http.ResponseWriter, r *http.Request) {
	objectID := muxVar(r, "id")
	sel, err := parseSelector(r.URL.Query())
	if err != nil {
		RespondError(w, http.StatusBadRequest, err.Error())
		return
	}
	sel.ObjectID = objectID
	sel.ObjectType = model.ObjectType(r.URL.Query().Get("object_type"))

	var req updateTagRequest
	if err := DecodeJSON(r, &req); err != nil {
		RespondError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	updates, err := wireToUpdates(req.Updates)
	if err != nil {
		RespondError(w, http.StatusBadRequest, err.Error())
		return
	}

	caller := callerFromRequest(h.cfg, r)
	tag, err := h.svc.UpdateTag(r.Context(), tenantFromRequest(r), caller, sel, updates)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	wt, err := tagToWire(tag)
	if err != nil {
		RespondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	RespondJSON(w, http.StatusOK, wt)
}

// ReadObject handles GET /v1/objects/{id}.
//
// @Summary Read a single object tag by selector
// @Tags objects
// @Produce json
// @Router /v1/objects/{id} [get]
func (h *ObjectHandler) ReadObject(w http.ResponseWriter, r *http.Request) {
	sel, err := parseSelector(r.URL.Query())
	if err != nil {
		RespondError(w, http.StatusBadRequest, err.Error())
		return
	}
	sel.ObjectID = muxVar(r, "id")

	tag, err := h.svc.ReadObject(r.Context(), tenantFromRequest(r), sel)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	wt, err := tagToWire(tag)
	if err != nil {
		RespondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	RespondJSON(w, http.StatusOK, wt)
}

type readBatchRequest struct {
	Selectors []struct {
		ObjectType    model.ObjectType `json:"objectType"`
		ObjectID      string           `json:"objectId"`
		ObjectVersion *int32           `json:"objectVersion,omitempty"`
		LatestObject  bool             `json:"latestObject,omitempty"`
		TagVersion    *int32           `json:"tagVersion,omitempty"`
		LatestTag     bool             `json:"latestTag,omitempty"`
	} `json:"selectors"`
}

// ReadBatch handles POST /v1/objects/read-batch.
//
// @Summary Read several object tags by selector in one call
// @Tags objects
// @Accept json
// @Produce json
// @Router /v1/objects/read-batch [post]
func (h *ObjectHandler) ReadBatch(w http.ResponseWriter, r *http.Request) {
	var req readBatchRequest
	if err := DecodeJSON(r, &req); err != nil {
		RespondError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	sels := make([]model.TagSelector, len(req.Selectors))
	for i, s := range req.Selectors {
		sels[i] = model.TagSelector{
			ObjectType: s.ObjectType, ObjectID: s.ObjectID,
			ObjectVersion: s.ObjectVersion, LatestObject: s.LatestObject,
			TagVersion: s.TagVersion, LatestTag: s.LatestTag,
		}
	}

	tags, err := h.svc.ReadBatch(r.Context(), tenantFromRequest(r), sels)
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

type preallocateRequest struct {
	ObjectType model.ObjectType `json:"objectType"`
}

// PreallocateID handles POST /v1/objects/preallocate. Trusted only.
//
// @Summary Reserve an object id for later use
// @Tags objects
// @Accept json
// @Produce json
// @Router /v1/objects/preallocate [post]
func (h *ObjectHandler) PreallocateID(w http.ResponseWriter, r *http.Request) {
	var req preallocateRequest
	if err := DecodeJSON(r, &req); err != nil {
		RespondError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	caller := callerFromRequest(h.cfg, r)
	id, err := h.svc.PreallocateID(r.Context(), tenantFromRequest(r), caller, req.ObjectType)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	RespondJSON(w, http.StatusCreated, map[string]string{"objectId": id})
}

type createPreallocatedRequest struct {
	ObjectType model.ObjectType `json:"objectType"`
	Definition *wireDefinition  `json:"definition,omitempty"`
	Updates    []wireUpdate     `json:"updates"`
}

// CreatePreallocatedObject handles POST /v1/objects/{id}/preallocated.
// Trusted only.
//
// @Summary Attach version 1 to a previously preallocated object id
// @Tags objects
// @Accept json
// @Produce json
// @Router /v1/objects/{id}/preallocated [post]
func (h *ObjectHandler) CreatePreallocatedObject(w http.ResponseWriter, r *http.Request) {
	objectID := muxVar(r, "id")
	var req createPreallocatedRequest
	if err := DecodeJSON(r, &req); err != nil {
		RespondError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	updates, err := wireToUpdates(req.Updates)
	if err != nil {
		RespondError(w, http.StatusBadRequest, err.Error())
		return
	}
	var def model.Definition
	if req.Definition != nil {
		def = model.Definition{SchemaType: req.Definition.SchemaType, Bytes: req.Definition.Bytes}
	}

	caller := callerFromRequest(h.cfg, r)
	tag, err := h.svc.CreatePreallocatedObject(r.Context(), tenantFromRequest(r), caller, objectID, req.ObjectType, def, updates)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	wt, err := tagToWire(tag)
	if err != nil {
		RespondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	RespondJSON(w, http.StatusCreated, wt)
}
