package api

import "net/http"

// platformInfo is the static build-info response for spec.md section
// 6.1's platformInfo RPC. listTenants/listResources/resourceInfo/
// clientConfig are named in the same table but have no backing module
// anywhere else in spec.md, so they are not implemented here.
type platformInfoResponse struct {
	Name       string   `json:"name"`
	APIVersion string   `json:"apiVersion"`
	ObjectTypes []string `json:"objectTypes"`
}

// PlatformInfo handles GET /v1/platform.
//
// @Summary Static platform identity and capability info
// @Tags platform
// @Produce json
// @Router /v1/platform [get]
func PlatformInfo(w http.ResponseWriter, r *http.Request) {
	RespondJSON(w, http.StatusOK, platformInfoResponse{
		Name:       "metastore",
		APIVersion: "v1",
		ObjectTypes: []string{
			"DATA", "MODEL", "FLOW", "JOB", "FILE", "STORAGE", "SCHEMA", "CUSTOM", "CONFIG", "RESOURCE",
		},
	})
}
