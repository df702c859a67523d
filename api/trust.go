package api

import (
	"net/http"

	"metastore/internal/config"
	"metastore/internal/service"
)

// callerFromRequest builds a service.Caller from the trust/identity
// headers, standing in for the real auth/permission system, which is
// explicitly out of scope per spec.md section 1. The presence of
// cfg.TrustedHeader with any non-empty value marks the request as
// trusted; X-User-Id/X-User-Name carry the audit identity either way.
func callerFromRequest(cfg *config.Config, r *http.Request) service.Caller {
	return service.Caller{
		Trusted:  r.Header.Get(cfg.TrustedHeader) != "",
		UserID:   r.Header.Get("X-User-Id"),
		UserName: r.Header.Get("X-User-Name"),
	}
}

// tenantFromRequest extracts the tenant code carried on every request.
func tenantFromRequest(r *http.Request) string {
	return r.Header.Get("X-Tenant-Code")
}
