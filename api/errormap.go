package api

import (
	"errors"
	"net/http"

	"metastore/internal/errs"
)

// codeForKind implements spec.md section 6.1's error-code table: the
// transport-agnostic Kind names map one-for-one onto both an HTTP status
// and a stable JSON error code string.
func codeForKind(kind errs.Kind) (status int, code string) {
	switch kind {
	case errs.InvalidRequest:
		return http.StatusBadRequest, "InvalidArgument"
	case errs.NotFound:
		return http.StatusNotFound, "NotFound"
	case errs.WrongType:
		return http.StatusPreconditionFailed, "FailedPrecondition"
	case errs.Duplicate:
		return http.StatusConflict, "AlreadyExists"
	case errs.PermissionDenied:
		return http.StatusForbidden, "PermissionDenied"
	case errs.BadUpdate:
		return http.StatusBadRequest, "InvalidArgument"
	case errs.Conflict:
		return http.StatusConflict, "AlreadyExists"
	default:
		return http.StatusInternalServerError, "Unexpected"
	}
}

// writeServiceError maps err onto the response per the table above. A
// plain (non-*errs.Error) error is treated as Unexpected.
func writeServiceError(w http.ResponseWriter, err error) {
	var se *errs.Error
	kind := errs.Unexpected
	if errors.As(err, &se) {
		kind = se.Kind
	}
	status, code := codeForKind(kind)
	RespondJSON(w, status, map[string]string{"code": code, "error": err.Error()})
}
