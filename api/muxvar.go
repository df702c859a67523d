package api

import (
	"net/http"

	"github.com/gorilla/mux"
)

func muxVar(r *http.Request, name string) string {
	return mux.Vars(r)[name]
}
