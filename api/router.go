package api

import (
	"metastore/internal/config"
	"metastore/internal/service"

	"github.com/gorilla/mux"
	httpSwagger "github.com/swaggo/http-swagger"
)

// NewRouter builds the full HTTP surface over svc: the object/tag RPCs,
// writeBatch, search, config-entry admin, a platform-info endpoint, a
// liveness check and the hand-maintained OpenAPI document.
func NewRouter(cfg *config.Config, svc *service.Service) *mux.Router {
	router := mux.NewRouter()
	router.Use(loggingMiddleware)

	objects := NewObjectHandler(svc, cfg)
	searchH := NewSearchHandler(svc)
	batchH := NewBatchHandler(svc, cfg)
	configH := NewConfigHandler(svc, cfg)

	router.HandleFunc("/healthz", Health).Methods("GET")
	router.HandleFunc("/v1/platform", PlatformInfo).Methods("GET")

	v1 := router.PathPrefix("/v1").Subrouter()
	v1.HandleFunc("/objects", objects.CreateObject).Methods("POST")
	v1.HandleFunc("/objects/preallocate", objects.PreallocateID).Methods("POST")
	v1.HandleFunc("/objects/read-batch", objects.ReadBatch).Methods("POST")
	v1.HandleFunc("/objects/{id}", objects.ReadObject).Methods("GET")
	v1.HandleFunc("/objects/{id}/versions", objects.UpdateObject).Methods("POST")
	v1.HandleFunc("/objects/{id}/tags", objects.UpdateTag).Methods("POST")
	v1.HandleFunc("/objects/{id}/preallocated", objects.CreatePreallocatedObject).Methods("POST")

	v1.HandleFunc("/search", searchH.Search).Methods("POST")
	v1.HandleFunc("/batch", batchH.WriteBatch).Methods("POST")

	v1.HandleFunc("/config", configH.CreateConfigObject).Methods("POST")
	v1.HandleFunc("/config", configH.ListConfigEntries).Methods("GET")
	v1.HandleFunc("/config/read-batch", configH.ReadConfigBatch).Methods("POST")
	v1.HandleFunc("/config/{class}/{key}", configH.ReadConfigObject).Methods("GET")
	v1.HandleFunc("/config/{class}/{key}", configH.UpdateConfigObject).Methods("PUT")
	v1.HandleFunc("/config/{class}/{key}", configH.DeleteConfigObject).Methods("DELETE")

	router.HandleFunc("/v1/docs/swagger.json", serveSwaggerJSON).Methods("GET")
	router.PathPrefix("/v1/docs/").Handler(httpSwagger.Handler(httpSwagger.URL("/v1/docs/swagger.json")))

	return router
}
