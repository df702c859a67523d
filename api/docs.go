package api

import "net/http"

// swaggerJSON is the hand-maintained OpenAPI document for the contract
// implemented by this package, rather than output generated by swag init.
// It documents the shape of the RPC surface; it is not wired into request
// validation.
const swaggerJSON = `{
  "swagger": "2.0",
  "info": {
    "title": "metastore",
    "description": "Versioned metadata store: objects, versioned tags, typed attributes, temporal search and config entries.",
    "version": "v1"
  },
  "basePath": "/v1",
  "paths": {
    "/objects": {
      "post": {"summary": "Create a new object", "tags": ["objects"]}
    },
    "/objects/{id}": {
      "get": {"summary": "Read a single object tag by selector", "tags": ["objects"]}
    },
    "/objects/{id}/versions": {
      "post": {"summary": "Save a new version of an existing object", "tags": ["objects"]}
    },
    "/objects/{id}/tags": {
      "post": {"summary": "Save a new tag of an existing object version", "tags": ["objects"]}
    },
    "/objects/preallocate": {
      "post": {"summary": "Reserve an object id for later use (trusted)", "tags": ["objects"]}
    },
    "/objects/{id}/preallocated": {
      "post": {"summary": "Attach version 1 to a preallocated object id (trusted)", "tags": ["objects"]}
    },
    "/objects/read-batch": {
      "post": {"summary": "Read several object tags by selector in one call", "tags": ["objects"]}
    },
    "/search": {
      "post": {"summary": "Search objects of a type by a boolean attribute expression", "tags": ["search"]}
    },
    "/batch": {
      "post": {"summary": "Apply a bundle of writes atomically", "tags": ["batch"]}
    },
    "/config": {
      "post": {"summary": "Create a config entry (trusted)", "tags": ["config"]},
      "get": {"summary": "List config entries of a class (trusted)", "tags": ["config"]}
    },
    "/config/{class}/{key}": {
      "get": {"summary": "Read the current config entry for a key (trusted)", "tags": ["config"]},
      "put": {"summary": "Update a config entry to point at a new selector (trusted)", "tags": ["config"]},
      "delete": {"summary": "Tombstone a config entry (trusted)", "tags": ["config"]}
    },
    "/config/read-batch": {
      "post": {"summary": "Read several config entries in one call (trusted)", "tags": ["config"]}
    },
    "/platform": {
      "get": {"summary": "Static platform identity and capability info", "tags": ["platform"]}
    }
  }
}`

func serveSwaggerJSON(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write([]byte(swaggerJSON))
}
