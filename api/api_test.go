package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"metastore/internal/config"
	"metastore/internal/notify"
	"metastore/internal/service"
	"metastore/internal/store"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRouter(t *testing.T) http.Handler {
	t.Helper()
	s, err := store.Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	svc := service.New(s, notify.LogNotifier{})
	cfg := config.Load()
	return NewRouter(cfg, svc)
}

func doRequest(router http.Handler, method, path string, body interface{}, trusted bool) *httptest.ResponseRecorder {
	var reader *bytes.Buffer
	if body != nil {
		b, _ := json.Marshal(body)
		reader = bytes.NewBuffer(b)
	} else {
		reader = bytes.NewBuffer(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("X-Tenant-Code", "ACME")
	if trusted {
		req.Header.Set("X-Internal-Trusted", "1")
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestHealthz(t *testing.T) {
	router := newTestRouter(t)
	rec := doRequest(router, "GET", "/healthz", nil, false)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestCreateObjectThenReadObject(t *testing.T) {
	router := newTestRouter(t)

	createBody := map[string]interface{}{
		"objectType": "DATA",
		"updates": []map[string]interface{}{
			{"operation": "CREATE_ATTR", "attrName": "dataset_class", "value": map[string]interface{}{"type": "STRING", "value": "GOLD"}},
		},
	}
	rec := doRequest(router, "POST", "/v1/objects", createBody, false)
	require.Equal(t, http.StatusCreated, rec.Code)

	var created wireTag
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	assert.Equal(t, "GOLD", created.Attributes["dataset_class"].Value)

	rec = doRequest(router, "GET", "/v1/objects/"+created.ObjectID+"?object_type=DATA", nil, false)
	require.Equal(t, http.StatusOK, rec.Code)
	var read wireTag
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &read))
	assert.Equal(t, created.ObjectID, read.ObjectID)
}

func TestCreateObjectRestrictedTypeRejectedForPublicCaller(t *testing.T) {
	router := newTestRouter(t)

	body := map[string]interface{}{"objectType": "RESOURCE", "updates": []map[string]interface{}{}}
	rec := doRequest(router, "POST", "/v1/objects", body, false)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	var resp map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "PermissionDenied", resp["code"])

	rec = doRequest(router, "POST", "/v1/objects", body, true)
	assert.Equal(t, http.StatusCreated, rec.Code)
}

func TestPreallocateRequiresTrustedHeader(t *testing.T) {
	router := newTestRouter(t)

	rec := doRequest(router, "POST", "/v1/objects/preallocate", map[string]interface{}{"objectType": "DATA"}, false)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = doRequest(router, "POST", "/v1/objects/preallocate", map[string]interface{}{"objectType": "DATA"}, true)
	assert.Equal(t, http.StatusCreated, rec.Code)
	var resp map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.NotEmpty(t, resp["objectId"])
}

func TestSearchEndpointFindsCreatedObject(t *testing.T) {
	router := newTestRouter(t)

	createBody := map[string]interface{}{
		"objectType": "DATA",
		"updates": []map[string]interface{}{
			{"operation": "CREATE_ATTR", "attrName": "dataset_class", "value": map[string]interface{}{"type": "STRING", "value": "GOLD"}},
		},
	}
	rec := doRequest(router, "POST", "/v1/objects", createBody, false)
	require.Equal(t, http.StatusCreated, rec.Code)

	searchBody := map[string]interface{}{
		"objectType": "DATA",
		"expression": map[string]interface{}{
			"attrName": "dataset_class", "attrType": "STRING", "operator": "EQ",
			"value": map[string]interface{}{"type": "STRING", "value": "GOLD"},
		},
	}
	rec = doRequest(router, "POST", "/v1/search", searchBody, false)
	require.Equal(t, http.StatusOK, rec.Code)

	var found []wireTag
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &found))
	assert.Len(t, found, 1)
}

func TestConfigEntryRequiresTrustedHeader(t *testing.T) {
	router := newTestRouter(t)

	body := map[string]interface{}{
		"configClass": "connection", "configKey": "primary",
		"objectType": "RESOURCE", "objectId": "obj-1",
	}
	rec := doRequest(router, "POST", "/v1/config", body, false)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = doRequest(router, "POST", "/v1/config", body, true)
	assert.Equal(t, http.StatusCreated, rec.Code)
}
