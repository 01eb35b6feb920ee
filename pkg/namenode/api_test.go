package namenode

import (
	"encoding/json"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAPIRouterEndpoints(t *testing.T) {
	registry := NewRegistry(t.TempDir(), 100, nil)
	locks := NewLockManager(nil)
	requests := NewRequestQueue(nil)

	registry.RegisterNode("ss-1", "10.0.0.5", 6000, 7000)
	_, err := registry.CreateFile("doc.txt", "alice")
	require.NoError(t, err)
	require.NoError(t, locks.Acquire("doc.txt", 0, "alice"))
	requests.Submit("doc.txt", "bob", "alice")

	router := newAPIRouter(registry, locks, requests)

	get := func(path string) apiResponse {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest("GET", path, nil))
		require.Equal(t, 200, rec.Code, "GET %s", path)

		var body apiResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		return body
	}

	assert.Equal(t, "healthy", get("/healthz").Status)

	files := get("/api/v1/files")
	data, _ := json.Marshal(files.Data)
	assert.Contains(t, string(data), `"doc.txt"`)
	assert.Contains(t, string(data), `"alice"`)

	nodes := get("/api/v1/nodes")
	data, _ = json.Marshal(nodes.Data)
	assert.Contains(t, string(data), `"ss-1"`)
	assert.Contains(t, string(data), `"file_count":1`)

	locksBody := get("/api/v1/locks")
	data, _ = json.Marshal(locksBody.Data)
	assert.Contains(t, string(data), `"sentence_index":0`)

	reqs := get("/api/v1/requests")
	data, _ = json.Marshal(reqs.Data)
	assert.Contains(t, string(data), `"bob"`)
	assert.Contains(t, string(data), `"pending":true`)
}
