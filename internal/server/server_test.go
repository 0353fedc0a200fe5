// file: internal/server/server_test.go
// version: 1.0.0
// guid: 3c4d5e6f-7a8b-9c0d-1e2f-3a4b5c6d7e8f

package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gofleetadvisor/fleetdocs/internal/registry"
	"github.com/gofleetadvisor/fleetdocs/internal/storage"
)

type fakeBucket struct {
	objects map[string][]string // bucket -> names
}

func (b *fakeBucket) List(ctx context.Context, bucket string) ([]storage.Object, error) {
	var out []storage.Object
	for _, name := range b.objects[bucket] {
		out = append(out, storage.Object{Name: name})
	}
	return out, nil
}

func (b *fakeBucket) Upload(ctx context.Context, bucket, name string, data []byte) error {
	b.objects[bucket] = append(b.objects[bucket], name)
	return nil
}

func (b *fakeBucket) Exists(ctx context.Context, bucket, name string) (bool, error) {
	for _, n := range b.objects[bucket] {
		if n == name {
			return true, nil
		}
	}
	return false, nil
}

type fakeDirectory struct{ names []string }

func (d fakeDirectory) ListCompanies(ctx context.Context) ([]string, error) {
	return d.names, nil
}

type fakeURLs struct{}

func (fakeURLs) PublicURL(bucket, name string) string {
	return "https://files.example.com/" + bucket + "/" + name
}

func testServer(t *testing.T) *Server {
	t.Helper()
	gin.SetMode(gin.TestMode)

	bucket := &fakeBucket{objects: map[string][]string{
		storage.BucketInvoice: {
			"sturgeon-electric__I-4512__U-T-104__V-1FTSW21P06ED12345__D-09292025__P-ABC123.pdf",
			"rocky-mountain-transport__I-88__U-RM-7__V-NA__D-10012025__P-NA.pdf",
			"stray-scan.pdf",
		},
		storage.BucketDOT: {
			"sturgeon-electric__dot__I-4512__U-T-104__V-1FTSW21P06ED12345__D-09292025__P-ABC123.pdf",
		},
	}}
	reg := registry.NewProvider(fakeDirectory{names: []string{
		"sturgeon-electric", "rocky-mountain-transport", "abbotts-clean-up-and-restoration-",
	}}, time.Hour)

	return NewServer(bucket, fakeURLs{}, reg, Config{})
}

func do(t *testing.T, s *Server, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	s.Router().ServeHTTP(w, req)
	return w
}

func TestHealthCheck(t *testing.T) {
	s := testServer(t)
	w := do(t, s, http.MethodGet, "/api/health", "")
	require.Equal(t, http.StatusOK, w.Code)

	var resp map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "ok", resp["status"])
	assert.EqualValues(t, 3, resp["companies"])
}

func TestSearchDocuments(t *testing.T) {
	s := testServer(t)
	w := do(t, s, http.MethodGet, "/api/v1/documents?company=sturgeon&type=dot", "")
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Documents []struct {
			Company   string `json:"company"`
			Bucket    string `json:"bucket"`
			PublicURL string `json:"public_url"`
			Raw       string `json:"raw"`
		} `json:"documents"`
		TotalMatches int  `json:"total_matches"`
		Truncated    bool `json:"truncated"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Equal(t, 1, resp.TotalMatches)
	require.Len(t, resp.Documents, 1)
	doc := resp.Documents[0]
	assert.Equal(t, "sturgeon-electric", doc.Company)
	assert.Equal(t, storage.BucketDOT, doc.Bucket)
	assert.Equal(t, "https://files.example.com/DOT/"+doc.Raw, doc.PublicURL)
	assert.False(t, resp.Truncated)
}

func TestSearchDocuments_EmptyQueryRejected(t *testing.T) {
	s := testServer(t)
	w := do(t, s, http.MethodGet, "/api/v1/documents", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	// A bare limit is still unconstrained.
	w = do(t, s, http.MethodGet, "/api/v1/documents?limit=5", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestSearchDocuments_BadParams(t *testing.T) {
	s := testServer(t)
	for _, target := range []string{
		"/api/v1/documents?company=x&type=receipt",
		"/api/v1/documents?company=x&limit=zero",
		"/api/v1/documents?company=x&range=fortnight",
		"/api/v1/documents?company=x&start=09/29/2025",
		"/api/v1/documents?company=x&month=13",
	} {
		w := do(t, s, http.MethodGet, target, "")
		assert.Equal(t, http.StatusBadRequest, w.Code, target)
	}
}

func TestSearchDocuments_ExplicitRange(t *testing.T) {
	s := testServer(t)
	w := do(t, s, http.MethodGet, "/api/v1/documents?start=2025-10-01&end=2025-10-31", "")
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		TotalMatches int `json:"total_matches"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, 1, resp.TotalMatches)
}

func TestGetDocument(t *testing.T) {
	s := testServer(t)
	name := "sturgeon-electric__dot__I-4512__U-T-104__V-1FTSW21P06ED12345__D-09292025__P-ABC123.pdf"
	w := do(t, s, http.MethodGet, "/api/v1/documents/"+name, "")
	require.Equal(t, http.StatusOK, w.Code)

	var doc struct {
		Bucket       string `json:"bucket"`
		IsInspection bool   `json:"is_inspection"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &doc))
	assert.Equal(t, storage.BucketDOT, doc.Bucket)
	assert.True(t, doc.IsInspection)
}

func TestGetDocument_Missing(t *testing.T) {
	s := testServer(t)
	w := do(t, s, http.MethodGet, "/api/v1/documents/acme__I-1__U-NA__V-NA__D-NA__P-NA.pdf", "")
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = do(t, s, http.MethodGet, "/api/v1/documents/README.txt", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestListCompanies(t *testing.T) {
	s := testServer(t)
	w := do(t, s, http.MethodGet, "/api/v1/companies", "")
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Companies []struct {
			Key string `json:"key"`
		} `json:"companies"`
		Count int `json:"count"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, 3, resp.Count)
	// Registry keys come back sorted.
	assert.Equal(t, "abbotts-clean-up-and-restoration-", resp.Companies[0].Key)
}

func TestResolveCompany(t *testing.T) {
	s := testServer(t)
	w := do(t, s, http.MethodPost, "/api/v1/companies/resolve", `{"name":"Sturgeon Electric ,"}`)
	require.Equal(t, http.StatusOK, w.Code)

	var res struct {
		Kind string `json:"kind"`
		Key  string `json:"key"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &res))
	assert.Equal(t, "exact", res.Kind)
	assert.Equal(t, "sturgeon-electric", res.Key)
}

func TestResolveCompany_MissingName(t *testing.T) {
	s := testServer(t)
	w := do(t, s, http.MethodPost, "/api/v1/companies/resolve", `{}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestSuggestCompanies(t *testing.T) {
	s := testServer(t)
	w := do(t, s, http.MethodGet, "/api/v1/companies/suggest?q=sturgeon", "")
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Suggestions []string `json:"suggestions"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.NotEmpty(t, resp.Suggestions)
	assert.Equal(t, "sturgeon-electric", resp.Suggestions[0])

	w = do(t, s, http.MethodGet, "/api/v1/companies/suggest", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
