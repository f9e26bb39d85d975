package client

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"vsgifts-api/internal/config"
	"vsgifts-api/internal/models"
)

type fakeElastic struct {
	mu       sync.Mutex
	indexed  map[string]map[string]any
	searched []string
}

func (f *fakeElastic) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("X-Elastic-Product", "Elasticsearch")
	w.Header().Set("Content-Type", "application/json")

	f.mu.Lock()
	defer f.mu.Unlock()

	switch {
	case r.Method == http.MethodGet && r.URL.Path == "/":
		_, _ = io.WriteString(w, `{"version":{"number":"8.19.0"},"tagline":"You Know, for Search"}`)
	case r.Method == http.MethodHead && r.URL.Path == "/products":
		w.WriteHeader(http.StatusOK)
	case r.Method == http.MethodPut && len(r.URL.Path) > len("/products/_doc/"):
		var doc map[string]any
		_ = json.NewDecoder(r.Body).Decode(&doc)
		f.indexed[r.URL.Path[len("/products/_doc/"):]] = doc
		w.WriteHeader(http.StatusCreated)
		_, _ = io.WriteString(w, `{"result":"created"}`)
	case r.Method == http.MethodDelete:
		w.WriteHeader(http.StatusNotFound)
		_, _ = io.WriteString(w, `{"result":"not_found"}`)
	case r.URL.Path == "/products/_search":
		body, _ := io.ReadAll(r.Body)
		f.searched = append(f.searched, string(body))
		_, _ = io.WriteString(w, `{"hits":{"hits":[{"_id":"p2"},{"_id":"p1"}]}}`)
	default:
		w.WriteHeader(http.StatusNotFound)
		_, _ = io.WriteString(w, `{}`)
	}
}

func newTestES(t *testing.T) (*ESClient, *fakeElastic) {
	t.Helper()
	fake := &fakeElastic{indexed: map[string]map[string]any{}}
	srv := httptest.NewServer(fake)
	t.Cleanup(srv.Close)

	cfg := &config.Config{
		Environment: config.EnvDevelopment,
		Elasticsearch: config.ElasticsearchConfig{
			URL:   srv.URL,
			Index: "products",
		},
	}
	es, err := NewElasticsearchClient(cfg, zap.NewNop())
	require.NoError(t, err)
	return es, fake
}

func TestESClientIndexesProductProjection(t *testing.T) {
	es, fake := newTestES(t)

	err := es.IndexProduct(context.Background(), &models.Product{
		ID:       "p1",
		Name:     "Rose Bouquet",
		Category: models.CategoryFlowers,
		Amount:   799,
	})
	require.NoError(t, err)

	doc := fake.indexed["p1"]
	require.NotNil(t, doc)
	assert.Equal(t, "Rose Bouquet", doc["name"])
	assert.Equal(t, "Flowers", doc["category"])
	assert.NotContains(t, doc, "_id")
}

func TestESClientSearchReturnsIDsInRelevanceOrder(t *testing.T) {
	es, fake := newTestES(t)

	ids, err := es.SearchProducts(context.Background(), "mug", 10)
	require.NoError(t, err)
	assert.Equal(t, []string{"p2", "p1"}, ids)
	require.Len(t, fake.searched, 1)
	assert.Contains(t, fake.searched[0], `"multi_match"`)
}

func TestESClientDeleteMissingIsNotAnError(t *testing.T) {
	es, _ := newTestES(t)
	assert.NoError(t, es.DeleteProduct(context.Background(), "gone"))
}
