package catalog

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"admissions-wizard/internal/common/errors"
	"admissions-wizard/internal/common/logger"
	"admissions-wizard/internal/models"

	"github.com/alicebob/miniredis/v2"
	"github.com/elastic/go-elasticsearch/v8"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ==========================
// Mocks
// ==========================

type MockSource struct {
	ListFunc func(ctx context.Context, institution string) ([]models.Program, error)
	calls    int
}

func (m *MockSource) ListPrograms(ctx context.Context, institution string) ([]models.Program, error) {
	m.calls++
	return m.ListFunc(ctx, institution)
}

type MockSearcher struct {
	SearchFunc func(ctx context.Context, institution, query string) ([]models.Program, error)
}

func (m *MockSearcher) SearchPrograms(ctx context.Context, institution, query string) ([]models.Program, error) {
	return m.SearchFunc(ctx, institution, query)
}

func samplePrograms() []models.Program {
	return []models.Program{
		{ID: 1, Title: "BSc Computer Science", DegreeType: "Bachelor", School: "Computing", Institution: "university"},
		{ID: 2, Title: "BCom Finance", DegreeType: "Bachelor", School: "Business", Institution: "university"},
	}
}

func newCached(t *testing.T, src Source) (*Cached, *miniredis.Miniredis) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return NewCached(src, client, 10*time.Minute, logger.NewTestLogger(t)), mr
}

// ==========================
// Catalog
// ==========================

func TestCatalog_Programs(t *testing.T) {
	listed := []models.Program{{ID: 1, Title: "Listed"}}
	found := []models.Program{{ID: 2, Title: "Found"}}
	src := &MockSource{ListFunc: func(ctx context.Context, institution string) ([]models.Program, error) {
		return listed, nil
	}}
	searcher := &MockSearcher{SearchFunc: func(ctx context.Context, institution, query string) ([]models.Program, error) {
		assert.Equal(t, "university", institution)
		assert.Equal(t, "computer", query)
		return found, nil
	}}

	tests := []struct {
		name     string
		searcher Searcher
		query    string
		want     []models.Program
	}{
		{name: "query with searcher", searcher: searcher, query: "computer", want: found},
		{name: "no query", searcher: searcher, query: "", want: listed},
		{name: "no searcher", searcher: nil, query: "computer", want: listed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := New(src, tt.searcher).Programs(context.Background(), "university", tt.query)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

// ==========================
// Cached
// ==========================

func TestCached_ServesFromCacheAfterFirstLoad(t *testing.T) {
	src := &MockSource{ListFunc: func(ctx context.Context, institution string) ([]models.Program, error) {
		return samplePrograms(), nil
	}}
	cached, mr := newCached(t, src)
	ctx := context.Background()

	first, err := cached.ListPrograms(ctx, "university")
	require.NoError(t, err)
	second, err := cached.ListPrograms(ctx, "university")
	require.NoError(t, err)

	assert.Equal(t, samplePrograms(), first)
	assert.Equal(t, first, second)
	assert.Equal(t, 1, src.calls)
	assert.True(t, mr.Exists("catalog:programs:university"))
	assert.Equal(t, 10*time.Minute, mr.TTL("catalog:programs:university"))
}

func TestCached_KeysPerInstitution(t *testing.T) {
	src := &MockSource{ListFunc: func(ctx context.Context, institution string) ([]models.Program, error) {
		return []models.Program{{ID: 9, Institution: institution}}, nil
	}}
	cached, mr := newCached(t, src)
	ctx := context.Background()

	_, err := cached.ListPrograms(ctx, "college")
	require.NoError(t, err)
	_, err = cached.ListPrograms(ctx, "")
	require.NoError(t, err)

	assert.True(t, mr.Exists("catalog:programs:college"))
	assert.True(t, mr.Exists("catalog:programs:all"))
	assert.Equal(t, 2, src.calls)
}

func TestCached_ExpiredEntryReloads(t *testing.T) {
	src := &MockSource{ListFunc: func(ctx context.Context, institution string) ([]models.Program, error) {
		return samplePrograms(), nil
	}}
	cached, mr := newCached(t, src)
	ctx := context.Background()

	_, err := cached.ListPrograms(ctx, "university")
	require.NoError(t, err)
	mr.FastForward(11 * time.Minute)
	_, err = cached.ListPrograms(ctx, "university")
	require.NoError(t, err)

	assert.Equal(t, 2, src.calls)
}

func TestCached_UnreadableEntryFallsThrough(t *testing.T) {
	src := &MockSource{ListFunc: func(ctx context.Context, institution string) ([]models.Program, error) {
		return samplePrograms(), nil
	}}
	cached, mr := newCached(t, src)
	require.NoError(t, mr.Set("catalog:programs:university", "{not json"))

	got, err := cached.ListPrograms(context.Background(), "university")
	require.NoError(t, err)
	assert.Len(t, got, 2)
	assert.Equal(t, 1, src.calls)
}

func TestCached_SourceErrorIsNotCached(t *testing.T) {
	src := &MockSource{ListFunc: func(ctx context.Context, institution string) ([]models.Program, error) {
		return nil, errors.NewUpstreamUnavailableError("admissions-api", io.ErrUnexpectedEOF)
	}}
	cached, mr := newCached(t, src)

	_, err := cached.ListPrograms(context.Background(), "university")
	require.Error(t, err)
	assert.False(t, mr.Exists("catalog:programs:university"))
}

func TestCached_RedisDownUsesSource(t *testing.T) {
	src := &MockSource{ListFunc: func(ctx context.Context, institution string) ([]models.Program, error) {
		return samplePrograms(), nil
	}}
	cached, mr := newCached(t, src)
	mr.Close()

	got, err := cached.ListPrograms(context.Background(), "university")
	require.NoError(t, err)
	assert.Len(t, got, 2)
}

// ==========================
// Search
// ==========================

func newSearchServer(t *testing.T, handler http.HandlerFunc) *Search {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Elastic-Product", "Elasticsearch")
		w.Header().Set("Content-Type", "application/json")
		handler(w, r)
	}))
	t.Cleanup(srv.Close)

	client, err := elasticsearch.NewClient(elasticsearch.Config{Addresses: []string{srv.URL}})
	require.NoError(t, err)
	return NewSearch(client, "programs", 10)
}

func TestBuildQuery(t *testing.T) {
	q := buildQuery("college", "nursing")

	boolQuery := q["query"].(map[string]interface{})["bool"].(map[string]interface{})
	must := boolQuery["must"].([]interface{})
	require.Len(t, must, 1)
	mm := must[0].(map[string]interface{})["multi_match"].(map[string]interface{})
	assert.Equal(t, "nursing", mm["query"])
	assert.Equal(t, "best_fields", mm["type"])
	assert.Contains(t, mm["fields"], "title^3")

	filter := boolQuery["filter"].([]interface{})
	require.Len(t, filter, 1)
	term := filter[0].(map[string]interface{})["term"].(map[string]interface{})
	assert.Equal(t, "college", term["institution"])

	unfiltered := buildQuery("", "nursing")["query"].(map[string]interface{})["bool"].(map[string]interface{})
	_, hasFilter := unfiltered["filter"]
	assert.False(t, hasFilter)
}

func TestSearch_ReturnsHits(t *testing.T) {
	var gotBody map[string]interface{}
	search := newSearchServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/programs/_search", r.URL.Path)
		assert.Equal(t, "10", r.URL.Query().Get("size"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		_, _ = io.WriteString(w, `{"hits":{"total":{"value":1},"hits":[
			{"_id":"1","_source":{"id":1,"title":"BSc Computer Science","degreeType":"Bachelor","institution":"university"}}
		]}}`)
	})

	got, err := search.SearchPrograms(context.Background(), "university", "computer")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, int64(1), got[0].ID)
	assert.Equal(t, "BSc Computer Science", got[0].Title)
	assert.Contains(t, gotBody, "query")
}

func TestSearch_NoHits(t *testing.T) {
	search := newSearchServer(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"hits":{"total":{"value":0},"hits":[]}}`)
	})

	got, err := search.SearchPrograms(context.Background(), "", "astrophysics")
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestSearch_ErrorResponse(t *testing.T) {
	search := newSearchServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = io.WriteString(w, `{"error":{"type":"index_not_found_exception"},"status":404}`)
	})

	_, err := search.SearchPrograms(context.Background(), "university", "computer")
	require.Error(t, err)
	stdErr, ok := errors.AsStandard(err)
	require.True(t, ok)
	assert.Equal(t, errors.ErrCodeUpstreamUnavailable, stdErr.Code)
}
