package retrieval

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/askdoc/askdoc/internal/common"
	"github.com/askdoc/askdoc/internal/models"
)

func testConfig(endpoint string) *common.RetrievalConfig {
	return &common.RetrievalConfig{
		Endpoint:           endpoint,
		CorpusID:           "123",
		MaxResults:         5,
		DistanceThreshold:  0.8,
		ScoreKind:          "distance",
		Timeout:            "2s",
		RetryBackoff:       "10ms",
		RateLimitPerSecond: 100,
	}
}

func newTestClient(t *testing.T, endpoint string) *Client {
	t.Helper()
	client, err := NewClient(testConfig(endpoint), common.GetLogger())
	require.NoError(t, err)
	return client
}

func TestCorpusCandidates(t *testing.T) {
	tests := []struct {
		name     string
		corpusID string
		want     []string
	}{
		{
			name:     "bare numeric id",
			corpusID: "123",
			want:     []string{"123", "corpora/123"},
		},
		{
			name:     "fully qualified path",
			corpusID: "projects/p/locations/l/ragCorpora/123",
			want:     []string{"projects/p/locations/l/ragCorpora/123", "123"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, corpusCandidates(tt.corpusID))
		})
	}
}

func TestSearch_MapsAndPreservesOrder(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/123:retrieveContexts", r.URL.Path)

		var req retrieveRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "pto policy", req.Query.Text)
		assert.Equal(t, 5, req.Query.TopK)
		assert.Equal(t, 0.8, req.RelevanceThreshold)

		json.NewEncoder(w).Encode(map[string]interface{}{
			"contexts": []map[string]interface{}{
				{"text": "Employees get 15 days PTO annually.", "source_display_name": "handbook.pdf", "distance": 0.1},
				{"text": "Carryover is capped at 5 days.", "source_uri": "gs://docs/policies.pdf", "distance": 0.3},
				{"text": "Unnamed chunk", "score": 0.3},
			},
		})
	}))
	defer server.Close()

	client := newTestClient(t, server.URL)

	chunks, err := client.Search(context.Background(), "pto policy", 0, 0)
	require.NoError(t, err)
	require.Len(t, chunks, 3)

	assert.Equal(t, models.RetrievedChunk{
		Content:        "Employees get 15 days PTO annually.",
		SourceDocument: "handbook.pdf",
		RelevanceScore: 0.1,
	}, chunks[0])
	assert.Equal(t, "policies.pdf", chunks[1].SourceDocument)
	assert.Equal(t, "unknown", chunks[2].SourceDocument)
}

func TestSearch_EmptyContexts(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]interface{}{"contexts": []interface{}{}})
	}))
	defer server.Close()

	client := newTestClient(t, server.URL)

	chunks, err := client.Search(context.Background(), "nothing matches", 0, 0)
	require.NoError(t, err)
	assert.Empty(t, chunks)
}

func TestSearch_NotFoundFallsBackToAlternateForm(t *testing.T) {
	var paths []string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		paths = append(paths, r.URL.Path)
		if r.URL.Path == "/v1/123:retrieveContexts" {
			w.WriteHeader(http.StatusNotFound)
			json.NewEncoder(w).Encode(map[string]interface{}{
				"error": map[string]interface{}{"code": 404, "status": "NOT_FOUND", "message": "corpus 123 not found"},
			})
			return
		}
		json.NewEncoder(w).Encode(map[string]interface{}{
			"contexts": []map[string]interface{}{
				{"text": "found via fallback", "source_display_name": "doc.pdf", "distance": 0.2},
			},
		})
	}))
	defer server.Close()

	client := newTestClient(t, server.URL)

	chunks, err := client.Search(context.Background(), "query", 0, 0)
	require.NoError(t, err)
	require.Len(t, chunks, 1)
	assert.Equal(t, "found via fallback", chunks[0].Content)
	assert.Equal(t, []string{"/v1/123:retrieveContexts", "/v1/corpora/123:retrieveContexts"}, paths)
}

func TestSearch_TransientErrorRetriedOnce(t *testing.T) {
	calls := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		json.NewEncoder(w).Encode(map[string]interface{}{
			"contexts": []map[string]interface{}{
				{"text": "recovered", "source_display_name": "doc.pdf", "distance": 0.2},
			},
		})
	}))
	defer server.Close()

	client := newTestClient(t, server.URL)

	chunks, err := client.Search(context.Background(), "query", 0, 0)
	require.NoError(t, err)
	require.Len(t, chunks, 1)
	assert.Equal(t, 2, calls)
}

func TestSearch_AuthErrorFailsFast(t *testing.T) {
	calls := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusUnauthorized)
		json.NewEncoder(w).Encode(map[string]interface{}{
			"error": map[string]interface{}{"code": 401, "status": "UNAUTHENTICATED", "message": "bad key"},
		})
	}))
	defer server.Close()

	client := newTestClient(t, server.URL)

	_, err := client.Search(context.Background(), "query", 0, 0)
	require.Error(t, err)

	var retrievalErr *models.RetrievalError
	require.ErrorAs(t, err, &retrievalErr)
	assert.False(t, retrievalErr.Timeout)
	assert.Equal(t, 1, calls, "auth failures must not be retried")
}

func TestSearch_TimeoutClassified(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
		json.NewEncoder(w).Encode(map[string]interface{}{"contexts": []interface{}{}})
	}))
	defer server.Close()

	cfg := testConfig(server.URL)
	cfg.Timeout = "50ms"
	client, err := NewClient(cfg, common.GetLogger())
	require.NoError(t, err)

	_, err = client.Search(context.Background(), "query", 0, 0)
	require.Error(t, err)

	var retrievalErr *models.RetrievalError
	require.ErrorAs(t, err, &retrievalErr)
	assert.True(t, retrievalErr.Timeout)
}

func TestNewClient_RequiresEndpointAndCorpus(t *testing.T) {
	cfg := testConfig("")
	_, err := NewClient(cfg, common.GetLogger())
	assert.Error(t, err)

	cfg = testConfig("http://localhost:1")
	cfg.CorpusID = ""
	_, err = NewClient(cfg, common.GetLogger())
	assert.Error(t, err)
}
