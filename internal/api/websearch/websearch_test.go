package websearch

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/FACorreiaa/go-travel-planner/config"
	"github.com/FACorreiaa/go-travel-planner/internal/types"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestClient(url string) *TavilyClient {
	return NewTavilyClient(config.WebSearchConfig{BaseURL: url, APIKey: "test-key"}, testLogger())
}

func resultsBody(results ...map[string]any) string {
	payload, _ := json.Marshal(map[string]any{"results": results})
	return string(payload)
}

func TestSearch_MapsResults(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req searchRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "test-key", req.APIKey)
		assert.Equal(t, 5, req.MaxResults)
		fmt.Fprint(w, resultsBody(
			map[string]any{"title": "Snail alley", "content": "Euljiro golbaengi", "url": "https://a.example", "score": 0.9},
		))
	}))
	defer srv.Close()

	hits, err := newTestClient(srv.URL).Search(context.Background(), "euljiro snails", 5)

	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, "Snail alley", hits[0].Title)
	assert.Equal(t, types.SourceWeb, hits[0].Source)
	assert.Equal(t, 0.9, hits[0].Relevance)
}

func TestSearch_MissingKeyReturnsEmpty(t *testing.T) {
	client := NewTavilyClient(config.WebSearchConfig{BaseURL: "http://unused"}, testLogger())

	hits, err := client.Search(context.Background(), "anything", 5)

	require.NoError(t, err)
	assert.Empty(t, hits)
}

func TestSearch_UpstreamErrorDegradesToEmpty(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	hits, err := newTestClient(srv.URL).Search(context.Background(), "anything", 5)

	require.NoError(t, err)
	assert.Empty(t, hits)
}

func TestSearchMulti_DeduplicatesAndSorts(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req searchRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		switch req.Query {
		case "bars":
			fmt.Fprint(w, resultsBody(
				map[string]any{"title": "Bar", "content": "", "url": "https://shared.example", "score": 0.5},
				map[string]any{"title": "Rooftop", "content": "", "url": "https://roof.example", "score": 0.95},
			))
		default:
			fmt.Fprint(w, resultsBody(
				map[string]any{"title": "Shared again", "content": "", "url": "https://shared.example", "score": 0.7},
				map[string]any{"title": "Cafe", "content": "", "url": "https://cafe.example", "score": 0.6},
			))
		}
	}))
	defer srv.Close()

	hits, err := newTestClient(srv.URL).SearchMulti(context.Background(), []string{"bars", "cafes"}, 5)

	require.NoError(t, err)
	require.Len(t, hits, 3)
	urls := make(map[string]int)
	for _, h := range hits {
		urls[h.SourceURL]++
	}
	assert.Equal(t, 1, urls["https://shared.example"])
	assert.Equal(t, "https://roof.example", hits[0].SourceURL)
	for i := 1; i < len(hits); i++ {
		assert.GreaterOrEqual(t, hits[i-1].Relevance, hits[i].Relevance)
	}
}

func TestSearchMulti_PartialFailureKeepsOtherResults(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req searchRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		if req.Query == "broken" {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		fmt.Fprint(w, resultsBody(
			map[string]any{"title": "OK", "content": "", "url": "https://ok.example", "score": 0.8},
		))
	}))
	defer srv.Close()

	hits, err := newTestClient(srv.URL).SearchMulti(context.Background(), []string{"broken", "fine"}, 5)

	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, "https://ok.example", hits[0].SourceURL)
}
