package testutils

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"

	"github.com/papercomputeco/raggadon/pkg/service"
)

// FakeServer is an httptest server speaking the raggadon HTTP API with
// canned responses. It records the requests it receives.
type FakeServer struct {
	*httptest.Server

	mu       sync.Mutex
	Saves    []service.SaveRequest
	Searches []service.SearchRequest
	Stats    []string

	SaveResult   service.SaveResult
	SearchResult service.SearchResult
	StatsResult  service.StatsResult
}

// NewFakeServer starts a FakeServer. Callers must Close it.
func NewFakeServer() *FakeServer {
	f := &FakeServer{}

	mux := http.NewServeMux()
	mux.HandleFunc("/save", func(w http.ResponseWriter, r *http.Request) {
		var req service.SaveRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
			return
		}
		f.mu.Lock()
		f.Saves = append(f.Saves, req)
		res := f.SaveResult
		f.mu.Unlock()
		writeJSON(w, http.StatusOK, res)
	})
	mux.HandleFunc("/search", func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		req := service.SearchRequest{Project: q.Get("project"), Query: q.Get("query")}
		f.mu.Lock()
		f.Searches = append(f.Searches, req)
		res := f.SearchResult
		f.mu.Unlock()
		writeJSON(w, http.StatusOK, res)
	})
	mux.HandleFunc("/project/", func(w http.ResponseWriter, r *http.Request) {
		project := strings.TrimSuffix(strings.TrimPrefix(r.URL.Path, "/project/"), "/stats")
		f.mu.Lock()
		f.Stats = append(f.Stats, project)
		res := f.StatsResult
		f.mu.Unlock()
		writeJSON(w, http.StatusOK, res)
	})

	f.Server = httptest.NewServer(mux)
	return f
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
