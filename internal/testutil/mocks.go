package testutil

import (
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
)

// Route describes a canned HTTP response served by NewStubServer.
type Route struct {
	Status      int
	Body        string
	ContentType string
}

// StubServer is an httptest server that answers from a fixed route table
// and counts hits per path.
type StubServer struct {
	*httptest.Server

	mu   sync.Mutex
	hits map[string]int
}

// NewStubServer starts a server for the given routes. Unknown paths get 404.
// The server is closed automatically when the test finishes.
func NewStubServer(t *testing.T, routes map[string]Route) *StubServer {
	t.Helper()

	s := &StubServer{hits: make(map[string]int)}
	s.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		s.hits[r.URL.Path]++
		s.mu.Unlock()

		route, ok := routes[r.URL.Path]
		if !ok {
			http.NotFound(w, r)
			return
		}
		if route.ContentType != "" {
			w.Header().Set("Content-Type", route.ContentType)
		}
		status := route.Status
		if status == 0 {
			status = http.StatusOK
		}
		w.WriteHeader(status)
		if r.Method != http.MethodHead {
			_, _ = w.Write([]byte(route.Body))
		}
	}))
	t.Cleanup(s.Close)
	return s
}

// Hits returns how many requests reached path.
func (s *StubServer) Hits(path string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.hits[path]
}
