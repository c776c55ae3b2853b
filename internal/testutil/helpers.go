// Package testutil provides small helpers shared by the package tests.
package testutil

import (
	"net/http"
	"net/http/httptest"
	"os"
	"sync"
	"testing"
)

// XMLServer serves canned XML documents and records which paths were hit.
type XMLServer struct {
	*httptest.Server

	mu   sync.Mutex
	hits []string
}

// NewXMLServer starts a server mapping URL paths to files on disk. Paths
// not in routes get a 404. Close is registered on the test's cleanup.
func NewXMLServer(t *testing.T, routes map[string]string) *XMLServer {
	t.Helper()

	s := &XMLServer{}
	s.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		s.hits = append(s.hits, r.URL.Path)
		s.mu.Unlock()

		file, ok := routes[r.URL.Path]
		if !ok {
			http.NotFound(w, r)
			return
		}
		body, err := os.ReadFile(file)
		if err != nil {
			t.Errorf("reading fixture %s: %v", file, err)
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", `text/xml; charset="utf-8"`)
		w.Write(body)
	}))
	t.Cleanup(s.Close)
	return s
}

// Hits returns the request paths seen so far.
func (s *XMLServer) Hits() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.hits...)
}
