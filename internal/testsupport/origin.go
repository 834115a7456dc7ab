package testsupport

import (
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync"
	"testing"
)

// Route describes how the stub origin answers a path.
type Route struct {
	Body []byte
	// Status defaults to 200.
	Status int
	// FailFirst answers the first N requests with 503 before serving Body.
	FailFirst int
	// Truncate advertises the full length but aborts the connection after
	// half of Body has been written.
	Truncate bool
}

// Origin is an httptest server that serves canned bodies and counts requests
// per path so tests can assert how much network work a run performed.
type Origin struct {
	server *httptest.Server

	mu     sync.Mutex
	routes map[string]Route
	hits   map[string]int
}

// NewOrigin starts a stub origin and registers its shutdown with t.
func NewOrigin(t testing.TB) *Origin {
	t.Helper()

	o := &Origin{
		routes: map[string]Route{},
		hits:   map[string]int{},
	}
	o.server = httptest.NewServer(http.HandlerFunc(o.serve))
	t.Cleanup(o.server.Close)
	return o
}

// Serve registers body under path with a 200 status.
func (o *Origin) Serve(path string, body []byte) string {
	return o.Handle(path, Route{Body: body})
}

// Handle registers route under path and returns the absolute URL for it.
func (o *Origin) Handle(path string, route Route) string {
	o.mu.Lock()
	o.routes[path] = route
	o.mu.Unlock()
	return o.URL(path)
}

// URL returns the absolute URL for path.
func (o *Origin) URL(path string) string {
	return o.server.URL + path
}

// Hits returns how many requests path received.
func (o *Origin) Hits(path string) int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.hits[path]
}

// Total returns the number of requests across all paths.
func (o *Origin) Total() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	total := 0
	for _, n := range o.hits {
		total += n
	}
	return total
}

// Reset clears the request counters.
func (o *Origin) Reset() {
	o.mu.Lock()
	o.hits = map[string]int{}
	o.mu.Unlock()
}

func (o *Origin) serve(w http.ResponseWriter, r *http.Request) {
	o.mu.Lock()
	o.hits[r.URL.Path]++
	count := o.hits[r.URL.Path]
	route, ok := o.routes[r.URL.Path]
	o.mu.Unlock()

	if !ok {
		http.NotFound(w, r)
		return
	}
	if count <= route.FailFirst {
		http.Error(w, "try again", http.StatusServiceUnavailable)
		return
	}
	status := route.Status
	if status == 0 {
		status = http.StatusOK
	}
	if status != http.StatusOK {
		http.Error(w, http.StatusText(status), status)
		return
	}

	w.Header().Set("Content-Length", strconv.Itoa(len(route.Body)))
	w.WriteHeader(status)
	if !route.Truncate {
		_, _ = w.Write(route.Body)
		return
	}
	_, _ = w.Write(route.Body[:len(route.Body)/2])
	if flusher, ok := w.(http.Flusher); ok {
		flusher.Flush()
	}
	panic(http.ErrAbortHandler)
}
