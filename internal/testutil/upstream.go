package testutil

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
)

// UpstreamCall is one request received by FakeUpstream.
type UpstreamCall struct {
	Method         string
	Path           string
	Query          string
	IdempotencyKey string
	Body           []byte
}

// UpstreamReply is the canned answer for a route.
type UpstreamReply struct {
	Status int
	Body   interface{}
}

// FakeUpstream is an httptest server answering "METHOD /path" routes with
// canned replies and recording every call. Unknown routes answer 404.
type FakeUpstream struct {
	*httptest.Server

	mu     sync.Mutex
	routes map[string]UpstreamReply
	calls  []UpstreamCall
}

// NewFakeUpstream starts a FakeUpstream closed at test cleanup.
func NewFakeUpstream(t *testing.T) *FakeUpstream {
	t.Helper()

	f := &FakeUpstream{routes: map[string]UpstreamReply{}}
	f.Server = httptest.NewServer(http.HandlerFunc(f.serve))
	t.Cleanup(f.Close)
	return f
}

// Handle sets the reply for method and path (query string excluded).
func (f *FakeUpstream) Handle(method, path string, status int, body interface{}) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.routes[method+" "+path] = UpstreamReply{Status: status, Body: body}
}

// Calls returns a copy of the recorded calls.
func (f *FakeUpstream) Calls() []UpstreamCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]UpstreamCall, len(f.calls))
	copy(out, f.calls)
	return out
}

// CallsTo returns the recorded calls for method and path.
func (f *FakeUpstream) CallsTo(method, path string) []UpstreamCall {
	var out []UpstreamCall
	for _, c := range f.Calls() {
		if c.Method == method && c.Path == path {
			out = append(out, c)
		}
	}
	return out
}

func (f *FakeUpstream) serve(w http.ResponseWriter, r *http.Request) {
	body, _ := io.ReadAll(r.Body)

	f.mu.Lock()
	f.calls = append(f.calls, UpstreamCall{
		Method:         r.Method,
		Path:           r.URL.Path,
		Query:          r.URL.RawQuery,
		IdempotencyKey: r.Header.Get("Idempotency-Key"),
		Body:           body,
	})
	reply, ok := f.routes[r.Method+" "+r.URL.Path]
	f.mu.Unlock()

	if !ok {
		http.Error(w, "not found", http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(reply.Status)
	if reply.Body != nil {
		json.NewEncoder(w).Encode(reply.Body)
	}
}
