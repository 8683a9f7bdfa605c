package main

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync"
	"testing"
)

type roundTripFunc func(req *http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(req *http.Request) (*http.Response, error) {
	return f(req)
}

// chunkBody returns one chunk per Read. When failAt is a valid index the
// Read for that chunk fails with err instead.
type chunkBody struct {
	chunks [][]byte
	failAt int
	err    error
	next   int
	closed bool
}

func (b *chunkBody) Read(p []byte) (int, error) {
	if b.next == b.failAt {
		return 0, b.err
	}
	if b.next >= len(b.chunks) {
		return 0, io.EOF
	}
	n := copy(p, b.chunks[b.next])
	b.next++
	return n, nil
}

func (b *chunkBody) Close() error {
	b.closed = true
	return nil
}

func chunkClient(body *chunkBody, contentLength int64) *http.Client {
	return &http.Client{Transport: roundTripFunc(func(req *http.Request) (*http.Response, error) {
		return &http.Response{
			StatusCode:    http.StatusOK,
			Status:        "200 OK",
			Header:        http.Header{},
			ContentLength: contentLength,
			Body:          body,
			Request:       req,
		}, nil
	})}
}

func makeChunks(sizes ...int) [][]byte {
	chunks := make([][]byte, len(sizes))
	for i, size := range sizes {
		chunk := make([]byte, size)
		for j := range chunk {
			chunk[j] = byte('a' + (i*7+j)%26)
		}
		chunks[i] = chunk
	}
	return chunks
}

type recordingReporter struct {
	started []int64
	updates []TransferProgress
	done    []bool
}

func (r *recordingReporter) Start(total int64)         { r.started = append(r.started, total) }
func (r *recordingReporter) Update(p TransferProgress) { r.updates = append(r.updates, p) }
func (r *recordingReporter) Done(ok bool)              { r.done = append(r.done, ok) }

// fakeAPI serves the Paper and Purpur metadata and download endpoints under
// /v2 from in-memory data.
type fakeAPI struct {
	t   *testing.T
	srv *httptest.Server

	mu       sync.Mutex
	requests []string

	paperVersions  []string
	paperBuilds    map[string][]int64
	purpurVersions []string
	purpurBuilds   map[string][]string
	jar            []byte
	failVersions   bool
	failDownload   bool
}

func newFakeAPI(t *testing.T) *fakeAPI {
	api := &fakeAPI{
		t:            t,
		paperBuilds:  map[string][]int64{},
		purpurBuilds: map[string][]string{},
		jar:          []byte("PK\x03\x04 not really a jar"),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/v2/projects/paper", func(w http.ResponseWriter, r *http.Request) {
		if api.failVersions {
			http.Error(w, `{"error":"boom"}`, http.StatusInternalServerError)
			return
		}
		api.writeJSON(w, map[string]interface{}{"project_id": "paper", "versions": api.paperVersions})
	})
	mux.HandleFunc("/v2/projects/paper/versions/", func(w http.ResponseWriter, r *http.Request) {
		var version, rest string
		for i, part := range splitPath(r.URL.Path[len("/v2/projects/paper/versions/"):]) {
			if i == 0 {
				version = part
			} else {
				rest += "/" + part
			}
		}
		if rest == "/builds" {
			builds, ok := api.paperBuilds[version]
			if !ok {
				w.WriteHeader(http.StatusNotFound)
				api.writeJSON(w, map[string]string{"error": "Version not found."})
				return
			}
			entries := make([]map[string]interface{}, len(builds))
			for i, b := range builds {
				entries[i] = map[string]interface{}{"build": b, "channel": "default"}
			}
			api.writeJSON(w, map[string]interface{}{"version": version, "builds": entries})
			return
		}
		api.serveJar(w)
	})
	mux.HandleFunc("/v2/purpur", func(w http.ResponseWriter, r *http.Request) {
		if api.failVersions {
			http.Error(w, "boom", http.StatusInternalServerError)
			return
		}
		api.writeJSON(w, map[string]interface{}{"project": "purpur", "versions": api.purpurVersions})
	})
	mux.HandleFunc("/v2/purpur/", func(w http.ResponseWriter, r *http.Request) {
		parts := splitPath(r.URL.Path[len("/v2/purpur/"):])
		if len(parts) == 1 {
			all := api.purpurBuilds[parts[0]]
			latest := ""
			if len(all) > 0 {
				latest = all[len(all)-1]
			}
			api.writeJSON(w, map[string]interface{}{
				"project": "purpur",
				"version": parts[0],
				"builds":  map[string]interface{}{"latest": latest, "all": all},
			})
			return
		}
		api.serveJar(w)
	})

	api.srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		api.mu.Lock()
		api.requests = append(api.requests, r.URL.Path)
		api.mu.Unlock()
		mux.ServeHTTP(w, r)
	}))
	t.Cleanup(api.srv.Close)
	return api
}

func (api *fakeAPI) URL() string {
	return api.srv.URL + "/v2"
}

func (api *fakeAPI) Requests() []string {
	api.mu.Lock()
	defer api.mu.Unlock()
	return append([]string(nil), api.requests...)
}

func (api *fakeAPI) config() *Config {
	return &Config{
		Build:       LatestBuild,
		PaperAPI:    api.URL(),
		PurpurAPI:   api.URL(),
		AdoptiumAPI: api.srv.URL,
		UserAgent:   "vizir-test",
	}
}

func (api *fakeAPI) writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		api.t.Errorf("encoding response: %v", err)
	}
}

func (api *fakeAPI) serveJar(w http.ResponseWriter) {
	if api.failDownload {
		w.WriteHeader(http.StatusNotFound)
		return
	}
	w.Header().Set("Content-Type", "application/java-archive")
	w.Header().Set("Content-Length", strconv.Itoa(len(api.jar)))
	w.Write(api.jar)
}

func splitPath(p string) []string {
	var parts []string
	start := 0
	for i := 0; i <= len(p); i++ {
		if i == len(p) || p[i] == '/' {
			if i > start {
				parts = append(parts, p[start:i])
			}
			start = i + 1
		}
	}
	return parts
}
