// package testing contains shared testing utilities
package testing

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"testing"
)

// FWriter always returns an error on Write
type FWriter struct{}

func (f *FWriter) Write(p []byte) (n int, err error) {
	return 0, errors.New("write failed")
}

// LimitedWriter fails after a certain number of writes
type LimitedWriter struct {
	maxWrites int
	written   int
	target    io.Writer
}

func (l *LimitedWriter) Write(p []byte) (n int, err error) {
	if l.written >= l.maxWrites {
		return 0, errors.New("write limit exceeded")
	}
	l.written++
	return l.target.Write(p)
}

func NewLimitedWriter(maxWrites, written int, target io.Writer) LimitedWriter {
	return LimitedWriter{maxWrites: maxWrites, written: written, target: target}
}

// MockRoundTripper allows custom HTTP responses for testing
type MockRoundTripper struct {
	response *http.Response
	err      error
}

func NewMockRoundTripper(r *http.Response, e error) *MockRoundTripper {
	return &MockRoundTripper{response: r, err: e}
}

func (m *MockRoundTripper) RoundTrip(*http.Request) (*http.Response, error) {
	return m.response, m.err
}

// FCloser simulates a failure when reading response body
type FCloser struct{}

func (f *FCloser) Read(p []byte) (n int, err error) {
	return 0, errors.New("read failed")
}

func (f *FCloser) Close() error {
	return nil
}

// MediaFile describes one file served by [MediaServer].
type MediaFile struct {
	Body       []byte
	Status     int  // defaults to 200
	HideLength bool // omit Content-Length (chunked transfer)
}

// MediaServer serves a playlist manifest at /manifest.json and media files at /media/<name>.
//
// Requests are counted per path so tests can assert that cached items are never fetched.
type MediaServer struct {
	*httptest.Server

	mu       sync.Mutex
	files    map[string]MediaFile
	manifest []byte
	hits     map[string]int
}

// NewMediaServer starts a [MediaServer] that is closed when the test ends.
func NewMediaServer(t *testing.T) *MediaServer {
	t.Helper()

	ms := &MediaServer{files: map[string]MediaFile{}, hits: map[string]int{}}
	ms.Server = httptest.NewServer(http.HandlerFunc(ms.serve))
	t.Cleanup(ms.Close)
	return ms
}

// AddFile registers a media file and returns its URL.
func (ms *MediaServer) AddFile(name string, f MediaFile) string {
	ms.mu.Lock()
	defer ms.mu.Unlock()
	ms.files["/media/"+name] = f
	return ms.URL + "/media/" + name
}

// SetManifest sets the JSON document served at /manifest.json from (type, url) pairs.
func (ms *MediaServer) SetManifest(entries ...[2]string) string {
	type item struct {
		ID   string `json:"id"`
		Type string `json:"type"`
		URL  string `json:"url"`
	}
	items := make([]item, len(entries))
	for i, e := range entries {
		items[i] = item{ID: strconv.Itoa(i + 1), Type: e[0], URL: e[1]}
	}

	data, _ := json.Marshal(map[string]any{"items": items})
	ms.SetRawManifest(data)
	return ms.ManifestURL()
}

// SetRawManifest sets the raw body served at /manifest.json.
func (ms *MediaServer) SetRawManifest(data []byte) {
	ms.mu.Lock()
	defer ms.mu.Unlock()
	ms.manifest = data
}

// ManifestURL returns the manifest endpoint.
func (ms *MediaServer) ManifestURL() string {
	return ms.URL + "/manifest.json"
}

// Hits returns how many requests reached path.
func (ms *MediaServer) Hits(path string) int {
	ms.mu.Lock()
	defer ms.mu.Unlock()
	return ms.hits[path]
}

func (ms *MediaServer) serve(w http.ResponseWriter, r *http.Request) {
	ms.mu.Lock()
	ms.hits[r.URL.Path]++
	manifest := ms.manifest
	f, ok := ms.files[r.URL.Path]
	ms.mu.Unlock()

	if r.URL.Path == "/manifest.json" {
		if manifest == nil {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write(manifest)
		return
	}

	if !ok {
		http.NotFound(w, r)
		return
	}

	status := f.Status
	if status == 0 {
		status = http.StatusOK
	}
	if status >= 300 {
		http.Error(w, fmt.Sprintf("status %d", status), status)
		return
	}

	if !f.HideLength {
		w.Header().Set("Content-Length", strconv.Itoa(len(f.Body)))
	}
	w.WriteHeader(status)

	flusher, _ := w.(http.Flusher)
	for i := 0; i < len(f.Body); i += 1024 {
		end := min(i+1024, len(f.Body))
		w.Write(f.Body[i:end])
		if flusher != nil {
			flusher.Flush()
		}
	}
}

// Bytes returns n deterministic bytes.
func Bytes(n int) []byte {
	b := make([]byte, n)
	for i := range b {
		b[i] = byte(i % 251)
	}
	return b
}

// WriteCacheFile seeds dir with a cached file.
func WriteCacheFile(t *testing.T, dir, name string, body []byte) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, body, 0644); err != nil {
		t.Fatalf("Failed to write cache file %s: %v", path, err)
	}
	return path
}

func MustGetwd(t *testing.T) string {
	t.Helper()
	wd, err := os.Getwd()
	if err != nil {
		t.Fatalf("Failed to get working directory: %v", err)
	}
	return wd
}

func MustChdir(t *testing.T, dir string) {
	t.Helper()
	if err := os.Chdir(dir); err != nil {
		t.Fatalf("Failed to change directory to %s: %v", dir, err)
	}
}

func AssertFileExists(t *testing.T, path string) {
	t.Helper()
	if _, err := os.Stat(path); os.IsNotExist(err) {
		t.Errorf("File does not exist: %s", path)
	}
}

func AssertDirExists(t *testing.T, path string) {
	t.Helper()
	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		t.Errorf("Directory does not exist: %s", path)
		return
	}
	if !info.IsDir() {
		t.Errorf("Path is not a directory: %s", path)
	}
}

func MustReadFile(t *testing.T, path string) string {
	t.Helper()
	content, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to read file %s: %v", path, err)
	}
	return string(content)
}

// AssertNoPartials fails when dir still holds in-flight temp files.
func AssertNoPartials(t *testing.T, dir string) {
	t.Helper()
	matches, err := filepath.Glob(filepath.Join(dir, ".*.part"))
	if err != nil {
		t.Fatalf("Failed to glob %s: %v", dir, err)
	}
	if len(matches) > 0 {
		t.Errorf("Partial files left behind: %v", matches)
	}
}
