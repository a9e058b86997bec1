package metrics

import (
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestNilCollectorIsSafe(t *testing.T) {
	var c *Collector
	c.BeginPass()
	c.Inspected()
	c.Skipped("descriptor", 2)
	c.Truncated("processes")
	c.Progress(1, "dd", "/x", 10)
	c.EndPass(time.Millisecond, 1)
	if c.Registry() != nil {
		t.Error("nil collector should have nil registry")
	}
	if data, err := c.Encode(); err != nil || len(data) != 0 {
		t.Errorf("Encode on nil collector = %q, %v", data, err)
	}

	path := filepath.Join(t.TempDir(), "cv.prom")
	if err := c.WriteTextfile(path); err != nil {
		t.Errorf("WriteTextfile on nil collector failed: %v", err)
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Errorf("nil collector should not write %s", path)
	}
}

func TestEncode(t *testing.T) {
	c := New()
	c.BeginPass()
	c.Inspected()
	c.Skipped("descriptor", 3)
	c.Truncated("descriptors")
	c.Progress(100, "dd", "/data/out.img", 25)
	c.EndPass(5*time.Millisecond, 1)

	data, err := c.Encode()
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}
	out := string(data)

	expected := []string{
		"cv_passes_total 1",
		"cv_matched_processes 1",
		"cv_descriptors_inspected_total 1",
		`cv_skipped_total{scope="descriptor"} 3`,
		`cv_truncations_total{kind="descriptors"} 1`,
		`cv_transfer_progress_percent{command="dd",path="/data/out.img",pid="100"} 25`,
	}
	for _, want := range expected {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q\n%s", want, out)
		}
	}
}

func TestBeginPassResetsProgress(t *testing.T) {
	c := New()
	c.Progress(100, "dd", "/a", 50)
	c.BeginPass()

	data, err := c.Encode()
	if err != nil {
		t.Fatal(err)
	}
	if strings.Contains(string(data), `pid="100"`) {
		t.Error("progress from previous pass should be cleared")
	}
}

func TestWriteTextfile(t *testing.T) {
	c := New()
	c.EndPass(time.Millisecond, 0)

	path := filepath.Join(t.TempDir(), "cv.prom")
	if err := c.WriteTextfile(path); err != nil {
		t.Fatalf("WriteTextfile failed: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), "cv_passes_total 1") {
		t.Errorf("unexpected textfile contents:\n%s", data)
	}

	entries, _ := os.ReadDir(filepath.Dir(path))
	if len(entries) != 1 {
		t.Errorf("temp file left behind: %v", entries)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatal(err)
	}
	if perm := info.Mode().Perm(); perm != 0644 {
		t.Errorf("textfile mode = %v, expected 0644 for the node_exporter reader", perm)
	}
}

func TestRouter(t *testing.T) {
	c := New()
	c.EndPass(time.Millisecond, 2)
	router := c.Router(nil)

	tests := []struct {
		method string
		path   string
		code   int
		body   string
	}{
		{http.MethodGet, "/metrics", http.StatusOK, "cv_matched_processes 2"},
		{http.MethodGet, "/healthz", http.StatusOK, "ok"},
		{http.MethodPost, "/metrics", http.StatusMethodNotAllowed, ""},
		{http.MethodGet, "/nope", http.StatusNotFound, ""},
	}

	for _, tt := range tests {
		t.Run(tt.method+" "+tt.path, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, tt.path, nil)
			rr := httptest.NewRecorder()
			router.ServeHTTP(rr, req)

			if rr.Code != tt.code {
				t.Errorf("status = %d, expected %d", rr.Code, tt.code)
			}
			if tt.body != "" && !strings.Contains(rr.Body.String(), tt.body) {
				t.Errorf("body missing %q: %s", tt.body, rr.Body.String())
			}
		})
	}
}
