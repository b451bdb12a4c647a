package server

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/meaningmap/bhsa-extract/core/bhsa"
	"github.com/meaningmap/bhsa-extract/core/tf"
)

// writeTestCorpus writes a one-book corpus (Ruth, one chapter, one verse,
// one clause over two words).
func writeTestCorpus(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	files := map[string]string{
		"otype.tf":        "@node\n@valueType=str\n\n1-2\tword\n3\tbook\n4\tchapter\n5\tverse\n6\tclause\n7\tphrase\n",
		"oslots.tf":       "@edge\n@valueType=str\n\n1-2\n1-2\n1-2\n1-2\n1-2\n",
		"book.tf":         "@node\n@valueType=str\n\n3\tRuth\n",
		"chapter.tf":      "@node\n@valueType=int\n\n4\t1\n5\t1\n",
		"verse.tf":        "@node\n@valueType=int\n\n5\t1\n",
		"g_word_utf8.tf":  "@node\n@valueType=str\n\nwa\nhalak\n",
		"trailer_utf8.tf": "@node\n@valueType=str\n\n \n\n",
		"typ.tf":          "@node\n@valueType=str\n\n6\txQtX\n7\tVP\n",
		"function.tf":     "@node\n@valueType=str\n\n7\tPred\n",
		"pdp.tf":          "@node\n@valueType=str\n\n1\tconj\n2\tverb\n",
		"lex_utf8.tf":     "@node\n@valueType=str\n\nW\nHLK\n",
		"gloss.tf":        "@node\n@valueType=str\n\n1\tand\n2\twent\n",
	}
	for name, content := range files {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0644); err != nil {
			t.Fatalf("failed to write %s: %v", name, err)
		}
	}
	return dir
}

func newTestServer(t *testing.T) (*Server, *httptest.Server) {
	t.Helper()
	ds, err := tf.Load(writeTestCorpus(t), bhsa.BasicFeatures(), bhsa.OptionalFeatures())
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	s := New(Config{
		Addr:      "localhost:0",
		OutputDir: filepath.Join(t.TempDir(), "out"),
	}, ds)
	ts := httptest.NewServer(s.Handler())
	t.Cleanup(ts.Close)
	return s, ts
}

func getJSON(t *testing.T, url string, wantStatus int) APIResponse {
	t.Helper()
	resp, err := http.Get(url)
	if err != nil {
		t.Fatalf("GET %s failed: %v", url, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != wantStatus {
		t.Fatalf("GET %s status = %d, want %d", url, resp.StatusCode, wantStatus)
	}
	var out APIResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatalf("GET %s: invalid JSON: %v", url, err)
	}
	return out
}

func TestHealth(t *testing.T) {
	_, ts := newTestServer(t)

	out := getJSON(t, ts.URL+"/healthz", http.StatusOK)
	if !out.Success {
		t.Error("health check not successful")
	}
	data := out.Data.(map[string]any)
	if data["status"] != "ok" {
		t.Errorf("status = %v", data["status"])
	}
}

func TestBooks(t *testing.T) {
	_, ts := newTestServer(t)

	out := getJSON(t, ts.URL+"/api/books", http.StatusOK)
	books := out.Data.([]any)
	if len(books) != 39 {
		t.Fatalf("got %d books, want the full canon", len(books))
	}

	available := 0
	for _, b := range books {
		info := b.(map[string]any)
		if info["available"].(bool) {
			available++
			if info["name"] != "Ruth" {
				t.Errorf("available book = %v, want Ruth", info["name"])
			}
		}
	}
	if available != 1 {
		t.Errorf("available = %d, want 1", available)
	}
}

func TestBookBySlug(t *testing.T) {
	_, ts := newTestServer(t)

	out := getJSON(t, ts.URL+"/api/books/ruth", http.StatusOK)
	data := out.Data.(map[string]any)
	if data["name"] != "Ruth" {
		t.Errorf("name = %v", data["name"])
	}
	verses := data["verses"].([]any)
	if len(verses) != 1 {
		t.Fatalf("got %d verses, want 1", len(verses))
	}
	verse := verses[0].(map[string]any)
	if verse["reference"] != "Ruth 1:1" {
		t.Errorf("reference = %v", verse["reference"])
	}

	// Second read is served from cache and must be identical
	again := getJSON(t, ts.URL+"/api/books/ruth", http.StatusOK)
	if again.Data.(map[string]any)["name"] != "Ruth" {
		t.Error("cached read differs")
	}
}

func TestBookBySlugErrors(t *testing.T) {
	_, ts := newTestServer(t)

	out := getJSON(t, ts.URL+"/api/books/narnia", http.StatusNotFound)
	if out.Error == nil || out.Error.Code != "unknown_book" {
		t.Errorf("error = %+v", out.Error)
	}

	// Canonical book that is not in this corpus
	out = getJSON(t, ts.URL+"/api/books/jonah", http.StatusNotFound)
	if out.Error == nil || out.Error.Code != "not_in_corpus" {
		t.Errorf("error = %+v", out.Error)
	}
}

func TestExtractRun(t *testing.T) {
	s, ts := newTestServer(t)

	body, _ := json.Marshal(extractRequest{Profile: "basic", Books: []string{"ruth"}})
	resp, err := http.Post(ts.URL+"/api/extract", "application/json", bytes.NewReader(body))
	if err != nil {
		t.Fatalf("POST failed: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusAccepted {
		t.Fatalf("status = %d, want 202", resp.StatusCode)
	}
	var out APIResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	runID := out.Data.(map[string]any)["id"].(string)
	if runID == "" {
		t.Fatal("no run ID returned")
	}

	// Poll until the run completes
	deadline := time.Now().Add(5 * time.Second)
	var run Run
	for {
		got, ok := s.runs.get(runID)
		if ok && got.Status != RunRunning {
			run = got
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("run did not finish in time")
		}
		time.Sleep(10 * time.Millisecond)
	}

	if run.Status != RunCompleted {
		t.Fatalf("run status = %s, error = %s", run.Status, run.Error)
	}
	if run.Verses != 1 || run.Clauses != 1 {
		t.Errorf("run stats = %d verses, %d clauses", run.Verses, run.Clauses)
	}
	if len(run.Written) != 1 {
		t.Fatalf("written = %v", run.Written)
	}
	if _, err := os.Stat(run.Written[0]); err != nil {
		t.Errorf("output file missing: %v", err)
	}

	// The run endpoint reports the same state
	got := getJSON(t, ts.URL+"/api/runs/"+runID, http.StatusOK)
	if got.Data.(map[string]any)["status"] != RunCompleted {
		t.Errorf("run endpoint status = %v", got.Data.(map[string]any)["status"])
	}
}

func TestExtractSkipsMissingBooks(t *testing.T) {
	s, ts := newTestServer(t)

	body, _ := json.Marshal(extractRequest{Books: []string{"ruth", "jonah"}})
	resp, err := http.Post(ts.URL+"/api/extract", "application/json", bytes.NewReader(body))
	if err != nil {
		t.Fatalf("POST failed: %v", err)
	}
	defer resp.Body.Close()
	var out APIResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	runID := out.Data.(map[string]any)["id"].(string)

	deadline := time.Now().Add(5 * time.Second)
	for {
		run, ok := s.runs.get(runID)
		if ok && run.Status == RunCompleted {
			if len(run.Skipped) != 1 || run.Skipped[0] != "Jonah" {
				t.Errorf("skipped = %v, want [Jonah]", run.Skipped)
			}
			if len(run.Written) != 1 {
				t.Errorf("written = %v, want one file", run.Written)
			}
			return
		}
		if time.Now().After(deadline) {
			t.Fatal("run did not finish in time")
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestExtractBadRequests(t *testing.T) {
	_, ts := newTestServer(t)

	resp, err := http.Post(ts.URL+"/api/extract", "application/json", bytes.NewReader([]byte(`{"profile":"fancy"}`)))
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("bad profile status = %d, want 400", resp.StatusCode)
	}

	resp, err = http.Post(ts.URL+"/api/extract", "application/json", bytes.NewReader([]byte(`{"books":["narnia"]}`)))
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("unknown books status = %d, want 400", resp.StatusCode)
	}

	resp, err = http.Get(ts.URL + "/api/extract")
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusMethodNotAllowed {
		t.Errorf("GET status = %d, want 405", resp.StatusCode)
	}
}

func TestUnknownRun(t *testing.T) {
	_, ts := newTestServer(t)
	out := getJSON(t, ts.URL+"/api/runs/nope", http.StatusNotFound)
	if out.Error == nil || out.Error.Code != "unknown_run" {
		t.Errorf("error = %+v", out.Error)
	}
}
