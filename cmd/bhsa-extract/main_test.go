package main

import (
	"os"
	"path/filepath"
	"testing"
)

func TestProfileDefaults(t *testing.T) {
	CLI.Config = ""
	CLI.CorpusDir = ""
	t.Cleanup(func() { CLI.Config = ""; CLI.CorpusDir = "" })

	cfg, err := profile()
	if err != nil {
		t.Fatalf("profile failed: %v", err)
	}
	if cfg.CorpusDir != "corpus" || cfg.OutputDir != "output" {
		t.Errorf("defaults = %q, %q", cfg.CorpusDir, cfg.OutputDir)
	}
}

func TestProfileFlagOverridesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "profile.yaml")
	if err := os.WriteFile(path, []byte("corpus_dir: /from/file\noutput_dir: /out\n"), 0644); err != nil {
		t.Fatal(err)
	}

	CLI.Config = path
	CLI.CorpusDir = "/from/flag"
	t.Cleanup(func() { CLI.Config = ""; CLI.CorpusDir = "" })

	cfg, err := profile()
	if err != nil {
		t.Fatalf("profile failed: %v", err)
	}
	if cfg.CorpusDir != "/from/flag" {
		t.Errorf("CorpusDir = %q, flag should win", cfg.CorpusDir)
	}
	if cfg.OutputDir != "/out" {
		t.Errorf("OutputDir = %q, file value should survive", cfg.OutputDir)
	}
}

func TestResolveBooks(t *testing.T) {
	cfg, err := profile()
	if err != nil {
		t.Fatal(err)
	}

	books := resolveBooks([]string{"ruth", "narnia", "Jonah"}, cfg, false)
	if len(books) != 2 {
		t.Fatalf("got %d books, want 2", len(books))
	}
	if books[0].Name != "Ruth" || books[1].Name != "Jonah" {
		t.Errorf("books = %v", books)
	}

	// With nothing named, basic covers the whole canon and enriched the
	// pilot set
	books = resolveBooks(nil, cfg, false)
	if len(books) != 39 {
		t.Errorf("basic default = %d books, want 39", len(books))
	}
	books = resolveBooks(nil, cfg, true)
	if len(books) != 3 {
		t.Errorf("enriched default = %v, want the pilot set", books)
	}

	// A profile's book list narrows both
	cfg.Books = []string{"Genesis"}
	books = resolveBooks(nil, cfg, false)
	if len(books) != 1 || books[0].Name != "Genesis" {
		t.Errorf("profile books = %v, want [Genesis]", books)
	}
}

// A profile file that sets only directories must not narrow the basic
// profile's book set.
func TestResolveBooksWithBooklessProfile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "profile.yaml")
	if err := os.WriteFile(path, []byte("corpus_dir: /srv/bhsa\n"), 0644); err != nil {
		t.Fatal(err)
	}

	CLI.Config = path
	t.Cleanup(func() { CLI.Config = "" })

	cfg, err := profile()
	if err != nil {
		t.Fatalf("profile failed: %v", err)
	}
	if books := resolveBooks(nil, cfg, false); len(books) != 39 {
		t.Errorf("got %d books, want the whole canon", len(books))
	}
}
