// Package manifest records and verifies the integrity of a corpus
// directory. Each .tf file is hashed with SHA-256 and BLAKE3 and the
// digests are stored in a JSON manifest next to the corpus.
package manifest

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/zeebo/blake3"

	"github.com/meaningmap/bhsa-extract/core/errors"
)

// FileName is the manifest's file name inside a corpus directory.
const FileName = "manifest.json"

// Entry holds the digests of one corpus file.
type Entry struct {
	Name   string `json:"name"`
	Size   int64  `json:"size"`
	SHA256 string `json:"sha256"`
	BLAKE3 string `json:"blake3"`
}

// Manifest describes the integrity state of a corpus directory.
type Manifest struct {
	GeneratedAt time.Time `json:"generated_at"`
	Files       []Entry   `json:"files"`
}

// Build hashes every .tf file in dir and returns the manifest. Files are
// listed in name order so repeated builds of an unchanged corpus produce
// identical manifests apart from the timestamp.
func Build(dir string) (*Manifest, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, errors.NewIO("read", dir, err)
	}

	m := &Manifest{GeneratedAt: time.Now().UTC(), Files: []Entry{}}
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".tf") {
			continue
		}
		entry, err := hashFile(filepath.Join(dir, e.Name()))
		if err != nil {
			return nil, err
		}
		m.Files = append(m.Files, entry)
	}
	sort.Slice(m.Files, func(i, j int) bool { return m.Files[i].Name < m.Files[j].Name })
	return m, nil
}

func hashFile(path string) (Entry, error) {
	f, err := os.Open(path)
	if err != nil {
		return Entry{}, errors.NewIO("open", path, err)
	}
	defer f.Close()

	sh := sha256.New()
	bh := blake3.New()
	size, err := io.Copy(io.MultiWriter(sh, bh), f)
	if err != nil {
		return Entry{}, errors.NewIO("read", path, err)
	}

	return Entry{
		Name:   filepath.Base(path),
		Size:   size,
		SHA256: hex.EncodeToString(sh.Sum(nil)),
		BLAKE3: hex.EncodeToString(bh.Sum(nil)),
	}, nil
}

// Write builds the manifest for dir and writes it as manifest.json.
func Write(dir string) (*Manifest, error) {
	m, err := Build(dir)
	if err != nil {
		return nil, err
	}
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return nil, errors.Wrap(err, "failed to marshal manifest")
	}
	path := filepath.Join(dir, FileName)
	if err := os.WriteFile(path, append(data, '\n'), 0644); err != nil {
		return nil, errors.NewIO("write", path, err)
	}
	return m, nil
}

// Read loads the manifest from a corpus directory.
func Read(dir string) (*Manifest, error) {
	path := filepath.Join(dir, FileName)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.NewNotFound("manifest", path)
		}
		return nil, errors.NewIO("read", path, err)
	}
	m := &Manifest{}
	if err := json.Unmarshal(data, m); err != nil {
		return nil, errors.NewParse("json", path, err.Error())
	}
	return m, nil
}

// Problem describes one verification failure.
type Problem struct {
	Name   string
	Reason string
}

func (p Problem) String() string { return fmt.Sprintf("%s: %s", p.Name, p.Reason) }

// Verify re-hashes dir and compares against its stored manifest. It
// returns the list of mismatches; an empty list means the corpus is
// intact. Files present on disk but absent from the manifest are
// reported as well.
func Verify(dir string) ([]Problem, error) {
	stored, err := Read(dir)
	if err != nil {
		return nil, err
	}
	current, err := Build(dir)
	if err != nil {
		return nil, err
	}

	known := make(map[string]Entry, len(stored.Files))
	for _, e := range stored.Files {
		known[e.Name] = e
	}

	var problems []Problem
	seen := make(map[string]bool, len(current.Files))
	for _, e := range current.Files {
		seen[e.Name] = true
		want, ok := known[e.Name]
		if !ok {
			problems = append(problems, Problem{e.Name, "not in manifest"})
			continue
		}
		switch {
		case e.Size != want.Size:
			problems = append(problems, Problem{e.Name, fmt.Sprintf("size %d, manifest says %d", e.Size, want.Size)})
		case e.SHA256 != want.SHA256:
			problems = append(problems, Problem{e.Name, "sha256 mismatch"})
		case e.BLAKE3 != want.BLAKE3:
			problems = append(problems, Problem{e.Name, "blake3 mismatch"})
		}
	}
	for _, e := range stored.Files {
		if !seen[e.Name] {
			problems = append(problems, Problem{e.Name, "missing from corpus"})
		}
	}
	sort.Slice(problems, func(i, j int) bool { return problems[i].Name < problems[j].Name })
	return problems, nil
}
