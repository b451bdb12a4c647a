// Package export writes extracted book records to their output formats.
package export

import (
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/meaningmap/bhsa-extract/core/errors"
)

// JSONWriter writes per-book JSON files into an output directory.
type JSONWriter struct {
	dir    string
	indent string
}

// NewJSONWriter creates a writer for the given output directory, creating
// it if necessary.
func NewJSONWriter(dir string) (*JSONWriter, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, errors.NewIO("mkdir", dir, err)
	}
	return &JSONWriter{dir: dir, indent: "  "}, nil
}

// Dir returns the output directory.
func (w *JSONWriter) Dir() string { return w.dir }

// Path returns the file path a book record will be written to.
func (w *JSONWriter) Path(slug string) string {
	return filepath.Join(w.dir, slug+".json")
}

// WriteBook marshals one book record to <slug>.json. The file is written
// to a temp file first and renamed into place so a crash never leaves a
// truncated book on disk.
func (w *JSONWriter) WriteBook(slug string, record any) (string, error) {
	path := w.Path(slug)

	tmp, err := os.CreateTemp(w.dir, slug+".*.tmp")
	if err != nil {
		return "", errors.NewIO("create", w.dir, err)
	}
	tmpName := tmp.Name()

	enc := json.NewEncoder(tmp)
	enc.SetIndent("", w.indent)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(record); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return "", errors.Wrapf(err, "failed to encode %s", slug)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return "", errors.NewIO("write", path, err)
	}

	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return "", errors.NewIO("rename", path, err)
	}
	return path, nil
}
