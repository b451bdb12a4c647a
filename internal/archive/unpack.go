package archive

import (
	"archive/tar"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// Unpack extracts a bundle into destDir. A single leading directory
// component shared by all entries is stripped, so the .tf files land
// directly in destDir. Entries that would escape destDir are rejected.
func Unpack(bundlePath, destDir string) (int, error) {
	if err := os.MkdirAll(destDir, 0755); err != nil {
		return 0, fmt.Errorf("create destination: %w", err)
	}

	count := 0
	err := IterateBundle(bundlePath, func(header *tar.Header, r io.Reader) (bool, error) {
		name := stripRoot(header.Name)
		if name == "" {
			return false, nil
		}

		target, err := securePath(destDir, name)
		if err != nil {
			return false, err
		}

		switch header.Typeflag {
		case tar.TypeDir:
			if err := os.MkdirAll(target, 0755); err != nil {
				return false, fmt.Errorf("create directory %s: %w", name, err)
			}
		case tar.TypeReg:
			if err := os.MkdirAll(filepath.Dir(target), 0755); err != nil {
				return false, fmt.Errorf("create parent of %s: %w", name, err)
			}
			if err := writeEntry(target, r); err != nil {
				return false, fmt.Errorf("extract %s: %w", name, err)
			}
			count++
		default:
			// symlinks and special files are not part of corpus bundles
			return false, fmt.Errorf("unsupported entry type %c for %s", header.Typeflag, name)
		}
		return false, nil
	})
	return count, err
}

// stripRoot removes one leading directory component from a tar entry name.
func stripRoot(name string) string {
	name = strings.TrimPrefix(name, "./")
	if idx := strings.Index(name, "/"); idx >= 0 {
		name = name[idx+1:]
	}
	return strings.TrimSuffix(name, "/")
}

// securePath joins name under destDir, refusing names that climb out.
func securePath(destDir, name string) (string, error) {
	if filepath.IsAbs(name) {
		return "", fmt.Errorf("absolute entry path %s", name)
	}
	target := filepath.Join(destDir, name)
	rel, err := filepath.Rel(destDir, target)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("entry %s escapes destination", name)
	}
	return target, nil
}

func writeEntry(target string, r io.Reader) error {
	f, err := os.OpenFile(target, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0644)
	if err != nil {
		return err
	}
	if _, err := io.Copy(f, r); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
