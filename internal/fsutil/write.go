package fsutil

import (
	"fmt"
	"os"
	"path/filepath"
)

// Recreate removes dir and everything below it, then creates it empty.
func Recreate(dir string) error {
	if err := os.RemoveAll(dir); err != nil {
		return fmt.Errorf("removing %s: %w", dir, err)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating %s: %w", dir, err)
	}
	return nil
}

// WriteFile writes data to the slash separated rel path under root,
// creating parent directories as needed. It returns the written file path.
func WriteFile(root, rel string, data []byte) (string, error) {
	dst := filepath.Join(root, filepath.FromSlash(rel))
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return dst, err
	}
	return dst, os.WriteFile(dst, data, 0o644)
}
