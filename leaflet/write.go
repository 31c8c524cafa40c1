package leaflet

import (
	"os"
	"path/filepath"

	"go.uber.org/multierr"
)

// writeFileAtomic writes data to a temporary file next to path and renames it
// over path, so readers never observe a half-written map.
func writeFileAtomic(path string, data []byte) error {
	dir, name := filepath.Split(path)
	if dir == "" {
		dir = "."
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, "."+name+".tmp-*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		return multierr.Combine(err, tmp.Close(), os.Remove(tmpName))
	}
	if err := tmp.Sync(); err != nil {
		return multierr.Combine(err, tmp.Close(), os.Remove(tmpName))
	}
	if err := tmp.Close(); err != nil {
		return multierr.Append(err, os.Remove(tmpName))
	}
	// CreateTemp uses 0600; the map is meant to be opened by a browser.
	if err := os.Chmod(tmpName, 0644); err != nil {
		return multierr.Append(err, os.Remove(tmpName))
	}
	if err := os.Rename(tmpName, path); err != nil {
		return multierr.Append(err, os.Remove(tmpName))
	}
	return nil
}
