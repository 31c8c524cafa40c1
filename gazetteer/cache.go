package gazetteer

import (
	"compress/bzip2"
	"encoding/gob"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/klauspost/compress/zstd"
	"go.uber.org/multierr"
)

// cacheFile is the gob dump of a parsed dataset inside the cache directory.
// It is written zstd-compressed (cacheFile + ".zst"). A bzip2 copy made by
// hand (cacheFile + ".bz2") takes precedence, then the zstd dump, then a
// plain dump.
const cacheFile = "gazetteer.gob"

// loadCache decodes the cached dataset from dir.
func loadCache(dir string) (*dataset, error) {
	r, closeFn, err := openCache(filepath.Join(dir, cacheFile))
	if err != nil {
		return nil, err
	}
	defer closeFn()

	ds := &dataset{}
	if err := gob.NewDecoder(r).Decode(ds); err != nil {
		return nil, fmt.Errorf("decoding cache: %w", err)
	}
	if len(ds.Cities) == 0 {
		return nil, fmt.Errorf("cache %s holds no cities", dir)
	}
	return ds, nil
}

func openCache(path string) (io.Reader, func() error, error) {
	if fh, err := os.Open(path + ".bz2"); err == nil {
		return bzip2.NewReader(fh), fh.Close, nil
	}
	if fh, err := os.Open(path + ".zst"); err == nil {
		dec, err := zstd.NewReader(fh)
		if err != nil {
			return nil, nil, multierr.Append(fmt.Errorf("opening zstd cache: %w", err), fh.Close())
		}
		return dec, func() error {
			dec.Close()
			return fh.Close()
		}, nil
	}
	fh, err := os.Open(path)
	if err != nil {
		return nil, nil, fmt.Errorf("opening cache: %w", err)
	}
	return fh, fh.Close, nil
}

// storeCache writes ds to dir, replacing any previous dump.
func storeCache(dir string, ds *dataset) (err error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("creating cache directory: %w", err)
	}

	path := filepath.Join(dir, cacheFile)
	tmp := path + ".zst.tmp"
	fh, err := os.Create(tmp)
	if err != nil {
		return fmt.Errorf("writing cache: %w", err)
	}
	defer func() {
		if err != nil {
			os.Remove(tmp)
		}
	}()

	enc, err := zstd.NewWriter(fh)
	if err != nil {
		return multierr.Append(fmt.Errorf("writing cache: %w", err), fh.Close())
	}
	if err := gob.NewEncoder(enc).Encode(ds); err != nil {
		return multierr.Combine(fmt.Errorf("encoding cache: %w", err), enc.Close(), fh.Close())
	}
	if err := multierr.Append(enc.Close(), fh.Close()); err != nil {
		return fmt.Errorf("writing cache: %w", err)
	}
	if err := os.Rename(tmp, path+".zst"); err != nil {
		return fmt.Errorf("writing cache: %w", err)
	}

	// Older dumps would shadow or duplicate the fresh one.
	for _, stale := range []string{path + ".bz2", path} {
		if err := os.Remove(stale); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("removing stale cache %s: %w", stale, err)
		}
	}
	return nil
}
