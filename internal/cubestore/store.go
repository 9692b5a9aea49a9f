package cubestore

import (
	"bytes"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"sync"

	"github.com/cespare/xxhash/v2"
	"github.com/pierrec/lz4/v4"

	"github.com/adcube-dev/adcube/internal/apperr"
	"github.com/adcube-dev/adcube/internal/cube"
	"github.com/adcube-dev/adcube/internal/logging"
)

// Store is the on-disk cube family: one <name>.arrow file (LZ4-compressed
// Arrow IPC stream) plus one <name>.meta.json sidecar per cube, all in a
// single directory (spec.md §4.4, §6).
type Store struct {
	dir string

	mu     sync.RWMutex
	cached map[string]*cube.Cube
}

// New returns a Store rooted at dir. dir must already exist.
func New(dir string) *Store {
	return &Store{dir: dir, cached: make(map[string]*cube.Cube)}
}

func (s *Store) arrowPath(name string) string { return filepath.Join(s.dir, name+".arrow") }
func (s *Store) metaPath(name string) string  { return filepath.Join(s.dir, name+".meta.json") }

// Save persists c to disk along with its sidecar metadata. The sidecar
// records an xxhash64 checksum of the compressed file body, checked at
// Load time to reject silently truncated or corrupted cube files
// (spec.md §7 StoreError: "cube file missing, corrupt...").
func (s *Store) Save(c *cube.Cube, timezone string, sourceFileCount int, buildTimeUnix int64) error {
	f, err := os.Create(s.arrowPath(c.Name))
	if err != nil {
		return apperr.Wrap(apperr.Store, "create cube file for "+c.Name, err)
	}
	defer f.Close()

	sum := xxhash.New()
	lzw := lz4.NewWriter(io.MultiWriter(f, sum))
	if err := encodeCube(lzw, c); err != nil {
		lzw.Close()
		return err
	}
	if err := lzw.Close(); err != nil {
		return apperr.Wrap(apperr.Store, "flush lz4 stream for "+c.Name, err)
	}

	meta := Meta{
		Dims:            c.Dims,
		Measures:        measureNames,
		Timezone:        timezone,
		SourceFileCount: sourceFileCount,
		BuildTimeUnix:   buildTimeUnix,
		RowCount:        c.Len(),
		Checksum:        sum.Sum64(),
	}
	b, err := json.MarshalIndent(meta, "", "  ")
	if err != nil {
		return apperr.Wrap(apperr.Store, "marshal metadata for "+c.Name, err)
	}
	if err := os.WriteFile(s.metaPath(c.Name), b, 0o644); err != nil {
		return apperr.Wrap(apperr.Store, "write metadata for "+c.Name, err)
	}
	return nil
}

// LoadMeta reads just the sidecar metadata for name, without decoding
// the cube body. Used at run startup to validate the pinned timezone
// before touching any cube file (spec.md §7 StoreError).
func (s *Store) LoadMeta(name string) (Meta, error) {
	b, err := os.ReadFile(s.metaPath(name))
	if err != nil {
		return Meta{}, apperr.Wrap(apperr.Store, "read metadata for "+name, err)
	}
	var m Meta
	if err := json.Unmarshal(b, &m); err != nil {
		return Meta{}, apperr.Wrap(apperr.Store, "parse metadata for "+name, err)
	}
	return m, nil
}

// Load returns the cube named name, decoding it from disk on first
// access and caching the result; repeated loads are idempotent
// (spec.md §4.4).
func (s *Store) Load(name string) (*cube.Cube, error) {
	s.mu.RLock()
	if c, ok := s.cached[name]; ok {
		s.mu.RUnlock()
		return c, nil
	}
	s.mu.RUnlock()

	meta, err := s.LoadMeta(name)
	if err != nil {
		return nil, err
	}

	raw, err := os.ReadFile(s.arrowPath(name))
	if err != nil {
		return nil, apperr.Wrap(apperr.Store, "open cube file for "+name, err)
	}
	if got := xxhash.Sum64(raw); got != meta.Checksum {
		return nil, apperr.New(apperr.Store, "cube file for "+name+" failed checksum verification, likely corrupt")
	}

	lzr := lz4.NewReader(bytes.NewReader(raw))
	c, err := decodeCube(lzr, name, meta.Dims)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	s.cached[name] = c
	s.mu.Unlock()
	return c, nil
}

// PreloadAll materializes every cube whose on-disk size is at most
// limitMB into the in-process cache, eliminating cold-file latency from
// the query path (spec.md §4.4).
func (s *Store) PreloadAll(names []string, limitMB int) error {
	log := logging.Logger()
	limit := int64(limitMB) * 1 << 20

	for _, name := range names {
		fi, err := os.Stat(s.arrowPath(name))
		if err != nil {
			return apperr.Wrap(apperr.Store, "stat cube file for "+name, err)
		}
		if fi.Size() > limit {
			log.Debug().Str("cube", name).Int64("size_bytes", fi.Size()).Msg("skipping preload, over limit")
			continue
		}
		if _, err := s.Load(name); err != nil {
			return err
		}
	}
	return nil
}
