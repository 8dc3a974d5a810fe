/*
DESCRIPTION
  cache.go implements the persistent, content-addressed store of per-file
  derived statistics. One gob file per frame id lives under the cache
  directory; puts write a temporary file and rename it into place.
  Corrupt, unreadable or version-mismatched entries read as misses, and no
  cache error ever stops the engine.

AUTHORS
  Saxon A. Nelson-Milton <saxon@ausocean.org>
  Trek Hopton <trek@ausocean.org>

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

package integrate

import (
	"encoding/gob"
	"encoding/hex"
	"os"
	"path/filepath"
	"sync"
)

// FrameID is the 128-bit content hash keying cached frame statistics.
type FrameID [16]byte

// String returns the id as lowercase hex.
func (id FrameID) String() string { return hex.EncodeToString(id[:]) }

// cacheVersion is bumped whenever the FrameStats layout changes; entries
// with any other version read as misses.
const cacheVersion = 1

// FrameStats is the cached derived state of one input frame.
type FrameStats struct {
	Version  int
	Width    int
	Height   int
	Channels int

	Location  []float64
	Mean      []float64
	ScaleLow  []float64
	ScaleHigh []float64
	Noise     []float64

	// Opaque PSF-derived weights, externally supplied.
	PSFSignal   []float64
	PSFSNR      []float64
	PSFScaleSNR []float64

	// Adaptive normalization grids, GridSize x GridSize per channel,
	// row-major. Nil when never computed.
	GridSize          int
	AdaptiveLocation  [][]float64
	AdaptiveScaleLow  [][]float64
	AdaptiveScaleHigh [][]float64
}

// Cache is the on-disk statistics store. A nil *Cache is valid and acts as
// a permanently empty cache.
type Cache struct {
	dir string

	mu    sync.Mutex
	locks map[FrameID]*sync.Mutex
}

// NewCache returns a cache rooted at dir, creating it if needed. A nil
// cache and an error are returned when the directory cannot be created;
// callers are expected to log and continue without caching.
func NewCache(dir string) (*Cache, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	return &Cache{dir: dir, locks: make(map[FrameID]*sync.Mutex)}, nil
}

func (c *Cache) path(id FrameID) string {
	return filepath.Join(c.dir, id.String()+".stats")
}

// keyLock returns the per-key mutex, creating it on first use. Writes to
// one key are serialized; distinct keys do not contend.
func (c *Cache) keyLock(id FrameID) *sync.Mutex {
	c.mu.Lock()
	defer c.mu.Unlock()
	l, ok := c.locks[id]
	if !ok {
		l = &sync.Mutex{}
		c.locks[id] = l
	}
	return l
}

// Get returns the stored statistics for id, or ok=false on any miss or
// error.
func (c *Cache) Get(id FrameID) (*FrameStats, bool) {
	if c == nil {
		return nil, false
	}
	f, err := os.Open(c.path(id))
	if err != nil {
		return nil, false
	}
	defer f.Close()
	var st FrameStats
	if err := gob.NewDecoder(f).Decode(&st); err != nil {
		return nil, false
	}
	if st.Version != cacheVersion {
		return nil, false
	}
	return &st, true
}

// Put stores st under id. The write is atomic: a temporary file is
// renamed over any existing entry. Errors are returned for logging only;
// the engine proceeds regardless.
func (c *Cache) Put(id FrameID, st *FrameStats) error {
	if c == nil {
		return nil
	}
	l := c.keyLock(id)
	l.Lock()
	defer l.Unlock()

	st.Version = cacheVersion
	tmp, err := os.CreateTemp(c.dir, id.String()+".*.tmp")
	if err != nil {
		return err
	}
	if err := gob.NewEncoder(tmp).Encode(st); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	if err := os.Rename(tmp.Name(), c.path(id)); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	return nil
}

// Clear removes every entry of the cache directory.
func (c *Cache) Clear() error {
	if c == nil {
		return nil
	}
	entries, err := os.ReadDir(c.dir)
	if err != nil {
		return err
	}
	for _, e := range entries {
		if filepath.Ext(e.Name()) != ".stats" {
			continue
		}
		if err := os.Remove(filepath.Join(c.dir, e.Name())); err != nil {
			return err
		}
	}
	return nil
}
