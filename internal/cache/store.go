// Package cache provides the persisted per-tile store and in-memory caches.
package cache

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	json "github.com/goccy/go-json"
	"github.com/klauspost/compress/zstd"
	"github.com/rs/zerolog"

	"github.com/poimap/server/internal/data/pointset"
	"github.com/poimap/server/internal/tile"
)

// Meta carries cache bookkeeping inside a payload. Hit is informational only:
// true when the payload came from a cache read, false on a fresh write.
type Meta struct {
	Key         string    `json:"key"`
	GeneratedAt time.Time `json:"generated_at"`
	Hit         bool      `json:"hit"`
}

// TilePayload is the persisted and served record for one tile. It is valid
// only while its fingerprint equals the loader's current fingerprint.
type TilePayload struct {
	Kind        string               `json:"kind"`
	Tile        tile.Address         `json:"tile"`
	Bbox        tile.Bbox            `json:"bbox"`
	Features    []pointset.Feature   `json:"features"`
	Fingerprint pointset.Fingerprint `json:"dataset_fingerprint"`
	CacheMeta   Meta                 `json:"cache_meta"`
}

// Store persists tile payloads on disk, one zstd-compressed JSON record per
// tile address. Reads are validated against the current dataset fingerprint;
// anything malformed or stale reads as a plain miss.
type Store struct {
	root string
	enc  *zstd.Encoder
	dec  *zstd.Decoder
	log  zerolog.Logger
}

// NewStore creates a tile store rooted at dir.
func NewStore(dir string, log zerolog.Logger) (*Store, error) {
	enc, err := zstd.NewWriter(nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create zstd encoder: %w", err)
	}
	dec, err := zstd.NewReader(nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create zstd decoder: %w", err)
	}
	return &Store{root: dir, enc: enc, dec: dec, log: log}, nil
}

// Path returns the deterministic storage location for a tile.
func (s *Store) Path(kind string, addr tile.Address) string {
	return filepath.Join(s.root, "tiles", kind,
		strconv.Itoa(addr.Z), strconv.Itoa(addr.X), strconv.Itoa(addr.Y)+".json.zst")
}

// Read returns the persisted payload at path, or nil if it is absent,
// malformed, or was written under a different dataset fingerprint. The cache
// is never a source of errors; every failure mode is a miss.
func (s *Store) Read(path string, fp pointset.Fingerprint) *TilePayload {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil
	}

	buf, err := s.dec.DecodeAll(raw, nil)
	if err != nil {
		s.log.Debug().Str("path", path).Err(err).Msg("discarding corrupt tile record")
		return nil
	}

	var p TilePayload
	if err := json.Unmarshal(buf, &p); err != nil {
		s.log.Debug().Str("path", path).Err(err).Msg("discarding malformed tile record")
		return nil
	}
	if p.Kind == "" || p.CacheMeta.Key == "" {
		return nil
	}
	if !p.Fingerprint.Matches(fp) {
		return nil
	}

	p.CacheMeta.Hit = true
	return &p
}

// Write persists the payload at path with Hit forced false, creating
// intermediate directories. Last writer wins; the single-flight registry
// guarantees at most one concurrent writer per tile key.
func (s *Store) Write(path string, p *TilePayload) error {
	p.CacheMeta.Hit = false

	buf, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("failed to encode tile record: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create tile directory: %w", err)
	}
	if err := os.WriteFile(path, s.enc.EncodeAll(buf, nil), 0o644); err != nil {
		return fmt.Errorf("failed to write tile record: %w", err)
	}
	return nil
}
