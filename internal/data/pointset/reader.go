// Package pointset loads point-feature datasets from GeoJSON or NDJSON sources.
package pointset

import (
	"bufio"
	"bytes"
	"math"
	"os"

	json "github.com/goccy/go-json"
	"github.com/rs/zerolog"
)

// Kind identifies the storage format a dataset was loaded from.
type Kind string

const (
	// KindDocument is a single GeoJSON document with a "features" array.
	KindDocument Kind = "single-document"
	// KindLineDelimited is newline-delimited JSON, one feature per line.
	KindLineDelimited Kind = "line-delimited"
)

// Geometry is a GeoJSON geometry object. Only Point geometries are retained.
type Geometry struct {
	Type        string    `json:"type"`
	Coordinates []float64 `json:"coordinates"`
}

// Feature is a GeoJSON point feature. Immutable once loaded.
type Feature struct {
	Type       string         `json:"type"`
	Geometry   Geometry       `json:"geometry"`
	Properties map[string]any `json:"properties"`
}

// Lon returns the feature's longitude.
func (f Feature) Lon() float64 { return f.Geometry.Coordinates[0] }

// Lat returns the feature's latitude.
func (f Feature) Lat() float64 { return f.Geometry.Coordinates[1] }

// validPoint reports whether the feature is a well-formed point:
// Point geometry with exactly two finite coordinates.
func (f Feature) validPoint() bool {
	if f.Geometry.Type != "Point" || len(f.Geometry.Coordinates) != 2 {
		return false
	}
	for _, c := range f.Geometry.Coordinates {
		if math.IsNaN(c) || math.IsInf(c, 0) {
			return false
		}
	}
	return true
}

// Fingerprint is a cheap-to-compare identity proxy for a loaded dataset.
// Two fingerprints identify the same dataset version when Path and
// LastModified are equal.
type Fingerprint struct {
	Path         string `json:"relative_path"`
	Kind         Kind   `json:"storage_kind"`
	LastModified int64  `json:"last_modified"`
	Count        int    `json:"feature_count"`
}

// Matches reports whether other identifies the same dataset version.
func (fp Fingerprint) Matches(other Fingerprint) bool {
	return fp.Path == other.Path && fp.LastModified == other.LastModified
}

// Candidate is one storage location a dataset may be loaded from.
type Candidate struct {
	Path string
	Kind Kind
}

// Store holds an immutable feature collection loaded once per process.
// Downstream components share the collection read-only.
type Store struct {
	name      string
	features  []Feature
	fp        Fingerprint
	available bool
}

// Load reads the dataset from the first candidate that exists and parses.
// Candidates that are missing or unparseable are skipped; records that are not
// well-formed point features are dropped. If no candidate loads, the store
// reports unavailable rather than failing.
func Load(name string, candidates []Candidate, log zerolog.Logger) *Store {
	for _, c := range candidates {
		if c.Path == "" {
			continue
		}
		info, err := os.Stat(c.Path)
		if err != nil || info.IsDir() {
			continue
		}

		features, dropped, err := readCandidate(c)
		if err != nil {
			log.Warn().Str("dataset", name).Str("path", c.Path).Err(err).
				Msg("skipping unparseable dataset candidate")
			continue
		}

		log.Info().Str("dataset", name).Str("path", c.Path).Str("kind", string(c.Kind)).
			Int("features", len(features)).Int("dropped", dropped).
			Msg("dataset loaded")

		return &Store{
			name:     name,
			features: features,
			fp: Fingerprint{
				Path:         c.Path,
				Kind:         c.Kind,
				LastModified: info.ModTime().Unix(),
				Count:        len(features),
			},
			available: true,
		}
	}

	log.Warn().Str("dataset", name).Msg("no parseable dataset found")
	return &Store{name: name}
}

func readCandidate(c Candidate) ([]Feature, int, error) {
	raw, err := os.ReadFile(c.Path)
	if err != nil {
		return nil, 0, err
	}
	if c.Kind == KindLineDelimited {
		return decodeLines(raw)
	}
	return decodeDocument(raw)
}

func decodeDocument(raw []byte) ([]Feature, int, error) {
	var doc struct {
		Features []json.RawMessage `json:"features"`
	}
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, 0, err
	}

	features := make([]Feature, 0, len(doc.Features))
	dropped := 0
	for _, rec := range doc.Features {
		var f Feature
		if err := json.Unmarshal(rec, &f); err != nil || !f.validPoint() {
			dropped++
			continue
		}
		features = append(features, f)
	}
	return features, dropped, nil
}

func decodeLines(raw []byte) ([]Feature, int, error) {
	scanner := bufio.NewScanner(bytes.NewReader(raw))
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)

	var features []Feature
	dropped := 0
	for scanner.Scan() {
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}
		var f Feature
		if err := json.Unmarshal(line, &f); err != nil || !f.validPoint() {
			dropped++
			continue
		}
		features = append(features, f)
	}
	if err := scanner.Err(); err != nil {
		return nil, 0, err
	}
	return features, dropped, nil
}

// Name returns the dataset's logical name.
func (s *Store) Name() string { return s.name }

// Available reports whether a dataset was loaded.
func (s *Store) Available() bool { return s.available }

// Features returns the loaded collection. Callers must not mutate it.
func (s *Store) Features() []Feature { return s.features }

// Fingerprint returns the version fingerprint of the loaded dataset.
func (s *Store) Fingerprint() Fingerprint { return s.fp }
