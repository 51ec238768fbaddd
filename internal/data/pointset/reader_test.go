package pointset

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("failed to write %s: %v", name, err)
	}
	return path
}

const validDocument = `{
	"type": "FeatureCollection",
	"features": [
		{"type":"Feature","geometry":{"type":"Point","coordinates":[100.5,13.75]},"properties":{"category":"retail"}},
		{"type":"Feature","geometry":{"type":"Point","coordinates":[101.6,14.9]},"properties":{"category":"food"}}
	]
}`

func TestLoadDocument(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "pois.geojson", validDocument)

	s := Load("pois", []Candidate{{Path: path, Kind: KindDocument}}, zerolog.Nop())
	if !s.Available() {
		t.Fatal("expected dataset available")
	}
	if len(s.Features()) != 2 {
		t.Fatalf("expected 2 features, got %d", len(s.Features()))
	}

	fp := s.Fingerprint()
	if fp.Path != path || fp.Kind != KindDocument || fp.Count != 2 {
		t.Fatalf("unexpected fingerprint: %+v", fp)
	}
	if fp.LastModified == 0 {
		t.Fatal("expected non-zero last-modified timestamp")
	}
}

func TestLoadLineDelimited(t *testing.T) {
	dir := t.TempDir()
	ndjson := `{"type":"Feature","geometry":{"type":"Point","coordinates":[100.5,13.75]},"properties":{}}
{"type":"Feature","geometry":{"type":"Point","coordinates":[101.6,14.9]},"properties":{}}

{"type":"Feature","geometry":{"type":"Point","coordinates":[102.0,15.0]},"properties":{}}
`
	path := writeFile(t, dir, "pois.ndjson", ndjson)

	s := Load("pois", []Candidate{{Path: path, Kind: KindLineDelimited}}, zerolog.Nop())
	if !s.Available() {
		t.Fatal("expected dataset available")
	}
	if len(s.Features()) != 3 {
		t.Fatalf("expected 3 features, got %d", len(s.Features()))
	}
	if s.Fingerprint().Kind != KindLineDelimited {
		t.Fatalf("unexpected kind: %s", s.Fingerprint().Kind)
	}
}

func TestLoadDropsMalformedRecords(t *testing.T) {
	dir := t.TempDir()
	ndjson := `{"type":"Feature","geometry":{"type":"Point","coordinates":[100.5,13.75]},"properties":{}}
not json at all
{"type":"Feature","geometry":{"type":"LineString","coordinates":[1,2]},"properties":{}}
{"type":"Feature","geometry":{"type":"Point","coordinates":[1]},"properties":{}}
{"type":"Feature","geometry":{"type":"Point","coordinates":[101.6,14.9]},"properties":{}}
`
	path := writeFile(t, dir, "pois.ndjson", ndjson)

	s := Load("pois", []Candidate{{Path: path, Kind: KindLineDelimited}}, zerolog.Nop())
	if len(s.Features()) != 2 {
		t.Fatalf("expected malformed records dropped, got %d features", len(s.Features()))
	}
	if s.Fingerprint().Count != 2 {
		t.Fatalf("expected fingerprint count 2, got %d", s.Fingerprint().Count)
	}
}

func TestLoadCandidatePriority(t *testing.T) {
	dir := t.TempDir()
	ndjsonPath := writeFile(t, dir, "pois.ndjson",
		`{"type":"Feature","geometry":{"type":"Point","coordinates":[1,2]},"properties":{}}`+"\n")
	docPath := writeFile(t, dir, "pois.geojson", validDocument)

	s := Load("pois", []Candidate{
		{Path: ndjsonPath, Kind: KindLineDelimited},
		{Path: docPath, Kind: KindDocument},
	}, zerolog.Nop())
	if s.Fingerprint().Path != ndjsonPath {
		t.Fatalf("expected first candidate to win, got %s", s.Fingerprint().Path)
	}
}

func TestLoadSkipsUnparseableCandidate(t *testing.T) {
	dir := t.TempDir()
	brokenPath := writeFile(t, dir, "broken.geojson", `{"features": "nope"`)
	docPath := writeFile(t, dir, "pois.geojson", validDocument)

	s := Load("pois", []Candidate{
		{Path: brokenPath, Kind: KindDocument},
		{Path: docPath, Kind: KindDocument},
	}, zerolog.Nop())
	if !s.Available() {
		t.Fatal("expected fallback to parseable candidate")
	}
	if s.Fingerprint().Path != docPath {
		t.Fatalf("expected fallback path, got %s", s.Fingerprint().Path)
	}
}

func TestLoadNoCandidates(t *testing.T) {
	s := Load("pois", []Candidate{
		{Path: filepath.Join(t.TempDir(), "missing.geojson"), Kind: KindDocument},
		{Path: "", Kind: KindLineDelimited},
	}, zerolog.Nop())
	if s.Available() {
		t.Fatal("expected dataset unavailable")
	}
	if len(s.Features()) != 0 {
		t.Fatalf("expected empty collection, got %d", len(s.Features()))
	}
}

func TestFingerprintMatches(t *testing.T) {
	a := Fingerprint{Path: "p", Kind: KindDocument, LastModified: 100, Count: 5}
	b := a

	if !a.Matches(b) {
		t.Fatal("expected identical fingerprints to match")
	}

	b.LastModified = 101
	if a.Matches(b) {
		t.Fatal("expected changed timestamp to break the match")
	}

	b = a
	b.Path = "other"
	if a.Matches(b) {
		t.Fatal("expected changed path to break the match")
	}
}
