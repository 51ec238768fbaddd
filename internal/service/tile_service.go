// Package service provides business logic for the tile server.
package service

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/poimap/server/internal/cache"
	"github.com/poimap/server/internal/cluster"
	"github.com/poimap/server/internal/data/pointset"
	"github.com/poimap/server/internal/flight"
	"github.com/poimap/server/internal/tile"
)

// Tile kinds served by the pipeline.
const (
	KindCity = "city"
	KindPOI  = "poi"
)

// TileServiceConfig contains tile service configuration.
type TileServiceConfig struct {
	POIs    *pointset.Store
	Cities  *pointset.Store
	Store   *cache.Store
	Cache   *cache.Manager
	Flights *flight.Registry
	Log     zerolog.Logger
}

// TileService materializes tile payloads: consult the persisted cache, fall
// back to bbox filtering (and grid clustering for POI tiles), then write the
// result back. Concurrent requests for the same tile share one computation
// through the flight registry.
type TileService struct {
	pois    *pointset.Store
	cities  *pointset.Store
	disk    *cache.Store
	mem     *cache.Manager
	flights *flight.Registry
	log     zerolog.Logger
}

// NewTileService creates a new tile service.
func NewTileService(cfg TileServiceConfig) *TileService {
	return &TileService{
		pois:    cfg.POIs,
		cities:  cfg.Cities,
		disk:    cfg.Store,
		mem:     cfg.Cache,
		flights: cfg.Flights,
		log:     cfg.Log,
	}
}

// dataset returns the collection backing a tile kind. POI requests degrade to
// the city summary collection when no POI dataset loaded.
func (s *TileService) dataset(kind string) *pointset.Store {
	if kind == KindPOI && s.pois.Available() {
		return s.pois
	}
	return s.cities
}

// Fingerprint returns the version fingerprint of the dataset backing kind.
func (s *TileService) Fingerprint(kind string) pointset.Fingerprint {
	return s.dataset(kind).Fingerprint()
}

// GetTile returns the payload for one tile, computing and caching it on miss.
// If ctx ends while another caller's computation for the same tile is in
// flight, GetTile returns ctx.Err() but the computation continues and still
// populates the cache.
func (s *TileService) GetTile(ctx context.Context, kind string, addr tile.Address) (*cache.TilePayload, error) {
	key := kind + ":" + addr.String()
	path := s.disk.Path(kind, addr)

	v, sharedResult, err := s.flights.Do(ctx, key, func() (interface{}, error) {
		return s.buildTile(kind, addr, key, path)
	})
	if err != nil {
		return nil, err
	}
	p, ok := v.(*cache.TilePayload)
	if !ok {
		return nil, fmt.Errorf("unexpected tile result type %T", v)
	}
	if sharedResult {
		s.log.Debug().Str("tile", key).Msg("joined in-flight tile computation")
	}
	return p, nil
}

// buildTile runs at most once concurrently per tile key.
func (s *TileService) buildTile(kind string, addr tile.Address, key, path string) (*cache.TilePayload, error) {
	ds := s.dataset(kind)
	fp := ds.Fingerprint()

	if p := s.disk.Read(path, fp); p != nil {
		return p, nil
	}

	box := addr.Bbox()
	features := tile.FilterByBbox(ds.Features(), &box)
	if kind == KindPOI {
		features = cluster.Cluster(features, addr.Z, cluster.DefaultLimit)
	}
	if features == nil {
		features = []pointset.Feature{}
	}

	p := &cache.TilePayload{
		Kind:        kind,
		Tile:        addr,
		Bbox:        box,
		Features:    features,
		Fingerprint: fp,
		CacheMeta: cache.Meta{
			Key:         key,
			GeneratedAt: time.Now().UTC(),
		},
	}

	// A failed cache write must never fail the request.
	if err := s.disk.Write(path, p); err != nil {
		s.log.Warn().Str("tile", key).Err(err).Msg("tile cache write failed")
	}
	return p, nil
}

// QueryClusters clusters the POI collection inside box at the given zoom.
func (s *TileService) QueryClusters(box *tile.Bbox, zoom, limit int) []pointset.Feature {
	ds := s.dataset(KindPOI)
	return cluster.Cluster(tile.FilterByBbox(ds.Features(), box), zoom, limit)
}

// QueryCities returns up to limit raw city features inside box.
func (s *TileService) QueryCities(box *tile.Bbox, limit int) []pointset.Feature {
	features := tile.FilterByBbox(s.cities.Features(), box)
	if limit > 0 && len(features) > limit {
		features = features[:limit]
	}
	if features == nil {
		features = []pointset.Feature{}
	}
	return features
}

// CachedResponse retrieves an encoded response from the in-memory front.
func (s *TileService) CachedResponse(key string) ([]byte, bool) {
	return s.mem.GetPayload(key)
}

// StoreResponse caches an encoded response in the in-memory front.
func (s *TileService) StoreResponse(key string, data []byte) {
	if err := s.mem.SetPayload(key, data); err != nil {
		s.log.Debug().Str("key", key).Err(err).Msg("payload cache store failed")
	}
}

// CachedQuery retrieves an encoded query result from cache.
func (s *TileService) CachedQuery(key string) ([]byte, bool) {
	return s.mem.GetQuery(key)
}

// StoreQuery caches an encoded query result.
func (s *TileService) StoreQuery(key string, data []byte) {
	s.mem.SetQuery(key, data)
}

// DatasetInfo describes one loaded dataset for the metadata endpoint.
type DatasetInfo struct {
	Name        string               `json:"name"`
	Available   bool                 `json:"available"`
	Fingerprint pointset.Fingerprint `json:"fingerprint"`
}

// Metadata returns fingerprints for the loaded datasets.
func (s *TileService) Metadata() []DatasetInfo {
	return []DatasetInfo{
		{Name: s.pois.Name(), Available: s.pois.Available(), Fingerprint: s.pois.Fingerprint()},
		{Name: s.cities.Name(), Available: s.cities.Available(), Fingerprint: s.cities.Fingerprint()},
	}
}

// Stats returns in-memory cache statistics.
func (s *TileService) Stats() map[string]interface{} {
	return s.mem.Stats()
}
