package api

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	json "github.com/goccy/go-json"

	"github.com/poimap/server/internal/cluster"
	"github.com/poimap/server/internal/service"
	"github.com/poimap/server/internal/tile"
)

const (
	defaultZoom      = 8
	defaultPOILimit  = 500
	defaultCityLimit = 1000
)

// tileHandler serves one tile kind through the materialization pipeline.
func tileHandler(svc *service.TileService, kind string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		addr, err := tile.ParseAddress(chi.URLParam(r, "z"), chi.URLParam(r, "x"), chi.URLParam(r, "y"))
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}

		guard := NewGuard(r)
		etag := ETagFor(kind, svc.Fingerprint(kind), addr)

		if etagMatches(r.Header.Get("If-None-Match"), etag) {
			writeCacheHeaders(w, etag)
			w.WriteHeader(http.StatusNotModified)
			return
		}
		if guard.Cancelled() {
			writeCancelled(w)
			return
		}

		// The ETag keys the in-memory front: it already encodes kind, tile,
		// and dataset version.
		if data, ok := svc.CachedResponse(etag); ok {
			writeJSONBytes(w, etag, data)
			return
		}

		payload, err := svc.GetTile(r.Context(), kind, addr)
		if err != nil {
			if r.Context().Err() != nil {
				writeCancelled(w)
				return
			}
			http.Error(w, "failed to build tile: "+err.Error(), http.StatusInternalServerError)
			return
		}

		// Re-check before spending serialization and write cost on a client
		// that already went away.
		if guard.Cancelled() {
			writeCancelled(w)
			return
		}

		data, err := json.Marshal(payload)
		if err != nil {
			http.Error(w, "failed to encode tile: "+err.Error(), http.StatusInternalServerError)
			return
		}
		writeJSONBytes(w, etag, data)

		// Later requests served from the front are cache hits by definition.
		// The payload is shared with concurrent joiners, so re-encode a copy
		// instead of mutating it.
		if !payload.CacheMeta.Hit {
			front := *payload
			front.CacheMeta.Hit = true
			if hitData, err := json.Marshal(&front); err == nil {
				data = hitData
			}
		}
		svc.StoreResponse(etag, data)
	}
}

func writeJSONBytes(w http.ResponseWriter, etag string, data []byte) {
	w.Header().Set("Content-Type", "application/json")
	writeCacheHeaders(w, etag)
	w.Write(data)
}

// poisHandler serves clustered POIs for an arbitrary bbox.
func poisHandler(svc *service.TileService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		box, ok := parseBboxParam(w, r)
		if !ok {
			return
		}
		zoom := parseZoom(r.URL.Query().Get("zoom"))
		limit := cluster.ClampLimit(parseInt(r.URL.Query().Get("limit")), defaultPOILimit)

		bboxKey := ""
		if box != nil {
			bboxKey = box.String()
		}
		cacheKey := fmt.Sprintf("pois:%s:z%d:l%d", bboxKey, zoom, limit)
		if data, ok := svc.CachedQuery(cacheKey); ok {
			w.Header().Set("Content-Type", "application/json")
			w.Write(data)
			return
		}

		clusters := svc.QueryClusters(box, zoom, limit)
		data, err := json.Marshal(map[string]interface{}{
			"type":     "FeatureCollection",
			"zoom":     zoom,
			"count":    len(clusters),
			"features": clusters,
		})
		if err != nil {
			http.Error(w, "failed to encode clusters: "+err.Error(), http.StatusInternalServerError)
			return
		}
		svc.StoreQuery(cacheKey, data)

		w.Header().Set("Content-Type", "application/json")
		w.Write(data)
	}
}

// citiesHandler serves raw city features for an arbitrary bbox.
func citiesHandler(svc *service.TileService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		box, ok := parseBboxParam(w, r)
		if !ok {
			return
		}
		limit := cluster.ClampLimit(parseInt(r.URL.Query().Get("limit")), defaultCityLimit)

		bboxKey := ""
		if box != nil {
			bboxKey = box.String()
		}
		cacheKey := fmt.Sprintf("cities:%s:l%d", bboxKey, limit)
		if data, ok := svc.CachedQuery(cacheKey); ok {
			w.Header().Set("Content-Type", "application/json")
			w.Write(data)
			return
		}

		features := svc.QueryCities(box, limit)
		data, err := json.Marshal(map[string]interface{}{
			"type":     "FeatureCollection",
			"count":    len(features),
			"features": features,
		})
		if err != nil {
			http.Error(w, "failed to encode cities: "+err.Error(), http.StatusInternalServerError)
			return
		}
		svc.StoreQuery(cacheKey, data)

		w.Header().Set("Content-Type", "application/json")
		w.Write(data)
	}
}

func metadataHandler(svc *service.TileService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]interface{}{
			"datasets": svc.Metadata(),
		})
	}
}

func statsHandler(svc *service.TileService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(svc.Stats())
	}
}

// parseBboxParam parses an optional bbox query parameter, writing a 400 and
// returning ok=false when it is present but malformed.
func parseBboxParam(w http.ResponseWriter, r *http.Request) (*tile.Bbox, bool) {
	raw := strings.TrimSpace(r.URL.Query().Get("bbox"))
	if raw == "" {
		return nil, true
	}
	box, err := tile.ParseBbox(raw)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return nil, false
	}
	return &box, true
}

func parseZoom(raw string) int {
	zoom := defaultZoom
	if raw != "" {
		if v, err := strconv.Atoi(raw); err == nil {
			zoom = v
		}
	}
	if zoom < 0 {
		zoom = 0
	}
	if zoom > tile.MaxZoom {
		zoom = tile.MaxZoom
	}
	return zoom
}

func parseInt(raw string) int {
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0
	}
	return v
}
