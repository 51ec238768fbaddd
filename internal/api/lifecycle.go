package api

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/poimap/server/internal/data/pointset"
	"github.com/poimap/server/internal/tile"
)

// Guard tracks client-disconnect state for one request. Construct exactly one
// per request; Cancelled is idempotent and cheap to re-check before expensive
// work.
type Guard struct {
	done <-chan struct{}
}

// NewGuard attaches to the request's cancellation signal.
func NewGuard(r *http.Request) *Guard {
	return &Guard{done: r.Context().Done()}
}

// Cancelled reports whether the client has gone away.
func (g *Guard) Cancelled() bool {
	select {
	case <-g.done:
		return true
	default:
		return false
	}
}

var etagSanitizer = strings.NewReplacer("/", "-", "\\", "-", "\"", "-", " ", "-")

// ETagFor builds the weak entity tag for a tile against a dataset version.
// Byte-identical for the same tile and dataset version; any dataset change
// changes the tag.
func ETagFor(kind string, fp pointset.Fingerprint, addr tile.Address) string {
	return fmt.Sprintf("W/\"%s-%s-%d-%d-%d/%d/%d\"",
		kind, etagSanitizer.Replace(fp.Path), fp.LastModified, fp.Count,
		addr.Z, addr.X, addr.Y)
}

// etagMatches reports whether an If-None-Match header value matches etag.
// A "*" member matches any entity.
func etagMatches(header, etag string) bool {
	if header == "" {
		return false
	}
	for _, part := range strings.Split(header, ",") {
		part = strings.TrimSpace(part)
		if part == "*" || part == etag {
			return true
		}
	}
	return false
}

// writeCacheHeaders sets the cache headers shared by 200 and 304 responses.
func writeCacheHeaders(w http.ResponseWriter, etag string) {
	w.Header().Set("Cache-Control", "public, max-age=0, must-revalidate")
	w.Header().Set("ETag", etag)
	w.Header().Set("Vary", "Accept-Encoding")
}

// writeCancelled acknowledges an abandoned request without producing a body.
func writeCancelled(w http.ResponseWriter) {
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(http.StatusNoContent)
}
