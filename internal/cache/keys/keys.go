// Package keys builds the cache key for a covering query. Keys are
// deterministic: equal queries hash identically, near-equal queries do not
// collide thanks to the xxhash suffix over the full normalized text.
package keys

import (
	"fmt"

	"github.com/cespare/xxhash/v2"

	"github.com/geodesio/cellcover/internal/core/model"
)

// Covering returns the cache key for a covering query.
func Covering(engine string, precision int, area model.SearchArea, maxCells int) string {
	text := normalizeArea(area)
	sum := xxhash.Sum64String(text)
	return fmt.Sprintf("cov:%s:%d:mc=%d:%s:a=%016x", engine, precision, maxCells, text, sum)
}

func normalizeArea(area model.SearchArea) string {
	if area.Box != nil {
		b := area.Box
		return fmt.Sprintf("b=%.6f,%.6f,%.6f,%.6f", b.SW.Lng, b.SW.Lat, b.NE.Lng, b.NE.Lat)
	}
	return fmt.Sprintf("c=%.6f,%.6f;r=%.1f", area.Center.Lat, area.Center.Lng, area.Radius)
}
