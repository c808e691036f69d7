// Package view holds the pure derived-view computations: catalog filtering
// and sorting, dashboard aggregation, grouping by user, and cart totals.
// Nothing here caches; results are recomputed on every read.
package view

import (
	"strings"

	"github.com/erazemk/galerija/internal/model"
)

// CatalogFilter selects catalog items. A nil price bound is unconstrained;
// bounds are inclusive.
type CatalogFilter struct {
	Search   string
	MinPrice *float64
	MaxPrice *float64
}

// Matches reports whether a single picture satisfies the filter.
func (f CatalogFilter) Matches(pic model.ArtPicture) bool {
	if f.Search != "" {
		needle := strings.ToLower(f.Search)
		if !strings.Contains(strings.ToLower(pic.Title), needle) &&
			!strings.Contains(strings.ToLower(pic.Description), needle) {
			return false
		}
	}
	if f.MinPrice != nil && float64(pic.Price) < *f.MinPrice {
		return false
	}
	if f.MaxPrice != nil && float64(pic.Price) > *f.MaxPrice {
		return false
	}
	return true
}

// FilterCatalog returns the pictures matching the filter, in input order.
func FilterCatalog(pictures []model.ArtPicture, f CatalogFilter) []model.ArtPicture {
	out := make([]model.ArtPicture, 0, len(pictures))
	for _, pic := range pictures {
		if f.Matches(pic) {
			out = append(out, pic)
		}
	}
	return out
}
