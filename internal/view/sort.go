package view

import (
	"sort"
	"strings"

	"github.com/erazemk/galerija/internal/model"
)

// SortOption is one of the storefront's catalog orderings.
type SortOption string

const (
	SortNewest    SortOption = "newest"
	SortOldest    SortOption = "oldest"
	SortPriceLow  SortOption = "price-low"
	SortPriceHigh SortOption = "price-high"
	SortTitleAZ   SortOption = "a-z"
	SortTitleZA   SortOption = "z-a"
)

// SortCatalog returns a sorted copy. The sort is stable, so ties keep input
// order; an unknown option returns the input order unchanged.
func SortCatalog(pictures []model.ArtPicture, opt SortOption) []model.ArtPicture {
	out := make([]model.ArtPicture, len(pictures))
	copy(out, pictures)

	var less func(a, b model.ArtPicture) bool
	switch opt {
	case SortNewest:
		less = func(a, b model.ArtPicture) bool { return a.CreatedAt.After(b.CreatedAt) }
	case SortOldest:
		less = func(a, b model.ArtPicture) bool { return a.CreatedAt.Before(b.CreatedAt) }
	case SortPriceLow:
		less = func(a, b model.ArtPicture) bool { return a.Price < b.Price }
	case SortPriceHigh:
		less = func(a, b model.ArtPicture) bool { return a.Price > b.Price }
	case SortTitleAZ:
		less = func(a, b model.ArtPicture) bool { return strings.Compare(a.Title, b.Title) < 0 }
	case SortTitleZA:
		less = func(a, b model.ArtPicture) bool { return strings.Compare(a.Title, b.Title) > 0 }
	default:
		return out
	}

	sort.SliceStable(out, func(i, j int) bool { return less(out[i], out[j]) })
	return out
}
