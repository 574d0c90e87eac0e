package scraper

import (
	"context"

	"FirsatRadar/internal/models"
)

// PageReader produces one scan pass worth of raw per-product observations
// from a marketplace listing page. Implementations are deliberately thin
// wrappers over that site's current markup: selectors break when the site
// redesigns, and that is expected. Failing to locate product elements yields
// an empty batch, not an error; errors are reserved for the page itself
// being unreachable.
type PageReader interface {
	Read(ctx context.Context, listingURL string) ([]models.Observation, error)
}

// Dedupe drops repeated product ids, keeping the first observation of each.
// Listing pages frequently repeat a product across sponsored and organic
// slots.
func Dedupe(observations []models.Observation) []models.Observation {
	seen := make(map[string]bool, len(observations))
	out := observations[:0]
	for _, o := range observations {
		if o.ProductID == "" || seen[o.ProductID] {
			continue
		}
		seen[o.ProductID] = true
		out = append(out, o)
	}
	return out
}
