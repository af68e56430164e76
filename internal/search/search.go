// Package search defines the flight provider boundary: a route and date
// in, an ordered list of offers out.
package search

import (
	"context"

	"github.com/xaenox/flightbot/internal/models"
)

type Searcher interface {
	Search(ctx context.Context, origin, destination, date string) ([]models.Flight, error)
}

// BestPrice returns the lowest offer price, or 0 for an empty result.
func BestPrice(flights []models.Flight) float64 {
	var best float64
	for _, f := range flights {
		if best == 0 || f.Price < best {
			best = f.Price
		}
	}
	return best
}
