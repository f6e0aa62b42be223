// Package search finds contractor candidates for a ticket, using
// Elasticsearch as the primary geo index and a Postgres scan as the fallback.
package search

import (
	"context"

	"contractor-matching/internal/models"
)

// Candidate is a contractor produced by a search, carrying the distance from
// the ticket so downstream stages never recompute it.
type Candidate struct {
	Profile       models.ContractorProfile
	DistanceMiles float64
}

// Searcher finds contractors of a trade within radiusMiles of a location.
type Searcher interface {
	FindCandidates(ctx context.Context, trade models.Trade, loc models.Location, radiusMiles float64) ([]Candidate, error)
}
