package search

import (
	"context"
	"sort"

	"contractor-matching/internal/common/logger"
	"contractor-matching/internal/directory"
	"contractor-matching/internal/geo"
	"contractor-matching/internal/models"
)

// PostgresFallback serves candidate searches from the contractor table when
// Elasticsearch is unavailable. Distance is computed in Go, so this path is a
// full scan over the trade and should only carry degraded traffic.
type PostgresFallback struct {
	store  *directory.Store
	logger logger.Logger
}

func NewPostgresFallback(store *directory.Store, log logger.Logger) *PostgresFallback {
	return &PostgresFallback{
		store:  store,
		logger: log.WithFields(map[string]interface{}{"component": "search.fallback"}),
	}
}

// FindCandidates implements Searcher against Postgres.
func (f *PostgresFallback) FindCandidates(ctx context.Context, trade models.Trade, loc models.Location, radiusMiles float64) ([]Candidate, error) {
	profiles, err := f.store.ListByTrade(ctx, trade)
	if err != nil {
		return nil, err
	}

	candidates := make([]Candidate, 0, len(profiles))
	for _, profile := range profiles {
		if profile.Verification != models.VerificationVerified {
			continue
		}
		if profile.Availability != models.AvailabilityAvailable {
			continue
		}
		distance := geo.Miles(
			loc.Latitude, loc.Longitude,
			profile.Location.Latitude, profile.Location.Longitude,
		)
		// The non-indexed path honors the contractor's own service radius
		// in addition to the search radius.
		if distance > radiusMiles || distance > profile.ServiceRadiusMiles {
			continue
		}
		candidates = append(candidates, Candidate{Profile: profile, DistanceMiles: distance})
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].Profile.Rating > candidates[j].Profile.Rating
	})

	f.logger.Debug("postgres fallback search complete", map[string]interface{}{
		"trade":      trade,
		"radius":     radiusMiles,
		"scanned":    len(profiles),
		"candidates": len(candidates),
	})

	return candidates, nil
}
