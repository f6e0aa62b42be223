package matching

import (
	"context"
	"time"

	"contractor-matching/internal/cache"
	svcerrors "contractor-matching/internal/common/errors"
	"contractor-matching/internal/common/logger"
	"contractor-matching/internal/common/metrics"
	"contractor-matching/internal/directory"
	"contractor-matching/internal/geo"
	"contractor-matching/internal/models"
	"contractor-matching/internal/search"
)

// Options bound the pipeline: radii, result counts, the default weights, and
// the per-call time budget.
type Options struct {
	DefaultRadiusMiles float64
	MaxRadiusMiles     float64
	MaxResults         int
	PipelineBudget     time.Duration
	Weights            models.ScoreWeights
}

// Coordinator orchestrates one match call: cache lookup, candidate search,
// filtering, and scoring, with a degraded rating-only fallback when any
// primary stage fails.
type Coordinator struct {
	opts     Options
	cache    *cache.ContractorCache
	reader   *directory.Reader
	primary  search.Searcher
	fallback search.Searcher
	logger   logger.Logger
}

func NewCoordinator(opts Options, contractorCache *cache.ContractorCache, reader *directory.Reader, primary, fallback search.Searcher, log logger.Logger) *Coordinator {
	return &Coordinator{
		opts:     opts,
		cache:    contractorCache,
		reader:   reader,
		primary:  primary,
		fallback: fallback,
		logger:   log.WithFields(map[string]interface{}{"component": "matching"}),
	}
}

// Match never errors for a well-formed request: primary-path failures select
// the fallback, and a fallback failure yields an empty match list.
func (c *Coordinator) Match(ctx context.Context, req *models.MatchingRequest) (*models.MatchResult, error) {
	start := time.Now()

	if !models.ValidTrades[req.Trade] {
		return nil, svcerrors.NewInvalidTradeError(string(req.Trade))
	}
	if !geo.ValidCoordinates(req.Location.Latitude, req.Location.Longitude) {
		return nil, svcerrors.NewInvalidCoordinatesError(req.Location.Latitude, req.Location.Longitude)
	}

	radius := req.RadiusMiles
	if radius <= 0 {
		radius = c.opts.DefaultRadiusMiles
	}
	if radius > c.opts.MaxRadiusMiles {
		radius = c.opts.MaxRadiusMiles
	}

	maxResults := req.MaxResults
	if maxResults <= 0 {
		maxResults = c.opts.MaxResults
	}

	weights := c.opts.Weights
	if req.Weights != nil {
		weights = *req.Weights
	}
	scorer, err := NewScorer(weights, radius)
	if err != nil {
		return nil, err
	}

	if c.opts.PipelineBudget > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.opts.PipelineBudget)
		defer cancel()
	}

	result, err := c.primaryPath(ctx, req, scorer, radius, maxResults)
	if err != nil {
		c.logger.Warn("primary matching path failed, using fallback", map[string]interface{}{
			"ticketId": req.TicketID,
			"trade":    req.Trade,
			"error":    err.Error(),
		})
		metrics.SearchFallbacksTotal.Inc()
		result = c.fallbackPath(ctx, req, radius, maxResults, err.Error())
	}

	result.RadiusMiles = radius
	result.ExecutionMs = time.Since(start).Milliseconds()

	outcome := "primary"
	source := "primary"
	if result.UsedFallback {
		outcome = "fallback"
		source = "fallback"
	}
	metrics.MatchRequestsTotal.WithLabelValues(outcome).Inc()
	metrics.MatchDuration.WithLabelValues(source).Observe(time.Since(start).Seconds())

	c.logger.Info("match complete", map[string]interface{}{
		"ticketId":        req.TicketID,
		"trade":           req.Trade,
		"matches":         len(result.Matches),
		"totalCandidates": result.TotalCandidates,
		"usedFallback":    result.UsedFallback,
		"executionMs":     result.ExecutionMs,
	})

	return result, nil
}

func (c *Coordinator) primaryPath(ctx context.Context, req *models.MatchingRequest, scorer *Scorer, radius float64, maxResults int) (*models.MatchResult, error) {
	key := c.cache.SearchKey(ctx, req.Trade, req.Location, radius, req.Filters.MinRating)

	var candidates []search.Candidate
	if refs, ok := c.cache.GetSearch(ctx, key); ok {
		hydrated, err := c.hydrate(ctx, refs)
		if err != nil {
			return nil, err
		}
		candidates = hydrated
	} else {
		found, err := c.primary.FindCandidates(ctx, req.Trade, req.Location, radius)
		if err != nil {
			return nil, err
		}
		candidates = found

		// Warm both namespaces so a later cache hit hydrates without
		// touching Postgres.
		refs := make([]models.CandidateRef, len(found))
		for i, candidate := range found {
			refs[i] = models.CandidateRef{
				ContractorID:  candidate.Profile.ID,
				DistanceMiles: candidate.DistanceMiles,
			}
			profile := candidate.Profile
			c.cache.SetProfile(ctx, &profile)
		}
		c.cache.SetSearch(ctx, key, refs)
	}

	filtered := Filter(candidates, req.Filters)
	matches, err := scorer.Rank(filtered, maxResults)
	if err != nil {
		return nil, err
	}
	if matches == nil {
		matches = []models.ScoredContractor{}
	}

	return &models.MatchResult{
		Matches:         matches,
		TotalCandidates: len(candidates),
	}, nil
}

// hydrate resolves cached candidate refs back into profiles. Contractors that
// vanished since the list was cached are skipped; infrastructure failures
// abort the primary path.
func (c *Coordinator) hydrate(ctx context.Context, refs []models.CandidateRef) ([]search.Candidate, error) {
	candidates := make([]search.Candidate, 0, len(refs))
	for _, ref := range refs {
		profile, err := c.reader.GetContractor(ctx, ref.ContractorID)
		if err != nil {
			if svcErr := svcerrors.AsServiceError(err); svcErr.Category == svcerrors.CategoryNotFound {
				continue
			}
			return nil, err
		}
		candidates = append(candidates, search.Candidate{
			Profile:       *profile,
			DistanceMiles: ref.DistanceMiles,
		})
	}
	return candidates, nil
}

// fallbackPath serves a degraded response: availability query ordered by
// rating alone, unfiltered and unscored. A fallback failure yields an empty
// list rather than an error.
func (c *Coordinator) fallbackPath(ctx context.Context, req *models.MatchingRequest, radius float64, maxResults int, reason string) *models.MatchResult {
	candidates, err := c.fallback.FindCandidates(ctx, req.Trade, req.Location, radius)
	if err != nil {
		c.logger.Error("fallback search failed, returning empty result", map[string]interface{}{
			"ticketId": req.TicketID,
			"error":    err.Error(),
		})
		return &models.MatchResult{
			Matches:        []models.ScoredContractor{},
			UsedFallback:   true,
			FallbackReason: reason,
		}
	}

	matches := make([]models.ScoredContractor, 0, len(candidates))
	for _, candidate := range candidates {
		matches = append(matches, models.ScoredContractor{
			Contractor:         candidate.Profile,
			DistanceMiles:      candidate.DistanceMiles,
			EstResponseMinutes: candidate.Profile.AvgResponseMinutes,
		})
		if maxResults > 0 && len(matches) >= maxResults {
			break
		}
	}

	return &models.MatchResult{
		Matches:         matches,
		TotalCandidates: len(candidates),
		UsedFallback:    true,
		FallbackReason:  reason,
	}
}
