package matching

import (
	"fmt"
	"math"
	"sort"

	svcerrors "contractor-matching/internal/common/errors"
	"contractor-matching/internal/models"
	"contractor-matching/internal/search"
)

const (
	maxScore = 100.0

	// Exponential decay constants for the distance and response-time curves.
	distanceDecay     = 0.3
	responseTimeDecay = 0.03

	// Reliability bonus is earned only with a track record.
	reliabilityMinJobs  = 10
	reliabilityFullJobs = 50
	reliabilityMaxBonus = 10.0

	weightSumTolerance = 1e-9
)

// DefaultWeights reproduce the canonical 40/30/30 split.
var DefaultWeights = models.ScoreWeights{
	Rating:       0.40,
	Distance:     0.30,
	ResponseTime: 0.30,
}

// Scorer computes composite match scores for filtered candidates.
type Scorer struct {
	weights        models.ScoreWeights
	distanceCutoff float64
}

// NewScorer validates the weights and builds a scorer. distanceCutoff is the
// distance beyond which the distance term contributes zero; callers pass the
// search radius.
func NewScorer(weights models.ScoreWeights, distanceCutoff float64) (*Scorer, error) {
	if err := ValidateWeights(weights); err != nil {
		return nil, err
	}
	return &Scorer{weights: weights, distanceCutoff: distanceCutoff}, nil
}

// ValidateWeights checks that the weights are non-negative and sum to 1.0.
func ValidateWeights(w models.ScoreWeights) error {
	if w.Rating < 0 || w.Distance < 0 || w.ResponseTime < 0 {
		return svcerrors.NewInvalidWeightsError(
			fmt.Sprintf("weights must be non-negative: rating=%f, distance=%f, responseTime=%f",
				w.Rating, w.Distance, w.ResponseTime))
	}
	sum := w.Rating + w.Distance + w.ResponseTime
	if math.Abs(sum-1.0) > weightSumTolerance {
		return svcerrors.NewInvalidWeightsError(
			fmt.Sprintf("weights must sum to 1.0, got %f", sum))
	}
	return nil
}

// Score computes the composite score and its breakdown for one candidate.
func (s *Scorer) Score(candidate search.Candidate) (models.ScoredContractor, error) {
	p := candidate.Profile

	if p.Rating < 0 || p.Rating > 5 {
		return models.ScoredContractor{}, svcerrors.NewInvalidRequestError(
			fmt.Sprintf("contractor %s rating %f outside [0,5]", p.ID, p.Rating))
	}
	if candidate.DistanceMiles < 0 {
		return models.ScoredContractor{}, svcerrors.NewInvalidRequestError(
			fmt.Sprintf("contractor %s distance %f is negative", p.ID, candidate.DistanceMiles))
	}
	if p.AvgResponseMinutes < 0 {
		return models.ScoredContractor{}, svcerrors.NewInvalidRequestError(
			fmt.Sprintf("contractor %s response time %f is negative", p.ID, p.AvgResponseMinutes))
	}
	if p.ReliabilityScore < 0 || p.ReliabilityScore > 1 {
		return models.ScoredContractor{}, svcerrors.NewInvalidRequestError(
			fmt.Sprintf("contractor %s reliability %f outside [0,1]", p.ID, p.ReliabilityScore))
	}

	breakdown := models.ScoreBreakdown{
		RatingScore:       p.Rating / 5.0 * (s.weights.Rating * 100),
		DistanceScore:     s.distanceScore(candidate.DistanceMiles),
		ResponseTimeScore: s.weights.ResponseTime * 100 * math.Exp(-responseTimeDecay*p.AvgResponseMinutes),
		ReliabilityBonus:  reliabilityBonus(p.ReliabilityScore, p.CompletedJobs),
	}

	total := breakdown.RatingScore + breakdown.DistanceScore +
		breakdown.ResponseTimeScore + breakdown.ReliabilityBonus
	if total > maxScore {
		total = maxScore
	}

	return models.ScoredContractor{
		Contractor:         p,
		Score:              total,
		Breakdown:          breakdown,
		DistanceMiles:      candidate.DistanceMiles,
		EstResponseMinutes: p.AvgResponseMinutes,
	}, nil
}

// Rank scores every candidate, sorts descending by score, and truncates to
// maxResults.
func (s *Scorer) Rank(candidates []search.Candidate, maxResults int) ([]models.ScoredContractor, error) {
	scored := make([]models.ScoredContractor, 0, len(candidates))
	for _, candidate := range candidates {
		sc, err := s.Score(candidate)
		if err != nil {
			return nil, err
		}
		scored = append(scored, sc)
	}

	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].Score > scored[j].Score
	})

	if maxResults > 0 && len(scored) > maxResults {
		scored = scored[:maxResults]
	}
	return scored, nil
}

func (s *Scorer) distanceScore(distanceMiles float64) float64 {
	if s.distanceCutoff > 0 && distanceMiles > s.distanceCutoff {
		return 0
	}
	return s.weights.Distance * 100 * math.Exp(-distanceDecay*distanceMiles)
}

// reliabilityBonus rewards a proven track record: nothing below 10 completed
// jobs, then scaled by the reliability score and job count, saturating at 50
// jobs.
func reliabilityBonus(reliability float64, completedJobs int) float64 {
	if completedJobs < reliabilityMinJobs {
		return 0
	}
	jobs := float64(completedJobs)
	if jobs > reliabilityFullJobs {
		jobs = reliabilityFullJobs
	}
	return reliabilityMaxBonus * reliability * jobs / reliabilityFullJobs
}
