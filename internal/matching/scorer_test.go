// internal/matching/scorer_test.go
package matching

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"contractor-matching/internal/models"
	"contractor-matching/internal/search"
)

func testScorer(t *testing.T) *Scorer {
	scorer, err := NewScorer(DefaultWeights, 25)
	require.NoError(t, err)
	return scorer
}

func candidate(distance float64, mutate func(*models.ContractorProfile)) search.Candidate {
	p := models.ContractorProfile{
		ID:                 "contractor-1",
		Name:               "Test Contractor",
		Specialties:        []models.Trade{models.TradePlumbing},
		HourlyRate:         85,
		ServiceRadiusMiles: 30,
		Rating:             4.0,
		ReliabilityScore:   0.9,
		AvgResponseMinutes: 15,
		CompletedJobs:      25,
		Availability:       models.AvailabilityAvailable,
		MaxConcurrentJobs:  3,
		Verification:       models.VerificationVerified,
		BackgroundCheck:    models.BackgroundCheckPassed,
		InsuranceVerified:  true,
	}
	if mutate != nil {
		mutate(&p)
	}
	return search.Candidate{Profile: p, DistanceMiles: distance}
}

// ==========================
// Rating Term
// ==========================

func TestScore_RatingAnchors(t *testing.T) {
	tests := []struct {
		name     string
		rating   float64
		expected float64
	}{
		{"max rating", 5.0, 40.0},
		{"zero rating", 0.0, 0.0},
		{"midpoint rating", 2.5, 20.0},
	}

	scorer := testScorer(t)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sc, err := scorer.Score(candidate(0, func(p *models.ContractorProfile) {
				p.Rating = tt.rating
			}))
			require.NoError(t, err)
			assert.InDelta(t, tt.expected, sc.Breakdown.RatingScore, 1e-9)
		})
	}
}

func TestScore_RatingOutOfRange(t *testing.T) {
	scorer := testScorer(t)

	for _, rating := range []float64{-0.1, 5.1} {
		_, err := scorer.Score(candidate(0, func(p *models.ContractorProfile) {
			p.Rating = rating
		}))
		assert.Error(t, err)
	}
}

func TestScore_ReliabilityOutOfRange(t *testing.T) {
	scorer := testScorer(t)

	for _, reliability := range []float64{-0.1, 1.1, 3.0} {
		_, err := scorer.Score(candidate(0, func(p *models.ContractorProfile) {
			p.ReliabilityScore = reliability
			p.CompletedJobs = 50
		}))
		assert.Error(t, err, "reliability %f should be rejected", reliability)
	}
}

// ==========================
// Distance Term
// ==========================

func TestScore_DistanceStrictlyDecreasing(t *testing.T) {
	scorer := testScorer(t)

	prev := 1000.0
	for _, d := range []float64{0, 1, 2, 5, 10, 20} {
		sc, err := scorer.Score(candidate(d, nil))
		require.NoError(t, err)
		assert.Less(t, sc.Score, prev, "score at %f miles should be below score at smaller distance", d)
		prev = sc.Score
	}
}

func TestScore_DistanceTermBounds(t *testing.T) {
	scorer := testScorer(t)

	atOrigin, err := scorer.Score(candidate(0, nil))
	require.NoError(t, err)
	assert.InDelta(t, 30.0, atOrigin.Breakdown.DistanceScore, 1e-9)

	beyondCutoff, err := scorer.Score(candidate(26, nil))
	require.NoError(t, err)
	assert.Equal(t, 0.0, beyondCutoff.Breakdown.DistanceScore)
}

func TestScore_NegativeDistanceRejected(t *testing.T) {
	_, err := testScorer(t).Score(candidate(-1, nil))
	assert.Error(t, err)
}

// ==========================
// Response-Time Term
// ==========================

func TestScore_ResponseTimeBounds(t *testing.T) {
	scorer := testScorer(t)

	fast, err := scorer.Score(candidate(0, func(p *models.ContractorProfile) {
		p.AvgResponseMinutes = 5
	}))
	require.NoError(t, err)
	assert.Greater(t, fast.Breakdown.ResponseTimeScore, 25.0)

	slow, err := scorer.Score(candidate(0, func(p *models.ContractorProfile) {
		p.AvgResponseMinutes = 60
	}))
	require.NoError(t, err)
	assert.Less(t, slow.Breakdown.ResponseTimeScore, 5.0)

	assert.Greater(t, fast.Breakdown.ResponseTimeScore, slow.Breakdown.ResponseTimeScore)
}

func TestScore_NegativeResponseTimeRejected(t *testing.T) {
	_, err := testScorer(t).Score(candidate(0, func(p *models.ContractorProfile) {
		p.AvgResponseMinutes = -1
	}))
	assert.Error(t, err)
}

// ==========================
// Reliability Bonus
// ==========================

func TestReliabilityBonus(t *testing.T) {
	tests := []struct {
		name        string
		reliability float64
		jobs        int
		expected    float64
	}{
		{"below threshold", 1.0, 9, 0},
		{"zero jobs", 1.0, 0, 0},
		{"at threshold", 0.5, 10, 1.0},
		{"saturated", 1.0, 50, 10.0},
		{"beyond saturation", 1.0, 200, 10.0},
		{"partial", 0.8, 25, 4.0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.expected, reliabilityBonus(tt.reliability, tt.jobs), 1e-9)
		})
	}
}

// ==========================
// Composite Score
// ==========================

func TestScore_ClampedToHundred(t *testing.T) {
	sc, err := testScorer(t).Score(candidate(0, func(p *models.ContractorProfile) {
		p.Rating = 5.0
		p.AvgResponseMinutes = 0
		p.ReliabilityScore = 1.0
		p.CompletedJobs = 50
	}))
	require.NoError(t, err)
	// 40 + 30 + 30 + 10 would exceed the ceiling.
	assert.Equal(t, 100.0, sc.Score)
}

func TestScore_ContractorAOutranksB(t *testing.T) {
	// A at 0 miles ranks strictly above an otherwise identical B at 5 miles.
	ideal := func(p *models.ContractorProfile) {
		p.Rating = 5.0
		p.CompletedJobs = 50
		p.ReliabilityScore = 1.0
		p.AvgResponseMinutes = 5
	}

	scorer := testScorer(t)
	a, err := scorer.Score(candidate(0, ideal))
	require.NoError(t, err)
	b, err := scorer.Score(candidate(5, ideal))
	require.NoError(t, err)

	assert.Greater(t, a.Score, b.Score)
}

func TestRank_OrdersAndTruncates(t *testing.T) {
	scorer := testScorer(t)

	candidates := []search.Candidate{
		candidate(10, func(p *models.ContractorProfile) { p.ID = "far"; p.Rating = 3.0 }),
		candidate(0, func(p *models.ContractorProfile) { p.ID = "best"; p.Rating = 5.0 }),
		candidate(2, func(p *models.ContractorProfile) { p.ID = "near"; p.Rating = 4.0 }),
	}

	ranked, err := scorer.Rank(candidates, 2)
	require.NoError(t, err)
	require.Len(t, ranked, 2)
	assert.Equal(t, "best", ranked[0].Contractor.ID)
	assert.GreaterOrEqual(t, ranked[0].Score, ranked[1].Score)
}

// ==========================
// Weights
// ==========================

func TestValidateWeights(t *testing.T) {
	tests := []struct {
		name    string
		weights models.ScoreWeights
		valid   bool
	}{
		{"defaults", DefaultWeights, true},
		{"custom valid", models.ScoreWeights{Rating: 0.5, Distance: 0.25, ResponseTime: 0.25}, true},
		{"sum too low", models.ScoreWeights{Rating: 0.4, Distance: 0.3, ResponseTime: 0.2}, false},
		{"sum too high", models.ScoreWeights{Rating: 0.5, Distance: 0.4, ResponseTime: 0.3}, false},
		{"negative component", models.ScoreWeights{Rating: 1.2, Distance: -0.1, ResponseTime: -0.1}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateWeights(tt.weights)
			if tt.valid {
				assert.NoError(t, err)
			} else {
				assert.Error(t, err)
			}
		})
	}
}
