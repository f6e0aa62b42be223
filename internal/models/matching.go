// internal/models/matching.go
package models

// FilterCriteria are the optional hard constraints applied before scoring.
// Set options combine with AND; zero-valued options are ignored.
type FilterCriteria struct {
	MinRating              float64 `json:"minRating,omitempty"`
	MaxHourlyRate          float64 `json:"maxHourlyRate,omitempty"`
	RequireInsurance       bool    `json:"requireInsurance,omitempty"`
	RequireBackgroundCheck bool    `json:"requireBackgroundCheck,omitempty"`
	AvailableOnly          bool    `json:"availableOnly,omitempty"`
}

// ScoreWeights control the relative contribution of the three primary score
// terms. They must sum to 1.0.
type ScoreWeights struct {
	Rating       float64 `json:"rating"`
	Distance     float64 `json:"distance"`
	ResponseTime float64 `json:"responseTime"`
}

// MatchingRequest is one matching call's input. Ephemeral.
type MatchingRequest struct {
	TicketID    string         `json:"ticketId"`
	Trade       Trade          `json:"trade"`
	Location    Location       `json:"location"`
	RadiusMiles float64        `json:"searchRadius,omitempty"`
	MaxResults  int            `json:"maxResults,omitempty"`
	Filters     FilterCriteria `json:"filters,omitempty"`
	Weights     *ScoreWeights  `json:"weights,omitempty"`
}

// CandidateRef is the cacheable slice of a search hit: the contractor id and
// its distance from the search origin. Profiles are hydrated separately so a
// stale ranked list never pins a stale profile.
type CandidateRef struct {
	ContractorID  string  `json:"contractorId"`
	DistanceMiles float64 `json:"distance"`
}

// ScoreBreakdown itemizes the components of a contractor's match score so
// callers can audit how a ranking was produced.
type ScoreBreakdown struct {
	RatingScore       float64 `json:"ratingScore"`
	DistanceScore     float64 `json:"distanceScore"`
	ResponseTimeScore float64 `json:"responseTimeScore"`
	ReliabilityBonus  float64 `json:"reliabilityBonus"`
}

// ScoredContractor is one ranked match: a contractor snapshot plus computed
// score, breakdown, distance, and estimated response time. Ephemeral.
type ScoredContractor struct {
	Contractor         ContractorProfile `json:"contractor"`
	Score              float64           `json:"score"`
	Breakdown          ScoreBreakdown    `json:"scoreBreakdown"`
	DistanceMiles      float64           `json:"distance"`
	EstResponseMinutes float64           `json:"estimatedResponseTime"`
}

// MatchResult is the matching coordinator's output. UsedFallback marks a
// degraded (rating-only, unscored) response.
type MatchResult struct {
	Matches         []ScoredContractor `json:"matches"`
	TotalCandidates int                `json:"totalCandidates"`
	RadiusMiles     float64            `json:"searchRadius"`
	ExecutionMs     int64              `json:"executionTimeMs"`
	UsedFallback    bool               `json:"usedFallback"`
	FallbackReason  string             `json:"fallbackReason,omitempty"`
}
