// Package matching runs the search → cache → filter → score pipeline that
// turns a ticket into a ranked contractor list.
package matching

import (
	"contractor-matching/internal/models"
	"contractor-matching/internal/search"
)

// Filter removes candidates failing the AND-combined hard constraints.
// Zero-valued options are ignored. Pure, no side effects.
func Filter(candidates []search.Candidate, criteria models.FilterCriteria) []search.Candidate {
	filtered := make([]search.Candidate, 0, len(candidates))
	for _, candidate := range candidates {
		if passes(candidate.Profile, criteria) {
			filtered = append(filtered, candidate)
		}
	}
	return filtered
}

func passes(p models.ContractorProfile, criteria models.FilterCriteria) bool {
	if criteria.MinRating > 0 && p.Rating < criteria.MinRating {
		return false
	}
	if criteria.MaxHourlyRate > 0 && p.HourlyRate > criteria.MaxHourlyRate {
		return false
	}
	if criteria.RequireInsurance && !p.InsuranceVerified {
		return false
	}
	if criteria.RequireBackgroundCheck && p.BackgroundCheck != models.BackgroundCheckPassed {
		return false
	}
	if criteria.AvailableOnly {
		if p.Availability != models.AvailabilityAvailable || p.AtCapacity() {
			return false
		}
	}
	return true
}
