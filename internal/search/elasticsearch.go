package search

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"

	svcerrors "contractor-matching/internal/common/errors"
	"contractor-matching/internal/common/logger"
	"contractor-matching/internal/geo"
	"contractor-matching/internal/models"
)

const maxSearchHits = 200

// ESSearcher queries the contractor index with a trade term filter and a
// geo_distance filter around the ticket location.
type ESSearcher struct {
	client *elasticsearch.Client
	index  string
	logger logger.Logger
}

func NewESSearcher(client *elasticsearch.Client, index string, log logger.Logger) *ESSearcher {
	return &ESSearcher{
		client: client,
		index:  index,
		logger: log.WithFields(map[string]interface{}{"component": "search.elasticsearch"}),
	}
}

// contractorDocument mirrors the contractor index mapping. Location is a
// geo_point so the geo_distance filter applies to it.
type contractorDocument struct {
	ID                 string   `json:"id"`
	Name               string   `json:"name"`
	Specialties        []string `json:"specialties"`
	HourlyRate         float64  `json:"hourly_rate"`
	Location           struct {
		Lat float64 `json:"lat"`
		Lon float64 `json:"lon"`
	} `json:"location"`
	ServiceRadiusMiles float64 `json:"service_radius_miles"`
	Rating             float64 `json:"rating"`
	ReliabilityScore   float64 `json:"reliability_score"`
	AvgResponseMinutes float64 `json:"avg_response_minutes"`
	CompletedJobs      int     `json:"completed_jobs"`
	Availability       string  `json:"availability"`
	CurrentJobs        int     `json:"current_jobs"`
	MaxConcurrentJobs  int     `json:"max_concurrent_jobs"`
	Verification       string  `json:"verification"`
	BackgroundCheck    string  `json:"background_check"`
	InsuranceVerified  bool    `json:"insurance_verified"`
}

type esSearchResponse struct {
	Hits struct {
		Total struct {
			Value int64 `json:"value"`
		} `json:"total"`
		Hits []struct {
			Source contractorDocument `json:"_source"`
		} `json:"hits"`
	} `json:"hits"`
}

// FindCandidates implements Searcher against Elasticsearch.
func (s *ESSearcher) FindCandidates(ctx context.Context, trade models.Trade, loc models.Location, radiusMiles float64) ([]Candidate, error) {
	queryBody := buildGeoTradeQuery(trade, loc, radiusMiles)
	body, _ := json.Marshal(queryBody)

	size := maxSearchHits
	req := esapi.SearchRequest{
		Index: []string{s.index},
		Body:  strings.NewReader(string(body)),
		Size:  &size,
	}

	res, err := req.Do(ctx, s.client)
	if err != nil {
		if ctx.Err() == context.DeadlineExceeded {
			return nil, svcerrors.NewSearchTimeoutError("contractor_geo")
		}
		return nil, svcerrors.NewSearchQueryFailedError("contractor_geo", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		if res.StatusCode == 404 {
			return nil, svcerrors.NewIndexNotFoundError(s.index)
		}
		return nil, svcerrors.NewSearchQueryFailedError("contractor_geo", fmt.Errorf("status: %s", res.Status()))
	}

	var r esSearchResponse
	if err := json.NewDecoder(res.Body).Decode(&r); err != nil {
		return nil, svcerrors.NewSearchQueryFailedError("contractor_geo", err)
	}

	candidates := make([]Candidate, 0, len(r.Hits.Hits))
	for _, hit := range r.Hits.Hits {
		profile := hit.Source.toProfile()
		candidates = append(candidates, Candidate{
			Profile: profile,
			DistanceMiles: geo.Miles(
				loc.Latitude, loc.Longitude,
				profile.Location.Latitude, profile.Location.Longitude,
			),
		})
	}

	s.logger.Debug("elasticsearch candidate search complete", map[string]interface{}{
		"trade":      trade,
		"radius":     radiusMiles,
		"totalHits":  r.Hits.Total.Value,
		"candidates": len(candidates),
	})

	return candidates, nil
}

func buildGeoTradeQuery(trade models.Trade, loc models.Location, radiusMiles float64) map[string]interface{} {
	filterClauses := []interface{}{
		map[string]interface{}{
			"term": map[string]interface{}{"specialties": string(trade)},
		},
		map[string]interface{}{
			"term": map[string]interface{}{"verification": string(models.VerificationVerified)},
		},
		map[string]interface{}{
			"geo_distance": map[string]interface{}{
				"distance": fmt.Sprintf("%.2fmi", radiusMiles),
				"location": map[string]interface{}{
					"lat": loc.Latitude,
					"lon": loc.Longitude,
				},
			},
		},
	}

	return map[string]interface{}{
		"query": map[string]interface{}{
			"bool": map[string]interface{}{
				"filter": filterClauses,
			},
		},
	}
}

func (d contractorDocument) toProfile() models.ContractorProfile {
	specialties := make([]models.Trade, len(d.Specialties))
	for i, s := range d.Specialties {
		specialties[i] = models.Trade(s)
	}

	return models.ContractorProfile{
		ID:                 d.ID,
		Name:               d.Name,
		Specialties:        specialties,
		HourlyRate:         d.HourlyRate,
		Location:           models.Location{Latitude: d.Location.Lat, Longitude: d.Location.Lon},
		ServiceRadiusMiles: d.ServiceRadiusMiles,
		Rating:             d.Rating,
		ReliabilityScore:   d.ReliabilityScore,
		AvgResponseMinutes: d.AvgResponseMinutes,
		CompletedJobs:      d.CompletedJobs,
		Availability:       models.Availability(d.Availability),
		CurrentJobs:        d.CurrentJobs,
		MaxConcurrentJobs:  d.MaxConcurrentJobs,
		Verification:       models.VerificationState(d.Verification),
		BackgroundCheck:    models.BackgroundCheckState(d.BackgroundCheck),
		InsuranceVerified:  d.InsuranceVerified,
	}
}
