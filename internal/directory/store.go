// Package directory is the read side of the contractor roster: a Postgres
// projection fronted by the cache-aside layer.
package directory

import (
	"context"
	"database/sql"
	"errors"

	"github.com/lib/pq"

	"contractor-matching/internal/cache"
	svcerrors "contractor-matching/internal/common/errors"
	"contractor-matching/internal/common/logger"
	"contractor-matching/internal/models"
)

const contractorColumns = `
	id, name, specialties, hourly_rate, latitude, longitude,
	service_radius_miles, rating, reliability_score, avg_response_minutes,
	completed_jobs, availability, current_jobs, max_concurrent_jobs,
	verification, background_check, insurance_verified`

// Store reads contractor profiles from Postgres.
type Store struct {
	db     *sql.DB
	logger logger.Logger
}

func NewStore(db *sql.DB, log logger.Logger) *Store {
	return &Store{
		db:     db,
		logger: log.WithFields(map[string]interface{}{"component": "directory"}),
	}
}

// GetByID loads a single contractor profile.
func (s *Store) GetByID(ctx context.Context, contractorID string) (*models.ContractorProfile, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+contractorColumns+`
		FROM contractors
		WHERE id = $1`, contractorID)

	profile, err := scanContractor(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, svcerrors.NewContractorNotFoundError(contractorID)
		}
		return nil, svcerrors.NewQueryExecutionFailedError("contractor_by_id", err)
	}
	return profile, nil
}

// ListByTrade returns every contractor advertising the given trade. Used by the
// Postgres search fallback; eligibility filtering happens downstream.
func (s *Store) ListByTrade(ctx context.Context, trade models.Trade) ([]models.ContractorProfile, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+contractorColumns+`
		FROM contractors
		WHERE $1 = ANY(specialties)
		ORDER BY rating DESC`, string(trade))
	if err != nil {
		return nil, svcerrors.NewQueryExecutionFailedError("contractors_by_trade", err)
	}
	defer rows.Close()

	var profiles []models.ContractorProfile
	for rows.Next() {
		profile, err := scanContractor(rows)
		if err != nil {
			return nil, svcerrors.NewQueryExecutionFailedError("contractors_by_trade", err)
		}
		profiles = append(profiles, *profile)
	}
	if err := rows.Err(); err != nil {
		return nil, svcerrors.NewQueryExecutionFailedError("contractors_by_trade", err)
	}
	return profiles, nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanContractor(row rowScanner) (*models.ContractorProfile, error) {
	var p models.ContractorProfile
	var specialties pq.StringArray

	err := row.Scan(
		&p.ID, &p.Name, &specialties, &p.HourlyRate,
		&p.Location.Latitude, &p.Location.Longitude,
		&p.ServiceRadiusMiles, &p.Rating, &p.ReliabilityScore, &p.AvgResponseMinutes,
		&p.CompletedJobs, &p.Availability, &p.CurrentJobs, &p.MaxConcurrentJobs,
		&p.Verification, &p.BackgroundCheck, &p.InsuranceVerified,
	)
	if err != nil {
		return nil, err
	}

	p.Specialties = make([]models.Trade, len(specialties))
	for i, s := range specialties {
		p.Specialties[i] = models.Trade(s)
	}
	return &p, nil
}

// ==========================
// Cached Reader
// ==========================

// Reader resolves contractor profiles through the cache, falling back to the
// store and repopulating the cache on a miss.
type Reader struct {
	store *Store
	cache *cache.ContractorCache
}

func NewReader(store *Store, contractorCache *cache.ContractorCache) *Reader {
	return &Reader{store: store, cache: contractorCache}
}

// GetContractor is the cache-aside profile lookup.
func (r *Reader) GetContractor(ctx context.Context, contractorID string) (*models.ContractorProfile, error) {
	if profile, ok := r.cache.GetProfile(ctx, contractorID); ok {
		return profile, nil
	}

	profile, err := r.store.GetByID(ctx, contractorID)
	if err != nil {
		return nil, err
	}

	r.cache.SetProfile(ctx, profile)
	return profile, nil
}

// GetAvailability resolves the short-lived availability snapshot, consulting
// the full profile only when the snapshot is cold.
func (r *Reader) GetAvailability(ctx context.Context, contractorID string) (models.Availability, error) {
	if availability, ok := r.cache.GetAvailability(ctx, contractorID); ok {
		return availability, nil
	}

	profile, err := r.GetContractor(ctx, contractorID)
	if err != nil {
		return "", err
	}

	r.cache.SetAvailability(ctx, contractorID, profile.Availability)
	return profile.Availability, nil
}
