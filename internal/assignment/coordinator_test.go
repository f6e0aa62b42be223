// internal/assignment/coordinator_test.go
package assignment

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/alicebob/miniredis/v2"
	"github.com/lib/pq"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"contractor-matching/internal/cache"
	svcerrors "contractor-matching/internal/common/errors"
	"contractor-matching/internal/common/logger"
	"contractor-matching/internal/models"
)

var ticketColumns = []string{
	"id", "title", "description", "status", "priority", "tenant_id", "unit_id",
	"assigned_contractor_id", "version", "created_at", "updated_at",
}

type assignmentFixture struct {
	coordinator *Coordinator
	dbMock      sqlmock.Sqlmock
	cache       *cache.ContractorCache
}

func setupAssignment(t *testing.T) *assignmentFixture {
	db, dbMock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	contractorCache := cache.New(redis.NewClient(&redis.Options{Addr: mr.Addr()}), cache.TTLs{
		Profile:      time.Hour,
		Search:       5 * time.Minute,
		Availability: time.Minute,
	}, logger.NewNoOpLogger())

	return &assignmentFixture{
		coordinator: NewCoordinator(db, contractorCache, 3*time.Second, logger.NewNoOpLogger()),
		dbMock:      dbMock,
		cache:       contractorCache,
	}
}

func ticketRow(status models.TicketStatus, assignee *string, version int64) *sqlmock.Rows {
	now := time.Now().UTC()
	return sqlmock.NewRows(ticketColumns).AddRow(
		"ticket-1", "Leaking sink", "Water under the kitchen sink", status, models.TicketPriorityHigh,
		"tenant-1", "unit-4b", assignee, version, now.Add(-time.Hour), now,
	)
}

// expectTxOpen covers the shared transaction prologue: BEGIN, lock timeout,
// row lock.
func (f *assignmentFixture) expectTxOpen(rows *sqlmock.Rows) {
	f.dbMock.ExpectBegin()
	f.dbMock.ExpectExec("SET LOCAL lock_timeout = '3000ms'").
		WillReturnResult(sqlmock.NewResult(0, 0))
	query := f.dbMock.ExpectQuery("SELECT id, title, description, status, priority, tenant_id, unit_id").
		WithArgs("ticket-1")
	if rows != nil {
		query.WillReturnRows(rows)
	} else {
		query.WillReturnError(sql.ErrNoRows)
	}
}

func assertConflict(t *testing.T, err error, code svcerrors.ErrorCode) {
	t.Helper()
	require.Error(t, err)
	svcErr := svcerrors.AsServiceError(err)
	assert.Equal(t, code, svcErr.Code)
	assert.Equal(t, svcerrors.CategoryConflict, svcErr.Category)
}

func TestAccept_Success(t *testing.T) {
	f := setupAssignment(t)

	// Warmed cache entries must be invalidated once the accept commits.
	f.cache.SetProfile(context.Background(), &models.ContractorProfile{ID: "contractor-9", Name: "Ada"})

	f.expectTxOpen(ticketRow(models.TicketStatusTriaged, nil, 3))
	f.dbMock.ExpectQuery("SELECT COUNT").
		WithArgs("ticket-1", models.AssignmentActive).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))
	f.dbMock.ExpectExec("UPDATE tickets").
		WithArgs(models.TicketStatusAssigned, "contractor-9", sqlmock.AnyArg(), "ticket-1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	f.dbMock.ExpectExec("INSERT INTO ticket_assignments").
		WithArgs(sqlmock.AnyArg(), "ticket-1", "contractor-9", models.AssignmentActive, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	f.dbMock.ExpectExec("INSERT INTO ticket_state_history").
		WithArgs(sqlmock.AnyArg(), "ticket-1", models.TicketStatusTriaged, models.TicketStatusAssigned, "tenant-1", "", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	f.dbMock.ExpectCommit()

	ticket, err := f.coordinator.Accept(context.Background(), "ticket-1", "contractor-9", "tenant-1")
	require.NoError(t, err)

	assert.Equal(t, models.TicketStatusAssigned, ticket.Status)
	require.NotNil(t, ticket.AssignedContractorID)
	assert.Equal(t, "contractor-9", *ticket.AssignedContractorID)
	assert.Equal(t, int64(4), ticket.Version)

	_, ok := f.cache.GetProfile(context.Background(), "contractor-9")
	assert.False(t, ok, "contractor profile should be invalidated after commit")

	assert.NoError(t, f.dbMock.ExpectationsWereMet())
}

func TestAccept_AlreadyAssigned(t *testing.T) {
	f := setupAssignment(t)

	other := "contractor-2"
	f.expectTxOpen(ticketRow(models.TicketStatusTriaged, &other, 3))
	f.dbMock.ExpectRollback()

	_, err := f.coordinator.Accept(context.Background(), "ticket-1", "contractor-9", "tenant-1")
	assertConflict(t, err, svcerrors.ErrCodeTicketAlreadyAssigned)
	assert.NoError(t, f.dbMock.ExpectationsWereMet())
}

func TestAccept_LiveAssignmentExists(t *testing.T) {
	f := setupAssignment(t)

	// Status says acceptable and the pointer is clear, but an active
	// assignment row survived: still a conflict.
	f.expectTxOpen(ticketRow(models.TicketStatusNew, nil, 1))
	f.dbMock.ExpectQuery("SELECT COUNT").
		WithArgs("ticket-1", models.AssignmentActive).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))
	f.dbMock.ExpectRollback()

	_, err := f.coordinator.Accept(context.Background(), "ticket-1", "contractor-9", "tenant-1")
	assertConflict(t, err, svcerrors.ErrCodeTicketAlreadyAssigned)
	assert.NoError(t, f.dbMock.ExpectationsWereMet())
}

func TestAccept_NotAcceptableStatus(t *testing.T) {
	f := setupAssignment(t)

	f.expectTxOpen(ticketRow(models.TicketStatusInProgress, nil, 5))
	f.dbMock.ExpectRollback()

	_, err := f.coordinator.Accept(context.Background(), "ticket-1", "contractor-9", "tenant-1")
	assertConflict(t, err, svcerrors.ErrCodeInvalidTransition)
	assert.NoError(t, f.dbMock.ExpectationsWereMet())
}

func TestAccept_TicketNotFound(t *testing.T) {
	f := setupAssignment(t)

	f.expectTxOpen(nil)
	f.dbMock.ExpectRollback()

	_, err := f.coordinator.Accept(context.Background(), "ticket-1", "contractor-9", "tenant-1")
	require.Error(t, err)
	svcErr := svcerrors.AsServiceError(err)
	assert.Equal(t, svcerrors.ErrCodeTicketNotFound, svcErr.Code)
	assert.Equal(t, svcerrors.CategoryNotFound, svcErr.Category)
}

func TestAccept_SerializationFailureIsContention(t *testing.T) {
	f := setupAssignment(t)

	f.expectTxOpen(ticketRow(models.TicketStatusTriaged, nil, 3))
	f.dbMock.ExpectQuery("SELECT COUNT").
		WithArgs("ticket-1", models.AssignmentActive).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))
	f.dbMock.ExpectExec("UPDATE tickets").
		WillReturnResult(sqlmock.NewResult(0, 1))
	f.dbMock.ExpectExec("INSERT INTO ticket_assignments").
		WillReturnResult(sqlmock.NewResult(0, 1))
	f.dbMock.ExpectExec("INSERT INTO ticket_state_history").
		WillReturnResult(sqlmock.NewResult(0, 1))
	f.dbMock.ExpectCommit().WillReturnError(&pq.Error{Code: "40001"})

	_, err := f.coordinator.Accept(context.Background(), "ticket-1", "contractor-9", "tenant-1")
	assertConflict(t, err, svcerrors.ErrCodeAssignmentContention)
	svcErr := svcerrors.AsServiceError(err)
	assert.True(t, svcErr.Retryable)
}

func TestAccept_LockTimeoutIsContention(t *testing.T) {
	f := setupAssignment(t)

	f.dbMock.ExpectBegin()
	f.dbMock.ExpectExec("SET LOCAL lock_timeout = '3000ms'").
		WillReturnResult(sqlmock.NewResult(0, 0))
	f.dbMock.ExpectQuery("SELECT id, title, description, status, priority, tenant_id, unit_id").
		WithArgs("ticket-1").
		WillReturnError(&pq.Error{Code: "55P03"})
	f.dbMock.ExpectRollback()

	_, err := f.coordinator.Accept(context.Background(), "ticket-1", "contractor-9", "tenant-1")
	assertConflict(t, err, svcerrors.ErrCodeAssignmentContention)
}

func TestAccept_InsertFailureRollsBack(t *testing.T) {
	f := setupAssignment(t)

	f.expectTxOpen(ticketRow(models.TicketStatusTriaged, nil, 3))
	f.dbMock.ExpectQuery("SELECT COUNT").
		WithArgs("ticket-1", models.AssignmentActive).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))
	f.dbMock.ExpectExec("UPDATE tickets").
		WillReturnResult(sqlmock.NewResult(0, 1))
	f.dbMock.ExpectExec("INSERT INTO ticket_assignments").
		WillReturnError(assert.AnError)
	f.dbMock.ExpectRollback()

	_, err := f.coordinator.Accept(context.Background(), "ticket-1", "contractor-9", "tenant-1")
	require.Error(t, err)
	svcErr := svcerrors.AsServiceError(err)
	assert.Equal(t, svcerrors.CategoryInfrastructure, svcErr.Category)
	assert.NoError(t, f.dbMock.ExpectationsWereMet())
}

func TestStart(t *testing.T) {
	f := setupAssignment(t)

	assignee := "contractor-9"
	f.expectTxOpen(ticketRow(models.TicketStatusAssigned, &assignee, 4))
	f.dbMock.ExpectExec("UPDATE tickets").
		WithArgs(models.TicketStatusInProgress, &assignee, sqlmock.AnyArg(), "ticket-1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	f.dbMock.ExpectExec("INSERT INTO ticket_state_history").
		WithArgs(sqlmock.AnyArg(), "ticket-1", models.TicketStatusAssigned, models.TicketStatusInProgress, "contractor-9", "", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	f.dbMock.ExpectCommit()

	ticket, err := f.coordinator.Start(context.Background(), "ticket-1", "contractor-9")
	require.NoError(t, err)
	assert.Equal(t, models.TicketStatusInProgress, ticket.Status)
	assert.Equal(t, int64(5), ticket.Version)
}

func TestStart_FromNewIsConflict(t *testing.T) {
	f := setupAssignment(t)

	f.expectTxOpen(ticketRow(models.TicketStatusNew, nil, 1))
	f.dbMock.ExpectRollback()

	_, err := f.coordinator.Start(context.Background(), "ticket-1", "contractor-9")
	assertConflict(t, err, svcerrors.ErrCodeInvalidTransition)
}

func TestComplete(t *testing.T) {
	f := setupAssignment(t)

	assignee := "contractor-9"
	f.expectTxOpen(ticketRow(models.TicketStatusInProgress, &assignee, 5))
	f.dbMock.ExpectExec("UPDATE tickets").
		WillReturnResult(sqlmock.NewResult(0, 1))
	f.dbMock.ExpectExec("UPDATE ticket_assignments").
		WithArgs(models.AssignmentCompleted, sqlmock.AnyArg(), "ticket-1", models.AssignmentActive).
		WillReturnResult(sqlmock.NewResult(0, 1))
	f.dbMock.ExpectExec("INSERT INTO ticket_state_history").
		WillReturnResult(sqlmock.NewResult(0, 1))
	f.dbMock.ExpectCommit()

	ticket, err := f.coordinator.Complete(context.Background(), "ticket-1", "contractor-9")
	require.NoError(t, err)
	assert.Equal(t, models.TicketStatusCompleted, ticket.Status)
	// A completed ticket keeps its contractor for the record.
	require.NotNil(t, ticket.AssignedContractorID)
	assert.Equal(t, "contractor-9", *ticket.AssignedContractorID)
	assert.NoError(t, f.dbMock.ExpectationsWereMet())
}

func TestCancel(t *testing.T) {
	f := setupAssignment(t)

	f.cache.SetProfile(context.Background(), &models.ContractorProfile{ID: "contractor-9", Name: "Ada"})

	assignee := "contractor-9"
	f.expectTxOpen(ticketRow(models.TicketStatusAssigned, &assignee, 4))
	f.dbMock.ExpectExec("UPDATE tickets").
		WithArgs(models.TicketStatusCancelled, nil, sqlmock.AnyArg(), "ticket-1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	f.dbMock.ExpectExec("UPDATE ticket_assignments").
		WithArgs(models.AssignmentCancelled, sqlmock.AnyArg(), "ticket-1", models.AssignmentActive).
		WillReturnResult(sqlmock.NewResult(0, 1))
	f.dbMock.ExpectExec("INSERT INTO ticket_state_history").
		WithArgs(sqlmock.AnyArg(), "ticket-1", models.TicketStatusAssigned, models.TicketStatusCancelled, "tenant-1", "tenant moved out", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	f.dbMock.ExpectCommit()

	ticket, err := f.coordinator.Cancel(context.Background(), "ticket-1", "tenant-1", "tenant moved out")
	require.NoError(t, err)
	assert.Equal(t, models.TicketStatusCancelled, ticket.Status)
	// Cancelled tickets carry no contractor.
	assert.Nil(t, ticket.AssignedContractorID)

	// The displaced contractor's cached profile is invalidated after commit.
	_, ok := f.cache.GetProfile(context.Background(), "contractor-9")
	assert.False(t, ok)

	assert.NoError(t, f.dbMock.ExpectationsWereMet())
}

func TestCancel_TerminalIsConflict(t *testing.T) {
	f := setupAssignment(t)

	f.expectTxOpen(ticketRow(models.TicketStatusCompleted, nil, 6))
	f.dbMock.ExpectRollback()

	_, err := f.coordinator.Cancel(context.Background(), "ticket-1", "tenant-1", "")
	assertConflict(t, err, svcerrors.ErrCodeInvalidTransition)
}
