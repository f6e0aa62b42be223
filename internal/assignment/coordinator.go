package assignment

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"contractor-matching/internal/cache"
	svcerrors "contractor-matching/internal/common/errors"
	"contractor-matching/internal/common/logger"
	"contractor-matching/internal/common/metrics"
	"contractor-matching/internal/models"
)

// Postgres error codes that mean we lost a concurrency race.
const (
	pgSerializationFailure = "40001"
	pgLockNotAvailable     = "55P03"
)

// Coordinator executes ticket lifecycle transitions. Every mutation runs in a
// serializable transaction that locks the ticket row first, so exactly one of
// N concurrent accepts can win.
type Coordinator struct {
	db          *sql.DB
	cache       *cache.ContractorCache
	lockTimeout time.Duration
	logger      logger.Logger
}

func NewCoordinator(db *sql.DB, contractorCache *cache.ContractorCache, lockTimeout time.Duration, log logger.Logger) *Coordinator {
	return &Coordinator{
		db:          db,
		cache:       contractorCache,
		lockTimeout: lockTimeout,
		logger:      log.WithFields(map[string]interface{}{"component": "assignment"}),
	}
}

// ==========================
// Accept
// ==========================

// Accept atomically assigns the ticket to the contractor. Preconditions are
// re-validated under the row lock; losing a serialization race and failing a
// precondition are both reported as conflicts.
func (c *Coordinator) Accept(ctx context.Context, ticketID, contractorID, actor string) (*models.Ticket, error) {
	ticket, err := c.inTicketTx(ctx, ticketID, func(tx *sql.Tx, ticket *models.Ticket) error {
		if !Acceptable(ticket.Status) {
			return svcerrors.NewInvalidTransitionError(string(ticket.Status), string(models.TicketStatusAssigned))
		}
		if ticket.AssignedContractorID != nil {
			return svcerrors.NewTicketAlreadyAssignedError(ticketID, *ticket.AssignedContractorID)
		}

		var liveAssignments int
		err := tx.QueryRowContext(ctx, `
			SELECT COUNT(*) FROM ticket_assignments
			WHERE ticket_id = $1 AND status = $2`,
			ticketID, models.AssignmentActive).Scan(&liveAssignments)
		if err != nil {
			return err
		}
		if liveAssignments > 0 {
			return svcerrors.NewTicketAlreadyAssignedError(ticketID, contractorID)
		}

		now := time.Now().UTC()
		from := ticket.Status
		if err := c.transitionTicket(ctx, tx, ticket, models.TicketStatusAssigned, &contractorID, now); err != nil {
			return err
		}

		_, err = tx.ExecContext(ctx, `
			INSERT INTO ticket_assignments (id, ticket_id, contractor_id, status, accepted_at)
			VALUES ($1, $2, $3, $4, $5)`,
			uuid.New().String(), ticketID, contractorID, models.AssignmentActive, now)
		if err != nil {
			return err
		}

		return c.recordHistory(ctx, tx, ticketID, from, models.TicketStatusAssigned, actor, "", now)
	})
	if err != nil {
		metrics.AssignmentAttemptsTotal.WithLabelValues("conflict_or_error").Inc()
		return nil, err
	}

	metrics.AssignmentAttemptsTotal.WithLabelValues("accepted").Inc()
	metrics.ActiveAssignments.Inc()

	// Invalidation happens after commit, never inside the transaction.
	c.cache.InvalidateContractor(ctx, contractorID, true)

	c.logger.Info("ticket accepted", map[string]interface{}{
		"ticketId":     ticketID,
		"contractorId": contractorID,
		"actor":        actor,
	})
	return ticket, nil
}

// ==========================
// Start / Complete / Cancel
// ==========================

// Start moves an assigned ticket to in_progress.
func (c *Coordinator) Start(ctx context.Context, ticketID, actor string) (*models.Ticket, error) {
	return c.transition(ctx, ticketID, models.TicketStatusInProgress, actor, "",
		func(tx *sql.Tx, prev models.Ticket, now time.Time) error { return nil })
}

// Complete finishes an in_progress ticket and stamps its live assignment.
func (c *Coordinator) Complete(ctx context.Context, ticketID, actor string) (*models.Ticket, error) {
	ticket, err := c.transition(ctx, ticketID, models.TicketStatusCompleted, actor, "",
		func(tx *sql.Tx, prev models.Ticket, now time.Time) error {
			_, err := tx.ExecContext(ctx, `
				UPDATE ticket_assignments
				SET status = $1, completed_at = $2
				WHERE ticket_id = $3 AND status = $4`,
				models.AssignmentCompleted, now, ticketID, models.AssignmentActive)
			return err
		})
	if err != nil {
		return nil, err
	}

	metrics.ActiveAssignments.Dec()
	if ticket.AssignedContractorID != nil {
		c.cache.InvalidateContractor(ctx, *ticket.AssignedContractorID, true)
	}
	return ticket, nil
}

// Cancel aborts any non-terminal ticket and records the actor's note. A live
// assignment, if present, is cancelled with it.
func (c *Coordinator) Cancel(ctx context.Context, ticketID, actor, note string) (*models.Ticket, error) {
	hadAssignment := false
	var previousAssignee *string
	ticket, err := c.transition(ctx, ticketID, models.TicketStatusCancelled, actor, note,
		func(tx *sql.Tx, prev models.Ticket, now time.Time) error {
			previousAssignee = prev.AssignedContractorID
			res, err := tx.ExecContext(ctx, `
				UPDATE ticket_assignments
				SET status = $1, completed_at = $2
				WHERE ticket_id = $3 AND status = $4`,
				models.AssignmentCancelled, now, ticketID, models.AssignmentActive)
			if err != nil {
				return err
			}
			if affected, err := res.RowsAffected(); err == nil && affected > 0 {
				hadAssignment = true
			}
			return nil
		})
	if err != nil {
		return nil, err
	}

	if hadAssignment {
		metrics.ActiveAssignments.Dec()
	}
	if previousAssignee != nil {
		c.cache.InvalidateContractor(ctx, *previousAssignee, true)
	}
	return ticket, nil
}

// transition is the shared lock → validate → transition → record skeleton for
// the non-accept lifecycle operations.
func (c *Coordinator) transition(ctx context.Context, ticketID string, to models.TicketStatus, actor, note string,
	extra func(tx *sql.Tx, prev models.Ticket, now time.Time) error) (*models.Ticket, error) {

	return c.inTicketTx(ctx, ticketID, func(tx *sql.Tx, ticket *models.Ticket) error {
		if err := ValidateTransition(ticket.Status, to); err != nil {
			return err
		}

		now := time.Now().UTC()
		prev := *ticket
		assignee := ticket.AssignedContractorID
		// Cancellation clears the assignee; completion keeps it for the record.
		if to == models.TicketStatusCancelled {
			assignee = nil
		}
		if err := c.transitionTicket(ctx, tx, ticket, to, assignee, now); err != nil {
			return err
		}
		if err := extra(tx, prev, now); err != nil {
			return err
		}
		return c.recordHistory(ctx, tx, ticketID, prev.Status, to, actor, note, now)
	})
}

// ==========================
// Transaction Skeleton
// ==========================

// inTicketTx opens a serializable transaction, applies the lock timeout,
// locks the ticket row, runs fn, and commits. The returned ticket reflects
// the committed state.
func (c *Coordinator) inTicketTx(ctx context.Context, ticketID string, fn func(tx *sql.Tx, ticket *models.Ticket) error) (*models.Ticket, error) {
	tx, err := c.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable})
	if err != nil {
		return nil, svcerrors.NewDatabaseConnectionFailedError(err)
	}
	defer tx.Rollback()

	// SET LOCAL cannot take bind parameters; the value comes from config.
	if _, err := tx.ExecContext(ctx, fmt.Sprintf("SET LOCAL lock_timeout = '%dms'", c.lockTimeout.Milliseconds())); err != nil {
		return nil, c.classifyTxError(ticketID, err)
	}

	ticket, err := lockTicket(ctx, tx, ticketID)
	if err != nil {
		return nil, c.classifyTxError(ticketID, err)
	}

	if err := fn(tx, ticket); err != nil {
		return nil, c.classifyTxError(ticketID, err)
	}

	if err := tx.Commit(); err != nil {
		return nil, c.classifyTxError(ticketID, err)
	}
	return ticket, nil
}

func lockTicket(ctx context.Context, tx *sql.Tx, ticketID string) (*models.Ticket, error) {
	row := tx.QueryRowContext(ctx, `
		SELECT id, title, description, status, priority, tenant_id, unit_id,
		       assigned_contractor_id, version, created_at, updated_at
		FROM tickets
		WHERE id = $1
		FOR UPDATE`, ticketID)

	var t models.Ticket
	err := row.Scan(
		&t.ID, &t.Title, &t.Description, &t.Status, &t.Priority,
		&t.TenantID, &t.UnitID, &t.AssignedContractorID, &t.Version,
		&t.CreatedAt, &t.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, svcerrors.NewTicketNotFoundError(ticketID)
		}
		return nil, err
	}
	return &t, nil
}

// transitionTicket updates the row and mutates the in-memory ticket to the
// committed values.
func (c *Coordinator) transitionTicket(ctx context.Context, tx *sql.Tx, ticket *models.Ticket, to models.TicketStatus, contractorID *string, now time.Time) error {
	_, err := tx.ExecContext(ctx, `
		UPDATE tickets
		SET status = $1, assigned_contractor_id = $2, version = version + 1, updated_at = $3
		WHERE id = $4`,
		to, contractorID, now, ticket.ID)
	if err != nil {
		return err
	}

	ticket.Status = to
	ticket.AssignedContractorID = contractorID
	ticket.Version++
	ticket.UpdatedAt = now
	return nil
}

func (c *Coordinator) recordHistory(ctx context.Context, tx *sql.Tx, ticketID string, from, to models.TicketStatus, actor, note string, now time.Time) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO ticket_state_history (id, ticket_id, from_status, to_status, actor, note, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		uuid.New().String(), ticketID, from, to, actor, note, now)
	return err
}

// classifyTxError maps serialization failures and lock timeouts to the same
// conflict callers see for a failed precondition. Service errors pass through.
func (c *Coordinator) classifyTxError(ticketID string, err error) error {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch string(pqErr.Code) {
		case pgSerializationFailure, pgLockNotAvailable:
			metrics.AssignmentContentionTotal.Inc()
			return svcerrors.NewAssignmentContentionError(ticketID, err)
		}
	}

	var svcErr *svcerrors.ServiceError
	if errors.As(err, &svcErr) {
		return svcErr
	}
	return svcerrors.NewQueryExecutionFailedError("ticket_transition", err)
}
