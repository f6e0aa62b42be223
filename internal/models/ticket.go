// internal/models/ticket.go
package models

import "time"

// TicketStatus enumerates the ticket lifecycle states.
type TicketStatus string

const (
	TicketStatusNew        TicketStatus = "new"
	TicketStatusTriaged    TicketStatus = "triaged"
	TicketStatusAssigned   TicketStatus = "assigned"
	TicketStatusInProgress TicketStatus = "in_progress"
	TicketStatusCompleted  TicketStatus = "completed"
	TicketStatusCancelled  TicketStatus = "cancelled"
)

// TicketPriority enumerates urgency levels.
type TicketPriority string

const (
	TicketPriorityLow    TicketPriority = "low"
	TicketPriorityMedium TicketPriority = "medium"
	TicketPriorityHigh   TicketPriority = "high"
	TicketPriorityUrgent TicketPriority = "urgent"
)

// Ticket is a maintenance request. Status moves only through the assignment
// coordinator's state machine; the version counter increments on every
// transition.
type Ticket struct {
	ID                   string         `json:"id"`
	Title                string         `json:"title"`
	Description          string         `json:"description"`
	Status               TicketStatus   `json:"status"`
	Priority             TicketPriority `json:"priority"`
	TenantID             string         `json:"tenantId"`
	UnitID               string         `json:"unitId"`
	AssignedContractorID *string        `json:"assignedContractorId"`
	Version              int64          `json:"version"`
	CreatedAt            time.Time      `json:"createdAt"`
	UpdatedAt            time.Time      `json:"updatedAt"`
}

// AssignmentStatus tracks a TicketAssignment row's lifecycle.
type AssignmentStatus string

const (
	AssignmentActive    AssignmentStatus = "active"
	AssignmentCompleted AssignmentStatus = "completed"
	AssignmentCancelled AssignmentStatus = "cancelled"
)

// TicketAssignment records one successful acceptance of a ticket by a
// contractor. At most one live (active) assignment exists per ticket.
type TicketAssignment struct {
	ID           string           `json:"id"`
	TicketID     string           `json:"ticketId"`
	ContractorID string           `json:"contractorId"`
	Status       AssignmentStatus `json:"status"`
	AcceptedAt   time.Time        `json:"acceptedAt"`
	ScheduledAt  *time.Time       `json:"scheduledAt,omitempty"`
	CompletedAt  *time.Time       `json:"completedAt,omitempty"`
}

// TicketStateHistory is one append-only entry in a ticket's transition log.
type TicketStateHistory struct {
	ID         string       `json:"id"`
	TicketID   string       `json:"ticketId"`
	FromStatus TicketStatus `json:"fromStatus"`
	ToStatus   TicketStatus `json:"toStatus"`
	Actor      string       `json:"actor"`
	Note       string       `json:"note,omitempty"`
	CreatedAt  time.Time    `json:"createdAt"`
}
