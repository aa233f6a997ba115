package request

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"homeservices/internal/workflow"
	"homeservices/pkg/db"
)

// ServiceRequest is the aggregate root. Timestamps are UTC; the zone-local
// rendering happens at the boundary using ServiceTimeZone.
type ServiceRequest struct {
	ID               string  `json:"id"`
	ClientID         string  `json:"clientId"`
	ProfessionalID   *string `json:"professionalId,omitempty"`
	CreatedByAdminID *string `json:"createdByAdminId,omitempty"`

	Category    string `json:"category"`
	Description string `json:"description"`

	AddressPostalCode string  `json:"addressPostalCode"`
	ServiceTimeZone   *string `json:"serviceTimeZone,omitempty"`

	Status Status `json:"status"`

	RequestedDatetime *time.Time `json:"requestedDatetime,omitempty"`

	QuoteAmount *decimal.Decimal `json:"quoteAmount,omitempty"`
	QuoteNotes  *string          `json:"quoteNotes,omitempty"`

	ProposedExecutionDate   *time.Time `json:"proposedExecutionDate,omitempty"`
	ProposedExecutionNotes  *string    `json:"proposedExecutionNotes,omitempty"`
	ExecutionDateProposedAt *time.Time `json:"executionDateProposedAt,omitempty"`

	ExecutionDateApproval        *string    `json:"executionDateApproval,omitempty"`
	ExecutionDateApprovedAt      *time.Time `json:"executionDateApprovedAt,omitempty"`
	ExecutionDateRejectionReason *string    `json:"executionDateRejectionReason,omitempty"`

	ScheduledStartDatetime *time.Time `json:"scheduledStartDatetime,omitempty"`

	IsPaid    bool      `json:"isPaid"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

const selectColumns = `
id, client_id, professional_id, created_by_admin_id,
category, description, address_postal_code, service_time_zone,
status, requested_datetime,
quote_amount, quote_notes,
proposed_execution_date, proposed_execution_notes, execution_date_proposed_at,
execution_date_approval, execution_date_approved_at, execution_date_rejection_reason,
scheduled_start_datetime, is_paid, created_at, updated_at
`

func scanRequest(row pgx.Row) (*ServiceRequest, error) {
	var sr ServiceRequest
	var status string
	if err := row.Scan(
		&sr.ID, &sr.ClientID, &sr.ProfessionalID, &sr.CreatedByAdminID,
		&sr.Category, &sr.Description, &sr.AddressPostalCode, &sr.ServiceTimeZone,
		&status, &sr.RequestedDatetime,
		&sr.QuoteAmount, &sr.QuoteNotes,
		&sr.ProposedExecutionDate, &sr.ProposedExecutionNotes, &sr.ExecutionDateProposedAt,
		&sr.ExecutionDateApproval, &sr.ExecutionDateApprovedAt, &sr.ExecutionDateRejectionReason,
		&sr.ScheduledStartDatetime, &sr.IsPaid, &sr.CreatedAt, &sr.UpdatedAt,
	); err != nil {
		return nil, err
	}
	parsed, err := ParseStatus(status)
	if err != nil {
		// A row outside the closed taxonomy is corrupted data, not a request
		// in some implicit extra state.
		return nil, workflow.Wrap(workflow.KindConfiguration, "persisted status outside taxonomy", err)
	}
	sr.Status = parsed
	return &sr, nil
}

type Repository struct {
	db db.Querier
}

func NewRepository(conn db.Querier) *Repository {
	return &Repository{db: conn}
}

type CreateParams struct {
	ClientID          string
	CreatedByAdminID  *string
	Category          string
	Description       string
	AddressPostalCode string
	ServiceTimeZone   string
	RequestedDatetime *time.Time
}

// Create inserts the aggregate inside the caller's transaction so the initial
// history row commits with it.
func Create(ctx context.Context, tx pgx.Tx, p CreateParams) (*ServiceRequest, error) {
	const q = `
INSERT INTO service_requests (
  id, client_id, created_by_admin_id, category, description,
  address_postal_code, service_time_zone, status, requested_datetime
)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
RETURNING ` + selectColumns
	row := tx.QueryRow(ctx, q,
		uuid.NewString(), p.ClientID, p.CreatedByAdminID, p.Category, p.Description,
		p.AddressPostalCode, p.ServiceTimeZone, string(StatusRequested), p.RequestedDatetime,
	)
	return scanRequest(row)
}

func (r *Repository) GetByID(ctx context.Context, id string) (*ServiceRequest, error) {
	const q = `SELECT ` + selectColumns + ` FROM service_requests WHERE id = $1`
	sr, err := scanRequest(r.db.QueryRow(ctx, q, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, workflow.E(workflow.KindNotFound, "service request not found")
		}
		return nil, err
	}
	return sr, nil
}

// ListFor returns the requests visible to an actor: clients and professionals
// see their own, administrators see everything.
func (r *Repository) ListFor(ctx context.Context, userID, role string) ([]ServiceRequest, error) {
	q := `SELECT ` + selectColumns + ` FROM service_requests `
	var args []any
	switch role {
	case "client":
		q += `WHERE client_id = $1 `
		args = append(args, userID)
	case "professional":
		q += `WHERE professional_id = $1 `
		args = append(args, userID)
	}
	q += `ORDER BY created_at DESC`

	rows, err := r.db.Query(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []ServiceRequest
	for rows.Next() {
		sr, err := scanRequest(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *sr)
	}
	return out, rows.Err()
}

// GetForUpdate locks the aggregate row for the duration of the transaction so
// check-then-set sequences cannot interleave.
func GetForUpdate(ctx context.Context, tx pgx.Tx, id string) (*ServiceRequest, error) {
	const q = `SELECT ` + selectColumns + ` FROM service_requests WHERE id = $1 FOR UPDATE`
	sr, err := scanRequest(tx.QueryRow(ctx, q, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, workflow.E(workflow.KindNotFound, "service request not found")
		}
		return nil, err
	}
	return sr, nil
}

// UpdateStatus applies a conditional status write. A zero row count means the
// status moved under us since the guard check.
func UpdateStatus(ctx context.Context, tx pgx.Tx, id string, expected, next Status) error {
	const q = `
UPDATE service_requests
SET status = $1, updated_at = NOW()
WHERE id = $2 AND status = $3
`
	tag, err := tx.Exec(ctx, q, string(next), id, string(expected))
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return workflow.E(workflow.KindInvalidTransition, "request status changed concurrently")
	}
	return nil
}

func setProposal(ctx context.Context, tx pgx.Tx, id string, date time.Time, notes string, proposedAt time.Time) error {
	const q = `
UPDATE service_requests
SET proposed_execution_date = $1,
    proposed_execution_notes = $2,
    execution_date_proposed_at = $3,
    execution_date_approval = NULL,
    execution_date_approved_at = NULL,
    execution_date_rejection_reason = NULL,
    updated_at = NOW()
WHERE id = $4
`
	_, err := tx.Exec(ctx, q, date, notes, proposedAt, id)
	return err
}

// setDateApproved records the approval and promotes the proposed date into
// scheduled_start_datetime. The proposal columns are cleared in the same
// statement: a proposal only exists while a decision is pending.
func setDateApproved(ctx context.Context, tx pgx.Tx, id string, approvedAt time.Time, scheduledStart time.Time) error {
	const q = `
UPDATE service_requests
SET execution_date_approval = 'approved',
    execution_date_approved_at = $1,
    scheduled_start_datetime = $2,
    proposed_execution_date = NULL,
    proposed_execution_notes = NULL,
    execution_date_proposed_at = NULL,
    updated_at = NOW()
WHERE id = $3
`
	_, err := tx.Exec(ctx, q, approvedAt, scheduledStart, id)
	return err
}

func setDateRejected(ctx context.Context, tx pgx.Tx, id string, decidedAt time.Time, reason string) error {
	const q = `
UPDATE service_requests
SET execution_date_approval = 'rejected',
    execution_date_approved_at = $1,
    execution_date_rejection_reason = $2,
    proposed_execution_date = NULL,
    scheduled_start_datetime = NULL,
    updated_at = NOW()
WHERE id = $3
`
	_, err := tx.Exec(ctx, q, decidedAt, reason, id)
	return err
}

func setQuote(ctx context.Context, tx pgx.Tx, id string, amount decimal.Decimal, notes string) error {
	const q = `
UPDATE service_requests
SET quote_amount = $1, quote_notes = $2, updated_at = NOW()
WHERE id = $3
`
	_, err := tx.Exec(ctx, q, amount, notes, id)
	return err
}

func setProfessional(ctx context.Context, tx pgx.Tx, id, professionalID string) error {
	const q = `
UPDATE service_requests
SET professional_id = $1, updated_at = NOW()
WHERE id = $2
`
	_, err := tx.Exec(ctx, q, professionalID, id)
	return err
}

func setPaid(ctx context.Context, tx pgx.Tx, id string) error {
	const q = `
UPDATE service_requests
SET is_paid = TRUE, updated_at = NOW()
WHERE id = $1
`
	_, err := tx.Exec(ctx, q, id)
	return err
}
