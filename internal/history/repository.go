// Package history is the append-only audit trail of status transitions.
// Rows are written in the same transaction as the transition they record and
// are never updated or deleted.
package history

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"homeservices/pkg/db"
)

type Entry struct {
	ID        string    `json:"id"`
	RequestID string    `json:"requestId"`
	Status    string    `json:"status"`
	ChangedBy string    `json:"changedBy"`
	ChangedAt time.Time `json:"changedAt"`
	Notes     string    `json:"notes,omitempty"`
}

type Repository struct {
	db db.Querier
}

func NewRepository(conn db.Querier) *Repository {
	return &Repository{db: conn}
}

func Insert(ctx context.Context, tx pgx.Tx, requestID, status, changedBy string, changedAt time.Time, notes string) error {
	const q = `
INSERT INTO status_history (id, request_id, status, changed_by, changed_at, notes)
VALUES ($1, $2, $3, $4, $5, $6)
`
	_, err := tx.Exec(ctx, q, uuid.NewString(), requestID, status, changedBy, changedAt, notes)
	return err
}

func (r *Repository) ListByRequest(ctx context.Context, requestID string) ([]Entry, error) {
	const q = `
SELECT id, request_id, status, changed_by, changed_at, COALESCE(notes,'')
FROM status_history
WHERE request_id = $1
ORDER BY changed_at ASC, id ASC
`
	rows, err := r.db.Query(ctx, q, requestID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Entry
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.ID, &e.RequestID, &e.Status, &e.ChangedBy, &e.ChangedAt, &e.Notes); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}
