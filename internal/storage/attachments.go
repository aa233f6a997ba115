package storage

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"homeservices/internal/workflow"
	"homeservices/pkg/db"
)

// Attachment references a stored file (technical report, photo) on a request.
// ObjectPath is the bucket-relative key; FileURL is what clients fetch.
type Attachment struct {
	ID         string    `json:"id"`
	RequestID  string    `json:"requestId"`
	UploadedBy string    `json:"uploadedBy"`
	FileURL    string    `json:"fileUrl"`
	ObjectPath string    `json:"-"`
	Kind       string    `json:"kind"` // report | photo | other
	CreatedAt  time.Time `json:"createdAt"`
}

type Repository struct {
	db db.Querier
}

func NewRepository(conn db.Querier) *Repository {
	return &Repository{db: conn}
}

func (r *Repository) Insert(ctx context.Context, requestID, uploadedBy, fileURL, objectPath, kind string) (*Attachment, error) {
	const q = `
INSERT INTO attachments (id, request_id, uploaded_by, file_url, object_path, kind)
VALUES ($1, $2, $3, $4, $5, $6)
RETURNING id, request_id, uploaded_by, file_url, object_path, kind, created_at
`
	var a Attachment
	if err := r.db.QueryRow(ctx, q, uuid.NewString(), requestID, uploadedBy, fileURL, objectPath, kind).Scan(
		&a.ID, &a.RequestID, &a.UploadedBy, &a.FileURL, &a.ObjectPath, &a.Kind, &a.CreatedAt,
	); err != nil {
		return nil, err
	}
	return &a, nil
}

func (r *Repository) Get(ctx context.Context, id string) (*Attachment, error) {
	const q = `
SELECT id, request_id, uploaded_by, file_url, object_path, kind, created_at
FROM attachments
WHERE id = $1
`
	var a Attachment
	if err := r.db.QueryRow(ctx, q, id).Scan(
		&a.ID, &a.RequestID, &a.UploadedBy, &a.FileURL, &a.ObjectPath, &a.Kind, &a.CreatedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, workflow.E(workflow.KindNotFound, "attachment not found")
		}
		return nil, err
	}
	return &a, nil
}

func (r *Repository) Delete(ctx context.Context, id string) error {
	_, err := r.db.Exec(ctx, `DELETE FROM attachments WHERE id = $1`, id)
	return err
}

func (r *Repository) ListByRequest(ctx context.Context, requestID string) ([]Attachment, error) {
	const q = `
SELECT id, request_id, uploaded_by, file_url, object_path, kind, created_at
FROM attachments
WHERE request_id = $1
ORDER BY created_at ASC
`
	rows, err := r.db.Query(ctx, q, requestID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Attachment
	for rows.Next() {
		var a Attachment
		if err := rows.Scan(&a.ID, &a.RequestID, &a.UploadedBy, &a.FileURL, &a.ObjectPath, &a.Kind, &a.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}
