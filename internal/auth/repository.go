package auth

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"

	"homeservices/internal/workflow"
	"homeservices/pkg/db"
)

type Repository struct {
	db db.Querier
}

func NewRepository(conn db.Querier) *Repository {
	return &Repository{db: conn}
}

type userWithHash struct {
	User
	PasswordHash string
}

func (r *Repository) findUserByEmail(ctx context.Context, email string) (*userWithHash, error) {
	const q = `
SELECT id, email, COALESCE(name,''), role, password_hash
FROM users
WHERE lower(email) = lower($1)
`
	var u userWithHash
	var role string
	if err := r.db.QueryRow(ctx, q, email).Scan(&u.ID, &u.Email, &u.Name, &role, &u.PasswordHash); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, workflow.E(workflow.KindUnauthenticated, "invalid credentials")
		}
		return nil, err
	}
	u.Role = Role(role)
	return &u, nil
}

func (r *Repository) GetUser(ctx context.Context, id string) (*User, error) {
	const q = `SELECT id, email, COALESCE(name,''), role FROM users WHERE id = $1`
	var u User
	var role string
	if err := r.db.QueryRow(ctx, q, id).Scan(&u.ID, &u.Email, &u.Name, &role); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, workflow.E(workflow.KindNotFound, "user not found")
		}
		return nil, err
	}
	u.Role = Role(role)
	return &u, nil
}

func (r *Repository) CreateSession(ctx context.Context, tokenHash, userID string, expiresAt time.Time) error {
	const q = `
INSERT INTO sessions (token_hash, user_id, expires_at)
VALUES ($1, $2, $3)
`
	_, err := r.db.Exec(ctx, q, tokenHash, userID, expiresAt)
	return err
}

// Authenticate resolves a bearer token to its user, enforcing the session
// expiry/revocation rules.
func (r *Repository) Authenticate(ctx context.Context, token string, now time.Time) (*User, error) {
	const q = `
SELECT s.token_hash, s.user_id, s.expires_at, s.revoked_at,
       u.id, u.email, COALESCE(u.name,''), u.role
FROM sessions s
JOIN users u ON u.id = s.user_id
WHERE s.token_hash = $1
`
	var sess Session
	var u User
	var role string
	err := r.db.QueryRow(ctx, q, HashToken(token)).Scan(
		&sess.TokenHash, &sess.UserID, &sess.ExpiresAt, &sess.RevokedAt,
		&u.ID, &u.Email, &u.Name, &role,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, workflow.E(workflow.KindUnauthenticated, "unknown session")
		}
		return nil, err
	}
	if err := sess.Validate(now); err != nil {
		return nil, err
	}
	u.Role = Role(role)
	return &u, nil
}

func (r *Repository) RevokeSession(ctx context.Context, token string, now time.Time) error {
	const q = `
UPDATE sessions
SET revoked_at = $2
WHERE token_hash = $1 AND revoked_at IS NULL
`
	_, err := r.db.Exec(ctx, q, HashToken(token), now)
	return err
}
