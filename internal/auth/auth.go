// Package auth owns users, sessions, and the role/ownership checks gating
// every workflow operation. Bearer tokens are opaque random values; only their
// SHA-256 hash is stored, so a leaked sessions table cannot be replayed.
package auth

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"time"

	"homeservices/internal/workflow"
)

type Role string

const (
	RoleClient       Role = "client"
	RoleProfessional Role = "professional"
	RoleAdmin        Role = "admin"
)

func ParseRole(s string) (Role, error) {
	switch Role(s) {
	case RoleClient, RoleProfessional, RoleAdmin:
		return Role(s), nil
	default:
		return "", workflow.E(workflow.KindValidation, "unknown role")
	}
}

type User struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Name  string `json:"name"`
	Role  Role   `json:"role"`
}

type Session struct {
	TokenHash string
	UserID    string
	ExpiresAt time.Time
	RevokedAt *time.Time
}

// Validate applies the expiry/revocation rules; it is pure so the policy can
// be tested without a database.
func (s Session) Validate(now time.Time) error {
	if s.RevokedAt != nil {
		return workflow.E(workflow.KindUnauthenticated, "session revoked")
	}
	if !s.ExpiresAt.After(now) {
		return workflow.E(workflow.KindUnauthenticated, "session expired")
	}
	return nil
}

// NewToken returns an opaque bearer token and the hash under which its
// session row is stored.
func NewToken() (token, tokenHash string, err error) {
	var raw [32]byte
	if _, err := rand.Read(raw[:]); err != nil {
		return "", "", err
	}
	token = hex.EncodeToString(raw[:])
	return token, HashToken(token), nil
}

func HashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}
