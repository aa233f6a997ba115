package auth

import (
	"testing"
	"time"
)

func TestNewToken_HashMatches(t *testing.T) {
	token, tokenHash, err := NewToken()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if token == "" || tokenHash == "" {
		t.Fatalf("empty token or hash")
	}
	if token == tokenHash {
		t.Fatalf("token must not equal its stored hash")
	}
	if HashToken(token) != tokenHash {
		t.Fatalf("hash mismatch")
	}
}

func TestSessionValidate(t *testing.T) {
	now := time.Unix(1700000000, 0)

	ok := Session{ExpiresAt: now.Add(time.Hour)}
	if err := ok.Validate(now); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	expired := Session{ExpiresAt: now.Add(-time.Minute)}
	if err := expired.Validate(now); err == nil {
		t.Fatalf("expected error for expired session")
	}

	revokedAt := now.Add(-time.Hour)
	revoked := Session{ExpiresAt: now.Add(time.Hour), RevokedAt: &revokedAt}
	if err := revoked.Validate(now); err == nil {
		t.Fatalf("expected error for revoked session")
	}
}

func TestParseRole(t *testing.T) {
	for _, s := range []string{"client", "professional", "admin"} {
		if _, err := ParseRole(s); err != nil {
			t.Fatalf("unexpected error for %q: %v", s, err)
		}
	}
	if _, err := ParseRole("Client"); err == nil {
		t.Fatalf("role comparison must be exact")
	}
}
