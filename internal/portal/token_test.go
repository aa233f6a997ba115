package portal

import (
	"strings"
	"testing"
	"time"
)

func signer() LinkSigner {
	return LinkSigner{Secret: "test-secret", TTL: time.Hour, BaseURL: "https://portal.example.test"}
}

func TestSignAndVerify(t *testing.T) {
	s := signer()
	tok, err := s.Sign("req-1", "client-1", time.Now())
	if err != nil {
		t.Fatalf("sign: %v", err)
	}

	claims, err := s.Verify(tok)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if claims.RequestID != "req-1" || claims.ClientID != "client-1" {
		t.Fatalf("claims mismatch: %+v", claims)
	}
	if claims.Purpose != PurposeDecision {
		t.Fatalf("unexpected purpose %q", claims.Purpose)
	}
}

func TestVerify_Expired(t *testing.T) {
	s := signer()
	tok, err := s.Sign("req-1", "client-1", time.Now().Add(-2*time.Hour))
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	if _, err := s.Verify(tok); err == nil {
		t.Fatalf("expected error for expired link")
	}
}

func TestVerify_WrongSecret(t *testing.T) {
	tok, err := signer().Sign("req-1", "client-1", time.Now())
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	other := LinkSigner{Secret: "other-secret", TTL: time.Hour}
	if _, err := other.Verify(tok); err == nil {
		t.Fatalf("expected error for forged link")
	}
}

func TestVerify_Garbage(t *testing.T) {
	if _, err := signer().Verify("not-a-token"); err == nil {
		t.Fatalf("expected error")
	}
}

func TestSign_MissingSecret(t *testing.T) {
	s := LinkSigner{TTL: time.Hour}
	if _, err := s.Sign("req-1", "client-1", time.Now()); err == nil {
		t.Fatalf("expected configuration error")
	}
}

func TestLink_ContainsBaseURL(t *testing.T) {
	link, err := signer().Link("req-1", "client-1")
	if err != nil {
		t.Fatalf("link: %v", err)
	}
	if !strings.HasPrefix(link, "https://portal.example.test/portal/") {
		t.Fatalf("unexpected link %q", link)
	}
}
