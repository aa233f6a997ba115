// Package portal serves the client-facing decision endpoints reached from
// emailed links. Links are short-lived signed tokens, not sessions: they
// authorize exactly one client on exactly one request.
package portal

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"homeservices/internal/workflow"
)

type LinkClaims struct {
	jwt.RegisteredClaims
	RequestID string `json:"rid"`
	ClientID  string `json:"cid"`
	Purpose   string `json:"purpose"`
}

const PurposeDecision = "execution-date-decision"

type LinkSigner struct {
	Secret  string
	TTL     time.Duration
	BaseURL string
}

func (s LinkSigner) Sign(requestID, clientID string, now time.Time) (string, error) {
	if s.Secret == "" {
		return "", workflow.E(workflow.KindConfiguration, "portal link secret not configured")
	}
	claims := LinkClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.TTL)),
		},
		RequestID: requestID,
		ClientID:  clientID,
		Purpose:   PurposeDecision,
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(s.Secret))
}

// Link builds the full portal URL embedded in notification emails.
func (s LinkSigner) Link(requestID, clientID string) (string, error) {
	tok, err := s.Sign(requestID, clientID, time.Now())
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%s/portal/%s", s.BaseURL, tok), nil
}

func (s LinkSigner) Verify(token string) (*LinkClaims, error) {
	if s.Secret == "" {
		return nil, workflow.E(workflow.KindConfiguration, "portal link secret not configured")
	}
	var claims LinkClaims
	_, err := jwt.ParseWithClaims(token, &claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return []byte(s.Secret), nil
	}, jwt.WithValidMethods([]string{"HS256"}))
	if err != nil {
		return nil, workflow.Wrap(workflow.KindUnauthenticated, "invalid or expired portal link", err)
	}
	if claims.Purpose != PurposeDecision || claims.RequestID == "" || claims.ClientID == "" {
		return nil, workflow.E(workflow.KindUnauthenticated, "invalid or expired portal link")
	}
	return &claims, nil
}
