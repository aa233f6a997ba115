package portal

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"homeservices/internal/api"
	"homeservices/internal/auth"
	"homeservices/internal/request"
	"homeservices/internal/timezone"
)

type Handlers struct {
	Signer LinkSigner
	Svc    *request.Service
}

func (h Handlers) claims(w http.ResponseWriter, r *http.Request) *LinkClaims {
	token := chi.URLParam(r, "token")
	if token == "" {
		api.WriteError(w, http.StatusBadRequest, "VALIDATION_FAILED", "missing token")
		return nil
	}
	claims, err := h.Signer.Verify(token)
	if err != nil {
		api.WriteWorkflowError(w, err)
		return nil
	}
	return claims
}

// View renders the request for the link's client: status metadata plus the
// proposed date in the service's own zone.
func (h Handlers) View(w http.ResponseWriter, r *http.Request) {
	claims := h.claims(w, r)
	if claims == nil {
		return
	}
	actor := request.Actor{UserID: claims.ClientID, Role: auth.RoleClient}
	sr, err := h.Svc.Get(r.Context(), actor, claims.RequestID)
	if err != nil {
		api.WriteWorkflowError(w, err)
		return
	}

	meta, _ := request.MetaOf(sr.Status)
	zone := timezone.Resolve(derefStr(sr.ServiceTimeZone), sr.AddressPostalCode)
	resp := map[string]any{
		"request":    sr,
		"statusMeta": meta,
		"timeZone":   zone,
	}
	if sr.ProposedExecutionDate != nil {
		date, clock := timezone.UTCToLocalParts(sr.ProposedExecutionDate.Format(time.RFC3339), zone)
		resp["proposedLocal"] = map[string]string{"date": date, "time": clock}
	}
	if sr.ScheduledStartDatetime != nil && request.Reached(sr.Status, request.StatusScheduled) {
		date, clock := timezone.UTCToLocalParts(sr.ScheduledStartDatetime.Format(time.RFC3339), zone)
		resp["scheduledLocal"] = map[string]string{"date": date, "time": clock}
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(resp)
}

type decisionRequest struct {
	Decision string `json:"decision"`
	Reason   string `json:"reason,omitempty"`
}

// DecideDate applies the client's date decision through the same sub-machine
// as the authenticated API; the link only substitutes for the session.
func (h Handlers) DecideDate(w http.ResponseWriter, r *http.Request) {
	claims := h.claims(w, r)
	if claims == nil {
		return
	}
	var req decisionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.WriteError(w, http.StatusBadRequest, "VALIDATION_FAILED", "invalid json")
		return
	}
	decision, err := request.ParseDecision(req.Decision)
	if err != nil {
		api.WriteWorkflowError(w, err)
		return
	}

	actor := request.Actor{UserID: claims.ClientID, Role: auth.RoleClient}
	sr, err := h.Svc.DecideDate(r.Context(), actor, claims.RequestID, decision, req.Reason)
	if err != nil {
		api.WriteWorkflowError(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{"request": sr})
}

func derefStr(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
