package request

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"homeservices/internal/api"
	"homeservices/internal/auth"
	"homeservices/internal/history"
	"homeservices/internal/timezone"
)

type Handlers struct {
	Svc     *Service
	History *history.Repository
	Log     *zap.Logger
}

func actorFrom(r *http.Request) (Actor, bool) {
	u := auth.UserFromContext(r.Context())
	if u == nil {
		return Actor{}, false
	}
	return Actor{UserID: u.ID, Role: u.Role}, true
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

type CreateRequest struct {
	ClientID          string `json:"clientId,omitempty"`
	Category          string `json:"category"`
	Description       string `json:"description"`
	AddressPostalCode string `json:"addressPostalCode"`
	RequestedLocal    string `json:"requestedLocal,omitempty"`
}

func (h Handlers) Create(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(r)
	if !ok {
		api.WriteError(w, http.StatusUnauthorized, "UNAUTHENTICATED", "missing session")
		return
	}
	var req CreateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.WriteError(w, http.StatusBadRequest, "VALIDATION_FAILED", "invalid json")
		return
	}
	sr, err := h.Svc.Create(r.Context(), actor, CreateInput{
		ClientID:          req.ClientID,
		Category:          req.Category,
		Description:       req.Description,
		AddressPostalCode: req.AddressPostalCode,
		RequestedLocal:    req.RequestedLocal,
	})
	if err != nil {
		api.WriteWorkflowError(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	_ = json.NewEncoder(w).Encode(map[string]any{"request": sr})
}

func (h Handlers) List(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(r)
	if !ok {
		api.WriteError(w, http.StatusUnauthorized, "UNAUTHENTICATED", "missing session")
		return
	}
	items, err := h.Svc.Requests.ListFor(r.Context(), actor.UserID, string(actor.Role))
	if err != nil {
		h.Log.Error("list requests", zap.Error(err))
		api.WriteError(w, http.StatusInternalServerError, "INTERNAL", "internal error")
		return
	}
	if items == nil {
		items = []ServiceRequest{}
	}
	writeJSON(w, map[string]any{"items": items})
}

func (h Handlers) Get(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(r)
	if !ok {
		api.WriteError(w, http.StatusUnauthorized, "UNAUTHENTICATED", "missing session")
		return
	}
	id := chi.URLParam(r, "id")
	sr, err := h.Svc.Get(r.Context(), actor, id)
	if err != nil {
		api.WriteWorkflowError(w, err)
		return
	}

	meta, _ := MetaOf(sr.Status)
	zone := timezone.Resolve(deref(sr.ServiceTimeZone), sr.AddressPostalCode)

	resp := map[string]any{
		"request":    sr,
		"statusMeta": meta,
		"timeZone":   zone,
	}
	// Local wall-time rendering of the proposal for form prefill.
	if sr.ProposedExecutionDate != nil {
		date, clock := timezone.UTCToLocalParts(sr.ProposedExecutionDate.Format(time.RFC3339), zone)
		resp["proposedLocal"] = map[string]string{"date": date, "time": clock}
	}
	// The confirmed visit time only renders once the workflow has reached
	// Agendado; a stale column on an earlier status is not surfaced.
	if sr.ScheduledStartDatetime != nil && Reached(sr.Status, StatusScheduled) {
		date, clock := timezone.UTCToLocalParts(sr.ScheduledStartDatetime.Format(time.RFC3339), zone)
		resp["scheduledLocal"] = map[string]string{"date": date, "time": clock}
	}
	writeJSON(w, resp)
}

func (h Handlers) ListHistory(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(r)
	if !ok {
		api.WriteError(w, http.StatusUnauthorized, "UNAUTHENTICATED", "missing session")
		return
	}
	id := chi.URLParam(r, "id")
	if _, err := h.Svc.Get(r.Context(), actor, id); err != nil {
		api.WriteWorkflowError(w, err)
		return
	}
	items, err := h.History.ListByRequest(r.Context(), id)
	if err != nil {
		h.Log.Error("list history", zap.Error(err))
		api.WriteError(w, http.StatusInternalServerError, "INTERNAL", "internal error")
		return
	}
	if items == nil {
		items = []history.Entry{}
	}
	writeJSON(w, map[string]any{"items": items})
}

type PatchStatusRequest struct {
	Status string `json:"status"`
	Notes  string `json:"notes,omitempty"`
}

func (h Handlers) PatchStatus(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(r)
	if !ok {
		api.WriteError(w, http.StatusUnauthorized, "UNAUTHENTICATED", "missing session")
		return
	}
	id := chi.URLParam(r, "id")
	var req PatchStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.WriteError(w, http.StatusBadRequest, "VALIDATION_FAILED", "invalid json")
		return
	}
	target, err := ParseStatus(req.Status)
	if err != nil {
		api.WriteError(w, http.StatusBadRequest, "VALIDATION_FAILED", "invalid status")
		return
	}
	sr, err := h.Svc.Transition(r.Context(), actor, id, target, req.Notes)
	if err != nil {
		api.WriteWorkflowError(w, err)
		return
	}
	writeJSON(w, map[string]any{"request": sr})
}

type SendQuoteRequest struct {
	Amount string `json:"amount"`
	Notes  string `json:"notes,omitempty"`
}

func (h Handlers) SendQuote(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(r)
	if !ok {
		api.WriteError(w, http.StatusUnauthorized, "UNAUTHENTICATED", "missing session")
		return
	}
	id := chi.URLParam(r, "id")
	var req SendQuoteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.WriteError(w, http.StatusBadRequest, "VALIDATION_FAILED", "invalid json")
		return
	}
	amount, err := decimal.NewFromString(req.Amount)
	if err != nil {
		api.WriteError(w, http.StatusBadRequest, "VALIDATION_FAILED", "invalid amount")
		return
	}
	sr, err := h.Svc.SendQuote(r.Context(), actor, id, amount, req.Notes)
	if err != nil {
		api.WriteWorkflowError(w, err)
		return
	}
	writeJSON(w, map[string]any{"request": sr})
}

type DecisionRequest struct {
	Decision string `json:"decision"`
	Reason   string `json:"reason,omitempty"`
}

func (h Handlers) DecideQuote(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(r)
	if !ok {
		api.WriteError(w, http.StatusUnauthorized, "UNAUTHENTICATED", "missing session")
		return
	}
	id := chi.URLParam(r, "id")
	var req DecisionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.WriteError(w, http.StatusBadRequest, "VALIDATION_FAILED", "invalid json")
		return
	}
	decision, err := ParseDecision(req.Decision)
	if err != nil {
		api.WriteWorkflowError(w, err)
		return
	}
	sr, err := h.Svc.DecideQuote(r.Context(), actor, id, decision, req.Reason)
	if err != nil {
		api.WriteWorkflowError(w, err)
		return
	}
	writeJSON(w, map[string]any{"request": sr})
}

type ProposeDateRequest struct {
	// Date is the zone-local wall time "2006-01-02T15:04".
	Date  string `json:"date"`
	Notes string `json:"notes,omitempty"`
}

func (h Handlers) ProposeDate(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(r)
	if !ok {
		api.WriteError(w, http.StatusUnauthorized, "UNAUTHENTICATED", "missing session")
		return
	}
	id := chi.URLParam(r, "id")
	var req ProposeDateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.WriteError(w, http.StatusBadRequest, "VALIDATION_FAILED", "invalid json")
		return
	}
	sr, err := h.Svc.ProposeDate(r.Context(), actor, id, req.Date, req.Notes)
	if err != nil {
		api.WriteWorkflowError(w, err)
		return
	}
	writeJSON(w, map[string]any{"request": sr})
}

func (h Handlers) DecideDate(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(r)
	if !ok {
		api.WriteError(w, http.StatusUnauthorized, "UNAUTHENTICATED", "missing session")
		return
	}
	id := chi.URLParam(r, "id")
	var req DecisionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.WriteError(w, http.StatusBadRequest, "VALIDATION_FAILED", "invalid json")
		return
	}
	decision, err := ParseDecision(req.Decision)
	if err != nil {
		api.WriteWorkflowError(w, err)
		return
	}
	sr, err := h.Svc.DecideDate(r.Context(), actor, id, decision, req.Reason)
	if err != nil {
		api.WriteWorkflowError(w, err)
		return
	}
	writeJSON(w, map[string]any{"request": sr})
}

type AssignRequest struct {
	ProfessionalID string `json:"professionalId"`
}

func (h Handlers) Assign(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(r)
	if !ok {
		api.WriteError(w, http.StatusUnauthorized, "UNAUTHENTICATED", "missing session")
		return
	}
	id := chi.URLParam(r, "id")
	var req AssignRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.WriteError(w, http.StatusBadRequest, "VALIDATION_FAILED", "invalid json")
		return
	}
	sr, err := h.Svc.AssignProfessional(r.Context(), actor, id, req.ProfessionalID)
	if err != nil {
		api.WriteWorkflowError(w, err)
		return
	}
	writeJSON(w, map[string]any{"request": sr})
}

type CancelRequest struct {
	Reason string `json:"reason,omitempty"`
}

func (h Handlers) Cancel(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(r)
	if !ok {
		api.WriteError(w, http.StatusUnauthorized, "UNAUTHENTICATED", "missing session")
		return
	}
	id := chi.URLParam(r, "id")
	var req CancelRequest
	_ = json.NewDecoder(r.Body).Decode(&req)

	sr, err := h.Svc.Transition(r.Context(), actor, id, StatusCancelled, req.Reason)
	if err != nil {
		api.WriteWorkflowError(w, err)
		return
	}
	writeJSON(w, map[string]any{"request": sr})
}

// Statuses exposes the taxonomy with its display metadata for dashboards.
func (h Handlers) Statuses(w http.ResponseWriter, r *http.Request) {
	type entry struct {
		Status Status `json:"status"`
		Meta
		Terminal bool `json:"terminal"`
	}
	var out []entry
	for _, s := range AllStatuses() {
		m, _ := MetaOf(s)
		out = append(out, entry{Status: s, Meta: m, Terminal: IsTerminal(s)})
	}
	writeJSON(w, map[string]any{"items": out})
}
