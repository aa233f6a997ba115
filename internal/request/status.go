package request

import "fmt"

// Status is the closed workflow vocabulary. The string values are the
// canonical persisted labels; comparison is exact, so a value that differs in
// case or accents is a data error, never a near-match.
type Status string

const (
	StatusRequested                        Status = "Solicitado"
	StatusUnderReview                      Status = "Em análise"
	StatusAwaitingClarification            Status = "Aguardando esclarecimentos"
	StatusQuoteSent                        Status = "Orçamento enviado"
	StatusAwaitingQuoteApproval            Status = "Aguardando aprovação do orçamento"
	StatusQuoteApproved                    Status = "Orçamento aprovado"
	StatusQuoteRejected                    Status = "Orçamento rejeitado"
	StatusAwaitingExecutionDate            Status = "Aguardando data de execução"
	StatusDateProposed                     Status = "Data proposta pelo administrador"
	StatusAwaitingDateApproval             Status = "Aguardando aprovação da data"
	StatusDateApproved                     Status = "Data aprovada pelo cliente"
	StatusDateRejected                     Status = "Data rejeitada pelo cliente"
	StatusSearchingProfessional            Status = "Buscando profissional"
	StatusProfessionalSelected             Status = "Profissional selecionado"
	StatusAwaitingProfessionalConfirmation Status = "Aguardando confirmação do profissional"
	StatusScheduled                        Status = "Agendado"
	StatusInProgress                       Status = "Em andamento"
	StatusCompletedAwaitingApproval        Status = "Concluído - aguardando aprovação"
	StatusApprovedByClient                 Status = "Aprovado pelo cliente"
	StatusRejectedByClient                 Status = "Rejeitado pelo cliente"
	StatusPaid                             Status = "Pago"
	StatusFinalized                        Status = "Finalizado"
	StatusCancelled                        Status = "Cancelado"
)

// ordered lists every status in workflow order. It drives rank comparisons
// ("has the request reached Agendado yet?") and the closed-set check.
var ordered = []Status{
	StatusRequested,
	StatusUnderReview,
	StatusAwaitingClarification,
	StatusQuoteSent,
	StatusAwaitingQuoteApproval,
	StatusQuoteApproved,
	StatusQuoteRejected,
	StatusAwaitingExecutionDate,
	StatusDateProposed,
	StatusAwaitingDateApproval,
	StatusDateApproved,
	StatusDateRejected,
	StatusSearchingProfessional,
	StatusProfessionalSelected,
	StatusAwaitingProfessionalConfirmation,
	StatusScheduled,
	StatusInProgress,
	StatusCompletedAwaitingApproval,
	StatusApprovedByClient,
	StatusRejectedByClient,
	StatusPaid,
	StatusFinalized,
	StatusCancelled,
}

var rank = func() map[Status]int {
	m := make(map[Status]int, len(ordered))
	for i, s := range ordered {
		m[s] = i
	}
	return m
}()

// Meta is dashboard display metadata. The workflow core never consults it;
// transition legality lives in allowedTransitions.
type Meta struct {
	Color           string `json:"color"`
	LocalizationKey string `json:"localizationKey"`
}

var statusMeta = map[Status]Meta{
	StatusRequested:                        {Color: "#607d8b", LocalizationKey: "status.requested"},
	StatusUnderReview:                      {Color: "#2196f3", LocalizationKey: "status.under_review"},
	StatusAwaitingClarification:            {Color: "#03a9f4", LocalizationKey: "status.awaiting_clarification"},
	StatusQuoteSent:                        {Color: "#9c27b0", LocalizationKey: "status.quote_sent"},
	StatusAwaitingQuoteApproval:            {Color: "#ab47bc", LocalizationKey: "status.awaiting_quote_approval"},
	StatusQuoteApproved:                    {Color: "#7b1fa2", LocalizationKey: "status.quote_approved"},
	StatusQuoteRejected:                    {Color: "#e53935", LocalizationKey: "status.quote_rejected"},
	StatusAwaitingExecutionDate:            {Color: "#ff9800", LocalizationKey: "status.awaiting_execution_date"},
	StatusDateProposed:                     {Color: "#fb8c00", LocalizationKey: "status.date_proposed"},
	StatusAwaitingDateApproval:             {Color: "#ffa726", LocalizationKey: "status.awaiting_date_approval"},
	StatusDateApproved:                     {Color: "#43a047", LocalizationKey: "status.date_approved"},
	StatusDateRejected:                     {Color: "#ef5350", LocalizationKey: "status.date_rejected"},
	StatusSearchingProfessional:            {Color: "#00acc1", LocalizationKey: "status.searching_professional"},
	StatusProfessionalSelected:             {Color: "#00897b", LocalizationKey: "status.professional_selected"},
	StatusAwaitingProfessionalConfirmation: {Color: "#26a69a", LocalizationKey: "status.awaiting_professional_confirmation"},
	StatusScheduled:                        {Color: "#3f51b5", LocalizationKey: "status.scheduled"},
	StatusInProgress:                       {Color: "#5c6bc0", LocalizationKey: "status.in_progress"},
	StatusCompletedAwaitingApproval:        {Color: "#8d6e63", LocalizationKey: "status.completed_awaiting_approval"},
	StatusApprovedByClient:                 {Color: "#66bb6a", LocalizationKey: "status.approved_by_client"},
	StatusRejectedByClient:                 {Color: "#d32f2f", LocalizationKey: "status.rejected_by_client"},
	StatusPaid:                             {Color: "#2e7d32", LocalizationKey: "status.paid"},
	StatusFinalized:                        {Color: "#1b5e20", LocalizationKey: "status.finalized"},
	StatusCancelled:                        {Color: "#9e9e9e", LocalizationKey: "status.cancelled"},
}

func ParseStatus(s string) (Status, error) {
	if _, ok := rank[Status(s)]; ok {
		return Status(s), nil
	}
	return "", fmt.Errorf("unknown status: %q", s)
}

func MetaOf(s Status) (Meta, bool) {
	m, ok := statusMeta[s]
	return m, ok
}

func AllStatuses() []Status {
	out := make([]Status, len(ordered))
	copy(out, ordered)
	return out
}

func IsTerminal(s Status) bool {
	return s == StatusFinalized || s == StatusCancelled
}

// Reached reports whether current sits at or past the milestone in workflow
// order. Used for the invariant that scheduled_start_datetime is set exactly
// from Agendado onward.
func Reached(current, milestone Status) bool {
	cr, ok := rank[current]
	if !ok {
		return false
	}
	mr, ok := rank[milestone]
	if !ok {
		return false
	}
	return cr >= mr
}

var allowedTransitions = map[Status]map[Status]bool{
	StatusRequested:             {StatusUnderReview: true},
	StatusUnderReview:           {StatusAwaitingClarification: true, StatusQuoteSent: true},
	StatusAwaitingClarification: {StatusUnderReview: true, StatusQuoteSent: true},
	StatusQuoteSent:             {StatusAwaitingQuoteApproval: true},
	StatusAwaitingQuoteApproval: {StatusQuoteApproved: true, StatusQuoteRejected: true},
	// A rejected quote can be renegotiated.
	StatusQuoteRejected: {StatusQuoteSent: true},
	// After quote approval the administrator either proposes a date directly
	// or sources a professional first.
	StatusQuoteApproved:         {StatusAwaitingExecutionDate: true, StatusDateProposed: true, StatusSearchingProfessional: true},
	StatusAwaitingExecutionDate: {StatusDateProposed: true, StatusSearchingProfessional: true},
	StatusDateProposed:          {StatusAwaitingDateApproval: true},
	StatusAwaitingDateApproval:  {StatusDateApproved: true, StatusDateRejected: true},
	StatusDateApproved:          {StatusScheduled: true, StatusSearchingProfessional: true},
	// A rejected date loops back so the administrator can re-propose.
	StatusDateRejected:          {StatusDateProposed: true, StatusAwaitingExecutionDate: true},
	StatusSearchingProfessional: {StatusProfessionalSelected: true},
	StatusProfessionalSelected:  {StatusAwaitingProfessionalConfirmation: true},
	// A confirmed professional lands in Agendado when the date is already
	// approved, or back in the date sub-machine when it is not; a decline
	// restarts the search.
	StatusAwaitingProfessionalConfirmation: {StatusScheduled: true, StatusAwaitingExecutionDate: true, StatusSearchingProfessional: true},
	StatusScheduled:                 {StatusInProgress: true},
	StatusInProgress:                {StatusCompletedAwaitingApproval: true},
	StatusCompletedAwaitingApproval: {StatusApprovedByClient: true, StatusRejectedByClient: true},
	// Client rejection of the delivered work sends it back for rework.
	StatusRejectedByClient: {StatusInProgress: true},
	StatusApprovedByClient: {StatusPaid: true},
	StatusPaid:             {StatusFinalized: true},
	StatusFinalized:        {},
	StatusCancelled:        {},
}

// CanTransition reports whether the workflow permits moving from one status to
// the next. Cancellation is legal from every non-terminal status.
func CanTransition(from, to Status) bool {
	if _, ok := rank[from]; !ok {
		return false
	}
	if to == StatusCancelled {
		return !IsTerminal(from)
	}
	m, ok := allowedTransitions[from]
	if !ok {
		return false
	}
	return m[to]
}
