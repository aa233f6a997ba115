package request

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"homeservices/internal/auth"
	"homeservices/internal/history"
	"homeservices/internal/notify"
	"homeservices/internal/timezone"
	"homeservices/internal/workflow"
	"homeservices/pkg/db"
)

// Service is the sole mutator of ServiceRequest.status. Every operation runs
// as one transaction: row lock, guard checks, conditional status write,
// history append. Notifications go out only after the commit.
type Service struct {
	DB       db.Beginner
	Requests *Repository
	Users    *auth.Repository
	Notify   *notify.Dispatcher
	Log      *zap.Logger
}

type CreateInput struct {
	ClientID          string
	Category          string
	Description       string
	AddressPostalCode string
	// RequestedLocal is the client's wall time "2006-01-02T15:04"; it is
	// interpreted in the resolved service zone.
	RequestedLocal string
}

func (s *Service) Create(ctx context.Context, actor Actor, in CreateInput) (*ServiceRequest, error) {
	clientID := in.ClientID
	var createdByAdmin *string
	switch actor.Role {
	case auth.RoleClient:
		// Clients can only file for themselves.
		clientID = actor.UserID
	case auth.RoleAdmin:
		if strings.TrimSpace(clientID) == "" {
			return nil, workflow.E(workflow.KindValidation, "clientId is required")
		}
		adminID := actor.UserID
		createdByAdmin = &adminID
	default:
		return nil, workflow.E(workflow.KindInvalidActor, "professionals may not create requests")
	}
	if strings.TrimSpace(in.Category) == "" || strings.TrimSpace(in.Description) == "" {
		return nil, workflow.E(workflow.KindValidation, "category and description are required")
	}

	zone := timezone.Resolve("", in.AddressPostalCode)

	var requestedAt *time.Time
	if strings.TrimSpace(in.RequestedLocal) != "" {
		t, err := timezone.LocalToUTC(in.RequestedLocal, zone)
		if err != nil {
			return nil, err
		}
		requestedAt = &t
	}

	var created *ServiceRequest
	err := db.WithTx(ctx, s.DB, func(tx pgx.Tx) error {
		sr, err := Create(ctx, tx, CreateParams{
			ClientID:          clientID,
			CreatedByAdminID:  createdByAdmin,
			Category:          in.Category,
			Description:       in.Description,
			AddressPostalCode: in.AddressPostalCode,
			ServiceTimeZone:   zone,
			RequestedDatetime: requestedAt,
		})
		if err != nil {
			return err
		}
		created = sr
		return history.Insert(ctx, tx, sr.ID, string(StatusRequested), actor.UserID, time.Now(), "")
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

func (s *Service) Get(ctx context.Context, actor Actor, id string) (*ServiceRequest, error) {
	sr, err := s.Requests.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := mayView(sr, actor); err != nil {
		return nil, err
	}
	return sr, nil
}

func mayView(sr *ServiceRequest, actor Actor) error {
	switch actor.Role {
	case auth.RoleAdmin:
		return nil
	case auth.RoleClient:
		if sr.ClientID == actor.UserID {
			return nil
		}
	case auth.RoleProfessional:
		if sr.ProfessionalID != nil && *sr.ProfessionalID == actor.UserID {
			return nil
		}
	}
	return workflow.E(workflow.KindForbidden, "not allowed to view this request")
}

// Transition drives a single legal edge of the taxonomy. Target-specific side
// effects (marking payment) stay inside the same transaction.
func (s *Service) Transition(ctx context.Context, actor Actor, id string, target Status, notes string) (*ServiceRequest, error) {
	var updated *ServiceRequest
	err := db.WithTx(ctx, s.DB, func(tx pgx.Tx) error {
		sr, err := GetForUpdate(ctx, tx, id)
		if err != nil {
			return err
		}
		if err := validateTransition(sr, target, actor); err != nil {
			return err
		}
		if err := UpdateStatus(ctx, tx, sr.ID, sr.Status, target); err != nil {
			return err
		}
		if target == StatusPaid {
			if err := setPaid(ctx, tx, sr.ID); err != nil {
				return err
			}
			sr.IsPaid = true
		}
		if err := history.Insert(ctx, tx, sr.ID, string(target), actor.UserID, time.Now(), notes); err != nil {
			return err
		}
		sr.Status = target
		updated = sr
		return nil
	})
	if err != nil {
		return nil, err
	}
	return s.reload(ctx, id, updated)
}

// ProposeDate runs the administrator half of the scheduling sub-machine. The
// request passes through "Data proposta pelo administrador" into "Aguardando
// aprovação da data" as one committed transition; both states land in history
// because admin and client dashboards surface different ones.
func (s *Service) ProposeDate(ctx context.Context, actor Actor, id, dateLocal, notes string) (*ServiceRequest, error) {
	var updated *ServiceRequest
	var clientID string
	err := db.WithTx(ctx, s.DB, func(tx pgx.Tx) error {
		sr, err := GetForUpdate(ctx, tx, id)
		if err != nil {
			return err
		}
		if err := validatePropose(sr, actor); err != nil {
			return err
		}

		zone := timezone.Resolve(deref(sr.ServiceTimeZone), sr.AddressPostalCode)
		proposed, err := timezone.LocalToUTC(dateLocal, zone)
		if err != nil {
			return err
		}

		now := time.Now()
		if err := setProposal(ctx, tx, sr.ID, proposed, notes, now); err != nil {
			return err
		}
		if err := UpdateStatus(ctx, tx, sr.ID, sr.Status, StatusDateProposed); err != nil {
			return err
		}
		if err := UpdateStatus(ctx, tx, sr.ID, StatusDateProposed, StatusAwaitingDateApproval); err != nil {
			return err
		}
		if err := history.Insert(ctx, tx, sr.ID, string(StatusDateProposed), actor.UserID, now, notes); err != nil {
			return err
		}
		if err := history.Insert(ctx, tx, sr.ID, string(StatusAwaitingDateApproval), actor.UserID, now, ""); err != nil {
			return err
		}
		sr.Status = StatusAwaitingDateApproval
		sr.ProposedExecutionDate = &proposed
		sr.ExecutionDateProposedAt = &now
		updated = sr
		clientID = sr.ClientID
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.notifyClient(ctx, id, clientID,
		"Nova data de execução proposta",
		"Foi proposta uma data para a execução do seu serviço. Aceda ao portal para aprovar ou rejeitar.")

	return s.reload(ctx, id, updated)
}

// DecideDate runs the client half of the scheduling sub-machine.
func (s *Service) DecideDate(ctx context.Context, actor Actor, id string, decision Decision, reason string) (*ServiceRequest, error) {
	var updated *ServiceRequest
	err := db.WithTx(ctx, s.DB, func(tx pgx.Tx) error {
		sr, err := GetForUpdate(ctx, tx, id)
		if err != nil {
			return err
		}
		if err := validateDecideDate(sr, actor, decision, reason); err != nil {
			return err
		}

		now := time.Now()
		if decision == DecisionApproved {
			scheduled := *sr.ProposedExecutionDate
			if err := setDateApproved(ctx, tx, sr.ID, now, scheduled); err != nil {
				return err
			}
			if err := UpdateStatus(ctx, tx, sr.ID, sr.Status, StatusDateApproved); err != nil {
				return err
			}
			if err := UpdateStatus(ctx, tx, sr.ID, StatusDateApproved, StatusScheduled); err != nil {
				return err
			}
			if err := history.Insert(ctx, tx, sr.ID, string(StatusDateApproved), actor.UserID, now, ""); err != nil {
				return err
			}
			if err := history.Insert(ctx, tx, sr.ID, string(StatusScheduled), actor.UserID, now, ""); err != nil {
				return err
			}
			sr.Status = StatusScheduled
			sr.ScheduledStartDatetime = &scheduled
			sr.ProposedExecutionDate = nil
			sr.ProposedExecutionNotes = nil
			sr.ExecutionDateProposedAt = nil
		} else {
			if err := setDateRejected(ctx, tx, sr.ID, now, reason); err != nil {
				return err
			}
			if err := UpdateStatus(ctx, tx, sr.ID, sr.Status, StatusDateRejected); err != nil {
				return err
			}
			if err := history.Insert(ctx, tx, sr.ID, string(StatusDateRejected), actor.UserID, now, reason); err != nil {
				return err
			}
			sr.Status = StatusDateRejected
			sr.ProposedExecutionDate = nil
		}
		updated = sr
		return nil
	})
	if err != nil {
		return nil, err
	}

	if decision == DecisionApproved {
		s.Notify.NotifyOps("Data de execução aprovada",
			fmt.Sprintf("O cliente aprovou a data proposta para o pedido %s.", id))
	} else {
		s.Notify.NotifyOps("Data de execução rejeitada",
			fmt.Sprintf("O cliente rejeitou a data proposta para o pedido %s: %s", id, reason))
	}

	return s.reload(ctx, id, updated)
}

// SendQuote moves the request through "Orçamento enviado" into "Aguardando
// aprovação do orçamento" and records the quoted amount.
func (s *Service) SendQuote(ctx context.Context, actor Actor, id string, amount decimal.Decimal, notes string) (*ServiceRequest, error) {
	if amount.LessThanOrEqual(decimal.Zero) {
		return nil, workflow.E(workflow.KindValidation, "quote amount must be positive")
	}

	var updated *ServiceRequest
	var clientID string
	err := db.WithTx(ctx, s.DB, func(tx pgx.Tx) error {
		sr, err := GetForUpdate(ctx, tx, id)
		if err != nil {
			return err
		}
		if err := validateSendQuote(sr, actor); err != nil {
			return err
		}

		now := time.Now()
		if err := setQuote(ctx, tx, sr.ID, amount, notes); err != nil {
			return err
		}
		if err := UpdateStatus(ctx, tx, sr.ID, sr.Status, StatusQuoteSent); err != nil {
			return err
		}
		if err := UpdateStatus(ctx, tx, sr.ID, StatusQuoteSent, StatusAwaitingQuoteApproval); err != nil {
			return err
		}
		if err := history.Insert(ctx, tx, sr.ID, string(StatusQuoteSent), actor.UserID, now, notes); err != nil {
			return err
		}
		if err := history.Insert(ctx, tx, sr.ID, string(StatusAwaitingQuoteApproval), actor.UserID, now, ""); err != nil {
			return err
		}
		sr.Status = StatusAwaitingQuoteApproval
		sr.QuoteAmount = &amount
		updated = sr
		clientID = sr.ClientID
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.notifyClient(ctx, id, clientID,
		"Orçamento disponível",
		fmt.Sprintf("O orçamento do seu pedido está disponível: %s EUR.", amount.StringFixed(2)))

	return s.reload(ctx, id, updated)
}

func (s *Service) DecideQuote(ctx context.Context, actor Actor, id string, decision Decision, reason string) (*ServiceRequest, error) {
	var updated *ServiceRequest
	err := db.WithTx(ctx, s.DB, func(tx pgx.Tx) error {
		sr, err := GetForUpdate(ctx, tx, id)
		if err != nil {
			return err
		}
		if err := validateDecideQuote(sr, actor, decision, reason); err != nil {
			return err
		}

		target := StatusQuoteApproved
		if decision == DecisionRejected {
			target = StatusQuoteRejected
		}
		now := time.Now()
		if err := UpdateStatus(ctx, tx, sr.ID, sr.Status, target); err != nil {
			return err
		}
		if err := history.Insert(ctx, tx, sr.ID, string(target), actor.UserID, now, reason); err != nil {
			return err
		}
		sr.Status = target
		updated = sr
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.Notify.NotifyOps("Decisão de orçamento",
		fmt.Sprintf("O cliente respondeu ao orçamento do pedido %s: %s.", id, decision))

	return s.reload(ctx, id, updated)
}

// AssignProfessional attaches a professional to the request. From "Buscando
// profissional" it also advances the workflow to await the professional's
// confirmation; on an already-scheduled request only the assignment changes.
func (s *Service) AssignProfessional(ctx context.Context, actor Actor, id, professionalID string) (*ServiceRequest, error) {
	if strings.TrimSpace(professionalID) == "" {
		return nil, workflow.E(workflow.KindValidation, "professionalId is required")
	}
	pro, err := s.Users.GetUser(ctx, professionalID)
	if err != nil {
		return nil, err
	}
	if pro.Role != auth.RoleProfessional {
		return nil, workflow.E(workflow.KindValidation, "user is not a professional")
	}

	var updated *ServiceRequest
	err = db.WithTx(ctx, s.DB, func(tx pgx.Tx) error {
		sr, err := GetForUpdate(ctx, tx, id)
		if err != nil {
			return err
		}
		if err := validateAssign(sr, actor); err != nil {
			return err
		}

		now := time.Now()
		if err := setProfessional(ctx, tx, sr.ID, professionalID); err != nil {
			return err
		}
		if sr.Status == StatusSearchingProfessional {
			if err := UpdateStatus(ctx, tx, sr.ID, sr.Status, StatusProfessionalSelected); err != nil {
				return err
			}
			if err := UpdateStatus(ctx, tx, sr.ID, StatusProfessionalSelected, StatusAwaitingProfessionalConfirmation); err != nil {
				return err
			}
			if err := history.Insert(ctx, tx, sr.ID, string(StatusProfessionalSelected), actor.UserID, now, professionalID); err != nil {
				return err
			}
			if err := history.Insert(ctx, tx, sr.ID, string(StatusAwaitingProfessionalConfirmation), actor.UserID, now, ""); err != nil {
				return err
			}
			sr.Status = StatusAwaitingProfessionalConfirmation
		} else if err := history.Insert(ctx, tx, sr.ID, string(sr.Status), actor.UserID, now, "professional assigned: "+professionalID); err != nil {
			return err
		}
		sr.ProfessionalID = &professionalID
		updated = sr
		return nil
	})
	if err != nil {
		return nil, err
	}
	return s.reload(ctx, id, updated)
}

// reload fetches the committed row for the response. The fallback is the
// locked snapshot with the transition's changes applied in memory, so a
// read-back failure never reports the pre-transition state.
func (s *Service) reload(ctx context.Context, id string, fallback *ServiceRequest) (*ServiceRequest, error) {
	sr, err := s.Requests.GetByID(ctx, id)
	if err != nil {
		// The transition committed; a read-back failure shouldn't mask that.
		s.Log.Warn("reload after transition", zap.Error(err))
		return fallback, nil
	}
	return sr, nil
}

func (s *Service) notifyClient(ctx context.Context, requestID, clientID, subject, body string) {
	u, err := s.Users.GetUser(ctx, clientID)
	if err != nil {
		s.Log.Warn("lookup client for notification", zap.Error(err))
		return
	}
	s.Notify.NotifyClient(requestID, clientID, u.Email, subject, body)
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
