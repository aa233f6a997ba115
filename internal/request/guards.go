package request

import (
	"strings"

	"homeservices/internal/auth"
	"homeservices/internal/workflow"
)

// Actor is the authenticated party invoking an operation.
type Actor struct {
	UserID string
	Role   auth.Role
}

type Decision string

const (
	DecisionApproved Decision = "approved"
	DecisionRejected Decision = "rejected"
)

func ParseDecision(s string) (Decision, error) {
	switch Decision(s) {
	case DecisionApproved, DecisionRejected:
		return Decision(s), nil
	default:
		return "", workflow.E(workflow.KindValidation, "decision must be approved or rejected")
	}
}

// clientTargets are the statuses a client may drive on their own request.
var clientTargets = map[Status]bool{
	StatusQuoteApproved:    true,
	StatusQuoteRejected:    true,
	StatusDateApproved:     true,
	StatusDateRejected:     true,
	StatusApprovedByClient: true,
	StatusRejectedByClient: true,
	StatusCancelled:        true,
}

// professionalTargets are the statuses an assigned professional may drive:
// confirming or declining the assignment, then starting and finishing the
// visit.
var professionalTargets = map[Status]bool{
	StatusScheduled:                 true,
	StatusAwaitingExecutionDate:     true,
	StatusSearchingProfessional:     true,
	StatusInProgress:                true,
	StatusCompletedAwaitingApproval: true,
}

// validateTransition enforces both legality of the edge and the actor's right
// to drive it. It is checked before any mutation.
func validateTransition(sr *ServiceRequest, target Status, actor Actor) error {
	if !CanTransition(sr.Status, target) {
		return workflow.E(workflow.KindInvalidTransition, "transition not allowed from current status")
	}
	switch actor.Role {
	case auth.RoleAdmin:
		return nil
	case auth.RoleClient:
		if sr.ClientID != actor.UserID {
			return workflow.E(workflow.KindInvalidActor, "request belongs to another client")
		}
		if !clientTargets[target] {
			return workflow.E(workflow.KindInvalidActor, "clients may not drive this transition")
		}
		return nil
	case auth.RoleProfessional:
		if sr.ProfessionalID == nil || *sr.ProfessionalID != actor.UserID {
			return workflow.E(workflow.KindInvalidActor, "request is assigned to another professional")
		}
		if !professionalTargets[target] {
			return workflow.E(workflow.KindInvalidActor, "professionals may not drive this transition")
		}
		return nil
	default:
		return workflow.E(workflow.KindInvalidActor, "unknown actor role")
	}
}

// proposalSources are the statuses an administrator may propose a date from:
// an approved quote, an explicit waiting state, or a prior rejection.
var proposalSources = map[Status]bool{
	StatusQuoteApproved:         true,
	StatusAwaitingExecutionDate: true,
	StatusDateRejected:          true,
}

func validatePropose(sr *ServiceRequest, actor Actor) error {
	if actor.Role != auth.RoleAdmin {
		return workflow.E(workflow.KindInvalidActor, "only administrators may propose an execution date")
	}
	if !proposalSources[sr.Status] {
		return workflow.E(workflow.KindInvalidState, "request is not awaiting an execution date")
	}
	return nil
}

func validateDecideDate(sr *ServiceRequest, actor Actor, decision Decision, reason string) error {
	if actor.Role != auth.RoleClient || sr.ClientID != actor.UserID {
		return workflow.E(workflow.KindInvalidActor, "only the request's client may decide the execution date")
	}
	if sr.Status != StatusAwaitingDateApproval {
		return workflow.E(workflow.KindInvalidState, "request is not awaiting a date decision")
	}
	if sr.ProposedExecutionDate == nil {
		return workflow.E(workflow.KindInvalidState, "no execution date has been proposed")
	}
	if decision == DecisionRejected && strings.TrimSpace(reason) == "" {
		return workflow.E(workflow.KindMissingReason, "a rejection reason is required")
	}
	return nil
}

// quoteSources are the statuses an administrator may send a quote from.
var quoteSources = map[Status]bool{
	StatusUnderReview:           true,
	StatusAwaitingClarification: true,
	StatusQuoteRejected:         true,
}

func validateSendQuote(sr *ServiceRequest, actor Actor) error {
	if actor.Role != auth.RoleAdmin {
		return workflow.E(workflow.KindInvalidActor, "only administrators may send a quote")
	}
	if !quoteSources[sr.Status] {
		return workflow.E(workflow.KindInvalidState, "request is not in a quotable state")
	}
	return nil
}

func validateDecideQuote(sr *ServiceRequest, actor Actor, decision Decision, reason string) error {
	if actor.Role != auth.RoleClient || sr.ClientID != actor.UserID {
		return workflow.E(workflow.KindInvalidActor, "only the request's client may decide the quote")
	}
	if sr.Status != StatusAwaitingQuoteApproval {
		return workflow.E(workflow.KindInvalidState, "request is not awaiting a quote decision")
	}
	if decision == DecisionRejected && strings.TrimSpace(reason) == "" {
		return workflow.E(workflow.KindMissingReason, "a rejection reason is required")
	}
	return nil
}

// assignSources are the statuses an administrator may attach a professional in.
var assignSources = map[Status]bool{
	StatusDateApproved:          true,
	StatusSearchingProfessional: true,
	StatusScheduled:             true,
}

func validateAssign(sr *ServiceRequest, actor Actor) error {
	if actor.Role != auth.RoleAdmin {
		return workflow.E(workflow.KindInvalidActor, "only administrators may assign a professional")
	}
	if !assignSources[sr.Status] {
		return workflow.E(workflow.KindInvalidState, "request is not ready for assignment")
	}
	return nil
}
