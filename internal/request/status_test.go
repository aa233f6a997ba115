package request

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseStatus_ClosedSet(t *testing.T) {
	for _, s := range AllStatuses() {
		got, err := ParseStatus(string(s))
		require.NoError(t, err)
		assert.Equal(t, s, got)
	}

	_, err := ParseStatus("Em Análise") // wrong case
	assert.Error(t, err, "status comparison must be case-sensitive")

	_, err = ParseStatus("Orcamento aprovado") // missing cedilla/accent
	assert.Error(t, err, "status comparison must be accent-sensitive")

	_, err = ParseStatus("")
	assert.Error(t, err)
}

func TestEveryStatusHasMetadata(t *testing.T) {
	for _, s := range AllStatuses() {
		m, ok := MetaOf(s)
		require.True(t, ok, "missing metadata for %q", s)
		assert.NotEmpty(t, m.Color)
		assert.NotEmpty(t, m.LocalizationKey)
	}
}

func TestCanTransition_LinearPath(t *testing.T) {
	legal := [][2]Status{
		{StatusRequested, StatusUnderReview},
		{StatusUnderReview, StatusQuoteSent},
		{StatusQuoteSent, StatusAwaitingQuoteApproval},
		{StatusAwaitingQuoteApproval, StatusQuoteApproved},
		{StatusQuoteApproved, StatusDateProposed},
		{StatusDateProposed, StatusAwaitingDateApproval},
		{StatusAwaitingDateApproval, StatusDateApproved},
		{StatusAwaitingDateApproval, StatusDateRejected},
		{StatusDateRejected, StatusDateProposed},
		{StatusDateApproved, StatusScheduled},
		{StatusScheduled, StatusInProgress},
		{StatusInProgress, StatusCompletedAwaitingApproval},
		{StatusCompletedAwaitingApproval, StatusApprovedByClient},
		{StatusApprovedByClient, StatusPaid},
		{StatusPaid, StatusFinalized},
	}
	for _, edge := range legal {
		assert.True(t, CanTransition(edge[0], edge[1]), "%s -> %s should be legal", edge[0], edge[1])
	}

	illegal := [][2]Status{
		{StatusRequested, StatusScheduled},
		{StatusScheduled, StatusRequested},
		{StatusAwaitingDateApproval, StatusScheduled},
		{StatusPaid, StatusInProgress},
		{StatusFinalized, StatusRequested},
	}
	for _, edge := range illegal {
		assert.False(t, CanTransition(edge[0], edge[1]), "%s -> %s should be illegal", edge[0], edge[1])
	}
}

func TestCanTransition_CancelFromAnyNonTerminal(t *testing.T) {
	for _, s := range AllStatuses() {
		got := CanTransition(s, StatusCancelled)
		if IsTerminal(s) {
			assert.False(t, got, "cancel from terminal %q must be illegal", s)
		} else {
			assert.True(t, got, "cancel from %q must be legal", s)
		}
	}
}

func TestCanTransition_TerminalStatusesHaveNoSuccessors(t *testing.T) {
	for _, target := range AllStatuses() {
		assert.False(t, CanTransition(StatusFinalized, target))
		assert.False(t, CanTransition(StatusCancelled, target))
	}
}

func TestSearchingProfessionalReachableBeforeDateProposal(t *testing.T) {
	var predecessors []Status
	for _, s := range AllStatuses() {
		if s != StatusSearchingProfessional && CanTransition(s, StatusSearchingProfessional) {
			predecessors = append(predecessors, s)
		}
	}
	// The search must be startable from a resting status, not only from the
	// transient DateApproved.
	assert.Contains(t, predecessors, StatusQuoteApproved)
	assert.Contains(t, predecessors, StatusAwaitingExecutionDate)

	// The full pre-date path: source a professional, get confirmation, then
	// run the date sub-machine.
	chain := [][2]Status{
		{StatusQuoteApproved, StatusSearchingProfessional},
		{StatusSearchingProfessional, StatusProfessionalSelected},
		{StatusProfessionalSelected, StatusAwaitingProfessionalConfirmation},
		{StatusAwaitingProfessionalConfirmation, StatusAwaitingExecutionDate},
		{StatusAwaitingExecutionDate, StatusDateProposed},
	}
	for _, edge := range chain {
		assert.True(t, CanTransition(edge[0], edge[1]), "%s -> %s should be legal", edge[0], edge[1])
	}

	// A declined assignment restarts the search.
	assert.True(t, CanTransition(StatusAwaitingProfessionalConfirmation, StatusSearchingProfessional))
}

func TestCanTransition_UnknownStatus(t *testing.T) {
	assert.False(t, CanTransition(Status("Desconhecido"), StatusUnderReview))
	assert.False(t, CanTransition(Status("Desconhecido"), StatusCancelled))
	assert.False(t, CanTransition(StatusRequested, Status("Desconhecido")))
}

func TestReached(t *testing.T) {
	assert.True(t, Reached(StatusScheduled, StatusScheduled))
	assert.True(t, Reached(StatusInProgress, StatusScheduled))
	assert.False(t, Reached(StatusAwaitingDateApproval, StatusScheduled))
	assert.False(t, Reached(Status("Desconhecido"), StatusScheduled))
}
