package request

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/pashagolub/pgxmock/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"homeservices/internal/workflow"
)

var requestColumns = []string{
	"id", "client_id", "professional_id", "created_by_admin_id",
	"category", "description", "address_postal_code", "service_time_zone",
	"status", "requested_datetime",
	"quote_amount", "quote_notes",
	"proposed_execution_date", "proposed_execution_notes", "execution_date_proposed_at",
	"execution_date_approval", "execution_date_approved_at", "execution_date_rejection_reason",
	"scheduled_start_datetime", "is_paid", "created_at", "updated_at",
}

var (
	proposedAt = time.Date(2026, 3, 5, 10, 0, 0, 0, time.UTC)
	rowStamp   = time.Date(2026, 2, 20, 8, 0, 0, 0, time.UTC)
)

// awaitingDecisionRow is the locked snapshot of a request resting in
// "Aguardando aprovação da data" with a proposal on record.
func awaitingDecisionRow() *pgxmock.Rows {
	prop := proposedAt
	return pgxmock.NewRows(requestColumns).AddRow(
		"req-1", "client-1", nil, nil,
		"Canalização", "Torneira a pingar", "1000-001", nil,
		string(StatusAwaitingDateApproval), nil,
		nil, nil,
		&prop, nil, &prop,
		nil, nil, nil,
		nil, false, rowStamp, rowStamp,
	)
}

func scheduledRow() *pgxmock.Rows {
	sched := proposedAt
	return pgxmock.NewRows(requestColumns).AddRow(
		"req-1", "client-1", nil, nil,
		"Canalização", "Torneira a pingar", "1000-001", nil,
		string(StatusScheduled), nil,
		nil, nil,
		nil, nil, nil,
		nil, nil, nil,
		&sched, false, rowStamp, rowStamp,
	)
}

func newTestService(t *testing.T) (*Service, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mock.Close)
	return &Service{DB: mock, Requests: NewRepository(mock), Log: zap.NewNop()}, mock
}

// expectApprovalWrites queues the statements DecideDate(approved) must run
// inside the transaction, in order.
func expectApprovalWrites(mock pgxmock.PgxPoolIface) {
	mock.ExpectQuery("FOR UPDATE").
		WithArgs("req-1").
		WillReturnRows(awaitingDecisionRow())
	mock.ExpectExec(`proposed_execution_date = NULL`).
		WithArgs(pgxmock.AnyArg(), proposedAt, "req-1").
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	mock.ExpectExec("SET status").
		WithArgs(string(StatusDateApproved), "req-1", string(StatusAwaitingDateApproval)).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	mock.ExpectExec("SET status").
		WithArgs(string(StatusScheduled), "req-1", string(StatusDateApproved)).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	mock.ExpectExec("INSERT INTO status_history").
		WithArgs(pgxmock.AnyArg(), "req-1", string(StatusDateApproved), "client-1", pgxmock.AnyArg(), "").
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectExec("INSERT INTO status_history").
		WithArgs(pgxmock.AnyArg(), "req-1", string(StatusScheduled), "client-1", pgxmock.AnyArg(), "").
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
}

func TestDecideDate_ApprovedCommitsAtomically(t *testing.T) {
	svc, mock := newTestService(t)

	mock.ExpectBegin()
	expectApprovalWrites(mock)
	mock.ExpectCommit()
	// Post-commit read-back.
	mock.ExpectQuery("SELECT").
		WithArgs("req-1").
		WillReturnRows(scheduledRow())

	sr, err := svc.DecideDate(context.Background(), client, "req-1", DecisionApproved, "")
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())

	assert.Equal(t, StatusScheduled, sr.Status)
	assert.Nil(t, sr.ProposedExecutionDate, "proposal must be cleared once the date is approved")
	require.NotNil(t, sr.ScheduledStartDatetime)
	assert.True(t, sr.ScheduledStartDatetime.Equal(proposedAt))
}

func TestDecideDate_ConcurrentLoserRollsBack(t *testing.T) {
	svc, mock := newTestService(t)

	mock.ExpectBegin()
	mock.ExpectQuery("FOR UPDATE").
		WithArgs("req-1").
		WillReturnRows(awaitingDecisionRow())
	mock.ExpectExec(`proposed_execution_date = NULL`).
		WithArgs(pgxmock.AnyArg(), proposedAt, "req-1").
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	// The other decision committed between the lock and the guard write.
	mock.ExpectExec("SET status").
		WithArgs(string(StatusDateApproved), "req-1", string(StatusAwaitingDateApproval)).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))
	mock.ExpectRollback()

	_, err := svc.DecideDate(context.Background(), client, "req-1", DecisionApproved, "")
	require.Error(t, err)
	assert.Equal(t, workflow.KindInvalidTransition, workflow.KindOf(err))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestDecideDate_ReloadFailureReportsCommittedState(t *testing.T) {
	svc, mock := newTestService(t)

	mock.ExpectBegin()
	expectApprovalWrites(mock)
	mock.ExpectCommit()
	mock.ExpectQuery("SELECT").
		WithArgs("req-1").
		WillReturnError(errors.New("connection reset"))

	sr, err := svc.DecideDate(context.Background(), client, "req-1", DecisionApproved, "")
	require.NoError(t, err, "the transition committed; the read-back failure must not surface")
	require.NoError(t, mock.ExpectationsWereMet())

	// The fallback snapshot reflects the committed transition, not the state
	// the row was locked in.
	assert.Equal(t, StatusScheduled, sr.Status)
	assert.Nil(t, sr.ProposedExecutionDate)
	require.NotNil(t, sr.ScheduledStartDatetime)
	assert.True(t, sr.ScheduledStartDatetime.Equal(proposedAt))
}
