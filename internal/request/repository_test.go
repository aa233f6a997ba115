package request

import (
	"context"
	"testing"
	"time"

	"github.com/pashagolub/pgxmock/v3"
	"github.com/stretchr/testify/require"

	"homeservices/internal/workflow"
)

func beginTx(t *testing.T) (pgxmock.PgxPoolIface, context.Context) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mock.Close)
	mock.ExpectBegin()
	return mock, context.Background()
}

func TestUpdateStatus_ConcurrentChangeLosesCleanly(t *testing.T) {
	mock, ctx := beginTx(t)
	mock.ExpectExec("SET status").
		WithArgs(string(StatusDateApproved), "req-1", string(StatusAwaitingDateApproval)).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	tx, err := mock.Begin(ctx)
	require.NoError(t, err)

	err = UpdateStatus(ctx, tx, "req-1", StatusAwaitingDateApproval, StatusDateApproved)
	require.Error(t, err)
	require.Equal(t, workflow.KindInvalidTransition, workflow.KindOf(err),
		"a lost race must surface as INVALID_TRANSITION, not succeed silently")

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateStatus_Applies(t *testing.T) {
	mock, ctx := beginTx(t)
	mock.ExpectExec("SET status").
		WithArgs(string(StatusScheduled), "req-1", string(StatusDateApproved)).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	tx, err := mock.Begin(ctx)
	require.NoError(t, err)

	require.NoError(t, UpdateStatus(ctx, tx, "req-1", StatusDateApproved, StatusScheduled))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSetDateApproved_ClearsProposal(t *testing.T) {
	mock, ctx := beginTx(t)
	approvedAt := time.Date(2026, 2, 1, 9, 0, 0, 0, time.UTC)
	scheduled := time.Date(2026, 2, 10, 14, 0, 0, 0, time.UTC)

	// The approval statement must null the proposal columns: a proposal only
	// exists while a decision is pending.
	mock.ExpectExec(`proposed_execution_date = NULL`).
		WithArgs(approvedAt, scheduled, "req-1").
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	tx, err := mock.Begin(ctx)
	require.NoError(t, err)

	require.NoError(t, setDateApproved(ctx, tx, "req-1", approvedAt, scheduled))
	require.NoError(t, mock.ExpectationsWereMet())
}
