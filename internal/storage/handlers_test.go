package storage

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/pashagolub/pgxmock/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"homeservices/internal/auth"
	"homeservices/internal/request"
)

type fakeStore struct {
	deleted []string
	err     error
}

func (f *fakeStore) List(ctx context.Context, prefix string) ([]ObjectInfo, error) { return nil, nil }
func (f *fakeStore) Upload(ctx context.Context, path, contentType string, body io.Reader) (string, error) {
	return "", nil
}
func (f *fakeStore) Delete(ctx context.Context, path string) error {
	f.deleted = append(f.deleted, path)
	return f.err
}

var requestColumns = []string{
	"id", "client_id", "professional_id", "created_by_admin_id",
	"category", "description", "address_postal_code", "service_time_zone",
	"status", "requested_datetime",
	"quote_amount", "quote_notes",
	"proposed_execution_date", "proposed_execution_notes", "execution_date_proposed_at",
	"execution_date_approval", "execution_date_approved_at", "execution_date_rejection_reason",
	"scheduled_start_datetime", "is_paid", "created_at", "updated_at",
}

var attachmentColumns = []string{
	"id", "request_id", "uploaded_by", "file_url", "object_path", "kind", "created_at",
}

func ownedRequestRow() *pgxmock.Rows {
	stamp := time.Date(2026, 2, 20, 8, 0, 0, 0, time.UTC)
	return pgxmock.NewRows(requestColumns).AddRow(
		"req-1", "client-1", nil, nil,
		"Canalização", "Torneira a pingar", "1000-001", nil,
		"Agendado", nil,
		nil, nil,
		nil, nil, nil,
		nil, nil, nil,
		nil, false, stamp, stamp,
	)
}

func attachmentRow(uploadedBy string) *pgxmock.Rows {
	stamp := time.Date(2026, 2, 21, 9, 0, 0, 0, time.UTC)
	return pgxmock.NewRows(attachmentColumns).AddRow(
		"att-1", "req-1", uploadedBy,
		"https://storage.example.test/object/public/attachments/req-1/foto.jpg",
		"req-1/foto.jpg", "photo", stamp,
	)
}

func deleteRequest(user *auth.User) *http.Request {
	r := httptest.NewRequest(http.MethodDelete, "/requests/req-1/attachments/att-1", nil)
	return r.WithContext(auth.WithUser(r.Context(), user))
}

func serveDelete(t *testing.T, h Handlers, r *http.Request) *httptest.ResponseRecorder {
	t.Helper()
	router := chi.NewRouter()
	router.Delete("/requests/{id}/attachments/{attachmentID}", h.Delete)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, r)
	return rec
}

func TestDelete_RemovesObjectThenRecord(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectQuery("FROM service_requests").
		WithArgs("req-1").
		WillReturnRows(ownedRequestRow())
	mock.ExpectQuery("FROM attachments").
		WithArgs("att-1").
		WillReturnRows(attachmentRow("client-1"))
	mock.ExpectExec("DELETE FROM attachments").
		WithArgs("att-1").
		WillReturnResult(pgxmock.NewResult("DELETE", 1))

	store := &fakeStore{}
	h := Handlers{
		Repo:  NewRepository(mock),
		Store: store,
		Svc:   &request.Service{DB: mock, Requests: request.NewRepository(mock), Log: zap.NewNop()},
		Log:   zap.NewNop(),
	}

	rec := serveDelete(t, h, deleteRequest(&auth.User{ID: "client-1", Role: auth.RoleClient}))

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, []string{"req-1/foto.jpg"}, store.deleted)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestDelete_OnlyUploaderOrAdmin(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectQuery("FROM service_requests").
		WithArgs("req-1").
		WillReturnRows(ownedRequestRow())
	mock.ExpectQuery("FROM attachments").
		WithArgs("att-1").
		WillReturnRows(attachmentRow("admin-1"))

	store := &fakeStore{}
	h := Handlers{
		Repo:  NewRepository(mock),
		Store: store,
		Svc:   &request.Service{DB: mock, Requests: request.NewRepository(mock), Log: zap.NewNop()},
		Log:   zap.NewNop(),
	}

	// The client owns the request but did not upload the file.
	rec := serveDelete(t, h, deleteRequest(&auth.User{ID: "client-1", Role: auth.RoleClient}))

	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Empty(t, store.deleted, "the object must survive a denied delete")
	require.NoError(t, mock.ExpectationsWereMet())
}
