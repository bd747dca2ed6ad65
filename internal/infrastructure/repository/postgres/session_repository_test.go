package postgres

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"

	"github.com/nkoval/form-autofill/internal/core/domain"
)

func newRepoWithMock(t *testing.T) (*SessionRepository, sqlmock.Sqlmock, func()) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New() error = %v", err)
	}
	return &SessionRepository{db: db}, mock, func() { _ = db.Close() }
}

func sessionColumns() []string {
	return []string{
		"id", "file_name", "file_size", "file_type", "storage_key", "state", "suggestions",
		"company_name", "email", "address", "submitted", "error_message", "created_at", "updated_at",
	}
}

func TestGetByIDReturnsSessionNotFound(t *testing.T) {
	repo, mock, done := newRepoWithMock(t)
	defer done()

	mock.ExpectQuery("SELECT id, file_name, file_size").
		WithArgs("missing").
		WillReturnError(sql.ErrNoRows)

	_, err := repo.GetByID(context.Background(), "missing")
	if !domain.IsKind(err, domain.ErrSessionNotFound) {
		t.Fatalf("expected ErrSessionNotFound, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestGetByIDDecodesSuggestions(t *testing.T) {
	repo, mock, done := newRepoWithMock(t)
	defer done()

	now := time.Now().UTC()
	rows := sqlmock.NewRows(sessionColumns()).AddRow(
		"up-1", "invoice.pdf", int64(52000), "application/pdf", "up-1_invoice.pdf",
		string(domain.StateSuggestionsReceived),
		[]byte(`{"companyNames":["Acme Corp"],"emails":["acme@co.com"],"fullAddresses":["1 Main St"]}`),
		"", "", "", false, "", now, now,
	)
	mock.ExpectQuery("SELECT id, file_name, file_size").
		WithArgs("up-1").
		WillReturnRows(rows)

	session, err := repo.GetByID(context.Background(), "up-1")
	if err != nil {
		t.Fatalf("GetByID() error = %v", err)
	}
	if session.State != domain.StateSuggestionsReceived {
		t.Fatalf("unexpected state %s", session.State)
	}
	if session.Suggestions == nil || session.Suggestions.CompanyNames[0] != "Acme Corp" {
		t.Fatalf("unexpected suggestions %+v", session.Suggestions)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestAdvanceStateRejectsIllegalTransitionWithoutQuery(t *testing.T) {
	repo, _, done := newRepoWithMock(t)
	defer done()

	err := repo.AdvanceState(context.Background(), "up-1",
		domain.StateWaitingForFile, domain.StateSuggestionsReceived)
	if !domain.IsKind(err, domain.ErrStateConflict) {
		t.Fatalf("expected ErrStateConflict, got %v", err)
	}
}

func TestAdvanceStateGuardedUpdate(t *testing.T) {
	repo, mock, done := newRepoWithMock(t)
	defer done()

	mock.ExpectExec("UPDATE upload_sessions").
		WithArgs("up-1", string(domain.StateWaitingForFile),
			string(domain.StateGettingFileTextContent), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.AdvanceState(context.Background(), "up-1",
		domain.StateWaitingForFile, domain.StateGettingFileTextContent)
	if err != nil {
		t.Fatalf("AdvanceState() error = %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestAdvanceStatePreconditionMissReturnsConflict(t *testing.T) {
	repo, mock, done := newRepoWithMock(t)
	defer done()

	mock.ExpectExec("UPDATE upload_sessions").
		WithArgs("up-1", string(domain.StateWaitingForFile),
			string(domain.StateGettingFileTextContent), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 0))

	now := time.Now().UTC()
	rows := sqlmock.NewRows(sessionColumns()).AddRow(
		"up-1", "invoice.pdf", int64(52000), "application/pdf", "up-1_invoice.pdf",
		string(domain.StateGettingSuggestions), nil,
		"", "", "", false, "", now, now,
	)
	mock.ExpectQuery("SELECT id, file_name, file_size").
		WithArgs("up-1").
		WillReturnRows(rows)

	err := repo.AdvanceState(context.Background(), "up-1",
		domain.StateWaitingForFile, domain.StateGettingFileTextContent)
	if !domain.IsKind(err, domain.ErrStateConflict) {
		t.Fatalf("expected ErrStateConflict, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestSaveSuggestionsAdvancesStateInOneStatement(t *testing.T) {
	repo, mock, done := newRepoWithMock(t)
	defer done()

	mock.ExpectExec("UPDATE upload_sessions").
		WithArgs("up-1", string(domain.StateGettingSuggestions), sqlmock.AnyArg(),
			string(domain.StateSuggestionsReceived), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.SaveSuggestions(context.Background(), "up-1", domain.SuggestionSet{
		CompanyNames:  []string{"Acme Corp"},
		Emails:        []string{"acme@co.com"},
		FullAddresses: []string{"1 Main St"},
	})
	if err != nil {
		t.Fatalf("SaveSuggestions() error = %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestMarkSubmittedReturnsNotFoundWhenNoRowsAffected(t *testing.T) {
	repo, mock, done := newRepoWithMock(t)
	defer done()

	mock.ExpectExec("UPDATE upload_sessions").
		WithArgs("missing", "Acme Corp", "acme@co.com", "1 Main St", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.MarkSubmitted(context.Background(), "missing", domain.FormValues{
		CompanyName: "Acme Corp",
		Email:       "acme@co.com",
		Address:     "1 Main St",
	})
	if !domain.IsKind(err, domain.ErrSessionNotFound) {
		t.Fatalf("expected ErrSessionNotFound, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}
