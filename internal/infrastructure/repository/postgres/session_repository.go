package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/nkoval/form-autofill/internal/core/domain"
)

type SessionRepository struct {
	db *sql.DB
}

func NewSessionRepository(db *sql.DB) *SessionRepository {
	return &SessionRepository{db: db}
}

func OpenDB(dsn string) (*sql.DB, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("sql open: %w", err)
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(30 * time.Minute)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("db ping: %w", err)
	}
	return db, nil
}

func (r *SessionRepository) EnsureSchema(ctx context.Context) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin schema tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	// Serialize bootstrap DDL across api/worker startups.
	if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock($1)`, int64(2026082901)); err != nil {
		return fmt.Errorf("acquire schema lock: %w", err)
	}

	const query = `
CREATE TABLE IF NOT EXISTS upload_sessions (
	id TEXT PRIMARY KEY,
	file_name TEXT NOT NULL,
	file_size BIGINT NOT NULL,
	file_type TEXT NOT NULL,
	storage_key TEXT NOT NULL,
	state TEXT NOT NULL,
	suggestions JSONB,
	company_name TEXT NOT NULL DEFAULT '',
	email TEXT NOT NULL DEFAULT '',
	address TEXT NOT NULL DEFAULT '',
	submitted BOOLEAN NOT NULL DEFAULT FALSE,
	error_message TEXT NOT NULL DEFAULT '',
	created_at TIMESTAMPTZ NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_upload_sessions_state ON upload_sessions(state);
CREATE INDEX IF NOT EXISTS idx_upload_sessions_created_at ON upload_sessions(created_at DESC);
`
	if _, err := tx.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("execute schema ddl: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit schema tx: %w", err)
	}
	return nil
}

func (r *SessionRepository) Create(ctx context.Context, session *domain.UploadSession) error {
	_, err := r.db.ExecContext(ctx, `
INSERT INTO upload_sessions (
	id, file_name, file_size, file_type, storage_key, state, company_name, email, address, submitted, error_message, created_at, updated_at
) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13)
`,
		session.ID, session.FileName, session.FileSize, session.FileType, session.StorageKey,
		string(session.State), session.Form.CompanyName, session.Form.Email, session.Form.Address,
		session.Submitted, session.Error, session.CreatedAt, session.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert upload session: %w", err)
	}
	return nil
}

func (r *SessionRepository) GetByID(ctx context.Context, id string) (*domain.UploadSession, error) {
	row := r.db.QueryRowContext(ctx, `
SELECT id, file_name, file_size, file_type, storage_key, state, suggestions, company_name, email, address, submitted, error_message, created_at, updated_at
FROM upload_sessions
WHERE id = $1
`, id)

	var session domain.UploadSession
	var suggestionsRaw []byte
	var state string

	err := row.Scan(
		&session.ID, &session.FileName, &session.FileSize, &session.FileType, &session.StorageKey,
		&state, &suggestionsRaw, &session.Form.CompanyName, &session.Form.Email, &session.Form.Address,
		&session.Submitted, &session.Error, &session.CreatedAt, &session.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.WrapError(domain.ErrSessionNotFound, "get session", fmt.Errorf("id %s", id))
		}
		return nil, fmt.Errorf("scan upload session: %w", err)
	}

	if len(suggestionsRaw) > 0 {
		var set domain.SuggestionSet
		if err := json.Unmarshal(suggestionsRaw, &set); err != nil {
			return nil, fmt.Errorf("unmarshal suggestions: %w", err)
		}
		session.Suggestions = &set
	}
	session.State = domain.WorkflowState(state)
	return &session, nil
}

// AdvanceState performs the guarded transition: the UPDATE matches the
// expected current state, so a stale or duplicate signal changes nothing.
func (r *SessionRepository) AdvanceState(ctx context.Context, id string, from, to domain.WorkflowState) error {
	if !from.CanAdvanceTo(to) {
		return domain.WrapError(domain.ErrStateConflict, "advance state",
			fmt.Errorf("illegal transition %s -> %s", from, to))
	}

	result, err := r.db.ExecContext(ctx, `
UPDATE upload_sessions
SET state = $3, updated_at = $4
WHERE id = $1 AND state = $2
`, id, string(from), string(to), time.Now().UTC())
	if err != nil {
		return fmt.Errorf("advance session state: %w", err)
	}
	return r.requireRowAffected(ctx, result, id, from)
}

func (r *SessionRepository) SaveSuggestions(ctx context.Context, id string, set domain.SuggestionSet) error {
	suggestionsJSON, err := json.Marshal(set)
	if err != nil {
		return fmt.Errorf("marshal suggestions: %w", err)
	}

	result, err := r.db.ExecContext(ctx, `
UPDATE upload_sessions
SET suggestions = $3, state = $4, error_message = '', updated_at = $5
WHERE id = $1 AND state = $2
`, id, string(domain.StateGettingSuggestions), suggestionsJSON,
		string(domain.StateSuggestionsReceived), time.Now().UTC())
	if err != nil {
		return fmt.Errorf("save suggestions: %w", err)
	}
	return r.requireRowAffected(ctx, result, id, domain.StateGettingSuggestions)
}

func (r *SessionRepository) UpdateForm(ctx context.Context, id string, form domain.FormValues) error {
	result, err := r.db.ExecContext(ctx, `
UPDATE upload_sessions
SET company_name = $2, email = $3, address = $4, updated_at = $5
WHERE id = $1
`, id, form.CompanyName, form.Email, form.Address, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("update form values: %w", err)
	}
	return r.requireSession(ctx, result, id)
}

func (r *SessionRepository) MarkSubmitted(ctx context.Context, id string, form domain.FormValues) error {
	result, err := r.db.ExecContext(ctx, `
UPDATE upload_sessions
SET company_name = $2, email = $3, address = $4, submitted = TRUE, updated_at = $5
WHERE id = $1
`, id, form.CompanyName, form.Email, form.Address, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("mark submitted: %w", err)
	}
	return r.requireSession(ctx, result, id)
}

func (r *SessionRepository) RecordFailure(ctx context.Context, id string, message string) error {
	result, err := r.db.ExecContext(ctx, `
UPDATE upload_sessions
SET error_message = $2, updated_at = $3
WHERE id = $1
`, id, message, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("record failure: %w", err)
	}
	return r.requireSession(ctx, result, id)
}

// requireRowAffected distinguishes a missing session from a state-precondition
// miss after a guarded UPDATE touched zero rows.
func (r *SessionRepository) requireRowAffected(ctx context.Context, result sql.Result, id string, expected domain.WorkflowState) error {
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected > 0 {
		return nil
	}

	session, err := r.GetByID(ctx, id)
	if err != nil {
		return err
	}
	return domain.WrapError(domain.ErrStateConflict, "advance state",
		fmt.Errorf("session %s is in state %s, expected %s", id, session.State, expected))
}

func (r *SessionRepository) requireSession(_ context.Context, result sql.Result, id string) error {
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return domain.WrapError(domain.ErrSessionNotFound, "update session", fmt.Errorf("id %s", id))
	}
	return nil
}
