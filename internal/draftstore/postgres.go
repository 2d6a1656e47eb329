package draftstore

import (
	"context"
	"database/sql"
	stderrors "errors"
	"fmt"
	"regexp"

	"admissions-wizard/internal/common/errors"
	"admissions-wizard/internal/models"
)

var tableNamePattern = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

// Postgres keeps drafts in a single table keyed by draft key.
type Postgres struct {
	db    *sql.DB
	table string
}

// NewPostgres binds to table. Invalid table names fall back to
// application_drafts since the name is interpolated into SQL.
func NewPostgres(db *sql.DB, table string) *Postgres {
	if !tableNamePattern.MatchString(table) {
		table = "application_drafts"
	}
	return &Postgres{db: db, table: table}
}

func (p *Postgres) Name() string { return "postgres" }

// EnsureSchema creates the drafts table when it is missing.
func (p *Postgres) EnsureSchema(ctx context.Context) error {
	query := fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
	draft_key   TEXT PRIMARY KEY,
	institution TEXT NOT NULL,
	payload     JSONB NOT NULL,
	updated_at  TIMESTAMPTZ NOT NULL DEFAULT NOW()
)`, p.table)
	if _, err := p.db.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("failed to create %s: %w", p.table, err)
	}
	return nil
}

func (p *Postgres) Repository(key string) Repository {
	return &postgresRepository{store: p, key: key}
}

type postgresRepository struct {
	store *Postgres
	key   string
}

func (r *postgresRepository) Load(ctx context.Context, institution models.Institution) (*models.ApplicationDraft, error) {
	query := fmt.Sprintf(`SELECT payload FROM %s WHERE draft_key = $1`, r.store.table)

	var payload []byte
	err := r.store.db.QueryRowContext(ctx, query, r.key).Scan(&payload)
	if err != nil {
		if stderrors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, errors.NewDraftStoreFailedError("load", err)
	}
	return decode(payload, institution), nil
}

func (r *postgresRepository) Save(ctx context.Context, draft *models.ApplicationDraft) error {
	data, err := encode(draft)
	if err != nil {
		return err
	}
	query := fmt.Sprintf(`
		INSERT INTO %s (draft_key, institution, payload, updated_at)
		VALUES ($1, $2, $3, NOW())
		ON CONFLICT (draft_key) DO UPDATE
		SET institution = EXCLUDED.institution, payload = EXCLUDED.payload, updated_at = NOW()
	`, r.store.table)

	if _, err := r.store.db.ExecContext(ctx, query, r.key, string(draft.Institution), data); err != nil {
		return errors.NewDraftStoreFailedError("save", err)
	}
	return nil
}

func (r *postgresRepository) Clear(ctx context.Context) error {
	query := fmt.Sprintf(`DELETE FROM %s WHERE draft_key = $1`, r.store.table)
	if _, err := r.store.db.ExecContext(ctx, query, r.key); err != nil {
		return errors.NewDraftStoreFailedError("clear", err)
	}
	return nil
}
