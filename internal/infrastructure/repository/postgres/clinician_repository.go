package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/healthchain/rxintake/internal/core/domain"
)

// ClinicianRepository reads clinician credentials. Passwords are stored
// as bcrypt hashes; this layer never sees plaintext.
type ClinicianRepository struct {
	db *sql.DB
}

func NewClinicianRepository(db *sql.DB) *ClinicianRepository {
	return &ClinicianRepository{db: db}
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

func (r *ClinicianRepository) EnsureSchema(ctx context.Context) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin schema tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	// Serialize bootstrap DDL across concurrent api startups.
	if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock($1)`, int64(2026082701)); err != nil {
		return fmt.Errorf("acquire schema lock: %w", err)
	}

	const query = `
CREATE TABLE IF NOT EXISTS clinicians (
	username TEXT PRIMARY KEY,
	password_hash TEXT NOT NULL,
	clinician_id TEXT NOT NULL UNIQUE,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now()
)`
	if _, err := tx.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("create clinicians table: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit schema tx: %w", err)
	}
	return nil
}

func (r *ClinicianRepository) GetByUsername(ctx context.Context, username string) (*domain.Clinician, error) {
	const query = `
SELECT username, password_hash, clinician_id
FROM clinicians
WHERE username = $1`

	var clinician domain.Clinician
	err := r.db.QueryRowContext(ctx, query, username).Scan(
		&clinician.Username,
		&clinician.PasswordHash,
		&clinician.ClinicianID,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.WrapError(domain.ErrNotFound, "get clinician", fmt.Errorf("username %q", username))
	}
	if err != nil {
		return nil, fmt.Errorf("query clinician: %w", err)
	}
	return &clinician, nil
}

// UpsertClinician seeds or rotates a credential. Used by deployment
// tooling, not by request handling.
func (r *ClinicianRepository) UpsertClinician(ctx context.Context, clinician domain.Clinician) error {
	const query = `
INSERT INTO clinicians (username, password_hash, clinician_id)
VALUES ($1, $2, $3)
ON CONFLICT (username) DO UPDATE SET
	password_hash = EXCLUDED.password_hash,
	clinician_id = EXCLUDED.clinician_id`

	if _, err := r.db.ExecContext(ctx, query, clinician.Username, clinician.PasswordHash, clinician.ClinicianID); err != nil {
		return fmt.Errorf("upsert clinician: %w", err)
	}
	return nil
}
