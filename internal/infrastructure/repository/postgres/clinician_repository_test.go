package postgres

import (
	"context"
	"database/sql"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"

	"github.com/healthchain/rxintake/internal/core/domain"
)

func newRepoWithMock(t *testing.T) (*ClinicianRepository, sqlmock.Sqlmock, func()) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New() error = %v", err)
	}
	return &ClinicianRepository{db: db}, mock, func() { _ = db.Close() }
}

func TestGetByUsernameReturnsClinician(t *testing.T) {
	repo, mock, done := newRepoWithMock(t)
	defer done()

	rows := sqlmock.NewRows([]string{"username", "password_hash", "clinician_id"}).
		AddRow("doctor1", "$2a$10$hash", "D001")
	mock.ExpectQuery("SELECT username, password_hash, clinician_id").
		WithArgs("doctor1").
		WillReturnRows(rows)

	clinician, err := repo.GetByUsername(context.Background(), "doctor1")
	if err != nil {
		t.Fatalf("GetByUsername() error = %v", err)
	}
	if clinician.ClinicianID != "D001" {
		t.Fatalf("expected D001, got %s", clinician.ClinicianID)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestGetByUsernameReturnsDomainNotFound(t *testing.T) {
	repo, mock, done := newRepoWithMock(t)
	defer done()

	mock.ExpectQuery("SELECT username, password_hash, clinician_id").
		WithArgs("ghost").
		WillReturnError(sql.ErrNoRows)

	_, err := repo.GetByUsername(context.Background(), "ghost")
	if err == nil {
		t.Fatalf("expected error")
	}
	if !domain.IsKind(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestUpsertClinicianExecutesInsert(t *testing.T) {
	repo, mock, done := newRepoWithMock(t)
	defer done()

	mock.ExpectExec("INSERT INTO clinicians").
		WithArgs("doctor2", "$2a$10$hash2", "D002").
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.UpsertClinician(context.Background(), domain.Clinician{
		Username:     "doctor2",
		PasswordHash: "$2a$10$hash2",
		ClinicianID:  "D002",
	})
	if err != nil {
		t.Fatalf("UpsertClinician() error = %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}
