package usecase

import (
	"context"
	"fmt"
	"testing"

	"golang.org/x/crypto/bcrypt"

	"github.com/healthchain/rxintake/internal/core/domain"
)

type clinicianStoreFake struct {
	clinician domain.Clinician
	err       error
}

func (f clinicianStoreFake) GetByUsername(_ context.Context, username string) (*domain.Clinician, error) {
	if f.err != nil {
		return nil, f.err
	}
	clinician := f.clinician
	return &clinician, nil
}

type sessionsFake struct {
	token    string
	issueErr error
	issued   []string
}

func (f *sessionsFake) Issue(clinicianID string) (string, error) {
	f.issued = append(f.issued, clinicianID)
	if f.issueErr != nil {
		return "", f.issueErr
	}
	return f.token, nil
}

func (f *sessionsFake) Verify(token string) (domain.Session, error) {
	return domain.Session{}, fmt.Errorf("not used")
}

func (f *sessionsFake) Revoke(domain.Session) {}

func hashPassword(t *testing.T, password string) string {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("GenerateFromPassword() error = %v", err)
	}
	return string(hash)
}

func TestLoginSuccess(t *testing.T) {
	store := clinicianStoreFake{clinician: domain.Clinician{
		Username:     "drsmith",
		PasswordHash: hashPassword(t, "password123"),
		ClinicianID:  "D001",
	}}
	sessions := &sessionsFake{token: "signed-token"}
	uc := NewLoginUseCase(store, sessions)

	token, clinicianID, err := uc.Login(context.Background(), "drsmith", "password123")
	if err != nil {
		t.Fatalf("Login() error = %v", err)
	}
	if token != "signed-token" || clinicianID != "D001" {
		t.Fatalf("unexpected result: token=%q clinician=%q", token, clinicianID)
	}
	if len(sessions.issued) != 1 || sessions.issued[0] != "D001" {
		t.Fatalf("token must be issued for the clinician id, got %v", sessions.issued)
	}
}

func TestLoginWrongPassword(t *testing.T) {
	store := clinicianStoreFake{clinician: domain.Clinician{
		Username:     "drsmith",
		PasswordHash: hashPassword(t, "password123"),
		ClinicianID:  "D001",
	}}
	sessions := &sessionsFake{token: "signed-token"}
	uc := NewLoginUseCase(store, sessions)

	_, _, err := uc.Login(context.Background(), "drsmith", "wrong")
	if !domain.IsKind(err, domain.ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}
	if len(sessions.issued) != 0 {
		t.Fatalf("no token may be issued on a failed login")
	}
}

func TestLoginUnknownUser(t *testing.T) {
	store := clinicianStoreFake{err: domain.WrapError(domain.ErrNotFound, "get clinician", fmt.Errorf("no rows"))}
	uc := NewLoginUseCase(store, &sessionsFake{})

	_, _, err := uc.Login(context.Background(), "nobody", "password123")
	if !domain.IsKind(err, domain.ErrUnauthorized) {
		t.Fatalf("unknown users must map to ErrUnauthorized, got %v", err)
	}
}

func TestLoginMissingCredentials(t *testing.T) {
	uc := NewLoginUseCase(clinicianStoreFake{}, &sessionsFake{})

	for _, tc := range []struct{ username, password string }{
		{"", "password123"},
		{"drsmith", ""},
		{"   ", "password123"},
	} {
		_, _, err := uc.Login(context.Background(), tc.username, tc.password)
		if !domain.IsKind(err, domain.ErrUnauthorized) {
			t.Fatalf("Login(%q, %q): expected ErrUnauthorized, got %v", tc.username, tc.password, err)
		}
	}
}
