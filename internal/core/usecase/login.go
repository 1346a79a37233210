package usecase

import (
	"context"
	"fmt"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"github.com/healthchain/rxintake/internal/core/domain"
	"github.com/healthchain/rxintake/internal/core/ports"
)

// LoginUseCase checks clinician credentials against the store and issues
// a bearer token. Lookup and password failures both come back as
// ErrUnauthorized so the response cannot distinguish unknown users from
// wrong passwords.
type LoginUseCase struct {
	clinicians ports.ClinicianStore
	sessions   ports.SessionManager
}

func NewLoginUseCase(clinicians ports.ClinicianStore, sessions ports.SessionManager) *LoginUseCase {
	return &LoginUseCase{clinicians: clinicians, sessions: sessions}
}

func (uc *LoginUseCase) Login(ctx context.Context, username, password string) (string, string, error) {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return "", "", domain.WrapError(domain.ErrUnauthorized, "login", fmt.Errorf("missing credentials"))
	}

	clinician, err := uc.clinicians.GetByUsername(ctx, username)
	if err != nil {
		return "", "", domain.WrapError(domain.ErrUnauthorized, "login", err)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(clinician.PasswordHash), []byte(password)); err != nil {
		return "", "", domain.WrapError(domain.ErrUnauthorized, "login", fmt.Errorf("credential mismatch"))
	}

	token, err := uc.sessions.Issue(clinician.ClinicianID)
	if err != nil {
		return "", "", fmt.Errorf("issue session token: %w", err)
	}
	return token, clinician.ClinicianID, nil
}
