package auth

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/healthchain/rxintake/internal/core/domain"
)

// Manager issues and verifies HS256 bearer tokens carrying the clinician
// identity as subject and a jti consulted against the revocation store.
type Manager struct {
	secret  []byte
	ttl     time.Duration
	revoked *RevocationStore
	now     func() time.Time
}

func NewManager(secret string, ttl time.Duration) *Manager {
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &Manager{
		secret:  []byte(secret),
		ttl:     ttl,
		revoked: NewRevocationStore(),
		now:     time.Now,
	}
}

func (m *Manager) Issue(clinicianID string) (string, error) {
	now := m.now().UTC()
	claims := jwt.RegisteredClaims{
		Subject:   clinicianID,
		ID:        uuid.NewString(),
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(m.ttl)),
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return token, nil
}

func (m *Manager) Verify(token string) (domain.Session, error) {
	var claims jwt.RegisteredClaims
	parsed, err := jwt.ParseWithClaims(token, &claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return m.secret, nil
	}, jwt.WithTimeFunc(m.now), jwt.WithValidMethods([]string{"HS256"}))
	if err != nil {
		return domain.Session{}, domain.WrapError(domain.ErrUnauthorized, "verify token", err)
	}
	if !parsed.Valid {
		return domain.Session{}, domain.WrapError(domain.ErrUnauthorized, "verify token", fmt.Errorf("invalid token"))
	}
	if claims.Subject == "" || claims.ID == "" {
		return domain.Session{}, domain.WrapError(domain.ErrUnauthorized, "verify token", fmt.Errorf("missing claims"))
	}
	if m.revoked.IsRevoked(claims.ID) {
		return domain.Session{}, domain.WrapError(domain.ErrUnauthorized, "verify token", fmt.Errorf("token revoked"))
	}

	session := domain.Session{
		ClinicianID: claims.Subject,
		TokenID:     claims.ID,
	}
	if claims.IssuedAt != nil {
		session.IssuedAt = claims.IssuedAt.Time
	}
	if claims.ExpiresAt != nil {
		session.ExpiresAt = claims.ExpiresAt.Time
	}
	return session, nil
}

func (m *Manager) Revoke(session domain.Session) {
	expiresAt := session.ExpiresAt
	if expiresAt.IsZero() {
		expiresAt = m.now().Add(m.ttl)
	}
	m.revoked.Revoke(session.TokenID, expiresAt)
}
