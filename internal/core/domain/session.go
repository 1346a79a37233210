package domain

import "time"

// Clinician is an authenticated uploader. PasswordHash is a bcrypt hash;
// plaintext credentials never leave the login handler.
type Clinician struct {
	Username     string
	PasswordHash string
	ClinicianID  string
}

// Session describes a verified bearer token. TokenID is the jti claim
// consulted against the revocation store on every protected call.
type Session struct {
	ClinicianID string
	TokenID     string
	IssuedAt    time.Time
	ExpiresAt   time.Time
}
