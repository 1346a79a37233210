package ports

import (
	"context"
	"encoding/json"

	"github.com/healthchain/rxintake/internal/core/domain"
)

// BlobStore persists file content and returns its content identifier.
type BlobStore interface {
	Put(ctx context.Context, filename string, data []byte) (string, error)
}

// LedgerItem is one entry of an append-only ledger stream.
type LedgerItem struct {
	Keys []string
	Data []byte
}

// Ledger is the append-only, key-partitioned record stream. Raw variants
// return the untouched RPC envelope for pass-through endpoints.
type Ledger interface {
	Append(ctx context.Context, stream, key string, payload []byte) (json.RawMessage, error)
	QueryKey(ctx context.Context, stream, key string) ([]LedgerItem, error)
	QueryKeyRaw(ctx context.Context, stream, key string) (json.RawMessage, error)
	QueryAll(ctx context.Context, stream string) ([]LedgerItem, error)
}

// ImageExtractor runs vision extraction over prescription image bytes.
type ImageExtractor interface {
	ExtractFromImage(ctx context.Context, image []byte) (string, error)
}

// DocumentExtractor handles non-image documents (currently the
// best-effort PDF path).
type DocumentExtractor interface {
	ExtractFromPDF(ctx context.Context, document []byte) (string, error)
}

// InteractionAnalyzer cross-checks a drug list against the reference
// dataset and returns free-text analysis.
type InteractionAnalyzer interface {
	AnalyzeInteractions(ctx context.Context, drugs string, dataset json.RawMessage) (string, error)
}

// RiskNarrator produces the narrative risk summary from a composed prompt.
type RiskNarrator interface {
	GenerateRiskProfile(ctx context.Context, drugs []string, analysis string) (string, error)
}

// StagingStore keeps uploads on local disk for the duration of one
// pipeline run. Remove must be safe to call on every exit path.
type StagingStore interface {
	Stage(filename string, data []byte) (path string, err error)
	Remove(path string) error
}

// ClinicianStore reads clinician credentials.
type ClinicianStore interface {
	GetByUsername(ctx context.Context, username string) (*domain.Clinician, error)
}

// AuditPublisher emits best-effort ingestion events.
type AuditPublisher interface {
	PublishPrescriptionIngested(ctx context.Context, patientID, clinicianID, cid string) error
}

// SessionManager issues and verifies bearer credentials.
type SessionManager interface {
	Issue(clinicianID string) (string, error)
	Verify(token string) (domain.Session, error)
	Revoke(session domain.Session)
}
