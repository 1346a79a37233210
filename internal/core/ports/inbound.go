package ports

import (
	"context"

	"github.com/healthchain/rxintake/internal/core/domain"
)

// PrescriptionIngestor is the inbound contract of the ingestion pipeline.
type PrescriptionIngestor interface {
	Ingest(ctx context.Context, upload domain.PrescriptionUpload) (*domain.IngestResult, error)
}

// RiskProfiler aggregates a patient's ledger history into a narrative
// risk summary.
type RiskProfiler interface {
	BuildRiskProfile(ctx context.Context, patientID string) (string, error)
}

// DashboardService lists a clinician's own uploads.
type DashboardService interface {
	ListUploads(ctx context.Context, clinicianID string) ([]domain.DashboardUpload, error)
}

// LoginService authenticates a clinician and issues a bearer token.
type LoginService interface {
	Login(ctx context.Context, username, password string) (token, clinicianID string, err error)
}
