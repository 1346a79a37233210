package usecase

import (
	"context"
	"log/slog"

	"github.com/healthchain/rxintake/internal/core/domain"
	"github.com/healthchain/rxintake/internal/core/ports"
)

const ipfsGatewayBase = "https://ipfs.io/ipfs/"

// DashboardUseCase lists the caller's own uploads from the full ledger
// stream. Items that fail to decode are skipped, not fatal; the stream
// may carry records written by older payload layouts.
type DashboardUseCase struct {
	ledger ports.Ledger
	stream string
}

func NewDashboardUseCase(ledger ports.Ledger, stream string) *DashboardUseCase {
	return &DashboardUseCase{ledger: ledger, stream: stream}
}

func (uc *DashboardUseCase) ListUploads(ctx context.Context, clinicianID string) ([]domain.DashboardUpload, error) {
	items, err := uc.ledger.QueryAll(ctx, uc.stream)
	if err != nil {
		return nil, err
	}

	uploads := make([]domain.DashboardUpload, 0, len(items))
	for _, item := range items {
		record, err := domain.DecodePrescriptionRecord(item.Data)
		if err != nil {
			slog.Debug("skipping undecodable ledger item", "error", err)
			continue
		}
		if record.ClinicianID != clinicianID {
			continue
		}

		patientID := ""
		if len(item.Keys) > 0 {
			patientID = item.Keys[0]
		}
		uploads = append(uploads, domain.DashboardUpload{
			CID:       record.CID,
			Timestamp: record.Timestamp,
			PatientID: patientID,
			IPFSLink:  ipfsGatewayBase + record.CID,
		})
	}
	return uploads, nil
}
