package usecase

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/healthchain/rxintake/internal/core/domain"
	"github.com/healthchain/rxintake/internal/core/ports"
)

// IngestPrescriptionUseCase runs the upload pipeline: stage the file,
// persist it to the blob store, extract drug data, run interaction
// analysis, append the record to the ledger. Steps run strictly in order
// and are never retried or compensated; a blob written before a failed
// ledger append stays written.
type IngestPrescriptionUseCase struct {
	staging  ports.StagingStore
	blobs    ports.BlobStore
	images   ports.ImageExtractor
	docs     ports.DocumentExtractor
	analyzer ports.InteractionAnalyzer
	ledger   ports.Ledger
	audit    ports.AuditPublisher
	dataset  json.RawMessage
	stream   string
}

func NewIngestPrescriptionUseCase(
	staging ports.StagingStore,
	blobs ports.BlobStore,
	images ports.ImageExtractor,
	docs ports.DocumentExtractor,
	analyzer ports.InteractionAnalyzer,
	ledger ports.Ledger,
	audit ports.AuditPublisher,
	dataset json.RawMessage,
	stream string,
) *IngestPrescriptionUseCase {
	return &IngestPrescriptionUseCase{
		staging:  staging,
		blobs:    blobs,
		images:   images,
		docs:     docs,
		analyzer: analyzer,
		ledger:   ledger,
		audit:    audit,
		dataset:  dataset,
		stream:   stream,
	}
}

func (uc *IngestPrescriptionUseCase) Ingest(ctx context.Context, upload domain.PrescriptionUpload) (*domain.IngestResult, error) {
	if err := validateUpload(upload); err != nil {
		return nil, err
	}

	stagedPath, err := uc.staging.Stage(upload.Filename, upload.FileBytes)
	if err != nil {
		return nil, domain.WrapError(domain.ErrStorage, "stage upload", err)
	}
	defer func() {
		if err := uc.staging.Remove(stagedPath); err != nil {
			slog.Warn("staged upload cleanup failed", "path", stagedPath, "error", err)
		}
	}()

	cid, err := uc.blobs.Put(ctx, upload.Filename, upload.FileBytes)
	if err != nil {
		return nil, domain.WrapError(domain.ErrStorage, "blob store put", err)
	}

	extracted, err := uc.extract(ctx, upload)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(extracted) == "" {
		return nil, domain.WrapError(domain.ErrExtractionEmpty, "extract prescription",
			fmt.Errorf("model returned no usable text for %s", upload.Filename))
	}

	analysis := uc.analyze(ctx, extracted)

	record := domain.PrescriptionRecord{
		CID:           cid,
		ClinicianID:   upload.ClinicianID,
		Timestamp:     upload.Timestamp,
		ExtractedText: extracted,
		DDIAnalysis:   analysis,
	}
	payload, err := record.Encode()
	if err != nil {
		return nil, err
	}

	ledgerResp, err := uc.ledger.Append(ctx, uc.stream, upload.PatientID, payload)
	if err != nil {
		return nil, err
	}

	uc.publishAudit(ctx, upload.PatientID, upload.ClinicianID, cid)

	parsed, _ := domain.ParseDrugEntries(extracted)
	return &domain.IngestResult{
		Record:         record,
		LedgerResponse: ledgerResp,
		ParsedDrugs:    parsed,
	}, nil
}

func validateUpload(upload domain.PrescriptionUpload) error {
	if strings.TrimSpace(upload.PatientID) == "" {
		return domain.WrapError(domain.ErrValidation, "validate upload", fmt.Errorf("patient_id is required"))
	}
	if strings.TrimSpace(upload.Timestamp) == "" {
		return domain.WrapError(domain.ErrValidation, "validate upload", fmt.Errorf("timestamp is required"))
	}
	if len(upload.FileBytes) == 0 {
		return domain.WrapError(domain.ErrValidation, "validate upload", fmt.Errorf("file is empty"))
	}
	if upload.FileKind == domain.FileKindUnsupported {
		return domain.WrapError(domain.ErrUnsupportedFormat, "validate upload",
			fmt.Errorf("unrecognized extension on %q", upload.Filename))
	}
	return nil
}

func (uc *IngestPrescriptionUseCase) extract(ctx context.Context, upload domain.PrescriptionUpload) (string, error) {
	switch upload.FileKind {
	case domain.FileKindImage:
		text, err := uc.images.ExtractFromImage(ctx, upload.FileBytes)
		if err != nil {
			return "", domain.WrapError(domain.ErrExternalModel, "image extraction", err)
		}
		return text, nil
	case domain.FileKindPDF:
		// Best-effort path: page handles only, no OCR.
		text, err := uc.docs.ExtractFromPDF(ctx, upload.FileBytes)
		if err != nil {
			return "", domain.WrapError(domain.ErrExternalModel, "pdf extraction", err)
		}
		return text, nil
	default:
		return "", domain.WrapError(domain.ErrUnsupportedFormat, "extract prescription",
			fmt.Errorf("no extractor for kind %q", upload.FileKind))
	}
}

// analyze is best-effort: a missing dataset yields the fixed sentinel and
// a failed model call is embedded as the analysis text. Neither fails the
// pipeline.
func (uc *IngestPrescriptionUseCase) analyze(ctx context.Context, extracted string) string {
	if len(uc.dataset) == 0 {
		return domain.AnalysisUnavailable
	}
	analysis, err := uc.analyzer.AnalyzeInteractions(ctx, extracted, uc.dataset)
	if err != nil {
		slog.Warn("interaction analysis failed", "error", err)
		return fmt.Sprintf("Interaction analysis failed: %v", err)
	}
	return analysis
}

func (uc *IngestPrescriptionUseCase) publishAudit(ctx context.Context, patientID, clinicianID, cid string) {
	if uc.audit == nil {
		return
	}
	if err := uc.audit.PublishPrescriptionIngested(ctx, patientID, clinicianID, cid); err != nil {
		slog.Warn("audit publish failed", "patient_id", patientID, "cid", cid, "error", err)
	}
}
