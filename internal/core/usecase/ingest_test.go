package usecase

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"testing"

	"github.com/healthchain/rxintake/internal/core/domain"
	"github.com/healthchain/rxintake/internal/core/ports"
)

type stagingFake struct {
	stageCalls  int
	removeCalls int
	removedPath string
	stageErr    error
}

func (f *stagingFake) Stage(filename string, data []byte) (string, error) {
	f.stageCalls++
	if f.stageErr != nil {
		return "", f.stageErr
	}
	return "/tmp/staged_" + filename, nil
}

func (f *stagingFake) Remove(path string) error {
	f.removeCalls++
	f.removedPath = path
	return nil
}

type blobStoreFake struct {
	cid   string
	err   error
	calls int
}

func (f *blobStoreFake) Put(_ context.Context, filename string, data []byte) (string, error) {
	f.calls++
	if f.err != nil {
		return "", f.err
	}
	return f.cid, nil
}

type imageExtractorFake struct {
	text  string
	err   error
	calls int
}

func (f *imageExtractorFake) ExtractFromImage(_ context.Context, image []byte) (string, error) {
	f.calls++
	if f.err != nil {
		return "", f.err
	}
	return f.text, nil
}

type documentExtractorFake struct {
	text  string
	err   error
	calls int
}

func (f *documentExtractorFake) ExtractFromPDF(_ context.Context, document []byte) (string, error) {
	f.calls++
	if f.err != nil {
		return "", f.err
	}
	return f.text, nil
}

type analyzerFake struct {
	analysis string
	err      error
	calls    int
	gotDrugs string
}

func (f *analyzerFake) AnalyzeInteractions(_ context.Context, drugs string, dataset json.RawMessage) (string, error) {
	f.calls++
	f.gotDrugs = drugs
	if f.err != nil {
		return "", f.err
	}
	return f.analysis, nil
}

type appendCall struct {
	stream  string
	key     string
	payload []byte
}

type usecaseLedgerFake struct {
	appendResp json.RawMessage
	appendErr  error
	appends    []appendCall
	items      []ports.LedgerItem
	queryErr   error
}

func (f *usecaseLedgerFake) Append(_ context.Context, stream, key string, payload []byte) (json.RawMessage, error) {
	f.appends = append(f.appends, appendCall{stream: stream, key: key, payload: payload})
	if f.appendErr != nil {
		return nil, f.appendErr
	}
	return f.appendResp, nil
}

func (f *usecaseLedgerFake) QueryKey(_ context.Context, stream, key string) ([]ports.LedgerItem, error) {
	if f.queryErr != nil {
		return nil, f.queryErr
	}
	return f.items, nil
}

func (f *usecaseLedgerFake) QueryKeyRaw(_ context.Context, stream, key string) (json.RawMessage, error) {
	return nil, fmt.Errorf("not used")
}

func (f *usecaseLedgerFake) QueryAll(_ context.Context, stream string) ([]ports.LedgerItem, error) {
	if f.queryErr != nil {
		return nil, f.queryErr
	}
	return f.items, nil
}

type auditFake struct {
	calls int
	err   error
}

func (f *auditFake) PublishPrescriptionIngested(_ context.Context, patientID, clinicianID, cid string) error {
	f.calls++
	return f.err
}

type ingestFixture struct {
	staging  *stagingFake
	blobs    *blobStoreFake
	images   *imageExtractorFake
	docs     *documentExtractorFake
	analyzer *analyzerFake
	ledger   *usecaseLedgerFake
	audit    *auditFake
	dataset  json.RawMessage
}

func newIngestFixture() *ingestFixture {
	return &ingestFixture{
		staging:  &stagingFake{},
		blobs:    &blobStoreFake{cid: "QmMockCID"},
		images:   &imageExtractorFake{text: `[{"drug": "Aspirin", "dosage": "100mg"}]`},
		docs:     &documentExtractorFake{text: "<pdf page 1 handle kind=6>"},
		analyzer: &analyzerFake{analysis: "No severe interactions found."},
		ledger:   &usecaseLedgerFake{appendResp: json.RawMessage(`{"result":"txid-1"}`)},
		audit:    &auditFake{},
		dataset:  json.RawMessage(`{"interactions":[]}`),
	}
}

func (fx *ingestFixture) usecase() *IngestPrescriptionUseCase {
	return NewIngestPrescriptionUseCase(
		fx.staging, fx.blobs, fx.images, fx.docs, fx.analyzer, fx.ledger, fx.audit,
		fx.dataset, "prescription_data",
	)
}

func imageUpload() domain.PrescriptionUpload {
	return domain.PrescriptionUpload{
		FileBytes:   []byte("png-bytes"),
		Filename:    "rx.png",
		FileKind:    domain.FileKindImage,
		PatientID:   "P1",
		Timestamp:   "2025-01-01T10:00:00Z",
		ClinicianID: "D001",
	}
}

func TestIngestSuccess(t *testing.T) {
	fx := newIngestFixture()
	uc := fx.usecase()

	result, err := uc.Ingest(context.Background(), imageUpload())
	if err != nil {
		t.Fatalf("Ingest() error = %v", err)
	}

	if result.Record.CID != "QmMockCID" {
		t.Fatalf("unexpected cid: %q", result.Record.CID)
	}
	if result.Record.DDIAnalysis != "No severe interactions found." {
		t.Fatalf("unexpected analysis: %q", result.Record.DDIAnalysis)
	}
	if result.Record.ClinicianID != "D001" {
		t.Fatalf("unexpected clinician: %q", result.Record.ClinicianID)
	}

	if len(fx.ledger.appends) != 1 {
		t.Fatalf("expected exactly one append, got %d", len(fx.ledger.appends))
	}
	call := fx.ledger.appends[0]
	if call.stream != "prescription_data" || call.key != "P1" {
		t.Fatalf("unexpected append target: stream=%q key=%q", call.stream, call.key)
	}

	var record domain.PrescriptionRecord
	if err := json.Unmarshal(call.payload, &record); err != nil {
		t.Fatalf("ledger payload must be the record JSON: %v", err)
	}
	if record.ExtractedText != fx.images.text {
		t.Fatalf("unexpected extracted text in payload: %q", record.ExtractedText)
	}

	if len(result.ParsedDrugs) != 1 || result.ParsedDrugs[0].Drug != "Aspirin" {
		t.Fatalf("unexpected parsed drugs: %+v", result.ParsedDrugs)
	}
	if fx.staging.removeCalls != 1 {
		t.Fatalf("staged file must be removed, got %d removes", fx.staging.removeCalls)
	}
	if fx.audit.calls != 1 {
		t.Fatalf("expected one audit event, got %d", fx.audit.calls)
	}
}

func TestIngestValidationStopsBeforeExternalCalls(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*domain.PrescriptionUpload)
		kind   error
	}{
		{"missing patient id", func(u *domain.PrescriptionUpload) { u.PatientID = "" }, domain.ErrValidation},
		{"missing timestamp", func(u *domain.PrescriptionUpload) { u.Timestamp = "" }, domain.ErrValidation},
		{"empty file", func(u *domain.PrescriptionUpload) { u.FileBytes = nil }, domain.ErrValidation},
		{"unsupported extension", func(u *domain.PrescriptionUpload) {
			u.Filename = "rx.txt"
			u.FileKind = domain.FileKindUnsupported
		}, domain.ErrUnsupportedFormat},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			fx := newIngestFixture()
			uc := fx.usecase()

			upload := imageUpload()
			tc.mutate(&upload)

			_, err := uc.Ingest(context.Background(), upload)
			if !domain.IsKind(err, tc.kind) {
				t.Fatalf("expected %v, got %v", tc.kind, err)
			}
			if fx.staging.stageCalls != 0 || fx.blobs.calls != 0 || fx.images.calls != 0 ||
				fx.analyzer.calls != 0 || len(fx.ledger.appends) != 0 {
				t.Fatalf("no side effects may run on a rejected upload")
			}
		})
	}
}

func TestIngestEmptyExtractionAborts(t *testing.T) {
	fx := newIngestFixture()
	fx.images.text = "   \n"
	uc := fx.usecase()

	_, err := uc.Ingest(context.Background(), imageUpload())
	if !domain.IsKind(err, domain.ErrExtractionEmpty) {
		t.Fatalf("expected ErrExtractionEmpty, got %v", err)
	}
	if fx.analyzer.calls != 0 {
		t.Fatalf("analysis must not run on empty extraction")
	}
	if len(fx.ledger.appends) != 0 {
		t.Fatalf("nothing may reach the ledger on empty extraction")
	}
	if fx.staging.removeCalls != 1 {
		t.Fatalf("staged file must still be removed, got %d removes", fx.staging.removeCalls)
	}
}

func TestIngestMissingDatasetUsesSentinel(t *testing.T) {
	fx := newIngestFixture()
	fx.dataset = nil
	uc := fx.usecase()

	result, err := uc.Ingest(context.Background(), imageUpload())
	if err != nil {
		t.Fatalf("Ingest() error = %v", err)
	}
	if result.Record.DDIAnalysis != domain.AnalysisUnavailable {
		t.Fatalf("expected sentinel analysis, got %q", result.Record.DDIAnalysis)
	}
	if fx.analyzer.calls != 0 {
		t.Fatalf("analyzer must not be called without a dataset")
	}
	if len(fx.ledger.appends) != 1 {
		t.Fatalf("record must still be appended, got %d appends", len(fx.ledger.appends))
	}
}

func TestIngestAnalyzerFailureIsEmbedded(t *testing.T) {
	fx := newIngestFixture()
	fx.analyzer.err = fmt.Errorf("ollama: connection refused")
	uc := fx.usecase()

	result, err := uc.Ingest(context.Background(), imageUpload())
	if err != nil {
		t.Fatalf("analysis failure must not abort the pipeline: %v", err)
	}
	if !strings.HasPrefix(result.Record.DDIAnalysis, "Interaction analysis failed:") {
		t.Fatalf("unexpected analysis text: %q", result.Record.DDIAnalysis)
	}
	if len(fx.ledger.appends) != 1 {
		t.Fatalf("record must still be appended, got %d appends", len(fx.ledger.appends))
	}
}

func TestIngestBlobStoreFailure(t *testing.T) {
	fx := newIngestFixture()
	fx.blobs.err = fmt.Errorf("ipfs add: 503")
	uc := fx.usecase()

	_, err := uc.Ingest(context.Background(), imageUpload())
	if !domain.IsKind(err, domain.ErrStorage) {
		t.Fatalf("expected ErrStorage, got %v", err)
	}
	if fx.images.calls != 0 {
		t.Fatalf("extraction must not run after a blob store failure")
	}
	if fx.staging.removeCalls != 1 {
		t.Fatalf("staged file must be removed on failure, got %d removes", fx.staging.removeCalls)
	}
}

func TestIngestLedgerFailureSurfaces(t *testing.T) {
	fx := newIngestFixture()
	fx.ledger.appendErr = domain.WrapError(domain.ErrRPC, "publish", fmt.Errorf("connection refused"))
	uc := fx.usecase()

	_, err := uc.Ingest(context.Background(), imageUpload())
	if !domain.IsKind(err, domain.ErrRPC) {
		t.Fatalf("expected ErrRPC, got %v", err)
	}
	if fx.audit.calls != 0 {
		t.Fatalf("no audit event on a failed append")
	}
}

func TestIngestPDFUsesDocumentExtractor(t *testing.T) {
	fx := newIngestFixture()
	uc := fx.usecase()

	upload := imageUpload()
	upload.Filename = "rx.pdf"
	upload.FileKind = domain.FileKindPDF
	upload.FileBytes = []byte("%PDF-1.4")

	result, err := uc.Ingest(context.Background(), upload)
	if err != nil {
		t.Fatalf("Ingest() error = %v", err)
	}
	if fx.docs.calls != 1 || fx.images.calls != 0 {
		t.Fatalf("pdf upload must use the document extractor (docs=%d images=%d)", fx.docs.calls, fx.images.calls)
	}
	if result.Record.ExtractedText != fx.docs.text {
		t.Fatalf("unexpected extracted text: %q", result.Record.ExtractedText)
	}
}

func TestIngestNilAuditPublisherIsSkipped(t *testing.T) {
	fx := newIngestFixture()
	uc := NewIngestPrescriptionUseCase(
		fx.staging, fx.blobs, fx.images, fx.docs, fx.analyzer, fx.ledger, nil,
		fx.dataset, "prescription_data",
	)

	if _, err := uc.Ingest(context.Background(), imageUpload()); err != nil {
		t.Fatalf("Ingest() error = %v", err)
	}
}
