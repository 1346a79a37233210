package domain

import (
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"
	"unicode"
)

// FileKind is the closed set of upload formats, chosen once at ingestion
// entry from the filename extension.
type FileKind string

const (
	FileKindImage       FileKind = "image"
	FileKindPDF         FileKind = "pdf"
	FileKindUnsupported FileKind = "unsupported"
)

func DetectFileKind(filename string) FileKind {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".png", ".jpg", ".jpeg":
		return FileKindImage
	case ".pdf":
		return FileKindPDF
	default:
		return FileKindUnsupported
	}
}

// PrescriptionUpload is the request-scoped input of the ingestion
// pipeline. FileBytes are staged locally during processing and discarded
// afterwards; only the blob store retains the content.
type PrescriptionUpload struct {
	FileBytes   []byte
	Filename    string
	FileKind    FileKind
	PatientID   string
	Timestamp   string // caller-supplied, opaque; only non-emptiness is enforced
	ClinicianID string // from the authenticated session, never the request body
}

// PrescriptionRecord is the unit persisted on the ledger. Field names
// match the payload layout already on chain; changing them breaks
// decoding of historical records.
type PrescriptionRecord struct {
	CID           string `json:"cid"`
	ClinicianID   string `json:"doctor_id"`
	Timestamp     string `json:"timestamp"`
	ExtractedText string `json:"extracted_text"`
	DDIAnalysis   string `json:"ddi_analysis"`
}

func (r PrescriptionRecord) Encode() ([]byte, error) {
	data, err := json.Marshal(r)
	if err != nil {
		return nil, fmt.Errorf("encode prescription record: %w", err)
	}
	return data, nil
}

func DecodePrescriptionRecord(data []byte) (PrescriptionRecord, error) {
	var r PrescriptionRecord
	if err := json.Unmarshal(data, &r); err != nil {
		return PrescriptionRecord{}, fmt.Errorf("decode prescription record: %w", err)
	}
	return r, nil
}

// DrugEntry is the schema the extraction model is asked for. The parse is
// fallible; raw text stays the stored truth either way.
type DrugEntry struct {
	Drug   string `json:"drug"`
	Dosage string `json:"dosage"`
}

// ParseDrugEntries attempts to read the extraction output as a JSON array
// of drug/dosage pairs. Models wrap the array in prose or code fences
// often enough that we cut to the outermost brackets first.
func ParseDrugEntries(raw string) ([]DrugEntry, bool) {
	start := strings.Index(raw, "[")
	end := strings.LastIndex(raw, "]")
	if start < 0 || end <= start {
		return nil, false
	}

	var entries []DrugEntry
	if err := json.Unmarshal([]byte(raw[start:end+1]), &entries); err != nil {
		return nil, false
	}
	if len(entries) == 0 {
		return nil, false
	}
	return entries, true
}

// IngestResult is what the pipeline hands back to the HTTP layer: the
// persisted record, the ledger's raw publish envelope, and the optional
// parsed drug list.
type IngestResult struct {
	Record         PrescriptionRecord
	LedgerResponse json.RawMessage
	ParsedDrugs    []DrugEntry
}

// DashboardUpload is one row of the clinician dashboard.
type DashboardUpload struct {
	CID       string `json:"CID"`
	Timestamp string `json:"Timestamp"`
	PatientID string `json:"Patient_ID"`
	IPFSLink  string `json:"IPFS_Link"`
}

// AnalysisUnavailable is returned in place of an interaction analysis
// when the reference dataset was never loaded. The exact string is part
// of the persisted record vocabulary.
const AnalysisUnavailable = "Error: Drug interaction data not available."

// DrugMentions tokenizes extracted text by whitespace and keeps
// alphabetic-only tokens. Deliberately naive; it is a mention heuristic,
// not an entity extractor.
func DrugMentions(extractedText string) []string {
	fields := strings.Fields(extractedText)
	mentions := make([]string, 0, len(fields))
	for _, field := range fields {
		if field == "" || !isAlphabetic(field) {
			continue
		}
		mentions = append(mentions, field)
	}
	return mentions
}

func isAlphabetic(s string) bool {
	for _, r := range s {
		if !unicode.IsLetter(r) {
			return false
		}
	}
	return true
}
