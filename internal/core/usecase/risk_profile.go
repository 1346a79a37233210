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

// RiskProfileUseCase merges drug mentions across a patient's full ledger
// history, re-runs interaction analysis over the merged list and asks the
// model for a narrative risk summary. Output is unstructured prose; no
// score or severity tiering is computed.
type RiskProfileUseCase struct {
	ledger   ports.Ledger
	analyzer ports.InteractionAnalyzer
	narrator ports.RiskNarrator
	dataset  json.RawMessage
	stream   string
}

func NewRiskProfileUseCase(
	ledger ports.Ledger,
	analyzer ports.InteractionAnalyzer,
	narrator ports.RiskNarrator,
	dataset json.RawMessage,
	stream string,
) *RiskProfileUseCase {
	return &RiskProfileUseCase{
		ledger:   ledger,
		analyzer: analyzer,
		narrator: narrator,
		dataset:  dataset,
		stream:   stream,
	}
}

func (uc *RiskProfileUseCase) BuildRiskProfile(ctx context.Context, patientID string) (string, error) {
	if strings.TrimSpace(patientID) == "" {
		return "", domain.WrapError(domain.ErrValidation, "risk profile", fmt.Errorf("patient_id is required"))
	}

	items, err := uc.ledger.QueryKey(ctx, uc.stream, patientID)
	if err != nil {
		return "", err
	}

	// Ledger return order, no dedup: repeated mentions across records are
	// kept so the model sees prescription frequency.
	var combined []string
	for _, item := range items {
		record, err := domain.DecodePrescriptionRecord(item.Data)
		if err != nil {
			return "", fmt.Errorf("decode ledger record for %s: %w", patientID, err)
		}
		combined = append(combined, domain.DrugMentions(record.ExtractedText)...)
	}

	analysis := uc.analyze(ctx, combined)

	profile, err := uc.narrator.GenerateRiskProfile(ctx, combined, analysis)
	if err != nil {
		return "", domain.WrapError(domain.ErrExternalModel, "risk narrative", err)
	}
	return profile, nil
}

func (uc *RiskProfileUseCase) analyze(ctx context.Context, drugs []string) string {
	if len(uc.dataset) == 0 {
		return domain.AnalysisUnavailable
	}
	analysis, err := uc.analyzer.AnalyzeInteractions(ctx, strings.Join(drugs, ", "), uc.dataset)
	if err != nil {
		slog.Warn("combined interaction analysis failed", "error", err)
		return fmt.Sprintf("Interaction analysis failed: %v", err)
	}
	return analysis
}
