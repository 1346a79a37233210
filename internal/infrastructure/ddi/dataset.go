package ddi

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
)

// LoadDataset reads the drug-drug-interaction reference dataset from a
// JSON file. The content stays an opaque blob handed to the model as
// prompt context; only well-formedness is checked. A missing or invalid
// dataset is not fatal — the pipeline degrades to its sentinel analysis.
func LoadDataset(path string) json.RawMessage {
	if path == "" {
		return nil
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		slog.Error("ddi dataset not loaded", "path", path, "error", err)
		return nil
	}
	if !json.Valid(raw) {
		slog.Error("ddi dataset not loaded", "path", path, "error", fmt.Errorf("invalid json"))
		return nil
	}
	return json.RawMessage(raw)
}
