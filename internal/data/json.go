package data

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"bmrs-report/internal/model"
)

// LoadSettlementJSON reads a saved settlement response (as written by
// `cli fetch --out`) from disk.
func LoadSettlementJSON(path string) (*model.SettlementResponse, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var resp model.SettlementResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// SaveSettlementJSON writes records to disk in the SettlementResponse shape.
func SaveSettlementJSON(path string, records []model.SettlementRecord) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}
	raw, err := json.MarshalIndent(model.SettlementResponse{Data: records}, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal records: %w", err)
	}
	if err := os.WriteFile(path, raw, 0o644); err != nil {
		return fmt.Errorf("failed to write records file: %w", err)
	}
	return nil
}

// GroupByDate splits records into settlement-date-keyed slices.
func GroupByDate(records []model.SettlementRecord) map[string][]model.SettlementRecord {
	out := map[string][]model.SettlementRecord{}
	for _, r := range records {
		out[r.SettlementDate] = append(out[r.SettlementDate], r)
	}
	return out
}
