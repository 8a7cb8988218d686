package engine

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/codanna-go/codanna/internal/search"
)

// schemaVersion is bumped whenever the on-disk layout (interner.bin,
// files.bin, text/, vectors/) changes incompatibly.
const schemaVersion = 1

// Meta is the persisted <index>/meta.json record.
type Meta struct {
	SchemaVersion  int            `json:"schema_version"`
	FusionStrategy search.Strategy `json:"fusion_strategy"`
	VectorDim      int            `json:"vector_dim"`
	Generation     uint64         `json:"generation"`
}

func loadMeta(path string) (Meta, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Meta{SchemaVersion: schemaVersion}, nil
		}
		return Meta{}, fmt.Errorf("read meta.json: %w", err)
	}
	var m Meta
	if err := json.Unmarshal(data, &m); err != nil {
		return Meta{}, fmt.Errorf("parse meta.json: %w", err)
	}
	return m, nil
}

func saveMeta(path string, m Meta) error {
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return fmt.Errorf("encode meta.json: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write meta.json: %w", err)
	}
	return nil
}
