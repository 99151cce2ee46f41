package gelf

import (
	"encoding/json"
	"fmt"
)

// Encoder serializes a built GELF field map into wire-ready bytes
type Encoder interface {
	Encode(fields map[string]any) ([]byte, error)
}

// JSONEncoder is the default encoder producing compact JSON
type JSONEncoder struct{}

func (JSONEncoder) Encode(fields map[string]any) ([]byte, error) {
	payload, err := json.Marshal(fields)
	if err != nil {
		return nil, fmt.Errorf("failed to encode GELF message: %w", err)
	}
	return payload, nil
}
