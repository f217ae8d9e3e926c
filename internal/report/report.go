// Package report serializes metrics bundles and insights reports to their
// JSON artifact form. Encoding is a pure function of the bundle; group order
// is carried by a JSON array, so the aggregator's first-seen order survives
// the round trip.
package report

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/mixaill76/ads_insight_agent/internal/metrics"
)

// Encode renders a bundle as indented JSON.
func Encode(b *metrics.Bundle) ([]byte, error) {
	data, err := json.MarshalIndent(b, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encode bundle: %w", err)
	}
	return data, nil
}

// EncodeCompact renders a bundle without indentation, the form handed to the
// insights model to keep the prompt small.
func EncodeCompact(b *metrics.Bundle) ([]byte, error) {
	data, err := json.Marshal(b)
	if err != nil {
		return nil, fmt.Errorf("encode bundle: %w", err)
	}
	return data, nil
}

// Decode parses an encoded bundle back into its structured form, undefined
// ratio markers included.
func Decode(data []byte) (*metrics.Bundle, error) {
	var b metrics.Bundle
	if err := json.Unmarshal(data, &b); err != nil {
		return nil, fmt.Errorf("decode bundle: %w", err)
	}
	return &b, nil
}

// Write encodes the bundle and writes the artifact, creating parent
// directories as needed.
func Write(path string, b *metrics.Bundle) error {
	data, err := Encode(b)
	if err != nil {
		return err
	}
	return writeFile(path, data)
}

// WriteJSON writes any serializable artifact (e.g. the insights report).
func WriteJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("encode %s: %w", filepath.Base(path), err)
	}
	return writeFile(path, data)
}

func writeFile(path string, data []byte) error {
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("create output dir %s: %w", dir, err)
		}
	}
	if err := os.WriteFile(path, append(data, '\n'), 0644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}
