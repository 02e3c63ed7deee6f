package llm

import (
	"encoding/json"
	"fmt"
	"strings"

	"carebridge/internal/domain"
)

// StripFences removes surrounding markdown code-fence markers from a model
// reply. Vision models routinely wrap their JSON in ```json ... ``` even when
// told not to.
func StripFences(raw string) string {
	s := strings.TrimSpace(raw)
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}

// DecodeResult parses a model reply into a PrescriptionResult, stripping
// code fences first and normalizing the result invariants. An empty or
// malformed body is an error.
func DecodeResult(raw string) (*domain.PrescriptionResult, error) {
	cleaned := StripFences(raw)
	if cleaned == "" {
		return nil, fmt.Errorf("model returned no JSON body")
	}

	var result domain.PrescriptionResult
	if err := json.Unmarshal([]byte(cleaned), &result); err != nil {
		return nil, fmt.Errorf("failed to parse model JSON: %w", err)
	}
	if result.Medications == nil {
		result.Medications = []domain.MedicationRecord{}
	}
	result.Normalize()
	return &result, nil
}
