package domain

import "strings"

// ChatRequest is the body of a chat webhook call. SessionID is accepted for
// wire compatibility with the mobile client but carries no server-side state.
type ChatRequest struct {
	SessionID string `json:"sessionId"`
	Message   string `json:"message"`
}

type MedicationRecord struct {
	Name    string   `json:"name"`
	Dosage  string   `json:"dosage"`
	Timings []string `json:"timings"`
}

type ExerciseRecord struct {
	Name      string `json:"name"`
	Duration  string `json:"duration"`
	Frequency string `json:"frequency"`
}

// PrescriptionResult is the response shape of the prescription endpoint.
// Both slices are always present in the JSON output, never null.
type PrescriptionResult struct {
	Medications []MedicationRecord `json:"medications"`
	Exercises   []ExerciseRecord   `json:"exercises"`
}

// Normalize enforces the result invariants regardless of where the records
// came from: no two medications share a case-insensitive name (first
// occurrence wins) and neither slice is nil. Vision models occasionally
// repeat a medication or omit the exercises array entirely.
func (r *PrescriptionResult) Normalize() {
	seen := make(map[string]bool, len(r.Medications))
	meds := make([]MedicationRecord, 0, len(r.Medications))
	for _, m := range r.Medications {
		key := strings.ToLower(strings.TrimSpace(m.Name))
		if key == "" || seen[key] {
			continue
		}
		seen[key] = true
		meds = append(meds, m)
	}
	r.Medications = meds
	if r.Exercises == nil {
		r.Exercises = []ExerciseRecord{}
	}
}
