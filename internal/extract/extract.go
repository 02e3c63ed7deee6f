// Package extract turns noisy OCR output from a prescription photo into
// structured medication records. It is deliberately heuristic: lines that
// don't look like a medication row are dropped rather than guessed at, so
// headers, signatures, and OCR garbage don't become phantom medications.
package extract

import (
	"regexp"
	"strings"

	"carebridge/internal/domain"
)

// minLineLen and minNameLen filter out OCR noise fragments.
const (
	minLineLen = 3
	minNameLen = 3
)

var (
	dosageRe = regexp.MustCompile(`(?i)(\d+(?:\.\d+)?)\s?(mg|mcg|ml|g)\b`)
	formRe   = regexp.MustCompile(`(?i)\b(?:tablets?|tabs?|capsules?|caps?|syrup|injection|drops?|cream|ointment)\b`)
	// nameRe captures the leading run a medicine name can be made of.
	nameRe = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9 \-]*`)
)

// Medications extracts medication records from a block of OCR text.
// The pass is line-oriented and order-preserving; it never fails, it just
// yields fewer records the worse the input is. The result contains no two
// records with the same case-insensitive name (first occurrence wins).
func Medications(text string) []domain.MedicationRecord {
	records := make([]domain.MedicationRecord, 0)
	seen := make(map[string]bool)

	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if len([]rune(line)) < minLineLen {
			continue
		}
		if !isMedicationLine(line) {
			continue
		}

		name := extractName(line)
		if len([]rune(name)) < minNameLen {
			continue
		}

		key := strings.ToLower(name)
		if seen[key] {
			continue
		}
		seen[key] = true

		records = append(records, domain.MedicationRecord{
			Name:    name,
			Dosage:  extractDosage(line),
			Timings: Timings(line),
		})
	}

	return records
}

// isMedicationLine is the candidacy filter: a line qualifies if it carries a
// dosage, a medicine-form keyword, or timing evidence. Precision over
// recall — prescription headers and footers match none of these.
func isMedicationLine(line string) bool {
	return dosageRe.MatchString(line) ||
		formRe.MatchString(line) ||
		hasTimingEvidence(line)
}

// extractName takes the leading alphanumeric run of the line, stopping
// before the first dosage or timing token, and strips embedded form
// keywords. Multi-word names survive: "Cough Syrup 10ml" yields "Cough"
// after the form keyword is removed, "Vitamin D3 1-0-1" yields "Vitamin D3".
func extractName(line string) string {
	cut := len(line)
	if loc := dosageRe.FindStringIndex(line); loc != nil && loc[0] < cut {
		cut = loc[0]
	}
	if idx := firstTimingIndex(line); idx >= 0 && idx < cut {
		cut = idx
	}

	head := nameRe.FindString(line[:cut])
	head = formRe.ReplaceAllString(head, "")
	return strings.Trim(normalizeSpaces(head), " -")
}

// extractDosage returns the first <number><unit> match in normalized form
// ("500 mg" becomes "500mg"), or "" when the line has no dosage.
func extractDosage(line string) string {
	m := dosageRe.FindStringSubmatch(line)
	if m == nil {
		return ""
	}
	return m[1] + strings.ToLower(m[2])
}
