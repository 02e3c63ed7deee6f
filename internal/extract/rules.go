package extract

import (
	"regexp"
	"strings"
)

// Canonical time-of-day labels.
const (
	Morning = "Morning"
	Noon    = "Noon"
	Night   = "Night"
)

// AsDirected is assigned when a medication line carries no timing evidence.
const AsDirected = "As directed"

var (
	clockRe     = regexp.MustCompile(`\b\d{1,2}:\d{2}\b`)
	countRe     = regexp.MustCompile(`\b(\d)-(\d)-(\d)\b`)
	morningRe   = regexp.MustCompile(`(?i)\bmorning\b`)
	noonRe      = regexp.MustCompile(`(?i)\b(?:noon|afternoon)\b`)
	nightRe     = regexp.MustCompile(`(?i)\b(?:night|evening)\b`)
	frequencyRe = regexp.MustCompile(`(?i)\b(?:od|bd|tds|hs|twice daily|three times daily)\b`)
)

// abbreviations maps standard prescription shorthand to times of day.
// Whole-word matching keeps "HS" from firing inside e.g. "NHS".
var abbreviations = []struct {
	pattern *regexp.Regexp
	timings []string
}{
	{regexp.MustCompile(`(?i)\bod\b`), []string{Morning}},
	{regexp.MustCompile(`(?i)\b(?:bd|twice daily)\b`), []string{Morning, Night}},
	{regexp.MustCompile(`(?i)\b(?:tds|three times daily)\b`), []string{Morning, Noon, Night}},
	{regexp.MustCompile(`(?i)\bhs\b`), []string{Night}},
}

// timingRules is the ordered rule table for deriving timings from a line.
// Rules are evaluated top to bottom; the first rule returning a non-empty
// result wins. Explicit clock times rank above shorthand because they are
// the strongest evidence the prescriber left on the line.
var timingRules = []struct {
	name  string
	apply func(line string) []string
}{
	{"clock", clockTimes},
	{"count-triple", countTriple},
	{"abbreviation", abbreviation},
	{"keyword", keywords},
}

// Timings derives the time-of-day labels for one medication line.
// It never returns an empty slice; lines with no timing evidence get
// the AsDirected sentinel.
func Timings(line string) []string {
	for _, rule := range timingRules {
		if t := rule.apply(line); len(t) > 0 {
			return t
		}
	}
	return []string{AsDirected}
}

// clockTimes returns every H:MM / HH:MM token on the line, verbatim.
func clockTimes(line string) []string {
	return clockRe.FindAllString(line, -1)
}

// countTriple maps a D-D-D shorthand (morning-noon-night counts) to labels.
// The first triple on the line with a nonzero digit wins; all-zero triples
// carry no timing information and are passed over, so a later rule or the
// sentinel can apply when no triple says anything.
func countTriple(line string) []string {
	for _, m := range countRe.FindAllStringSubmatch(line, -1) {
		var timings []string
		if m[1] != "0" {
			timings = append(timings, Morning)
		}
		if m[2] != "0" {
			timings = append(timings, Noon)
		}
		if m[3] != "0" {
			timings = append(timings, Night)
		}
		if len(timings) > 0 {
			return timings
		}
	}
	return nil
}

func abbreviation(line string) []string {
	for _, abbr := range abbreviations {
		if abbr.pattern.MatchString(line) {
			return abbr.timings
		}
	}
	return nil
}

// keywords collects bare time-of-day words anywhere on the line. Matches are
// additive: "morning and night" yields both labels.
func keywords(line string) []string {
	var timings []string
	if morningRe.MatchString(line) {
		timings = append(timings, Morning)
	}
	if noonRe.MatchString(line) {
		timings = append(timings, Noon)
	}
	if nightRe.MatchString(line) {
		timings = append(timings, Night)
	}
	return timings
}

// hasTimingEvidence reports whether the line carries prescription timing
// shorthand: a clock time, a dose count triple, or a frequency token. Bare
// time-of-day words are deliberately not evidence, otherwise advice lines
// like "take in the morning with food" would qualify as medication rows;
// they still contribute timings once a line has qualified on other grounds.
// An all-zero count triple still counts as evidence that the line is a
// medication row.
func hasTimingEvidence(line string) bool {
	return clockRe.MatchString(line) ||
		countRe.MatchString(line) ||
		frequencyRe.MatchString(line)
}

// firstTimingIndex returns the byte offset of the earliest timing token on
// the line, or -1. Name extraction stops before this offset.
func firstTimingIndex(line string) int {
	idx := -1
	for _, re := range []*regexp.Regexp{clockRe, countRe, frequencyRe, morningRe, noonRe, nightRe} {
		if loc := re.FindStringIndex(line); loc != nil && (idx == -1 || loc[0] < idx) {
			idx = loc[0]
		}
	}
	return idx
}

// normalizeSpaces collapses interior whitespace runs to single spaces.
func normalizeSpaces(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
