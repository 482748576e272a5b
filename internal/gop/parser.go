package gop

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// ScoredPhone is one phoneme with its GOP score, in utterance order. Scores
// are log-likelihood-like: 0 is a perfect match, more negative is worse.
type ScoredPhone struct {
	Phone string
	Score float64
}

// scorePair matches one bracketed `[index value]` pair. Brackets may contain
// internal whitespace; values may use scientific notation.
var scorePair = regexp.MustCompile(`\[\s*(\d+)\s+([-+0-9.eE]+)\s*\]`)

// ParseReport parses the evaluator's report: a single line beginning with an
// utterance identifier followed by zero or more bracketed `[index value]`
// pairs. Returns the scored phonemes in report order. Indices absent from
// table become placeholder symbols rather than errors.
func ParseReport(report string, table PhoneTable) ([]ScoredPhone, error) {
	line := strings.TrimSpace(report)
	if line == "" {
		return nil, fmt.Errorf("gop: empty evaluator report")
	}
	// Everything before the first bracket is the utterance identifier.
	if !strings.ContainsRune(line, '[') && len(strings.Fields(line)) > 1 {
		return nil, fmt.Errorf("gop: report has no score pairs: %q", truncate(line))
	}

	matches := scorePair.FindAllStringSubmatch(line, -1)
	phones := make([]ScoredPhone, 0, len(matches))
	for _, m := range matches {
		idx, err := strconv.Atoi(m[1])
		if err != nil {
			return nil, fmt.Errorf("gop: bad phone index %q: %w", m[1], err)
		}
		score, err := strconv.ParseFloat(m[2], 64)
		if err != nil {
			return nil, fmt.Errorf("gop: bad score %q for phone index %d: %w", m[2], idx, err)
		}
		phones = append(phones, ScoredPhone{Phone: table.Symbol(idx), Score: score})
	}
	return phones, nil
}

func truncate(s string) string {
	if len(s) > 80 {
		return s[:77] + "..."
	}
	return s
}
