// Package gop implements the Goodness-of-Pronunciation scoring stages: the
// phone table and evaluator report parsing, reference-phone segmentation,
// score-to-word alignment, word scoring, and the shell interface to the
// external Kaldi toolchain that produces the raw scores.
package gop

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
)

// PhoneTable maps the evaluator's integer phoneme-class identifiers to
// phoneme symbols. Loaded once at startup and reused for every request.
type PhoneTable map[int]string

// LoadPhoneTable reads a phone table file: one phoneme per line,
// `<symbol> <index>`, whitespace-separated. Blank lines are skipped.
func LoadPhoneTable(path string) (PhoneTable, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("gop: open phone table %q: %w", path, err)
	}
	defer f.Close()
	table, err := ParsePhoneTable(f)
	if err != nil {
		return nil, fmt.Errorf("gop: parse phone table %q: %w", path, err)
	}
	return table, nil
}

// ParsePhoneTable parses phone table lines from r.
func ParsePhoneTable(r io.Reader) (PhoneTable, error) {
	table := make(PhoneTable)
	scanner := bufio.NewScanner(r)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		fields := strings.Fields(scanner.Text())
		if len(fields) == 0 {
			continue
		}
		if len(fields) != 2 {
			return nil, fmt.Errorf("line %d: want `symbol index`, got %d fields", lineNo, len(fields))
		}
		idx, err := strconv.Atoi(fields[1])
		if err != nil {
			return nil, fmt.Errorf("line %d: bad index %q: %w", lineNo, fields[1], err)
		}
		table[idx] = fields[0]
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return table, nil
}

// Symbol returns the phoneme symbol for idx. Unknown indices map to a
// placeholder embedding the raw index so a single stale table entry degrades
// one phoneme instead of aborting the whole parse.
func (t PhoneTable) Symbol(idx int) string {
	if sym, ok := t[idx]; ok {
		return sym
	}
	return fmt.Sprintf("phone-%d", idx)
}
