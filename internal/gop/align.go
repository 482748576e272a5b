package gop

import "fmt"

// AlignmentError reports a structural disagreement between the scored
// phoneme stream and the expected word segmentation. It indicates either a
// configuration skew between the reference-phone generator and the
// evaluator, or malformed input text; the request cannot produce a result.
type AlignmentError struct {
	// Index is the position in the flat scored-phoneme stream where the
	// mismatch occurred.
	Index int

	// Expected is the phoneme the segmentation called for.
	Expected string

	// Actual is the phoneme the evaluator emitted, or "" when the stream
	// was exhausted early. A surplus past the last word sets Actual with an
	// empty Expected.
	Actual string
}

func (e *AlignmentError) Error() string {
	switch {
	case e.Actual == "":
		return fmt.Sprintf("gop: scored phoneme stream exhausted at index %d (expected %q)", e.Index, e.Expected)
	case e.Expected == "":
		return fmt.Sprintf("gop: scored phoneme stream has %q at index %d past the last word", e.Actual, e.Index)
	default:
		return fmt.Sprintf("gop: phoneme mismatch at index %d: expected %q, got %q", e.Index, e.Expected, e.Actual)
	}
}

// Align zips the flat scored-phoneme stream against the word segmentation
// with a single shared cursor: each word consumes exactly as many scored
// phonemes as it expects, and every consumed symbol must equal the expected
// one. The evaluator is required to emit phonemes in the segmentation's exact
// order and inventory (both derive from the same text upstream), so any
// disagreement is fatal rather than recoverable.
func Align(scored []ScoredPhone, words []Word) ([][]ScoredPhone, error) {
	aligned := make([][]ScoredPhone, 0, len(words))
	cursor := 0
	for _, word := range words {
		wordScores := make([]ScoredPhone, 0, len(word.Phones))
		for _, expected := range word.Phones {
			if cursor >= len(scored) {
				return nil, &AlignmentError{Index: cursor, Expected: expected}
			}
			got := scored[cursor]
			if got.Phone != expected {
				return nil, &AlignmentError{Index: cursor, Expected: expected, Actual: got.Phone}
			}
			wordScores = append(wordScores, got)
			cursor++
		}
		aligned = append(aligned, wordScores)
	}
	// A surplus past the last word is the same skew signal as running out
	// early.
	if cursor != len(scored) {
		return nil, &AlignmentError{Index: cursor, Actual: scored[cursor].Phone}
	}
	return aligned, nil
}
