package gop

import "math"

// Label is the qualitative classification of a word's average score.
type Label string

const (
	LabelPassed  Label = "passed"
	LabelAverage Label = "average"
	LabelFailed  Label = "failed"
)

// Classification thresholds on the average GOP score.
const (
	passedThreshold  = -0.3
	averageThreshold = -0.7
)

// WordScore is the final per-word result.
type WordScore struct {
	// Phones are the word's phoneme symbols in order.
	Phones []string `json:"phonemes"`

	// Score is the arithmetic mean of the word's phoneme scores, rounded
	// to 4 decimal places.
	Score float64 `json:"score"`

	// Label classifies Score: passed (≥ -0.3), average (≥ -0.7), failed.
	Label Label `json:"label"`
}

// ScoreWords reduces each aligned word to its average score and label,
// preserving word order. A word with zero phonemes scores 0.0; that is a
// defensive fallback, not an expected input.
func ScoreWords(aligned [][]ScoredPhone) []WordScore {
	results := make([]WordScore, 0, len(aligned))
	for _, word := range aligned {
		phones := make([]string, 0, len(word))
		var sum float64
		for _, p := range word {
			phones = append(phones, p.Phone)
			sum += p.Score
		}
		avg := 0.0
		if len(word) > 0 {
			avg = sum / float64(len(word))
		}
		avg = math.Round(avg*10000) / 10000
		results = append(results, WordScore{
			Phones: phones,
			Score:  avg,
			Label:  Classify(avg),
		})
	}
	return results
}

// Classify maps an average score onto its qualitative label.
func Classify(avg float64) Label {
	switch {
	case avg >= passedThreshold:
		return LabelPassed
	case avg >= averageThreshold:
		return LabelAverage
	default:
		return LabelFailed
	}
}
