// Package transcript compares recognised speech against a target phrase for
// the read-aloud check: how close is what the learner said to what they were
// asked to say?
//
// The comparison combines edit distance (what proportion of the target
// survived) with Double Metaphone phonetic encoding, so "their" read as
// "there" counts as a phonetic match even though the spellings differ.
package transcript

import (
	"strings"
	"unicode"

	"github.com/antzucaro/matchr"
)

// Similarity reports how closely a recognised utterance matches the target.
type Similarity struct {
	// Distance is the Levenshtein edit distance between the normalised
	// strings.
	Distance int `json:"distance"`

	// Ratio is 1 - distance/max(len), in [0, 1]; 1 means an exact match
	// after normalisation.
	Ratio float64 `json:"ratio"`

	// PhoneticMatch is true when the Double Metaphone encodings of the two
	// normalised strings overlap — the utterance sounds like the target
	// even if spelled differently.
	PhoneticMatch bool `json:"phonetic_match"`
}

// Compare scores recognised against target. Both are normalised first:
// lowercased, punctuation stripped, whitespace collapsed.
func Compare(recognized, target string) Similarity {
	r := Normalize(recognized)
	tg := Normalize(target)

	dist := matchr.Levenshtein(r, tg)
	longest := max(len(r), len(tg))
	ratio := 1.0
	if longest > 0 {
		ratio = 1 - float64(dist)/float64(longest)
		if ratio < 0 {
			ratio = 0
		}
	}

	return Similarity{
		Distance:      dist,
		Ratio:         ratio,
		PhoneticMatch: phoneticEqual(r, tg),
	}
}

// Normalize lowercases s, drops everything except letters, digits, and
// spaces, and collapses runs of whitespace.
func Normalize(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range strings.ToLower(s) {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(r)
		case unicode.IsSpace(r):
			b.WriteRune(' ')
		}
	}
	return strings.Join(strings.Fields(b.String()), " ")
}

// phoneticEqual reports whether any Double Metaphone code of a equals any
// code of b. Empty strings never match.
func phoneticEqual(a, b string) bool {
	if a == "" || b == "" {
		return false
	}
	a1, a2 := matchr.DoubleMetaphone(a)
	b1, b2 := matchr.DoubleMetaphone(b)
	for _, x := range []string{a1, a2} {
		if x == "" {
			continue
		}
		for _, y := range []string{b1, b2} {
			if y != "" && x == y {
				return true
			}
		}
	}
	return false
}
