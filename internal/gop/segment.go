package gop

import (
	"bufio"
	"io"
	"strings"
)

// Word is the expected phoneme sequence for one word of the reference text,
// with positional suffixes and stress digits already stripped.
type Word struct {
	// ID is the leading word identifier token from the reference-phone file.
	ID string

	// Phones are the cleaned phoneme symbols, in order. Its length is the
	// number of scored phonemes that must align to this word.
	Phones []string
}

// ParseReferencePhones parses a reference phonetic transcription: one word
// per line, a leading identifier token followed by whitespace-separated
// phoneme tokens. Lines without phonemes are skipped.
func ParseReferencePhones(r io.Reader) ([]Word, error) {
	var words []Word
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		fields := strings.Fields(scanner.Text())
		if len(fields) < 2 {
			continue
		}
		phones := make([]string, 0, len(fields)-1)
		for _, tok := range fields[1:] {
			phones = append(phones, CleanPhone(tok))
		}
		words = append(words, Word{ID: fields[0], Phones: phones})
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return words, nil
}

// CleanPhone strips the positional suffix (_B, _I, _E, _S) and trailing
// stress digits from a phoneme token: "AH0_B" → "AH", "S_S" → "S",
// "IY2" → "IY". The result must match the phone table's symbols exactly,
// since alignment compares symbols for string equality.
func CleanPhone(tok string) string {
	if i := strings.IndexByte(tok, '_'); i >= 0 {
		tok = tok[:i]
	}
	for len(tok) > 0 {
		last := tok[len(tok)-1]
		if last < '0' || last > '9' {
			break
		}
		tok = tok[:len(tok)-1]
	}
	return tok
}
