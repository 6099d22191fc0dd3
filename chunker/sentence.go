package chunker

import (
	"strings"
	"unicode"
)

// Normalize collapses every whitespace run into a single space and trims the result.
func Normalize(text string) string {
	return strings.Join(strings.Fields(text), " ")
}

// Sentences splits normalized text after '.', '!' or '?' followed by whitespace.
// The punctuation stays attached to its sentence.
func Sentences(text string) []string {
	text = Normalize(text)
	if text == "" {
		return nil
	}
	var out []string
	runes := []rune(text)
	start := 0
	for i := 0; i < len(runes)-1; i++ {
		if !isTerminal(runes[i]) || !unicode.IsSpace(runes[i+1]) {
			continue
		}
		if sentence := strings.TrimSpace(string(runes[start : i+1])); sentence != "" {
			out = append(out, sentence)
		}
		start = i + 1
	}
	if tail := strings.TrimSpace(string(runes[start:])); tail != "" {
		out = append(out, tail)
	}
	return out
}

func isTerminal(r rune) bool {
	return r == '.' || r == '!' || r == '?'
}
