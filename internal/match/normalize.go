package match

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Normalize returns the canonical comparison form of text.
// The normalization pipeline:
// 1. Decompose (NFKD) and drop combining marks, so "Café" and "Cafe" agree.
// 2. Case-fold to lower.
// 3. Drop separators (_, -, whitespace) and every other non-alphanumeric rune.
//
// Normalize is idempotent: Normalize(Normalize(x)) == Normalize(x).
func Normalize(text string) string {
	if text == "" {
		return ""
	}

	folded := foldMarks(text)

	var b strings.Builder
	b.Grow(len(folded))

	for _, r := range folded {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(unicode.ToLower(r))
		}
	}

	return b.String()
}

// NormalizeSpaced lowercases text and collapses every run of non-alphanumeric
// runes into a single space. CamelCase boundaries are split too, so
// "dueDate", "due_date" and "Due  Date" all become "due date".
func NormalizeSpaced(text string) string {
	return strings.Join(Words(text), " ")
}

// Words splits text into lowercase alphanumeric words.
func Words(text string) []string {
	if text == "" {
		return nil
	}

	folded := []rune(foldMarks(text))

	var words []string

	var current strings.Builder

	flush := func() {
		if current.Len() > 0 {
			words = append(words, current.String())
			current.Reset()
		}
	}

	for i, r := range folded {
		if !unicode.IsLetter(r) && !unicode.IsDigit(r) {
			flush()

			continue
		}

		if i > 0 && startsCamelWord(folded, i) {
			flush()
		}

		current.WriteRune(unicode.ToLower(r))
	}

	flush()

	return words
}

// startsCamelWord reports whether position i begins a new CamelCase word.
// e.g. "dueDate" splits before 'D', "HTTPStatus" splits before 'S'.
func startsCamelWord(rs []rune, i int) bool {
	r, prev := rs[i], rs[i-1]
	if !unicode.IsUpper(r) {
		return false
	}

	if unicode.IsLower(prev) {
		return true
	}

	return unicode.IsUpper(prev) && i+1 < len(rs) && unicode.IsLower(rs[i+1])
}

// foldMarks strips combining marks after compatibility decomposition.
func foldMarks(text string) string {
	t := transform.Chain(norm.NFKD, runes.Remove(runes.In(unicode.Mn)))

	out, _, err := transform.String(t, text)
	if err != nil {
		return text
	}

	return out
}

// Contains reports whether either normalized string contains the other.
// Empty strings never contain anything.
func Contains(a, b string) bool {
	na, nb := Normalize(a), Normalize(b)
	if na == "" || nb == "" {
		return false
	}

	return strings.Contains(na, nb) || strings.Contains(nb, na)
}
