// Package textfix scrubs the corruption marker some degraded backends emit
// in place of characters they failed to render. Marked words are corrected
// against a dictionary when a close match exists; unresolved markers are
// stripped.
package textfix

import (
	"strings"
	"unicode"

	"github.com/agnivade/levenshtein"
)

// Marker is the canonical corruption glyph. Degraded servers substitute a
// pair of replacement characters for one misrecognized letter; Normalize
// folds that pair into a single marker before correction.
const Marker = '⁂'

const replacementPair = "��"

// maxSuggestDistance bounds how far a dictionary word may be from the
// corrupted one; the marker itself accounts for one edit.
const maxSuggestDistance = 2

type Fixer struct {
	words []string
}

// NewFixer builds a fixer over a dictionary word list. An empty dictionary
// is valid: markers are stripped without correction attempts.
func NewFixer(words []string) *Fixer {
	cleaned := make([]string, 0, len(words))
	for _, w := range words {
		w = strings.TrimSpace(w)
		if w != "" {
			cleaned = append(cleaned, w)
		}
	}
	return &Fixer{words: cleaned}
}

// Fix returns text with corruption markers resolved or removed.
func (f *Fixer) Fix(text string) string {
	text = normalize(text)
	if !strings.ContainsRune(text, Marker) {
		return text
	}
	for _, word := range markedWords(text) {
		if fixed, ok := f.suggest(word); ok {
			text = strings.Replace(text, word, fixed, 1)
		}
	}
	return strings.ReplaceAll(text, string(Marker), "")
}

func normalize(text string) string {
	text = strings.ReplaceAll(text, replacementPair, string(Marker))
	return strings.ReplaceAll(text, "�", string(Marker))
}

// markedWords extracts the words containing a marker, split on anything that
// is neither a letter, a digit nor the marker itself.
func markedWords(text string) []string {
	fields := strings.FieldsFunc(text, func(r rune) bool {
		return r != Marker && !unicode.IsLetter(r) && !unicode.IsNumber(r)
	})
	var out []string
	for _, w := range fields {
		if strings.ContainsRune(w, Marker) {
			out = append(out, w)
		}
	}
	return out
}

func (f *Fixer) suggest(word string) (string, bool) {
	best := ""
	bestDistance := maxSuggestDistance + 1
	for _, candidate := range f.words {
		d := levenshtein.ComputeDistance(word, candidate)
		if d < bestDistance {
			best, bestDistance = candidate, d
		}
	}
	if best == "" {
		return "", false
	}
	return best, true
}
