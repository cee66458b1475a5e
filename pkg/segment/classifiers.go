package segment

import (
	"regexp"
	"strings"

	"github.com/aretw0/scribe/pkg/domain"
)

// classifier proposes a split of the text. It is accepted only when the split
// yields at least domain.MinTasks non-empty parts.
type classifier struct {
	format domain.Format
	split  func(text string) []string
}

func defaultClassifiers() []classifier {
	return []classifier{
		{domain.FormatNumbered, splitNumbered},
		{domain.FormatBulleted, splitBulleted},
		{domain.FormatComma, func(text string) []string { return splitTopLevel(text, ',') }},
		{domain.FormatSemicolon, func(text string) []string { return splitTopLevel(text, ';') }},
		{domain.FormatNewline, lines},
		{domain.FormatPipe, func(text string) []string { return strings.Split(text, "|") }},
	}
}

// inlineClassifiers are tried after pipe: one per conjunction, then plus.
func inlineClassifiers(conjunctions []string) []classifier {
	out := make([]classifier, 0, len(conjunctions)+1)
	for _, conj := range conjunctions {
		out = append(out, classifier{domain.FormatConjunction, func(text string) []string { return splitConjunction(text, conj) }})
	}
	return append(out, classifier{domain.FormatPlus, func(text string) []string { return splitToken(text, "+") }})
}

var (
	numberedLine = regexp.MustCompile(`^\s*\d+[.)](\s*)(\S.*)$`)
	checkboxLine = regexp.MustCompile(`^\s*[-*•]\s*\[[ xX]?\]\s*(.*)$`)
	bulletLine   = regexp.MustCompile(`^\s*[•·*-]\s*(.+)$`)
)

func lines(text string) []string {
	return strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n")
}

// splitNumbered keeps the content of every "<n>. " or "<n>) " line.
// Lines without a number are ignored. "1.5 kg" is a decimal, not an item.
func splitNumbered(text string) []string {
	var out []string
	for _, line := range lines(text) {
		m := numberedLine.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		if m[1] == "" && m[2][0] >= '0' && m[2][0] <= '9' {
			continue
		}
		out = append(out, m[2])
	}
	return out
}

// splitBulleted keeps the content of every bulleted or checkbox line.
func splitBulleted(text string) []string {
	var out []string
	for _, line := range lines(text) {
		if m := checkboxLine.FindStringSubmatch(line); m != nil {
			out = append(out, m[1])
			continue
		}
		if m := bulletLine.FindStringSubmatch(line); m != nil {
			out = append(out, m[1])
		}
	}
	return out
}

// splitTopLevel splits on sep only outside (), [] and {}.
// Bracket kinds are not paired: any closer ends the innermost group, and a
// stray closer at depth 0 is ignored. An opener that is never closed keeps the
// rest of the text in one piece.
func splitTopLevel(text string, sep rune) []string {
	var (
		parts []string
		depth int
		start int
	)
	for i, r := range text {
		switch r {
		case '(', '[', '{':
			depth++
		case ')', ']', '}':
			if depth > 0 {
				depth--
			}
		case sep:
			if depth == 0 {
				parts = append(parts, text[start:i])
				start = i + len(string(sep))
			}
		}
	}
	return append(parts, text[start:])
}

// splitToken splits on a whitespace-delimited token, so "C++" stays whole.
func splitToken(text, token string) []string {
	var (
		parts   []string
		current []string
	)
	for _, w := range strings.Fields(text) {
		if w == token {
			parts = append(parts, strings.Join(current, " "))
			current = nil
			continue
		}
		current = append(current, w)
	}
	return append(parts, strings.Join(current, " "))
}
