package segment

import "strings"

// splitConjunction splits on the whole word conj, e.g. "и".
//
// A leading verb is shared: when the first part has several words, its first
// word is carried onto later parts that are shorter than the first one, so
// "Купить молоко и хлеб" becomes "Купить молоко", "Купить хлеб".
func splitConjunction(text, conj string) []string {
	var (
		groups  [][]string
		current []string
	)
	for _, w := range strings.Fields(text) {
		if strings.EqualFold(w, conj) {
			groups = append(groups, current)
			current = nil
			continue
		}
		current = append(current, w)
	}
	groups = append(groups, current)

	var parts [][]string
	for _, g := range groups {
		if len(g) > 0 {
			parts = append(parts, g)
		}
	}
	if len(parts) < 2 {
		return nil
	}

	first := parts[0]
	out := make([]string, 0, len(parts))
	out = append(out, strings.Join(first, " "))
	for _, p := range parts[1:] {
		if len(first) > 1 && len(p) < len(first) {
			p = append([]string{first[0]}, p...)
		}
		out = append(out, strings.Join(p, " "))
	}
	return out
}
