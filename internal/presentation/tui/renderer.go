package tui

import (
	"fmt"
	"strings"

	"github.com/aretw0/scribe/pkg/domain"
	"github.com/charmbracelet/glamour"
)

// NewRenderer returns a function that renders markdown using glamour.
func NewRenderer() (func(string) (string, error), error) {
	r, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(), // Automatically detect light/dark background
	)
	if err != nil {
		return nil, fmt.Errorf("init markdown renderer: %w", err)
	}
	return r.Render, nil
}

// ChecklistMarkdown formats a parse result as a markdown task list.
func ChecklistMarkdown(result domain.ParseResult) string {
	var b strings.Builder
	fmt.Fprintf(&b, "## %s\n\n", escape(result.Title))
	for _, task := range result.Tasks {
		fmt.Fprintf(&b, "- [ ] %s\n", escape(task))
	}
	if !result.Qualifies() {
		fmt.Fprintf(&b, "\n_Not a checklist: at least %d tasks are needed._\n", domain.MinTasks)
	}
	fmt.Fprintf(&b, "\n`format: %s`\n", result.Format)
	return b.String()
}

var markdownEscaper = strings.NewReplacer(
	`\`, `\\`, "*", `\*`, "_", `\_`, "`", "\\`", "[", `\[`, "]", `\]`, "#", `\#`,
)

func escape(s string) string {
	return markdownEscaper.Replace(s)
}
