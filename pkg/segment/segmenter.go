package segment

import (
	"strings"
	"text/template"
	"time"
	"unicode/utf8"

	"github.com/aretw0/scribe/pkg/domain"
)

// Segmenter turns raw text into a domain.ParseResult.
// It is safe for concurrent use.
type Segmenter struct {
	classifiers  []classifier
	conjunctions []string
	title       *template.Template
	now         func() time.Time
	loc         *time.Location
	maxLen      int
}

// Option configures a Segmenter.
type Option func(*Segmenter)

// WithClock overrides the clock used for titles.
func WithClock(now func() time.Time) Option {
	return func(s *Segmenter) {
		if now != nil {
			s.now = now
		}
	}
}

// WithLocation sets the time zone titles are rendered in.
func WithLocation(loc *time.Location) Option {
	return func(s *Segmenter) {
		if loc != nil {
			s.loc = loc
		}
	}
}

// WithTitleTemplate sets the title template. An invalid template is ignored
// and the default stays in place; use ValidateTitleTemplate to check it first.
func WithTitleTemplate(text string) Option {
	return func(s *Segmenter) {
		if strings.TrimSpace(text) == "" {
			return
		}
		if tmpl, err := parseTitle(text); err == nil {
			s.title = tmpl
		}
	}
}

// DefaultConjunctions are the words split on when no other separator applies.
var DefaultConjunctions = []string{"и"}

// WithConjunctions replaces the conjunction words, tried in order after pipe.
// Adding "and" makes English lists split, at the cost of names such as
// "Tom and Jerry" becoming two tasks.
func WithConjunctions(words ...string) Option {
	return func(s *Segmenter) {
		var clean []string
		for _, w := range words {
			if w = strings.TrimSpace(w); w != "" {
				clean = append(clean, w)
			}
		}
		if len(clean) > 0 {
			s.conjunctions = clean
		}
	}
}

// New creates a Segmenter with the default classifier chain.
func New(opts ...Option) *Segmenter {
	s := &Segmenter{
		conjunctions: DefaultConjunctions,
		title:        template.Must(parseTitle(DefaultTitleTemplate)),
		now:          time.Now,
		loc:          time.Local,
		maxLen:       domain.MaxTaskLength,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.classifiers = append(defaultClassifiers(), inlineClassifiers(s.conjunctions)...)
	return s
}

var defaultSegmenter = New()

// Parse segments text with the default Segmenter.
func Parse(text string) domain.ParseResult {
	return defaultSegmenter.Parse(text)
}

// Parse segments text into tasks. Empty input yields no tasks.
func (s *Segmenter) Parse(text string) domain.ParseResult {
	tasks, format := s.segments(text)
	return domain.ParseResult{
		Tasks:  tasks,
		Title:  s.renderTitle(len(tasks), format),
		Format: format,
	}
}

// Tasks returns only the task list, skipping title rendering.
func (s *Segmenter) Tasks(text string) []string {
	tasks, _ := s.segments(text)
	return tasks
}

func (s *Segmenter) segments(text string) ([]string, domain.Format) {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return []string{}, domain.FormatFallback
	}

	for _, c := range s.classifiers {
		parts := compact(c.split(trimmed))
		if len(parts) >= domain.MinTasks {
			return s.truncateAll(parts), c.format
		}
	}

	return s.truncateAll([]string{trimmed}), domain.FormatFallback
}

// compact trims every part and drops the empty ones.
func compact(parts []string) []string {
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func (s *Segmenter) truncateAll(parts []string) []string {
	for i, p := range parts {
		parts[i] = truncate(p, s.maxLen)
	}
	return parts
}

// truncate keeps the first limit runes of s.
func truncate(s string, limit int) string {
	if utf8.RuneCountInString(s) <= limit {
		return s
	}
	n := 0
	for i := range s {
		if n == limit {
			return s[:i]
		}
		n++
	}
	return s
}
