package domain

// Format tags the classifier that produced a ParseResult.
type Format string

const (
	FormatNumbered    Format = "numbered"
	FormatBulleted    Format = "bulleted"
	FormatComma       Format = "comma"
	FormatSemicolon   Format = "semicolon"
	FormatNewline     Format = "newline"
	FormatPipe        Format = "pipe"
	FormatConjunction Format = "conjunction"
	FormatPlus        Format = "plus"
	FormatFallback    Format = "fallback-single"
)

// ParseResult is the outcome of segmenting one message.
type ParseResult struct {
	Tasks  []string `json:"tasks"`
	Title  string   `json:"title"`
	Format Format   `json:"format"`
}

// Qualifies reports whether the result has enough tasks to become a checklist.
func (r ParseResult) Qualifies() bool {
	return len(r.Tasks) >= MinTasks
}
