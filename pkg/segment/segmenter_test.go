package segment_test

import (
	"fmt"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/aretw0/scribe/pkg/domain"
	"github.com/aretw0/scribe/pkg/segment"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse_Formats(t *testing.T) {
	tests := []struct {
		name   string
		text   string
		want   []string
		format domain.Format
	}{
		{"comma", "Milk, Bread, Cheese", []string{"Milk", "Bread", "Cheese"}, domain.FormatComma},
		{"numbered dot", "1. Buy milk\n2. Buy bread", []string{"Buy milk", "Buy bread"}, domain.FormatNumbered},
		{"numbered paren", "1) Buy milk\n2) Buy bread", []string{"Buy milk", "Buy bread"}, domain.FormatNumbered},
		{"bullets", "• Milk\n• Bread\n• Cheese", []string{"Milk", "Bread", "Cheese"}, domain.FormatBulleted},
		{"dash bullets", "- Milk\n- Bread", []string{"Milk", "Bread"}, domain.FormatBulleted},
		{"star bullets", "* Milk\n* Bread", []string{"Milk", "Bread"}, domain.FormatBulleted},
		{"checkboxes", "- [ ] Milk\n- [x] Bread", []string{"Milk", "Bread"}, domain.FormatBulleted},
		{"nested comma", "Buy (milk, bread), cheese", []string{"Buy (milk, bread)", "cheese"}, domain.FormatComma},
		{"semicolon", "Milk; Bread; Cheese", []string{"Milk", "Bread", "Cheese"}, domain.FormatSemicolon},
		{"newline", "Milk\n\nBread\n  \nCheese", []string{"Milk", "Bread", "Cheese"}, domain.FormatNewline},
		{"crlf", "Milk\r\nBread", []string{"Milk", "Bread"}, domain.FormatNewline},
		{"pipe", "Milk | Bread | Cheese", []string{"Milk", "Bread", "Cheese"}, domain.FormatPipe},
		{"russian and", "Купить молоко и хлеб", []string{"Купить молоко", "Купить хлеб"}, domain.FormatConjunction},
		{"russian and, equal parts", "Помыть посуду и вынести мусор", []string{"Помыть посуду", "вынести мусор"}, domain.FormatConjunction},
		{"english and is not a separator", "Tom and Jerry", []string{"Tom and Jerry"}, domain.FormatFallback},
		{"plus", "Milk + Bread", []string{"Milk", "Bread"}, domain.FormatPlus},
		{"plus inside word", "Learn C++", []string{"Learn C++"}, domain.FormatFallback},
		{"single", "  Just one thing  ", []string{"Just one thing"}, domain.FormatFallback},
		{"word containing conjunction", "Иван пришёл", []string{"Иван пришёл"}, domain.FormatFallback},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := segment.Parse(tt.text)
			assert.Equal(t, tt.want, res.Tasks)
			assert.Equal(t, tt.format, res.Format)
		})
	}
}

func TestParse_Empty(t *testing.T) {
	for _, text := range []string{"", "   ", "\n\t\n"} {
		res := segment.Parse(text)
		assert.Empty(t, res.Tasks, "text %q", text)
		assert.Equal(t, domain.FormatFallback, res.Format)
		assert.False(t, res.Qualifies())
	}
}

func TestParse_CommaCountAndOrder(t *testing.T) {
	for n := 2; n <= 25; n++ {
		items := make([]string, n)
		for i := range items {
			items[i] = fmt.Sprintf("item %d", i)
		}
		res := segment.Parse(strings.Join(items, " ,  "))
		require.Len(t, res.Tasks, n)
		assert.Equal(t, items, res.Tasks)
	}
}

func TestParse_NumberedBeatsComma(t *testing.T) {
	res := segment.Parse("1. Milk, bread\n2. Cheese, ham")
	assert.Equal(t, domain.FormatNumbered, res.Format)
	assert.Equal(t, []string{"Milk, bread", "Cheese, ham"}, res.Tasks)
}

func TestParse_NumberedIgnoresUnnumberedLines(t *testing.T) {
	res := segment.Parse("Shopping:\n1. Milk\n2. Bread\nthanks")
	assert.Equal(t, []string{"Milk", "Bread"}, res.Tasks)
}

func TestParse_DecimalIsNotNumbered(t *testing.T) {
	res := segment.Parse("1.5 kg flour\n2.5 kg sugar")
	assert.Equal(t, domain.FormatNewline, res.Format)
	assert.Equal(t, []string{"1.5 kg flour", "2.5 kg sugar"}, res.Tasks)
}

func TestParse_SingleNumberedLineFallsThrough(t *testing.T) {
	res := segment.Parse("1. Milk, bread")
	assert.Equal(t, domain.FormatComma, res.Format)
	assert.Equal(t, []string{"1. Milk", "bread"}, res.Tasks)
}

func TestParse_Brackets(t *testing.T) {
	tests := []struct {
		name string
		text string
		want []string
	}{
		{"square and curly", "a [b, c], d {e, f}, g", []string{"a [b, c]", "d {e, f}", "g"}},
		{"unmatched closer", "a), b, c", []string{"a)", "b", "c"}},
		{"unmatched opener stops splitting", "a, b (c, d, e", []string{"a", "b (c, d, e"}},
		{"any closer ends a group", "a (b], c), d", []string{"a (b]", "c)", "d"}},
		{"round opener square closer", "(a, b], c, d", []string{"(a, b]", "c", "d"}},
		{"semicolon in brackets", "x (1; 2); y", []string{"x (1; 2)", "y"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, segment.Parse(tt.text).Tasks)
		})
	}
}

func TestParse_OpenerBeforeFirstCommaFallsBack(t *testing.T) {
	res := segment.Parse("call (mom, dad")
	assert.Equal(t, domain.FormatFallback, res.Format)
	assert.Equal(t, []string{"call (mom, dad"}, res.Tasks)
}

func TestParse_Truncation(t *testing.T) {
	long := strings.Repeat("я", 150)
	res := segment.Parse(long + ", short")
	require.Len(t, res.Tasks, 2)
	assert.Equal(t, domain.MaxTaskLength, utf8.RuneCountInString(res.Tasks[0]))
	assert.Equal(t, "short", res.Tasks[1])

	single := segment.Parse("  " + strings.Repeat("x", 150) + "  ")
	require.Len(t, single.Tasks, 1)
	assert.Len(t, single.Tasks[0], domain.MaxTaskLength)
	assert.False(t, single.Qualifies())
}

func TestParse_TruncationKeepsWhitespaceAtCut(t *testing.T) {
	text := strings.Repeat("a", 99) + " tail, b"
	res := segment.Parse(text)
	require.Len(t, res.Tasks, 2)
	assert.Equal(t, strings.Repeat("a", 99)+" ", res.Tasks[0])
	assert.Equal(t, domain.MaxTaskLength, utf8.RuneCountInString(res.Tasks[0]))
}

func TestParse_MismatchedClosersUseCommaFormat(t *testing.T) {
	res := segment.Parse("(a, b], c, d")
	assert.Equal(t, domain.FormatComma, res.Format)
	assert.Equal(t, []string{"(a, b]", "c", "d"}, res.Tasks)
}

func TestWithConjunctions(t *testing.T) {
	def := segment.New()
	assert.Equal(t, domain.FormatFallback, def.Parse("Tom and Jerry").Format)

	s := segment.New(segment.WithConjunctions("и", "and"))
	res := s.Parse("Buy milk and eggs")
	assert.Equal(t, domain.FormatConjunction, res.Format)
	assert.Equal(t, []string{"Buy milk", "Buy eggs"}, res.Tasks)
	assert.Equal(t, []string{"Купить молоко", "Купить хлеб"}, s.Parse("Купить молоко и хлеб").Tasks)

	blank := segment.New(segment.WithConjunctions(" ", ""))
	assert.Equal(t, domain.FormatConjunction, blank.Parse("Купить молоко и хлеб").Format)
}

func TestParse_Deterministic(t *testing.T) {
	clock := func() time.Time { return time.Date(2025, 3, 9, 14, 5, 0, 0, time.UTC) }
	s := segment.New(segment.WithClock(clock), segment.WithLocation(time.UTC))
	text := "Milk, Bread (white, rye); Cheese"

	first := s.Parse(text)
	second := s.Parse(text)
	assert.Equal(t, first, second)
	assert.Equal(t, "Список от 09.03.2025 14:05", first.Title)
}

func TestParse_TitleTemplate(t *testing.T) {
	clock := func() time.Time { return time.Date(2025, 12, 31, 23, 59, 0, 0, time.UTC) }
	s := segment.New(
		segment.WithClock(clock),
		segment.WithLocation(time.UTC),
		segment.WithTitleTemplate("{{.Count}} tasks ({{.Format}}) on {{.Now.Format \"2006-01-02\"}}"),
	)

	res := s.Parse("a, b, c")
	assert.Equal(t, "3 tasks (comma) on 2025-12-31", res.Title)
}

func TestParse_InvalidTitleTemplateKeepsDefault(t *testing.T) {
	clock := func() time.Time { return time.Date(2025, 1, 2, 3, 4, 0, 0, time.UTC) }
	s := segment.New(segment.WithClock(clock), segment.WithLocation(time.UTC), segment.WithTitleTemplate("{{.Broken"))

	assert.Equal(t, "Список от 02.01.2025 03:04", s.Parse("a, b").Title)
	assert.Error(t, segment.ValidateTitleTemplate("{{.Broken"))
	assert.NoError(t, segment.ValidateTitleTemplate(segment.DefaultTitleTemplate))
}

func TestTasks_SkipsTitle(t *testing.T) {
	s := segment.New()
	assert.Equal(t, []string{"a", "b"}, s.Tasks("a; b"))
}
