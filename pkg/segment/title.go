package segment

import (
	"strings"
	"text/template"
	"time"

	"github.com/aretw0/scribe/pkg/domain"
)

// DefaultTitleTemplate renders "Список от 02.01.2006 15:04".
const DefaultTitleTemplate = "Список от {{.Date}} {{.Time}}"

// TitleData is the data available to title templates.
type TitleData struct {
	Count  int
	Date   string
	Time   string
	Now    time.Time
	Format domain.Format
}

func parseTitle(text string) (*template.Template, error) {
	return template.New("title").Option("missingkey=zero").Parse(text)
}

// ValidateTitleTemplate reports whether text parses and renders.
func ValidateTitleTemplate(text string) error {
	tmpl, err := parseTitle(text)
	if err != nil {
		return err
	}
	var b strings.Builder
	return tmpl.Execute(&b, TitleData{Now: time.Unix(0, 0)})
}

func (s *Segmenter) renderTitle(count int, format domain.Format) string {
	now := s.now().In(s.loc)
	data := TitleData{
		Count:  count,
		Date:   now.Format("02.01.2006"),
		Time:   now.Format("15:04"),
		Now:    now,
		Format: format,
	}
	var b strings.Builder
	if err := s.title.Execute(&b, data); err != nil {
		return "Список от " + data.Date + " " + data.Time
	}
	return strings.TrimSpace(b.String())
}
