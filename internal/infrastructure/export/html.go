package export

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"time"

	"github.com/garyjia/grant-portal/internal/application/port"
	"github.com/garyjia/grant-portal/internal/domain/entity"
)

//go:embed templates/record.html
var templateFS embed.FS

// HTMLRenderer renders a printable HTML page
type HTMLRenderer struct {
	tmpl *template.Template
	now  func() time.Time
}

// NewHTMLRenderer parses the embedded print template
func NewHTMLRenderer() (*HTMLRenderer, error) {
	tmpl, err := template.ParseFS(templateFS, "templates/record.html")
	if err != nil {
		return nil, fmt.Errorf("failed to parse record template: %w", err)
	}
	return &HTMLRenderer{tmpl: tmpl, now: time.Now}, nil
}

func (r *HTMLRenderer) Format() port.ExportFormat { return port.ExportHTML }
func (r *HTMLRenderer) Extension() string         { return ".html" }
func (r *HTMLRenderer) ContentType() string       { return "text/html; charset=utf-8" }

type recordPage struct {
	Title       string
	Site        string
	LetterNo    string
	Fields      []entity.LabeledValue
	GeneratedAt string
}

// Render executes the template into a complete document
func (r *HTMLRenderer) Render(site string, rec entity.Record) ([]byte, error) {
	page := recordPage{
		Title:       DocumentTitle,
		Site:        site,
		LetterNo:    rec.LetterNo,
		Fields:      rec.Labeled(),
		GeneratedAt: r.now().Format("2006-01-02 15:04"),
	}

	var buf bytes.Buffer
	if err := r.tmpl.Execute(&buf, page); err != nil {
		return nil, fmt.Errorf("failed to render record %s: %w", rec.LetterNo, err)
	}
	return buf.Bytes(), nil
}
