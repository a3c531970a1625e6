package http

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"net/url"
)

//go:embed templates/*.html
var templateFS embed.FS

const csrfFieldName = "csrf_token"

// Page templates, each rendered inside layout.html
const (
	pageLogin     = "login.html"
	pageDashboard = "dashboard.html"
	pageForm      = "form.html"
)

var pageFuncs = template.FuncMap{
	"inc": func(i int) int { return i + 1 },
	// record keys come from the Record API and may contain '/'
	"pathEscape": url.PathEscape,
}

// pageSet holds one parsed layout+page template per page
type pageSet struct {
	pages map[string]*template.Template
}

func loadPages() (*pageSet, error) {
	set := &pageSet{pages: make(map[string]*template.Template)}
	for _, name := range []string{pageLogin, pageDashboard, pageForm} {
		tpl, err := template.New("layout.html").Funcs(pageFuncs).
			ParseFS(templateFS, "templates/layout.html", "templates/"+name)
		if err != nil {
			return nil, fmt.Errorf("failed to parse %s: %w", name, err)
		}
		set.pages[name] = tpl
	}
	return set, nil
}

func (p *pageSet) render(name string, data interface{}) ([]byte, error) {
	tpl, ok := p.pages[name]
	if !ok {
		return nil, fmt.Errorf("unknown page %s", name)
	}
	var buf bytes.Buffer
	if err := tpl.Execute(&buf, data); err != nil {
		return nil, fmt.Errorf("failed to render %s: %w", name, err)
	}
	return buf.Bytes(), nil
}
