package export

import (
	"fmt"

	"github.com/garyjia/grant-portal/internal/application/port"
	"github.com/garyjia/grant-portal/internal/domain/entity"
)

// DocumentTitle heads every exported document
const DocumentTitle = "Grant-In-Aid Conferences / Seminars Record"

// Renderer turns one record into a document
type Renderer interface {
	Format() port.ExportFormat
	Extension() string
	ContentType() string
	Render(site string, rec entity.Record) ([]byte, error)
}

// Renderers indexes renderers by format
type Renderers map[port.ExportFormat]Renderer

// NewRenderers builds the index from rs
func NewRenderers(rs ...Renderer) Renderers {
	m := make(Renderers, len(rs))
	for _, r := range rs {
		m[r.Format()] = r
	}
	return m
}

// Lookup returns the renderer for format
func (m Renderers) Lookup(format port.ExportFormat) (Renderer, error) {
	r, ok := m[format]
	if !ok {
		return nil, fmt.Errorf("%w: %q", port.ErrUnsupportedFormat, format)
	}
	return r, nil
}
