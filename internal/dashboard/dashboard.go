// Package dashboard renders the status page: one card per target in
// registry order, green for pass, red for fail, grey when unknown.
package dashboard

import (
	"bytes"
	"embed"
	"html/template"
	"io"
	"time"

	"github.com/hamed0406/statuswatch/internal/status"
)

//go:embed templates/index.html
var files embed.FS

type Renderer struct {
	tmpl  *template.Template
	title string
}

type page struct {
	Title   string
	Rows    []status.Row
	Year    int
	Version string
}

func New(title string) (*Renderer, error) {
	if title == "" {
		title = "Status"
	}
	t, err := template.New("index.html").Funcs(template.FuncMap{
		"iso":   func(t *time.Time) string { return t.UTC().Format(time.RFC3339) },
		"human": func(t *time.Time) string { return t.UTC().Format("2 Jan 2006, 15:04:05 UTC") },
	}).ParseFS(files, "templates/index.html")
	if err != nil {
		return nil, err
	}
	return &Renderer{tmpl: t, title: title}, nil
}

// Render writes the page. Output is buffered so a template error never
// leaves a half-written response.
func (r *Renderer) Render(w io.Writer, rows []status.Row, now time.Time, version string) error {
	var buf bytes.Buffer
	err := r.tmpl.Execute(&buf, page{
		Title:   r.title,
		Rows:    rows,
		Year:    now.Year(),
		Version: version,
	})
	if err != nil {
		return err
	}
	_, err = buf.WriteTo(w)
	return err
}
