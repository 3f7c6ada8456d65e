// Package preview renders the HTML page shown to browsers that resolve a
// short link without asking for a raw redirect.
package preview

import (
	"embed"
	"fmt"
	"html/template"
	"io"
	"time"
)

//go:embed templates/preview.html
var templateFS embed.FS

// Page is the data a preview carries.
type Page struct {
	Code        string
	URL         string
	Description string
}

// Renderer executes the embedded preview template. The template engine
// escapes every field, so markup inside a description is shown as text.
type Renderer struct {
	tmpl *template.Template
	// redirectAfter is in whole seconds, the unit of a meta refresh.
	redirectAfter int
}

// NewRenderer parses the embedded template. When redirectAfter is positive
// the page forwards to the target with a meta refresh. Fractions of a second
// round up, so a positive delay never turns the forward off.
func NewRenderer(redirectAfter time.Duration) (*Renderer, error) {
	tmpl, err := template.ParseFS(templateFS, "templates/preview.html")
	if err != nil {
		return nil, fmt.Errorf("parse preview template: %w", err)
	}
	var seconds int
	if redirectAfter > 0 {
		seconds = int((redirectAfter + time.Second - 1) / time.Second)
	}
	return &Renderer{tmpl: tmpl, redirectAfter: seconds}, nil
}

// Render writes the preview page for p to w.
func (r *Renderer) Render(w io.Writer, p Page) error {
	data := struct {
		Page
		RedirectAfter int
	}{
		Page:          p,
		RedirectAfter: r.redirectAfter,
	}
	return r.tmpl.ExecuteTemplate(w, "preview.html", data)
}
