package frontend

import (
	"embed"
	"fmt"
	"html/template"
	"io"

	"github.com/labstack/echo/v4"
)

//go:embed templates/*.html
var templateFS embed.FS

// Page template names.
const (
	pageIndex    = "index.html"
	pageAbout    = "about.html"
	pageMenu     = "menu.html"
	pageMenuItem = "menu_item.html"
	pageBook     = "book.html"
	pageBookings = "bookings.html"
)

// Renderer executes the embedded page templates inside the shared layout.
// It satisfies echo.Renderer.
type Renderer struct {
	pages map[string]*template.Template
}

func NewRenderer() (*Renderer, error) {
	r := &Renderer{pages: map[string]*template.Template{}}
	for _, name := range []string{pageIndex, pageAbout, pageMenu, pageMenuItem, pageBook, pageBookings} {
		t, err := template.ParseFS(templateFS, "templates/layout.html", "templates/"+name)
		if err != nil {
			return nil, fmt.Errorf("parse %s: %w", name, err)
		}
		r.pages[name] = t
	}
	return r, nil
}

func (r *Renderer) Render(w io.Writer, name string, data interface{}, _ echo.Context) error {
	t, ok := r.pages[name]
	if !ok {
		return fmt.Errorf("template %q not found", name)
	}
	return t.ExecuteTemplate(w, "layout", data)
}
