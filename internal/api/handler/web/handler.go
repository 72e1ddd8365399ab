// internal/api/handler/web/handler.go
package web

import (
	"embed"
	"fmt"
	"html/template"
	"io/fs"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/newthinker/sigrelay/internal/pattern"
	"github.com/newthinker/sigrelay/internal/storage/signal"
)

//go:embed templates/*
var templateFS embed.FS

// pages are the page templates, each parsed together with layout.html.
var pages = []string{"dashboard.html"}

// DefaultRecentSignals is how many signals the dashboard lists.
const DefaultRecentSignals = 20

// Config holds web UI settings.
type Config struct {
	// TemplatesDir overrides the embedded templates when set.
	TemplatesDir  string
	RecentSignals int
	// PublicURL is the externally visible base URL used for the webhook
	// hint. The request host is used when empty.
	PublicURL string
}

// Handler provides web UI handlers with template rendering
type Handler struct {
	// pageTemplates holds separate template instances for each page
	// Each instance contains layout.html + the specific page template
	pageTemplates map[string]*template.Template

	history   *signal.History
	table     *pattern.Table
	recent    int
	publicURL string
	now       func() time.Time
}

// NewHandler creates a new web handler. If cfg.TemplatesDir is empty, it
// falls back to embedded templates.
func NewHandler(cfg Config, history *signal.History, table *pattern.Table) (*Handler, error) {
	var fsys fs.FS
	if cfg.TemplatesDir != "" {
		fsys = os.DirFS(filepath.Clean(cfg.TemplatesDir))
	} else {
		fsys = TemplateFS()
	}

	pageTemplates, err := parsePages(fsys)
	if err != nil {
		return nil, err
	}

	recent := cfg.RecentSignals
	if recent <= 0 {
		recent = DefaultRecentSignals
	}

	return &Handler{
		pageTemplates: pageTemplates,
		history:       history,
		table:         table,
		recent:        recent,
		publicURL:     cfg.PublicURL,
		now:           time.Now,
	}, nil
}

func parsePages(fsys fs.FS) (map[string]*template.Template, error) {
	pageTemplates := make(map[string]*template.Template, len(pages))
	for _, page := range pages {
		tmpl, err := template.New(page).Funcs(funcs).ParseFS(fsys, "layout.html", page)
		if err != nil {
			return nil, fmt.Errorf("parsing template %s: %w", page, err)
		}
		pageTemplates[page] = tmpl
	}
	return pageTemplates, nil
}

var funcs = template.FuncMap{
	"pct": func(v float64) string { return fmt.Sprintf("%.1f", v*100) },
	"f1":  func(v float64) string { return fmt.Sprintf("%.1f", v) },
	"f2":  func(v float64) string { return fmt.Sprintf("%.2f", v) },
}

// render executes the specified page template with the given data
func (h *Handler) render(w http.ResponseWriter, page string, data any) {
	tmpl, ok := h.pageTemplates[page]
	if !ok {
		http.Error(w, "template not found: "+page, http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := tmpl.ExecuteTemplate(w, "layout.html", data); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

// TemplateFS returns the embedded template filesystem for external use.
func TemplateFS() fs.FS {
	subFS, err := fs.Sub(templateFS, "templates")
	if err != nil {
		// This should never happen with valid embed directive
		return templateFS
	}
	return subFS
}
