package handlers

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"log/slog"
	"net/http"

	"github.com/lehigh-university-libraries/imagegallery/internal/i18n"
	"github.com/russross/blackfriday/v2"
)

var (
	//go:embed templates/*.html
	templateFS embed.FS

	//go:embed assets/gallery.css
	cssContent []byte

	pages = []string{"index.html", "new.html"}

	// TemplateFuncMap holds the functions every page can use. "t" is rebound
	// to the request's localizer before rendering.
	TemplateFuncMap = template.FuncMap{
		"t":        func(id, fallback string) string { return fallback },
		"markdown": markdown,
	}

	templates = mustParse()
)

const markdownFlags = blackfriday.SkipHTML | blackfriday.Safelink | blackfriday.NofollowLinks |
	blackfriday.NoreferrerLinks | blackfriday.HrefTargetBlank

// markdown renders a description; raw HTML and unsafe links are dropped
func markdown(text string) template.HTML {
	renderer := blackfriday.NewHTMLRenderer(blackfriday.HTMLRendererParameters{Flags: markdownFlags})
	out := blackfriday.Run([]byte(text),
		blackfriday.WithRenderer(renderer),
		blackfriday.WithExtensions(blackfriday.CommonExtensions),
	)
	return template.HTML(out)
}

func mustParse() map[string]*template.Template {
	out := make(map[string]*template.Template, len(pages))
	for _, page := range pages {
		tmpl, err := template.New(page).Funcs(TemplateFuncMap).ParseFS(templateFS, "templates/layout.html", "templates/"+page)
		if err != nil {
			panic(fmt.Sprintf("failed to parse template %s: %v", page, err))
		}
		out[page] = tmpl
	}
	return out
}

// render executes a page inside the layout with the request's localizer
func (h *Handler) render(w http.ResponseWriter, r *http.Request, page string, data map[string]any) {
	base, ok := templates[page]
	if !ok {
		h.writeError(w, "Unknown page "+page, http.StatusInternalServerError)
		return
	}
	tmpl, err := base.Clone()
	if err != nil {
		h.writeError(w, "Failed to prepare template: "+err.Error(), http.StatusInternalServerError)
		return
	}
	lc := i18n.FromContext(r.Context())
	tmpl.Funcs(template.FuncMap{"t": lc.T})

	if data == nil {
		data = make(map[string]any)
	}
	data["Lang"] = lc.Lang()

	var buf bytes.Buffer
	if err := tmpl.ExecuteTemplate(&buf, "layout", data); err != nil {
		h.writeError(w, "Failed to render page: "+err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if _, err := buf.WriteTo(w); err != nil {
		slog.Error("Unable to write page", "page", page, "err", err)
	}
}

// HandleCSS serves the embedded stylesheet
func (h *Handler) HandleCSS(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/css; charset=utf-8")
	w.Header().Set("Cache-Control", "public, max-age=3600")
	if _, err := w.Write(cssContent); err != nil {
		slog.Error("Unable to write stylesheet", "err", err)
	}
}
