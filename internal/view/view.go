package view

import (
	"bytes"
	"fmt"
	"html/template"
	"io"
	"io/fs"
	"net/http"
	"path/filepath"
	"strings"
	"time"
)

// Options configure the helpers available to every template.
type Options struct {
	SiteTitle string
	// Location is the display timezone for every date shown.
	Location *time.Location
	// MediaURL resolves an upload key to a URL.
	MediaURL func(key string) string
}

// View represents a collection of parsed HTML templates.
type View struct {
	templates map[string]*template.Template
	opts      Options
}

// New creates a new View by parsing all templates from the given filesystem.
func New(templateFS fs.FS, opts Options) (*View, error) {
	if opts.Location == nil {
		opts.Location = time.UTC
	}
	if opts.MediaURL == nil {
		opts.MediaURL = func(key string) string { return key }
	}
	v := &View{
		templates: make(map[string]*template.Template),
		opts:      opts,
	}

	layouts, err := fs.Glob(templateFS, "templates/layouts/*.html")
	if err != nil {
		return nil, err
	}
	pages, err := fs.Glob(templateFS, "templates/pages/*.html")
	if err != nil {
		return nil, err
	}

	funcs := v.funcs()
	for _, page := range pages {
		files := append(append([]string{}, layouts...), page)
		name := filepath.Base(page)
		ts, err := template.New(name).Funcs(funcs).ParseFS(templateFS, files...)
		if err != nil {
			return nil, fmt.Errorf("failed to parse template %s: %w", name, err)
		}
		v.templates[name] = ts
	}

	return v, nil
}

func (v *View) funcs() template.FuncMap {
	loc := v.opts.Location
	return template.FuncMap{
		"siteTitle": func() string { return v.opts.SiteTitle },
		"media":     v.opts.MediaURL,
		"mediaPtr": func(key *string) string {
			if key == nil || *key == "" {
				return ""
			}
			return v.opts.MediaURL(*key)
		},
		"date": func(t time.Time) string {
			return t.In(loc).Format("January 2, 2006")
		},
		"datetime": func(t time.Time) string {
			return t.In(loc).Format("Jan 2, 2006 3:04 PM")
		},
		"clock": func(t time.Time) string {
			return t.In(loc).Format("3:04 PM")
		},
		"isoDate": func(t time.Time) string {
			return t.In(loc).Format("2006-01-02")
		},
		// inputTime formats a time for <input type="datetime-local">.
		"inputTime": func(t *time.Time) string {
			if t == nil || t.IsZero() {
				return ""
			}
			return t.In(loc).Format("2006-01-02T15:04")
		},
		"deref": func(n *int64) int64 {
			if n == nil {
				return 0
			}
			return *n
		},
		"truncate": func(s string, n int) string {
			r := []rune(strings.TrimSpace(s))
			if len(r) <= n {
				return string(r)
			}
			return string(r[:n]) + "…"
		},
	}
}

// Render executes a specific template by name.
func (v *View) Render(w io.Writer, r *http.Request, name string, data map[string]interface{}) error {
	ts, ok := v.templates[name]
	if !ok {
		return fmt.Errorf("template %s not found", name)
	}

	if data == nil {
		data = make(map[string]interface{})
	}
	data["IsBasicMode"] = IsBasicMode(r.Context())

	// Execute the template into a buffer first to catch any errors
	// before writing to the response writer.
	buf := new(bytes.Buffer)
	if err := ts.Execute(buf, data); err != nil {
		return err
	}
	_, err := buf.WriteTo(w)
	return err
}
