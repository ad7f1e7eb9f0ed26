package handler

import (
	"encoding/xml"
	"fmt"
	"net/http"
	"strings"
	"time"

	"go-journal-app/internal/logger"
	"go-journal-app/internal/policy"
	"go-journal-app/internal/service"
)

// SeoHandler serves robots.txt and a sitemap of the public pages.
type SeoHandler struct {
	entries service.EntryServicer
	events  service.EventServicer
	diary   service.DiaryServicer
	baseURL string
	log     logger.Logger
}

// NewSeoHandler creates a new SeoHandler. Sitemap links are absolute under baseURL.
func NewSeoHandler(entries service.EntryServicer, events service.EventServicer, diary service.DiaryServicer, baseURL string, log logger.Logger) *SeoHandler {
	return &SeoHandler{
		entries: entries,
		events:  events,
		diary:   diary,
		baseURL: strings.TrimSuffix(baseURL, "/"),
		log:     log,
	}
}

func (h *SeoHandler) robotsHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	fmt.Fprintln(w, "User-agent: *")
	fmt.Fprintln(w, "Allow: /")
	fmt.Fprintln(w, "Disallow: /media/")
	fmt.Fprintln(w, "Disallow: /admin-login/")
	fmt.Fprintln(w, "")
	fmt.Fprintf(w, "Sitemap: %s/sitemap.xml\n", h.baseURL)
}

const sitemapDateFormat = "2006-01-02"

type sitemapURL struct {
	XMLName xml.Name `xml:"url"`
	Loc     string   `xml:"loc"`
	LastMod string   `xml:"lastmod,omitempty"`
}

type urlSet struct {
	XMLName xml.Name     `xml:"urlset"`
	Xmlns   string       `xml:"xmlns,attr"`
	URLs    []sitemapURL `xml:"url"`
}

// sitemapHandler lists the section pages plus everything an anonymous
// visitor can read.
func (h *SeoHandler) sitemapHandler(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	entries, err := h.entries.List(ctx, policy.Anonymous)
	if err != nil {
		h.sitemapError(w, err)
		return
	}
	events, err := h.events.Published(ctx)
	if err != nil {
		h.sitemapError(w, err)
		return
	}
	pages, err := h.diary.List(ctx, policy.Anonymous)
	if err != nil {
		h.sitemapError(w, err)
		return
	}

	sitemap := urlSet{Xmlns: "http://www.sitemaps.org/schemas/sitemap/0.9"}
	for _, p := range []string{"/", "/entries/", "/define-your-path/", "/deannas-diary/", "/about/"} {
		sitemap.URLs = append(sitemap.URLs, sitemapURL{Loc: h.baseURL + p})
	}
	for _, e := range entries {
		sitemap.URLs = append(sitemap.URLs, h.url(entryURL(e.ID), e.UpdatedAt))
	}
	for _, e := range events {
		sitemap.URLs = append(sitemap.URLs, h.url(eventURL(e.ID), e.UpdatedAt))
	}
	for _, p := range pages {
		sitemap.URLs = append(sitemap.URLs, h.url(diaryURL(p.ID), p.UpdatedAt))
	}

	w.Header().Set("Content-Type", "application/xml")
	w.Write([]byte(xml.Header))
	encoder := xml.NewEncoder(w)
	encoder.Indent("", "  ")
	if err := encoder.Encode(sitemap); err != nil {
		h.log.Error(err, "Failed to encode sitemap")
	}
}

func (h *SeoHandler) url(path string, updated time.Time) sitemapURL {
	u := sitemapURL{Loc: h.baseURL + path}
	if !updated.IsZero() {
		u.LastMod = updated.UTC().Format(sitemapDateFormat)
	}
	return u
}

func (h *SeoHandler) sitemapError(w http.ResponseWriter, err error) {
	h.log.Error(err, "Failed to build sitemap")
	http.Error(w, "Failed to generate sitemap", http.StatusInternalServerError)
}
