package service

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"html/template"

	"go-journal-app/internal/logger"

	"github.com/microcosm-cc/bluemonday"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/renderer/html"
)

// ContentCache is the subset of cache.Cache used for rendered bodies.
type ContentCache interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
}

// Renderer turns stored markdown into sanitised HTML.
type Renderer struct {
	md        goldmark.Markdown
	sanitizer *bluemonday.Policy
	cache     ContentCache
	log       logger.Logger
}

// NewRenderer creates a Renderer. cache may be nil.
func NewRenderer(cache ContentCache, log logger.Logger) *Renderer {
	md := goldmark.New(
		goldmark.WithExtensions(extension.GFM, extension.Linkify),
		goldmark.WithRendererOptions(html.WithHardWraps()),
	)
	return &Renderer{
		md: md,
		// UGCPolicy allows basic formatting like links, lists and emphasis
		// while stripping scripts and event handlers.
		sanitizer: bluemonday.UGCPolicy(),
		cache:     cache,
		log:       log,
	}
}

// Render converts src to HTML. Results are cached by content hash, so an
// edited body is a new key and never needs invalidating.
func (r *Renderer) Render(ctx context.Context, src string) template.HTML {
	if src == "" {
		return ""
	}
	sum := sha256.Sum256([]byte(src))
	key := "md:" + hex.EncodeToString(sum[:])

	if r.cache != nil {
		if cached, err := r.cache.Get(ctx, key); err != nil {
			r.log.Warn("Failed to read rendered content from cache: " + err.Error())
		} else if cached != nil {
			return template.HTML(cached)
		}
	}

	var buf bytes.Buffer
	if err := r.md.Convert([]byte(src), &buf); err != nil {
		r.log.Error(err, "Failed to render markdown")
		return template.HTML(template.HTMLEscapeString(src))
	}
	out := r.sanitizer.SanitizeBytes(buf.Bytes())

	if r.cache != nil {
		if err := r.cache.Set(ctx, key, out); err != nil {
			r.log.Warn("Failed to cache rendered content: " + err.Error())
		}
	}
	return template.HTML(out)
}
