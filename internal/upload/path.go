// Package upload stores user uploaded files under per-owner folders and
// downsizes oversized images on the way in.
package upload

import (
	"path"
	"strconv"
	"strings"
)

// HasOwner is implemented by every entity that carries uploads.
type HasOwner interface {
	UploadFolder() string
	// OwnerID returns nil when the owner is not known yet.
	OwnerID() *int64
}

// aboutFolder holds the about page image, which has no owner.
const aboutFolder = "about"

// Path returns "<folder>/<owner id or unknown>/<filename>".
func Path(o HasOwner, filename string) string {
	owner := "unknown"
	if id := o.OwnerID(); id != nil {
		owner = strconv.FormatInt(*id, 10)
	}
	return path.Join(o.UploadFolder(), owner, CleanName(filename))
}

// AboutPath returns the storage key for the about page image.
func AboutPath(filename string) string {
	return path.Join(aboutFolder, CleanName(filename))
}

// CleanName strips any directory part a browser may send and replaces
// characters that do not belong in a URL path segment.
func CleanName(filename string) string {
	filename = strings.ReplaceAll(filename, "\\", "/")
	filename = path.Base(filename)
	if filename == "." || filename == "/" || filename == ".." {
		return "upload"
	}
	var b strings.Builder
	for _, r := range filename {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '.', r == '-', r == '_':
			b.WriteRune(r)
		case r == ' ':
			b.WriteRune('_')
		}
	}
	name := strings.TrimLeft(b.String(), ".")
	if name == "" {
		return "upload"
	}
	return name
}
