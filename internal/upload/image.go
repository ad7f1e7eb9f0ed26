package upload

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	_ "image/gif"
	"image/jpeg"
	_ "image/png"
	"path"
	"strings"

	"github.com/nfnt/resize"
)

// ImageLimits bounds stored images.
type ImageLimits struct {
	MaxWidth    int
	MaxHeight   int
	JPEGQuality int
}

// DefaultImageLimits matches the site's 1200x1200 bound.
var DefaultImageLimits = ImageLimits{MaxWidth: 1200, MaxHeight: 1200, JPEGQuality: 85}

// Downscale shrinks an image that exceeds the limits, keeping its aspect
// ratio, and re-encodes it as JPEG. The returned name carries a .jpg
// extension when the image was rewritten. Content that is not a decodable
// image, or already fits, is returned untouched with resized false.
func Downscale(content []byte, filename string, limits ImageLimits) (out []byte, name string, resized bool, err error) {
	cfg, _, err := image.DecodeConfig(bytes.NewReader(content))
	if err != nil {
		return content, filename, false, nil
	}
	if cfg.Width <= limits.MaxWidth && cfg.Height <= limits.MaxHeight {
		return content, filename, false, nil
	}

	img, _, err := image.Decode(bytes.NewReader(content))
	if err != nil {
		return nil, "", false, fmt.Errorf("failed to decode image: %w", err)
	}
	thumb := resize.Thumbnail(uint(limits.MaxWidth), uint(limits.MaxHeight), img, resize.Lanczos3)

	quality := limits.JPEGQuality
	if quality <= 0 || quality > 100 {
		quality = DefaultImageLimits.JPEGQuality
	}
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, flatten(thumb), &jpeg.Options{Quality: quality}); err != nil {
		return nil, "", false, fmt.Errorf("failed to encode image: %w", err)
	}
	return buf.Bytes(), jpegName(filename), true, nil
}

// flatten draws img over white so transparent pixels do not turn black in JPEG.
func flatten(img image.Image) image.Image {
	b := img.Bounds()
	rgba := image.NewRGBA(b)
	draw.Draw(rgba, b, &image.Uniform{C: color.White}, image.Point{}, draw.Src)
	draw.Draw(rgba, b, img, b.Min, draw.Over)
	return rgba
}

func jpegName(filename string) string {
	ext := path.Ext(filename)
	if strings.EqualFold(ext, ".jpg") {
		return filename
	}
	return strings.TrimSuffix(filename, ext) + ".jpg"
}
