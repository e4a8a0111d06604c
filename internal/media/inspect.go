// Package media inspects uploaded bytes: content sniffing, image
// dimensions and size formatting.
package media

import (
	"bytes"
	"context"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/gabriel-vasile/mimetype"
	"github.com/headless-cms-admin/internal/models"
	_ "golang.org/x/image/webp"
)

// Info is what could be learned from an upload's bytes
type Info struct {
	// MimeType is the sniffed type without parameters, "" when data was empty
	MimeType string
	Width    *int
	Height   *int
}

// Inspect sniffs data and, for images, reads the pixel dimensions from the
// header. A header that cannot be decoded leaves the dimensions nil.
func Inspect(ctx context.Context, data []byte) (Info, error) {
	if err := ctx.Err(); err != nil {
		return Info{}, err
	}
	if len(data) == 0 {
		return Info{}, nil
	}

	info := Info{MimeType: BaseType(mimetype.Detect(data).String())}
	if Classify(info.MimeType) != models.MediaTypeImage {
		return info, nil
	}

	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return info, nil
	}
	if err := ctx.Err(); err != nil {
		return Info{}, err
	}
	info.Width = &cfg.Width
	info.Height = &cfg.Height
	return info, nil
}

// Classify maps a MIME type to its media family
func Classify(mimeType string) models.MediaFileType {
	switch {
	case strings.HasPrefix(mimeType, "image/"):
		return models.MediaTypeImage
	case strings.HasPrefix(mimeType, "video/"):
		return models.MediaTypeVideo
	default:
		return models.MediaTypeDocument
	}
}

// Consistent reports whether a declared type agrees with the sniffed one.
// Only the image family is enforced; container formats such as ogg sniff
// ambiguously between audio, video and application.
func Consistent(declared, sniffed string) bool {
	if sniffed == "" {
		return true
	}
	declaredImage := Classify(BaseType(declared)) == models.MediaTypeImage
	sniffedImage := Classify(sniffed) == models.MediaTypeImage
	return declaredImage == sniffedImage
}

// BaseType strips parameters such as charset from a MIME type
func BaseType(mimeType string) string {
	if i := strings.IndexByte(mimeType, ';'); i >= 0 {
		mimeType = mimeType[:i]
	}
	return strings.ToLower(strings.TrimSpace(mimeType))
}

// FormatSize renders a byte count for people, e.g. "10 MiB"
func FormatSize(n int64) string {
	if n < 0 {
		n = 0
	}
	return humanize.IBytes(uint64(n))
}
