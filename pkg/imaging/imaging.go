// Package imaging validates uploaded pictures and renders thumbnails.
package imaging

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"net/http"

	"github.com/disintegration/imaging"
)

// MaxDimension bounds both sides of an accepted image.
const MaxDimension = 4096

// Validation failures.
var (
	ErrEmpty           = errors.New("image is empty")
	ErrUnsupportedType = errors.New("only jpeg, png and gif images are allowed")
	ErrTooLarge        = fmt.Errorf("image dimensions exceed %dpx", MaxDimension)
)

var extensions = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/gif":  ".gif",
}

// Info describes a validated image.
type Info struct {
	ContentType string
	Extension   string
	Format      string
	Width       int
	Height      int
}

// Inspect sniffs the content type and decodes the header to read dimensions.
func Inspect(data []byte) (*Info, error) {
	if len(data) == 0 {
		return nil, ErrEmpty
	}
	contentType := http.DetectContentType(data)
	ext, ok := extensions[contentType]
	if !ok {
		return nil, ErrUnsupportedType
	}
	cfg, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decode image: %w", err)
	}
	if cfg.Width > MaxDimension || cfg.Height > MaxDimension {
		return nil, ErrTooLarge
	}
	return &Info{ContentType: contentType, Extension: ext, Format: format, Width: cfg.Width, Height: cfg.Height}, nil
}

// Thumbnail center-crops data to a size x size square, encoded in the
// source format (gif thumbnails are encoded as png).
func Thumbnail(data []byte, size int) ([]byte, error) {
	img, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decode image: %w", err)
	}
	thumb := imaging.Fill(img, size, size, imaging.Center, imaging.Lanczos)

	var buf bytes.Buffer
	switch format {
	case "jpeg":
		err = imaging.Encode(&buf, thumb, imaging.JPEG, imaging.JPEGQuality(85))
	default:
		err = imaging.Encode(&buf, thumb, imaging.PNG)
	}
	if err != nil {
		return nil, fmt.Errorf("encode thumbnail: %w", err)
	}
	return buf.Bytes(), nil
}
