package imaging

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func pngBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for x := 0; x < w; x++ {
		for y := 0; y < h; y++ {
			img.Set(x, y, color.RGBA{R: uint8(x), G: uint8(y), B: 200, A: 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func TestInspectPNG(t *testing.T) {
	info, err := Inspect(pngBytes(t, 40, 20))
	require.NoError(t, err)
	assert.Equal(t, "image/png", info.ContentType)
	assert.Equal(t, ".png", info.Extension)
	assert.Equal(t, 40, info.Width)
	assert.Equal(t, 20, info.Height)
}

func TestInspectRejects(t *testing.T) {
	_, err := Inspect(nil)
	assert.ErrorIs(t, err, ErrEmpty)

	_, err = Inspect([]byte("plain text, not an image"))
	assert.ErrorIs(t, err, ErrUnsupportedType)
}

func TestThumbnailIsSquare(t *testing.T) {
	thumb, err := Thumbnail(pngBytes(t, 64, 32), 16)
	require.NoError(t, err)

	cfg, format, err := image.DecodeConfig(bytes.NewReader(thumb))
	require.NoError(t, err)
	assert.Equal(t, "png", format)
	assert.Equal(t, 16, cfg.Width)
	assert.Equal(t, 16, cfg.Height)
}
