package preprocess

import (
	"bytes"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"math/rand"
	"testing"

	"framepickr/internal/config"
	"framepickr/internal/logger"

	"github.com/stretchr/testify/require"
)

// ===== Fixtures =====

func gradientImage(width, height int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			v := uint8((x * 255) / max(1, width-1))
			img.Set(x, y, color.RGBA{R: v, G: uint8((y * 255) / max(1, height-1)), B: 128, A: 255})
		}
	}
	return img
}

func noiseImage(width, height int, seed int64) *image.RGBA {
	rng := rand.New(rand.NewSource(seed))
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	rng.Read(img.Pix)
	for i := 3; i < len(img.Pix); i += 4 {
		img.Pix[i] = 255
	}
	return img
}

func encodePNG(t *testing.T, img image.Image) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func encodeJPEGFixture(t *testing.T, img image.Image) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, jpeg.Encode(&buf, img, &jpeg.Options{Quality: 95}))
	return buf.Bytes()
}

func newTestPreprocessor(limits config.PreprocessLimits) *Preprocessor {
	cfg := config.Default()
	cfg.Preprocess = limits
	return NewPreprocessor(cfg, logger.NewDiscardLogger())
}
