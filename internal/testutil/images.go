package testutil

import (
	"bytes"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"math/rand"
	"testing"
)

// NoisyPNG encodes a w x h PNG of deterministic random pixels.
func NoisyPNG(t testing.TB, w, h int) []byte {
	t.Helper()
	// #nosec G404: weak random is fine for test image generation
	rng := rand.New(rand.NewSource(42))
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetRGBA(x, y, color.RGBA{
				// #nosec G115: Intn(256) is safe for uint8
				R: uint8(rng.Intn(256)),
				// #nosec G115
				G: uint8(rng.Intn(256)),
				// #nosec G115
				B: uint8(rng.Intn(256)),
				A: 255,
			})
		}
	}
	buf := bytes.NewBuffer(nil)
	if err := png.Encode(buf, img); err != nil {
		t.Fatalf("encode noisy png: %v", err)
	}
	return buf.Bytes()
}

// SolidJPEG encodes a w x h single-colour JPEG.
func SolidJPEG(t testing.TB, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	fill := color.RGBA{R: 30, G: 120, B: 200, A: 255}
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetRGBA(x, y, fill)
		}
	}
	buf := bytes.NewBuffer(nil)
	if err := jpeg.Encode(buf, img, &jpeg.Options{Quality: 80}); err != nil {
		t.Fatalf("encode jpeg: %v", err)
	}
	return buf.Bytes()
}
