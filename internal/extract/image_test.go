package extract

import (
	"bytes"
	"errors"
	"image"
	"image/color"
	"image/gif"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"findex/internal/findex"
)

func writePNG(t *testing.T, width, height int) string {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for x := 0; x < width; x++ {
		for y := 0; y < height; y++ {
			img.Set(x, y, color.RGBA{R: uint8(x), G: uint8(y), B: 100, A: 255})
		}
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encoding png: %v", err)
	}
	path := filepath.Join(t.TempDir(), "test.png")
	if err := os.WriteFile(path, buf.Bytes(), 0644); err != nil {
		t.Fatalf("writing png: %v", err)
	}
	return path
}

func writeAnimatedGIF(t *testing.T, frames int, delayHundredths int) string {
	t.Helper()
	anim := &gif.GIF{}
	palette := []color.Color{color.White, color.Black}
	for i := 0; i < frames; i++ {
		frame := image.NewPaletted(image.Rect(0, 0, 16, 16), palette)
		frame.SetColorIndex(i%16, i%16, 1)
		anim.Image = append(anim.Image, frame)
		anim.Delay = append(anim.Delay, delayHundredths)
	}

	var buf bytes.Buffer
	if err := gif.EncodeAll(&buf, anim); err != nil {
		t.Fatalf("encoding gif: %v", err)
	}
	path := filepath.Join(t.TempDir(), "test.gif")
	if err := os.WriteFile(path, buf.Bytes(), 0644); err != nil {
		t.Fatalf("writing gif: %v", err)
	}
	return path
}

func TestImageExtractor_Extract(t *testing.T) {
	e := NewImageExtractor(findex.NewNopLogger())

	t.Run("extracts png dimensions and summary", func(t *testing.T) {
		path := writePNG(t, 64, 48)

		md, err := e.Extract(path, "image/png")
		if err != nil {
			t.Fatalf("Extract() error = %v", err)
		}
		if md == nil || md.Image == nil {
			t.Fatal("Extract() returned no image metadata")
		}
		if md.Image.Width != 64 || md.Image.Height != 48 {
			t.Errorf("dimensions = %dx%d, want 64x48", md.Image.Width, md.Image.Height)
		}
		if md.Image.Thumbhash == "" {
			t.Error("Thumbhash empty, want perceptual summary")
		}
		if md.Image.Animated {
			t.Error("Animated = true for still png")
		}
	})

	t.Run("detects gif animation and duration", func(t *testing.T) {
		path := writeAnimatedGIF(t, 4, 10) // 4 frames x 100ms

		md, err := e.Extract(path, "image/gif")
		if err != nil {
			t.Fatalf("Extract() error = %v", err)
		}
		if !md.Image.Animated {
			t.Error("Animated = false for multi-frame gif")
		}
		if md.DurationMS != 400 {
			t.Errorf("DurationMS = %d, want 400", md.DurationMS)
		}
	})

	t.Run("single-frame gif is not animated", func(t *testing.T) {
		path := writeAnimatedGIF(t, 1, 10)

		md, err := e.Extract(path, "image/gif")
		if err != nil {
			t.Fatalf("Extract() error = %v", err)
		}
		if md.Image.Animated {
			t.Error("Animated = true for single-frame gif")
		}
		if md.DurationMS != 0 {
			t.Errorf("DurationMS = %d, want 0", md.DurationMS)
		}
	})

	t.Run("undecodable image returns ExtractionError", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "broken.png")
		if err := os.WriteFile(path, []byte("not an image at all"), 0644); err != nil {
			t.Fatalf("writing file: %v", err)
		}

		_, err := e.Extract(path, "image/png")
		var extractErr *findex.ExtractionError
		if !errors.As(err, &extractErr) {
			t.Fatalf("error = %v, want *ExtractionError", err)
		}
		if extractErr.MediaType != "image/png" {
			t.Errorf("MediaType = %v, want image/png", extractErr.MediaType)
		}
	})
}
