package overlay

import (
	"bytes"
	"image"
	"image/color"
	"image/draw"
	"testing"

	"skyvision/internal/service/ai"
)

func whiteImage(w, h int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.Draw(img, img.Bounds(), image.White, image.Point{}, draw.Src)
	return img
}

func isWhite(c color.Color) bool {
	r, g, b, _ := c.RGBA()
	return r == 0xffff && g == 0xffff && b == 0xffff
}

func TestDraw_OutlinesBox(t *testing.T) {
	src := whiteImage(40, 40)
	detections := []ai.Detection{
		{ClassID: 0, Confidence: 0.9, Box: image.Rect(5, 5, 30, 30)},
	}

	out := Draw(src, detections, map[int]string{0: "plane"})

	expected := ColorFor(0)
	for _, pt := range []image.Point{{5, 25}, {29, 25}, {15, 29}} {
		if got := out.RGBAAt(pt.X, pt.Y); got != expected {
			t.Errorf("Pixel %v = %v, expected outline color %v", pt, got, expected)
		}
	}

	if !isWhite(out.At(15, 25)) {
		t.Errorf("Box interior should be untouched, got %v", out.At(15, 25))
	}

	if !isWhite(src.At(5, 25)) {
		t.Error("Draw must not modify the source image")
	}
}

func TestDraw_SkipsBoxesOutsideImage(t *testing.T) {
	src := whiteImage(20, 20)
	detections := []ai.Detection{
		{ClassID: 1, Confidence: 0.5, Box: image.Rect(50, 50, 60, 60)},
	}

	out := Draw(src, detections, nil)
	for y := 0; y < 20; y++ {
		for x := 0; x < 20; x++ {
			if !isWhite(out.At(x, y)) {
				t.Fatalf("Pixel (%d,%d) changed for an off-image box", x, y)
			}
		}
	}
}

func TestColorFor(t *testing.T) {
	if ColorFor(0) != ColorFor(len(palette)) {
		t.Error("Palette should wrap around")
	}
	if ColorFor(-3) != ColorFor(3) {
		t.Error("Negative ids should not panic and map like positives")
	}
}

func TestEncode_RoundTrip(t *testing.T) {
	src := whiteImage(16, 8)

	tests := []struct {
		ext    string
		format string
	}{
		{"jpg", "jpeg"},
		{".JPEG", "jpeg"},
		{"png", "png"},
		{"gif", "gif"},
		{"bmp", "bmp"},
		{"tiff", "tiff"},
		{"webp", "png"},
	}

	for _, tt := range tests {
		var buf bytes.Buffer
		if err := Encode(&buf, src, tt.ext); err != nil {
			t.Fatalf("Encode(%s) failed: %v", tt.ext, err)
		}

		img, format, err := Decode(&buf)
		if err != nil {
			t.Fatalf("Decode after Encode(%s) failed: %v", tt.ext, err)
		}
		if format != tt.format {
			t.Errorf("Encode(%s) produced %s, expected %s", tt.ext, format, tt.format)
		}
		if img.Bounds().Dx() != 16 || img.Bounds().Dy() != 8 {
			t.Errorf("Encode(%s) changed bounds to %v", tt.ext, img.Bounds())
		}
	}
}

func TestEncode_Unsupported(t *testing.T) {
	var buf bytes.Buffer
	if err := Encode(&buf, whiteImage(2, 2), "txt"); err == nil {
		t.Error("Expected error for unsupported format")
	}
}

func TestDecode_Invalid(t *testing.T) {
	if _, _, err := Decode(bytes.NewReader([]byte("not an image"))); err == nil {
		t.Error("Expected error decoding garbage")
	}
}
