// Package overlay draws detections onto images without OpenCV and handles the
// image formats accepted for upload.
package overlay

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/gif"
	"image/jpeg"
	"image/png"
	"io"
	"strings"

	"skyvision/internal/service/ai"

	"golang.org/x/image/bmp"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
	"golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

// BoxThickness is the outline width in pixels.
const BoxThickness = 2

var palette = []color.RGBA{
	{R: 255, G: 56, B: 56, A: 255},
	{R: 255, G: 157, B: 151, A: 255},
	{R: 255, G: 112, B: 31, A: 255},
	{R: 255, G: 178, B: 29, A: 255},
	{R: 207, G: 210, B: 49, A: 255},
	{R: 72, G: 249, B: 10, A: 255},
	{R: 146, G: 204, B: 23, A: 255},
	{R: 61, G: 219, B: 134, A: 255},
	{R: 26, G: 147, B: 52, A: 255},
	{R: 0, G: 212, B: 187, A: 255},
	{R: 44, G: 153, B: 168, A: 255},
	{R: 0, G: 194, B: 255, A: 255},
	{R: 52, G: 69, B: 147, A: 255},
	{R: 100, G: 115, B: 255, A: 255},
	{R: 0, G: 24, B: 236, A: 255},
	{R: 132, G: 56, B: 255, A: 255},
}

// ColorFor returns the outline color used for a class id.
func ColorFor(classID int) color.RGBA {
	if classID < 0 {
		classID = -classID
	}
	return palette[classID%len(palette)]
}

// Decode reads any supported upload format.
func Decode(r io.Reader) (image.Image, string, error) {
	img, format, err := image.Decode(r)
	if err != nil {
		return nil, "", fmt.Errorf("failed to decode image: %w", err)
	}
	return img, format, nil
}

// Draw returns a copy of src with a labelled box for every detection.
func Draw(src image.Image, detections []ai.Detection, names map[int]string) *image.RGBA {
	bounds := src.Bounds()
	dst := image.NewRGBA(bounds)
	draw.Draw(dst, bounds, src, bounds.Min, draw.Src)

	for _, det := range detections {
		c := ColorFor(det.ClassID)
		box := det.Box.Add(bounds.Min).Intersect(bounds)
		if box.Empty() {
			continue
		}

		drawOutline(dst, box, c, BoxThickness)
		drawLabel(dst, box, fmt.Sprintf("%s %.2f", ai.ClassName(names, det.ClassID), det.Confidence), c)
	}

	return dst
}

func drawOutline(dst *image.RGBA, r image.Rectangle, c color.Color, thickness int) {
	fill := image.NewUniform(c)
	edges := []image.Rectangle{
		image.Rect(r.Min.X, r.Min.Y, r.Max.X, r.Min.Y+thickness),
		image.Rect(r.Min.X, r.Max.Y-thickness, r.Max.X, r.Max.Y),
		image.Rect(r.Min.X, r.Min.Y, r.Min.X+thickness, r.Max.Y),
		image.Rect(r.Max.X-thickness, r.Min.Y, r.Max.X, r.Max.Y),
	}
	for _, e := range edges {
		draw.Draw(dst, e.Intersect(r), fill, image.Point{}, draw.Src)
	}
}

func drawLabel(dst *image.RGBA, box image.Rectangle, text string, c color.Color) {
	face := basicfont.Face7x13
	width := font.MeasureString(face, text).Ceil() + 4
	height := face.Metrics().Height.Ceil() + 2

	// Above the box when there is room, inside it otherwise.
	top := box.Min.Y - height
	if top < dst.Bounds().Min.Y {
		top = box.Min.Y
	}
	bg := image.Rect(box.Min.X, top, box.Min.X+width, top+height).Intersect(dst.Bounds())
	draw.Draw(dst, bg, image.NewUniform(c), image.Point{}, draw.Src)

	d := &font.Drawer{
		Dst:  dst,
		Src:  image.White,
		Face: face,
		Dot:  fixed.P(bg.Min.X+2, bg.Min.Y+face.Metrics().Ascent.Ceil()+1),
	}
	d.DrawString(text)
}

// Encode writes img in the format named by ext (with or without the leading dot).
// WebP has no encoder in the pure-Go stack, so webp results are written as PNG.
func Encode(w io.Writer, img image.Image, ext string) error {
	switch strings.TrimPrefix(strings.ToLower(ext), ".") {
	case "jpg", "jpeg":
		return jpeg.Encode(w, img, &jpeg.Options{Quality: 95})
	case "png", "webp":
		return png.Encode(w, img)
	case "gif":
		return gif.Encode(w, img, nil)
	case "bmp":
		return bmp.Encode(w, img)
	case "tiff":
		return tiff.Encode(w, img, &tiff.Options{Compression: tiff.Deflate})
	default:
		return fmt.Errorf("unsupported output format %q", ext)
	}
}
