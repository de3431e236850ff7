// Package opencv runs YOLOv8 ONNX exports through the OpenCV DNN module.
package opencv

import (
	"fmt"
	"image"
	"image/color"
	"os"
	"path/filepath"
	"sync"

	"skyvision/internal/service/ai"
	"skyvision/internal/service/ai/overlay"
	"skyvision/internal/service/yolo"

	"gocv.io/x/gocv"
)

const (
	fontFace  = gocv.FontHersheySimplex
	fontScale = 0.5
)

// Detector wraps a gocv network. SetInput and Forward share state inside the
// network, so inference is serialized.
type Detector struct {
	mu        sync.Mutex
	net       gocv.Net
	names     map[int]string
	inputSize int
}

// Load reads the network at opts.ModelPath and prepares it for CPU inference.
func Load(opts ai.Options) (*Detector, error) {
	if _, err := os.Stat(opts.ModelPath); os.IsNotExist(err) {
		return nil, fmt.Errorf("model file not found: %s", opts.ModelPath)
	}

	net := gocv.ReadNet(opts.ModelPath, "")
	if net.Empty() {
		return nil, fmt.Errorf("failed to load network from %s", opts.ModelPath)
	}

	errBackend := net.SetPreferableBackend(gocv.NetBackendDefault)
	errTarget := net.SetPreferableTarget(gocv.NetTargetCPU)
	if errBackend != nil || errTarget != nil {
		net.Close()
		return nil, fmt.Errorf("failed to set preferable backend or target")
	}

	size := opts.InputSize
	if size <= 0 {
		size = ai.InputSize
	}

	return &Detector{
		net:       net,
		names:     opts.Names,
		inputSize: size,
	}, nil
}

// Predict runs the network on the image at path.
func (d *Detector) Predict(path string) ([]ai.Detection, error) {
	mat, err := readMat(path)
	if err != nil {
		return nil, err
	}
	defer mat.Close()

	blob := gocv.BlobFromImage(mat, 1.0/255.0, image.Pt(d.inputSize, d.inputSize), gocv.NewScalar(0, 0, 0, 0), true, false)
	defer blob.Close()

	d.mu.Lock()
	d.net.SetInput(blob, "")
	output := d.net.Forward("")
	d.mu.Unlock()
	defer output.Close()

	if output.Empty() {
		return nil, fmt.Errorf("network produced no output")
	}

	// YOLOv8 head: [1, 4+classes, anchors]
	dims := output.Size()
	if len(dims) != 3 || dims[1] <= 4 {
		return nil, fmt.Errorf("unexpected output shape %v", dims)
	}

	data, err := output.DataPtrFloat32()
	if err != nil {
		return nil, fmt.Errorf("failed to read network output: %w", err)
	}

	scaleX := float32(mat.Cols()) / float32(d.inputSize)
	scaleY := float32(mat.Rows()) / float32(d.inputSize)
	candidates := yolo.Decode(data, dims[1]-4, dims[2], scaleX, scaleY, ai.ConfidenceThreshold)
	if len(candidates) == 0 {
		return []ai.Detection{}, nil
	}

	// Offset boxes per class so NMSBoxes never suppresses across classes.
	offset := mat.Cols()
	if mat.Rows() > offset {
		offset = mat.Rows()
	}
	offset++

	boxes := make([]image.Rectangle, len(candidates))
	scores := make([]float32, len(candidates))
	for i, c := range candidates {
		boxes[i] = c.Box.Add(image.Pt(c.ClassID*offset, c.ClassID*offset))
		scores[i] = c.Score
	}

	indices := gocv.NMSBoxes(boxes, scores, ai.ConfidenceThreshold, ai.IOUThreshold)

	detections := make([]ai.Detection, 0, len(indices))
	for _, idx := range indices {
		c := candidates[idx]
		detections = append(detections, ai.Detection{
			ClassID:    c.ClassID,
			Confidence: c.Score,
			Box:        c.Box,
		})
	}
	return detections, nil
}

// Render draws labelled boxes and writes the result to dst.
func (d *Detector) Render(src, dst string, detections []ai.Detection) error {
	mat, err := readMat(src)
	if err != nil {
		return err
	}
	defer mat.Close()

	white := color.RGBA{R: 255, G: 255, B: 255, A: 255}

	for _, det := range detections {
		c := overlay.ColorFor(det.ClassID)
		if err := gocv.Rectangle(&mat, det.Box, c, overlay.BoxThickness); err != nil {
			return fmt.Errorf("failed to draw rectangle: %v", err)
		}

		label := fmt.Sprintf("%s %.2f", ai.ClassName(d.names, det.ClassID), det.Confidence)
		textSize := gocv.GetTextSize(label, fontFace, fontScale, 1)

		top := det.Box.Min.Y - textSize.Y - 6
		if top < 0 {
			top = det.Box.Min.Y
		}
		bg := image.Rect(det.Box.Min.X, top, det.Box.Min.X+textSize.X+4, top+textSize.Y+6)
		if err := gocv.Rectangle(&mat, bg, c, -1); err != nil {
			return fmt.Errorf("failed to draw label background: %v", err)
		}

		pt := image.Pt(bg.Min.X+2, bg.Max.Y-3)
		if err := gocv.PutText(&mat, label, pt, fontFace, fontScale, white, 1); err != nil {
			return fmt.Errorf("failed to draw text: %v", err)
		}
	}

	if gocv.IMWrite(dst, mat) {
		return nil
	}

	// OpenCV builds without a writer for this extension fall back to the Go encoders.
	img, err := mat.ToImage()
	if err != nil {
		return fmt.Errorf("failed to write result image %s: %w", dst, err)
	}
	return writeImage(dst, img)
}

func (d *Detector) Names() map[int]string {
	return d.names
}

func (d *Detector) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.net.Close()
}

// readMat loads an image as BGR, using the Go decoders for formats the OpenCV
// build cannot read.
func readMat(path string) (gocv.Mat, error) {
	mat := gocv.IMRead(path, gocv.IMReadColor)
	if !mat.Empty() {
		return mat, nil
	}
	mat.Close()

	file, err := os.Open(path)
	if err != nil {
		return gocv.Mat{}, fmt.Errorf("failed to open image: %w", err)
	}
	defer file.Close()

	img, _, err := overlay.Decode(file)
	if err != nil {
		return gocv.Mat{}, err
	}

	mat, err = gocv.ImageToMatRGB(img)
	if err != nil {
		return gocv.Mat{}, fmt.Errorf("failed to convert image: %w", err)
	}
	if mat.Empty() {
		mat.Close()
		return gocv.Mat{}, fmt.Errorf("decoded image is empty")
	}
	return mat, nil
}

func writeImage(dst string, img image.Image) error {
	file, err := os.Create(dst)
	if err != nil {
		return fmt.Errorf("failed to create result image: %w", err)
	}

	if err := overlay.Encode(file, img, filepath.Ext(dst)); err != nil {
		file.Close()
		os.Remove(dst)
		return fmt.Errorf("failed to encode result image: %w", err)
	}
	return file.Close()
}
