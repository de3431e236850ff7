// Package onnx runs YOLOv8 ONNX exports through ONNX Runtime.
package onnx

import (
	"fmt"
	"image"
	"os"
	"path/filepath"
	"sync"

	"skyvision/internal/service/ai"
	"skyvision/internal/service/ai/overlay"
	"skyvision/internal/service/yolo"

	"github.com/nfnt/resize"
	ort "github.com/yalue/onnxruntime_go"
)

// Detector holds an ONNX Runtime session with preallocated tensors.
type Detector struct {
	mu        sync.Mutex
	session   *ort.AdvancedSession
	input     *ort.Tensor[float32]
	output    *ort.Tensor[float32]
	names     map[int]string
	inputSize int
	classes   int
	anchors   int
}

const (
	inputName  = "images"
	outputName = "output0"
)

var envOnce sync.Once
var envErr error

func initEnvironment(sharedLibrary string) error {
	envOnce.Do(func() {
		if sharedLibrary != "" {
			ort.SetSharedLibraryPath(sharedLibrary)
		}
		envErr = ort.InitializeEnvironment()
	})
	return envErr
}

// ModelNames reads the class table that Ultralytics exports store under the
// "names" custom metadata key.
func ModelNames(modelPath, sharedLibrary string) (map[int]string, error) {
	if err := initEnvironment(sharedLibrary); err != nil {
		return nil, fmt.Errorf("failed to initialize ONNX environment: %w", err)
	}

	metadata, err := ort.GetModelMetadata(modelPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read model metadata: %w", err)
	}
	defer metadata.Destroy()

	raw, ok, err := metadata.LookupCustomMetadataMap("names")
	if err != nil {
		return nil, fmt.Errorf("failed to read names metadata: %w", err)
	}
	if !ok {
		return nil, fmt.Errorf("model has no names metadata")
	}
	return yolo.ParseNames(raw)
}

// outputLayout validates a YOLOv8 head shape [1, 4+classes, anchors].
func outputLayout(dims ort.Shape, size int) (classes, anchors int, err error) {
	if len(dims) != 3 || dims[1] <= 4 {
		return 0, 0, fmt.Errorf("unexpected output shape %v", dims)
	}
	anchors = int(dims[2])
	if anchors <= 0 {
		anchors = yolo.Anchors(size)
	}
	return int(dims[1]) - 4, anchors, nil
}

// Load creates a session for the model at opts.ModelPath. The class count comes
// from the model's output shape, not from the name table.
func Load(opts ai.Options) (*Detector, error) {
	if _, err := os.Stat(opts.ModelPath); err != nil {
		return nil, fmt.Errorf("model file not found: %s", opts.ModelPath)
	}

	size := opts.InputSize
	if size <= 0 {
		size = ai.InputSize
	}

	if err := initEnvironment(opts.SharedLibrary); err != nil {
		return nil, fmt.Errorf("failed to initialize ONNX environment: %w", err)
	}

	_, outputs, err := ort.GetInputOutputInfo(opts.ModelPath)
	if err != nil {
		return nil, fmt.Errorf("failed to inspect model: %w", err)
	}
	var dims ort.Shape
	for _, info := range outputs {
		if info.Name == outputName {
			dims = info.Dimensions
		}
	}
	classes, anchors, err := outputLayout(dims, size)
	if err != nil {
		return nil, err
	}

	inputTensor, err := ort.NewEmptyTensor[float32](ort.NewShape(1, 3, int64(size), int64(size)))
	if err != nil {
		return nil, fmt.Errorf("failed to create input tensor: %w", err)
	}

	outputTensor, err := ort.NewEmptyTensor[float32](ort.NewShape(1, int64(4+classes), int64(anchors)))
	if err != nil {
		inputTensor.Destroy()
		return nil, fmt.Errorf("failed to create output tensor: %w", err)
	}

	options, err := ort.NewSessionOptions()
	if err != nil {
		inputTensor.Destroy()
		outputTensor.Destroy()
		return nil, fmt.Errorf("failed to create session options: %w", err)
	}
	defer options.Destroy()

	session, err := ort.NewAdvancedSession(opts.ModelPath,
		[]string{inputName}, []string{outputName},
		[]ort.ArbitraryTensor{inputTensor}, []ort.ArbitraryTensor{outputTensor},
		options)
	if err != nil {
		inputTensor.Destroy()
		outputTensor.Destroy()
		return nil, fmt.Errorf("failed to create ONNX session: %w", err)
	}

	return &Detector{
		session:   session,
		input:     inputTensor,
		output:    outputTensor,
		names:     opts.Names,
		inputSize: size,
		classes:   classes,
		anchors:   anchors,
	}, nil
}

// Predict decodes the image at path, runs the session and suppresses overlaps.
func (d *Detector) Predict(path string) ([]ai.Detection, error) {
	img, err := readImage(path)
	if err != nil {
		return nil, err
	}

	bounds := img.Bounds()
	input := d.preprocess(img)

	d.mu.Lock()
	copy(d.input.GetData(), input)
	if err := d.session.Run(); err != nil {
		d.mu.Unlock()
		return nil, fmt.Errorf("inference failed: %w", err)
	}
	raw := d.output.GetData()
	output := make([]float32, len(raw))
	copy(output, raw)
	d.mu.Unlock()

	scaleX := float32(bounds.Dx()) / float32(d.inputSize)
	scaleY := float32(bounds.Dy()) / float32(d.inputSize)
	candidates := yolo.Decode(output, d.classes, d.anchors, scaleX, scaleY, ai.ConfidenceThreshold)

	kept := yolo.NMS(candidates, ai.IOUThreshold)
	detections := make([]ai.Detection, 0, len(kept))
	for _, c := range kept {
		detections = append(detections, ai.Detection{
			ClassID:    c.ClassID,
			Confidence: c.Score,
			Box:        c.Box,
		})
	}
	return detections, nil
}

// preprocess resizes to the network input and lays the pixels out as CHW floats in [0,1].
func (d *Detector) preprocess(img image.Image) []float32 {
	size := d.inputSize
	resized := resize.Resize(uint(size), uint(size), img, resize.Bilinear)
	origin := resized.Bounds().Min

	plane := size * size
	data := make([]float32, 3*plane)
	for y := 0; y < size; y++ {
		for x := 0; x < size; x++ {
			r, g, b, _ := resized.At(origin.X+x, origin.Y+y).RGBA()
			i := y*size + x
			data[i] = float32(r>>8) / 255.0
			data[plane+i] = float32(g>>8) / 255.0
			data[2*plane+i] = float32(b>>8) / 255.0
		}
	}
	return data
}

// Render draws the detections with the pure-Go overlay and encodes by dst extension.
func (d *Detector) Render(src, dst string, detections []ai.Detection) error {
	img, err := readImage(src)
	if err != nil {
		return err
	}

	annotated := overlay.Draw(img, detections, d.names)

	file, err := os.Create(dst)
	if err != nil {
		return fmt.Errorf("failed to create result image: %w", err)
	}

	if err := overlay.Encode(file, annotated, filepath.Ext(dst)); err != nil {
		file.Close()
		os.Remove(dst)
		return fmt.Errorf("failed to encode result image: %w", err)
	}
	return file.Close()
}

func (d *Detector) Names() map[int]string {
	return d.names
}

// Close destroys the session and its tensors.
func (d *Detector) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.input != nil {
		d.input.Destroy()
	}
	if d.output != nil {
		d.output.Destroy()
	}
	if d.session != nil {
		return d.session.Destroy()
	}
	return nil
}

func readImage(path string) (image.Image, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open image: %w", err)
	}
	defer file.Close()

	img, _, err := overlay.Decode(file)
	return img, err
}
