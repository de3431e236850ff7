// Package yolo decodes the raw output head of YOLOv8-style detectors.
package yolo

import (
	"image"
	"sort"
)

// Candidate is a single box that passed the confidence threshold.
type Candidate struct {
	ClassID int
	Score   float32
	Box     image.Rectangle
}

// Anchors returns the number of anchor points of a YOLOv8 head for a square input
// (strides 8, 16 and 32), e.g. 8400 for 640.
func Anchors(inputSize int) int {
	n := 0
	for _, stride := range []int{8, 16, 32} {
		side := inputSize / stride
		n += side * side
	}
	return n
}

// Decode reads a channel-major [4+numClasses][numAnchors] tensor. Rows 0-3 hold
// cx, cy, w, h in network input pixels, the remaining rows the per-class scores.
// scaleX and scaleY map network pixels back to source image pixels.
func Decode(data []float32, numClasses, numAnchors int, scaleX, scaleY, conf float32) []Candidate {
	if numClasses <= 0 || numAnchors <= 0 || len(data) < (4+numClasses)*numAnchors {
		return nil
	}

	var candidates []Candidate
	for i := 0; i < numAnchors; i++ {
		classID, score := 0, float32(0)
		for c := 0; c < numClasses; c++ {
			if s := data[(4+c)*numAnchors+i]; s > score {
				score = s
				classID = c
			}
		}

		if score < conf {
			continue
		}

		cx := data[i]
		cy := data[numAnchors+i]
		w := data[2*numAnchors+i]
		h := data[3*numAnchors+i]

		x0 := int((cx - w/2) * scaleX)
		y0 := int((cy - h/2) * scaleY)
		x1 := int((cx + w/2) * scaleX)
		y1 := int((cy + h/2) * scaleY)

		candidates = append(candidates, Candidate{
			ClassID: classID,
			Score:   score,
			Box:     image.Rect(x0, y0, x1, y1),
		})
	}

	return candidates
}

// NMS keeps the highest scoring boxes, dropping any box whose IoU with an already
// kept box of the same class exceeds iou. The result is ordered by descending score.
func NMS(candidates []Candidate, iou float32) []Candidate {
	boxes := make([]Candidate, len(candidates))
	copy(boxes, candidates)

	sort.SliceStable(boxes, func(i, j int) bool {
		return boxes[i].Score > boxes[j].Score
	})

	suppressed := make([]bool, len(boxes))
	var kept []Candidate
	for i := range boxes {
		if suppressed[i] {
			continue
		}
		kept = append(kept, boxes[i])

		for j := i + 1; j < len(boxes); j++ {
			if suppressed[j] || boxes[j].ClassID != boxes[i].ClassID {
				continue
			}
			if IoU(boxes[i].Box, boxes[j].Box) > iou {
				suppressed[j] = true
			}
		}
	}

	return kept
}

// IoU returns the intersection over union of two rectangles.
func IoU(a, b image.Rectangle) float32 {
	inter := a.Intersect(b)
	if inter.Empty() {
		return 0
	}

	interArea := float32(inter.Dx() * inter.Dy())
	union := float32(a.Dx()*a.Dy()+b.Dx()*b.Dy()) - interArea
	if union <= 0 {
		return 0
	}
	return interArea / union
}
