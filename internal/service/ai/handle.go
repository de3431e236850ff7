package ai

import "errors"

// ErrModelNotLoaded is reported by a Handle created without a model.
var ErrModelNotLoaded = errors.New("detection model not loaded")

// Handle is the process-wide reference to the detection model. It is built once
// at startup and never changes, so it can be shared by all requests.
type Handle struct {
	model Model
	err   error
}

// NewHandle wraps the outcome of a model load. A nil model or a non-nil loadErr
// yields a degraded handle.
func NewHandle(model Model, loadErr error) *Handle {
	if loadErr != nil {
		return &Handle{err: loadErr}
	}
	if model == nil {
		return &Handle{err: ErrModelNotLoaded}
	}
	return &Handle{model: model}
}

// Loaded reports whether inference is available.
func (h *Handle) Loaded() bool {
	return h != nil && h.model != nil
}

// Model returns the loaded model, or nil in degraded mode.
func (h *Handle) Model() Model {
	if h == nil {
		return nil
	}
	return h.model
}

// Err returns the load failure, or nil when the model is available.
func (h *Handle) Err() error {
	if h == nil {
		return ErrModelNotLoaded
	}
	return h.err
}

// ClassName resolves a class id through the loaded model's name table.
func (h *Handle) ClassName(classID int) string {
	var names map[int]string
	if h.Loaded() {
		names = h.model.Names()
	}
	return ClassName(names, classID)
}

// Close releases the model, if any.
func (h *Handle) Close() error {
	if !h.Loaded() {
		return nil
	}
	return h.model.Close()
}
