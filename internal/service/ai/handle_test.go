package ai

import (
	"errors"
	"testing"
)

type stubModel struct {
	names  map[int]string
	closed bool
}

func (m *stubModel) Predict(path string) ([]Detection, error) { return nil, nil }

func (m *stubModel) Render(src, dst string, detections []Detection) error { return nil }

func (m *stubModel) Names() map[int]string { return m.names }

func (m *stubModel) Close() error {
	m.closed = true
	return nil
}

func TestNewHandle_Loaded(t *testing.T) {
	model := &stubModel{names: map[int]string{0: "plane"}}
	handle := NewHandle(model, nil)

	if !handle.Loaded() {
		t.Fatal("Handle should be loaded")
	}
	if handle.Err() != nil {
		t.Errorf("Expected no error, got %v", handle.Err())
	}
	if handle.Model() != model {
		t.Error("Handle should return the wrapped model")
	}

	if err := handle.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	if !model.closed {
		t.Error("Close should close the model")
	}
}

func TestNewHandle_Degraded(t *testing.T) {
	loadErr := errors.New("model file not found")

	tests := []struct {
		name     string
		model    Model
		err      error
		expected error
	}{
		{"load error", &stubModel{}, loadErr, loadErr},
		{"nil model", nil, nil, ErrModelNotLoaded},
	}

	for _, tt := range tests {
		handle := NewHandle(tt.model, tt.err)
		if handle.Loaded() {
			t.Errorf("%s: handle should be degraded", tt.name)
		}
		if handle.Model() != nil {
			t.Errorf("%s: degraded handle should have no model", tt.name)
		}
		if !errors.Is(handle.Err(), tt.expected) {
			t.Errorf("%s: expected %v, got %v", tt.name, tt.expected, handle.Err())
		}
		if err := handle.Close(); err != nil {
			t.Errorf("%s: Close on degraded handle should be a no-op, got %v", tt.name, err)
		}
	}
}

func TestNilHandle(t *testing.T) {
	var handle *Handle

	if handle.Loaded() {
		t.Error("nil handle should not be loaded")
	}
	if !errors.Is(handle.Err(), ErrModelNotLoaded) {
		t.Errorf("Expected ErrModelNotLoaded, got %v", handle.Err())
	}
}

func TestClassName(t *testing.T) {
	handle := NewHandle(&stubModel{names: map[int]string{0: "plane", 2: "ship"}}, nil)

	tests := []struct {
		id       int
		expected string
	}{
		{0, "plane"},
		{2, "ship"},
		{1, "Class_1"},
		{99, "Class_99"},
	}

	for _, tt := range tests {
		if got := handle.ClassName(tt.id); got != tt.expected {
			t.Errorf("ClassName(%d) = %q, expected %q", tt.id, got, tt.expected)
		}
	}

	if got := NewHandle(nil, nil).ClassName(3); got != "Class_3" {
		t.Errorf("Degraded handle should fall back to synthetic labels, got %q", got)
	}
}

func TestResolveNames_FirstAvailable(t *testing.T) {
	missing := func() (map[int]string, error) { return nil, errors.New("no names file") }
	metadata := func() (map[int]string, error) { return map[int]string{0: "plane"}, nil }

	names, err := ResolveNames(missing, metadata)
	if err != nil {
		t.Fatalf("ResolveNames failed: %v", err)
	}
	if names[0] != "plane" {
		t.Errorf("Expected metadata names, got %v", names)
	}
}

func TestResolveNames_NoneAvailable(t *testing.T) {
	missing := func() (map[int]string, error) { return nil, errors.New("no names file") }
	empty := func() (map[int]string, error) { return map[int]string{}, nil }

	names, err := ResolveNames(missing, empty)
	if err == nil {
		t.Fatal("Expected error when no source has names")
	}
	if len(names) != 0 {
		t.Fatalf("Expected empty table, got %v", names)
	}

	// A custom model's classes must not pick up unrelated labels.
	handle := NewHandle(&stubModel{names: names}, nil)
	if got := handle.ClassName(0); got != "Class_0" {
		t.Errorf("ClassName(0) = %q, expected Class_0", got)
	}
}
