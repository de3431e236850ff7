package service

import (
	"errors"
	"fmt"
)

// Kind classifies a pipeline failure.
type Kind int

const (
	KindServiceUnavailable Kind = iota + 1
	KindMissingPart
	KindNoFile
	KindUnsupportedType
	KindProcessing
)

// Client-facing messages.
const (
	MessageModelNotLoaded = "Deep learning model not loaded. Please check server logs for details."
	MessageMissingPart    = "No image file part in the request."
	MessageNoFile         = "No selected file."
	messageProcessing     = "An error occurred during object detection: %v"
)

func (k Kind) String() string {
	switch k {
	case KindServiceUnavailable:
		return "service_unavailable"
	case KindMissingPart:
		return "missing_part"
	case KindNoFile:
		return "no_file"
	case KindUnsupportedType:
		return "unsupported_type"
	case KindProcessing:
		return "processing"
	default:
		return "unknown"
	}
}

// ClientError reports whether the failure was caused by the request.
func (k Kind) ClientError() bool {
	return k == KindMissingPart || k == KindNoFile || k == KindUnsupportedType
}

// Error is the failure type returned by the prediction pipeline.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// KindOf returns the kind of a pipeline error, or KindProcessing for any other error.
func KindOf(err error) Kind {
	var serviceErr *Error
	if errors.As(err, &serviceErr) {
		return serviceErr.Kind
	}
	return KindProcessing
}

func newError(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

func processingError(err error) *Error {
	return &Error{Kind: KindProcessing, Message: fmt.Sprintf(messageProcessing, err), Err: err}
}
