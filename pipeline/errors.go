package pipeline

import (
	"fmt"

	"github.com/pkg/errors"
)

// InitErrorKind classifies initialization failures.
type InitErrorKind string

const (
	// KindInvalidModel means the model could not be constructed or loaded.
	KindInvalidModel InitErrorKind = "invalid_model"
	// KindInvalidLabelList means the label resource is missing or malformed.
	KindInvalidLabelList InitErrorKind = "invalid_label_list"
	// KindInitInternal wraps any other failure.
	KindInitInternal InitErrorKind = "internal_error"
)

// InitializationError reports why a pipeline could not become ready.
type InitializationError struct {
	Kind InitErrorKind
	Err  error
}

func (e *InitializationError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("initialization failed: %s", e.Kind)
	}
	return fmt.Sprintf("initialization failed: %s: %v", e.Kind, e.Err)
}

// Unwrap returns the cause.
func (e *InitializationError) Unwrap() error { return e.Err }

// Is matches any *InitializationError of the same kind.
func (e *InitializationError) Is(target error) bool {
	t, ok := target.(*InitializationError)
	return ok && t.Kind == e.Kind
}

// SegmentErrorKind classifies request failures.
type SegmentErrorKind string

const (
	// KindInvalidImage means the input could not be prepared for the model.
	KindInvalidImage SegmentErrorKind = "invalid_image"
	// KindSegmentInternal wraps inference and post-processing failures.
	KindSegmentInternal SegmentErrorKind = "internal_error"
	// KindResultVisualization means the visualization or overlay could not be rendered.
	KindResultVisualization SegmentErrorKind = "result_visualization_error"
)

// SegmentationError reports why a request failed. The pipeline stays usable.
type SegmentationError struct {
	Kind      SegmentErrorKind
	RequestID string
	Err       error
}

func (e *SegmentationError) Error() string {
	msg := fmt.Sprintf("segmentation %s failed: %s", e.RequestID, e.Kind)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap returns the cause.
func (e *SegmentationError) Unwrap() error { return e.Err }

// Is matches any *SegmentationError of the same kind.
func (e *SegmentationError) Is(target error) bool {
	t, ok := target.(*SegmentationError)
	return ok && t.Kind == e.Kind
}

// Sentinels for errors.Is.
var (
	ErrInvalidModel        = &InitializationError{Kind: KindInvalidModel}
	ErrInvalidLabelList    = &InitializationError{Kind: KindInvalidLabelList}
	ErrInitInternal        = &InitializationError{Kind: KindInitInternal}
	ErrInvalidImage        = &SegmentationError{Kind: KindInvalidImage}
	ErrSegmentInternal     = &SegmentationError{Kind: KindSegmentInternal}
	ErrResultVisualization = &SegmentationError{Kind: KindResultVisualization}

	// ErrNotReady is returned for requests that reach the worker before
	// initialization succeeded or after it failed.
	ErrNotReady = errors.New("pipeline is not ready")
	// ErrClosed is returned for work submitted after Close.
	ErrClosed = errors.New("pipeline is closed")
)
