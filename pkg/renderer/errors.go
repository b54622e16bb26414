package renderer

import (
	"fmt"
)

// ErrorKind classifies renderer failures by how the caller should react
type ErrorKind int

const (
	// KindInitialization means the renderer could not be built and must
	// not be used.
	KindInitialization ErrorKind = iota
	// KindFrameResource means a frame-sized resource could not be
	// recreated. The previous state is kept and the call may be retried.
	KindFrameResource
	// KindUIRender means the UI pass stopped early. The rest of the frame
	// was rendered and presented.
	KindUIRender
	// KindCapture means the frame was presented but could not be read
	// back.
	KindCapture
)

func (k ErrorKind) String() string {
	switch k {
	case KindInitialization:
		return "initialization"
	case KindFrameResource:
		return "frame resource"
	case KindUIRender:
		return "ui render"
	case KindCapture:
		return "capture"
	default:
		return "unknown"
	}
}

// RendererError is returned by the public renderer operations
type RendererError struct {
	Kind ErrorKind
	Op   string
	Err  error
}

func (e *RendererError) Error() string {
	return fmt.Sprintf("renderer %s: %s error: %v", e.Op, e.Kind, e.Err)
}

func (e *RendererError) Unwrap() error {
	return e.Err
}

// UIRenderError reports the UI command that could not be drawn
type UIRenderError struct {
	CommandIndex int
	Reason       string
	Err          error
}

func (e *UIRenderError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("ui command %d: %s: %v", e.CommandIndex, e.Reason, e.Err)
	}
	return fmt.Sprintf("ui command %d: %s", e.CommandIndex, e.Reason)
}

func (e *UIRenderError) Unwrap() error {
	return e.Err
}
