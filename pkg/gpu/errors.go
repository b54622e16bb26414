package gpu

import "fmt"

// ResourceCreationError is returned when the backend rejects a resource,
// typically an unsupported format/size combination.
type ResourceCreationError struct {
	Resource string // "texture", "framebuffer", "geometry"
	Reason   string
	Err      error
}

func (e *ResourceCreationError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("gpu %s creation failed: %s: %v", e.Resource, e.Reason, e.Err)
	}
	return fmt.Sprintf("gpu %s creation failed: %s", e.Resource, e.Reason)
}

func (e *ResourceCreationError) Unwrap() error {
	return e.Err
}

// ShaderStage names the step of program creation that failed
type ShaderStage string

const (
	StageVertex   ShaderStage = "vertex"
	StageFragment ShaderStage = "fragment"
	StageLink     ShaderStage = "link"
)

// ShaderCompileError carries the backend's diagnostic text for a failed
// compile or link.
type ShaderCompileError struct {
	Program string
	Stage   ShaderStage
	Log     string
}

func (e *ShaderCompileError) Error() string {
	name := e.Program
	if name == "" {
		name = "<unnamed>"
	}
	return fmt.Sprintf("shader program %s: %s stage failed: %s", name, e.Stage, e.Log)
}

// BackendDiagnostic is a driver error code observed after the fact. It
// signals degraded rendering and is logged, never returned.
type BackendDiagnostic struct {
	Code    uint32
	Name    string
	Message string
}

func (d BackendDiagnostic) String() string {
	if d.Message != "" {
		return fmt.Sprintf("%s (0x%04X): %s", d.Name, d.Code, d.Message)
	}
	return fmt.Sprintf("%s (0x%04X)", d.Name, d.Code)
}
