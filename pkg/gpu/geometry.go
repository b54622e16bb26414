package gpu

import "fmt"

// GeometryBuffer holds an interleaved float vertex buffer and a triangle
// index buffer.
type GeometryBuffer struct {
	state       *State
	handle      Handle
	layout      VertexLayout
	usage       BufferUsage
	vertexCount int
	indexCount  int
	released    bool
}

// NewGeometryBuffer creates an empty buffer with the given layout
func NewGeometryBuffer(state *State, layout VertexLayout, usage BufferUsage) (*GeometryBuffer, error) {
	if layout.Stride <= 0 {
		return nil, &ResourceCreationError{Resource: "geometry", Reason: fmt.Sprintf("invalid stride %d", layout.Stride)}
	}
	for _, a := range layout.Attributes {
		if a.Components < 1 || a.Components > 4 || a.Offset+a.Components > layout.Stride {
			return nil, &ResourceCreationError{
				Resource: "geometry",
				Reason:   fmt.Sprintf("attribute %d does not fit stride %d", a.Location, layout.Stride),
			}
		}
	}

	handle, err := state.device.CreateGeometry(layout, usage)
	if err != nil {
		return nil, &ResourceCreationError{Resource: "geometry", Reason: "backend rejected buffer", Err: err}
	}

	return &GeometryBuffer{state: state, handle: handle, layout: layout, usage: usage}, nil
}

// Set replaces vertices and indices. Every index must reference a vertex.
func (g *GeometryBuffer) Set(vertices []float32, indices []uint32) error {
	if len(vertices)%g.layout.Stride != 0 {
		return fmt.Errorf("vertex data length %d is not a multiple of stride %d", len(vertices), g.layout.Stride)
	}
	if len(indices)%3 != 0 {
		return fmt.Errorf("index count %d is not a multiple of 3", len(indices))
	}
	vertexCount := len(vertices) / g.layout.Stride
	for i, idx := range indices {
		if int(idx) >= vertexCount {
			return fmt.Errorf("index %d at %d out of range for %d vertices", idx, i, vertexCount)
		}
	}

	g.state.device.UpdateGeometry(g.handle, vertices, indices)
	g.vertexCount = vertexCount
	g.indexCount = len(indices)
	return nil
}

// Draw draws every triangle in the buffer
func (g *GeometryBuffer) Draw() {
	if g.indexCount > 0 {
		g.state.device.DrawGeometry(g.handle, 0, g.indexCount)
	}
}

// DrawPart draws count indices starting at offset
func (g *GeometryBuffer) DrawPart(offset, count int) error {
	if offset < 0 || count < 0 || offset+count > g.indexCount {
		return fmt.Errorf("draw range [%d, %d) outside %d indices", offset, offset+count, g.indexCount)
	}
	if count > 0 {
		g.state.device.DrawGeometry(g.handle, offset, count)
	}
	return nil
}

func (g *GeometryBuffer) Handle() Handle {
	return g.handle
}

func (g *GeometryBuffer) VertexCount() int {
	return g.vertexCount
}

func (g *GeometryBuffer) IndexCount() int {
	return g.indexCount
}

// Release deletes the buffers. Safe to call more than once.
func (g *GeometryBuffer) Release() {
	if g == nil || g.released {
		return
	}
	g.released = true
	g.state.device.DeleteGeometry(g.handle)
}
