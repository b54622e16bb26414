package renderer

import (
	"github.com/go-gl/mathgl/mgl32"

	"lumen/pkg/gpu"
)

// quadLayout is position followed by texture coordinates
var quadLayout = gpu.VertexLayout{
	Stride: 5,
	Attributes: []gpu.VertexAttribute{
		{Location: 0, Components: 3, Offset: 0},
		{Location: 1, Components: 2, Offset: 3},
	},
}

// newUnitQuad builds the [0,1]x[0,1] quad used by fullscreen passes. Its
// texture v axis is flipped so that a frame matrix with y pointing down
// shows render targets upright.
func newUnitQuad(state *gpu.State) (*gpu.GeometryBuffer, error) {
	quad, err := gpu.NewGeometryBuffer(state, quadLayout, gpu.StaticDraw)
	if err != nil {
		return nil, err
	}
	vertices := []float32{
		0, 0, 0, 0, 1,
		1, 0, 0, 1, 1,
		1, 1, 0, 1, 0,
		0, 1, 0, 0, 0,
	}
	if err := quad.Set(vertices, []uint32{0, 1, 2, 0, 2, 3}); err != nil {
		quad.Release()
		return nil, err
	}
	return quad, nil
}

// frameMatrix stretches the unit quad over a width x height frame with the
// origin in the top left corner
func frameMatrix(width, height int) mgl32.Mat4 {
	w, h := float32(width), float32(height)
	return mgl32.Ortho(0, w, h, 0, -1, 1).Mul4(mgl32.Scale3D(w, h, 0))
}
