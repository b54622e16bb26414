package scene

import (
	"github.com/chewxy/math32"
	"github.com/go-gl/mathgl/mgl32"
)

// Plane is n·p + d = 0 with n pointing into the frustum
type Plane struct {
	Normal   mgl32.Vec3
	Distance float32
}

func planeFrom(v mgl32.Vec4) Plane {
	n := v.Vec3()
	l := n.Len()
	if l == 0 {
		return Plane{}
	}
	return Plane{Normal: n.Mul(1 / l), Distance: v[3] / l}
}

// SignedDistance is positive on the inner side of the plane
func (p Plane) SignedDistance(point mgl32.Vec3) float32 {
	return p.Normal.Dot(point) + p.Distance
}

// Frustum is the set of six clip planes of a view-projection matrix, in the
// order left, right, bottom, top, near, far.
type Frustum struct {
	Planes [6]Plane
}

// FrustumFromMatrix extracts the planes of a view-projection matrix
func FrustumFromMatrix(m mgl32.Mat4) Frustum {
	r0, r1, r2, r3 := m.Row(0), m.Row(1), m.Row(2), m.Row(3)
	return Frustum{Planes: [6]Plane{
		planeFrom(r3.Add(r0)),
		planeFrom(r3.Sub(r0)),
		planeFrom(r3.Add(r1)),
		planeFrom(r3.Sub(r1)),
		planeFrom(r3.Add(r2)),
		planeFrom(r3.Sub(r2)),
	}}
}

// IntersectsSphere reports whether any part of the sphere is inside
func (f Frustum) IntersectsSphere(center mgl32.Vec3, radius float32) bool {
	for _, p := range f.Planes {
		if p.SignedDistance(center) < -math32.Abs(radius) {
			return false
		}
	}
	return true
}

// ContainsPoint reports whether the point is inside every plane
func (f Frustum) ContainsPoint(point mgl32.Vec3) bool {
	return f.IntersectsSphere(point, 0)
}
