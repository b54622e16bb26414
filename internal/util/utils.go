package util

import (
	"math/rand"
	"time"

	"github.com/chewxy/math32"
)

// Lerp performs linear interpolation between a and b with t in [0,1]
func Lerp(a, b, t float32) float32 {
	return a + t*(b-a)
}

// Clamp restricts a value to be between min and max
func Clamp(value, min, max float32) float32 {
	if value < min {
		return min
	}
	if value > max {
		return max
	}
	return value
}

// Map remaps a value from one range to another, clamping to the output range
func Map(value, inMin, inMax, outMin, outMax float32) float32 {
	if inMax == inMin {
		return outMin
	}
	t := Clamp((value-inMin)/(inMax-inMin), 0, 1)
	return outMin + t*(outMax-outMin)
}

// SmoothStep is the GLSL smoothstep: 0 below edge0, 1 above edge1 and a
// cubic Hermite curve in between. Degenerate edges behave like Step.
func SmoothStep(edge0, edge1, x float32) float32 {
	if edge1 <= edge0 {
		return Step(edge0, x)
	}
	t := Clamp((x-edge0)/(edge1-edge0), 0, 1)
	return t * t * (3 - 2*t)
}

// Step is the GLSL step: 0 when x < edge, otherwise 1
func Step(edge, x float32) float32 {
	if x < edge {
		return 0
	}
	return 1
}

// Distance3D calculates the Euclidean distance between two 3D points
func Distance3D(x1, y1, z1, x2, y2, z2 float32) float32 {
	dx := x2 - x1
	dy := y2 - y1
	dz := z2 - z1
	return math32.Sqrt(dx*dx + dy*dy + dz*dz)
}

// RotatePoint2D rotates a 2D point around the origin by the given angle (in radians)
func RotatePoint2D(x, y, angle float32) (float32, float32) {
	sin, cos := math32.Sincos(angle)
	return x*cos - y*sin, x*sin + y*cos
}

// Random wraps a seeded source for reproducible emitter output
type Random struct {
	rng *rand.Rand
}

// NewRandom creates a Random. A zero seed picks one from the clock.
func NewRandom(seed int64) *Random {
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return &Random{rng: rand.New(rand.NewSource(seed))}
}

// Range returns a random float32 in [min, max)
func (r *Random) Range(min, max float32) float32 {
	if max <= min {
		return min
	}
	return min + r.rng.Float32()*(max-min)
}

// Angle returns a random angle in [0, 2π)
func (r *Random) Angle() float32 {
	return r.Range(0, 2*math32.Pi)
}

// Intn returns a random int in [0, n)
func (r *Random) Intn(n int) int {
	if n <= 0 {
		return 0
	}
	return r.rng.Intn(n)
}
