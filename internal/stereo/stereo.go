// Package stereo triangulates fingertip positions from a calibrated camera pair.
package stereo

import (
	"math"

	"github.com/golang/geo/r3"

	"github.com/ayusman/ghostglove/internal/vision"
)

// MinDisparity is the smallest disparity, in pixels, considered reliable.
// Anything closer to zero is replaced by ClampedDisparity.
const (
	MinDisparity     = 1.0
	ClampedDisparity = 0.1
)

// Position3D is a point in millimetres relative to the left camera's optical centre.
type Position3D struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// Vector returns p as an r3 vector.
func (p Position3D) Vector() r3.Vector {
	return r3.Vector(p)
}

// Sub returns p - q.
func (p Position3D) Sub(q Position3D) Position3D {
	return Position3D(p.Vector().Sub(q.Vector()))
}

// DistanceTo returns the Euclidean distance between p and q in millimetres.
func (p Position3D) DistanceTo(q Position3D) float64 {
	return p.Vector().Distance(q.Vector())
}

// Rig describes a horizontally aligned pinhole stereo pair.
type Rig struct {
	Baseline float64 // Distance between optical centres (mm)
	Focal    float64 // Focal length (pixels)
	Cx       float64 // Principal point x (pixels)
	Cy       float64 // Principal point y (pixels)
}

// DefaultRig returns the geometry of two Pi cameras 45.4mm apart at 1280x720.
func DefaultRig() Rig {
	return Rig{
		Baseline: 45.4,
		Focal:    530.0,
		Cx:       640,
		Cy:       360,
	}
}

// Disparity returns left.U - right.U, clamped away from zero.
// The sign is kept: a negative disparity means the centroids are swapped or mismatched.
func Disparity(left, right vision.Centroid) float64 {
	d := left.U - right.U
	if math.Abs(d) < MinDisparity {
		return ClampedDisparity
	}
	return d
}

// Triangulate computes the 3-D position of a point seen at left in the left
// camera and right in the right camera. A near-zero disparity yields a very
// large Z rather than an error; implausible or negative depths are returned
// as-is for the caller to filter.
func (r Rig) Triangulate(left, right vision.Centroid) Position3D {
	d := Disparity(left, right)

	z := (r.Focal * r.Baseline) / d
	return Position3D{
		X: (z * (left.U - r.Cx)) / r.Focal,
		Y: (z * (left.V - r.Cy)) / r.Focal,
		Z: z,
	}
}

// Project is the inverse of Triangulate: it returns the pixel coordinates at
// which p appears in the left and right cameras. p.Z must be non-zero.
func (r Rig) Project(p Position3D) (left, right vision.Centroid) {
	left = vision.Centroid{
		U: r.Focal*p.X/p.Z + r.Cx,
		V: r.Focal*p.Y/p.Z + r.Cy,
	}
	right = vision.Centroid{
		U: r.Focal*(p.X-r.Baseline)/p.Z + r.Cx,
		V: left.V,
	}
	return left, right
}

// PairSlots triangulates slot i of the left frame with slot i of the right
// frame for every slot visible in both. Both inputs must already be ordered
// left to right.
func (r Rig) PairSlots(left, right []vision.Centroid) []Position3D {
	n := min(len(left), len(right))

	positions := make([]Position3D, n)
	for i := 0; i < n; i++ {
		positions[i] = r.Triangulate(left[i], right[i])
	}
	return positions
}
