package tabletop

import (
	"gonum.org/v1/gonum/num/quat"
)

// Point is a single 3D point in meters, in the frame the upstream
// segmentation delivered the clusters in.
type Point struct {
	X, Y, Z float64
}

// Cluster is an ordered set of points believed to belong to one physical
// object. Clusters are mutable: merging appends one cluster's points onto
// another's.
type Cluster []Point

// Pose is a 6-DoF rigid pose: a translation plus a unit quaternion.
type Pose struct {
	Position    Point
	Orientation quat.Number
}

// IdentityPose returns a pose with zero translation and identity rotation.
func IdentityPose() Pose {
	return Pose{Orientation: quat.Number{Real: 1}}
}

// Transform applies the pose to a point: rotate by the orientation
// quaternion, then translate.
func (p Pose) Transform(pt Point) Point {
	q := p.Orientation
	v := quat.Number{Imag: pt.X, Jmag: pt.Y, Kmag: pt.Z}
	r := quat.Mul(quat.Mul(q, v), quat.Conj(q))
	return Point{
		X: r.Imag + p.Position.X,
		Y: r.Jmag + p.Position.Y,
		Z: r.Kmag + p.Position.Z,
	}
}

// Centroid computes the mean position of a set of points.
// Returns the zero point for an empty input.
func Centroid(points []Point) Point {
	if len(points) == 0 {
		return Point{}
	}

	var sumX, sumY, sumZ float64
	for _, p := range points {
		sumX += p.X
		sumY += p.Y
		sumZ += p.Z
	}
	n := float64(len(points))
	return Point{X: sumX / n, Y: sumY / n, Z: sumZ / n}
}
