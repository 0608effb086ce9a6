package tabletop

import (
	"math"
	"testing"

	"gonum.org/v1/gonum/num/quat"
)

func TestCentroid(t *testing.T) {
	points := []Point{
		{X: 0, Y: 0, Z: 0},
		{X: 2, Y: 4, Z: 6},
	}
	c := Centroid(points)
	want := Point{X: 1, Y: 2, Z: 3}
	if c != want {
		t.Errorf("Centroid = %+v, want %+v", c, want)
	}
}

func TestCentroidEmpty(t *testing.T) {
	if c := Centroid(nil); c != (Point{}) {
		t.Errorf("Centroid(nil) = %+v, want zero point", c)
	}
}

func TestIdentityPoseTransform(t *testing.T) {
	p := IdentityPose()
	pt := Point{X: 1.5, Y: -2, Z: 0.25}
	if got := p.Transform(pt); got != pt {
		t.Errorf("identity transform moved point: %+v", got)
	}
}

func TestPoseTransformRotation(t *testing.T) {
	// 90 degree rotation about Z maps +X to +Y.
	half := math.Pi / 4
	p := Pose{
		Position:    Point{X: 0.1, Y: 0.2, Z: 0.3},
		Orientation: quat.Number{Real: math.Cos(half), Kmag: math.Sin(half)},
	}

	got := p.Transform(Point{X: 1, Y: 0, Z: 0})
	want := Point{X: 0.1, Y: 1.2, Z: 0.3}
	if math.Abs(got.X-want.X) > 1e-12 || math.Abs(got.Y-want.Y) > 1e-12 || math.Abs(got.Z-want.Z) > 1e-12 {
		t.Errorf("Transform = %+v, want %+v", got, want)
	}
}
