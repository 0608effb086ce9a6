package registry

import (
	"math"
	"math/rand"
	"sort"

	"github.com/banshee-data/tabletop/internal/tabletop"
)

// DefaultFitSamples is the number of surface points sampled per model at
// registration time for use by the fitter.
const DefaultFitSamples = 300

// sampleSeed fixes the surface sampler's RNG so registering the same mesh
// always yields the same fit cloud.
const sampleSeed = 1

// Mesh describes a candidate object model as an indexed triangle mesh.
// Vertices are in the model frame (meters). A mesh with no triangles is
// treated as a plain point cloud.
type Mesh struct {
	Vertices  []tabletop.Point `json:"vertices"`
	Triangles [][3]int         `json:"triangles,omitempty"`
}

// SampleSurface draws n points from the mesh surface, area-weighted across
// triangles so large faces receive proportionally more samples. Sampling is
// deterministic. Meshes without triangles (or with zero total area) return
// a copy of their vertices instead.
func (m Mesh) SampleSurface(n int) []tabletop.Point {
	if len(m.Triangles) == 0 || n <= 0 {
		return append([]tabletop.Point(nil), m.Vertices...)
	}

	// Cumulative triangle areas for weighted selection.
	cum := make([]float64, len(m.Triangles))
	total := 0.0
	for i, tri := range m.Triangles {
		total += m.triangleArea(tri)
		cum[i] = total
	}
	if total == 0 {
		return append([]tabletop.Point(nil), m.Vertices...)
	}

	rng := rand.New(rand.NewSource(sampleSeed))
	out := make([]tabletop.Point, n)
	for k := range out {
		pick := rng.Float64() * total
		ti := sort.SearchFloat64s(cum, pick)
		if ti >= len(m.Triangles) {
			ti = len(m.Triangles) - 1
		}
		out[k] = m.samplePointInTriangle(m.Triangles[ti], rng)
	}
	return out
}

func (m Mesh) triangleArea(tri [3]int) float64 {
	a, b, c := m.Vertices[tri[0]], m.Vertices[tri[1]], m.Vertices[tri[2]]
	ux, uy, uz := b.X-a.X, b.Y-a.Y, b.Z-a.Z
	vx, vy, vz := c.X-a.X, c.Y-a.Y, c.Z-a.Z

	// Half the magnitude of the cross product.
	cx := uy*vz - uz*vy
	cy := uz*vx - ux*vz
	cz := ux*vy - uy*vx
	return 0.5 * math.Sqrt(cx*cx+cy*cy+cz*cz)
}

// samplePointInTriangle draws a uniformly distributed point inside the
// triangle using the square-root barycentric trick.
func (m Mesh) samplePointInTriangle(tri [3]int, rng *rand.Rand) tabletop.Point {
	a, b, c := m.Vertices[tri[0]], m.Vertices[tri[1]], m.Vertices[tri[2]]
	r1 := math.Sqrt(rng.Float64())
	r2 := rng.Float64()

	wa := 1 - r1
	wb := r1 * (1 - r2)
	wc := r1 * r2
	return tabletop.Point{
		X: wa*a.X + wb*b.X + wc*c.X,
		Y: wa*a.Y + wb*b.Y + wc*c.Y,
		Z: wa*a.Z + wb*b.Z + wc*c.Z,
	}
}
