package tabletop

import "math"

// DefaultIndexCellSize is the default grid cell size in meters for the
// per-cluster spatial index. Tabletop objects are small, so cells are a
// couple of centimeters.
const DefaultIndexCellSize = 0.02

// EstimatedPointsPerCell is used for initial spatial index capacity estimation.
const EstimatedPointsPerCell = 4

// SpatialIndex provides nearest neighbor queries over one cluster's points
// using a regular grid. Cells are keyed on the (x, y) plane; candidate
// distance checks are full 3D.
type SpatialIndex struct {
	CellSize float64
	Grid     map[int64][]int // Cell ID → point indices

	// Occupied cell bounds, tracked at Build time so ring searches
	// can stop once they have swept the whole grid.
	minCellX, maxCellX int64
	minCellY, maxCellY int64
}

// NewSpatialIndex creates a spatial index with the specified cell size.
func NewSpatialIndex(cellSize float64) *SpatialIndex {
	return &SpatialIndex{
		CellSize: cellSize,
		Grid:     make(map[int64][]int),
	}
}

// Build populates the spatial index from a cluster's points. Any previous
// contents are discarded, so the same index can be rebuilt after a merge
// grows the cluster.
func (si *SpatialIndex) Build(points []Point) {
	si.Grid = make(map[int64][]int, len(points)/EstimatedPointsPerCell+1)
	si.minCellX, si.maxCellX = 0, 0
	si.minCellY, si.maxCellY = 0, 0

	for i, p := range points {
		cellX := int64(math.Floor(p.X / si.CellSize))
		cellY := int64(math.Floor(p.Y / si.CellSize))
		if i == 0 {
			si.minCellX, si.maxCellX = cellX, cellX
			si.minCellY, si.maxCellY = cellY, cellY
		} else {
			si.minCellX = min(si.minCellX, cellX)
			si.maxCellX = max(si.maxCellX, cellX)
			si.minCellY = min(si.minCellY, cellY)
			si.maxCellY = max(si.maxCellY, cellY)
		}
		id := pairCells(cellX, cellY)
		si.Grid[id] = append(si.Grid[id], i)
	}
}

// pairCells computes a unique cell identifier from signed cell coordinates
// using zigzag encoding followed by Szudzik's pairing function.
func pairCells(cellX, cellY int64) int64 {
	var a, b int64
	if cellX >= 0 {
		a = 2 * cellX
	} else {
		a = -2*cellX - 1
	}
	if cellY >= 0 {
		b = 2 * cellY
	} else {
		b = -2*cellY - 1
	}

	if a >= b {
		return a*a + a + b
	}
	return a + b*b
}

// RegionQuery returns indices of all points within eps 3D distance of
// points[idx]. Only the 3x3 cell neighborhood is searched, so eps should
// not exceed the cell size.
func (si *SpatialIndex) RegionQuery(points []Point, idx int, eps float64) []int {
	p := points[idx]
	neighbors := []int{}
	eps2 := eps * eps

	cellX := int64(math.Floor(p.X / si.CellSize))
	cellY := int64(math.Floor(p.Y / si.CellSize))

	for dx := int64(-1); dx <= 1; dx++ {
		for dy := int64(-1); dy <= 1; dy++ {
			id := pairCells(cellX+dx, cellY+dy)
			for _, candidateIdx := range si.Grid[id] {
				c := points[candidateIdx]
				ddx := c.X - p.X
				ddy := c.Y - p.Y
				ddz := c.Z - p.Z
				if ddx*ddx+ddy*ddy+ddz*ddz <= eps2 {
					neighbors = append(neighbors, candidateIdx)
				}
			}
		}
	}

	return neighbors
}

// Nearest returns the index of the cluster point closest to q and its 3D
// distance. The search expands outward ring by ring; a ring can be skipped
// only once its planar distance lower bound exceeds the best 3D distance
// found so far. Returns ok=false for an empty index.
func (si *SpatialIndex) Nearest(points []Point, q Point) (idx int, dist float64, ok bool) {
	if len(si.Grid) == 0 {
		return 0, 0, false
	}

	cellX := int64(math.Floor(q.X / si.CellSize))
	cellY := int64(math.Floor(q.Y / si.CellSize))

	// Rings beyond the occupied grid extent hold no points.
	maxRing := max(
		absInt64(cellX-si.minCellX), absInt64(si.maxCellX-cellX),
		absInt64(cellY-si.minCellY), absInt64(si.maxCellY-cellY),
	)

	best := -1
	bestDist2 := math.MaxFloat64

	for ring := int64(0); ring <= maxRing; ring++ {
		if best >= 0 {
			// Points in this ring are at planar distance >= (ring-1)*CellSize
			// from q, which lower-bounds their 3D distance.
			lowerBound := float64(ring-1) * si.CellSize
			if lowerBound > 0 && lowerBound*lowerBound > bestDist2 {
				break
			}
		}

		si.visitRing(cellX, cellY, ring, func(candidateIdx int) {
			c := points[candidateIdx]
			dx := c.X - q.X
			dy := c.Y - q.Y
			dz := c.Z - q.Z
			d2 := dx*dx + dy*dy + dz*dz
			if d2 < bestDist2 {
				bestDist2 = d2
				best = candidateIdx
			}
		})
	}

	if best < 0 {
		return 0, 0, false
	}
	return best, math.Sqrt(bestDist2), true
}

// visitRing calls visit for every point index in cells at Chebyshev distance
// ring from the center cell.
func (si *SpatialIndex) visitRing(cellX, cellY, ring int64, visit func(int)) {
	if ring == 0 {
		for _, i := range si.Grid[pairCells(cellX, cellY)] {
			visit(i)
		}
		return
	}

	for dx := -ring; dx <= ring; dx++ {
		for _, i := range si.Grid[pairCells(cellX+dx, cellY-ring)] {
			visit(i)
		}
		for _, i := range si.Grid[pairCells(cellX+dx, cellY+ring)] {
			visit(i)
		}
	}
	for dy := -ring + 1; dy <= ring-1; dy++ {
		for _, i := range si.Grid[pairCells(cellX-ring, cellY+dy)] {
			visit(i)
		}
		for _, i := range si.Grid[pairCells(cellX+ring, cellY+dy)] {
			visit(i)
		}
	}
}

func absInt64(v int64) int64 {
	if v < 0 {
		return -v
	}
	return v
}
