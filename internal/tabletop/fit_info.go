package tabletop

import "math"

// ModelFitInfo is one candidate model fit against a cluster: which model,
// where it landed, and how well it matched. Score is the raw fit score in
// [0, 1], higher is better. A cluster's fit result is an ordered list of
// ModelFitInfo, best first.
type ModelFitInfo struct {
	ModelID int
	Pose    Pose
	Score   float64
}

// Fitter searches the registered model set for the best fits against one
// cluster. Implementations return at most numModels results, best first,
// and may return an empty list when no candidate clears the cutoff. The
// spatial index is built over the same points passed in.
type Fitter interface {
	FitBestModels(points Cluster, numModels int, index *SpatialIndex, confidenceCutoff float64) []ModelFitInfo
}

// FitterFunc adapts a plain function to the Fitter interface.
type FitterFunc func(points Cluster, numModels int, index *SpatialIndex, confidenceCutoff float64) []ModelFitInfo

// FitBestModels calls f.
func (f FitterFunc) FitBestModels(points Cluster, numModels int, index *SpatialIndex, confidenceCutoff float64) []ModelFitInfo {
	return f(points, numModels, index, confidenceCutoff)
}

// fitDistance returns the distance along the supporting plane between two
// fit poses. Only x and y enter: objects are assumed to sit on a common
// tabletop, so z offsets between fits carry no merge signal.
func fitDistance(a, b ModelFitInfo) float64 {
	dx := a.Pose.Position.X - b.Pose.Position.X
	dy := a.Pose.Position.Y - b.Pose.Position.Y
	return math.Sqrt(dx*dx + dy*dy)
}

// FitClusterDistance returns the minimum planar distance from a fit's
// position to any point of a cluster. The merge loop compares fits to fits
// only; this cluster-to-fit variant is kept for callers that need a
// proximity measure for clusters that produced no fit of their own.
func FitClusterDistance(m ModelFitInfo, cluster Cluster) float64 {
	const farDistance = 100.0

	best := farDistance * farDistance
	mx := m.Pose.Position.X
	my := m.Pose.Position.Y
	for _, p := range cluster {
		dx := p.X - mx
		dy := p.Y - my
		d := dx*dx + dy*dy
		if d < best {
			best = d
		}
	}
	return math.Sqrt(best)
}
