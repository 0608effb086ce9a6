// Package fit implements the model-search side of tabletop recognition: an
// exhaustive sweep over the registered models, each aligned to a cluster by
// an iterative translation fit against the cluster's spatial index.
package fit

import (
	"math"
	"sort"

	"github.com/banshee-data/tabletop/internal/registry"
	"github.com/banshee-data/tabletop/internal/tabletop"
)

// FitConfig holds parameters for the iterative translation fit. All
// distances are in meters.
type FitConfig struct {
	MaxIterations     int     // Maximum number of alignment iterations
	ConvergenceThresh float64 // Stop when the translation update drops below this
	MaxCorrespondDist float64 // Model samples farther than this from any cluster point are outliers
	TruncationDist    float64 // Distance at which a sample's score contribution reaches zero
}

// DefaultFitConfig returns defaults tuned for household-object scale
// (centimeters to tens of centimeters).
func DefaultFitConfig() FitConfig {
	return FitConfig{
		MaxIterations:     100,
		ConvergenceThresh: 1e-4,
		MaxCorrespondDist: 0.10,
		TruncationDist:    0.05,
	}
}

// ExhaustiveFitter fits every registered model against a cluster and keeps
// the best results. It implements tabletop.Fitter. The registry is only
// read during fitting, so one fitter can serve concurrent per-cluster fits.
type ExhaustiveFitter struct {
	registry *registry.Registry
	config   FitConfig
}

// NewExhaustiveFitter creates a fitter over the given model registry.
func NewExhaustiveFitter(reg *registry.Registry, config FitConfig) *ExhaustiveFitter {
	return &ExhaustiveFitter{registry: reg, config: config}
}

// FitBestModels fits each registered model to the cluster and returns the
// best results, highest score first, at most numModels long. Candidates
// whose confidence would fall below confidenceCutoff are pruned here so the
// caller never sees fits it would discard anyway. Empty clusters and
// clusters with no satisfying candidate yield an empty list.
func (f *ExhaustiveFitter) FitBestModels(points tabletop.Cluster, numModels int, index *tabletop.SpatialIndex, confidenceCutoff float64) []tabletop.ModelFitInfo {
	if len(points) == 0 {
		return nil
	}
	if numModels < 1 {
		numModels = 1
	}

	var fits []tabletop.ModelFitInfo
	for _, model := range f.registry.Models() {
		info, ok := f.fitModel(model, points, index)
		if !ok {
			continue
		}
		if tabletop.Confidence(info.Score) < confidenceCutoff {
			continue
		}
		fits = append(fits, info)
	}

	sort.SliceStable(fits, func(i, j int) bool { return fits[i].Score > fits[j].Score })
	if len(fits) > numModels {
		fits = fits[:numModels]
	}
	return fits
}

// fitModel aligns one model to the cluster by iterative translation: each
// round matches every model sample to its nearest cluster point and shifts
// the model by the mean residual. Rotation is not searched; tabletop
// objects are matched in their canonical upright orientation.
func (f *ExhaustiveFitter) fitModel(model registry.Model, points tabletop.Cluster, index *tabletop.SpatialIndex) (tabletop.ModelFitInfo, bool) {
	samples := model.FitCloud
	if len(samples) == 0 {
		return tabletop.ModelFitInfo{}, false
	}

	// Initial guess: model centroid onto cluster centroid.
	cc := tabletop.Centroid(points)
	mc := tabletop.Centroid(samples)
	tx := cc.X - mc.X
	ty := cc.Y - mc.Y
	tz := cc.Z - mc.Z

	maxCorrespond2 := f.config.MaxCorrespondDist * f.config.MaxCorrespondDist

	for iter := 0; iter < f.config.MaxIterations; iter++ {
		var sumX, sumY, sumZ float64
		matched := 0

		for _, s := range samples {
			q := tabletop.Point{X: s.X + tx, Y: s.Y + ty, Z: s.Z + tz}
			ni, d, ok := index.Nearest(points, q)
			if !ok || d*d > maxCorrespond2 {
				continue
			}
			n := points[ni]
			sumX += n.X - q.X
			sumY += n.Y - q.Y
			sumZ += n.Z - q.Z
			matched++
		}

		if matched == 0 {
			// Model drifted (or started) too far from the cluster for
			// any correspondence to hold.
			return tabletop.ModelFitInfo{}, false
		}

		dx := sumX / float64(matched)
		dy := sumY / float64(matched)
		dz := sumZ / float64(matched)
		tx += dx
		ty += dy
		tz += dz

		if math.Sqrt(dx*dx+dy*dy+dz*dz) < f.config.ConvergenceThresh {
			break
		}
	}

	pose := tabletop.IdentityPose()
	pose.Position = tabletop.Point{X: tx, Y: ty, Z: tz}

	return tabletop.ModelFitInfo{
		ModelID: model.ID,
		Pose:    pose,
		Score:   f.scoreFit(samples, pose, points, index),
	}, true
}

// scoreFit computes the raw fit score in [0, 1]: the mean truncated distance
// score over all model samples. A sample at zero distance contributes 1; the
// contribution falls linearly to 0 at TruncationDist and stays there.
func (f *ExhaustiveFitter) scoreFit(samples []tabletop.Point, pose tabletop.Pose, points tabletop.Cluster, index *tabletop.SpatialIndex) float64 {
	if len(samples) == 0 {
		return 0
	}

	total := 0.0
	for _, s := range samples {
		q := pose.Transform(s)
		_, d, ok := index.Nearest(points, q)
		if !ok || d >= f.config.TruncationDist {
			continue
		}
		total += 1.0 - d/f.config.TruncationDist
	}
	return total / float64(len(samples))
}
