package tabletop

import (
	"runtime"
	"sync"
	"time"

	"github.com/banshee-data/tabletop/internal/monitoring"
)

// DefaultFitMergeThreshold is the default maximum planar distance in meters
// between two clusters' best fits for the clusters to be considered
// fragments of the same object.
const DefaultFitMergeThreshold = 0.02

// bestModelsPerCluster is the number of candidate models requested per
// cluster. Only the best fit is consumed downstream.
const bestModelsPerCluster = 1

// Recognizer fits pre-segmented point clusters against a registry of object
// models and consolidates clusters that upstream segmentation split apart.
// One Recognizer may serve many ObjectDetection calls; it holds no per-call
// state.
type Recognizer struct {
	fitter Fitter

	// FitMergeThreshold is the planar distance below which two clusters'
	// best fits are treated as the same physical object.
	FitMergeThreshold float64

	// MaxWorkers bounds the per-cluster fit fan-out. One task is spawned
	// per cluster regardless; this caps how many run at once.
	MaxWorkers int

	// IndexCellSize is the grid cell size for per-cluster spatial indexes.
	IndexCellSize float64
}

// TabletopResult is one finalized detection.
type TabletopResult struct {
	ModelID    int
	Pose       Pose
	Confidence float64

	// Cloud is the root cluster's final point set, including any points
	// absorbed from merged fragments.
	Cloud Cluster

	// ClusterIndex is the original index of the root cluster this result
	// originated from.
	ClusterIndex int
}

// NewRecognizer creates a recognizer around the given fitter with default
// merge threshold, worker bound, and index cell size.
func NewRecognizer(fitter Fitter) *Recognizer {
	return &Recognizer{
		fitter:            fitter,
		FitMergeThreshold: DefaultFitMergeThreshold,
		MaxWorkers:        runtime.NumCPU(),
		IndexCellSize:     DefaultIndexCellSize,
	}
}

// ObjectDetection fits every cluster against the model registry and returns
// one result per surviving root cluster with confidence >= confidenceCutoff,
// in ascending root index order.
//
// When performFitMerge is set, clusters whose best fits land within
// FitMergeThreshold of each other on the supporting plane are merged: the
// lower-indexed cluster absorbs the other's points and is re-fit against the
// combined geometry before further comparisons. Clusters are mutated in
// place by merging; the caller cedes ownership for the duration of the call.
func (r *Recognizer) ObjectDetection(clusters []Cluster, confidenceCutoff float64, performFitMerge bool) []TabletopResult {
	n := len(clusters)
	if n == 0 {
		return nil
	}

	// rootOf[i] == i means cluster i is a live root; rootOf[i] == k means
	// cluster i was absorbed into root k. Absorbed clusters never become
	// merge targets again, so the relation stays one hop deep.
	rootOf := make([]int, n)
	fits := make([][]ModelFitInfo, n)
	indexes := make([]*SpatialIndex, n)

	workers := r.MaxWorkers
	if workers < 1 {
		workers = 1
	}

	// Fan-out: one fit task per cluster, bounded by the worker semaphore.
	// Each task touches only its own cluster and index, so the phase is
	// race-free; the registry behind the fitter is read-only by contract.
	start := time.Now()
	sem := make(chan struct{}, workers)
	var wg sync.WaitGroup
	for i := range clusters {
		rootOf[i] = i
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			idx := NewSpatialIndex(r.IndexCellSize)
			idx.Build(clusters[i])
			indexes[i] = idx
			fits[i] = r.fitter.FitBestModels(clusters[i], bestModelsPerCluster, idx, confidenceCutoff)
		}(i)
	}
	wg.Wait()
	monitoring.Logf("tabletop: fit %d clusters in %v", n, time.Since(start))

	// The merge phase is single-threaded on purpose: it mutates cluster
	// contents and the root map, and each merge decision depends on the
	// re-fit result of the one before it.
	if performFitMerge {
		r.mergeClusters(clusters, rootOf, fits, indexes, confidenceCutoff)
	}

	results := make([]TabletopResult, 0, n)
	for i := 0; i < n; i++ {
		if rootOf[i] != i || len(fits[i]) == 0 {
			continue
		}

		confidence := Confidence(fits[i][0].Score)
		if confidence < confidenceCutoff {
			continue
		}

		results = append(results, TabletopResult{
			ModelID:      fits[i][0].ModelID,
			Pose:         fits[i][0].Pose,
			Confidence:   confidence,
			Cloud:        clusters[i],
			ClusterIndex: i,
		})
	}
	return results
}

// mergeClusters greedily absorbs clusters whose best fits are planar
// neighbors. Roots are scanned in ascending original-index order; for each
// root the scan over candidates is forward-only, restarting from i+1 after
// every absorption so a grown root can keep absorbing. Every absorption
// triggers a re-fit of the root against its combined point set.
func (r *Recognizer) mergeClusters(clusters []Cluster, rootOf []int, fits [][]ModelFitInfo, indexes []*SpatialIndex, confidenceCutoff float64) {
	n := len(clusters)

	i := 0
	for i < n {
		if rootOf[i] != i || len(fits[i]) == 0 {
			i++
			continue
		}

		j := i + 1
		for ; j < n; j++ {
			if rootOf[j] != j {
				continue
			}
			// Clusters with no fit of their own are never merge
			// candidates; only fit-to-fit proximity is consulted.
			if len(fits[j]) == 0 {
				continue
			}
			if fitDistance(fits[i][0], fits[j][0]) < r.FitMergeThreshold {
				break
			}
		}

		if j == n {
			i++
			continue
		}

		// Merge cluster j into i and drop j from further processing.
		clusters[i] = append(clusters[i], clusters[j]...)
		fits[j] = nil
		rootOf[j] = i

		// Re-fit against the combined geometry so the root's pose and
		// score anchor subsequent comparisons correctly. The re-fit may
		// come back empty, which drops the root from the results.
		indexes[i].Build(clusters[i])
		fits[i] = r.fitter.FitBestModels(clusters[i], bestModelsPerCluster, indexes[i], confidenceCutoff)
		monitoring.Logf("tabletop: merged cluster %d into %d (%d points)", j, i, len(clusters[i]))
	}
}
