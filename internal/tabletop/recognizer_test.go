package tabletop

import (
	"sync"
	"testing"

	"github.com/google/go-cmp/cmp"
)

// stubFitter returns one fit per cluster positioned at the cluster
// centroid, with a score chosen by the score function. A negative score
// means "no fit". Calls are counted so tests can observe re-fits.
type stubFitter struct {
	mu    sync.Mutex
	calls int
	score func(points Cluster) float64
}

func (s *stubFitter) FitBestModels(points Cluster, numModels int, index *SpatialIndex, confidenceCutoff float64) []ModelFitInfo {
	s.mu.Lock()
	s.calls++
	s.mu.Unlock()

	if len(points) == 0 {
		return nil
	}
	score := 0.9
	if s.score != nil {
		score = s.score(points)
	}
	if score < 0 {
		return nil
	}

	pose := IdentityPose()
	pose.Position = Centroid(points)
	return []ModelFitInfo{{ModelID: 1, Pose: pose, Score: score}}
}

func (s *stubFitter) callCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

// clusterAt builds a tight cluster of n points whose centroid sits at
// (cx, cy) on the supporting plane.
func clusterAt(cx, cy float64, n int) Cluster {
	c := make(Cluster, n)
	for i := range c {
		// Symmetric jitter keeps the centroid exactly at (cx, cy).
		off := (float64(i) - float64(n-1)/2) * 1e-4
		c[i] = Point{X: cx + off, Y: cy, Z: 0.01}
	}
	return c
}

func TestObjectDetectionEmptyInput(t *testing.T) {
	r := NewRecognizer(&stubFitter{})
	if results := r.ObjectDetection(nil, 0.5, true); results != nil {
		t.Errorf("expected nil results for no clusters, got %v", results)
	}
}

func TestObjectDetectionNoMergeIndependence(t *testing.T) {
	fitter := &stubFitter{}
	r := NewRecognizer(fitter)

	clusters := []Cluster{
		clusterAt(0, 0, 10),
		clusterAt(0.005, 0.005, 10), // would merge if merging were on
		clusterAt(1, 1, 10),
	}
	results := r.ObjectDetection(clusters, 0.5, false)

	if len(results) != len(clusters) {
		t.Fatalf("expected %d independent results, got %d", len(clusters), len(results))
	}
	for i, res := range results {
		if res.ClusterIndex != i {
			t.Errorf("result %d has ClusterIndex %d", i, res.ClusterIndex)
		}
		if len(res.Cloud) != 10 {
			t.Errorf("result %d cloud mutated, %d points", i, len(res.Cloud))
		}
	}
	if fitter.callCount() != len(clusters) {
		t.Errorf("expected exactly one fit per cluster, got %d calls", fitter.callCount())
	}
}

func TestObjectDetectionCutoffRespected(t *testing.T) {
	// Scores 0.9 and 0.2 → confidences 0.99 and 0.36.
	fitter := &stubFitter{score: func(points Cluster) float64 {
		if points[0].Y > 0.5 {
			return 0.2
		}
		return 0.9
	}}
	r := NewRecognizer(fitter)

	clusters := []Cluster{
		clusterAt(0, 0, 10),
		clusterAt(0, 1, 10),
	}
	results := r.ObjectDetection(clusters, 0.5, false)

	if len(results) != 1 {
		t.Fatalf("expected 1 result above cutoff, got %d", len(results))
	}
	if results[0].ClusterIndex != 0 {
		t.Errorf("wrong cluster survived: %d", results[0].ClusterIndex)
	}
	for _, res := range results {
		if res.Confidence < 0.5 {
			t.Errorf("result violates cutoff: confidence %v", res.Confidence)
		}
	}
}

func TestObjectDetectionEmptyClusterPropagates(t *testing.T) {
	fitter := &stubFitter{}
	r := NewRecognizer(fitter)

	clusters := []Cluster{
		{},
		clusterAt(0.3, 0.3, 10),
	}
	results := r.ObjectDetection(clusters, 0.5, true)

	if len(results) != 1 {
		t.Fatalf("expected 1 result, got %d", len(results))
	}
	if results[0].ClusterIndex != 1 {
		t.Errorf("expected result from cluster 1, got %d", results[0].ClusterIndex)
	}
}

func TestObjectDetectionMergeWithinThreshold(t *testing.T) {
	fitter := &stubFitter{}
	r := NewRecognizer(fitter)

	a := clusterAt(0, 0, 10)
	b := clusterAt(0.01, 0.01, 15) // planar fit distance ≈ 0.0141 < 0.02

	wantCloud := append(append(Cluster{}, a...), b...)
	clusters := []Cluster{
		append(Cluster{}, a...),
		append(Cluster{}, b...),
	}
	results := r.ObjectDetection(clusters, 0.5, true)

	if len(results) != 1 {
		t.Fatalf("expected merged single result, got %d", len(results))
	}
	if results[0].ClusterIndex != 0 {
		t.Errorf("merge target should be the lower index, got %d", results[0].ClusterIndex)
	}
	if diff := cmp.Diff(wantCloud, results[0].Cloud); diff != "" {
		t.Errorf("merged cloud mismatch (-want +got):\n%s", diff)
	}
	// Initial fits plus one re-fit after the absorption.
	if fitter.callCount() != 3 {
		t.Errorf("expected 3 fitter calls (2 initial + 1 re-fit), got %d", fitter.callCount())
	}
}

func TestObjectDetectionNoMergeBeyondThreshold(t *testing.T) {
	fitter := &stubFitter{}
	r := NewRecognizer(fitter)

	clusters := []Cluster{
		clusterAt(0, 0, 10),
		clusterAt(0.05, 0, 10), // planar fit distance 0.05 >= 0.02
	}
	results := r.ObjectDetection(clusters, 0.5, true)

	if len(results) != 2 {
		t.Fatalf("expected 2 independent results, got %d", len(results))
	}
	if fitter.callCount() != 2 {
		t.Errorf("expected no re-fits, got %d calls", fitter.callCount())
	}
}

func TestObjectDetectionChainAbsorption(t *testing.T) {
	// Three fragments of one object: the root keeps absorbing after each
	// re-fit until nothing remains in range.
	fitter := &stubFitter{}
	r := NewRecognizer(fitter)

	clusters := []Cluster{
		clusterAt(0, 0, 10),
		clusterAt(0.01, 0, 10),
		clusterAt(0.005, 0.01, 10),
	}
	results := r.ObjectDetection(clusters, 0.5, true)

	if len(results) != 1 {
		t.Fatalf("expected one merged result, got %d", len(results))
	}
	if len(results[0].Cloud) != 30 {
		t.Errorf("merged cloud has %d points, want 30", len(results[0].Cloud))
	}
	if results[0].ClusterIndex != 0 {
		t.Errorf("root should be cluster 0, got %d", results[0].ClusterIndex)
	}
}

func TestObjectDetectionMergeIdempotentAtFixedPoint(t *testing.T) {
	first := &stubFitter{}
	r := NewRecognizer(first)

	clusters := []Cluster{
		clusterAt(0, 0, 10),
		clusterAt(0.01, 0.01, 10),
		clusterAt(0.5, 0.5, 10),
	}
	results := r.ObjectDetection(clusters, 0.5, true)
	if len(results) != 2 {
		t.Fatalf("expected 2 results after merging, got %d", len(results))
	}

	// Re-run on the already-merged clouds: no further absorptions, so
	// exactly one fit per cluster and the same result count.
	second := &stubFitter{}
	r2 := NewRecognizer(second)
	merged := make([]Cluster, len(results))
	for i, res := range results {
		merged[i] = res.Cloud
	}
	again := r2.ObjectDetection(merged, 0.5, true)

	if len(again) != len(results) {
		t.Errorf("fixed point not stable: %d results became %d", len(results), len(again))
	}
	if second.callCount() != len(merged) {
		t.Errorf("expected zero re-fits at fixed point, got %d calls for %d clusters",
			second.callCount(), len(merged))
	}
}

func TestObjectDetectionRefitDegradationDropsRoot(t *testing.T) {
	// Fragments fit well alone but the combined geometry no longer matches
	// any model: the merged root must vanish from the results.
	fitter := &stubFitter{score: func(points Cluster) float64 {
		if len(points) > 10 {
			return 0.05 // confidence ≈ 0.0975, below cutoff
		}
		return 0.9
	}}
	r := NewRecognizer(fitter)

	clusters := []Cluster{
		clusterAt(0, 0, 10),
		clusterAt(0.01, 0, 10),
	}
	results := r.ObjectDetection(clusters, 0.5, true)

	if len(results) != 0 {
		t.Fatalf("degraded merged root should be dropped, got %d results", len(results))
	}
}

func TestObjectDetectionRefitEmptyDropsRoot(t *testing.T) {
	// Same shape of failure, but the re-fit returns no fit at all.
	fitter := &stubFitter{score: func(points Cluster) float64 {
		if len(points) > 10 {
			return -1 // no fit
		}
		return 0.9
	}}
	r := NewRecognizer(fitter)

	clusters := []Cluster{
		clusterAt(0, 0, 10),
		clusterAt(0.01, 0, 10),
		clusterAt(0.012, 0, 10), // in range of cluster 0's original fit
	}
	results := r.ObjectDetection(clusters, 0.5, true)

	// Root 0 absorbs cluster 1, the re-fit comes back empty, and root 0
	// leaves the merge scan entirely, so cluster 2 stands alone.
	if len(results) != 1 {
		t.Fatalf("expected only the untouched cluster to survive, got %d results", len(results))
	}
	if results[0].ClusterIndex != 2 {
		t.Errorf("surviving result should be cluster 2, got %d", results[0].ClusterIndex)
	}
}

func TestObjectDetectionResultOrderAndBounds(t *testing.T) {
	fitter := &stubFitter{}
	r := NewRecognizer(fitter)

	clusters := []Cluster{
		clusterAt(0.9, 0.9, 5),
		clusterAt(0, 0, 5),
		clusterAt(0.3, 0.3, 5),
		clusterAt(0.6, 0.6, 5),
	}
	results := r.ObjectDetection(clusters, 0.5, true)

	if len(results) > len(clusters) {
		t.Fatalf("more results than clusters: %d > %d", len(results), len(clusters))
	}
	for i := 1; i < len(results); i++ {
		if results[i].ClusterIndex <= results[i-1].ClusterIndex {
			t.Errorf("results out of root order: %d after %d",
				results[i].ClusterIndex, results[i-1].ClusterIndex)
		}
	}
}
