package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/google/uuid"

	"github.com/banshee-data/tabletop/internal/config"
	"github.com/banshee-data/tabletop/internal/fit"
	"github.com/banshee-data/tabletop/internal/registry"
	"github.com/banshee-data/tabletop/internal/tabletop"
	"github.com/banshee-data/tabletop/internal/version"
)

var (
	modelsDB    = flag.String("models", "models.db", "Path to the SQLite model database")
	clustersIn  = flag.String("clusters", "", "Path to the clusters JSON file (array of arrays of [x,y,z])")
	cutoff      = flag.Float64("cutoff", 0.5, "Confidence cutoff in [0,1]")
	fitMerge    = flag.Bool("merge", true, "Merge clusters whose fits coincide on the supporting plane")
	tuningPath  = flag.String("tuning", "", "Optional tuning config JSON file")
	showVersion = flag.Bool("version", false, "Print version and exit")
)

func main() {
	flag.Parse()

	if *showVersion {
		fmt.Printf("recognize %s (%s, built %s)\n", version.Version, version.GitSHA, version.BuildTime)
		return
	}

	if *clustersIn == "" {
		log.Fatal("missing required -clusters flag")
	}
	if *cutoff < 0 || *cutoff > 1 {
		log.Fatalf("cutoff must be in [0,1], got %f", *cutoff)
	}

	cfg := config.EmptyTuningConfig()
	if *tuningPath != "" {
		loaded, err := config.LoadTuningConfig(*tuningPath)
		if err != nil {
			log.Fatalf("failed to load tuning config: %v", err)
		}
		cfg = loaded
	}

	store, err := registry.NewStore(*modelsDB)
	if err != nil {
		log.Fatalf("failed to open model database %s: %v", *modelsDB, err)
	}
	defer store.Close()

	reg := registry.NewRegistry(cfg.GetModelSamples())
	loaded, err := store.LoadInto(reg)
	if err != nil {
		log.Fatalf("failed to load models: %v", err)
	}
	if loaded == 0 {
		log.Fatalf("model database %s holds no models", *modelsDB)
	}

	clusters, err := loadClusters(*clustersIn)
	if err != nil {
		log.Fatalf("failed to load clusters: %v", err)
	}

	fitter := fit.NewExhaustiveFitter(reg, fit.FitConfig{
		MaxIterations:     cfg.GetFitMaxIterations(),
		ConvergenceThresh: cfg.GetFitConvergence(),
		MaxCorrespondDist: cfg.GetFitMaxCorrespond(),
		TruncationDist:    cfg.GetFitTruncationDist(),
	})

	recognizer := tabletop.NewRecognizer(fitter)
	recognizer.FitMergeThreshold = cfg.GetFitMergeThreshold()
	recognizer.IndexCellSize = cfg.GetIndexCellSize()
	if workers := cfg.GetMaxWorkers(); workers > 0 {
		recognizer.MaxWorkers = workers
	}

	runID := uuid.New()
	log.Printf("run %s: %d models, %d clusters, cutoff %.2f, merge %v",
		runID, loaded, len(clusters), *cutoff, *fitMerge)

	results := recognizer.ObjectDetection(clusters, *cutoff, *fitMerge)

	for _, res := range results {
		pos := res.Pose.Position
		fmt.Printf("cluster %d: model %d at (%.3f, %.3f, %.3f) confidence %.3f (%d points)\n",
			res.ClusterIndex, res.ModelID, pos.X, pos.Y, pos.Z, res.Confidence, len(res.Cloud))
	}
	log.Printf("run %s: %d of %d clusters produced detections", runID, len(results), len(clusters))
}

// loadClusters reads clusters as a JSON array of point arrays, each point a
// [x, y, z] triple in meters.
func loadClusters(path string) ([]tabletop.Cluster, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var raw [][][3]float64
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("failed to parse clusters JSON: %w", err)
	}

	clusters := make([]tabletop.Cluster, len(raw))
	for i, points := range raw {
		cluster := make(tabletop.Cluster, len(points))
		for j, p := range points {
			cluster[j] = tabletop.Point{X: p[0], Y: p[1], Z: p[2]}
		}
		clusters[i] = cluster
	}
	return clusters, nil
}
