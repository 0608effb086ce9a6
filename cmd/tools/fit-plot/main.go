// fit-plot renders a top-down scatter of cluster points and fitted model
// positions, for eyeballing merge behavior on captured scenes.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"image/color"
	"log"
	"os"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"

	"github.com/banshee-data/tabletop/internal/fit"
	"github.com/banshee-data/tabletop/internal/registry"
	"github.com/banshee-data/tabletop/internal/tabletop"
)

var (
	modelsDB   = flag.String("models", "models.db", "Path to the SQLite model database")
	clustersIn = flag.String("clusters", "", "Path to the clusters JSON file (array of arrays of [x,y,z])")
	cutoff     = flag.Float64("cutoff", 0.5, "Confidence cutoff in [0,1]")
	fitMerge   = flag.Bool("merge", true, "Merge clusters whose fits coincide on the supporting plane")
	output     = flag.String("out", "fit-plot.png", "Output PNG path")
)

// clusterPalette cycles across input clusters.
var clusterPalette = []color.RGBA{
	{R: 31, G: 119, B: 180, A: 255},
	{R: 255, G: 127, B: 14, A: 255},
	{R: 44, G: 160, B: 44, A: 255},
	{R: 148, G: 103, B: 189, A: 255},
	{R: 140, G: 86, B: 75, A: 255},
	{R: 127, G: 127, B: 127, A: 255},
}

func main() {
	flag.Parse()

	if *clustersIn == "" {
		log.Fatal("missing required -clusters flag")
	}

	clusters, err := loadClusters(*clustersIn)
	if err != nil {
		log.Fatalf("failed to load clusters: %v", err)
	}

	store, err := registry.NewStore(*modelsDB)
	if err != nil {
		log.Fatalf("failed to open model database %s: %v", *modelsDB, err)
	}
	defer store.Close()

	reg := registry.NewRegistry(0)
	if _, err := store.LoadInto(reg); err != nil {
		log.Fatalf("failed to load models: %v", err)
	}

	recognizer := tabletop.NewRecognizer(fit.NewExhaustiveFitter(reg, fit.DefaultFitConfig()))
	results := recognizer.ObjectDetection(clusters, *cutoff, *fitMerge)

	if err := renderPlot(clusters, results, *output); err != nil {
		log.Fatalf("failed to render plot: %v", err)
	}
	log.Printf("wrote %s (%d clusters, %d detections)", *output, len(clusters), len(results))
}

// renderPlot draws cluster points color-cycled per cluster and marks each
// detection's fitted position with a labeled pyramid glyph.
func renderPlot(clusters []tabletop.Cluster, results []tabletop.TabletopResult, path string) error {
	p := plot.New()
	p.Title.Text = "Tabletop fits (top-down)"
	p.X.Label.Text = "X (m)"
	p.Y.Label.Text = "Y (m)"

	for i, cluster := range clusters {
		if len(cluster) == 0 {
			continue
		}
		xys := make(plotter.XYs, len(cluster))
		for j, pt := range cluster {
			xys[j].X = pt.X
			xys[j].Y = pt.Y
		}
		scatter, err := plotter.NewScatter(xys)
		if err != nil {
			return err
		}
		scatter.GlyphStyle.Color = clusterPalette[i%len(clusterPalette)]
		scatter.GlyphStyle.Radius = vg.Points(1.5)
		p.Add(scatter)
	}

	for _, res := range results {
		xy := plotter.XYs{{X: res.Pose.Position.X, Y: res.Pose.Position.Y}}
		marker, err := plotter.NewScatter(xy)
		if err != nil {
			return err
		}
		marker.GlyphStyle.Color = color.RGBA{R: 214, G: 39, B: 40, A: 255}
		marker.GlyphStyle.Radius = vg.Points(5)
		marker.GlyphStyle.Shape = draw.PyramidGlyph{}
		p.Add(marker)
		p.Legend.Add(fmt.Sprintf("model %d (%.2f)", res.ModelID, res.Confidence), marker)
	}

	return p.Save(8*vg.Inch, 8*vg.Inch, path)
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
		for j, pt := range points {
			cluster[j] = tabletop.Point{X: pt[0], Y: pt[1], Z: pt[2]}
		}
		clusters[i] = cluster
	}
	return clusters, nil
}
