// Package tabletop recognizes rigid object instances inside pre-segmented
// point-cloud clusters.
//
// Responsibilities: per-cluster model fitting fan-out, proximity-based
// merging of clusters that upstream segmentation split apart, and assembly
// of the final confidence-filtered result list.
// Key types: Recognizer, Cluster, ModelFitInfo, TabletopResult.
//
// Segmentation, sensor I/O, and transport belong to the surrounding
// pipeline; this package starts at clusters and ends at results.
package tabletop
