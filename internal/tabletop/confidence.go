package tabletop

// Confidence maps a raw fit score in [0, 1] to the user-facing confidence:
//
//	confidence = 1 - (1 - score)^2
//
// The transform is monotonic with Confidence(0) = 0 and Confidence(1) = 1.
// It is concave, so moderate-quality fits still read as reasonably
// confident while poor fits are pushed further down.
func Confidence(score float64) float64 {
	return 1.0 - (1.0-score)*(1.0-score)
}
