package normalize

import (
	"math"

	"github.com/sitescope-io/cctv-analytics/internal/chartspec"
)

// SurgeDetector flags points whose value crosses an anomaly threshold for a
// measure's series. Kept behind an interface so the mean/stddev
// implementation can be swapped for a z-score or seasonal detector later
// without touching the normaliser.
type SurgeDetector interface {
	Detect(measureID string, points []chartspec.Point) []chartspec.Surge
}

// MeanStdDevDetector flags any point at or above mean+stddev (or 1.1x mean
// when the series has zero variance), mirroring engine.py's
// _detect_surges and the teacher's AnomalyDetector.Check z-score shape.
type MeanStdDevDetector struct{}

func (MeanStdDevDetector) Detect(measureID string, points []chartspec.Point) []chartspec.Surge {
	var values []float64
	for _, p := range points {
		if p.Y != nil {
			values = append(values, *p.Y)
		}
	}
	if len(values) < 2 {
		return nil
	}

	var sum float64
	for _, v := range values {
		sum += v
	}
	mean := sum / float64(len(values))

	var variance float64
	for _, v := range values {
		diff := v - mean
		variance += diff * diff
	}
	variance /= float64(len(values))
	stddev := math.Sqrt(variance)

	threshold := mean + stddev
	if stddev == 0 {
		threshold = mean * 1.1
	}

	var surges []chartspec.Surge
	for _, p := range points {
		if p.Y == nil {
			continue
		}
		if *p.Y >= threshold {
			surges = append(surges, chartspec.Surge{Measure: measureID, X: p.X, Value: *p.Y})
		}
	}
	return surges
}
