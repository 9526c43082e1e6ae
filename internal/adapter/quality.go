package adapter

import (
	"fmt"
	"log/slog"

	sferrors "github.com/specfusion/specfusion/internal/errors"
)

// Quality gate thresholds: a catalog shrinking below 80% of the previous
// run looks like silent data loss; growing past 150% looks like a dedup
// failure but is allowed through with a warning.
const (
	qualityShrinkRatio = 0.8
	qualityGrowRatio   = 1.5
)

// CheckQualityGate is the default per-run catalog sanity check, applied by
// the sync runner for adapters that do not carry their own.
// A rejection is fatal for the run and suppresses document deletions.
func CheckQualityGate(currentCount, lastCount int) error {
	if lastCount <= 0 {
		return nil // first run, nothing to compare against
	}

	ratio := float64(currentCount) / float64(lastCount)
	if ratio < qualityShrinkRatio {
		return sferrors.QualityGateError(fmt.Sprintf(
			"catalog shrank to %d from %d (%.0f%%), refusing deletions",
			currentCount, lastCount, ratio*100))
	}
	if ratio > qualityGrowRatio {
		slog.Warn("quality_gate_growth",
			slog.Int("current", currentCount),
			slog.Int("last", lastCount),
			slog.String("hint", "possible dedup failure"))
	}
	return nil
}
