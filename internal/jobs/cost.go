package jobs

import (
	"math"

	"server/internal/domain"
)

// durationFromParams reads the resolved video duration from the merged
// parameter document. Zero means neither field was present; the persisted
// job records this value as-is.
func durationFromParams(params domain.ParamDoc) int {
	if v, ok := params.Number("max_output_length_seconds"); ok {
		return int(v)
	}
	if v, ok := params.Number("duration"); ok {
		return int(v)
	}
	return 0
}

// computeCost prices a job from the effective pricing. Image jobs cost a
// fixed cost-per-unit. Video jobs cost max(minCost, ceil(duration x
// credits-per-second)) when a per-second rate exists, else a flat
// credits-per-video; a missing duration is floored to one second for the
// cost computation only. Absent or non-positive pricing is a configuration
// error surfaced as a validation failure so no job ever dispatches for free.
func computeCost(kind domain.JobKind, modelSlug string, pricing domain.Pricing, params domain.ParamDoc) (int, error) {
	switch kind {
	case domain.JobKindVideo:
		if pricing.CreditsPerSecond > 0 {
			seconds := durationFromParams(params)
			if seconds < 1 {
				seconds = 1
			}
			cost := int(math.Ceil(float64(seconds) * pricing.CreditsPerSecond))
			if pricing.MinCost > cost {
				cost = pricing.MinCost
			}
			return cost, nil
		}
		if pricing.CreditsPerVideo > 0 {
			return pricing.CreditsPerVideo, nil
		}
	default:
		if pricing.CostPerUnit > 0 {
			return pricing.CostPerUnit, nil
		}
	}
	return 0, domain.NewValidationError("pricing", "model %q has no usable pricing configured", modelSlug)
}
