package resolver

import "server/internal/domain"

// qualityLevel maps the convenience quality scale onto diffusion sampling
// parameters.
type qualityLevel struct {
	steps    int
	guidance float64
}

var qualityLevels = map[int]qualityLevel{
	1: {steps: 15, guidance: 2.5},
	2: {steps: 25, guidance: 3.0},
	3: {steps: 30, guidance: 3.5},
	4: {steps: 35, guidance: 4.0},
	5: {steps: 50, guidance: 5.0},
}

const defaultQualityLevel = 3

// applyQualityMapping translates a single `quality` integer (1-5) into a
// (num_inference_steps, guidance) pair and removes the `quality` field.
// Out-of-range values fall back to level 3. Documents without a numeric
// quality field pass through untouched.
func applyQualityMapping(doc domain.ParamDoc) {
	raw, ok := doc.Number("quality")
	if !ok {
		return
	}
	level := int(raw)
	mapped, ok := qualityLevels[level]
	if !ok {
		mapped = qualityLevels[defaultQualityLevel]
	}
	doc["num_inference_steps"] = mapped.steps
	doc["guidance"] = mapped.guidance
	delete(doc, "quality")
}
