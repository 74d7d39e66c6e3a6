package vj

// Rates holds the detection and false positive rates measured over a labeled sample set.
type Rates struct {
	DetectionRate     float64
	FalsePositiveRate float64
}

// Cascade is an ordered sequence of stages. A window is accepted only if every stage accepts it.
// The order of the stages is the order of addition and it is never changed.
type Cascade struct {
	stages []*Stage
}

// NewCascade creates a cascade from the given stages.
func NewCascade(stages ...*Stage) *Cascade {
	return &Cascade{stages: append([]*Stage(nil), stages...)}
}

// Stages returns the cascade stages in evaluation order.
func (c *Cascade) Stages() []*Stage {
	return append([]*Stage(nil), c.stages...)
}

// Len returns the number of stages.
func (c *Cascade) Len() int {
	return len(c.stages)
}

// Add appends a stage to the end of the cascade.
func (c *Cascade) Add(s *Stage) {
	c.stages = append(c.stages, s)
}

// IsFace runs the window through the stages and stops at the first rejection.
func (c *Cascade) IsFace(w Window) bool {
	for _, s := range c.stages {
		if !s.IsFace(w) {
			return false
		}
	}
	return true
}

// Evaluate measures the rates the cascade would have if the candidate stage
// were appended to it. The cascade itself is left untouched.
func (c *Cascade) Evaluate(candidate *Stage, positives, negatives []*Sample) Rates {
	return Rates{
		DetectionRate:     c.acceptRate(candidate, positives),
		FalsePositiveRate: c.acceptRate(candidate, negatives),
	}
}

// acceptRate returns the fraction of the samples accepted both by the cascade and
// by the candidate stage. The rate of an empty sample set is zero.
func (c *Cascade) acceptRate(candidate *Stage, samples []*Sample) float64 {
	if len(samples) == 0 {
		return 0
	}
	var accepted int
	for _, s := range samples {
		if c.IsFace(s.Window) && candidate.IsFace(s.Window) {
			accepted++
		}
	}
	return float64(accepted) / float64(len(samples))
}

// Misclassified returns the samples the cascade accepts as faces.
// Over a negative set these are the false positives.
func (c *Cascade) Misclassified(samples []*Sample) []*Sample {
	var out []*Sample
	for _, s := range samples {
		if c.IsFace(s.Window) {
			out = append(out, s)
		}
	}
	return out
}
