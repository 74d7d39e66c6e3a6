package vj

// Classifier is implemented by everything able to tell whether a window contains a face.
type Classifier interface {
	IsFace(w Window) bool
}

// WeakClassifier is a single feature threshold rule with a learned vote weight.
type WeakClassifier struct {
	Feature   HaarFeature `json:"feature"`
	Threshold float64     `json:"threshold"`
	Polarity  int         `json:"polarity"`
	Alpha     float64     `json:"alpha"`
}

// Vote returns the weighted vote of the weak classifier: Alpha if the polarized
// feature response falls under the polarized threshold, zero otherwise.
func (wc WeakClassifier) Vote(w Window) float64 {
	p := float64(wc.Polarity)
	if p*wc.Feature.Value(w) < p*wc.Threshold {
		return wc.Alpha
	}
	return 0
}

// AcceptMode selects the acceptance policy of a stage.
type AcceptMode int

const (
	// AcceptWeightedSum accepts a window when the weighted vote sum reaches the stage threshold.
	AcceptWeightedSum AcceptMode = iota
	// AcceptVoting accepts a window when the ratio of features similar to the
	// trained model exceeds the final threshold.
	AcceptVoting
)

// Stage is one layer of the cascade: a boosted ensemble of weak classifiers and an acceptance threshold.
type Stage struct {
	Classifiers []WeakClassifier
	Threshold   float64
	Mode        AcceptMode
	Voting      *VotingRule
}

// NewStage creates a weighted sum stage.
func NewStage(classifiers []WeakClassifier, threshold float64) *Stage {
	return &Stage{
		Classifiers: classifiers,
		Threshold:   threshold,
		Mode:        AcceptWeightedSum,
	}
}

// NewVotingStage creates a stage using the feature similarity voting policy.
func NewVotingStage(rule *VotingRule) *Stage {
	return &Stage{
		Mode:   AcceptVoting,
		Voting: rule,
	}
}

// Score returns the sum of the weak classifier votes over the window.
func (s *Stage) Score(w Window) float64 {
	var sum float64
	for _, wc := range s.Classifiers {
		sum += wc.Vote(w)
	}
	return sum
}

// IsFace reports whether the window passes the stage.
func (s *Stage) IsFace(w Window) bool {
	if s.Mode == AcceptVoting {
		return s.Voting.Accept(w)
	}
	return s.Score(w) >= s.Threshold
}

// SetThreshold overwrites the acceptance threshold.
func (s *Stage) SetThreshold(t float64) {
	s.Threshold = t
}

// WithThreshold returns a copy of the stage using a different acceptance threshold.
// The weak classifiers are shared with the original stage.
func (s *Stage) WithThreshold(t float64) *Stage {
	cp := *s
	cp.Threshold = t
	return &cp
}
