package vj

import "math"

// FeatureResponse is a feature value computed over a window, tagged with the
// feature type and the key of the bucket holding its trained counterparts.
type FeatureResponse struct {
	Type  FeatureType
	Key   string
	Value float64
}

// FeatureExtractor computes the feature responses of a window.
type FeatureExtractor interface {
	Responses(w Window) []FeatureResponse
}

// SimilarityFunc returns a similarity in the [0, 1] range between a response
// and the trained responses sharing its key.
type SimilarityFunc func(resp FeatureResponse, trained []FeatureResponse) float64

// HaarExtractor extracts the responses of a fixed Haar feature set.
type HaarExtractor struct {
	Features []HaarFeature
}

// Responses implements the FeatureExtractor interface.
func (he *HaarExtractor) Responses(w Window) []FeatureResponse {
	out := make([]FeatureResponse, 0, len(he.Features))
	for _, f := range he.Features {
		out = append(out, FeatureResponse{
			Type:  f.Type,
			Key:   f.Key(),
			Value: f.Value(w),
		})
	}
	return out
}

// TrainedModel holds the trained feature responses grouped by feature key.
// It is owned by whoever builds or loads it and passed explicitly to the voting stages.
type TrainedModel struct {
	Buckets map[string][]FeatureResponse
}

// BuildTrainedModel collects the feature responses of the positive samples.
func BuildTrainedModel(extractor FeatureExtractor, positives []*Sample) *TrainedModel {
	tm := &TrainedModel{Buckets: make(map[string][]FeatureResponse)}
	for _, s := range positives {
		for _, resp := range extractor.Responses(s.Window) {
			tm.Buckets[resp.Key] = append(tm.Buckets[resp.Key], resp)
		}
	}
	return tm
}

// Bucket returns the trained responses recorded under the key.
func (tm *TrainedModel) Bucket(key string) []FeatureResponse {
	if tm == nil {
		return nil
	}
	return tm.Buckets[key]
}

// AverageSimilarity returns the mean relative closeness between the response
// value and the trained values. An empty bucket has zero similarity.
func AverageSimilarity(resp FeatureResponse, trained []FeatureResponse) float64 {
	if len(trained) == 0 {
		return 0
	}
	var sum float64
	for _, t := range trained {
		denom := math.Abs(resp.Value) + math.Abs(t.Value)
		if denom == 0 {
			sum += 1
			continue
		}
		sum += 1 - math.Min(1, math.Abs(resp.Value-t.Value)/denom)
	}
	return sum / float64(len(trained))
}

// VotingRule is the alternate acceptance policy: every recognized feature
// response votes for or against the window depending on its similarity to the
// trained model, and the window is accepted when the ratio of agreeing votes
// exceeds FinalThreshold.
type VotingRule struct {
	Model               *TrainedModel
	Extractor           FeatureExtractor
	Similarity          SimilarityFunc
	SimilarityThreshold float64
	FinalThreshold      float64
}

// Accept reports whether the window passes the voting rule.
func (vr *VotingRule) Accept(w Window) bool {
	if vr == nil || vr.Extractor == nil {
		return false
	}
	similarity := vr.Similarity
	if similarity == nil {
		similarity = AverageSimilarity
	}

	var positive, negative int
	for _, resp := range vr.Extractor.Responses(w) {
		// Only the two edge feature types take part in the vote.
		if resp.Type != EdgeHorizontal && resp.Type != EdgeVertical {
			continue
		}
		if similarity(resp, vr.Model.Bucket(resp.Key)) > vr.SimilarityThreshold {
			positive++
		} else {
			negative++
		}
	}
	if positive+negative == 0 {
		return false
	}
	return float64(positive)/float64(positive+negative) > vr.FinalThreshold
}
