package vj

import (
	"encoding/json"
	"io"

	"github.com/pkg/errors"
)

// StageRecord is the serialized form of a stage.
type StageRecord struct {
	Threshold   float64          `json:"threshold"`
	Classifiers []WeakClassifier `json:"classifiers"`
}

// CascadeRecord is the serialized form of a cascade.
type CascadeRecord struct {
	StageCount *int          `json:"stage#"`
	Stages     []StageRecord `json:"stages"`
}

// Encode returns the serializable record of the stage.
func (s *Stage) Encode() (StageRecord, error) {
	if s.Mode == AcceptVoting {
		return StageRecord{}, ErrVotingStageEncode
	}
	return StageRecord{
		Threshold:   s.Threshold,
		Classifiers: append([]WeakClassifier(nil), s.Classifiers...),
	}, nil
}

// DecodeStage rebuilds a weighted sum stage from its record.
func DecodeStage(rec StageRecord) (*Stage, error) {
	if len(rec.Classifiers) == 0 {
		return nil, ErrEmptyStage
	}
	for i, wc := range rec.Classifiers {
		if err := validateClassifier(wc); err != nil {
			return nil, errors.Wrapf(err, "classifier %d", i)
		}
	}
	return NewStage(append([]WeakClassifier(nil), rec.Classifiers...), rec.Threshold), nil
}

// validateClassifier checks that the weak classifier can vote: a known feature
// type placed inside the base window and a polarity of ±1.
func validateClassifier(wc WeakClassifier) error {
	f := wc.Feature
	nx, ny := f.Type.blocks()
	switch {
	case nx == 0:
		return errors.Wrapf(ErrInvalidClassifier, "unknown feature type %d", f.Type)
	case wc.Polarity != 1 && wc.Polarity != -1:
		return errors.Wrapf(ErrInvalidClassifier, "polarity %d", wc.Polarity)
	case f.Row < 0 || f.Col < 0 || f.Width < nx || f.Height < ny ||
		f.Row+f.Height > BaseSize || f.Col+f.Width > BaseSize:
		return errors.Wrapf(ErrInvalidClassifier, "feature %s outside the %dx%d window", f.Key(), BaseSize, BaseSize)
	}
	return nil
}

// Encode returns the serializable record of the cascade. An empty cascade
// accepts every window, so it is refused.
func (c *Cascade) Encode() (CascadeRecord, error) {
	n := len(c.stages)
	if n == 0 {
		return CascadeRecord{}, ErrMissingStages
	}
	rec := CascadeRecord{
		StageCount: &n,
		Stages:     make([]StageRecord, 0, n),
	}
	for i, s := range c.stages {
		sr, err := s.Encode()
		if err != nil {
			return CascadeRecord{}, errors.Wrapf(err, "stage %d", i)
		}
		rec.Stages = append(rec.Stages, sr)
	}
	return rec, nil
}

// DecodeCascade rebuilds a cascade from its record. A record without stage
// data is rejected instead of producing an empty cascade.
func DecodeCascade(rec CascadeRecord) (*Cascade, error) {
	if len(rec.Stages) == 0 {
		return nil, ErrMissingStages
	}
	if rec.StageCount != nil && *rec.StageCount != len(rec.Stages) {
		return nil, errors.Wrapf(ErrStageCount, "declared %d, found %d", *rec.StageCount, len(rec.Stages))
	}
	c := &Cascade{}
	for i, sr := range rec.Stages {
		s, err := DecodeStage(sr)
		if err != nil {
			return nil, errors.Wrapf(err, "stage %d", i)
		}
		c.Add(s)
	}
	return c, nil
}

// WriteCascade encodes the cascade as JSON into the writer.
func WriteCascade(w io.Writer, c *Cascade) error {
	rec, err := c.Encode()
	if err != nil {
		return err
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return errors.Wrap(enc.Encode(rec), "encoding cascade")
}

// ReadCascade decodes a JSON encoded cascade from the reader.
func ReadCascade(r io.Reader) (*Cascade, error) {
	var rec CascadeRecord
	if err := json.NewDecoder(r).Decode(&rec); err != nil {
		return nil, errors.Wrap(err, "decoding cascade")
	}
	return DecodeCascade(rec)
}
