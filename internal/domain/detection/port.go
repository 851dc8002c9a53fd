package detection

import (
	"context"

	"github.com/bryanwahyu/verdant-vision/internal/domain/diagnosis"
)

// Input for the external disease detection flow. Passed through untouched.
type Input struct {
	PhotoDataURI string `json:"photo_data_uri"`
	Description  string `json:"description,omitempty"`
}

// Detector port to the remote inference flow.
// Failures are recognised by their message text, see the Marker constants.
type Detector interface {
	Detect(ctx context.Context, in Input) (*diagnosis.Result, error)
}

// DetectorFunc adapts a function to Detector
type DetectorFunc func(ctx context.Context, in Input) (*diagnosis.Result, error)

func (f DetectorFunc) Detect(ctx context.Context, in Input) (*diagnosis.Result, error) {
	return f(ctx, in)
}
