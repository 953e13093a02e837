package classifier

import (
	"context"
	"errors"
)

// RawPrediction is a single (tag, probability) pair returned by an external
// image classifier. One request may yield any number of entries, and tags are
// not guaranteed unique across entries or providers.
type RawPrediction struct {
	Tag         string
	Probability float64
}

// Client exposes the subset of an external classifier used by the
// classification flow.
type Client interface {
	// Name identifies the provider in logs and failure reasons.
	Name() string
	// Classify submits raw image bytes and returns the provider's
	// predictions. An error means the provider produced nothing usable.
	Classify(ctx context.Context, image []byte) ([]RawPrediction, error)
}

// ErrUnconfigured is returned when a provider is missing the credentials or
// endpoint it needs to serve requests.
var ErrUnconfigured = errors.New("classifier provider is not configured")

// FailureReason maps a provider error to the short machine-readable string
// surfaced in fallback responses.
func FailureReason(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrUnconfigured):
		return "classifier_unconfigured"
	case errors.Is(err, context.DeadlineExceeded):
		return "classifier_timeout"
	case errors.Is(err, context.Canceled):
		return "request_canceled"
	default:
		return "classifier_unavailable"
	}
}
