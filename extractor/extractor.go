package extractor

import (
	"fmt"

	"github.com/rekat/price-server/fetcher"
	"github.com/rekat/price-server/models"
	"github.com/rekat/price-server/target"
)

// Extractor turns a raw upstream reply into the reply sent to the caller.
type Extractor interface {
	// Mode reports which variant this is.
	Mode() target.Mode

	// Extract transforms raw. Errors are *models.PriceError values.
	Extract(raw *fetcher.RawResponse) (models.Result, error)
}

// New returns the extractor variant selected by t.Mode.
func New(t target.Target) (Extractor, error) {
	switch t.Mode {
	case target.ModePassthrough:
		return Passthrough{}, nil
	case target.ModeStructured:
		return NewStructured(t)
	default:
		return nil, fmt.Errorf("extractor: unknown mode %q", t.Mode)
	}
}

// Passthrough hands the upstream body back unmodified.
type Passthrough struct{}

func (Passthrough) Mode() target.Mode { return target.ModePassthrough }

// Extract wraps raw as-is. Only a server-error-class status is treated
// as the upstream being unavailable.
func (Passthrough) Extract(raw *fetcher.RawResponse) (models.Result, error) {
	if raw.StatusCode >= 500 {
		return nil, models.NewUpstreamError(raw.StatusCode)
	}
	return &models.PassthroughResult{
		Success: true,
		Status:  raw.StatusCode,
		Data:    raw.Body,
	}, nil
}
