package archive

import (
	"context"

	"backend-recordpath/internal/tracking"
)

// Record is a finalized journey on its way downstream.
type Record struct {
	DeviceID string           `json:"device_id"`
	Reason   string           `json:"reason"`
	Journey  tracking.Journey `json:"journey"`
}

// Sink receives finalized journeys. Implementations must tolerate the same
// record being delivered twice.
type Sink interface {
	Archive(ctx context.Context, rec Record) error
}

type SinkFunc func(ctx context.Context, rec Record) error

func (f SinkFunc) Archive(ctx context.Context, rec Record) error {
	return f(ctx, rec)
}
