// Package location defines the provider side of recording: raw samples,
// permission changes and the single serialized stream the engine consumes.
package location

import (
	"context"
	"errors"
)

// ErrClosed is returned when pushing into a closed source.
var ErrClosed = errors.New("location source closed")

// Controller is the part of a provider the engine drives on start/pause.
type Controller interface {
	StartUpdates(ctx context.Context) error
	StopUpdates() error
}

// Source is one provider of location updates. Updates delivers samples and
// permission changes in the order the provider produced them.
type Source interface {
	Controller
	Permission() PermissionStatus
	Updates() <-chan Update
}
