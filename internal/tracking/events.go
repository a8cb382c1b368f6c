package tracking

import (
	"time"

	"backend-recordpath/internal/location"
)

type EventKind string

const (
	EventStateChanged       EventKind = "state_changed"
	EventPointAccepted      EventKind = "point_accepted"
	EventPlaceResolved      EventKind = "place_resolved"
	EventJourneyFinalized   EventKind = "journey_finalized"
	EventPermissionRequired EventKind = "permission_required"
	EventJourneyUpdated     EventKind = "journey_updated"
)

// Finalize reasons carried on EventJourneyFinalized.
const (
	ReasonStopped           = "stopped"
	ReasonPermissionRevoked = "permission_revoked"
	ReasonShutdown          = "shutdown"
)

type Event struct {
	Kind       EventKind                 `json:"kind"`
	State      State                     `json:"state"`
	JourneyID  string                    `json:"journey_id,omitempty"`
	Point      *TrackPoint               `json:"point,omitempty"`
	Place      *Place                    `json:"place,omitempty"`
	Journey    *Journey                  `json:"journey,omitempty"`
	Permission location.PermissionStatus `json:"permission,omitempty"`
	Reason     string                    `json:"reason,omitempty"`
	At         time.Time                 `json:"at"`
}

// Listener receives engine events after the change that caused them has
// been applied. Listeners run on the caller's goroutine and must not block.
type Listener func(Event)
