package location

import (
	"fmt"
	"time"

	"backend-recordpath/internal/shared/geo"
)

type PermissionStatus string

const (
	PermissionNotDetermined PermissionStatus = "not_determined"
	PermissionAuthorized    PermissionStatus = "authorized"
	PermissionDenied        PermissionStatus = "denied"
	PermissionRestricted    PermissionStatus = "restricted"
)

// Authorized reports whether tracking may run under this status.
func (p PermissionStatus) Authorized() bool {
	return p == PermissionAuthorized
}

// Revoked reports whether the user actively withdrew access.
func (p PermissionStatus) Revoked() bool {
	return p == PermissionDenied || p == PermissionRestricted
}

func ParsePermission(s string) (PermissionStatus, error) {
	switch p := PermissionStatus(s); p {
	case PermissionNotDetermined, PermissionAuthorized, PermissionDenied, PermissionRestricted:
		return p, nil
	}
	return "", fmt.Errorf("unknown permission status %q", s)
}

// Sample is a raw reading from a location provider. Speed is negative when
// the sensor could not measure it; a negative accuracy marks an invalid fix.
type Sample struct {
	geo.Coordinate
	Timestamp time.Time `json:"timestamp"`
	AltitudeM float64   `json:"altitude_m"`
	SpeedMps  float64   `json:"speed_mps"`
	AccuracyM float64   `json:"accuracy_m"`
}

// Valid rejects readings no filter should ever see.
func (s Sample) Valid() bool {
	return s.Coordinate.Valid() && s.AccuracyM >= 0 && !s.Timestamp.IsZero()
}

// Update is one item of a provider stream: either a sample or a permission change.
type Update struct {
	Provider   string            `json:"provider,omitempty"`
	Sample     *Sample           `json:"sample,omitempty"`
	Permission *PermissionStatus `json:"permission,omitempty"`
}

func SampleUpdate(provider string, s Sample) Update {
	return Update{Provider: provider, Sample: &s}
}

func PermissionUpdate(provider string, p PermissionStatus) Update {
	return Update{Provider: provider, Permission: &p}
}
