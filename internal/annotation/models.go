package annotation

import (
	"time"

	"backend-recordpath/internal/tracking"
)

// JourneyInfo is the editable part of a journey after an update.
type JourneyInfo struct {
	ID        string `json:"id"`
	Title     string `json:"title"`
	Notes     string `json:"notes"`
	Recording bool   `json:"recording"`
}

type PhotoRequest struct {
	ObjectKey string     `json:"object_key"`
	Caption   string     `json:"caption"`
	Lat       *float64   `json:"lat"`
	Lng       *float64   `json:"lng"`
	TakenAt   *time.Time `json:"taken_at"`
}

func infoFrom(j tracking.Journey) JourneyInfo {
	return JourneyInfo{ID: j.ID, Title: j.Title, Notes: j.Notes, Recording: true}
}
