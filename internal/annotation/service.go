package annotation

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"backend-recordpath/internal/db"
	"backend-recordpath/internal/shared/geo"
	"backend-recordpath/internal/tracking"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

var (
	ErrNotFound     = errors.New("journey not found")
	ErrInvalidPhoto = errors.New("invalid photo")
)

// Service edits journeys. The open journey is changed through its engine;
// archived journeys are changed in postgres.
type Service struct {
	db       db.Querier
	registry *tracking.Registry
}

func NewService(q db.Querier, reg *tracking.Registry) *Service {
	return &Service{db: q, registry: reg}
}

func (s *Service) openEngine(deviceID, journeyID string) (*tracking.Engine, bool) {
	if s.registry == nil {
		return nil, false
	}
	session, ok := s.registry.Lookup(deviceID)
	if !ok {
		return nil, false
	}
	if id, open := session.Engine.OpenJourneyID(); !open || id != journeyID {
		return nil, false
	}
	return session.Engine, true
}

func (s *Service) UpdateJourney(ctx context.Context, deviceID, journeyID string, a tracking.Annotation) (JourneyInfo, error) {
	if engine, ok := s.openEngine(deviceID, journeyID); ok {
		j, err := engine.Annotate(a)
		if err == nil {
			return infoFrom(j), nil
		}
		if !errors.Is(err, tracking.ErrInvalidStateTransition) {
			return JourneyInfo{}, err
		}
		// finalized in between; the archived row takes the edit
	}
	if s.db == nil {
		return JourneyInfo{}, ErrNotFound
	}

	var title string
	if a.Title != nil {
		title = strings.TrimSpace(*a.Title)
	}
	var notes any
	if a.Notes != nil {
		notes = *a.Notes
	}
	info := JourneyInfo{ID: journeyID}
	row := s.db.QueryRow(ctx, `
		UPDATE journeys
		SET title = COALESCE(NULLIF($3, ''), title), notes = COALESCE($4, notes), updated_at = now()
		WHERE id=$1 AND device_id=$2
		RETURNING title, notes
	`, journeyID, deviceID, title, notes)
	if err := row.Scan(&info.Title, &info.Notes); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return JourneyInfo{}, ErrNotFound
		}
		return JourneyInfo{}, fmt.Errorf("update journey %s: %w", journeyID, err)
	}
	return info, nil
}

func (s *Service) AddPhoto(ctx context.Context, deviceID, journeyID string, req PhotoRequest) (tracking.Photo, error) {
	photo, err := photoFrom(req)
	if err != nil {
		return tracking.Photo{}, err
	}

	if engine, ok := s.openEngine(deviceID, journeyID); ok {
		p, err := engine.AttachPhoto(photo)
		if err == nil {
			return p, nil
		}
		if !errors.Is(err, tracking.ErrInvalidStateTransition) {
			return tracking.Photo{}, err
		}
	}
	if s.db == nil {
		return tracking.Photo{}, ErrNotFound
	}

	photo.ID = uuid.NewString()
	if photo.Timestamp.IsZero() {
		photo.Timestamp = time.Now().UTC()
	}
	var lat, lng any
	if photo.Location != nil {
		lat, lng = photo.Location.Lat, photo.Location.Lng
	}
	tag, err := s.db.Exec(ctx, `
		INSERT INTO journey_photos (id, journey_id, object_key, caption, lat, lng, taken_at)
		SELECT $1,$2,$3,$4,$5,$6,$7
		WHERE EXISTS (SELECT 1 FROM journeys WHERE id=$2 AND device_id=$8)
	`, photo.ID, journeyID, photo.ObjectKey, photo.Caption, lat, lng, photo.Timestamp, deviceID)
	if err != nil {
		return tracking.Photo{}, fmt.Errorf("insert photo for %s: %w", journeyID, err)
	}
	if tag.RowsAffected() == 0 {
		return tracking.Photo{}, ErrNotFound
	}
	return photo, nil
}

func photoFrom(req PhotoRequest) (tracking.Photo, error) {
	key := strings.TrimSpace(req.ObjectKey)
	if key == "" {
		return tracking.Photo{}, fmt.Errorf("%w: object_key required", ErrInvalidPhoto)
	}
	photo := tracking.Photo{ObjectKey: key, Caption: req.Caption}
	if req.TakenAt != nil {
		photo.Timestamp = req.TakenAt.UTC()
	}
	switch {
	case req.Lat != nil && req.Lng != nil:
		c := geo.Coordinate{Lat: *req.Lat, Lng: *req.Lng}
		if !c.Valid() {
			return tracking.Photo{}, fmt.Errorf("%w: coordinate out of range", ErrInvalidPhoto)
		}
		photo.Location = &c
	case req.Lat != nil || req.Lng != nil:
		return tracking.Photo{}, fmt.Errorf("%w: lat and lng go together", ErrInvalidPhoto)
	}
	return photo, nil
}
