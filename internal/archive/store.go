package archive

import (
	"context"
	"fmt"
	"log"

	"backend-recordpath/internal/db"

	"github.com/jackc/pgx/v5"
)

var pointColumns = []string{
	"journey_id", "segment_id", "seq", "lat", "lng", "recorded_at", "altitude_m", "speed_mps", "accuracy_m",
}

// Store writes finalized journeys to postgres. It never reads them back.
type Store struct {
	db db.TxQuerier
}

func NewStore(q db.TxQuerier) *Store {
	return &Store{db: q}
}

// Archive writes the journey with everything recorded on it in one
// transaction. A journey that is already stored is left untouched.
func (s *Store) Archive(ctx context.Context, rec Record) (err error) {
	j := rec.Journey
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin archive tx: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
		}
	}()

	summary := j.Summary()
	tag, err := tx.Exec(ctx, `
		INSERT INTO journeys (id, device_id, title, notes, start_date, end_date, distance_m, duration_sec, moving_sec, finalize_reason)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
		ON CONFLICT (id) DO NOTHING
	`, j.ID, rec.DeviceID, j.Title, j.Notes, j.StartDate, j.EndDate, summary.DistanceM, summary.DurationSec, summary.MovingSec, rec.Reason)
	if err != nil {
		return fmt.Errorf("insert journey %s: %w", j.ID, err)
	}
	if tag.RowsAffected() == 0 {
		log.Printf("archive: journey %s already stored", j.ID)
		return tx.Rollback(ctx)
	}

	var rows [][]any
	for i, seg := range j.Segments {
		_, err = tx.Exec(ctx, `
			INSERT INTO journey_segments (id, journey_id, seq, start_time, end_time, distance_m)
			VALUES ($1,$2,$3,$4,$5,$6)
		`, seg.ID, j.ID, i, seg.StartTime, seg.EndTime, seg.Distance())
		if err != nil {
			return fmt.Errorf("insert segment %s: %w", seg.ID, err)
		}
		for k, p := range seg.Points {
			rows = append(rows, []any{j.ID, seg.ID, k, p.Lat, p.Lng, p.Timestamp, p.AltitudeM, p.SpeedMps, p.AccuracyM})
		}
	}

	if len(rows) > 0 {
		if _, err = tx.CopyFrom(ctx, pgx.Identifier{"journey_points"}, pointColumns, pgx.CopyFromRows(rows)); err != nil {
			return fmt.Errorf("copy points for %s: %w", j.ID, err)
		}
	}

	for _, p := range j.Places {
		_, err = tx.Exec(ctx, `
			INSERT INTO journey_places (journey_id, lat, lng, name, city, country, country_code, resolved_at)
			VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
		`, j.ID, p.Lat, p.Lng, p.Name, p.City, p.Country, p.CountryCode, p.ResolvedAt)
		if err != nil {
			return fmt.Errorf("insert place for %s: %w", j.ID, err)
		}
	}

	for _, p := range j.Photos {
		var lat, lng any
		if p.Location != nil {
			lat, lng = p.Location.Lat, p.Location.Lng
		}
		_, err = tx.Exec(ctx, `
			INSERT INTO journey_photos (id, journey_id, object_key, caption, lat, lng, taken_at)
			VALUES ($1,$2,$3,$4,$5,$6,$7)
		`, p.ID, j.ID, p.ObjectKey, p.Caption, lat, lng, p.Timestamp)
		if err != nil {
			return fmt.Errorf("insert photo %s: %w", p.ID, err)
		}
	}

	if err = tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit journey %s: %w", j.ID, err)
	}
	log.Printf("archive: stored journey %s (%d segments, %d points)", j.ID, len(j.Segments), len(rows))
	return nil
}
