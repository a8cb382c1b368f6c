package tracking

import "strings"

// Annotation edits the open journey. Nil fields are left unchanged.
type Annotation struct {
	Title *string `json:"title,omitempty"`
	Notes *string `json:"notes,omitempty"`
}

// Annotate applies a to the open journey.
func (e *Engine) Annotate(a Annotation) (Journey, error) {
	e.mu.Lock()
	if e.state != StateRecording && e.state != StatePaused {
		err := e.reject("annotate")
		e.mu.Unlock()
		return Journey{}, err
	}
	if a.Title != nil {
		if title := strings.TrimSpace(*a.Title); title != "" {
			e.journey.Title = title
		}
	}
	if a.Notes != nil {
		e.journey.Notes = *a.Notes
	}
	snapshot := e.journey.Clone()
	ev := e.event(EventJourneyUpdated)
	e.mu.Unlock()

	e.dispatch([]Event{ev})
	return snapshot, nil
}

// AttachPhoto adds a photo reference to the open journey. The photo gets
// an ID and, when missing, the current time.
func (e *Engine) AttachPhoto(p Photo) (Photo, error) {
	e.mu.Lock()
	if e.state != StateRecording && e.state != StatePaused {
		err := e.reject("attach photo")
		e.mu.Unlock()
		return Photo{}, err
	}
	if p.ID == "" {
		p.ID = e.newID()
	}
	if p.Timestamp.IsZero() {
		p.Timestamp = e.now()
	}
	e.journey.Photos = append(e.journey.Photos, p)
	ev := e.event(EventJourneyUpdated)
	e.mu.Unlock()

	e.dispatch([]Event{ev})
	return p, nil
}

// OpenJourneyID returns the ID of the journey being recorded, if any.
func (e *Engine) OpenJourneyID() (string, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.journey == nil {
		return "", false
	}
	return e.journey.ID, true
}
