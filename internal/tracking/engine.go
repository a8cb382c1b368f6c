package tracking

import (
	"context"
	"errors"
	"log"
	"strings"
	"sync"
	"time"

	"backend-recordpath/internal/geocode"
	"backend-recordpath/internal/location"

	"github.com/google/uuid"
)

type State string

const (
	StateIdle      State = "idle"
	StateRecording State = "recording"
	StatePaused    State = "paused"
)

type Config struct {
	Filter          FilterConfig
	GeocodeInterval time.Duration
	GeocodeTimeout  time.Duration
}

func DefaultConfig() Config {
	return Config{
		Filter:          DefaultFilterConfig(),
		GeocodeInterval: 60 * time.Second,
		GeocodeTimeout:  10 * time.Second,
	}
}

type Option func(*Engine)

func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

func WithIDs(newID func() string) Option {
	return func(e *Engine) { e.newID = newID }
}

func WithGateway(g geocode.Gateway) Option {
	return func(e *Engine) { e.gateway = g }
}

// WithController lets the engine start and stop the provider with recording.
func WithController(c location.Controller) Option {
	return func(e *Engine) { e.controller = c }
}

func WithPermission(p location.PermissionStatus) Option {
	return func(e *Engine) { e.permission = p }
}

// Engine records one journey at a time. Every mutating call is serialized
// on mu; the open journey is never shared outside the engine, callers only
// ever see clones.
type Engine struct {
	cfg        Config
	now        func() time.Time
	newID      func() string
	gateway    geocode.Gateway
	controller location.Controller

	mu         sync.Mutex
	state      State
	permission location.PermissionStatus
	journey    *Journey
	filter     *SampleFilter
	geocoded   bool
	lastLookup time.Time

	listenersMu sync.RWMutex
	listeners   map[int]Listener
	nextID      int

	// ctlMu orders provider start/stop calls; updatesOn is what was last
	// applied. Never acquired while mu is held.
	ctlMu     sync.Mutex
	updatesOn bool

	ctx     context.Context
	cancel  context.CancelFunc
	lookups sync.WaitGroup
}

func NewEngine(cfg Config, opts ...Option) *Engine {
	ctx, cancel := context.WithCancel(context.Background())
	e := &Engine{
		cfg:        cfg,
		now:        time.Now,
		newID:      uuid.NewString,
		state:      StateIdle,
		permission: location.PermissionNotDetermined,
		filter:     NewSampleFilter(cfg.Filter),
		listeners:  map[int]Listener{},
		ctx:        ctx,
		cancel:     cancel,
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.cfg.GeocodeTimeout <= 0 {
		e.cfg.GeocodeTimeout = 10 * time.Second
	}
	return e
}

// Subscribe registers l and returns a function removing it.
func (e *Engine) Subscribe(l Listener) func() {
	e.listenersMu.Lock()
	defer e.listenersMu.Unlock()
	id := e.nextID
	e.nextID++
	e.listeners[id] = l
	return func() {
		e.listenersMu.Lock()
		defer e.listenersMu.Unlock()
		delete(e.listeners, id)
	}
}

func (e *Engine) dispatch(events []Event) {
	if len(events) == 0 {
		return
	}
	e.listenersMu.RLock()
	listeners := make([]Listener, 0, len(e.listeners))
	for _, l := range e.listeners {
		listeners = append(listeners, l)
	}
	e.listenersMu.RUnlock()

	for _, ev := range events {
		for _, l := range listeners {
			l(ev)
		}
	}
}

func (e *Engine) State() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

func (e *Engine) Permission() location.PermissionStatus {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.permission
}

// Snapshot returns a copy of the journey being recorded.
func (e *Engine) Snapshot() (Journey, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.journey == nil {
		return Journey{}, false
	}
	return e.journey.Clone(), true
}

func (e *Engine) reject(op string) error {
	err := &TransitionError{Op: op, From: e.state}
	log.Printf("tracking: %v", err)
	return err
}

func (e *Engine) event(kind EventKind) Event {
	ev := Event{Kind: kind, State: e.state, Permission: e.permission, At: e.now()}
	if e.journey != nil {
		ev.JourneyID = e.journey.ID
	}
	return ev
}

// syncController brings the provider in line with the current state. It
// must be called without mu held. Concurrent calls reconcile to the latest
// state, so the provider ends up matching the last transition.
func (e *Engine) syncController() {
	if e.controller == nil {
		return
	}
	e.ctlMu.Lock()
	defer e.ctlMu.Unlock()

	e.mu.Lock()
	want := e.state == StateRecording
	e.mu.Unlock()
	if want == e.updatesOn {
		return
	}

	if want {
		if err := e.controller.StartUpdates(e.ctx); err != nil {
			log.Printf("tracking: start location updates: %v", err)
			return
		}
	} else if err := e.controller.StopUpdates(); err != nil {
		log.Printf("tracking: stop location updates: %v", err)
	}
	e.updatesOn = want
}

// Start opens a new journey with its first segment. An empty title gets a
// dated default.
func (e *Engine) Start(title string) (Journey, error) {
	e.mu.Lock()
	if e.state != StateIdle {
		err := e.reject("start")
		e.mu.Unlock()
		return Journey{}, err
	}
	if !e.permission.Authorized() {
		ev := e.event(EventPermissionRequired)
		e.mu.Unlock()
		e.dispatch([]Event{ev})
		return Journey{}, ErrPermissionRequired
	}

	now := e.now()
	title = strings.TrimSpace(title)
	if title == "" {
		title = "Journey " + now.Format("Jan 2, 2006 15:04")
	}
	e.journey = &Journey{
		ID:        e.newID(),
		Title:     title,
		StartDate: now,
		EndDate:   now,
		Segments:  []Segment{newSegment(e.newID(), now)},
	}
	e.filter.Reset()
	e.geocoded = false
	e.lastLookup = time.Time{}
	e.state = StateRecording

	snapshot := e.journey.Clone()
	events := []Event{e.event(EventStateChanged)}
	e.mu.Unlock()

	log.Printf("tracking: started journey %s %q", snapshot.ID, snapshot.Title)
	e.syncController()
	e.dispatch(events)
	return snapshot, nil
}

// Update feeds one raw sample. It reports whether the sample became a track
// point; filtered samples are not errors.
func (e *Engine) Update(s location.Sample) (TrackPoint, bool, error) {
	e.mu.Lock()
	if e.state != StateRecording {
		err := &TransitionError{Op: "location update", From: e.state}
		e.mu.Unlock()
		return TrackPoint{}, false, err
	}

	seg := e.journey.current()
	if s.Timestamp.Before(seg.StartTime) {
		e.mu.Unlock()
		return TrackPoint{}, false, nil
	}
	p, ok := e.filter.Accept(s)
	if !ok {
		e.mu.Unlock()
		return TrackPoint{}, false, nil
	}
	seg.append(p)

	ev := e.event(EventPointAccepted)
	ev.Point = &p
	if e.shouldGeocode(p.Timestamp) {
		e.geocoded = true
		e.lastLookup = p.Timestamp
		e.lookup(e.journey.ID, p)
	}
	e.mu.Unlock()

	e.dispatch([]Event{ev})
	return p, true, nil
}

func (e *Engine) shouldGeocode(at time.Time) bool {
	if e.gateway == nil {
		return false
	}
	return !e.geocoded || at.Sub(e.lastLookup) >= e.cfg.GeocodeInterval
}

// lookup resolves p off the critical path. The result re-enters through mu
// and is dropped if the journey was finalized in the meantime: a journey
// that has been handed off is never mutated.
func (e *Engine) lookup(journeyID string, p TrackPoint) {
	e.lookups.Add(1)
	go func() {
		defer e.lookups.Done()

		ctx, cancel := context.WithTimeout(e.ctx, e.cfg.GeocodeTimeout)
		defer cancel()

		place, err := e.gateway.Lookup(ctx, p.Coordinate)
		if err != nil {
			log.Printf("tracking: geocode for journey %s failed: %v", journeyID, err)
			return
		}
		if place == nil {
			return
		}
		e.attachPlace(journeyID, Place{Coordinate: p.Coordinate, Place: *place, ResolvedAt: e.now()})
	}()
}

func (e *Engine) attachPlace(journeyID string, place Place) {
	e.mu.Lock()
	if e.journey == nil || e.journey.ID != journeyID {
		e.mu.Unlock()
		log.Printf("tracking: discarding place %q for finalized journey %s", place.Name, journeyID)
		return
	}
	e.journey.Places = append(e.journey.Places, place)
	ev := e.event(EventPlaceResolved)
	ev.Place = &place
	e.mu.Unlock()

	e.dispatch([]Event{ev})
}

func (e *Engine) Pause() error {
	e.mu.Lock()
	if e.state != StateRecording {
		err := e.reject("pause")
		e.mu.Unlock()
		return err
	}
	e.journey.current().close(e.now())
	e.state = StatePaused
	events := []Event{e.event(EventStateChanged)}
	e.mu.Unlock()

	e.syncController()
	e.dispatch(events)
	return nil
}

func (e *Engine) Resume() error {
	e.mu.Lock()
	if e.state != StatePaused {
		err := e.reject("resume")
		e.mu.Unlock()
		return err
	}
	e.journey.Segments = append(e.journey.Segments, newSegment(e.newID(), e.now()))
	e.filter.Reset()
	e.state = StateRecording
	events := []Event{e.event(EventStateChanged)}
	e.mu.Unlock()

	e.syncController()
	e.dispatch(events)
	return nil
}

// Stop finalizes the journey and hands it to listeners and the caller.
func (e *Engine) Stop() (Journey, error) {
	return e.finalize(ReasonStopped)
}

func (e *Engine) finalize(reason string) (Journey, error) {
	e.mu.Lock()
	if e.state != StateRecording && e.state != StatePaused {
		err := e.reject("stop")
		e.mu.Unlock()
		return Journey{}, err
	}
	final, events := e.finalizeLocked(reason)
	e.mu.Unlock()

	e.syncController()
	e.dispatch(events)
	return final, nil
}

func (e *Engine) finalizeLocked(reason string) (Journey, []Event) {
	now := e.now()
	if seg := e.journey.current(); seg != nil {
		seg.close(now)
	}
	end := now
	if last := e.journey.Segments[len(e.journey.Segments)-1].EndTime; last.After(end) {
		end = last
	}
	if end.Before(e.journey.StartDate) {
		end = e.journey.StartDate
	}
	e.journey.EndDate = end

	final := e.journey.Clone()
	e.journey = nil
	e.filter.Reset()
	e.state = StateIdle

	finalized := e.event(EventJourneyFinalized)
	finalized.JourneyID = final.ID
	finalized.Journey = &final
	finalized.Reason = reason

	log.Printf("tracking: finalized journey %s (%s): %d segments, %.0f m", final.ID, reason, len(final.Segments), final.TotalDistance())
	return final, []Event{e.event(EventStateChanged), finalized}
}

// SetPermission records the provider's permission. Losing it while a
// journey is open finalizes that journey rather than discarding it.
func (e *Engine) SetPermission(p location.PermissionStatus) {
	e.mu.Lock()
	if e.permission == p {
		e.mu.Unlock()
		return
	}
	e.permission = p

	var events []Event
	if p.Revoked() && (e.state == StateRecording || e.state == StatePaused) {
		_, events = e.finalizeLocked(ReasonPermissionRevoked)
		events = append(events, e.event(EventPermissionRequired))
	}
	e.mu.Unlock()

	if len(events) > 0 {
		e.syncController()
	}
	e.dispatch(events)
}

// Run applies updates from a single serialized source until ctx is done or
// the source closes.
func (e *Engine) Run(ctx context.Context, src location.Source) error {
	e.SetPermission(src.Permission())
	updates := src.Updates()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case u, ok := <-updates:
			if !ok {
				return nil
			}
			e.apply(u)
		}
	}
}

func (e *Engine) apply(u location.Update) {
	if u.Permission != nil {
		e.SetPermission(*u.Permission)
	}
	if u.Sample == nil {
		return
	}
	if _, _, err := e.Update(*u.Sample); err != nil && !errors.Is(err, ErrInvalidStateTransition) {
		log.Printf("tracking: sample from %s: %v", u.Provider, err)
	}
}

// Flush waits for in-flight geocode lookups.
func (e *Engine) Flush() {
	e.lookups.Wait()
}

// Close cancels in-flight lookups and waits for them to return.
func (e *Engine) Close() {
	e.cancel()
	e.lookups.Wait()
}
