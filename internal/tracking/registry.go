package tracking

import (
	"context"
	"errors"
	"io"
	"log"
	"sync"

	"backend-recordpath/internal/geocode"
	"backend-recordpath/internal/location"
)

// Session is one device's recording pipeline: the HTTP feed plus any extra
// providers merged into a single stream that drives the engine.
type Session struct {
	DeviceID string
	Engine   *Engine
	Feed     *location.Feed

	source  location.Source
	closers []io.Closer
	cancel  context.CancelFunc
	done    chan struct{}
}

// ProvidersFunc returns the additional providers for a device.
type ProvidersFunc func(deviceID string) []location.Source

// DeviceListener receives every engine event tagged with its device.
type DeviceListener func(deviceID string, ev Event)

type Registry struct {
	cfg       Config
	gateway   geocode.Gateway
	providers ProvidersFunc
	listener  DeviceListener
	opts      []Option

	mu       sync.Mutex
	sessions map[string]*Session
}

func NewRegistry(cfg Config, gateway geocode.Gateway, providers ProvidersFunc, listener DeviceListener, opts ...Option) *Registry {
	return &Registry{
		cfg:       cfg,
		gateway:   gateway,
		providers: providers,
		listener:  listener,
		opts:      opts,
		sessions:  map[string]*Session{},
	}
}

// Session returns the device's session, creating and starting it on first use.
func (r *Registry) Session(deviceID string) *Session {
	r.mu.Lock()
	defer r.mu.Unlock()
	if s, ok := r.sessions[deviceID]; ok {
		return s
	}

	feed := location.NewFeed("http", 256, location.PermissionNotDetermined)
	s := &Session{
		DeviceID: deviceID,
		Feed:     feed,
		source:   feed,
		done:     make(chan struct{}),
	}
	if r.providers != nil {
		if extra := r.providers(deviceID); len(extra) > 0 {
			sources := append([]location.Source{feed}, extra...)
			merged := location.Merge(sources...)
			s.source = merged
			s.closers = append(s.closers, merged)
			for _, src := range extra {
				if c, ok := src.(io.Closer); ok {
					s.closers = append(s.closers, c)
				}
			}
		}
	}

	opts := append([]Option{WithController(s.source), WithPermission(s.source.Permission())}, r.opts...)
	if r.gateway != nil {
		opts = append(opts, WithGateway(r.gateway))
	}
	s.Engine = NewEngine(r.cfg, opts...)
	if r.listener != nil {
		s.Engine.Subscribe(func(ev Event) { r.listener(deviceID, ev) })
	}

	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	go func() {
		defer close(s.done)
		if err := s.Engine.Run(ctx, s.source); err != nil && !errors.Is(err, context.Canceled) {
			log.Printf("tracking: session %s stopped: %v", deviceID, err)
		}
	}()

	r.sessions[deviceID] = s
	return s
}

// Lookup returns an existing session without creating one.
func (r *Registry) Lookup(deviceID string) (*Session, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[deviceID]
	return s, ok
}

// Close finalizes open journeys so shutdown never loses a recording, then
// tears every session down.
func (r *Registry) Close() {
	r.mu.Lock()
	sessions := r.sessions
	r.sessions = map[string]*Session{}
	r.mu.Unlock()

	for id, s := range sessions {
		switch s.Engine.State() {
		case StateRecording, StatePaused:
			if _, err := s.Engine.finalize(ReasonShutdown); err != nil {
				log.Printf("tracking: finalize %s on shutdown: %v", id, err)
			}
		}
		s.cancel()
		<-s.done
		_ = s.Feed.Close()
		for _, c := range s.closers {
			if err := c.Close(); err != nil {
				log.Printf("tracking: close provider for %s: %v", id, err)
			}
		}
		s.Engine.Close()
	}
}
