package location

import (
	"context"
	"errors"
	"sync"
	"time"
)

// Merged fans several providers into one serialized Source. Samples older
// than the last forwarded one are dropped so the stream stays monotonic.
type Merged struct {
	sources []Source
	out     chan Update

	mu             sync.Mutex
	last           time.Time
	lastPermission PermissionStatus

	done chan struct{}
	once sync.Once
	wg   sync.WaitGroup
}

func Merge(sources ...Source) *Merged {
	m := &Merged{
		sources: sources,
		out:     make(chan Update),
		done:    make(chan struct{}),
	}
	m.lastPermission = m.Permission()

	for _, src := range sources {
		m.wg.Add(1)
		go m.forward(src)
	}
	go func() {
		m.wg.Wait()
		close(m.out)
	}()
	return m
}

func (m *Merged) forward(src Source) {
	defer m.wg.Done()
	in := src.Updates()
	for {
		select {
		case <-m.done:
			return
		case u, ok := <-in:
			if !ok {
				return
			}
			m.emit(u)
		}
	}
}

func (m *Merged) emit(u Update) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if u.Sample != nil {
		if !m.last.IsZero() && u.Sample.Timestamp.Before(m.last) {
			return
		}
		m.last = u.Sample.Timestamp
	}
	if u.Permission != nil {
		combined := m.Permission()
		if combined == m.lastPermission {
			return
		}
		m.lastPermission = combined
		u.Permission = &combined
	}

	select {
	case m.out <- u:
	case <-m.done:
	}
}

func (m *Merged) StartUpdates(ctx context.Context) error {
	var errs []error
	for _, src := range m.sources {
		if err := src.StartUpdates(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (m *Merged) StopUpdates() error {
	var errs []error
	for _, src := range m.sources {
		if err := src.StopUpdates(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Permission is authorized when any provider is authorized, otherwise the
// most restrictive known status.
func (m *Merged) Permission() PermissionStatus {
	result := PermissionNotDetermined
	for _, src := range m.sources {
		switch p := src.Permission(); p {
		case PermissionAuthorized:
			return PermissionAuthorized
		case PermissionDenied:
			result = PermissionDenied
		case PermissionRestricted:
			if result != PermissionDenied {
				result = PermissionRestricted
			}
		}
	}
	return result
}

func (m *Merged) Updates() <-chan Update {
	return m.out
}

// Close stops forwarding. The underlying sources are left to their owners.
func (m *Merged) Close() error {
	m.once.Do(func() { close(m.done) })
	m.wg.Wait()
	return nil
}
