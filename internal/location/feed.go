package location

import (
	"context"
	"errors"
	"sync"
)

// ErrFeedFull is returned when the consumer is not keeping up.
var ErrFeedFull = errors.New("location feed backlog full")

// Feed is a push-driven Source used for HTTP ingest.
type Feed struct {
	name string

	mu         sync.Mutex
	updates    chan Update
	permission PermissionStatus
	active     bool
	closed     bool
}

func NewFeed(name string, buffer int, permission PermissionStatus) *Feed {
	if buffer <= 0 {
		buffer = 64
	}
	return &Feed{
		name:       name,
		updates:    make(chan Update, buffer),
		permission: permission,
	}
}

func (f *Feed) StartUpdates(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return ErrClosed
	}
	f.active = true
	return nil
}

func (f *Feed) StopUpdates() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.active = false
	return nil
}

func (f *Feed) Active() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.active
}

func (f *Feed) Permission() PermissionStatus {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.permission
}

func (f *Feed) Updates() <-chan Update {
	return f.updates
}

// Push queues a sample. It reports false without error when updates are
// stopped, mirroring a provider that is not delivering.
func (f *Feed) Push(s Sample) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return false, ErrClosed
	}
	if !f.active {
		return false, nil
	}
	select {
	case f.updates <- SampleUpdate(f.name, s):
		return true, nil
	default:
		return false, ErrFeedFull
	}
}

// SetPermission records and forwards a permission change. Like Push it
// never blocks: a full backlog returns ErrFeedFull and the change should be
// sent again.
func (f *Feed) SetPermission(p PermissionStatus) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return ErrClosed
	}
	f.permission = p
	select {
	case f.updates <- PermissionUpdate(f.name, p):
		return nil
	default:
		return ErrFeedFull
	}
}

func (f *Feed) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return nil
	}
	f.closed = true
	f.active = false
	close(f.updates)
	return nil
}
