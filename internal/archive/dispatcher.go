package archive

import (
	"context"
	"log"
	"sync"
	"time"

	"backend-recordpath/internal/tracking"
)

// Dispatcher hands finalized journeys to every sink on a worker goroutine,
// keeping slow storage off the engine's event path.
type Dispatcher struct {
	sinks   []Sink
	timeout time.Duration
	queue   chan Record

	mu     sync.Mutex
	closed bool
	wg     sync.WaitGroup
}

func NewDispatcher(buffer int, timeout time.Duration, sinks ...Sink) *Dispatcher {
	if buffer <= 0 {
		buffer = 64
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	d := &Dispatcher{
		sinks:   sinks,
		timeout: timeout,
		queue:   make(chan Record, buffer),
	}
	d.wg.Add(1)
	go d.work()
	return d
}

// Submit queues rec. It reports false when the dispatcher is closed or the
// queue is full.
func (d *Dispatcher) Submit(rec Record) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		log.Printf("archive: dispatcher closed, dropping journey %s", rec.Journey.ID)
		return false
	}
	select {
	case d.queue <- rec:
		return true
	default:
		log.Printf("archive: queue full, dropping journey %s", rec.Journey.ID)
		return false
	}
}

// Handle is a tracking.DeviceListener forwarding finalized journeys.
func (d *Dispatcher) Handle(deviceID string, ev tracking.Event) {
	if ev.Kind != tracking.EventJourneyFinalized || ev.Journey == nil {
		return
	}
	d.Submit(Record{DeviceID: deviceID, Reason: ev.Reason, Journey: *ev.Journey})
}

func (d *Dispatcher) work() {
	defer d.wg.Done()
	for rec := range d.queue {
		for _, sink := range d.sinks {
			ctx, cancel := context.WithTimeout(context.Background(), d.timeout)
			if err := sink.Archive(ctx, rec); err != nil {
				log.Printf("archive: sink %T failed for journey %s: %v", sink, rec.Journey.ID, err)
			}
			cancel()
		}
	}
}

// Close stops accepting records and waits for the queue to drain.
func (d *Dispatcher) Close() {
	d.mu.Lock()
	if !d.closed {
		d.closed = true
		close(d.queue)
	}
	d.mu.Unlock()
	d.wg.Wait()
}
