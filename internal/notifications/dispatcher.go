package notifications

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"flightdesk/pkg/logger"
)

// Dispatcher hands events to a Publisher on a background goroutine so that
// reservation calls never wait on the broker. When the queue is full the
// event is dropped with a warning.
type Dispatcher struct {
	publisher Publisher
	log       *logger.Logger
	queue     chan *Event
	timeout   time.Duration

	mu      sync.RWMutex
	closed  bool
	wg      sync.WaitGroup
	dropped atomic.Int64
	failed  atomic.Int64
}

func NewDispatcher(publisher Publisher, queueSize int, log *logger.Logger) *Dispatcher {
	if queueSize <= 0 {
		queueSize = 1024
	}
	return &Dispatcher{
		publisher: publisher,
		log:       log,
		queue:     make(chan *Event, queueSize),
		timeout:   5 * time.Second,
	}
}

// Start runs the delivery worker until Close is called
func (d *Dispatcher) Start() {
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		for event := range d.queue {
			d.deliver(event)
		}
	}()
}

func (d *Dispatcher) deliver(event *Event) {
	ctx, cancel := context.WithTimeout(context.Background(), d.timeout)
	defer cancel()

	if err := d.publisher.Publish(ctx, event); err != nil {
		d.failed.Add(1)
		d.log.ErrorWithContext(ctx, "Failed to publish event", err, map[string]interface{}{
			"event_id": event.ID,
			"type":     string(event.Type),
		})
	}
}

// Dispatch enqueues an event without blocking
func (d *Dispatcher) Dispatch(event *Event) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.closed {
		d.dropped.Add(1)
		return
	}

	select {
	case d.queue <- event:
	default:
		d.dropped.Add(1)
		d.log.WithSeat(event.FlightID, event.SeatNo).Warn("Event queue full, dropping event", "type", event.Type)
	}
}

// Close drains the queue, waits for the worker and closes the publisher
func (d *Dispatcher) Close() error {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return nil
	}
	d.closed = true
	close(d.queue)
	d.mu.Unlock()

	d.wg.Wait()
	return d.publisher.Close()
}

// Stats reports events that never reached the publisher
func (d *Dispatcher) Stats() (dropped, failed int64) {
	return d.dropped.Load(), d.failed.Load()
}
