package eventstream

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"sync"
	"time"
)

var (
	defaultNumWorkers     uint = 2
	defaultQueueSize      uint = 256
	defaultPublishTimeout      = 10 * time.Second
)

// PoolConfig is the configuration options for the publishing pool.
type PoolConfig struct {
	// Publisher receives every event dequeued by a worker.
	Publisher Publisher

	// NumWorkers is the number of background workers in the pool.
	NumWorkers uint

	// QueueSize is the capacity of the buffered event channel (defaults to 256).
	QueueSize uint

	Logger *slog.Logger
}

// Pool publishes events asynchronously so a slow or unreachable stream never
// delays a Save or Search. Pool is itself a Publisher.
type Pool struct {
	publisher Publisher
	queue     chan *UsageRecordedEvent
	wg        sync.WaitGroup
	logger    *slog.Logger

	mu     sync.RWMutex
	closed bool
}

var _ Publisher = (*Pool)(nil)

// NewPool creates a pool and starts its worker goroutines.
func NewPool(c *PoolConfig) (*Pool, error) {
	if c.Publisher == nil {
		return nil, fmt.Errorf("pool publisher is required")
	}
	if c.NumWorkers == 0 {
		c.NumWorkers = defaultNumWorkers
	}
	if c.QueueSize == 0 {
		c.QueueSize = defaultQueueSize
	}
	if c.NumWorkers > uint(math.MaxInt) {
		return nil, fmt.Errorf("NumWorkers %d exceeds max int", c.NumWorkers)
	}

	p := &Pool{
		publisher: c.Publisher,
		queue:     make(chan *UsageRecordedEvent, c.QueueSize),
		logger:    c.Logger,
	}

	p.wg.Add(int(c.NumWorkers))
	for i := range c.NumWorkers {
		go p.worker(i)
	}

	return p, nil
}

// PublishUsage enqueues event. A full queue drops the event; that is logged
// and not reported as an error.
func (p *Pool) PublishUsage(_ context.Context, event *UsageRecordedEvent) error {
	if event == nil {
		return ErrNilUsageEvent
	}
	p.Enqueue(event)
	return nil
}

// Enqueue submits an event for publishing. Returns false if the event was
// dropped because the queue is full or the pool is closed.
func (p *Pool) Enqueue(event *UsageRecordedEvent) bool {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.closed {
		p.logger.Warn("event not queued, pool closed", "event_id", event.EventID)
		return false
	}

	select {
	case p.queue <- event:
		p.logger.Debug("event queued", "event_id", event.EventID, "project", event.Project)
		return true
	default:
		p.logger.Error("event not queued, queue full, event dropped",
			"event_id", event.EventID,
			"project", event.Project,
		)
		return false
	}
}

// Close stops accepting events, waits for queued events to be published and
// closes the underlying publisher.
func (p *Pool) Close() error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil
	}
	p.closed = true
	close(p.queue)
	p.mu.Unlock()

	p.wg.Wait()
	return p.publisher.Close()
}

func (p *Pool) worker(id uint) {
	defer p.wg.Done()
	p.logger.Debug("publish worker started", "worker_id", id)

	for event := range p.queue {
		p.publish(event)
	}

	p.logger.Debug("publish worker stopped", "worker_id", id)
}

func (p *Pool) publish(event *UsageRecordedEvent) {
	ctx, cancel := context.WithTimeout(context.Background(), defaultPublishTimeout)
	defer cancel()

	if err := p.publisher.PublishUsage(ctx, event); err != nil {
		p.logger.Warn("publishing usage event failed",
			"event_id", event.EventID,
			"project", event.Project,
			"error", err,
		)
		return
	}

	p.logger.Debug("usage event published", "event_id", event.EventID)
}
