package eventstream_test

import (
	"context"
	"errors"
	"sync"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/raggadon/pkg/eventstream"
	"github.com/papercomputeco/raggadon/pkg/logger"
)

type collectingPublisher struct {
	mu     sync.Mutex
	events []*eventstream.UsageRecordedEvent
	err    error
	block  chan struct{}
	closed bool
}

func (c *collectingPublisher) PublishUsage(_ context.Context, e *eventstream.UsageRecordedEvent) error {
	if c.block != nil {
		<-c.block
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.err != nil {
		return c.err
	}
	c.events = append(c.events, e)
	return nil
}

func (c *collectingPublisher) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	return nil
}

func (c *collectingPublisher) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.events)
}

var _ = Describe("Pool", func() {
	newEvent := func(project string) *eventstream.UsageRecordedEvent {
		return eventstream.NewUsageRecordedEvent(project, "save", "m", 1, 1, 0, false)
	}

	It("requires a publisher", func() {
		_, err := eventstream.NewPool(&eventstream.PoolConfig{Logger: logger.Nop()})
		Expect(err).To(HaveOccurred())
	})

	It("publishes every queued event before Close returns", func() {
		inner := &collectingPublisher{}
		pool, err := eventstream.NewPool(&eventstream.PoolConfig{Publisher: inner, Logger: logger.Nop()})
		Expect(err).NotTo(HaveOccurred())

		for range 10 {
			Expect(pool.PublishUsage(context.Background(), newEvent("demo"))).To(Succeed())
		}
		Expect(pool.Close()).To(Succeed())

		Expect(inner.count()).To(Equal(10))
		Expect(inner.closed).To(BeTrue())
	})

	It("rejects nil events", func() {
		pool, err := eventstream.NewPool(&eventstream.PoolConfig{Publisher: &collectingPublisher{}, Logger: logger.Nop()})
		Expect(err).NotTo(HaveOccurred())
		defer pool.Close()

		Expect(pool.PublishUsage(context.Background(), nil)).To(MatchError(eventstream.ErrNilUsageEvent))
	})

	It("drops events when the queue is full", func() {
		inner := &collectingPublisher{block: make(chan struct{})}
		pool, err := eventstream.NewPool(&eventstream.PoolConfig{
			Publisher:  inner,
			NumWorkers: 1,
			QueueSize:  1,
			Logger:     logger.Nop(),
		})
		Expect(err).NotTo(HaveOccurred())

		// at most one event is held by the blocked worker and one by the queue
		accepted := 0
		for range 5 {
			if pool.Enqueue(newEvent("demo")) {
				accepted++
			}
		}
		Expect(accepted).To(BeNumerically("<=", 2))
		Expect(accepted).To(BeNumerically(">=", 1))

		close(inner.block)
		Expect(pool.Close()).To(Succeed())
		Expect(inner.count()).To(Equal(accepted))
	})

	It("swallows publisher errors", func() {
		inner := &collectingPublisher{err: errors.New("stream down")}
		pool, err := eventstream.NewPool(&eventstream.PoolConfig{Publisher: inner, Logger: logger.Nop()})
		Expect(err).NotTo(HaveOccurred())

		Expect(pool.PublishUsage(context.Background(), newEvent("demo"))).To(Succeed())
		Expect(pool.Close()).To(Succeed())
	})

	It("refuses events after Close", func() {
		pool, err := eventstream.NewPool(&eventstream.PoolConfig{Publisher: &collectingPublisher{}, Logger: logger.Nop()})
		Expect(err).NotTo(HaveOccurred())
		Expect(pool.Close()).To(Succeed())
		Expect(pool.Enqueue(newEvent("demo"))).To(BeFalse())
	})
})
