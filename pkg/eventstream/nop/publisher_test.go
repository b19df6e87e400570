package nop_test

import (
	"context"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/raggadon/pkg/eventstream"
	"github.com/papercomputeco/raggadon/pkg/eventstream/nop"
)

var _ = Describe("Publisher", func() {
	It("returns ErrNilUsageEvent for nil events", func() {
		p := nop.NewPublisher()
		err := p.PublishUsage(context.Background(), nil)
		Expect(err).To(MatchError(eventstream.ErrNilUsageEvent))
	})

	It("succeeds for non-nil events", func() {
		p := nop.NewPublisher()
		err := p.PublishUsage(context.Background(), &eventstream.UsageRecordedEvent{})
		Expect(err).NotTo(HaveOccurred())
	})

	It("closes successfully", func() {
		p := nop.NewPublisher()
		Expect(p.Close()).To(Succeed())
	})
})
