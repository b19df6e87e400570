package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/papercomputeco/raggadon/pkg/eventstream"
	"github.com/papercomputeco/raggadon/pkg/pricing"
	"github.com/papercomputeco/raggadon/pkg/usage"
)

type usageFigures struct {
	monthly  int
	cost     float64
	fallback bool
}

// trackUsage records tokens in the ledger and reads back the project's
// monthly total. Any ledger failure, including a missing ledger, is logged
// and replaced by the call's own token count. It never fails.
func (s *Service) trackUsage(ctx context.Context, project string, usageType usage.Type, tokens int) usageFigures {
	figures := usageFigures{monthly: tokens, fallback: true}

	if err := s.record(ctx, project, usageType, tokens); err != nil {
		s.logger.Warn("usage tracking failed, reporting call tokens as monthly usage",
			"project", project,
			"usage_type", usageType,
			"tokens", tokens,
			"error", err,
		)
	} else {
		// the record just written is part of the month
		figures.monthly = max(s.ledger.MonthlyTokens(ctx, project), tokens)
		figures.fallback = false
	}

	figures.cost = pricing.Cost(figures.monthly, s.unitPrice)

	s.publish(ctx, project, usageType, tokens, figures)

	return figures
}

func (s *Service) record(ctx context.Context, project string, usageType usage.Type, tokens int) (err error) {
	if s.ledger == nil {
		return fmt.Errorf("%w: no ledger configured", usage.ErrLedgerUnavailable)
	}

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: ledger panicked: %v", usage.ErrLedgerUnavailable, r)
		}
	}()

	return s.ledger.Record(ctx, project, usageType, tokens)
}

func (s *Service) publish(ctx context.Context, project string, usageType usage.Type, tokens int, figures usageFigures) {
	if s.publisher == nil {
		return
	}

	event := eventstream.NewUsageRecordedEvent(
		project,
		string(usageType),
		s.embedder.Model(),
		tokens,
		figures.monthly,
		figures.cost,
		figures.fallback,
	)
	if err := s.publisher.PublishUsage(ctx, event); err != nil && !errors.Is(err, context.Canceled) {
		s.logger.Warn("publishing usage event failed", "project", project, "error", err)
	}
}
