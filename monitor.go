package aistm7

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/gofrs/uuid"
	"github.com/pkg/errors"

	"github.com/barkalona/AISTM7/core"
)

const maxUpdateRetries = 3

// Monitor drives UpdateRequirement on a fixed cadence until ctx is
// cancelled. Retry on transient failures lives here, not in the update
// itself: a missing price or a lost version race is retried with
// exponential backoff, everything else ends the attempt.
func (s *Service) Monitor(ctx context.Context, authority uuid.UUID, feedId string, interval time.Duration) error {
	ticker := s.clk.Ticker(interval)
	defer ticker.Stop()

	s.log.Info().
		Str("feed", feedId).
		Dur("interval", interval).
		Msg("requirement monitor started")

	for {
		if err := s.updateWithRetry(ctx, authority, feedId); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			s.log.Error().Err(err).Msg("requirement update failed")
		}

		select {
		case <-ctx.Done():
			s.log.Info().Msg("requirement monitor stopped")
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

func (s *Service) updateWithRetry(ctx context.Context, authority uuid.UUID, feedId string) error {
	operation := func() error {
		_, _, err := s.UpdateRequirement(ctx, authority, feedId)
		if err == nil {
			return nil
		}
		if errors.Is(err, core.NoPriceFound) || errors.Is(err, core.StateVersionConflict) {
			return err
		}
		return backoff.Permanent(err)
	}

	policy := backoff.WithContext(
		backoff.WithMaxRetries(backoff.NewExponentialBackOff(), maxUpdateRetries),
		ctx,
	)
	return backoff.Retry(operation, policy)
}
