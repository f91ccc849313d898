package syncer

import (
	"context"
	"errors"
	"time"

	"github.com/farmdeck/farmsync/internal/client/client"
)

const probeTimeout = 3 * time.Second

// Watch probes the server every online-check interval until ctx ends. It
// runs a cycle when the server comes back and then every sync interval
// while it stays reachable.
func (s *Syncer) Watch(ctx context.Context) error {
	ticker := time.NewTicker(s.onlineCheckInterval)
	defer ticker.Stop()

	online := false
	var lastCycle time.Time

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}

		pctx, cancel := context.WithTimeout(ctx, probeTimeout)
		err := s.prober.Ping(pctx)
		cancel()

		reachable := err == nil
		if !reachable && s.classifier.Classify(err) != client.ClassConnectivity && ctx.Err() == nil {
			s.logger.Warn(ctx, "connectivity probe failed", "error", err)
		}

		if reachable != online {
			online = reachable
			s.logger.Info(ctx, "connectivity changed", "online", online)
			if s.onStatus != nil {
				s.onStatus(online)
			}
			if online {
				lastCycle = time.Time{}
			}
		}

		if !online || (!lastCycle.IsZero() && s.now().Sub(lastCycle) < s.syncInterval) {
			continue
		}

		lastCycle = s.now()
		if _, err := s.RunCycle(ctx); err != nil && !errors.Is(err, ErrCycleInProgress) && ctx.Err() == nil {
			s.logger.Error(ctx, "sync cycle failed", "error", err)
		}
	}
}
