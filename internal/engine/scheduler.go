package engine

import (
	"context"
	"time"
)

// Run executes cycles sequentially on the configured interval until the
// context is cancelled. When once is true, exactly one cycle runs. A
// shutdown signal never interrupts an in-flight cycle; the current cycle
// completes before Run returns.
func (e *Engine) Run(ctx context.Context, once bool) error {
	if err := e.RunCycle(ctx); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if once {
			return err
		}
		e.logger.Error().Err(err).Msg("Cycle failed")
	}
	if once {
		return nil
	}

	ticker := time.NewTicker(e.cfg.Trading.CycleInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			e.logger.Info().Msg("Scheduler stopping")
			return ctx.Err()
		case <-ticker.C:
			if err := e.RunCycle(ctx); err != nil {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				e.logger.Error().Err(err).Msg("Cycle failed")
			}
		}
	}
}
