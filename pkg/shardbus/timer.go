package shardbus

import (
	"context"
	"time"
)

// runTimer publishes a timer event every TimerInterval until stopCh
// closes.
//
// Ticks go through the normal Publish path, so every tick lands on the
// same shard and rides the same FIFO as external events of that type.
// Ticks are not delivered while the engine is stopped, and missed
// ticks are not replayed.
func (e *Engine) runTimer(stopCh <-chan struct{}) {
	defer e.wg.Done()

	ticker := time.NewTicker(e.cfg.TimerInterval)
	defer ticker.Stop()

	for {
		select {
		case <-stopCh:
			return
		case <-ticker.C:
			e.Publish(NewEvent(TypeTimer, nil))
			e.cfg.Metrics.RecordTimerTick(context.Background())
		}
	}
}
