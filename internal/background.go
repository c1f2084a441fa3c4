// internal/background.go
package app

import (
	"context"
	"time"
)

// runClaimJanitor periodically purges idempotency claims whose retention
// window has passed.
func (app *Application) runClaimJanitor(ctx context.Context) {
	ticker := time.NewTicker(app.Config.IdempotencyCleanupEvery)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			removed, err := app.IdempotencyService.CleanupExpired(ctx)
			if err != nil {
				app.Logger.Error("idempotency cleanup failed", "error", err)
				continue
			}
			if removed > 0 {
				app.Logger.Info("purged expired idempotency claims", "count", removed)
			}
		}
	}
}

// drainEvents consumes the in-process event channel. Today the only consumer
// is the structured log; a broker integration would hang off this loop.
func (app *Application) drainEvents(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case event := <-app.Publisher.Events():
			app.Logger.Info("event published",
				"event", event.Name,
				"driver_id", event.DriverID,
				"amount", event.Amount,
				"balance", event.Balance,
			)
		}
	}
}
