package retention

import (
	"context"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/packrat-app/packrat/internal/repo"
)

// sweepSchedule runs the prune nightly, off the busy hours.
const sweepSchedule = "10 3 * * *"

// Run starts a background sweeper that deletes audit entries older than
// retentionDays. It blocks until ctx is done; run it in its own goroutine.
// retentionDays <= 0 disables the sweep entirely.
func Run(ctx context.Context, auditRepo *repo.AuditRepo, retentionDays int, logger *slog.Logger) {
	if retentionDays <= 0 {
		logger.Info("retention: disabled")
		<-ctx.Done()
		return
	}

	sweep := func() {
		cutoff := time.Now().AddDate(0, 0, -retentionDays)
		n, err := auditRepo.DeleteOlderThan(ctx, cutoff)
		if err != nil {
			logger.Error("retention: prune failed", "error", err)
			return
		}
		if n > 0 {
			logger.Info("retention: pruned audit entries", "deleted", n, "cutoff", cutoff)
		}
	}

	c := cron.New()
	if _, err := c.AddFunc(sweepSchedule, sweep); err != nil {
		logger.Error("retention: invalid schedule", "cron", sweepSchedule, "error", err)
		return
	}

	// Sweep once on startup so a long-stopped server catches up immediately.
	sweep()
	c.Start()

	<-ctx.Done()
	<-c.Stop().Done()
}
