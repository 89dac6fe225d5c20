package retention

import (
	"context"
	"fmt"
	"time"

	"github.com/adhocore/gronx"

	"convosync/pkg/config"
	"convosync/pkg/logger"
	"convosync/pkg/store"
)

// Start starts the retention scheduler if enabled. Messages older than the
// configured period are purged on the cron schedule; conversation metadata
// and read markers are never touched. Returns a cancel func.
func Start(ctx context.Context, cfg config.RetentionConfig) (context.CancelFunc, error) {
	if !cfg.Enabled {
		logger.Info("retention_disabled")
		return func() {}, nil
	}
	if cfg.Period.Duration() <= 0 {
		return nil, fmt.Errorf("retention enabled but period is not set")
	}

	// default daily @02:00
	cronExpr := cfg.Cron
	if cronExpr == "" {
		cronExpr = "0 2 * * *"
	}
	if !gronx.IsValid(cronExpr) {
		logger.Error("retention_invalid_cron", "cron", cfg.Cron)
		return nil, fmt.Errorf("invalid retention cron expression: %s", cfg.Cron)
	}

	logger.Info("retention_enabled", "cron", cronExpr, "period", cfg.Period.Duration().String(), "dry_run", cfg.DryRun)
	ctx2, cancel := context.WithCancel(ctx)
	go runScheduler(ctx2, cfg, cronExpr)
	return cancel, nil
}

// runScheduler computes the next cron tick with gronx and sleeps until then.
func runScheduler(ctx context.Context, cfg config.RetentionConfig, cronExpr string) {
	for {
		now := time.Now().UTC()
		next, err := gronx.NextTickAfter(cronExpr, now, false)
		if err != nil {
			logger.Error("retention_next_tick_failed", "cron", cronExpr, "error", err)
			return
		}
		select {
		case <-ctx.Done():
			logger.Info("retention_scheduler_stopping")
			return
		case <-time.After(next.Sub(now)):
		}
		if err := RunOnce(cfg); err != nil {
			logger.Error("retention_run_failed", "error", err)
		}
	}
}

// RunOnce performs a single purge pass. Exposed for admin triggers and tests.
func RunOnce(cfg config.RetentionConfig) error {
	cutoff := time.Now().UTC().Add(-cfg.Period.Duration()).UnixNano()
	n, err := store.PurgeMessagesBefore(cutoff, cfg.DryRun)
	if err != nil {
		return err
	}
	logger.Info("retention_run_complete", "purged", n, "dry_run", cfg.DryRun)
	return nil
}
