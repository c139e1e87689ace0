package tasks

import (
	"context"

	"github.com/fetcharr/fetcharr/internal/config"
	"github.com/fetcharr/fetcharr/internal/release"
	"github.com/fetcharr/fetcharr/internal/scheduler"
)

// RegisterCleanStaleTask registers the nightly prune of stale release
// bookkeeping.
func RegisterCleanStaleTask(sched *scheduler.Scheduler, lifecycle *release.Lifecycle, cfg *config.ScheduleConfig) error {
	return sched.RegisterTask(scheduler.TaskConfig{
		ID:   "clean-stale",
		Name: "Clean Stale Releases",
		Cron: cfg.CleanCron,
		Func: func(ctx context.Context) error {
			return lifecycle.CleanStale(ctx, cfg.StaleAvailable, cfg.StaleAbandoned)
		},
	})
}
