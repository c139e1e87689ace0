package tasks

import (
	"github.com/fetcharr/fetcharr/internal/config"
	"github.com/fetcharr/fetcharr/internal/release"
	"github.com/fetcharr/fetcharr/internal/scheduler"
)

// RegisterCheckSnatchedTask registers the download-status reconciliation
// sweep.
func RegisterCheckSnatchedTask(sched *scheduler.Scheduler, monitor *release.Monitor, cfg *config.ScheduleConfig) error {
	return sched.RegisterTask(scheduler.TaskConfig{
		ID:         "check-snatched",
		Name:       "Check Snatched Releases",
		Cron:       cfg.CheckCron,
		RunOnStart: true,
		Func:       monitor.CheckSnatched,
	})
}
