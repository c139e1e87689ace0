// Package tasks registers the background jobs with the scheduler.
package tasks

import (
	"github.com/fetcharr/fetcharr/internal/config"
	"github.com/fetcharr/fetcharr/internal/scheduler"
	"github.com/fetcharr/fetcharr/internal/search"
)

// RegisterSearchTask registers the periodic search pass over all wanted
// media.
func RegisterSearchTask(sched *scheduler.Scheduler, orch *search.Orchestrator, cfg *config.ScheduleConfig) error {
	return sched.RegisterTask(scheduler.TaskConfig{
		ID:   "search",
		Name: "Search Wanted Media",
		Cron: cfg.SearchCron,
		Func: orch.SearchAll,
	})
}
