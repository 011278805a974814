// Package tasks registers the addon's maintenance jobs.
package tasks

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/93bx/vidsrc-stremio-addon/internal/scheduler"
)

// Sweeper evicts expired resolution cache entries.
type Sweeper interface {
	Sweep(ctx context.Context) error
}

// RegisterCacheSweepTask schedules periodic eviction of expired manifest sets.
func RegisterCacheSweepTask(sched *scheduler.Scheduler, cache Sweeper, cron string) error {
	return sched.RegisterTask(scheduler.TaskConfig{
		ID:          "cache-sweep",
		Name:        "Cache Sweep",
		Description: "Evicts expired manifest sets from the resolution cache",
		Cron:        cron,
		Timeout:     time.Minute,
		Func:        cache.Sweep,
	})
}

// MetadataSweeper evicts expired metadata entries and reports how many.
type MetadataSweeper interface {
	Sweep() int
}

// RegisterMetadataSweepTask schedules eviction of expired title metadata.
func RegisterMetadataSweepTask(sched *scheduler.Scheduler, meta MetadataSweeper, cron string, logger zerolog.Logger) error {
	logger = logger.With().Str("component", "tasks").Logger()
	return sched.RegisterTask(scheduler.TaskConfig{
		ID:          "metadata-sweep",
		Name:        "Metadata Sweep",
		Description: "Evicts expired title metadata",
		Cron:        cron,
		Func: func(ctx context.Context) error {
			if n := meta.Sweep(); n > 0 {
				logger.Debug().Int("evicted", n).Msg("Metadata entries evicted")
			}
			return nil
		},
	})
}
