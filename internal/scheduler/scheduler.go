// Package scheduler runs periodic maintenance jobs on cron schedules.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/go-co-op/gocron/v2"
	"github.com/rs/zerolog"
)

var (
	ErrTaskNotFound = errors.New("task not found")
	ErrTaskRunning  = errors.New("task already running")
)

// TaskFunc is the function signature for scheduled tasks.
type TaskFunc func(ctx context.Context) error

// TaskConfig contains configuration for a scheduled task.
type TaskConfig struct {
	ID          string
	Name        string
	Description string
	Cron        string // five-field cron expression
	Timeout     time.Duration
	Func        TaskFunc
	RunOnStart  bool
}

// TaskInfo describes a task for API responses.
type TaskInfo struct {
	ID          string     `json:"id"`
	Name        string     `json:"name"`
	Description string     `json:"description"`
	Cron        string     `json:"cron"`
	LastRun     *time.Time `json:"lastRun,omitempty"`
	LastError   string     `json:"lastError,omitempty"`
	NextRun     *time.Time `json:"nextRun,omitempty"`
	Running     bool       `json:"running"`
}

type taskEntry struct {
	config    TaskConfig
	job       gocron.Job
	lastRun   *time.Time
	lastError string
	running   bool
}

// Scheduler manages background scheduled tasks.
type Scheduler struct {
	gocron gocron.Scheduler
	logger zerolog.Logger
	tasks  map[string]*taskEntry
	mu     sync.RWMutex
}

// New creates a scheduler.
func New(logger zerolog.Logger) (*Scheduler, error) {
	gs, err := gocron.NewScheduler()
	if err != nil {
		return nil, fmt.Errorf("failed to create gocron scheduler: %w", err)
	}

	return &Scheduler{
		gocron: gs,
		logger: logger.With().Str("component", "scheduler").Logger(),
		tasks:  make(map[string]*taskEntry),
	}, nil
}

// RegisterTask adds a task. IDs must be unique; an empty Name defaults to
// the ID.
func (s *Scheduler) RegisterTask(cfg TaskConfig) error {
	if cfg.ID == "" {
		return errors.New("task ID must not be empty")
	}
	if cfg.Name == "" {
		cfg.Name = cfg.ID
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.tasks[cfg.ID]; exists {
		return fmt.Errorf("task with ID %q already registered", cfg.ID)
	}

	job, err := s.gocron.NewJob(
		gocron.CronJob(cfg.Cron, false),
		gocron.NewTask(func() { s.executeTask(cfg.ID) }),
		gocron.WithName(cfg.Name),
		gocron.WithTags(cfg.ID),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
	if err != nil {
		return fmt.Errorf("failed to create job for task %q: %w", cfg.ID, err)
	}

	s.tasks[cfg.ID] = &taskEntry{config: cfg, job: job}

	s.logger.Info().
		Str("id", cfg.ID).
		Str("cron", cfg.Cron).
		Bool("runOnStart", cfg.RunOnStart).
		Msg("Registered task")
	return nil
}

// claim marks the task running; it reports false if it was already running.
func (s *Scheduler) claim(taskID string) (*taskEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.tasks[taskID]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrTaskNotFound, taskID)
	}
	if entry.running {
		return nil, fmt.Errorf("%w: %q", ErrTaskRunning, taskID)
	}
	entry.running = true
	return entry, nil
}

func (s *Scheduler) executeTask(taskID string) {
	entry, err := s.claim(taskID)
	if err != nil {
		s.logger.Debug().Err(err).Msg("Skipping task run")
		return
	}
	s.run(entry)
}

func (s *Scheduler) run(entry *taskEntry) {
	ctx := context.Background()
	if entry.config.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, entry.config.Timeout)
		defer cancel()
	}

	start := time.Now()
	err := entry.config.Func(ctx)
	duration := time.Since(start)

	s.mu.Lock()
	entry.running = false
	entry.lastRun = &start
	entry.lastError = ""
	if err != nil {
		entry.lastError = err.Error()
	}
	s.mu.Unlock()

	if err != nil {
		s.logger.Error().Err(err).Str("id", entry.config.ID).Dur("duration", duration).Msg("Task failed")
		return
	}
	s.logger.Debug().Str("id", entry.config.ID).Dur("duration", duration).Msg("Task completed")
}

// Start starts the scheduler and kicks off RunOnStart tasks.
func (s *Scheduler) Start() {
	s.logger.Info().Msg("Starting scheduler")
	s.gocron.Start()

	s.mu.RLock()
	var startup []string
	for id, entry := range s.tasks {
		if entry.config.RunOnStart {
			startup = append(startup, id)
		}
	}
	s.mu.RUnlock()

	for _, id := range startup {
		go s.executeTask(id)
	}
}

// Stop waits for running jobs and stops the scheduler.
func (s *Scheduler) Stop() error {
	s.logger.Info().Msg("Stopping scheduler")
	return s.gocron.Shutdown()
}

// RunNow triggers a task in the background.
func (s *Scheduler) RunNow(taskID string) error {
	entry, err := s.claim(taskID)
	if err != nil {
		return err
	}
	go s.run(entry)
	return nil
}

// ListTasks returns all registered tasks ordered by id.
func (s *Scheduler) ListTasks() []TaskInfo {
	s.mu.RLock()
	defer s.mu.RUnlock()

	tasks := make([]TaskInfo, 0, len(s.tasks))
	for _, entry := range s.tasks {
		tasks = append(tasks, entry.info())
	}
	sort.Slice(tasks, func(i, j int) bool { return tasks[i].ID < tasks[j].ID })
	return tasks
}

// GetTask returns information about one task.
func (s *Scheduler) GetTask(taskID string) (*TaskInfo, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entry, ok := s.tasks[taskID]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrTaskNotFound, taskID)
	}
	info := entry.info()
	return &info, nil
}

// info must be called with the scheduler lock held.
func (e *taskEntry) info() TaskInfo {
	info := TaskInfo{
		ID:          e.config.ID,
		Name:        e.config.Name,
		Description: e.config.Description,
		Cron:        e.config.Cron,
		LastRun:     e.lastRun,
		LastError:   e.lastError,
		Running:     e.running,
	}
	if next, err := e.job.NextRun(); err == nil && !next.IsZero() {
		info.NextRun = &next
	}
	return info
}
