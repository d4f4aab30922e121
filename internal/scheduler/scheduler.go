// Package scheduler runs named jobs on interval or calendar schedules, at most
// one run per job at a time.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

var (
	ErrUnknownTask = errors.New("unknown task")
	ErrTaskRunning = errors.New("task is already running")
)

// Job is the work behind a task.
type Job func(ctx context.Context) error

// Schedule computes the next run strictly after a given time.
type Schedule interface {
	Next(after time.Time) time.Time
}

// TaskStatus is a snapshot of one task.
type TaskStatus struct {
	Name        string    `json:"name"`
	Description string    `json:"description"`
	LastRun     time.Time `json:"last_run"`
	NextRun     time.Time `json:"next_run"`
	IsRunning   bool      `json:"is_running"`
	LastError   string    `json:"last_error,omitempty"`
	Runs        int       `json:"runs"`
}

type task struct {
	status   TaskStatus
	schedule Schedule
	job      Job
}

type Scheduler struct {
	tasks         map[string]*task
	mutex         sync.Mutex
	wg            sync.WaitGroup
	ctx           context.Context
	checkInterval time.Duration
	now           func() time.Time
	logger        zerolog.Logger
}

// New builds an empty scheduler. Jobs run under ctx, including those started by
// Trigger before Run.
func New(ctx context.Context, checkInterval time.Duration, logger zerolog.Logger) *Scheduler {
	if checkInterval <= 0 {
		checkInterval = time.Minute
	}
	return &Scheduler{
		tasks:         make(map[string]*task),
		ctx:           ctx,
		checkInterval: checkInterval,
		now:           time.Now,
		logger:        logger,
	}
}

// Add registers a task. Its first run is the schedule's next time after now.
func (s *Scheduler) Add(name, description string, schedule Schedule, job Job) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	s.tasks[name] = &task{
		status: TaskStatus{
			Name:        name,
			Description: description,
			NextRun:     schedule.Next(s.now()),
		},
		schedule: schedule,
		job:      job,
	}
	s.logger.Info().Str("task", name).Time("next_run", s.tasks[name].status.NextRun).Msg("task scheduled")
}

// Run checks the task table every check interval until ctx is done, then waits
// for in-flight jobs to return. Tasks named in immediate start right away.
func (s *Scheduler) Run(ctx context.Context, immediate ...string) {
	s.mutex.Lock()
	s.ctx = ctx
	s.mutex.Unlock()

	for _, name := range immediate {
		if err := s.Trigger(name); err != nil {
			s.logger.Warn().Err(err).Str("task", name).Msg("immediate run skipped")
		}
	}

	ticker := time.NewTicker(s.checkInterval)
	defer ticker.Stop()

	s.logger.Info().Dur("check_interval", s.checkInterval).Int("tasks", len(s.tasks)).Msg("scheduler started")
	for {
		select {
		case <-ctx.Done():
			s.logger.Info().Msg("scheduler stopping, waiting for running tasks")
			s.wg.Wait()
			return
		case <-ticker.C:
			s.checkTasks(s.now())
		}
	}
}

func (s *Scheduler) checkTasks(now time.Time) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	for name, t := range s.tasks {
		if t.status.IsRunning || t.status.NextRun.IsZero() {
			continue
		}
		if !now.Before(t.status.NextRun) {
			s.startLocked(name, t, now)
		}
	}
}

// Trigger starts a task now, outside its schedule.
func (s *Scheduler) Trigger(name string) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	t, ok := s.tasks[name]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownTask, name)
	}
	if t.status.IsRunning {
		return ErrTaskRunning
	}
	s.startLocked(name, t, s.now())
	return nil
}

func (s *Scheduler) startLocked(name string, t *task, now time.Time) {
	t.status.IsRunning = true
	s.wg.Add(1)
	go s.runTask(s.ctx, name, t, now)
}

func (s *Scheduler) runTask(ctx context.Context, name string, t *task, started time.Time) {
	log := s.logger.With().Str("task", name).Logger()
	var err error

	defer s.wg.Done()
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}

		s.mutex.Lock()
		defer s.mutex.Unlock()

		t.status.IsRunning = false
		t.status.LastRun = started
		t.status.Runs++
		t.status.NextRun = t.schedule.Next(s.now())
		if err != nil {
			t.status.LastError = err.Error()
			log.Error().Err(err).Time("next_run", t.status.NextRun).Msg("task failed")
		} else {
			t.status.LastError = ""
			log.Info().Dur("took", s.now().Sub(started)).Time("next_run", t.status.NextRun).Msg("task finished")
		}
	}()

	log.Info().Msg("task started")
	err = t.job(ctx)
}

// Status returns a snapshot of every task, ordered by name.
func (s *Scheduler) Status() []TaskStatus {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	out := make([]TaskStatus, 0, len(s.tasks))
	for _, t := range s.tasks {
		out = append(out, t.status)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Wait blocks until every running task has returned.
func (s *Scheduler) Wait() {
	s.wg.Wait()
}
