package scheduler

import (
	"sync"
	"time"

	"github.com/campuslink/campuslink-backend/pkg/logger"
)

// Task is a registered periodic sweep. Handlers must be idempotent:
// every sweep may observe work already done by a previous run or by a
// request thread, and must treat that as a no-op.
type Task struct {
	Name      string
	Interval  time.Duration
	Handler   func() error
	LastRun   time.Time
	NextRun   time.Time
	RunCount  int64
	LastError error
}

// Scheduler runs background sweeps on independent periodic timers,
// decoupled from request handling
type Scheduler struct {
	tasks        []*Task
	mu           sync.RWMutex
	tickInterval time.Duration
	stop         chan struct{}
	wg           sync.WaitGroup
}

// NewScheduler creates a scheduler that checks for due tasks on the
// given tick interval
func NewScheduler(tickInterval time.Duration) *Scheduler {
	return &Scheduler{
		tasks:        make([]*Task, 0),
		tickInterval: tickInterval,
		stop:         make(chan struct{}),
	}
}

// Register adds a periodic task. The first run happens one interval
// after registration.
func (s *Scheduler) Register(name string, interval time.Duration, handler func() error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.tasks = append(s.tasks, &Task{
		Name:     name,
		Interval: interval,
		Handler:  handler,
		NextRun:  time.Now().Add(interval),
	})

	logger.GetLogger().Info().
		Str("task", name).
		Dur("interval", interval).
		Msg("scheduled task registered")
}

// Start runs the scheduler loop in the background
func (s *Scheduler) Start() {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		ticker := time.NewTicker(s.tickInterval)
		defer ticker.Stop()

		for {
			select {
			case <-s.stop:
				return
			case now := <-ticker.C:
				s.tick(now)
			}
		}
	}()
	logger.GetLogger().Info().Msg("scheduler started")
}

// Stop shuts the scheduler down and waits for the loop to exit
func (s *Scheduler) Stop() {
	close(s.stop)
	s.wg.Wait()
	logger.GetLogger().Info().Msg("scheduler stopped")
}

// tick runs every task that is due
func (s *Scheduler) tick(now time.Time) {
	s.mu.RLock()
	tasks := make([]*Task, len(s.tasks))
	copy(tasks, s.tasks)
	s.mu.RUnlock()

	for _, task := range tasks {
		if now.Before(task.NextRun) {
			continue
		}

		if err := task.Handler(); err != nil {
			logger.GetLogger().Error().Err(err).
				Str("task", task.Name).
				Msg("scheduled task error")
			task.LastError = err
		} else {
			task.LastError = nil
		}

		task.LastRun = now
		task.NextRun = now.Add(task.Interval)
		task.RunCount++
	}
}

// TaskInfo is a monitoring snapshot of a task
type TaskInfo struct {
	Name      string    `json:"name"`
	Interval  string    `json:"interval"`
	LastRun   time.Time `json:"last_run"`
	NextRun   time.Time `json:"next_run"`
	RunCount  int64     `json:"run_count"`
	LastError *string   `json:"last_error,omitempty"`
}

// Tasks returns a snapshot of every registered task
func (s *Scheduler) Tasks() []TaskInfo {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]TaskInfo, 0, len(s.tasks))
	for _, t := range s.tasks {
		info := TaskInfo{
			Name:     t.Name,
			Interval: t.Interval.String(),
			LastRun:  t.LastRun,
			NextRun:  t.NextRun,
			RunCount: t.RunCount,
		}
		if t.LastError != nil {
			errMsg := t.LastError.Error()
			info.LastError = &errMsg
		}
		result = append(result, info)
	}
	return result
}
