package escalation

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/civicgrid/grievance-engine/internal/config"
)

// TaskHandler is one periodic scan executed by the scheduler.
type TaskHandler interface {
	Execute(ctx context.Context) error
	GetName() string
}

// Metrics records scheduler activity.
type Metrics interface {
	SchedulerTaskRan(task string, err bool)
}

type nopMetrics struct{}

func (nopMetrics) SchedulerTaskRan(string, bool) {}

// Scheduler runs the deadline scans on fixed cron schedules. A missed tick is
// harmless: deadlines are stored, not derived from elapsed ticks, so the next
// scan catches up.
type Scheduler struct {
	config  config.SchedulerConfig
	logger  *slog.Logger
	cron    *cron.Cron
	metrics Metrics

	tasksMutex sync.RWMutex
	tasks      map[string]*scheduledTask
}

type scheduledTask struct {
	name        string
	schedule    string
	handler     TaskHandler
	lastRun     time.Time
	runCount    int64
	errorCount  int64
	cronEntryID cron.EntryID
}

// Task pairs a scan handler with its cron schedule.
type Task struct {
	Schedule string
	Handler  TaskHandler
}

// NewScheduler creates a scheduler with the given scan handlers registered on
// their configured schedules.
func NewScheduler(cfg config.SchedulerConfig, logger *slog.Logger, metrics Metrics, tasks ...Task) (*Scheduler, error) {
	if metrics == nil {
		metrics = nopMetrics{}
	}
	scheduler := &Scheduler{
		config:  cfg,
		logger:  logger,
		cron:    cron.New(cron.WithLocation(time.UTC)),
		metrics: metrics,
		tasks:   make(map[string]*scheduledTask),
	}

	for _, t := range tasks {
		if err := scheduler.addTask(t.Handler, t.Schedule); err != nil {
			return nil, err
		}
	}
	return scheduler, nil
}

func (s *Scheduler) addTask(handler TaskHandler, schedule string) error {
	s.tasksMutex.Lock()
	defer s.tasksMutex.Unlock()

	task := &scheduledTask{
		name:     handler.GetName(),
		schedule: schedule,
		handler:  handler,
	}
	if _, exists := s.tasks[task.name]; exists {
		return fmt.Errorf("task %s already registered", task.name)
	}
	s.tasks[task.name] = task
	return nil
}

// Start schedules all tasks and starts the cron loop.
func (s *Scheduler) Start() error {
	s.tasksMutex.Lock()
	defer s.tasksMutex.Unlock()

	for _, task := range s.tasks {
		task := task
		entryID, err := s.cron.AddFunc(task.schedule, func() {
			s.executeTask(task)
		})
		if err != nil {
			return fmt.Errorf("failed to schedule task %s: %w", task.name, err)
		}
		task.cronEntryID = entryID
	}

	s.cron.Start()
	s.logger.Info("Escalation scheduler started", "tasks", len(s.tasks))
	return nil
}

// Stop stops the cron loop and waits for any in-flight scan to finish.
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	s.logger.Info("Escalation scheduler stopped")
}

// RunTaskNow executes a task immediately, outside its schedule. Used by the
// on-demand scan endpoint and by tests.
func (s *Scheduler) RunTaskNow(name string) error {
	s.tasksMutex.RLock()
	task, exists := s.tasks[name]
	s.tasksMutex.RUnlock()

	if !exists {
		return fmt.Errorf("task %s not found", name)
	}
	s.executeTask(task)
	return nil
}

// executeTask runs one scan tick. The per-tick context makes a hung scan
// cancellable without stopping the scheduler.
func (s *Scheduler) executeTask(task *scheduledTask) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	startTime := time.Now()
	task.lastRun = startTime
	task.runCount++

	err := task.handler.Execute(ctx)
	s.metrics.SchedulerTaskRan(task.name, err != nil)
	if err != nil {
		task.errorCount++
		s.logger.Error("Scheduled scan failed",
			"task", task.name,
			"error", err,
			"execution_time", time.Since(startTime))
		return
	}

	s.logger.Debug("Scheduled scan completed",
		"task", task.name,
		"execution_time", time.Since(startTime))
}

// Stats returns per-task run counters for the status endpoint.
func (s *Scheduler) Stats() map[string]map[string]interface{} {
	s.tasksMutex.RLock()
	defer s.tasksMutex.RUnlock()

	stats := make(map[string]map[string]interface{}, len(s.tasks))
	for name, task := range s.tasks {
		stats[name] = map[string]interface{}{
			"schedule":    task.schedule,
			"last_run":    task.lastRun,
			"run_count":   task.runCount,
			"error_count": task.errorCount,
		}
	}
	return stats
}
