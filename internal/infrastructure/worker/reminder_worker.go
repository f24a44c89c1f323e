package worker

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// DefaultReminderSchedule fires at 09:00 on weekdays
const DefaultReminderSchedule = "0 9 * * 1-5"

// ReminderSender performs one reminder sweep
type ReminderSender interface {
	SendReminders(ctx context.Context) (int, error)
}

// ReminderWorkerConfig holds configuration for the reminder worker
type ReminderWorkerConfig struct {
	Schedule   string
	Location   *time.Location
	RunTimeout time.Duration
}

// DefaultReminderWorkerConfig returns default configuration
func DefaultReminderWorkerConfig() ReminderWorkerConfig {
	return ReminderWorkerConfig{
		Schedule:   DefaultReminderSchedule,
		Location:   time.Local,
		RunTimeout: 2 * time.Minute,
	}
}

// ReminderWorker runs reminder sweeps on a cron schedule
type ReminderWorker struct {
	config ReminderWorkerConfig
	sender ReminderSender
	logger *zap.Logger

	mu        sync.RWMutex
	scheduler *cron.Cron
	ctx       context.Context
	cancel    context.CancelFunc
	isRunning bool
	lastRun   time.Time
	sentCount int
	lastError error
}

// NewReminderWorker validates the schedule and creates the worker
func NewReminderWorker(config ReminderWorkerConfig, sender ReminderSender, logger *zap.Logger) (*ReminderWorker, error) {
	if config.Schedule == "" {
		config.Schedule = DefaultReminderSchedule
	}
	if config.Location == nil {
		config.Location = time.Local
	}
	if config.RunTimeout <= 0 {
		config.RunTimeout = 2 * time.Minute
	}
	if _, err := cron.ParseStandard(config.Schedule); err != nil {
		return nil, fmt.Errorf("invalid reminder schedule %q: %w", config.Schedule, err)
	}

	return &ReminderWorker{
		config: config,
		sender: sender,
		logger: logger,
	}, nil
}

// Start registers the sweep with a new scheduler and starts it
func (w *ReminderWorker) Start(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.isRunning {
		return fmt.Errorf("reminder worker already running")
	}

	scheduler := cron.New(cron.WithLocation(w.config.Location))
	if _, err := scheduler.AddFunc(w.config.Schedule, w.runScheduled); err != nil {
		return fmt.Errorf("schedule reminders: %w", err)
	}

	w.ctx, w.cancel = context.WithCancel(ctx)
	w.scheduler = scheduler
	w.isRunning = true
	scheduler.Start()

	w.logger.Info("ReminderWorker started",
		zap.String("schedule", w.config.Schedule),
		zap.String("location", w.config.Location.String()))
	return nil
}

// Stop halts the scheduler and waits for a running sweep to finish
func (w *ReminderWorker) Stop() error {
	w.mu.Lock()
	if !w.isRunning {
		w.mu.Unlock()
		return nil
	}
	w.isRunning = false
	scheduler := w.scheduler
	cancel := w.cancel
	w.mu.Unlock()

	done := scheduler.Stop()
	if cancel != nil {
		cancel()
	}

	select {
	case <-done.Done():
	case <-time.After(w.config.RunTimeout):
		return fmt.Errorf("reminder sweep did not finish within %s", w.config.RunTimeout)
	}

	w.logger.Info("ReminderWorker stopped", zap.Int("sent_count", w.SentCount()))
	return nil
}

// Name returns the worker name for identification
func (w *ReminderWorker) Name() string {
	return "ReminderWorker"
}

func (w *ReminderWorker) runScheduled() {
	w.mu.RLock()
	ctx := w.ctx
	w.mu.RUnlock()
	if ctx == nil {
		ctx = context.Background()
	}
	if _, err := w.RunOnce(ctx); err != nil {
		w.logger.Error("Reminder sweep failed", zap.Error(err))
	}
}

// RunOnce performs a single sweep bounded by the run timeout
func (w *ReminderWorker) RunOnce(ctx context.Context) (int, error) {
	runCtx, cancel := context.WithTimeout(ctx, w.config.RunTimeout)
	defer cancel()

	sent, err := w.sender.SendReminders(runCtx)

	w.mu.Lock()
	w.lastRun = time.Now()
	w.sentCount += sent
	w.lastError = err
	w.mu.Unlock()

	if err != nil {
		return sent, err
	}
	w.logger.Debug("Reminder sweep finished", zap.Int("sent", sent))
	return sent, nil
}

// SentCount returns how many reminders were sent since construction
func (w *ReminderWorker) SentCount() int {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.sentCount
}

// LastError returns the error of the most recent sweep
func (w *ReminderWorker) LastError() error {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.lastError
}

// NextRun returns the next scheduled sweep, or zero when stopped
func (w *ReminderWorker) NextRun() time.Time {
	w.mu.RLock()
	defer w.mu.RUnlock()
	if !w.isRunning || w.scheduler == nil {
		return time.Time{}
	}
	entries := w.scheduler.Entries()
	if len(entries) == 0 {
		return time.Time{}
	}
	return entries[0].Next
}
