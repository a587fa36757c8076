package syncer

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/starford/granola-sync/internal/apperr"
)

// Scheduler triggers a sync pass every interval. A tick that arrives while
// the previous pass is still running is dropped.
type Scheduler struct {
	svc       *Service
	interval  time.Duration
	immediate bool
	logger    *slog.Logger
}

// NewScheduler creates a scheduler. With immediate set the first pass starts
// as soon as Run is called.
func NewScheduler(svc *Service, interval time.Duration, immediate bool, logger *slog.Logger) *Scheduler {
	return &Scheduler{svc: svc, interval: interval, immediate: immediate, logger: logger}
}

// Run blocks until ctx is done, then waits for an active pass to finish.
// A non-positive interval disables periodic passes.
func (sc *Scheduler) Run(ctx context.Context) error {
	var (
		mu      sync.Mutex
		stopped bool
		wg      sync.WaitGroup
	)
	job := cron.NewChain(
		cron.Recover(cronLogger{sc.logger}),
		cron.SkipIfStillRunning(cronLogger{sc.logger}),
	).Then(cron.FuncJob(func() {
		mu.Lock()
		if stopped {
			mu.Unlock()
			return
		}
		wg.Add(1)
		mu.Unlock()
		defer wg.Done()
		sc.trigger(ctx)
	}))

	c := cron.New(cron.WithLogger(cronLogger{sc.logger}))
	if sc.interval > 0 {
		c.Schedule(cron.Every(sc.interval), job)
		c.Start()
		sc.logger.Info("sync: scheduler started", slog.Duration("interval", sc.interval))
	}
	if sc.immediate {
		go job.Run()
	}

	<-ctx.Done()
	mu.Lock()
	stopped = true
	mu.Unlock()
	<-c.Stop().Done()
	wg.Wait()
	return nil
}

func (sc *Scheduler) trigger(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}
	_, err := sc.svc.Sync(ctx, false)
	if errors.Is(err, apperr.ErrSyncInProgress) {
		sc.logger.Debug("sync: scheduled pass skipped, run in progress")
	}
}

// cronLogger adapts slog to cron.Logger.
type cronLogger struct {
	logger *slog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...any) {
	l.logger.Debug("cron: "+msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...any) {
	l.logger.Error("cron: "+msg, append([]any{slog.String("error", err.Error())}, keysAndValues...)...)
}
