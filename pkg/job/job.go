// Package job runs periodic background tasks until their context is done.
package job

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"
	"sync"
	"time"

	"github.com/samandr77/microservices/account/pkg/logger"
)

type Func func(ctx context.Context) error

type task struct {
	name     string
	every    time.Duration
	deadline time.Duration
	run      Func
}

// Service is a small scheduler. Each registered task runs once at Start and
// then on every tick of its interval, never overlapping with itself.
type Service struct {
	mu    sync.Mutex
	tasks []task
	wg    sync.WaitGroup
}

func NewService() *Service {
	return &Service{}
}

// RegisterJob adds a task whose single run may take up to the interval.
func (s *Service) RegisterJob(name string, interval time.Duration, fn Func) *Service {
	return s.TryRegisterJob(true, name, interval, fn)
}

// TryRegisterJob is RegisterJob guarded by a feature switch. Disabled tasks
// and tasks with a non positive interval are ignored.
func (s *Service) TryRegisterJob(enabled bool, name string, interval time.Duration, fn Func) *Service {
	if !enabled || interval <= 0 {
		slog.Debug("job skipped", "job", name, "interval", interval)
		return s
	}

	s.mu.Lock()
	s.tasks = append(s.tasks, task{name: name, every: interval, deadline: interval, run: fn})
	s.mu.Unlock()

	return s
}

func (s *Service) Start(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ctx = logger.SetLogType(ctx, "job")

	for _, t := range s.tasks {
		s.wg.Add(1)

		go s.loop(ctx, t)
	}
}

// Stop blocks until every loop has observed the cancelled context.
func (s *Service) Stop() {
	s.wg.Wait()
}

func (s *Service) loop(ctx context.Context, t task) {
	defer s.wg.Done()

	l := slog.Default().With("job", t.name)

	ticker := time.NewTicker(t.every)
	defer ticker.Stop()

	for {
		s.runOnce(ctx, l, t)

		select {
		case <-ctx.Done():
			l.DebugContext(ctx, "job loop stopped")
			return
		case <-ticker.C:
		}
	}
}

func (s *Service) runOnce(ctx context.Context, l *slog.Logger, t task) {
	if ctx.Err() != nil {
		return
	}

	runCtx, cancel := context.WithTimeout(ctx, t.deadline)
	defer cancel()

	start := time.Now()

	err := safeRun(runCtx, t)
	took := time.Since(start)

	if err != nil {
		l.ErrorContext(ctx, "job failed", "error", err, "duration_ms", took.Milliseconds())
		return
	}

	l.DebugContext(ctx, "job done", "duration_ms", took.Milliseconds())
}

func safeRun(ctx context.Context, t task) (err error) {
	defer func() {
		if r := recover(); r != nil {
			slog.ErrorContext(ctx, "job panic", "job", t.name, "stack", string(debug.Stack()))
			err = fmt.Errorf("job %s panicked: %v", t.name, r)
		}
	}()

	return t.run(ctx)
}
