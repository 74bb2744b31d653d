package service

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// TaskFunc runs one cycle of a scheduled task. It returns the delay before
// the next cycle, or done to stop the task.
type TaskFunc func(ctx context.Context) (next time.Duration, done bool)

type scheduledTask struct {
	cancel context.CancelFunc
	wake   chan struct{}
}

// Scheduler runs cancellable repeating tasks keyed by id. Close is the single
// cancellation point for every task it started.
type Scheduler struct {
	mu     sync.Mutex
	ctx    context.Context
	cancel context.CancelFunc
	tasks  map[string]*scheduledTask
	wg     sync.WaitGroup
	log    zerolog.Logger
}

// NewScheduler creates an idle scheduler.
func NewScheduler(log zerolog.Logger) *Scheduler {
	ctx, cancel := context.WithCancel(context.Background())
	return &Scheduler{
		ctx:    ctx,
		cancel: cancel,
		tasks:  make(map[string]*scheduledTask),
		log:    log,
	}
}

// Schedule starts fn under key after delay. A key that is already scheduled
// is left alone; it reports whether a new task was started.
func (s *Scheduler) Schedule(key string, delay time.Duration, fn TaskFunc) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.ctx.Err() != nil {
		return false
	}
	if _, running := s.tasks[key]; running {
		return false
	}

	ctx, cancel := context.WithCancel(s.ctx)
	t := &scheduledTask{cancel: cancel, wake: make(chan struct{}, 1)}
	s.tasks[key] = t
	s.wg.Add(1)
	go s.run(ctx, key, t, delay, fn)
	return true
}

func (s *Scheduler) run(ctx context.Context, key string, t *scheduledTask, delay time.Duration, fn TaskFunc) {
	defer s.wg.Done()
	defer s.remove(key, t)

	timer := time.NewTimer(delay)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-timer.C:
		case <-t.wake:
			if !timer.Stop() {
				select {
				case <-timer.C:
				default:
				}
			}
		}

		next, done := fn(ctx)
		if done || ctx.Err() != nil {
			return
		}
		timer.Reset(next)
	}
}

// Wake runs the task under key now instead of waiting for its timer.
func (s *Scheduler) Wake(key string) bool {
	s.mu.Lock()
	t, ok := s.tasks[key]
	s.mu.Unlock()
	if !ok {
		return false
	}
	select {
	case t.wake <- struct{}{}:
	default:
	}
	return true
}

// Cancel stops the task under key.
func (s *Scheduler) Cancel(key string) {
	s.mu.Lock()
	t, ok := s.tasks[key]
	if ok {
		delete(s.tasks, key)
	}
	s.mu.Unlock()
	if ok {
		t.cancel()
	}
}

// Scheduled reports whether key has a live task.
func (s *Scheduler) Scheduled(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.tasks[key]
	return ok
}

// Len returns the number of live tasks.
func (s *Scheduler) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.tasks)
}

// Close cancels every task and waits for running cycles to return.
func (s *Scheduler) Close() {
	s.mu.Lock()
	s.cancel()
	n := len(s.tasks)
	s.mu.Unlock()

	s.wg.Wait()
	s.log.Debug().Int("tasks", n).Msg("scheduler closed")
}

func (s *Scheduler) remove(key string, t *scheduledTask) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if cur, ok := s.tasks[key]; ok && cur == t {
		delete(s.tasks, key)
	}
	t.cancel()
}
