package resumable

import (
	"context"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
)

// maxRecordedErrors caps the diagnostic error slice so a long-running
// session with many failing chunks doesn't grow it without bound. The
// dropped-error counter stays accurate regardless of the cap.
const maxRecordedErrors = 1000

// defaultPollInterval is the bounded backoff a worker sleeps for after the
// task provider returns the sentinel (spec.md §4.4).
const defaultPollInterval = 100 * time.Millisecond

// TaskFunc is a deferred unit of work: probe then upload one chunk.
type TaskFunc func() error

// ProviderFunc returns the next ready task, or ok=false ("nothing ready
// right now"). It is invoked on a worker goroutine; the Scheduler
// guarantees at most one invocation runs at a time across all workers,
// which is what lets a "scan and pop" implementation (see session.go's
// nextTask) avoid locking the underlying Chunks itself (spec.md §4.4).
type ProviderFunc func() (TaskFunc, bool)

// Scheduler is a fixed-width worker pool. Workers repeatedly ask the task
// provider for the next unit of work and execute it; a caller may Join to
// block until every worker is simultaneously idle and the provider's most
// recent call returned the sentinel.
type Scheduler struct {
	width        int
	provider     ProviderFunc
	pollInterval time.Duration

	providerMu sync.Mutex

	idleMu    sync.Mutex
	idleCond  *sync.Cond
	idleCount int

	errMu         sync.Mutex
	errs          []error
	droppedErrors int64

	cancel context.CancelFunc
	group  *errgroup.Group
}

// NewScheduler creates a Scheduler with the given fixed width (minimum 1)
// and task provider. Call Start to spawn workers.
func NewScheduler(width int, provider ProviderFunc) *Scheduler {
	if width < 1 {
		width = 1
	}

	s := &Scheduler{
		width:        width,
		provider:     provider,
		pollInterval: defaultPollInterval,
	}
	s.idleCond = sync.NewCond(&s.idleMu)

	return s
}

// Start spawns width worker goroutines via an errgroup.Group, each running
// the poll-acquire-execute-backoff loop of spec.md §4.4 until Stop cancels
// the derived context. errgroup is used purely for goroutine lifecycle and
// fan-in — per-chunk task errors are recorded (Errors) rather than
// propagated through the group, so one failing chunk never cancels its
// siblings (spec.md §7).
func (s *Scheduler) Start(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	s.cancel = cancel

	g, gctx := errgroup.WithContext(ctx)
	s.group = g

	for range s.width {
		g.Go(func() error {
			s.worker(gctx)

			return nil
		})
	}
}

// worker runs until ctx is canceled: acquire the provider lock, request a
// task, release the lock, execute or back off.
func (s *Scheduler) worker(ctx context.Context) {
	for {
		if ctx.Err() != nil {
			return
		}

		task, ok := s.acquireTask()
		if ok {
			s.runTask(task)

			continue
		}

		s.markIdle()

		select {
		case <-ctx.Done():
			return
		case <-time.After(s.pollInterval):
		}

		s.markBusy()
	}
}

// acquireTask serializes access to the task provider so "scan and pop" is
// atomic with respect to other workers (spec.md §4.4, §4.5).
func (s *Scheduler) acquireTask() (TaskFunc, bool) {
	s.providerMu.Lock()
	defer s.providerMu.Unlock()

	return s.provider()
}

// runTask executes a task, recovering from and recording a panic so one
// bad task can't take down a worker goroutine, and recording any returned
// error for later inspection via Errors.
func (s *Scheduler) runTask(task TaskFunc) {
	defer func() {
		if r := recover(); r != nil {
			s.recordError(fmt.Errorf("resumable: panic executing task: %v", r))
		}
	}()

	if err := task(); err != nil {
		s.recordError(err)
	}
}

func (s *Scheduler) markIdle() {
	s.idleMu.Lock()
	s.idleCount++
	if s.idleCount == s.width {
		s.idleCond.Broadcast()
	}
	s.idleMu.Unlock()
}

func (s *Scheduler) markBusy() {
	s.idleMu.Lock()
	s.idleCount--
	s.idleMu.Unlock()
}

// Join blocks until every worker is simultaneously idle — i.e. the
// provider returned the sentinel on each worker's most recent call and no
// worker is mid-task (spec.md §4.4's join condition).
func (s *Scheduler) Join() {
	s.idleMu.Lock()
	defer s.idleMu.Unlock()

	for s.idleCount < s.width {
		s.idleCond.Wait()
	}
}

// Stop cancels all workers and waits for them to exit.
func (s *Scheduler) Stop() {
	if s.cancel != nil {
		s.cancel()
	}

	if s.group != nil {
		_ = s.group.Wait()
	}
}

// recordError appends err to the diagnostic list, capped at
// maxRecordedErrors; beyond the cap it only increments droppedErrors so the
// failure count stays meaningful without unbounded memory growth.
func (s *Scheduler) recordError(err error) {
	s.errMu.Lock()
	defer s.errMu.Unlock()

	if len(s.errs) >= maxRecordedErrors {
		s.droppedErrors++

		return
	}

	s.errs = append(s.errs, err)
}

// Errors returns a copy of the errors recorded so far and how many were
// dropped because the diagnostic list was full.
func (s *Scheduler) Errors() (errs []error, dropped int64) {
	s.errMu.Lock()
	defer s.errMu.Unlock()

	out := make([]error, len(s.errs))
	copy(out, s.errs)

	return out, s.droppedErrors
}
