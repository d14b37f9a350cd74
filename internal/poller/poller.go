package poller

import (
	"context"
	"log"
	"sort"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
)

// Task receives a context that is cancelled when the schedule stops or the
// run outlives its interval.
type Task func(ctx context.Context)

// Schedule owns the recurring tasks of one screen. Overlapping runs of the
// same task are skipped rather than queued.
type Schedule struct {
	cron   *cron.Cron
	ctx    context.Context
	cancel context.CancelFunc

	mu      sync.Mutex
	names   map[cron.EntryID]string
	started bool
	stopped bool
}

func New() *Schedule {
	ctx, cancel := context.WithCancel(context.Background())
	logger := cron.PrintfLogger(log.Default())
	return &Schedule{
		cron:   cron.New(cron.WithLogger(logger), cron.WithChain(cron.Recover(logger), cron.SkipIfStillRunning(logger))),
		ctx:    ctx,
		cancel: cancel,
		names:  make(map[cron.EntryID]string),
	}
}

// Every registers fn to run once per interval. Intervals under a second are
// rounded up to one second.
func (s *Schedule) Every(interval time.Duration, name string, fn Task) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopped {
		return
	}
	id := s.cron.Schedule(cron.Every(interval), cron.FuncJob(func() {
		ctx, cancel := context.WithTimeout(s.ctx, interval)
		defer cancel()
		if ctx.Err() != nil {
			return
		}
		fn(ctx)
	}))
	s.names[id] = name
}

func (s *Schedule) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.started || s.stopped {
		return
	}
	s.started = true
	s.cron.Start()
}

// Stop cancels in-flight runs and waits for them to return. It is safe to call
// more than once.
func (s *Schedule) Stop(ctx context.Context) error {
	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return nil
	}
	s.stopped = true
	s.mu.Unlock()

	s.cancel()
	done := s.cron.Stop()
	select {
	case <-done.Done():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *Schedule) Tasks() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	names := make([]string, 0, len(s.names))
	for _, name := range s.names {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
