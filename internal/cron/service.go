package cron

import (
	"context"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

const (
	defaultTickInterval  = time.Second
	defaultFlushInterval = 5 * time.Second
	jobIDLength          = 8
)

// Callback fires a due job. The returned string, when non-empty, is the
// agent's reply to the job message (logged, and delivered when the
// payload requests it).
type Callback func(ctx context.Context, job *Job) (string, error)

// Service is the event-driven scheduler over the persistent job store.
//
// A single wakeup event coalesces all "schedule changed" signals: the
// loop sleeps until the next job is due or a mutation wakes it early.
type Service struct {
	storePath string
	callback  Callback

	logger        *slog.Logger
	now           func() time.Time
	tickInterval  time.Duration
	flushInterval time.Duration

	mu    sync.Mutex
	store *Store

	running bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	wakeup  chan struct{}
}

// Option configures a Service.
type Option func(*Service)

// WithLogger sets the structured logger.
func WithLogger(l *slog.Logger) Option { return func(s *Service) { s.logger = l } }

// WithNow overrides the clock, for tests.
func WithNow(now func() time.Time) Option { return func(s *Service) { s.now = now } }

// WithTickInterval overrides the minimum sleep between scheduler passes.
func WithTickInterval(d time.Duration) Option { return func(s *Service) { s.tickInterval = d } }

// WithFlushInterval overrides the periodic store persistence interval.
func WithFlushInterval(d time.Duration) Option { return func(s *Service) { s.flushInterval = d } }

// NewService creates a scheduler persisting to storePath and firing
// due jobs through callback.
func NewService(storePath string, callback Callback, opts ...Option) *Service {
	s := &Service{
		storePath:     storePath,
		callback:      callback,
		logger:        slog.Default(),
		now:           time.Now,
		tickInterval:  defaultTickInterval,
		flushInterval: defaultFlushInterval,
		wakeup:        make(chan struct{}, 1),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Service) nowMs() int64 { return s.now().UnixMilli() }

// Start loads the store and launches the scheduler and flush loops.
// Idempotent.
func (s *Service) Start(ctx context.Context) {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return
	}
	s.running = true
	s.store = loadStore(s.storePath)
	s.recomputeAllLocked()
	jobCount := len(s.store.Jobs)
	s.mu.Unlock()

	runCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel

	s.wg.Add(2)
	go s.schedulerLoop(runCtx)
	go s.flushLoop(runCtx)

	s.logger.Info("cron scheduler started", "jobs", jobCount, "store", s.storePath)
}

// Stop cancels the background loops, waits for them, and persists the
// store a final time. Idempotent.
func (s *Service) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.running = false
	s.mu.Unlock()

	s.cancel()
	s.wg.Wait()

	s.mu.Lock()
	s.saveLocked()
	s.mu.Unlock()
	s.logger.Info("cron scheduler stopped")
}

func (s *Service) schedulerLoop(ctx context.Context) {
	defer s.wg.Done()

	for {
		now := s.nowMs()

		due := s.dueJobs(now)
		if len(due) > 0 {
			s.runJobs(ctx, due)
		}

		sleep := s.sleepInterval(now)
		timer := time.NewTimer(sleep)
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-s.wakeup:
			timer.Stop()
		case <-timer.C:
		}
	}
}

func (s *Service) flushLoop(ctx context.Context) {
	defer s.wg.Done()

	ticker := time.NewTicker(s.flushInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.mu.Lock()
			s.saveLocked()
			s.mu.Unlock()
		}
	}
}

// dueJobs returns enabled jobs whose next run has arrived, in
// insertion order.
func (s *Service) dueJobs(now int64) []*Job {
	s.mu.Lock()
	defer s.mu.Unlock()

	var due []*Job
	for _, j := range s.store.Jobs {
		if j.Enabled && j.State.NextRunAtMs > 0 && now >= j.State.NextRunAtMs {
			due = append(due, j)
		}
	}
	return due
}

func (s *Service) runJobs(ctx context.Context, jobs []*Job) {
	for _, job := range jobs {
		s.executeJob(ctx, job)
	}

	s.mu.Lock()
	s.recomputeAllLocked()
	s.mu.Unlock()
	s.signalWakeup()
}

// executeJob fires one job through the callback. Callback failures are
// recorded on the job, never propagated.
func (s *Service) executeJob(ctx context.Context, job *Job) {
	s.logger.Info("cron executing", "name", job.Name, "id", job.ID)
	start := s.nowMs()

	s.mu.Lock()
	job.State.LastStatus = StatusRunning
	s.mu.Unlock()

	_, err := s.callback(ctx, job)

	s.mu.Lock()
	defer s.mu.Unlock()

	if err != nil {
		job.State.LastStatus = StatusError
		job.State.LastError = err.Error()
		s.logger.Error("cron job failed", "name", job.Name, "id", job.ID, "error", err)
	} else {
		job.State.LastStatus = StatusOK
		job.State.LastError = ""
		s.logger.Info("cron job finished", "name", job.Name, "id", job.ID)
	}
	job.State.LastRunAtMs = start
	job.State.RunCount++
	job.UpdatedAtMs = s.nowMs()

	// One-shot jobs never fire twice.
	if job.Schedule.Kind == KindAt {
		if job.DeleteAfterRun {
			s.removeLocked(job.ID)
		} else {
			job.Enabled = false
			job.State.NextRunAtMs = 0
		}
	}
}

func (s *Service) recomputeAllLocked() {
	now := s.nowMs()
	for _, j := range s.store.Jobs {
		if j.Enabled {
			j.State.NextRunAtMs = computeNextRun(j.Schedule, now)
		}
	}
}

// sleepInterval picks how long to sleep before the next pass: until
// the earliest next run, but never less than the tick interval.
func (s *Service) sleepInterval(now int64) time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()

	var minNext int64
	for _, j := range s.store.Jobs {
		if j.Enabled && j.State.NextRunAtMs > 0 {
			if minNext == 0 || j.State.NextRunAtMs < minNext {
				minNext = j.State.NextRunAtMs
			}
		}
	}
	if minNext == 0 {
		return s.tickInterval
	}

	delay := time.Duration(minNext-now) * time.Millisecond
	if delay < s.tickInterval {
		return s.tickInterval
	}
	return delay
}

func (s *Service) signalWakeup() {
	select {
	case s.wakeup <- struct{}{}:
	default:
	}
}

func (s *Service) saveLocked() {
	if s.store == nil {
		return
	}
	if err := saveStore(s.storePath, s.store); err != nil {
		s.logger.Error("failed to persist cron store", "path", s.storePath, "error", err)
	}
}

func (s *Service) removeLocked(jobID string) bool {
	kept := s.store.Jobs[:0]
	removed := false
	for _, j := range s.store.Jobs {
		if j.ID == jobID {
			removed = true
			continue
		}
		kept = append(kept, j)
	}
	s.store.Jobs = kept
	return removed
}

// --- Public mutators ---

// AddJob validates and registers a new job, persists the store, and
// wakes the scheduler.
func (s *Service) AddJob(name string, schedule Schedule, payload Payload, deleteAfterRun bool) (*Job, error) {
	if err := ValidateSchedule(schedule); err != nil {
		return nil, err
	}
	if payload.Kind == "" {
		payload.Kind = PayloadAgentTurn
	}

	now := s.nowMs()
	job := &Job{
		ID:       uuid.NewString()[:jobIDLength],
		Name:     name,
		Enabled:  true,
		Schedule: schedule,
		Payload:  payload,
		State: JobState{
			NextRunAtMs: computeNextRun(schedule, now),
			LastStatus:  StatusPending,
		},
		CreatedAtMs:    now,
		UpdatedAtMs:    now,
		DeleteAfterRun: deleteAfterRun,
	}

	s.mu.Lock()
	if s.store == nil {
		s.store = loadStore(s.storePath)
	}
	s.store.Jobs = append(s.store.Jobs, job)
	s.saveLocked()
	s.mu.Unlock()
	s.signalWakeup()

	s.logger.Info("cron job added", "name", name, "id", job.ID)
	return job, nil
}

// RemoveJob deletes a job by id. Returns whether anything was removed.
func (s *Service) RemoveJob(jobID string) bool {
	s.mu.Lock()
	if s.store == nil {
		s.store = loadStore(s.storePath)
	}
	removed := s.removeLocked(jobID)
	if removed {
		s.saveLocked()
	}
	s.mu.Unlock()

	if removed {
		s.signalWakeup()
		s.logger.Info("cron job removed", "id", jobID)
	}
	return removed
}

// RunJob triggers a job immediately, regardless of its schedule.
func (s *Service) RunJob(ctx context.Context, jobID string) bool {
	s.mu.Lock()
	if s.store == nil {
		s.store = loadStore(s.storePath)
	}
	var target *Job
	for _, j := range s.store.Jobs {
		if j.ID == jobID {
			target = j
			break
		}
	}
	s.mu.Unlock()

	if target == nil {
		return false
	}
	s.executeJob(ctx, target)

	s.mu.Lock()
	s.recomputeAllLocked()
	s.saveLocked()
	s.mu.Unlock()
	s.signalWakeup()
	return true
}

// ListJobs returns jobs sorted by next run time (soonest first, jobs
// without a next run last).
func (s *Service) ListJobs(includeDisabled bool) []*Job {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.store == nil {
		s.store = loadStore(s.storePath)
	}

	var jobs []*Job
	for _, j := range s.store.Jobs {
		if includeDisabled || j.Enabled {
			jobs = append(jobs, j)
		}
	}
	sort.SliceStable(jobs, func(a, b int) bool {
		na, nb := jobs[a].State.NextRunAtMs, jobs[b].State.NextRunAtMs
		if na == 0 {
			return false
		}
		if nb == 0 {
			return true
		}
		return na < nb
	})
	return jobs
}
