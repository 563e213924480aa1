package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"

	"github.com/stitts-dev/nhl-cortex/pkg/utils"
)

// Job names
const (
	JobProjections = "projections"
	JobResults     = "results"
	JobInjuries    = "injuries"
)

const defaultJobTimeout = 30 * time.Minute

// JobFunc runs one job and returns its report
type JobFunc func(ctx context.Context) (interface{}, error)

type JobStatus struct {
	Name         string      `json:"name"`
	Schedule     string      `json:"schedule"`
	Running      bool        `json:"running"`
	NextRun      *time.Time  `json:"next_run,omitempty"`
	LastRun      *time.Time  `json:"last_run,omitempty"`
	LastDuration string      `json:"last_duration,omitempty"`
	LastError    string      `json:"last_error,omitempty"`
	LastReport   interface{} `json:"last_report,omitempty"`
}

type scheduledJob struct {
	name         string
	spec         string
	fn           JobFunc
	entryID      cron.EntryID
	running      bool
	lastRun      *time.Time
	lastDuration time.Duration
	lastErr      error
	lastReport   interface{}
}

// Scheduler runs the data jobs on cron schedules and on demand. A job never
// overlaps with itself; a trigger while it runs fails with ErrJobRunning.
type Scheduler struct {
	cron    *cron.Cron
	logger  *logrus.Logger
	timeout time.Duration

	mu        sync.Mutex
	isRunning bool
	jobs      map[string]*scheduledJob
	order     []string
}

func NewScheduler(logger *logrus.Logger) *Scheduler {
	return &Scheduler{
		cron: cron.New(
			cron.WithLocation(time.UTC),
			cron.WithChain(cron.Recover(cron.PrintfLogger(logger))),
		),
		logger:  logger,
		timeout: defaultJobTimeout,
		jobs:    make(map[string]*scheduledJob),
	}
}

// Register adds a job. An empty spec registers it for manual triggers only.
func (s *Scheduler) Register(name, spec string, fn JobFunc) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.jobs[name]; exists {
		return fmt.Errorf("job %s already registered: %w", name, utils.ErrConflict)
	}

	job := &scheduledJob{name: name, spec: spec, fn: fn}
	if spec != "" {
		id, err := s.cron.AddFunc(spec, func() {
			if _, err := s.run(context.Background(), name); err != nil {
				s.logger.WithField("job", name).Warnf("Scheduled run skipped or failed: %v", err)
			}
		})
		if err != nil {
			return fmt.Errorf("failed to schedule %s: %w", name, err)
		}
		job.entryID = id
	}

	s.jobs[name] = job
	s.order = append(s.order, name)
	return nil
}

func (s *Scheduler) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.isRunning {
		return fmt.Errorf("scheduler is already running")
	}
	s.cron.Start()
	s.isRunning = true

	s.logger.WithField("jobs", len(s.jobs)).Info("Scheduler started")
	return nil
}

// Stop halts scheduling and waits for in-flight jobs
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if !s.isRunning {
		s.mu.Unlock()
		return
	}
	s.isRunning = false
	s.mu.Unlock()

	ctx := s.cron.Stop()
	<-ctx.Done()
	s.logger.Info("Scheduler stopped")
}

// Trigger runs a job now and waits for it to finish
func (s *Scheduler) Trigger(ctx context.Context, name string) (interface{}, error) {
	return s.run(ctx, name)
}

func (s *Scheduler) run(ctx context.Context, name string) (interface{}, error) {
	s.mu.Lock()
	job, ok := s.jobs[name]
	if !ok {
		s.mu.Unlock()
		return nil, fmt.Errorf("job %s: %w", name, utils.ErrNotFound)
	}
	if job.running {
		s.mu.Unlock()
		return nil, fmt.Errorf("job %s: %w", name, utils.ErrJobRunning)
	}
	job.running = true
	s.mu.Unlock()

	log := s.logger.WithFields(logrus.Fields{
		"job":    name,
		"run_id": uuid.NewString(),
	})
	log.Info("Job started")

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	start := time.Now()
	report, err := job.fn(ctx)
	elapsed := time.Since(start)

	s.mu.Lock()
	job.running = false
	started := start.UTC()
	job.lastRun = &started
	job.lastDuration = elapsed
	job.lastErr = err
	job.lastReport = report
	s.mu.Unlock()

	if err != nil {
		log.WithField("duration", elapsed.String()).Errorf("Job failed: %v", err)
		return report, err
	}
	log.WithField("duration", elapsed.String()).Info("Job completed")
	return report, nil
}

// Status lists every job in registration order
func (s *Scheduler) Status() []JobStatus {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]JobStatus, 0, len(s.order))
	for _, name := range s.order {
		job := s.jobs[name]
		st := JobStatus{
			Name:       job.name,
			Schedule:   job.spec,
			Running:    job.running,
			LastRun:    job.lastRun,
			LastReport: job.lastReport,
		}
		if job.lastRun != nil {
			st.LastDuration = job.lastDuration.String()
		}
		if job.lastErr != nil {
			st.LastError = job.lastErr.Error()
		}
		if s.isRunning && job.entryID != 0 {
			if next := s.cron.Entry(job.entryID).Next; !next.IsZero() {
				st.NextRun = &next
			}
		}
		out = append(out, st)
	}
	return out
}

// JobSchedules holds the cron specs for the three data jobs
type JobSchedules struct {
	Projections string
	Results     string
	Injuries    string
}

// RegisterNHLJobs wires the ingestion services into the scheduler. Scheduled
// runs use the default dates: today for projections, yesterday for results.
func RegisterNHLJobs(s *Scheduler, schedules JobSchedules, ingest *ProjectionIngestService, results *ResultsService, guardian *InjuryGuardian) error {
	jobs := []struct {
		name string
		spec string
		fn   JobFunc
	}{
		{JobProjections, schedules.Projections, func(ctx context.Context) (interface{}, error) { return ingest.Run(ctx, "") }},
		{JobResults, schedules.Results, func(ctx context.Context) (interface{}, error) { return results.Run(ctx, "") }},
		{JobInjuries, schedules.Injuries, func(ctx context.Context) (interface{}, error) { return guardian.Run(ctx) }},
	}
	for _, j := range jobs {
		if err := s.Register(j.name, j.spec, j.fn); err != nil {
			return err
		}
	}
	return nil
}
