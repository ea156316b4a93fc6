package jobs

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"paycalc/internal/platform/metrics"
)

const (
	JobPayslipEmail  = "payslip_email"
	JobHolidayReload = "holiday_reload"
)

const queueSize = 128

type Service struct {
	logger    *zap.Logger
	metrics   *metrics.Collector
	queue     chan job
	schedules []schedule
	wg        sync.WaitGroup
}

type job struct {
	Type string
	Key  string
	Run  func(context.Context) error
}

type schedule struct {
	jobType  string
	interval time.Duration
	run      func(context.Context) error
}

func New(logger *zap.Logger, collector *metrics.Collector) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		logger:  logger,
		metrics: collector,
		queue:   make(chan job, queueSize),
	}
}

// Every registers a job that is enqueued once per interval after Start.
// Non-positive intervals are ignored.
func (s *Service) Every(jobType string, interval time.Duration, run func(context.Context) error) {
	if interval <= 0 {
		return
	}
	s.schedules = append(s.schedules, schedule{jobType: jobType, interval: interval, run: run})
}

func (s *Service) Start(ctx context.Context) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.worker(ctx)
	}()
	for _, sc := range s.schedules {
		sc := sc
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			s.schedule(ctx, sc)
		}()
	}
}

// Wait blocks until the worker and schedulers have returned after the
// Start context is cancelled.
func (s *Service) Wait() {
	s.wg.Wait()
}

// Enqueue queues a job for the background worker. It reports false and drops
// the job when the queue is full.
func (s *Service) Enqueue(jobType, key string, run func(context.Context) error) bool {
	select {
	case s.queue <- job{Type: jobType, Key: key, Run: run}:
		return true
	default:
		s.metrics.RecordJobDropped()
		s.logger.Warn("job queue full", zap.String("jobType", jobType), zap.String("key", key))
		return false
	}
}

func (s *Service) RunNow(ctx context.Context, jobType, key string, run func(context.Context) error) error {
	return s.runJob(ctx, job{Type: jobType, Key: key, Run: run})
}

func (s *Service) worker(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			if pending := len(s.queue); pending > 0 {
				s.logger.Warn("job worker stopped with pending jobs", zap.Int("pending", pending))
			}
			return
		case j := <-s.queue:
			_ = s.runJob(ctx, j)
		}
	}
}

func (s *Service) runJob(ctx context.Context, j job) error {
	started := time.Now()
	err := j.Run(ctx)
	s.metrics.RecordJob(err != nil)
	fields := []zap.Field{
		zap.String("jobType", j.Type),
		zap.String("key", j.Key),
		zap.Int64("durationMs", time.Since(started).Milliseconds()),
	}
	if err != nil {
		s.logger.Warn("job run failed", append(fields, zap.Error(err))...)
		return err
	}
	s.logger.Debug("job run completed", fields...)
	return nil
}

func (s *Service) schedule(ctx context.Context, sc schedule) {
	ticker := time.NewTicker(sc.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.Enqueue(sc.jobType, "", sc.run)
		}
	}
}
