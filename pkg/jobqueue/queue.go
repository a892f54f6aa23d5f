package jobqueue

import (
	"fmt"
	"slices"
	"time"

	"github.com/go-co-op/gocron/v2"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Queue runs one-shot jobs at a point in time. Jobs are identified by a
// caller-chosen key; scheduling a key again replaces the pending job.
type Queue struct {
	scheduler gocron.Scheduler
	logger    *zap.Logger
}

func New(logger *zap.Logger) (*Queue, error) {
	s, err := gocron.NewScheduler(
		gocron.WithLocation(time.UTC),
		gocron.WithGlobalJobOptions(gocron.WithEventListeners(
			gocron.AfterJobRunsWithError(func(_ uuid.UUID, jobName string, err error) {
				logger.Error("Job failed", zap.String("job", jobName), zap.Error(err))
			}),
			gocron.AfterJobRunsWithPanic(func(_ uuid.UUID, jobName string, recoverData any) {
				logger.Error("Job panicked", zap.String("job", jobName), zap.Any("panic", recoverData))
			}),
		)),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create scheduler: %w", err)
	}

	return &Queue{scheduler: s, logger: logger}, nil
}

// Schedule registers fn to run once at at. A time in the past runs as soon as
// the queue is started.
func (q *Queue) Schedule(key string, at time.Time, fn func()) error {
	q.scheduler.RemoveByTags(key)

	start := gocron.OneTimeJobStartImmediately()
	if at.After(time.Now()) {
		start = gocron.OneTimeJobStartDateTime(at)
	}

	_, err := q.scheduler.NewJob(
		gocron.OneTimeJob(start),
		gocron.NewTask(fn),
		gocron.WithName(key),
		gocron.WithTags(key),
	)
	if err != nil {
		return fmt.Errorf("failed to schedule %s: %w", key, err)
	}

	q.logger.Debug("Job scheduled", zap.String("job", key), zap.Time("at", at))
	return nil
}

// Cancel removes the job for key. Unknown or already fired keys are ignored.
func (q *Queue) Cancel(key string) {
	q.scheduler.RemoveByTags(key)
}

// Has reports whether a job is registered for key.
func (q *Queue) Has(key string) bool {
	for _, job := range q.scheduler.Jobs() {
		if slices.Contains(job.Tags(), key) {
			return true
		}
	}
	return false
}

func (q *Queue) Start() {
	q.scheduler.Start()
	q.logger.Info("Job queue started")
}

// Shutdown stops the scheduler and waits for running jobs.
func (q *Queue) Shutdown() error {
	if err := q.scheduler.Shutdown(); err != nil {
		return fmt.Errorf("failed to stop scheduler: %w", err)
	}
	q.logger.Info("Job queue stopped")
	return nil
}
