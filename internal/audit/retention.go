package audit

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/familyspend/ExpenseTracker/internal/log"
)

type Purger interface {
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}

// RetentionJob deletes entries older than the retention window.
type RetentionJob struct {
	purger    Purger
	retention time.Duration
	logger    *log.Logger
	now       func() time.Time
}

func NewRetentionJob(purger Purger, retentionDays int, logger *log.Logger) *RetentionJob {
	return &RetentionJob{
		purger:    purger,
		retention: time.Duration(retentionDays) * 24 * time.Hour,
		logger:    logger.WithComponent(log.ComponentScheduler),
		now:       time.Now,
	}
}

func (j *RetentionJob) Run(ctx context.Context) (int64, error) {
	cutoff := j.now().UTC().Add(-j.retention)
	deleted, err := j.purger.DeleteOlderThan(ctx, cutoff)
	if err != nil {
		j.logger.ErrorContext(ctx, "access log cleanup failed", log.FieldError, err)
		return 0, err
	}
	j.logger.InfoContext(ctx, "access log cleanup finished", "deleted", deleted, "cutoff", cutoff)
	return deleted, nil
}

// Schedule registers the job on c. The cron is started by the caller.
func (j *RetentionJob) Schedule(c *cron.Cron, spec string) (cron.EntryID, error) {
	return c.AddFunc(spec, func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
		defer cancel()
		j.Run(ctx)
	})
}
