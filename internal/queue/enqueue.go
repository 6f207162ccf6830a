package queue

import (
	"errors"
	"time"

	"github.com/hibiken/asynq"
	config "github.com/maheshrc27/postflow/configs"
	job "github.com/maheshrc27/postflow/internal/jobs"
	"github.com/maheshrc27/postflow/internal/logger"
)

const sweepTimeoutSlack = time.Minute

type Enqueuer interface {
	Enqueue(task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

// SweepTimeout is the longest a sweep over a full batch may legitimately run:
// each round of concurrent posts can spend a refresh call, the slowest
// publish call and the terminal write.
func SweepTimeout(cfg config.Sweep, slowestPublish time.Duration) time.Duration {
	concurrency := max(cfg.PostConcurrency, 1)
	rounds := (max(cfg.BatchSize, 1) + concurrency - 1) / concurrency
	perPost := cfg.PlatformCallTimeout + max(cfg.PlatformCallTimeout, slowestPublish) + job.CompleteTimeout
	return time.Duration(rounds)*perPost + sweepTimeoutSlack
}

// EnqueueSweep schedules one sweep. At most one sweep task exists per
// interval and a failed sweep is not retried; the next tick covers it. The
// timeout must cover a whole sweep, see SweepTimeout.
func EnqueueSweep(client Enqueuer, interval, timeout time.Duration) error {
	task := asynq.NewTask(TaskTypeSweepPosts, nil)

	info, err := client.Enqueue(task, asynq.Unique(interval), asynq.MaxRetry(0), asynq.Timeout(timeout))
	if errors.Is(err, asynq.ErrDuplicateTask) {
		logger.L().Debug("sweep already queued for this interval")
		return nil
	}
	if err != nil {
		return err
	}

	logger.L().Debugf("sweep task queued: %s", info.ID)
	return nil
}
