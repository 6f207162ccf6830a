package queue

import (
	"context"
	"fmt"

	"github.com/hibiken/asynq"
	"github.com/maheshrc27/postflow/internal/logger"
)

func (q *Queue) HandleSweepTask(ctx context.Context, task *asynq.Task) error {
	summary, err := q.sweeper.Sweep(ctx)
	if err != nil {
		logger.L().Errorf("sweep failed: %v", err)
		return fmt.Errorf("sweep failed: %w", err)
	}

	failed := 0
	for _, r := range summary.Results {
		if r.Error != "" {
			failed++
		}
	}
	logger.L().Infof("sweep task done: processed=%d errors=%d", summary.Processed, failed)
	return nil
}
