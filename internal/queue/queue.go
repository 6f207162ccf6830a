package queue

import (
	"github.com/hibiken/asynq"
	job "github.com/maheshrc27/postflow/internal/jobs"
)

const TaskTypeSweepPosts = "posts:sweep"

// Queue runs sweeps handed to it by the asynq server.
type Queue struct {
	sweeper job.Sweeper
}

func NewQueue(sweeper job.Sweeper) *Queue {
	return &Queue{sweeper: sweeper}
}

func (q *Queue) Register(mux *asynq.ServeMux) {
	mux.HandleFunc(TaskTypeSweepPosts, q.HandleSweepTask)
}
