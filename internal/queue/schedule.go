package queue

import (
	"time"

	"github.com/robfig/cron"
)

// SweepInterval derives the gap between two ticks of a cron spec. It bounds
// the uniqueness window of sweep tasks.
func SweepInterval(spec string, from time.Time) (time.Duration, error) {
	schedule, err := cron.Parse(spec)
	if err != nil {
		return 0, err
	}
	first := schedule.Next(from)
	return schedule.Next(first).Sub(first), nil
}
