package notifications

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// Runner executes notification side effects without holding up the request
// that triggered them. Only lossy work belongs here: counters and cascades are
// written inline by the handlers. Work is detached from the request context, bounded by a timeout and by
// the number of concurrent slots; when every slot is busy the work is dropped.
// Failures are only logged.
type Runner struct {
	slots   chan struct{}
	timeout time.Duration
	log     *logrus.Entry
	wg      sync.WaitGroup
}

func NewRunner(concurrency int, timeout time.Duration, log *logrus.Entry) *Runner {
	if concurrency < 1 {
		concurrency = 1
	}
	return &Runner{
		slots:   make(chan struct{}, concurrency),
		timeout: timeout,
		log:     log,
	}
}

// Go schedules fn. op and fields label the log entry on failure. It reports
// whether the work was accepted.
func (r *Runner) Go(op string, fields logrus.Fields, fn func(ctx context.Context) (int, error)) bool {
	entry := r.log.WithField("op", op).WithFields(fields)

	select {
	case r.slots <- struct{}{}:
	default:
		entry.Warn("side effect dropped, runner saturated")
		return false
	}

	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		defer func() { <-r.slots }()
		defer func() {
			if p := recover(); p != nil {
				entry.WithField("panic", fmt.Sprint(p)).Error("side effect panicked")
			}
		}()

		ctx, cancel := context.WithTimeout(context.Background(), r.timeout)
		defer cancel()

		n, err := fn(ctx)
		if err != nil {
			entry.WithError(err).Error("side effect failed")
			return
		}
		entry.WithField("affected", n).Debug("side effect done")
	}()
	return true
}

// Wait blocks until all accepted work has finished.
func (r *Runner) Wait() {
	r.wg.Wait()
}
