package worker

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"trade-edge-lab/internal/observability"
)

// Runner dispatches scans to background goroutines.
type Runner struct {
	log     zerolog.Logger
	metrics *observability.Metrics
}

// RunnerOptions contains configuration for creating a Runner.
type RunnerOptions struct {
	Logger  zerolog.Logger
	Metrics *observability.Metrics // optional
}

// NewRunner creates a new background runner.
func NewRunner(opts RunnerOptions) *Runner {
	return &Runner{
		log:     opts.Logger.With().Str("component", "worker").Logger(),
		metrics: opts.Metrics,
	}
}

// Job is a scan running in the background.
type Job[T any] struct {
	ID   string
	Mode string

	token   *Token
	done    chan struct{}
	result  T
	current atomic.Int64
	total   atomic.Int64
	started time.Time
}

// Submit starts fn on a new goroutine and returns its job immediately.
// fn must poll the Control it receives before each unit of work. progress, if set,
// is called from the job goroutine after the job's own counters are updated.
// Runner methods cannot take type parameters, so Submit is a function.
func Submit[T any](r *Runner, mode string, progress ProgressFunc, fn func(Control) T) *Job[T] {
	job := &Job[T]{
		ID:      uuid.NewString(),
		Mode:    mode,
		token:   NewToken(),
		done:    make(chan struct{}),
		started: time.Now(),
	}

	ctl := Control{
		Token: job.token,
		Progress: func(current, total int) {
			job.total.Store(int64(total))
			// Progress never goes backwards.
			for {
				prev := job.current.Load()
				if int64(current) <= prev || job.current.CompareAndSwap(prev, int64(current)) {
					break
				}
			}
			r.log.Debug().Str("job_id", job.ID).Str("mode", mode).
				Int("current", current).Int("total", total).Msg("progress")
			if progress != nil {
				progress(current, total)
			}
		},
	}

	r.log.Info().Str("job_id", job.ID).Str("mode", mode).Msg("job started")
	r.metrics.SweepStarted()

	go func() {
		defer close(job.done)
		job.result = fn(ctl)

		status := observability.StatusCompleted
		if job.token.Cancelled() {
			status = observability.StatusCancelled
			r.log.Warn().Str("job_id", job.ID).Str("mode", mode).
				Int64("units", job.current.Load()).Int64("total", job.total.Load()).
				Msg("job cancelled, result truncated")
		} else {
			r.log.Info().Str("job_id", job.ID).Str("mode", mode).
				Int64("units", job.current.Load()).Dur("elapsed", time.Since(job.started)).
				Msg("job finished")
		}
		r.metrics.RecordSweep(mode, status, int(job.current.Load()), time.Since(job.started).Seconds())
	}()

	return job
}

// Cancel requests cancellation. The job still finishes with a truncated result.
func (j *Job[T]) Cancel() {
	j.token.Cancel()
}

// Cancelled reports whether Cancel was called.
func (j *Job[T]) Cancelled() bool {
	return j.token.Cancelled()
}

// Done is closed when the job has returned.
func (j *Job[T]) Done() <-chan struct{} {
	return j.done
}

// Progress returns the latest reported (current, total) pair.
func (j *Job[T]) Progress() (current, total int) {
	return int(j.current.Load()), int(j.total.Load())
}

// Wait blocks until the job finishes or ctx is done.
// The job keeps running if ctx ends first; call Cancel to stop it.
func (j *Job[T]) Wait(ctx context.Context) (T, error) {
	select {
	case <-j.done:
		return j.result, nil
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}
