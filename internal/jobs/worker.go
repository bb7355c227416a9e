package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"math"
	"time"

	"linkstudio/internal/pages"

	"github.com/rs/zerolog"
)

const DefaultPollInterval = 800 * time.Millisecond

// Queue is the job table as the worker sees it. *Repo implements it.
type Queue interface {
	Claim(ctx context.Context, workerID string) (*Job, error)
	MarkDone(ctx context.Context, id uint64) error
	MarkFailed(ctx context.Context, id uint64, errMsg string) error
	RetryLater(ctx context.Context, id uint64, attempts int, runAt time.Time, errMsg string) error
}

// ClickCounter applies one counted click to a page.
type ClickCounter interface {
	CountClick(ctx context.Context, pageID, linkID string) error
}

type Worker struct {
	ID       string
	Queue    Queue
	Clicks   ClickCounter
	Interval time.Duration
	Log      zerolog.Logger
}

func (w *Worker) Run(ctx context.Context) error {
	interval := w.Interval
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			job, err := w.Queue.Claim(ctx, w.ID)
			if err != nil {
				if ctx.Err() == nil {
					w.Log.Error().Err(err).Msg("claim job")
				}
				continue
			}
			if job == nil {
				continue
			}
			w.handle(ctx, job)
		}
	}
}

func (w *Worker) handle(ctx context.Context, job *Job) {
	switch job.Type {
	case TypeLinkClick:
		w.handleClick(ctx, job)
	default:
		w.status(job, w.Queue.MarkFailed(ctx, job.ID, "unknown job type"))
	}
}

func (w *Worker) handleClick(ctx context.Context, job *Job) {
	var p clickPayload
	if err := json.Unmarshal(job.Payload, &p); err != nil || p.PageID == "" || p.LinkID == "" {
		w.status(job, w.Queue.MarkFailed(ctx, job.ID, "bad payload"))
		return
	}

	err := w.Clicks.CountClick(ctx, p.PageID, p.LinkID)
	switch {
	case err == nil:
	case errors.Is(err, pages.ErrNotFound), errors.Is(err, pages.ErrLinkNotFound):
		// the page or link went away; nothing left to count
		w.Log.Debug().Str("page_id", p.PageID).Str("link_id", p.LinkID).Msg("click target gone")
	default:
		w.retry(ctx, job, err.Error())
		return
	}
	w.status(job, w.Queue.MarkDone(ctx, job.ID))
}

func (w *Worker) status(job *Job, err error) {
	if err != nil {
		w.Log.Error().Err(err).Uint64("job_id", job.ID).Msg("update job status")
	}
}

func (w *Worker) retry(ctx context.Context, job *Job, errMsg string) {
	attempts := job.Attempts + 1
	if attempts >= job.MaxAttempts {
		w.Log.Warn().Uint64("job_id", job.ID).Str("error", errMsg).Msg("job failed")
		w.status(job, w.Queue.MarkFailed(ctx, job.ID, errMsg))
		return
	}
	next := time.Now().Add(backoff(attempts))
	w.status(job, w.Queue.RetryLater(ctx, job.ID, attempts, next, errMsg))
}

func backoff(attempts int) time.Duration {
	sec := math.Min(math.Pow(2, float64(attempts)), 600)
	return time.Duration(sec) * time.Second
}
