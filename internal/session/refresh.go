package session

import (
	"context"
	"sync"
)

// Refresh tracks one background fetch of a resume's saved analyses.
type Refresh struct {
	ResumeID string

	once sync.Once
	done chan struct{}
	err  error
}

func newRefresh(resumeID string) *Refresh {
	return &Refresh{ResumeID: resumeID, done: make(chan struct{})}
}

func completedRefresh(resumeID string, err error) *Refresh {
	r := newRefresh(resumeID)
	r.finish(err)
	return r
}

func (r *Refresh) finish(err error) {
	r.once.Do(func() {
		r.err = err
		close(r.done)
	})
}

// Done is closed when the fetch has completed, failed, or been superseded.
func (r *Refresh) Done() <-chan struct{} {
	return r.done
}

// Err returns the outcome once Done is closed. A superseded fetch reports a
// STALE_RESULT error and its list was not applied.
func (r *Refresh) Err() error {
	select {
	case <-r.done:
		return r.err
	default:
		return nil
	}
}

// Wait blocks until the fetch finishes or ctx is done.
func (r *Refresh) Wait(ctx context.Context) error {
	select {
	case <-r.done:
		return r.err
	case <-ctx.Done():
		return ctx.Err()
	}
}
