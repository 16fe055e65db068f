package engine

import (
	"context"
	"sync"
	"time"

	"github.com/ternarybob/arbor"
)

// storeRetryBackoff is the delay before the single store-write retry.
const storeRetryBackoff = 250 * time.Millisecond

// storeFailureLimit and storeFailureWindow bound how much store trouble a
// session tolerates before failing.
const (
	storeFailureLimit  = 3
	storeFailureWindow = 30 * time.Second
)

// storeWriter retries a failed store write once with backoff and tracks
// failures over a sliding window. A write that fails both attempts counts
// as one failure; more than storeFailureLimit failures inside the window
// means the session must fail.
type storeWriter struct {
	mu       sync.Mutex
	failures []time.Time
	logger   arbor.ILogger
}

func newStoreWriter(logger arbor.ILogger) *storeWriter {
	return &storeWriter{logger: logger}
}

// Do runs the write, retrying once after a short backoff. The returned
// bool reports whether the failure budget is exhausted.
func (w *storeWriter) Do(ctx context.Context, op string, write func() error) (error, bool) {
	err := write()
	if err == nil {
		return nil, false
	}

	w.logger.Warn().Str("op", op).Err(err).Msg("Store write failed, retrying")
	select {
	case <-time.After(storeRetryBackoff):
	case <-ctx.Done():
		return ctx.Err(), false
	}

	if err = write(); err == nil {
		return nil, false
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	now := time.Now()
	cutoff := now.Add(-storeFailureWindow)
	kept := w.failures[:0]
	for _, t := range w.failures {
		if t.After(cutoff) {
			kept = append(kept, t)
		}
	}
	w.failures = append(kept, now)

	return err, len(w.failures) > storeFailureLimit
}
