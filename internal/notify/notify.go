// Package notify models the "internal notifier" collaborator of spec.md
// section 5: batch writes fire a notification whose failure must never
// affect the caller's result. internal/service treats every Notifier as
// fire-and-forget.
package notify

import (
	"context"

	"golang.org/x/sync/errgroup"

	"metastore/internal/logger"
	"metastore/internal/model"
)

// Notifier receives a batch's resulting headers once its transaction has
// committed. Implementations must not block the caller and must not
// panic; AsyncDispatcher recovers a panicking Notifier anyway, as a last
// line of defense.
type Notifier interface {
	NotifyBatchCommitted(tenant string, headers []model.Header)
}

// LogNotifier is the no-op default: it logs at trace level and nothing
// else. It is always safe to construct and never fails.
type LogNotifier struct{}

func (LogNotifier) NotifyBatchCommitted(tenant string, headers []model.Header) {
	logger.TraceIf("notify", "tenant %s committed %d header(s)", tenant, len(headers))
}

// AsyncDispatcher wraps a Notifier in a bounded worker pool. Dispatch is
// fire-and-forget: once the pool has a free slot the call to
// NotifyBatchCommitted returns immediately, and the underlying Notifier
// runs on its own goroutine. While every slot is busy, the call waits
// for one to free up.
type AsyncDispatcher struct {
	next Notifier
	g    *errgroup.Group
}

// NewAsyncDispatcher starts a dispatcher with at most workers concurrent
// deliveries in flight. Cancelling ctx does not stop the pool: further
// dispatch attempts still accept work, subject to the same slot limit.
func NewAsyncDispatcher(ctx context.Context, next Notifier, workers int) *AsyncDispatcher {
	g, _ := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	return &AsyncDispatcher{next: next, g: g}
}

// NotifyBatchCommitted dispatches to the wrapped Notifier on a pool
// goroutine. A panic from the wrapped Notifier is logged and swallowed, per spec.md section 5 ("failure must not affect the
// caller's result").
func (d *AsyncDispatcher) NotifyBatchCommitted(tenant string, headers []model.Header) {
	d.g.Go(func() error {
		defer func() {
			if r := recover(); r != nil {
				logger.Warn("notify: recovered panic dispatching batch for tenant %s: %v", tenant, r)
			}
		}()
		d.next.NotifyBatchCommitted(tenant, headers)
		return nil
	})
}
