package notify

import (
	"context"
	"sync"
	"testing"
	"time"

	"metastore/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingNotifier struct {
	mu    sync.Mutex
	calls []string
	done  chan struct{}
}

func newRecordingNotifier(expect int) *recordingNotifier {
	return &recordingNotifier{done: make(chan struct{}, expect)}
}

func (r *recordingNotifier) NotifyBatchCommitted(tenant string, headers []model.Header) {
	r.mu.Lock()
	r.calls = append(r.calls, tenant)
	r.mu.Unlock()
	r.done <- struct{}{}
}

func (r *recordingNotifier) wait(t *testing.T, n int) {
	t.Helper()
	for i := 0; i < n; i++ {
		select {
		case <-r.done:
		case <-time.After(2 * time.Second):
			t.Fatalf("timed out waiting for notification %d/%d", i+1, n)
		}
	}
}

func TestAsyncDispatcherDeliversToWrappedNotifier(t *testing.T) {
	rec := newRecordingNotifier(3)
	d := NewAsyncDispatcher(context.Background(), rec, 2)

	d.NotifyBatchCommitted("ACME", []model.Header{{ObjectID: "a"}})
	d.NotifyBatchCommitted("ACME", []model.Header{{ObjectID: "b"}})
	d.NotifyBatchCommitted("OTHER", []model.Header{{ObjectID: "c"}})

	rec.wait(t, 3)

	rec.mu.Lock()
	defer rec.mu.Unlock()
	assert.Len(t, rec.calls, 3)
}

type panickingNotifier struct {
	done chan struct{}
}

func (p panickingNotifier) NotifyBatchCommitted(tenant string, headers []model.Header) {
	defer close(p.done)
	panic("downstream notifier exploded")
}

func TestAsyncDispatcherSwallowsPanic(t *testing.T) {
	p := panickingNotifier{done: make(chan struct{})}
	d := NewAsyncDispatcher(context.Background(), p, 1)

	d.NotifyBatchCommitted("ACME", nil)

	select {
	case <-p.done:
	case <-time.After(2 * time.Second):
		t.Fatal("panicking notifier never ran")
	}
	require.NoError(t, d.g.Wait())
}

func TestLogNotifierNeverFails(t *testing.T) {
	var n Notifier = LogNotifier{}
	n.NotifyBatchCommitted("ACME", []model.Header{{ObjectID: "a"}})
}
