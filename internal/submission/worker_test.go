package submission

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"

	"github.com/opencourse/problem-bank/internal/evaluator"
)

type fakeEvaluator struct {
	mu       sync.Mutex
	calls    []evaluator.SubmitRequest
	failures int
}

func (f *fakeEvaluator) Submit(_ context.Context, req evaluator.SubmitRequest) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, req)
	if f.failures > 0 {
		f.failures--
		return errors.New("evaluator unavailable")
	}
	return nil
}

func (f *fakeEvaluator) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not met in time")
}

func TestDispatchWorkerDelivers(t *testing.T) {
	client := &fakeEvaluator{}
	queue := make(chan evaluator.SubmitRequest, 4)
	worker := NewDispatchWorker(client, queue, zerolog.Nop(), time.Second)

	go worker.Run()
	defer worker.Stop()

	queue <- evaluator.SubmitRequest{SubmissionID: uuid.New(), Code: "class A {}"}
	waitFor(t, func() bool { return client.callCount() == 1 })
}

func TestDispatchWorkerRetriesOnce(t *testing.T) {
	client := &fakeEvaluator{failures: 1}
	queue := make(chan evaluator.SubmitRequest, 4)
	worker := NewDispatchWorker(client, queue, zerolog.Nop(), time.Second)

	go worker.Run()
	defer worker.Stop()

	queue <- evaluator.SubmitRequest{SubmissionID: uuid.New()}
	waitFor(t, func() bool { return client.callCount() == 2 })
}

func TestDispatchWorkerGivesUpAfterRetry(t *testing.T) {
	client := &fakeEvaluator{failures: 2}
	queue := make(chan evaluator.SubmitRequest, 4)
	worker := NewDispatchWorker(client, queue, zerolog.Nop(), time.Second)

	go worker.Run()
	defer worker.Stop()

	queue <- evaluator.SubmitRequest{SubmissionID: uuid.New()}
	queue <- evaluator.SubmitRequest{SubmissionID: uuid.New()}

	// First request: attempt + retry both fail; second request succeeds.
	waitFor(t, func() bool { return client.callCount() == 3 })
	assert.Equal(t, 3, client.callCount())
}
