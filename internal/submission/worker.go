package submission

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/opencourse/problem-bank/internal/evaluator"
)

// evaluatorClient posts code to the external judge.
type evaluatorClient interface {
	Submit(ctx context.Context, req evaluator.SubmitRequest) error
}

// DispatchWorker drains queued code submissions to the evaluator. Dispatch is
// fire-and-forget from the submitter's perspective: a failed dispatch is
// retried once, then dropped with the submission left pending.
type DispatchWorker struct {
	client    evaluatorClient
	queue     <-chan evaluator.SubmitRequest
	logger    zerolog.Logger
	timeout   time.Duration
	shutdownC chan struct{}
}

func NewDispatchWorker(client evaluatorClient, queue <-chan evaluator.SubmitRequest, logger zerolog.Logger, timeout time.Duration) *DispatchWorker {
	if timeout <= 0 {
		timeout = 6 * time.Second
	}
	return &DispatchWorker{
		client:    client,
		queue:     queue,
		logger:    logger,
		timeout:   timeout,
		shutdownC: make(chan struct{}),
	}
}

func (w *DispatchWorker) Run() {
	for {
		select {
		case <-w.shutdownC:
			w.logger.Info().Msg("evaluator dispatcher stopping")
			return
		case req := <-w.queue:
			w.handle(req)
		}
	}
}

func (w *DispatchWorker) handle(req evaluator.SubmitRequest) {
	ctx, cancel := context.WithTimeout(context.Background(), w.timeout)
	defer cancel()

	err := w.client.Submit(ctx, req)
	if err == nil {
		return
	}
	w.logger.Warn().Err(err).Str("submission_id", req.SubmissionID.String()).Msg("evaluator dispatch failed, retrying")

	retryCtx, retryCancel := context.WithTimeout(context.Background(), w.timeout)
	defer retryCancel()
	if err := w.client.Submit(retryCtx, req); err != nil {
		w.logger.Error().Err(err).Str("submission_id", req.SubmissionID.String()).Msg("evaluator dispatch failed, submission stays pending")
	}
}

func (w *DispatchWorker) Stop() {
	close(w.shutdownC)
}
