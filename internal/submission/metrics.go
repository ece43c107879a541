package submission

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	submissionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "problembank_submissions_total",
		Help: "Submissions accepted, by question kind and verdict at insert time.",
	}, []string{"kind", "verdict"})

	rejectionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "problembank_submission_rejections_total",
		Help: "Submissions rejected before grading, by reason.",
	}, []string{"reason"})

	tokensAwardedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "problembank_tokens_awarded_total",
		Help: "Tokens granted for first-time correct submissions.",
	})

	verdictWritebacksTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "problembank_verdict_writebacks_total",
		Help: "Evaluator verdict write-backs, by outcome.",
	}, []string{"outcome"})
)
