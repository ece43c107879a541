package app

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/opencourse/problem-bank/internal/auth/jwt"
	"github.com/opencourse/problem-bank/internal/category"
	"github.com/opencourse/problem-bank/internal/config"
	"github.com/opencourse/problem-bank/internal/db/repository"
	"github.com/opencourse/problem-bank/internal/evaluator"
	"github.com/opencourse/problem-bank/internal/leaderboard"
	"github.com/opencourse/problem-bank/internal/logging"
	"github.com/opencourse/problem-bank/internal/question"
	"github.com/opencourse/problem-bank/internal/server"
	"github.com/opencourse/problem-bank/internal/submission"
	"github.com/opencourse/problem-bank/internal/token"
	ws "github.com/opencourse/problem-bank/pkg/http/ws"
)

// Application aggregates shared infrastructure (DB, cache, HTTP server).
type Application struct {
	cfg    *config.App
	logger zerolog.Logger

	pool  *pgxpool.Pool
	redis *redis.Client
	http  *http.Server

	dispatcher *submission.DispatchWorker
}

// New bootstraps configs, logger, Postgres, Redis and HTTP server.
func New(ctx context.Context, cfg *config.App) (*Application, error) {
	logger := logging.New(cfg.Name, cfg.Env)
	logger.Info().Msg("starting application bootstrap")

	connString := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s pool_max_conns=10",
		cfg.Postgres.Host, cfg.Postgres.Port, cfg.Postgres.User, cfg.Postgres.Password, cfg.Postgres.Database, cfg.Postgres.SSLMode)

	pool, err := pgxpool.New(ctx, connString)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}

	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		DB:       cfg.Redis.DB,
		PoolSize: cfg.Redis.PoolSize,
	})

	tokenManager := jwt.NewManager(jwt.TokenConfig{
		Secret: []byte(cfg.Security.JWTSecret),
		Issuer: cfg.Name,
	})

	categoryRepo := repository.NewCategoryRepository(pool)
	questionRepo := repository.NewQuestionRepository(pool)
	tokenRepo := repository.NewTokenValueRepository(pool)
	submissionRepo := repository.NewSubmissionRepository(pool)

	categorySvc := category.NewService(categoryRepo, logger)
	tokenSvc := token.NewService(tokenRepo, categorySvc, token.ServiceOptions{
		DefaultValue: cfg.Grading.DefaultTokenValue,
	}, logger)

	renderer := question.NewRenderer([]byte(cfg.Security.RenderHMACSecret))
	renderCache := question.NewCache(redisClient, cfg.Grading.RenderCacheTTL)
	questionSvc := question.NewService(
		questionRepo,
		tokenSvc,
		submissionRepo,
		renderer,
		renderCache,
		question.ServiceOptions{DefaultMaxSubmissions: cfg.Grading.DefaultMaxSubmissions},
		logger,
	)

	leaderboardSvc := leaderboard.NewService(redisClient, logger, leaderboard.ServiceOptions{
		TopN:           cfg.Leaderboard.TopN,
		RedisKeyPrefix: cfg.Leaderboard.KeyPrefix,
	})

	wsHub := ws.NewHub(logger)

	dispatchQueue := make(chan evaluator.SubmitRequest, cfg.Evaluator.QueueSize)
	evaluatorClient := evaluator.NewClient(cfg.Evaluator.URL, cfg.Evaluator.APIKey, &http.Client{
		Timeout: cfg.Evaluator.HTTPTimeout,
	})
	dispatcher := submission.NewDispatchWorker(evaluatorClient, dispatchQueue, logger, cfg.Evaluator.HTTPTimeout)

	submissionSvc := submission.NewService(
		submissionRepo,
		questionSvc,
		tokenSvc,
		renderer,
		leaderboardSvc,
		&hubNotifier{hub: wsHub, logger: logger},
		dispatchQueue,
		logger,
	)

	handlers := server.Handlers{
		Questions:   question.NewHTTPHandlers(questionSvc, logger),
		Submissions: submission.NewHTTPHandlers(submissionSvc, wsHub, cfg.Evaluator.CallbackKey, logger),
		Tokens:      token.NewHTTPHandlers(tokenSvc, logger),
		Categories:  category.NewHTTPHandlers(categorySvc, logger),
		Leaderboard: leaderboard.NewHTTPHandler(leaderboardSvc, logger),
	}

	apiServer := server.NewHTTPServer(cfg, logger, pool, redisClient, tokenManager, handlers)

	return &Application{
		cfg:        cfg,
		logger:     logger,
		pool:       pool,
		redis:      redisClient,
		http:       apiServer,
		dispatcher: dispatcher,
	}, nil
}

// Run starts the HTTP server and waits for termination signals.
func (a *Application) Run(ctx context.Context) error {
	errCh := make(chan error, 1)

	go a.dispatcher.Run()

	go func() {
		a.logger.Info().Str("addr", a.cfg.HTTPAddr).Msg("http server listening")
		if err := a.http.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		a.logger.Info().Str("signal", sig.String()).Msg("shutdown signal received")
	case err := <-errCh:
		return fmt.Errorf("http server error: %w", err)
	case <-ctx.Done():
		a.logger.Warn().Msg("context canceled")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.GracefulShutdownTimeout)
	defer cancel()

	if err := a.http.Shutdown(shutdownCtx); err != nil {
		a.logger.Error().Err(err).Msg("http shutdown error")
	}

	a.dispatcher.Stop()

	a.pool.Close()
	if err := a.redis.Close(); err != nil {
		a.logger.Error().Err(err).Msg("redis shutdown error")
	}

	a.logger.Info().Msg("shutdown complete")
	return nil
}

// hubNotifier pushes verdict notices to the submitting user's socket. Delivery
// is best effort; the submission detail endpoint remains the source of truth.
type hubNotifier struct {
	hub    *ws.Hub
	logger zerolog.Logger
}

func (n *hubNotifier) NotifyVerdict(userID uuid.UUID, notice submission.VerdictNotice) {
	payload, err := json.Marshal(ws.VerdictUpdatePayload{
		SubmissionID:  notice.SubmissionID.String(),
		QuestionID:    notice.QuestionID.String(),
		Verdict:       string(notice.Verdict),
		TokensAwarded: notice.TokensAwarded,
	})
	if err != nil {
		n.logger.Warn().Err(err).Msg("verdict payload marshal failed")
		return
	}
	if err := n.hub.SendToUser(userID, ws.Message{Type: ws.TypeVerdictUpdate, Payload: payload}); err != nil {
		if err != ws.ErrConnectionNotFound {
			n.logger.Warn().Err(err).Str("user_id", userID.String()).Msg("verdict push failed")
		}
	}
}
