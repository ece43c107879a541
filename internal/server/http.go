package server

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/opencourse/problem-bank/internal/auth"
	"github.com/opencourse/problem-bank/internal/auth/jwt"
	"github.com/opencourse/problem-bank/internal/category"
	"github.com/opencourse/problem-bank/internal/config"
	"github.com/opencourse/problem-bank/internal/leaderboard"
	"github.com/opencourse/problem-bank/internal/question"
	"github.com/opencourse/problem-bank/internal/submission"
	"github.com/opencourse/problem-bank/internal/token"
)

// Handlers aggregates the per-domain HTTP handlers the server routes to.
type Handlers struct {
	Questions   *question.HTTPHandlers
	Submissions *submission.HTTPHandlers
	Tokens      *token.HTTPHandlers
	Categories  *category.HTTPHandlers
	Leaderboard *leaderboard.HTTPHandler
}

// NewHTTPServer wires all routes for the API service. Every /v1 route sits
// behind the optional-auth middleware; teacher-only routes add RequireTeacher.
func NewHTTPServer(cfg *config.App, logger zerolog.Logger, pool *pgxpool.Pool, redis *redis.Client, tokens *jwt.Manager, h Handlers) *http.Server {
	mux := http.NewServeMux()

	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	mux.Handle("/metrics", promhttp.Handler())

	mux.HandleFunc("GET /v1/ping", func(w http.ResponseWriter, r *http.Request) {
		if err := pingDependencies(r.Context(), pool, redis); err != nil {
			logger.Error().Err(err).Msg("dependency ping failed")
			http.Error(w, "upstream error", http.StatusBadGateway)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"pong":true}`))
	})

	// Question authoring and browsing
	mux.HandleFunc("POST /v1/questions", h.Questions.HandleCreate)
	mux.HandleFunc("GET /v1/questions", h.Questions.HandleList)
	mux.HandleFunc("GET /v1/questions/{id}", h.Questions.HandleGet)
	mux.HandleFunc("PUT /v1/questions/{id}", h.Questions.HandleUpdate)
	mux.HandleFunc("GET /v1/problems", h.Questions.HandleProblemSet)

	// Submissions
	mux.HandleFunc("POST /v1/questions/{id}/submissions", h.Submissions.HandleSubmit)
	mux.HandleFunc("GET /v1/questions/{id}/submissions", h.Submissions.HandleListForQuestion)
	mux.HandleFunc("GET /v1/submissions/{id}", h.Submissions.HandleGet)
	mux.HandleFunc("POST /v1/evaluations/callback", h.Submissions.HandleEvaluatorCallback)
	mux.HandleFunc("GET /ws/verdicts", h.Submissions.HandleVerdictSocket)

	// Reward table (teacher only)
	mux.Handle("GET /v1/token-values", auth.RequireTeacher(http.HandlerFunc(h.Tokens.HandleGetTable)))
	mux.Handle("PUT /v1/token-values", auth.RequireTeacher(http.HandlerFunc(h.Tokens.HandleUpdateTable)))

	// Categories and leaderboard
	mux.HandleFunc("GET /v1/categories", h.Categories.HandleList)
	mux.HandleFunc("GET /v1/leaderboards/tokens", h.Leaderboard.HandleGetTokens)

	handler := auth.Middleware(tokens, logger)(mux)
	handler = corsMiddleware(cfg.CORS)(handler)

	return &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: handler,
	}
}

func pingDependencies(ctx context.Context, pool *pgxpool.Pool, redis *redis.Client) error {
	if err := pool.Ping(ctx); err != nil {
		return err
	}
	if err := redis.Ping(ctx).Err(); err != nil {
		return err
	}
	return nil
}

func corsMiddleware(cfg config.CORS) func(http.Handler) http.Handler {
	origins := make(map[string]struct{}, len(cfg.AllowedOrigins))
	for _, o := range cfg.AllowedOrigins {
		origins[o] = struct{}{}
	}
	methods := strings.Join(cfg.AllowedMethods, ", ")
	headers := strings.Join(cfg.AllowedHeaders, ", ")
	maxAge := strconv.Itoa(cfg.MaxAge)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := r.Header.Get("Origin")
			if origin != "" {
				if _, ok := origins[origin]; ok {
					w.Header().Set("Access-Control-Allow-Origin", origin)
					w.Header().Set("Vary", "Origin")
					if cfg.AllowCredentials {
						w.Header().Set("Access-Control-Allow-Credentials", "true")
					}
				}
			}

			if r.Method == http.MethodOptions {
				w.Header().Set("Access-Control-Allow-Methods", methods)
				w.Header().Set("Access-Control-Allow-Headers", headers)
				w.Header().Set("Access-Control-Max-Age", maxAge)
				w.WriteHeader(http.StatusNoContent)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
