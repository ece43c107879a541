package leaderboard

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// Entry represents a leaderboard record sent to clients.
type Entry struct {
	Rank   int       `json:"rank"`
	UserID uuid.UUID `json:"user_id"`
	Tokens int       `json:"tokens"`
}

// ServiceOptions configures leaderboard service behavior.
type ServiceOptions struct {
	TopN           int
	RedisKeyPrefix string
}

// Service maintains running token totals per user in a Redis sorted set.
// Totals are advisory; the junction table in Postgres stays the source of
// truth for grants.
type Service struct {
	redis  *redis.Client
	logger zerolog.Logger
	topN   int
	prefix string
}

// NewService constructs a leaderboard service instance.
func NewService(redis *redis.Client, logger zerolog.Logger, opts ServiceOptions) *Service {
	topN := opts.TopN
	if topN <= 0 {
		topN = 50
	}
	prefix := opts.RedisKeyPrefix
	if prefix == "" {
		prefix = "lb"
	}

	return &Service{
		redis:  redis,
		logger: logger.With().Str("component", "leaderboard").Logger(),
		topN:   topN,
		prefix: prefix,
	}
}

// Record adds freshly granted tokens to the user's running total.
func (s *Service) Record(ctx context.Context, userID uuid.UUID, tokens int) error {
	if tokens <= 0 {
		return nil
	}
	if err := s.redis.ZIncrBy(ctx, s.tokensKey(), float64(tokens), userID.String()).Err(); err != nil {
		return fmt.Errorf("update token leaderboard: %w", err)
	}
	return nil
}

// Top retrieves the top N users by token total.
func (s *Service) Top(ctx context.Context, limit int) ([]Entry, error) {
	if limit <= 0 || limit > s.topN {
		limit = s.topN
	}

	results, err := s.redis.ZRevRangeWithScores(ctx, s.tokensKey(), 0, int64(limit-1)).Result()
	if err != nil {
		return nil, fmt.Errorf("fetch leaderboard: %w", err)
	}

	entries := make([]Entry, 0, len(results))
	for i, z := range results {
		member, ok := z.Member.(string)
		if !ok {
			continue
		}
		userID, err := uuid.Parse(member)
		if err != nil {
			s.logger.Warn().Str("member", member).Msg("malformed leaderboard member")
			continue
		}
		entries = append(entries, Entry{
			Rank:   i + 1,
			UserID: userID,
			Tokens: int(z.Score),
		})
	}
	return entries, nil
}

func (s *Service) tokensKey() string {
	return fmt.Sprintf("%s:tokens", s.prefix)
}
