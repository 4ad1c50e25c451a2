package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/guildsync/backend/internal/models"
)

const (
	presenceTTL = 24 * time.Hour
	termsTTL    = time.Minute
	termsKey    = "blocked_terms"
)

// RedisClient caches last-known vendor presence and the blocked-term list.
// Both caches are best-effort: a Redis failure degrades to the underlying
// source, never to an error on the caller.
type RedisClient struct {
	client *redis.Client
	ctx    context.Context
	logger zerolog.Logger
}

// NewRedisClient creates a new Redis client
func NewRedisClient(addr, password string, db int, logger zerolog.Logger) (*RedisClient, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	ctx := context.Background()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return &RedisClient{
		client: client,
		ctx:    ctx,
		logger: logger,
	}, nil
}

// Close closes the Redis connection
func (r *RedisClient) Close() error {
	return r.client.Close()
}

// SetPresence remembers the last vendor presence reported for a member
func (r *RedisClient) SetPresence(memberID, status string) {
	key := fmt.Sprintf("presence:member:%s", memberID)
	if err := r.client.Set(r.ctx, key, status, presenceTTL).Err(); err != nil {
		r.logger.Warn().Err(err).Str("member_id", memberID).Msg("failed to cache presence")
	}
}

// GetPresence returns the last cached vendor presence for a member
func (r *RedisClient) GetPresence(memberID string) (string, bool) {
	key := fmt.Sprintf("presence:member:%s", memberID)
	status, err := r.client.Get(r.ctx, key).Result()
	if err == redis.Nil {
		return "", false
	}
	if err != nil {
		r.logger.Warn().Err(err).Str("member_id", memberID).Msg("failed to read cached presence")
		return "", false
	}
	return status, true
}

func (r *RedisClient) getTerms() ([]models.BlockedTerm, bool) {
	data, err := r.client.Get(r.ctx, termsKey).Result()
	if err == redis.Nil {
		return nil, false
	}
	if err != nil {
		r.logger.Warn().Err(err).Msg("failed to read cached terms")
		return nil, false
	}

	var terms []models.BlockedTerm
	if err := json.Unmarshal([]byte(data), &terms); err != nil {
		return nil, false
	}
	return terms, true
}

func (r *RedisClient) setTerms(terms []models.BlockedTerm) {
	data, err := json.Marshal(terms)
	if err != nil {
		return
	}
	if err := r.client.Set(r.ctx, termsKey, data, termsTTL).Err(); err != nil {
		r.logger.Warn().Err(err).Msg("failed to cache terms")
	}
}

// InvalidateTerms drops the cached term list after a mutation
func (r *RedisClient) InvalidateTerms() {
	if err := r.client.Del(r.ctx, termsKey).Err(); err != nil {
		r.logger.Warn().Err(err).Msg("failed to invalidate term cache")
	}
}

// TermSource provides the authoritative blocked-term list.
type TermSource interface {
	List() ([]models.BlockedTerm, error)
}

// CachedTerms layers the Redis term cache over an authoritative source so
// the message filter hot path avoids a database round trip per message.
type CachedTerms struct {
	redis  *RedisClient
	source TermSource
}

func NewCachedTerms(redis *RedisClient, source TermSource) *CachedTerms {
	return &CachedTerms{redis: redis, source: source}
}

// List returns the blocked-term set, preferring the cache
func (c *CachedTerms) List() ([]models.BlockedTerm, error) {
	if c.redis != nil {
		if terms, ok := c.redis.getTerms(); ok {
			return terms, nil
		}
	}

	terms, err := c.source.List()
	if err != nil {
		return nil, err
	}
	if c.redis != nil {
		c.redis.setTerms(terms)
	}
	return terms, nil
}

// Invalidate drops the cached list after a term mutation
func (c *CachedTerms) Invalidate() {
	if c.redis != nil {
		c.redis.InvalidateTerms()
	}
}
