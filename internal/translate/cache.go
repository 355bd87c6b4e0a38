package translate

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

const cacheKeyPrefix = "translation:"

// Translator is implemented by Provider and CachedTranslator.
type Translator interface {
	Translate(ctx context.Context, text, source, target string) (string, error)
}

// CachedTranslator keeps provider results in redis. Cache failures are
// logged and the provider is called as if the key was missing.
type CachedTranslator struct {
	next   Translator
	client *redis.Client
	ttl    time.Duration
	logger *slog.Logger
}

func NewCachedTranslator(next Translator, client *redis.Client, ttl time.Duration, logger *slog.Logger) *CachedTranslator {
	return &CachedTranslator{
		next:   next,
		client: client,
		ttl:    ttl,
		logger: logger.With("component", "translation_cache"),
	}
}

func (c *CachedTranslator) Translate(ctx context.Context, text, source, target string) (string, error) {
	key := cacheKey(text, source, target)

	cached, err := c.client.Get(ctx, key).Result()
	switch {
	case err == nil:
		return cached, nil
	case !errors.Is(err, redis.Nil):
		c.logger.Warn("cache lookup failed", "error", err)
	}

	translated, err := c.next.Translate(ctx, text, source, target)
	if err != nil {
		return "", err
	}

	if err := c.client.Set(ctx, key, translated, c.ttl).Err(); err != nil {
		c.logger.Warn("cache store failed", "error", err)
	}

	return translated, nil
}

func cacheKey(text, source, target string) string {
	sum := sha256.Sum256([]byte(source + "|" + target + "|" + text))
	return cacheKeyPrefix + hex.EncodeToString(sum[:])
}
