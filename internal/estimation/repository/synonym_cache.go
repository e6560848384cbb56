package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	synonymKeyPrefix  = "estimate:synonyms:" // estimate:synonyms:{normalized title}
	defaultSynonymTTL = 7 * 24 * time.Hour
)

// SynonymCache keeps the model's synonym list per normalized title in Redis.
type SynonymCache struct {
	client *redis.Client
	ttl    time.Duration
}

func NewSynonymCache(client *redis.Client, ttl time.Duration) *SynonymCache {
	if ttl <= 0 {
		ttl = defaultSynonymTTL
	}
	return &SynonymCache{client: client, ttl: ttl}
}

// Get returns the cached synonyms. ok is false on a cache miss.
func (c *SynonymCache) Get(ctx context.Context, title string) ([]string, bool, error) {
	data, err := c.client.Get(ctx, c.key(title)).Result()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to get synonyms: %w", err)
	}

	var names []string
	if err := json.Unmarshal([]byte(data), &names); err != nil {
		return nil, false, fmt.Errorf("failed to unmarshal synonyms: %w", err)
	}
	return names, true, nil
}

func (c *SynonymCache) Set(ctx context.Context, title string, names []string) error {
	data, err := json.Marshal(names)
	if err != nil {
		return fmt.Errorf("failed to marshal synonyms: %w", err)
	}
	if err := c.client.Set(ctx, c.key(title), data, c.ttl).Err(); err != nil {
		return fmt.Errorf("failed to set synonyms: %w", err)
	}
	return nil
}

func (c *SynonymCache) key(title string) string {
	return synonymKeyPrefix + title
}
