// Copyright 2025 James Ross
package monitor

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// HotCache keeps each queue's most recent records in a Redis list for the
// admin API / TUI to query without reading back through compressed archive
// files.
type HotCache struct {
	client    *redis.Client
	maxLength int64
}

// NewHotCache wraps an existing Redis client (or a miniredis-backed one in
// tests). maxLength bounds how many records LTRIM keeps per queue.
func NewHotCache(client *redis.Client, maxLength int64) *HotCache {
	if maxLength <= 0 {
		maxLength = 500
	}
	return &HotCache{client: client, maxLength: maxLength}
}

func cacheKey(queue string) string { return "monitor:recent:" + queue }

// Push prepends rec onto queue's recent-records list and trims it to
// maxLength (spec §6's admin API serves "recent" records, not full history).
func (c *HotCache) Push(ctx context.Context, rec Record) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("monitor: marshal record for cache: %w", err)
	}

	key := cacheKey(rec.Queue)
	if err := c.client.LPush(ctx, key, data).Err(); err != nil {
		return fmt.Errorf("monitor: push record to hot cache: %w", err)
	}
	return c.client.LTrim(ctx, key, 0, c.maxLength-1).Err()
}

// Recent returns up to limit of queue's most recently pushed records,
// newest first.
func (c *HotCache) Recent(ctx context.Context, queue string, limit int64) ([]Record, error) {
	if limit <= 0 || limit > c.maxLength {
		limit = c.maxLength
	}

	raw, err := c.client.LRange(ctx, cacheKey(queue), 0, limit-1).Result()
	if err != nil {
		return nil, fmt.Errorf("monitor: read hot cache: %w", err)
	}

	records := make([]Record, 0, len(raw))
	for _, item := range raw {
		var rec Record
		if err := json.Unmarshal([]byte(item), &rec); err != nil {
			continue
		}
		records = append(records, rec)
	}
	return records, nil
}
