// Package redisstore keeps attendance ledgers in Redis.
//
// Each group uses two keys: a hash mapping label to the unix time of the first
// sighting, and a list of labels in arrival order. Both are written by one Lua
// script so concurrent writers never record a label twice.
package redisstore

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/kozaktomas/rollcall/internal/config"
	"github.com/kozaktomas/rollcall/internal/database"
	"github.com/redis/go-redis/v9"
)

const keyPrefix = "rollcall:attendance:"

var appendIfAbsent = redis.NewScript(`
local added = redis.call('HSETNX', KEYS[1], ARGV[1], ARGV[2])
if added == 1 then
	redis.call('RPUSH', KEYS[2], ARGV[1])
end
return added
`)

// Store is a Redis-backed database.LedgerStorage
type Store struct {
	client *redis.Client
}

// Connect establishes a connection to Redis
func Connect(ctx context.Context, cfg *config.RedisConfig) (*Store, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}
	return New(client), nil
}

// New wraps an existing client
func New(client *redis.Client) *Store {
	return &Store{client: client}
}

// The {group} hash tag keeps both keys of a group in one cluster slot.
func seenKey(group string) string { return keyPrefix + "{" + group + "}:seen" }
func logKey(group string) string  { return keyPrefix + "{" + group + "}:log" }

// ListLabels returns the labels recorded for a group
func (s *Store) ListLabels(ctx context.Context, group string) (map[string]struct{}, error) {
	keys, err := s.client.HKeys(ctx, seenKey(group)).Result()
	if err != nil {
		return nil, fmt.Errorf("error listing labels: %w", err)
	}
	labels := make(map[string]struct{}, len(keys))
	for _, k := range keys {
		labels[k] = struct{}{}
	}
	return labels, nil
}

// Append stores a record. A label already present keeps its first timestamp.
func (s *Store) Append(ctx context.Context, rec database.AttendanceRecord) error {
	_, err := s.AppendIfAbsent(ctx, rec)
	return err
}

// AppendIfAbsent records rec unless the label is already in the group's hash
func (s *Store) AppendIfAbsent(ctx context.Context, rec database.AttendanceRecord) (bool, error) {
	added, err := appendIfAbsent.Run(ctx, s.client,
		[]string{seenKey(rec.Group), logKey(rec.Group)},
		rec.Label, rec.RecordedAt.Unix(),
	).Int()
	if err != nil {
		return false, fmt.Errorf("error appending attendance: %w", err)
	}
	return added == 1, nil
}

// Records returns the group's records in arrival order
func (s *Store) Records(ctx context.Context, group string) ([]database.AttendanceRecord, error) {
	labels, err := s.client.LRange(ctx, logKey(group), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("error reading attendance log: %w", err)
	}
	if len(labels) == 0 {
		return nil, nil
	}

	stamps, err := s.client.HMGet(ctx, seenKey(group), labels...).Result()
	if err != nil {
		return nil, fmt.Errorf("error reading attendance times: %w", err)
	}

	records := make([]database.AttendanceRecord, 0, len(labels))
	for i, label := range labels {
		raw, ok := stamps[i].(string)
		if !ok {
			continue
		}
		sec, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid timestamp %q for %s: %w", raw, label, err)
		}
		records = append(records, database.AttendanceRecord{
			Group:      group,
			Label:      label,
			RecordedAt: time.Unix(sec, 0),
		})
	}
	return records, nil
}

// Close closes the Redis connection
func (s *Store) Close() error {
	return s.client.Close()
}
