package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"time"

	"github.com/bilgisen/newsdigest/internal/models"
	"github.com/redis/go-redis/v9"
)

// Redis stores digests as JSON strings indexed by a per-subscriber sorted set
// scored by creation time in milliseconds. Creation time comes from the redis
// server clock. Profiles are hashes with topic, tone and format fields, and
// the subscriber set lists every profile.
type Redis struct {
	client *redis.Client
	prefix string
}

func NewRedis(client *redis.Client, prefix string) *Redis {
	return &Redis{client: client, prefix: prefix}
}

func (r *Redis) digestKey(id string) string {
	return r.prefix + "digest:" + id
}

func (r *Redis) indexKey(subscriberID string) string {
	return r.prefix + "digests:" + subscriberID
}

func (r *Redis) profileKey(subscriberID string) string {
	return r.prefix + "profile:" + subscriberID
}

func (r *Redis) subscribersKey() string {
	return r.prefix + "subscribers"
}

// Append writes the document and its index entry in one MULTI/EXEC.
func (r *Redis) Append(ctx context.Context, d *models.Digest) (string, error) {
	if err := d.Validate(); err != nil {
		return "", fmt.Errorf("refusing to store digest: %w", err)
	}

	now, err := r.client.Time(ctx).Result()
	if err != nil {
		return "", fmt.Errorf("redis time error: %w", err)
	}
	stamp(d, now)

	data, err := json.Marshal(d)
	if err != nil {
		return "", fmt.Errorf("failed to marshal digest: %w", err)
	}

	_, err = r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, r.digestKey(d.ID), data, 0)
		pipe.ZAdd(ctx, r.indexKey(d.SubscriberID), redis.Z{
			Score:  float64(d.CreatedAt.UnixMilli()),
			Member: d.ID,
		})
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("redis write error: %w", err)
	}

	return d.ID, nil
}

func (r *Redis) LatestDigest(ctx context.Context, subscriberID string) (*models.Digest, error) {
	ids, err := r.client.ZRevRange(ctx, r.indexKey(subscriberID), 0, 0).Result()
	if err != nil {
		return nil, fmt.Errorf("redis index error: %w", err)
	}
	if len(ids) == 0 {
		return nil, nil
	}

	data, err := r.client.Get(ctx, r.digestKey(ids[0])).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("redis get error: %w", err)
	}

	var d models.Digest
	if err := json.Unmarshal(data, &d); err != nil {
		return nil, fmt.Errorf("error unmarshaling digest %s: %w", ids[0], err)
	}
	return &d, nil
}

func (r *Redis) ListDigests(ctx context.Context, subscriberID string, since time.Time) ([]*models.Digest, error) {
	ids, err := r.client.ZRevRangeByScore(ctx, r.indexKey(subscriberID), &redis.ZRangeBy{
		Min: strconv.FormatInt(since.UnixMilli(), 10),
		Max: "+inf",
	}).Result()
	if err != nil {
		return nil, fmt.Errorf("redis index error: %w", err)
	}
	if len(ids) == 0 {
		return []*models.Digest{}, nil
	}

	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = r.digestKey(id)
	}
	values, err := r.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("redis mget error: %w", err)
	}

	digests := make([]*models.Digest, 0, len(values))
	for i, v := range values {
		s, ok := v.(string)
		if !ok {
			continue
		}
		var d models.Digest
		if err := json.Unmarshal([]byte(s), &d); err != nil {
			return nil, fmt.Errorf("error unmarshaling digest %s: %w", ids[i], err)
		}
		digests = append(digests, &d)
	}
	return digests, nil
}

func (r *Redis) ListSubscribers(ctx context.Context) ([]string, error) {
	ids, err := r.client.SMembers(ctx, r.subscribersKey()).Result()
	if err != nil {
		return nil, fmt.Errorf("redis smembers error: %w", err)
	}
	sort.Strings(ids)
	return ids, nil
}

func (r *Redis) GetPreference(ctx context.Context, subscriberID string) (*models.Preference, error) {
	fields, err := r.client.HGetAll(ctx, r.profileKey(subscriberID)).Result()
	if err != nil {
		return nil, fmt.Errorf("redis hgetall error: %w", err)
	}
	if len(fields) == 0 {
		return nil, ErrNotFound
	}
	return &models.Preference{
		Topic:  fields["topic"],
		Tone:   fields["tone"],
		Format: fields["format"],
	}, nil
}
