package session

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"reelforge/config"
	"reelforge/types"
)

const redisKeyPrefix = "reelforge:session:"

// RedisStore persists sessions as JSON blobs in Redis so they survive
// process restarts. The activity registry stays in-process: queues and
// export workers only live inside one process anyway.
type RedisStore struct {
	client   *redis.Client
	activity *Activity
	ttl      time.Duration
}

// NewRedisStoreFromEnv creates a RedisStore from REDIS_ADDR, REDIS_PASS,
// REDIS_DB and SESSION_TTL_SECONDS (0 means no expiry). Connectivity is
// verified with a ping.
func NewRedisStoreFromEnv(activity *Activity) (*RedisStore, error) {
	addr := config.GetEnvOrDefault("REDIS_ADDR", "localhost:6379")
	pass := config.GetEnvOrDefault("REDIS_PASS", "")
	db := 0
	if d := config.GetEnvOrDefault("REDIS_DB", ""); d != "" {
		if v, err := strconv.Atoi(d); err == nil {
			db = v
		}
	}
	var ttl time.Duration
	if t := config.GetEnvOrDefault("SESSION_TTL_SECONDS", ""); t != "" {
		if secs, err := strconv.Atoi(t); err == nil && secs > 0 {
			ttl = time.Duration(secs) * time.Second
		}
	}

	client := redis.NewClient(&redis.Options{Addr: addr, Password: pass, DB: db})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis at %s: %w", addr, err)
	}

	return &RedisStore{client: client, activity: activity, ttl: ttl}, nil
}

func (r *RedisStore) Get(ctx context.Context, id string) (*types.Session, error) {
	clean, err := SanitizeID(id)
	if err != nil {
		return nil, err
	}

	raw, err := r.client.Get(ctx, redisKeyPrefix+clean).Bytes()
	if err == redis.Nil {
		s := types.NewSession(clean)
		if err := r.Put(ctx, s); err != nil {
			return nil, err
		}
		return s, nil
	}
	if err != nil {
		return nil, fmt.Errorf("redis get %s: %w", clean, err)
	}

	var s types.Session
	if err := json.Unmarshal(raw, &s); err != nil {
		return nil, fmt.Errorf("decode session %s: %w", clean, err)
	}
	if s.Descriptions == nil {
		s.Descriptions = map[string]string{}
	}
	return &s, nil
}

func (r *RedisStore) Put(ctx context.Context, s *types.Session) error {
	clean, err := SanitizeID(s.ID)
	if err != nil {
		return err
	}
	s.ID = clean
	s.UpdatedAt = time.Now().UTC()

	raw, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("encode session %s: %w", clean, err)
	}
	if err := r.client.Set(ctx, redisKeyPrefix+clean, raw, r.ttl).Err(); err != nil {
		return fmt.Errorf("redis set %s: %w", clean, err)
	}
	return nil
}

func (r *RedisStore) Delete(ctx context.Context, id string, force bool) error {
	clean, err := SanitizeID(id)
	if err != nil {
		return err
	}
	if r.activity != nil && r.activity.Busy(clean) {
		if !force {
			return fmt.Errorf("delete %s: %w", clean, ErrSessionBusy)
		}
		r.activity.Abort(clean)
	}
	if err := r.client.Del(ctx, redisKeyPrefix+clean).Err(); err != nil {
		return fmt.Errorf("redis del %s: %w", clean, err)
	}
	return nil
}

func (r *RedisStore) List(ctx context.Context) ([]string, error) {
	var ids []string
	iter := r.client.Scan(ctx, 0, redisKeyPrefix+"*", 0).Iterator()
	for iter.Next(ctx) {
		ids = append(ids, iter.Val()[len(redisKeyPrefix):])
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("redis scan: %w", err)
	}
	return ids, nil
}
