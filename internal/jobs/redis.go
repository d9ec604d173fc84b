package jobs

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/go-redis/redis/v8"
)

// KeyPrefix namespaces job hashes in Redis.
const KeyPrefix = "musicetl:job:"

// hsetIfExists updates fields of an existing hash only. Returns 0 when the
// key is missing.
var hsetIfExists = redis.NewScript(`
if redis.call("exists", KEYS[1]) == 0 then
	return 0
end
redis.call("hset", KEYS[1], unpack(ARGV))
return 1
`)

// createIfAbsent writes a new hash. Returns 0 when the key already exists.
var createIfAbsent = redis.NewScript(`
if redis.call("exists", KEYS[1]) == 1 then
	return 0
end
redis.call("hset", KEYS[1], unpack(ARGV))
return 1
`)

// appendErrorLine appends ARGV[1] as a new line of the "errors" field.
var appendErrorLine = redis.NewScript(`
if redis.call("exists", KEYS[1]) == 0 then
	return 0
end
local cur = redis.call("hget", KEYS[1], "errors")
if cur == false or cur == "" then
	cur = ARGV[1]
else
	cur = cur .. "\n" .. ARGV[1]
end
redis.call("hset", KEYS[1], "errors", cur, "updated_at", ARGV[2])
return 1
`)

// Redis stores each job as a hash under KeyPrefix+id.
type Redis struct {
	client *redis.Client
	now    func() time.Time
}

// RedisOptions configures NewRedis.
type RedisOptions struct {
	Addr     string
	Password string
	DB       int
}

// NewRedis connects to Redis and verifies the connection with PING.
func NewRedis(ctx context.Context, opt RedisOptions) (*Redis, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     opt.Addr,
		Password: opt.Password,
		DB:       opt.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("jobs: redis ping %s: %w", opt.Addr, err)
	}
	return &Redis{client: client, now: time.Now}, nil
}

func (r *Redis) stamp() string { return r.now().UTC().Format(time.RFC3339Nano) }

func (r *Redis) Create(ctx context.Context, id, kind string) (Job, error) {
	now := r.stamp()
	ok, err := createIfAbsent.Run(ctx, r.client, []string{KeyPrefix + id},
		"id", id, "kind", kind, "status", string(StatusQueued), "progress", 0,
		"errors", "", "stats", "", "output", "", "created_at", now, "updated_at", now).Int()
	if err != nil {
		return Job{}, fmt.Errorf("jobs: create %s: %w", id, err)
	}
	if ok == 0 {
		return Job{}, fmt.Errorf("jobs: duplicate id %s", id)
	}
	return r.Get(ctx, id)
}

func (r *Redis) Get(ctx context.Context, id string) (Job, error) {
	h, err := r.client.HGetAll(ctx, KeyPrefix+id).Result()
	if err != nil {
		return Job{}, fmt.Errorf("jobs: get %s: %w", id, err)
	}
	if len(h) == 0 {
		return Job{}, ErrNotFound
	}
	j := Job{
		ID:     h["id"],
		Kind:   h["kind"],
		Status: Status(h["status"]),
		Errors: h["errors"],
		Output: h["output"],
	}
	j.Progress, _ = strconv.Atoi(h["progress"])
	if s := h["stats"]; s != "" {
		j.Stats = []byte(s)
	}
	j.CreatedAt, _ = time.Parse(time.RFC3339Nano, h["created_at"])
	j.UpdatedAt, _ = time.Parse(time.RFC3339Nano, h["updated_at"])
	return j, nil
}

func (r *Redis) set(ctx context.Context, id string, fields ...any) error {
	fields = append(fields, "updated_at", r.stamp())
	ok, err := hsetIfExists.Run(ctx, r.client, []string{KeyPrefix + id}, fields...).Int()
	if err != nil {
		return fmt.Errorf("jobs: update %s: %w", id, err)
	}
	if ok == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *Redis) SetStatus(ctx context.Context, id string, s Status) error {
	return r.set(ctx, id, "status", string(s))
}

func (r *Redis) SetProgress(ctx context.Context, id string, pct int) error {
	return r.set(ctx, id, "progress", clampProgress(pct))
}

func (r *Redis) AppendError(ctx context.Context, id, msg string) error {
	ok, err := appendErrorLine.Run(ctx, r.client, []string{KeyPrefix + id}, msg, r.stamp()).Int()
	if err != nil {
		return fmt.Errorf("jobs: append error %s: %w", id, err)
	}
	if ok == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *Redis) SetStats(ctx context.Context, id string, v any) error {
	raw, err := encodeStats(v)
	if err != nil {
		return err
	}
	return r.set(ctx, id, "stats", string(raw))
}

func (r *Redis) SetOutput(ctx context.Context, id, path string) error {
	return r.set(ctx, id, "output", path)
}

func (r *Redis) Close() error { return r.client.Close() }
