package cache

import (
	"context"
	"encoding/json"
	"time"

	route "github.com/alexjamesmalcolm/optimize-thruster-route"
	"github.com/pkg/errors"
	redis "github.com/redis/go-redis/v9"
)

// Redis stores plans as JSON in Redis with an expiration.
type Redis struct {
	rdb *redis.Client
	ttl time.Duration
}

// NewRedis connects to the Redis server at url (redis://...). A zero ttl keeps plans forever.
func NewRedis(url string, ttl time.Duration) (*Redis, error) {
	opt, err := redis.ParseURL(url)
	if err != nil {
		return nil, errors.Wrap(err, "redis url")
	}
	return &Redis{rdb: redis.NewClient(opt), ttl: ttl}, nil
}

// Get implements the Cache interface.
func (r *Redis) Get(ctx context.Context, key string) (*route.Result, bool, error) {
	data, err := r.rdb.Get(ctx, r.keyName(key)).Bytes()
	if err == redis.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, errors.Wrap(err, "redis get")
	}
	var res route.Result
	if err := json.Unmarshal(data, &res); err != nil {
		return nil, false, errors.Wrap(err, "decoding cached plan")
	}
	return &res, true, nil
}

// Put implements the Cache interface.
func (r *Redis) Put(ctx context.Context, key string, res *route.Result) error {
	data, err := json.Marshal(res)
	if err != nil {
		return err
	}
	return errors.Wrap(r.rdb.Set(ctx, r.keyName(key), data, r.ttl).Err(), "redis set")
}

// Close releases the connection pool.
func (r *Redis) Close() error {
	return r.rdb.Close()
}

func (r *Redis) keyName(key string) string { return "plan:" + key }
