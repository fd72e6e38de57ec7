package redis_store

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/vmihailenco/msgpack/v5"
)

const dbKeyNetworkFee = "billing:network_fee"

// NetworkFee is the cached fee ratio together with when it was fetched,
// so consumers can tell a fresh value from a stale one.
type NetworkFee struct {
	Ratio     float64   `msgpack:"ratio"`
	FetchedAt time.Time `msgpack:"fetched_at"`
}

func GetNetworkFee(ctx context.Context, cmd redis.Cmdable) (*NetworkFee, error) {
	b, err := cmd.Get(ctx, dbKeyNetworkFee).Bytes()
	if err != nil {
		return nil, err
	}

	var v NetworkFee
	err = msgpack.Unmarshal(b, &v)
	if err != nil {
		return nil, err
	}

	return &v, nil
}

func SetNetworkFee(ctx context.Context, cmd redis.Cmdable, v *NetworkFee, ttl time.Duration) error {
	b, err := msgpack.Marshal(v)
	if err != nil {
		return err
	}

	return cmd.Set(ctx, dbKeyNetworkFee, b, ttl).Err()
}

func GetProofNonce(ctx context.Context, cmd redis.Cmdable, key string) (string, error) {
	n, err := cmd.Get(ctx, key).Result()
	if err != nil {
		return n, err
	}

	return n, err
}

func SetProofNonce(ctx context.Context, cmd redis.Cmdable, key, nonce string, expiration time.Duration) error {
	return cmd.Set(ctx, key, nonce, expiration).Err()
}
