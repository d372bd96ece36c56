// Package relay carries room broadcasts between server nodes.
package relay

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/vovakirdan/roomchat-server/internal/core"
)

// RedisRelay implements core.Relay over a Redis pub/sub channel.
type RedisRelay struct {
	client  *redis.Client
	channel string
	log     *zerolog.Logger
}

var _ core.Relay = (*RedisRelay)(nil)

// NewRedis connects to addr and verifies the server is reachable.
func NewRedis(ctx context.Context, addr, channel string, logger *zerolog.Logger) (*RedisRelay, error) {
	client := redis.NewClient(&redis.Options{Addr: addr})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping %s: %w", addr, err)
	}
	return NewRedisWithClient(client, channel, logger), nil
}

// NewRedisWithClient wraps an existing client.
func NewRedisWithClient(client *redis.Client, channel string, logger *zerolog.Logger) *RedisRelay {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	return &RedisRelay{client: client, channel: channel, log: logger}
}

// Publish sends env to every subscribed node.
func (r *RedisRelay) Publish(ctx context.Context, env core.RelayEnvelope) error {
	payload, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("marshal envelope: %w", err)
	}
	if err := r.client.Publish(ctx, r.channel, payload).Err(); err != nil {
		return fmt.Errorf("redis publish: %w", err)
	}
	return nil
}

// Subscribe delivers every envelope published on the channel until ctx is done.
// Undecodable payloads are logged and skipped.
func (r *RedisRelay) Subscribe(ctx context.Context, deliver func(core.RelayEnvelope)) error {
	sub := r.client.Subscribe(ctx, r.channel)
	defer sub.Close()

	if _, err := sub.Receive(ctx); err != nil {
		return fmt.Errorf("redis subscribe: %w", err)
	}

	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			var env core.RelayEnvelope
			if err := json.Unmarshal([]byte(msg.Payload), &env); err != nil {
				r.log.Warn().Err(err).Msg("dropping undecodable relay payload")
				continue
			}
			deliver(env)
		}
	}
}

// Close closes the Redis client.
func (r *RedisRelay) Close() error {
	return r.client.Close()
}
