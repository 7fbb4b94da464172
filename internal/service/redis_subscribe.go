package service

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

const (
	resubscribeMinDelay = 100 * time.Millisecond
	resubscribeMaxDelay = 5 * time.Second
)

// subscribeLoop delivers every payload published on channel to handle until ctx ends. A
// broken subscription is closed and opened again after a capped exponential backoff.
func subscribeLoop(ctx context.Context, client *redis.Client, channel string, logger zerolog.Logger, handle func([]byte)) error {
	delay := resubscribeMinDelay
	for {
		err := receiveUntilError(ctx, client, channel, func(payload []byte) {
			delay = resubscribeMinDelay
			handle(payload)
		})
		if ctx.Err() != nil {
			return ctx.Err()
		}

		logger.Warn().Err(err).Str("channel", channel).Dur("retry_in", delay).Msg("redis subscription lost")
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
		if delay *= 2; delay > resubscribeMaxDelay {
			delay = resubscribeMaxDelay
		}
	}
}

func receiveUntilError(ctx context.Context, client *redis.Client, channel string, handle func([]byte)) error {
	sub := client.Subscribe(ctx, channel)
	defer func() { _ = sub.Close() }()

	for {
		msg, err := sub.ReceiveMessage(ctx)
		if err != nil {
			return err
		}
		handle([]byte(msg.Payload))
	}
}
