// Package notifications provides real-time notification delivery and management.
package notifications

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"
	"strconv"
	"strings"

	"socialnet/internal/middleware"
	"socialnet/internal/observability"

	"github.com/redis/go-redis/v9"
)

const (
	userChannelPrefix = "notifications:user:"
	broadcastChannel  = "notifications:broadcast"
)

// Notifier publishes events into Redis channels. A nil Redis client turns every
// publish into a no-op.
type Notifier struct {
	rdb    *redis.Client
	logger *slog.Logger
}

// NewNotifier creates a new Notifier instance using the provided Redis client.
func NewNotifier(rdb *redis.Client, logger *slog.Logger) *Notifier {
	return &Notifier{rdb: rdb, logger: observability.ServiceLogger(middleware.OrDefault(logger), "notifier")}
}

// PublishUser sends an event to a user's channel.
func (n *Notifier) PublishUser(ctx context.Context, userID uint, eventType string, payload any) error {
	if n.rdb == nil {
		return nil
	}
	data, err := EncodeEvent(eventType, payload)
	if err != nil {
		observability.EventsPublished.WithLabelValues(eventType, "error").Inc()
		return fmt.Errorf("encode %s event: %w", eventType, err)
	}
	err = n.rdb.Publish(ctx, UserChannel(userID), data).Err()
	observability.EventsPublished.WithLabelValues(eventType, observability.ResultLabel(err)).Inc()
	return err
}

// PublishBroadcast sends an event to every connected user.
func (n *Notifier) PublishBroadcast(ctx context.Context, eventType string, payload any) error {
	if n.rdb == nil {
		return nil
	}
	data, err := EncodeEvent(eventType, payload)
	if err != nil {
		return fmt.Errorf("encode %s event: %w", eventType, err)
	}
	return n.rdb.Publish(ctx, broadcastChannel, data).Err()
}

// StartPatternSubscriber subscribes to every user channel and the broadcast
// channel, calling onMessage for each message until ctx is cancelled.
func (n *Notifier) StartPatternSubscriber(ctx context.Context, onMessage func(channel, payload string)) error {
	if n.rdb == nil {
		return nil
	}
	sub := n.rdb.PSubscribe(ctx, userChannelPrefix+"*", broadcastChannel)
	// Wait for the subscription confirmation so publishes right after start are not lost.
	if _, err := sub.Receive(ctx); err != nil {
		_ = sub.Close()
		return fmt.Errorf("subscribe notifications: %w", err)
	}
	ch := sub.Channel()

	go func() {
		defer func() { _ = sub.Close() }()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				func() {
					defer func() {
						if r := recover(); r != nil {
							n.logger.Error("panic in notification subscriber",
								slog.Any("panic", r),
								slog.String("stack", string(debug.Stack())))
						}
					}()
					onMessage(msg.Channel, msg.Payload)
				}()
			}
		}
	}()

	return nil
}

// UserChannel derives the Redis channel name for a user.
func UserChannel(userID uint) string {
	return userChannelPrefix + strconv.FormatUint(uint64(userID), 10)
}

// ParseUserChannel extracts the user ID from a user channel name.
func ParseUserChannel(channel string) (uint, bool) {
	raw, ok := strings.CutPrefix(channel, userChannelPrefix)
	if !ok {
		return 0, false
	}
	id, err := strconv.ParseUint(raw, 10, 32)
	if err != nil || id == 0 {
		return 0, false
	}
	return uint(id), true
}
