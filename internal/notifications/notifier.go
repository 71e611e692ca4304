package notifications

import (
	"context"
	"log/slog"
	"runtime/debug"
	"strconv"

	"nodeback/internal/middleware"

	"github.com/redis/go-redis/v9"
)

const userChannelPrefix = "notifications:user:"

// UserChannel is the pub/sub channel carrying userID's live events.
func UserChannel(userID uint) string {
	return userChannelPrefix + strconv.FormatUint(uint64(userID), 10)
}

// Notifier publishes live events to Redis so every API instance can deliver
// them to its own connections.
type Notifier struct {
	rdb *redis.Client
}

// NewNotifier wraps rdb. A nil client makes every call a no-op.
func NewNotifier(rdb *redis.Client) *Notifier {
	return &Notifier{rdb: rdb}
}

// Enabled reports whether events travel through Redis.
func (n *Notifier) Enabled() bool {
	return n != nil && n.rdb != nil
}

// PublishUser sends payload to userID's channel.
func (n *Notifier) PublishUser(ctx context.Context, userID uint, payload []byte) error {
	if !n.Enabled() {
		return nil
	}
	if err := n.rdb.Publish(ctx, UserChannel(userID), payload).Err(); err != nil {
		middleware.RedisErrors.WithLabelValues("publish").Inc()
		return err
	}
	return nil
}

// Subscribe listens on every user channel until ctx is done. onMessage runs
// on the subscriber goroutine; a panic in it is logged and swallowed.
func (n *Notifier) Subscribe(ctx context.Context, onMessage func(channel, payload string)) error {
	if !n.Enabled() {
		return nil
	}
	sub := n.rdb.PSubscribe(ctx, userChannelPrefix+"*")
	// Wait for the subscription so publishes right after return are not lost.
	if _, err := sub.Receive(ctx); err != nil {
		_ = sub.Close()
		middleware.RedisErrors.WithLabelValues("psubscribe").Inc()
		return err
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
				dispatch(onMessage, msg)
			}
		}
	}()
	return nil
}

func dispatch(onMessage func(channel, payload string), msg *redis.Message) {
	defer func() {
		if r := recover(); r != nil {
			middleware.Logger.Error("panic in notification subscriber",
				slog.Any("panic", r),
				slog.String("stack", string(debug.Stack())),
			)
		}
	}()
	onMessage(msg.Channel, msg.Payload)
}
