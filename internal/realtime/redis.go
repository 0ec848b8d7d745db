package realtime

import (
	"context"
	"encoding/json"

	"github.com/redis/go-redis/v9"

	"github.com/Windi-Fikriyansyah/homeman_be/internal/logger"
)

const EventsChannel = "homeman:events"

// NewRedis creates a Redis client; an empty addr means Redis is disabled.
func NewRedis(addr, password string) *redis.Client {
	if addr == "" {
		return nil
	}
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       0,
	})
	logger.L.Info("redis client created", "addr", addr)
	return rdb
}

// RedisNotifier publishes events so every API instance can deliver them to
// its own sockets. If publishing fails the event is still delivered locally.
type RedisNotifier struct {
	RDB     *redis.Client
	Hub     *Hub
	Channel string
}

func NewRedisNotifier(rdb *redis.Client, hub *Hub) *RedisNotifier {
	return &RedisNotifier{RDB: rdb, Hub: hub, Channel: EventsChannel}
}

func (n *RedisNotifier) Notify(ctx context.Context, ev Event) {
	b, err := json.Marshal(ev)
	if err == nil {
		err = n.RDB.Publish(ctx, n.Channel, b).Err()
	}
	if err != nil {
		logger.WithCtx(ctx).Warn("publish realtime event failed, delivering locally", "type", ev.Type, "error", err)
		n.Hub.Notify(ctx, ev)
	}
}

// Run relays published events into the local hub until ctx is cancelled.
func (n *RedisNotifier) Run(ctx context.Context) {
	sub := n.RDB.Subscribe(ctx, n.Channel)
	defer sub.Close()

	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			var ev Event
			if err := json.Unmarshal([]byte(msg.Payload), &ev); err != nil {
				logger.L.Warn("drop malformed realtime event", "error", err)
				continue
			}
			n.Hub.Notify(ctx, ev)
		}
	}
}
