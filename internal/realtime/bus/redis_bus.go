package bus

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	goredis "github.com/redis/go-redis/v9"

	domainagg "github.com/yungbote/reforest-backend/internal/domain/aggregates"
	"github.com/yungbote/reforest-backend/internal/pkg/logger"
)

const DefaultChannel = "reforest.changes"

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	Channel  string
}

type redisBus struct {
	log     *logger.Logger
	rdb     goredis.UniversalClient
	channel string
	owned   bool
}

// NewRedisBus dials Redis and verifies the connection before returning.
func NewRedisBus(log *logger.Logger, cfg RedisConfig) (Bus, error) {
	if log == nil {
		return nil, fmt.Errorf("logger required")
	}
	addr := strings.TrimSpace(cfg.Addr)
	if addr == "" {
		return nil, fmt.Errorf("missing redis addr")
	}

	rdb := goredis.NewClient(&goredis.Options{
		Addr:        addr,
		Password:    cfg.Password,
		DB:          cfg.DB,
		DialTimeout: 5 * time.Second,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}

	b := newBus(log, rdb, cfg.Channel)
	b.owned = true
	return b, nil
}

// NewRedisBusWithClient publishes through an existing client, which the bus
// does not close.
func NewRedisBusWithClient(log *logger.Logger, rdb goredis.UniversalClient, channel string) (Bus, error) {
	if log == nil {
		return nil, fmt.Errorf("logger required")
	}
	if rdb == nil {
		return nil, fmt.Errorf("redis client required")
	}
	return newBus(log, rdb, channel), nil
}

func newBus(log *logger.Logger, rdb goredis.UniversalClient, channel string) *redisBus {
	ch := strings.TrimSpace(channel)
	if ch == "" {
		ch = DefaultChannel
	}
	return &redisBus{
		log:     log.With("service", "RedisChangeBus"),
		rdb:     rdb,
		channel: ch,
	}
}

func (b *redisBus) Publish(ctx context.Context, ev domainagg.ChangeEvent) error {
	if b == nil || b.rdb == nil {
		return fmt.Errorf("redis change bus not initialized")
	}
	raw, err := EncodeEvent(ev)
	if err != nil {
		return err
	}
	return b.rdb.Publish(ctx, b.channel, raw).Err()
}

func (b *redisBus) StartForwarder(ctx context.Context, onEvent func(ev domainagg.ChangeEvent)) error {
	if b == nil || b.rdb == nil {
		return fmt.Errorf("redis change bus not initialized")
	}
	if onEvent == nil {
		return fmt.Errorf("onEvent callback required")
	}

	sub := b.rdb.Subscribe(ctx, b.channel)

	// ensures subscription actually started
	if _, err := sub.Receive(ctx); err != nil {
		_ = sub.Close()
		return fmt.Errorf("redis subscribe: %w", err)
	}

	go func() {
		ch := sub.Channel()
		for {
			select {
			case <-ctx.Done():
				_ = sub.Close()
				return
			case m, ok := <-ch:
				if !ok || m == nil {
					_ = sub.Close()
					return
				}
				ev, err := DecodeEvent([]byte(m.Payload))
				if err != nil {
					b.log.Warn("bad redis change payload", "error", err)
					continue
				}
				onEvent(ev)
			}
		}
	}()

	return nil
}

func (b *redisBus) Close() error {
	if b == nil || b.rdb == nil || !b.owned {
		return nil
	}
	return b.rdb.Close()
}

func EncodeEvent(ev domainagg.ChangeEvent) ([]byte, error) {
	if strings.TrimSpace(ev.Action) == "" {
		return nil, fmt.Errorf("change event without action")
	}
	return json.Marshal(ev)
}

func DecodeEvent(raw []byte) (domainagg.ChangeEvent, error) {
	var ev domainagg.ChangeEvent
	if err := json.Unmarshal(raw, &ev); err != nil {
		return ev, err
	}
	if strings.TrimSpace(ev.Action) == "" {
		return ev, fmt.Errorf("change event without action")
	}
	return ev, nil
}
