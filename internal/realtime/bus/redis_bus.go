package bus

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"

	"github.com/yungbote/riskwarning-backend/internal/platform/envutil"
	"github.com/yungbote/riskwarning-backend/internal/platform/logger"
)

const defaultChannel = "risk.assessment.completed"

type Config struct {
	Provider string `yaml:"provider"`
	// RedisAddr or NATSURL selects the transport; both empty disables the bus.
	RedisAddr string `yaml:"redis_addr"`
	NATSURL   string `yaml:"nats_url"`
	Channel   string `yaml:"channel"`
}

func ConfigFromEnv() Config {
	return Config{
		Provider:  strings.ToLower(envutil.String("BUS_PROVIDER", "")),
		RedisAddr: envutil.String("REDIS_ADDR", ""),
		NATSURL:   envutil.String("NATS_URL", ""),
		Channel:   envutil.String("REDIS_ASSESSMENT_CHANNEL", defaultChannel),
	}
}

// New picks a transport from cfg. It returns nil, nil when nothing is configured.
func New(log *logger.Logger, cfg Config) (Bus, error) {
	switch cfg.Provider {
	case "redis":
		return NewRedisBus(log, cfg)
	case "nats":
		return NewNATSBus(log, cfg)
	case "":
		if cfg.RedisAddr != "" {
			return NewRedisBus(log, cfg)
		}
		if cfg.NATSURL != "" {
			return NewNATSBus(log, cfg)
		}
		return nil, nil
	default:
		return nil, fmt.Errorf("unknown bus provider %q", cfg.Provider)
	}
}

type redisBus struct {
	log     *logger.Logger
	rdb     *goredis.Client
	channel string
}

func NewRedisBus(log *logger.Logger, cfg Config) (Bus, error) {
	if log == nil {
		return nil, fmt.Errorf("logger required")
	}
	addr := strings.TrimSpace(cfg.RedisAddr)
	if addr == "" {
		return nil, fmt.Errorf("missing REDIS_ADDR")
	}
	ch := strings.TrimSpace(cfg.Channel)
	if ch == "" {
		ch = defaultChannel
	}

	rdb := goredis.NewClient(&goredis.Options{
		Addr:        addr,
		DialTimeout: 5 * time.Second,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}

	return &redisBus{
		log:     log.With("service", "RedisAssessmentBus"),
		rdb:     rdb,
		channel: ch,
	}, nil
}

func (b *redisBus) PublishAssessmentCompleted(ctx context.Context, ev AssessmentCompleted) error {
	if b == nil || b.rdb == nil {
		return fmt.Errorf("redis bus not initialized")
	}
	raw, err := encodeEvent(ev)
	if err != nil {
		return err
	}
	return b.rdb.Publish(ctx, b.channel, raw).Err()
}

func (b *redisBus) Subscribe(ctx context.Context, onEvent func(ev AssessmentCompleted)) error {
	if b == nil || b.rdb == nil {
		return fmt.Errorf("redis bus not initialized")
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
				ev, err := decodeEvent([]byte(m.Payload))
				if err != nil {
					b.log.Warn("bad assessment event payload", "error", err)
					continue
				}
				onEvent(ev)
			}
		}
	}()

	return nil
}

func (b *redisBus) Close() error {
	if b == nil || b.rdb == nil {
		return nil
	}
	return b.rdb.Close()
}

func encodeEvent(ev AssessmentCompleted) ([]byte, error) {
	if ev.CompletedAt.IsZero() {
		ev.CompletedAt = time.Now().UTC()
	}
	return json.Marshal(ev)
}

func decodeEvent(raw []byte) (AssessmentCompleted, error) {
	var ev AssessmentCompleted
	if err := json.Unmarshal(raw, &ev); err != nil {
		return AssessmentCompleted{}, err
	}
	if ev.AssessmentID == uuid.Nil {
		return AssessmentCompleted{}, fmt.Errorf("missing assessment_id")
	}
	return ev, nil
}
