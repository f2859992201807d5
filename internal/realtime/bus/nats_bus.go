package bus

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/yungbote/riskwarning-backend/internal/platform/logger"
)

type natsBus struct {
	log     *logger.Logger
	nc      *nats.Conn
	subject string
}

func NewNATSBus(log *logger.Logger, cfg Config) (Bus, error) {
	if log == nil {
		return nil, fmt.Errorf("logger required")
	}
	url := strings.TrimSpace(cfg.NATSURL)
	if url == "" {
		return nil, fmt.Errorf("missing NATS_URL")
	}
	subject := strings.TrimSpace(cfg.Channel)
	if subject == "" {
		subject = defaultChannel
	}
	nc, err := nats.Connect(url,
		nats.Name("riskwarning"),
		nats.Timeout(5*time.Second),
		nats.MaxReconnects(-1),
	)
	if err != nil {
		return nil, fmt.Errorf("nats connect: %w", err)
	}
	return &natsBus{
		log:     log.With("service", "NATSAssessmentBus"),
		nc:      nc,
		subject: subject,
	}, nil
}

func (b *natsBus) PublishAssessmentCompleted(ctx context.Context, ev AssessmentCompleted) error {
	if b == nil || b.nc == nil {
		return fmt.Errorf("nats bus not initialized")
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	raw, err := encodeEvent(ev)
	if err != nil {
		return err
	}
	if err := b.nc.Publish(b.subject, raw); err != nil {
		return err
	}
	return b.nc.FlushWithContext(ctx)
}

func (b *natsBus) Subscribe(ctx context.Context, onEvent func(ev AssessmentCompleted)) error {
	if b == nil || b.nc == nil {
		return fmt.Errorf("nats bus not initialized")
	}
	if onEvent == nil {
		return fmt.Errorf("onEvent callback required")
	}
	sub, err := b.nc.Subscribe(b.subject, func(m *nats.Msg) {
		ev, err := decodeEvent(m.Data)
		if err != nil {
			b.log.Warn("bad assessment event payload", "error", err)
			return
		}
		onEvent(ev)
	})
	if err != nil {
		return fmt.Errorf("nats subscribe: %w", err)
	}
	go func() {
		<-ctx.Done()
		_ = sub.Unsubscribe()
	}()
	return nil
}

func (b *natsBus) Close() error {
	if b == nil || b.nc == nil {
		return nil
	}
	return b.nc.Drain()
}
