// Package eventbus wraps a NATS connection for publishing and consuming
// domain events.
package eventbus

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/richxcame/claims-fraud/pkg/config"
	"github.com/richxcame/claims-fraud/pkg/logger"
	"go.uber.org/zap"
)

// ErrPublishUnavailable is returned when no connection to the bus can be
// established or a publish is not acknowledged by the server.
var ErrPublishUnavailable = errors.New("event bus unavailable")

var (
	publishedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "eventbus_published_total",
		Help: "Messages published to the event bus by subject and outcome",
	}, []string{"subject", "status"})

	receivedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "eventbus_received_total",
		Help: "Messages received from the event bus by subject and outcome",
	}, []string{"subject", "status"})
)

// Message is a message delivered to a Handler.
type Message struct {
	Subject    string
	Data       []byte
	ReceivedAt time.Time
}

// Handler processes one message. Returned errors are logged; NATS core has no redelivery.
type Handler func(ctx context.Context, msg *Message) error

// Options configures a Bus.
type Options struct {
	URL            string
	Name           string
	ConnectTimeout time.Duration
	PublishTimeout time.Duration
	MaxReconnects  int
}

// OptionsFromConfig builds Options from the NATS section of the config.
func OptionsFromConfig(cfg *config.NATSConfig, name string) Options {
	return Options{
		URL:            cfg.URL,
		Name:           name,
		ConnectTimeout: time.Duration(cfg.ConnectTimeout) * time.Second,
		PublishTimeout: time.Duration(cfg.PublishTimeout) * time.Second,
		MaxReconnects:  cfg.MaxReconnects,
	}
}

type subscription interface {
	Unsubscribe() error
}

type conn interface {
	Publish(subject string, data []byte) error
	FlushWithContext(ctx context.Context) error
	QueueSubscribe(subject, queue string, cb nats.MsgHandler) (subscription, error)
	IsConnected() bool
	IsClosed() bool
	Drain() error
	Close()
}

type dialFunc func(url string, opts ...nats.Option) (conn, error)

// natsConn adapts *nats.Conn to conn.
type natsConn struct {
	*nats.Conn
}

func (c natsConn) QueueSubscribe(subject, queue string, cb nats.MsgHandler) (subscription, error) {
	if queue == "" {
		return c.Conn.Subscribe(subject, cb)
	}
	return c.Conn.QueueSubscribe(subject, queue, cb)
}

func dialNATS(url string, opts ...nats.Option) (conn, error) {
	nc, err := nats.Connect(url, opts...)
	if err != nil {
		return nil, err
	}
	return natsConn{Conn: nc}, nil
}

// Bus is a lazily connected NATS client shared by publishers and subscribers.
type Bus struct {
	opts Options
	dial dialFunc

	mu   sync.Mutex
	conn conn
}

// New creates a Bus. No connection is made until Connect or the first Publish/Subscribe.
func New(opts Options) *Bus {
	if opts.ConnectTimeout <= 0 {
		opts.ConnectTimeout = 5 * time.Second
	}
	if opts.PublishTimeout <= 0 {
		opts.PublishTimeout = 3 * time.Second
	}
	return &Bus{opts: opts, dial: dialNATS}
}

// Connect establishes the connection if it is not already up.
func (b *Bus) Connect(ctx context.Context) error {
	_, err := b.connection(ctx)
	return err
}

// IsConnected reports whether the underlying connection is live.
func (b *Bus) IsConnected() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.conn != nil && b.conn.IsConnected()
}

// Close drains subscriptions and closes the connection.
func (b *Bus) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.conn == nil {
		return nil
	}
	err := b.conn.Drain()
	if err != nil {
		b.conn.Close()
	}
	b.conn = nil
	logger.Info("event bus connection closed", zap.String("url", b.opts.URL))
	return err
}

// Publish JSON-encodes payload and publishes it on subject, waiting for the
// server to acknowledge the flush. While the connection is reconnecting the
// message is left in the client's reconnect buffer and Publish returns nil.
func (b *Bus) Publish(ctx context.Context, subject string, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal %s payload: %w", subject, err)
	}

	c, err := b.connection(ctx)
	if err != nil {
		publishedTotal.WithLabelValues(subject, "unavailable").Inc()
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, b.opts.PublishTimeout)
	defer cancel()

	if err := c.Publish(subject, data); err != nil {
		publishedTotal.WithLabelValues(subject, "failed").Inc()
		return fmt.Errorf("publish %s: %w: %w", subject, ErrPublishUnavailable, err)
	}
	if !c.IsConnected() {
		publishedTotal.WithLabelValues(subject, "buffered").Inc()
		logger.Debug("event buffered while reconnecting", zap.String("subject", subject))
		return nil
	}
	if err := c.FlushWithContext(ctx); err != nil {
		publishedTotal.WithLabelValues(subject, "failed").Inc()
		return fmt.Errorf("flush %s: %w: %w", subject, ErrPublishUnavailable, err)
	}

	publishedTotal.WithLabelValues(subject, "ok").Inc()
	return nil
}

// Subscribe registers handler on subject. A non-empty queue load-balances
// delivery across subscribers sharing it. The subscription is removed when ctx ends.
func (b *Bus) Subscribe(ctx context.Context, subject, queue string, handler Handler) error {
	c, err := b.connection(ctx)
	if err != nil {
		return err
	}

	sub, err := c.QueueSubscribe(subject, queue, func(m *nats.Msg) {
		msg := &Message{Subject: m.Subject, Data: m.Data, ReceivedAt: time.Now()}
		if err := handler(ctx, msg); err != nil {
			receivedTotal.WithLabelValues(subject, "error").Inc()
			logger.Warn("event handler failed",
				zap.String("subject", m.Subject),
				zap.Error(err),
			)
			return
		}
		receivedTotal.WithLabelValues(subject, "ok").Inc()
	})
	if err != nil {
		return fmt.Errorf("subscribe %s: %w", subject, err)
	}

	go func() {
		<-ctx.Done()
		if err := sub.Unsubscribe(); err != nil {
			logger.Debug("unsubscribe failed", zap.String("subject", subject), zap.Error(err))
		}
	}()

	logger.Info("event bus subscription started", zap.String("subject", subject), zap.String("queue", queue))
	return nil
}

func (b *Bus) connection(ctx context.Context) (conn, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	// A reconnecting connection is still usable: nats.go buffers publishes
	// until the link is back. Only a closed one (reconnects exhausted) is replaced.
	if b.conn != nil && !b.conn.IsClosed() {
		return b.conn, nil
	}
	b.conn = nil
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("connect %s: %w: %w", b.opts.URL, ErrPublishUnavailable, err)
	}

	timeout := b.opts.ConnectTimeout
	if deadline, ok := ctx.Deadline(); ok {
		if remaining := time.Until(deadline); remaining < timeout {
			timeout = remaining
		}
	}

	c, err := b.dial(b.opts.URL,
		nats.Name(b.opts.Name),
		nats.Timeout(timeout),
		nats.MaxReconnects(b.opts.MaxReconnects),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			logger.Warn("event bus disconnected", zap.Error(err))
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			logger.Info("event bus reconnected", zap.String("url", nc.ConnectedUrl()))
		}),
	)
	if err != nil {
		logger.Warn("event bus connection failed", zap.String("url", b.opts.URL), zap.Error(err))
		return nil, fmt.Errorf("connect %s: %w: %w", b.opts.URL, ErrPublishUnavailable, err)
	}

	b.conn = c
	logger.Info("connected to event bus", zap.String("url", b.opts.URL))
	return c, nil
}
