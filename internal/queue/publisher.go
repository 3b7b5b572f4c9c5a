package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/labstack/gommon/log"
	amqp "github.com/rabbitmq/amqp091-go"
)

// DefaultDialTimeout bounds connection setup, so an unreachable broker
// cannot stall the ticket request that triggered the publish.
const DefaultDialTimeout = 3 * time.Second

// Publisher sends TicketEvents to RabbitMQ. It keeps one connection and
// channel, guarded by a mutex, and redials on the next publish after a
// failure. Messages are persistent.
type Publisher struct {
	url         string
	logger      *log.Logger
	dialTimeout time.Duration

	mu   sync.Mutex
	conn *amqp.Connection
	ch   *amqp.Channel
}

// NewPublisher returns a Publisher for url. No connection is made until
// the first publish.
func NewPublisher(url string, logger *log.Logger) *Publisher {
	return &Publisher{url: url, logger: logger, dialTimeout: DefaultDialTimeout}
}

// dialConfig caps the TCP connect and AMQP handshake at the dial timeout
// or the deadline of ctx, whichever is sooner.
func (p *Publisher) dialConfig(ctx context.Context) (amqp.Config, error) {
	timeout := p.dialTimeout
	if dl, ok := ctx.Deadline(); ok {
		left := time.Until(dl)
		if left <= 0 {
			return amqp.Config{}, context.DeadlineExceeded
		}
		timeout = min(timeout, left)
	}
	return amqp.Config{
		Dial:      amqp.DefaultDial(timeout),
		Heartbeat: 10 * time.Second,
		Locale:    "en_US",
	}, nil
}

// channel returns an open channel, dialing when needed. Callers hold mu.
func (p *Publisher) channel(ctx context.Context) (*amqp.Channel, error) {
	if p.ch != nil && !p.ch.IsClosed() {
		return p.ch, nil
	}
	p.reset()

	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("dial: %w", err)
	}
	cfg, err := p.dialConfig(ctx)
	if err != nil {
		return nil, fmt.Errorf("dial: %w", err)
	}
	conn, err := amqp.DialConfig(p.url, cfg)
	if err != nil {
		return nil, fmt.Errorf("dial: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("channel open: %w", err)
	}
	// Durable so messages survive broker restarts.
	if _, err := ch.QueueDeclare(TicketQueueName, true, false, false, false, nil); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, fmt.Errorf("queue declare: %w", err)
	}
	p.conn, p.ch = conn, ch
	return ch, nil
}

func (p *Publisher) reset() {
	if p.ch != nil {
		_ = p.ch.Close()
	}
	if p.conn != nil {
		_ = p.conn.Close()
	}
	p.conn, p.ch = nil, nil
}

// PublishTicketEvent publishes ev to TicketQueueName on the default
// exchange. Errors are logged and returned; callers treat them as best
// effort.
func (p *Publisher) PublishTicketEvent(ctx context.Context, ev TicketEvent) error {
	body, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	ch, err := p.channel(ctx)
	if err != nil {
		p.logger.Warnf("rabbitmq: %v", err)
		return err
	}
	pub := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    time.Now().UTC(),
		Body:         body,
	}
	if err := ch.PublishWithContext(ctx, "", TicketQueueName, false, false, pub); err != nil {
		p.logger.Warnf("rabbitmq: publish failed: %v", err)
		p.reset()
		return err
	}
	return nil
}

// Close releases the connection.
func (p *Publisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.reset()
	return nil
}
