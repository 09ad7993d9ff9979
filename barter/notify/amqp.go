package notify

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/biscuitbarter/barterbot/barter/economy/trading"
	"github.com/streadway/amqp"
)

type amqpChannel interface {
	Publish(exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	Close() error
}

// AMQPPublisher sends events to a durable topic exchange with routing keys
// of the form barter.<kind>.
type AMQPPublisher struct {
	exchange string

	mu      sync.Mutex
	conn    *amqp.Connection
	channel amqpChannel
}

func NewAMQPPublisher(url, exchange string, retries int, retryDelay time.Duration) (*AMQPPublisher, error) {
	var (
		conn *amqp.Connection
		err  error
	)
	for i := 0; i <= retries; i++ {
		conn, err = amqp.Dial(url)
		if err == nil {
			break
		}
		slog.Warn("AMQP connection failed",
			slog.String("type", "notify"),
			slog.Int("attempt", i+1),
			slog.Any("error", err))
		time.Sleep(retryDelay)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to connect to AMQP broker: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to open AMQP channel: %w", err)
	}

	err = ch.ExchangeDeclare(
		exchange, // name
		"topic",  // type
		true,     // durable
		false,    // auto-deleted
		false,    // internal
		false,    // no-wait
		nil,      // arguments
	)
	if err != nil {
		ch.Close()
		conn.Close()
		return nil, fmt.Errorf("failed to declare exchange: %w", err)
	}

	slog.Info("Connected to AMQP broker",
		slog.String("type", "notify"),
		slog.String("exchange", exchange))
	return &AMQPPublisher{exchange: exchange, conn: conn, channel: ch}, nil
}

func (p *AMQPPublisher) Publish(_ context.Context, e trading.Event) error {
	msg := NewMessage(e)
	body, err := msg.Marshal()
	if err != nil {
		return fmt.Errorf("failed to encode event: %w", err)
	}

	headers := amqp.Table{"kind": msg.Kind}
	if msg.Trade != nil {
		headers["trade_id"] = msg.Trade.ID
		headers["trade_status"] = msg.Trade.Status
	}
	if msg.UserID != "" {
		headers["user_id"] = msg.UserID
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	err = p.channel.Publish(
		p.exchange,
		RoutingKey(e.Kind),
		false,
		false,
		amqp.Publishing{
			ContentType:  "application/json",
			Body:         body,
			DeliveryMode: amqp.Persistent,
			MessageId:    msg.ID,
			Timestamp:    msg.At,
			Headers:      headers,
		},
	)
	if err != nil {
		return fmt.Errorf("failed to publish event: %w", err)
	}
	return nil
}

func (p *AMQPPublisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if err := p.channel.Close(); err != nil {
		return fmt.Errorf("failed to close AMQP channel: %w", err)
	}
	if p.conn != nil {
		return p.conn.Close()
	}
	return nil
}
