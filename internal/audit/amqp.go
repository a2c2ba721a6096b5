package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/rabbitmq/amqp091-go"

	"github.com/familyspend/ExpenseTracker/internal/log"
)

// AMQPPublisher forwards entries to a durable topic exchange so other
// services can follow security events.
type AMQPPublisher struct {
	conn         *amqp091.Connection
	channel      *amqp091.Channel
	exchangeName string
	logger       *log.Logger
	mu           sync.Mutex
}

func NewAMQPPublisher(url, exchangeName string, logger *log.Logger) (*AMQPPublisher, error) {
	conn, err := amqp091.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("dial AMQP: %w", err)
	}

	channel, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}

	err = channel.ExchangeDeclare(
		exchangeName, // name
		"topic",      // type
		true,         // durable
		false,        // auto-deleted
		false,        // internal
		false,        // no-wait
		nil,          // arguments
	)
	if err != nil {
		channel.Close()
		conn.Close()
		return nil, fmt.Errorf("declare exchange: %w", err)
	}

	return &AMQPPublisher{
		conn:         conn,
		channel:      channel,
		exchangeName: exchangeName,
		logger:       logger.WithComponent(log.ComponentAMQP),
	}, nil
}

// RoutingKey is audit.<resource>.<action>, lower case.
func RoutingKey(entry Entry) string {
	return "audit." + strings.ToLower(entry.Resource) + "." + strings.ToLower(string(entry.Action))
}

func (p *AMQPPublisher) Write(ctx context.Context, entry Entry) error {
	body, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("marshal audit entry: %w", err)
	}

	// amqp091 channels are not safe for concurrent publishing.
	p.mu.Lock()
	defer p.mu.Unlock()

	err = p.channel.PublishWithContext(
		ctx,
		p.exchangeName,    // exchange
		RoutingKey(entry), // routing key
		false,             // mandatory
		false,             // immediate
		amqp091.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp091.Persistent,
			MessageId:    entry.ID.String(),
			Timestamp:    entry.CreatedAt,
			Body:         body,
		},
	)
	if err != nil {
		return fmt.Errorf("publish audit entry: %w", err)
	}

	p.logger.DebugContext(ctx, "published audit entry",
		"exchange", p.exchangeName,
		"routing_key", RoutingKey(entry))
	return nil
}

func (p *AMQPPublisher) Close() error {
	if p.channel != nil {
		p.channel.Close()
	}
	if p.conn != nil {
		return p.conn.Close()
	}
	return nil
}
