package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"

	"github-dashboard/internal/model"
	"github-dashboard/internal/stats"
)

// Config holds the broker settings for the refresh publisher.
type Config struct {
	URL        string
	Exchange   string
	RoutingKey string
	QueueName  string
}

// SnapshotMessage is published after every successful refresh.
type SnapshotMessage struct {
	Username    string    `json:"username"`
	Repos       int       `json:"repos"`
	Events      int       `json:"events"`
	TotalStars  int       `json:"total_stars"`
	LastFetched time.Time `json:"last_fetched"`
}

// NewSnapshotMessage summarizes record for publishing.
func NewSnapshotMessage(record model.CacheRecord) (SnapshotMessage, error) {
	if record.IsEmpty() {
		return SnapshotMessage{}, fmt.Errorf("cannot publish empty cache record")
	}
	return SnapshotMessage{
		Username:    record.Snapshot.Username,
		Repos:       len(record.Snapshot.Repos),
		Events:      len(record.Snapshot.Events),
		TotalStars:  stats.StarTotal(record.Snapshot.Repos),
		LastFetched: record.LastFetched.UTC(),
	}, nil
}

// RabbitMQ publishes refresh notifications to a direct exchange.
type RabbitMQ struct {
	conn       *amqp.Connection
	channel    *amqp.Channel
	exchange   string
	routingKey string
	logger     *slog.Logger
}

func NewRabbitMQ(cfg Config, logger *slog.Logger) (*RabbitMQ, error) {
	conn, err := amqp.Dial(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("connect to rabbitmq: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}

	err = ch.ExchangeDeclare(
		cfg.Exchange,
		"direct",
		true,
		false,
		false,
		false,
		nil,
	)
	if err != nil {
		ch.Close()
		conn.Close()
		return nil, fmt.Errorf("declare exchange: %w", err)
	}

	q, err := ch.QueueDeclare(
		cfg.QueueName,
		true,
		false,
		false,
		false,
		nil,
	)
	if err != nil {
		ch.Close()
		conn.Close()
		return nil, fmt.Errorf("declare queue: %w", err)
	}

	if err := ch.QueueBind(q.Name, cfg.RoutingKey, cfg.Exchange, false, nil); err != nil {
		ch.Close()
		conn.Close()
		return nil, fmt.Errorf("bind queue: %w", err)
	}

	logger.Info("connected to rabbitmq",
		"exchange", cfg.Exchange,
		"queue", cfg.QueueName,
		"routing_key", cfg.RoutingKey,
	)

	return &RabbitMQ{
		conn:       conn,
		channel:    ch,
		exchange:   cfg.Exchange,
		routingKey: cfg.RoutingKey,
		logger:     logger,
	}, nil
}

// SnapshotRefreshed publishes a SnapshotMessage for record.
func (r *RabbitMQ) SnapshotRefreshed(ctx context.Context, record model.CacheRecord) error {
	msg, err := NewSnapshotMessage(record)
	if err != nil {
		return err
	}

	body, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal message: %w", err)
	}

	id := uuid.NewString()
	err = r.channel.PublishWithContext(
		ctx,
		r.exchange,
		r.routingKey,
		false,
		false,
		amqp.Publishing{
			MessageId:    id,
			DeliveryMode: amqp.Persistent,
			ContentType:  "application/json",
			Body:         body,
			Timestamp:    time.Now(),
		},
	)
	if err != nil {
		return fmt.Errorf("publish message: %w", err)
	}

	r.logger.Debug("published snapshot refresh",
		"message_id", id,
		"username", msg.Username,
	)
	return nil
}

func (r *RabbitMQ) Close() error {
	if r.channel != nil {
		r.channel.Close()
	}
	if r.conn != nil {
		return r.conn.Close()
	}
	return nil
}
