package integration

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/rabbitmq/amqp091-go"
	"github.com/rs/zerolog"

	"crmbot/internal/models"
	"crmbot/pkg/rabbitmq"
)

const (
	routingKeyUserRegistered    = "user.registered"
	routingKeyBroadcastFinished = "broadcast.finished"
)

type EventsClient interface {
	PublishUserRegistered(ctx context.Context, event *models.UserRegisteredEvent) error
	PublishBroadcastFinished(ctx context.Context, event *models.BroadcastFinishedEvent) error
	Close() error
}

type eventsClient struct {
	conn     *amqp091.Connection
	channel  *amqp091.Channel
	exchange string
	logger   zerolog.Logger
}

func NewEventsClient(url, exchange string, logger zerolog.Logger) (EventsClient, error) {
	conn, channel, err := rabbitmq.Connect(url)
	if err != nil {
		return nil, err
	}

	if err := rabbitmq.DeclareTopicExchange(channel, exchange); err != nil {
		channel.Close()
		conn.Close()
		return nil, err
	}

	logger.Info().
		Str("exchange", exchange).
		Msg("Connected to RabbitMQ")

	return &eventsClient{
		conn:     conn,
		channel:  channel,
		exchange: exchange,
		logger:   logger,
	}, nil
}

func (c *eventsClient) PublishUserRegistered(ctx context.Context, event *models.UserRegisteredEvent) error {
	return c.publish(ctx, routingKeyUserRegistered, event)
}

func (c *eventsClient) PublishBroadcastFinished(ctx context.Context, event *models.BroadcastFinishedEvent) error {
	return c.publish(ctx, routingKeyBroadcastFinished, event)
}

func (c *eventsClient) publish(ctx context.Context, routingKey string, event interface{}) error {
	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	err = c.channel.PublishWithContext(ctx,
		c.exchange,
		routingKey,
		false, // mandatory
		false, // immediate
		amqp091.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp091.Persistent,
			Body:         body,
		},
	)
	if err != nil {
		return fmt.Errorf("failed to publish event: %w", err)
	}

	c.logger.Debug().Str("routing_key", routingKey).Msg("Event published")

	return nil
}

func (c *eventsClient) Close() error {
	if c.channel != nil {
		if err := c.channel.Close(); err != nil {
			return err
		}
	}
	if c.conn != nil {
		return c.conn.Close()
	}
	return nil
}
