package rabbitmq

import (
	"fmt"

	"github.com/rabbitmq/amqp091-go"
)

// Connect открывает соединение и канал к брокеру одним вызовом.
func Connect(url string) (*amqp091.Connection, *amqp091.Channel, error) {
	conn, err := amqp091.Dial(url)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}

	channel, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, nil, fmt.Errorf("failed to open channel: %w", err)
	}

	return conn, channel, nil
}

// DeclareTopicExchange объявляет durable topic-обменник для доменных событий.
func DeclareTopicExchange(channel *amqp091.Channel, name string) error {
	err := channel.ExchangeDeclare(
		name,
		"topic",
		true,  // durable
		false, // auto-deleted
		false, // internal
		false, // no-wait
		nil,
	)
	if err != nil {
		return fmt.Errorf("failed to declare exchange %q: %w", name, err)
	}

	return nil
}
