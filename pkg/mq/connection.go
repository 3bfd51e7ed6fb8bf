package mq

import (
	"fmt"
	"os"
	"time"

	"github.com/rabbitmq/amqp091-go"
)

// ExchangeName is the topic exchange all lifecycle events are published to.
const ExchangeName = "classroom.events"

const heartbeat = 10 * time.Second

// connectionName labels a connection in the broker's management UI, e.g.
// "milestones/consumer:milestone.drafts@host-1".
func connectionName(role string) string {
	host, err := os.Hostname()
	if err != nil || host == "" {
		host = "unknown"
	}
	return "milestones/" + role + "@" + host
}

func dial(url, role string) (*amqp091.Connection, error) {
	conn, err := amqp091.DialConfig(url, amqp091.Config{
		Heartbeat:  heartbeat,
		Locale:     "en_US",
		Properties: amqp091.Table{"connection_name": connectionName(role)},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to RabbitMQ as %s: %w", role, err)
	}
	return conn, nil
}

// declareTopology declares the events exchange and its dead-letter twin. Both sides call it
// so either may start first.
func declareTopology(ch *amqp091.Channel) error {
	for _, name := range []string{ExchangeName, DLQExchangeName} {
		if err := ch.ExchangeDeclare(name, amqp091.ExchangeTopic, true, false, false, false, nil); err != nil {
			return fmt.Errorf("failed to declare exchange %s: %w", name, err)
		}
	}
	return nil
}
