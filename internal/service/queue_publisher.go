// Package service holds the outbound integrations driven by the core
// logic, currently the RabbitMQ notification publisher.
package service

import (
	"context"
	"encoding/json"
	"log"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"trainbook/internal/queue"
)

// QueuePublisher publishes notification events to the durable
// notification.events queue. Each publish dials a fresh connection,
// which keeps the publisher stateless and robust against broker
// restarts at the cost of latency that does not matter for
// notifications. Errors are logged and returned so callers can ignore
// them without interrupting the main request flow.
type QueuePublisher struct {
	URL string
}

func NewQueuePublisher(url string) *QueuePublisher {
	return &QueuePublisher{URL: url}
}

// Publish sends one event as a persistent JSON message.
func (p *QueuePublisher) Publish(ctx context.Context, event queue.NotificationEvent) error {
	conn, err := amqp.Dial(p.URL)
	if err != nil {
		log.Printf("rabbitmq: dial failed: %v", err)
		return err
	}
	defer func() { _ = conn.Close() }()

	ch, err := conn.Channel()
	if err != nil {
		log.Printf("rabbitmq: channel open failed: %v", err)
		return err
	}
	defer func() { _ = ch.Close() }()

	// Declare the queue (idempotent). Durable so messages survive
	// broker restarts.
	if _, err := ch.QueueDeclare(
		queue.QueueName, // name
		true,            // durable
		false,           // autoDelete
		false,           // exclusive
		false,           // noWait
		nil,             // args
	); err != nil {
		log.Printf("rabbitmq: queue declare failed: %v", err)
		return err
	}

	body, err := json.Marshal(event)
	if err != nil {
		log.Printf("rabbitmq: marshal event failed: %v", err)
		return err
	}

	pub := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    time.Now().UTC(),
		Body:         body,
	}
	if err := ch.PublishWithContext(ctx,
		"",              // default exchange
		queue.QueueName, // routing key = queue name
		false,           // mandatory
		false,           // immediate
		pub,
	); err != nil {
		log.Printf("rabbitmq: publish failed: %v", err)
		return err
	}
	return nil
}
