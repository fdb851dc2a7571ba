package queue

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"github.com/rabbitmq/amqp091-go"

	"github.com/wsmontes/linkchart/internal/util"
	"github.com/wsmontes/linkchart/pkg/logger"
)

const (
	// ImportQueue carries ImportJob messages.
	ImportQueue = "import_queue"
	// PubSubExchange is the topic exchange for graph notifications.
	PubSubExchange = "pubsub_exchange"
	// TopicCanonicalized is the routing key of canonicalized-graph notices.
	TopicCanonicalized = "graph.canonicalized"

	retrySuffix = "_retry"
	dlqSuffix   = "_dlq"
	retryTTL    = 10 * time.Second
)

// Publisher is the publishing side of an AMQP channel.
type Publisher interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp091.Publishing) error
}

// Declarer declares exchanges and queues on an AMQP channel.
type Declarer interface {
	ExchangeDeclare(name, kind string, durable, autoDelete, internal, noWait bool, args amqp091.Table) error
	QueueDeclare(name string, durable, autoDelete, exclusive, noWait bool, args amqp091.Table) (amqp091.Queue, error)
}

// URLFromEnv builds the broker URL from RABBITMQ_USER, RABBITMQ_PASSWORD,
// RABBITMQ_HOST and RABBITMQ_PORT.
func URLFromEnv() string {
	u := url.URL{
		Scheme: "amqp",
		User: url.UserPassword(
			util.GetEnvString("RABBITMQ_USER", "guest"),
			util.GetEnvString("RABBITMQ_PASSWORD", "guest"),
		),
		Host: util.GetEnvString("RABBITMQ_HOST", "localhost") + ":" + util.GetEnvString("RABBITMQ_PORT", "5672"),
		Path: "/",
	}
	return u.String()
}

// Dial connects to the broker, retrying while it starts up.
func Dial(ctx context.Context, connURL string) (*amqp091.Connection, error) {
	conn, err := util.RetryWithContext(ctx, 5, time.Second, func(context.Context) (*amqp091.Connection, error) {
		conn, err := amqp091.Dial(connURL)
		if err != nil {
			logger.Warn("[Queue] Failed to connect to RabbitMQ", "err", err)
		}
		return conn, err
	})
	if err != nil {
		return nil, fmt.Errorf("connect to rabbitmq: %w", err)
	}
	return conn, nil
}

// SetupQueues declares the pub/sub exchange and, for every queue name, the
// queue itself, a dead-letter queue and a retry queue whose messages flow
// back to the main queue after retryTTL.
func SetupQueues(ch Declarer, queueNames []string) error {
	err := ch.ExchangeDeclare(
		PubSubExchange,
		"topic",
		true,  // durable
		false, // autoDelete
		false, // internal
		false, // noWait
		nil,
	)
	if err != nil {
		return fmt.Errorf("declare exchange %s: %w", PubSubExchange, err)
	}

	for _, name := range queueNames {
		if _, err := ch.QueueDeclare(name, true, false, false, false, nil); err != nil {
			return fmt.Errorf("declare queue %s: %w", name, err)
		}

		dlqName := name + dlqSuffix
		if _, err := ch.QueueDeclare(dlqName, true, false, false, false, nil); err != nil {
			return fmt.Errorf("declare queue %s: %w", dlqName, err)
		}

		retryName := name + retrySuffix
		_, err := ch.QueueDeclare(
			retryName,
			true,
			false,
			false,
			false,
			amqp091.Table{
				"x-message-ttl":             int32(retryTTL / time.Millisecond),
				"x-dead-letter-exchange":    "",
				"x-dead-letter-routing-key": name,
			},
		)
		if err != nil {
			return fmt.Errorf("declare queue %s: %w", retryName, err)
		}
	}
	return nil
}

// PublishFIFO sends data to a queue through the default exchange.
func PublishFIFO(ctx context.Context, ch Publisher, queueName string, data []byte) error {
	return ch.PublishWithContext(ctx, "", queueName, false, false, amqp091.Publishing{
		ContentType:  "application/json",
		Body:         data,
		DeliveryMode: amqp091.Persistent,
		Timestamp:    time.Now(),
	})
}

// PublishTopic sends data to PubSubExchange under topic.
func PublishTopic(ctx context.Context, ch Publisher, topic string, data []byte) error {
	return ch.PublishWithContext(ctx, PubSubExchange, topic, false, false, amqp091.Publishing{
		ContentType:  "application/json",
		Body:         data,
		DeliveryMode: amqp091.Persistent,
		Timestamp:    time.Now(),
	})
}
