package queue

import (
	"context"
	"errors"

	"github.com/rabbitmq/amqp091-go"

	"github.com/wsmontes/linkchart/pkg/logger"
)

// MaxRetries is the number of redeliveries before a message is dead-lettered.
const MaxRetries = 10

const retriesHeader = "x-retries"

// ErrPermanent marks failures that a retry cannot fix, such as a malformed
// job or an unparsable file. Such messages go straight to the DLQ.
var ErrPermanent = errors.New("permanent failure")

type permanentError struct{ err error }

func (e permanentError) Error() string { return e.err.Error() }
func (e permanentError) Unwrap() []error {
	return []error{e.err, ErrPermanent}
}

// Permanent wraps err so that errors.Is(err, ErrPermanent) holds.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return permanentError{err: err}
}

// Retries reads the retry counter of a delivery.
func Retries(msg amqp091.Delivery) int {
	switch v := msg.Headers[retriesHeader].(type) {
	case int:
		return v
	case int32:
		return int(v)
	case int64:
		return int(v)
	}
	return 0
}

// HandleProcessingError moves a failed delivery to the retry queue, or to
// the dead-letter queue once MaxRetries is reached or the failure is
// permanent. The original delivery is acked after the copy is published and
// requeued if publishing fails.
func HandleProcessingError(ctx context.Context, ch Publisher, msg amqp091.Delivery, queueName string, cause error) {
	retries := Retries(msg)

	if retries >= MaxRetries || errors.Is(cause, ErrPermanent) {
		dlqName := queueName + dlqSuffix
		logger.Warn("[Queue] Sending message to DLQ", "dlq", dlqName, "retries", retries, "err", cause)
		headers := copyHeaders(msg.Headers)
		if cause != nil {
			headers["x-error"] = cause.Error()
		}
		if err := republish(ctx, ch, dlqName, msg, headers); err != nil {
			logger.Error("[Queue] Failed to publish to DLQ", "dlq", dlqName, "err", err)
			_ = msg.Nack(false, true)
			return
		}
		_ = msg.Ack(false)
		return
	}

	retryName := queueName + retrySuffix
	headers := copyHeaders(msg.Headers)
	headers[retriesHeader] = int32(retries + 1)

	if err := republish(ctx, ch, retryName, msg, headers); err != nil {
		logger.Error("[Queue] Failed to publish to retry queue", "retry_queue", retryName, "err", err)
		_ = msg.Nack(false, true)
		return
	}
	logger.Info("[Queue] Message scheduled for retry", "retry_queue", retryName, "attempt", retries+1)
	_ = msg.Ack(false)
}

func republish(ctx context.Context, ch Publisher, queueName string, msg amqp091.Delivery, headers amqp091.Table) error {
	return ch.PublishWithContext(context.WithoutCancel(ctx), "", queueName, false, false, amqp091.Publishing{
		ContentType:  msg.ContentType,
		Body:         msg.Body,
		Headers:      headers,
		DeliveryMode: amqp091.Persistent,
	})
}

func copyHeaders(h amqp091.Table) amqp091.Table {
	out := make(amqp091.Table, len(h)+1)
	for k, v := range h {
		out[k] = v
	}
	return out
}
