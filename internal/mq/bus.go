// Package mq implements the account synchronization channel: an at-least-once
// message channel joining the executor and the broker host process. Ordering
// is FIFO within one queue; nothing is guaranteed across routing keys.
package mq

import "context"

// Bus is the message channel the executor publishes orders on and consumes
// account snapshots from.
type Bus interface {
	// Publish sends one message to the exchange under the routing key.
	Publish(exchange, routingKey string, body []byte) error

	// Consume blocks on the queue and invokes handler for every delivery.
	// It returns when ctx is cancelled, the channel closes underneath it,
	// or the handler reports an error. Handler errors are fatal to the
	// loop: the channel offers no redelivery for malformed payloads.
	Consume(ctx context.Context, queue string, handler func(body []byte) error) error
}
