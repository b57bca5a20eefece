package queue

import (
	"context"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/rs/zerolog"
)

// RabbitMQMessage is one scan request delivery. Exactly one of Ack or Nack
// must be called.
type RabbitMQMessage struct {
	Body        []byte
	RoutingKey  string
	Redelivered bool
	Ack         func(multiple bool) error
	Nack        func(multiple bool, requeue bool) error
}

type RabbitMQConsumer interface {
	Consume(ctx context.Context) (<-chan RabbitMQMessage, error)
	Close() error
}

type rabbitMQConsumer struct {
	channel     *amqp.Channel
	queue       string
	consumerTag string
	logger      zerolog.Logger
}

func NewRabbitMQConsumer(channel *amqp.Channel, queue, consumerTag string, logger zerolog.Logger) RabbitMQConsumer {
	return &rabbitMQConsumer{
		channel:     channel,
		queue:       queue,
		consumerTag: consumerTag,
		logger:      logger.With().Str("queue", queue).Logger(),
	}
}

func newMessage(d amqp.Delivery) RabbitMQMessage {
	return RabbitMQMessage{
		Body:        d.Body,
		RoutingKey:  d.RoutingKey,
		Redelivered: d.Redelivered,
		Ack:         d.Ack,
		Nack:        d.Nack,
	}
}

// Consume delivers scan requests with manual acknowledgement until ctx is
// done or the broker closes the delivery channel. Prefetch is set on the
// channel by the topology setup. A delivery not yet handed over when ctx
// ends is requeued.
func (c *rabbitMQConsumer) Consume(ctx context.Context) (<-chan RabbitMQMessage, error) {
	deliveries, err := c.channel.Consume(c.queue, c.consumerTag, false, false, false, false, nil)
	if err != nil {
		return nil, err
	}

	output := make(chan RabbitMQMessage)
	go func() {
		defer close(output)
		for {
			select {
			case <-ctx.Done():
				return
			case d, ok := <-deliveries:
				if !ok {
					c.logger.Warn().Msg("Scan request deliveries closed by broker")
					return
				}
				select {
				case output <- newMessage(d):
				case <-ctx.Done():
					_ = d.Nack(false, true)
					return
				}
			}
		}
	}()

	c.logger.Info().Str("consumer_tag", c.consumerTag).Msg("Consuming scan requests")
	return output, nil
}

// Close cancels the subscription; the broker then closes the delivery channel.
func (c *rabbitMQConsumer) Close() error {
	if c.channel == nil {
		return nil
	}
	return c.channel.Cancel(c.consumerTag, false)
}
