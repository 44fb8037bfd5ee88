package queue

import (
	"encoding/json"
	"fmt"
	"log"

	"github.com/streadway/amqp"
)

const maxRedeliveries = 3

type job struct {
	RecipientID int `json:"recipient_id"`
	RetryCount  int `json:"retry_count"`
}

// RabbitQueue is the durable Queue implementation. Topics map to durable
// queues on the default exchange.
type RabbitQueue struct {
	Conn *amqp.Connection
	Ch   *amqp.Channel
}

func NewRabbitQueue(url string) (*RabbitQueue, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to open channel: %w", err)
	}

	return &RabbitQueue{Conn: conn, Ch: ch}, nil
}

func (q *RabbitQueue) Close() {
	q.Ch.Close()
	q.Conn.Close()
}

func (q *RabbitQueue) declare(topic string) (amqp.Queue, error) {
	return q.Ch.QueueDeclare(
		topic,
		true,  // durable
		false, // delete when unused
		false, // exclusive
		false, // no-wait
		nil,   // arguments
	)
}

func (q *RabbitQueue) Publish(topic string, payload int) error {
	declared, err := q.declare(topic)
	if err != nil {
		return err
	}

	body, err := json.Marshal(job{RecipientID: payload})
	if err != nil {
		return err
	}

	return q.Ch.Publish(
		"",
		declared.Name,
		false,
		false,
		amqp.Publishing{
			ContentType:  "application/json",
			Body:         body,
			DeliveryMode: amqp.Persistent,
		},
	)
}

// Subscribe consumes the topic queue and runs handler per delivery.
// Failed jobs are republished with an incremented retry count up to
// maxRedeliveries, then dropped.
func (q *RabbitQueue) Subscribe(topic string, handler func(payload int) error) error {
	declared, err := q.declare(topic)
	if err != nil {
		return err
	}

	msgs, err := q.Ch.Consume(
		declared.Name,
		"",
		false, // autoAck off for reliability
		false,
		false,
		false,
		nil,
	)
	if err != nil {
		return err
	}

	go func() {
		for d := range msgs {
			var j job
			if err := json.Unmarshal(d.Body, &j); err != nil {
				log.Println("Invalid job:", err)
				d.Ack(false)
				continue
			}

			if err := handler(j.RecipientID); err != nil {
				log.Printf("Job for recipient %d failed (attempt %d/%d): %v\n",
					j.RecipientID, j.RetryCount+1, maxRedeliveries, err)

				if j.RetryCount+1 < maxRedeliveries {
					j.RetryCount++
					if body, merr := json.Marshal(j); merr == nil {
						q.Ch.Publish("", declared.Name, false, false, amqp.Publishing{
							ContentType:  "application/json",
							Body:         body,
							DeliveryMode: amqp.Persistent,
						})
					}
				} else {
					log.Printf("Job for recipient %d permanently failed after %d attempts\n", j.RecipientID, maxRedeliveries)
				}
			}

			d.Ack(false)
		}
	}()

	return nil
}

var _ Queue = (*RabbitQueue)(nil)
