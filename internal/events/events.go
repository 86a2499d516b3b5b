// Package events publishes confirmed changes to an AMQP topic exchange so
// other processes can react to them.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/rabbitmq/amqp091-go"
	"github.com/sirupsen/logrus"

	"github.com/spendwise-dev/spendwise/internal/store"
)

// ChangeMessage is the JSON body of every published event.
type ChangeMessage struct {
	Collection string          `json:"collection"`
	Action     string          `json:"action"`
	ID         string          `json:"id"`
	Record     json.RawMessage `json:"record,omitempty"`
	OccurredAt time.Time       `json:"occurredAt"`
}

// RoutingKey is "<collection>.<action>", e.g. "transactions.create".
func (m ChangeMessage) RoutingKey() string {
	return m.Collection + "." + m.Action
}

// NewChangeMessage builds the message for a store event.
func NewChangeMessage(ev store.Event, at time.Time) (ChangeMessage, error) {
	msg := ChangeMessage{
		Collection: ev.Collection,
		Action:     string(ev.Action),
		ID:         ev.ID,
		OccurredAt: at.UTC(),
	}
	if ev.Action != store.ActionDelete && ev.Record != nil {
		data, err := json.Marshal(ev.Record)
		if err != nil {
			return ChangeMessage{}, fmt.Errorf("marshal record: %w", err)
		}
		msg.Record = data
	}
	return msg, nil
}

// channel is the part of *amqp091.Channel the publisher needs.
type channel interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp091.Publishing) error
	Close() error
}

// Publisher sends change messages to one exchange.
type Publisher struct {
	conn     *amqp091.Connection
	ch       channel
	exchange string
	now      func() time.Time
	log      *logrus.Entry
}

// Dial connects to url and declares a durable topic exchange.
func Dial(url, exchange string, logger *logrus.Logger) (*Publisher, error) {
	conn, err := amqp091.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("dial AMQP: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}

	err = ch.ExchangeDeclare(
		exchange, // name
		"topic",  // type
		true,     // durable
		false,    // auto-deleted
		false,    // internal
		false,    // no-wait
		nil,      // arguments
	)
	if err != nil {
		ch.Close()
		conn.Close()
		return nil, fmt.Errorf("declare exchange: %w", err)
	}

	p := newPublisher(ch, exchange, logger)
	p.conn = conn
	return p, nil
}

func newPublisher(ch channel, exchange string, logger *logrus.Logger) *Publisher {
	return &Publisher{
		ch:       ch,
		exchange: exchange,
		now:      time.Now,
		log:      logger.WithFields(logrus.Fields{"component": "events", "exchange": exchange}),
	}
}

// Publish sends msg as a persistent JSON message.
func (p *Publisher) Publish(ctx context.Context, msg ChangeMessage) error {
	body, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal message: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	err = p.ch.PublishWithContext(
		ctx,
		p.exchange,       // exchange
		msg.RoutingKey(), // routing key
		false,            // mandatory
		false,            // immediate
		amqp091.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp091.Persistent,
			Timestamp:    msg.OccurredAt,
			MessageId:    msg.Collection + ":" + msg.ID + ":" + msg.Action,
			Body:         body,
		},
	)
	if err != nil {
		return fmt.Errorf("publish message: %w", err)
	}

	p.log.WithFields(logrus.Fields{"routing_key": msg.RoutingKey(), "id": msg.ID}).Debug("published change")
	return nil
}

// Observe publishes a confirmed store mutation. Failures are logged only.
func (p *Publisher) Observe(ctx context.Context, ev store.Event) {
	msg, err := NewChangeMessage(ev, p.now())
	if err == nil {
		err = p.Publish(ctx, msg)
	}
	if err != nil {
		p.log.WithError(err).Warn("publishing change")
	}
}

func (p *Publisher) Close() error {
	if p.ch != nil {
		p.ch.Close()
	}
	if p.conn != nil {
		return p.conn.Close()
	}
	return nil
}
