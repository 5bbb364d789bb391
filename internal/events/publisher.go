// Package events publishes trip lifecycle events to RabbitMQ.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"cabdispatch/internal/domain/entities"
)

const (
	RoutingTripBooked    = "trip.booked"
	RoutingTripCompleted = "trip.completed"
)

// TripEvent is the JSON body of every published message.
type TripEvent struct {
	Type           string    `json:"type"`
	TripID         int       `json:"trip_id"`
	CabID          int       `json:"cab_id"`
	DriverID       int       `json:"driver_id"`
	FromLocationID int       `json:"from_location_id"`
	ToLocationID   int       `json:"to_location_id"`
	At             time.Time `json:"at"`
}

func newTripEvent(kind string, trip *entities.Trip, cab *entities.Cab) TripEvent {
	ev := TripEvent{
		Type:           kind,
		TripID:         trip.ID,
		CabID:          cab.ID,
		DriverID:       cab.DriverID,
		FromLocationID: trip.FromLocation.ID,
		ToLocationID:   trip.ToLocation.ID,
	}
	switch {
	case kind == RoutingTripCompleted && trip.EndTime != nil:
		ev.At = *trip.EndTime
	case trip.StartTime != nil:
		ev.At = *trip.StartTime
	default:
		ev.At = trip.BookingTime
	}
	return ev
}

// channel is the part of *amqp.Channel the publisher uses.
type channel interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	Close() error
}

// Publisher sends TripEvents to a topic exchange. It implements
// services.Notifier.
type Publisher struct {
	mu       sync.Mutex
	conn     *amqp.Connection
	ch       channel
	exchange string
	timeout  time.Duration
	logger   *slog.Logger
}

// Dial connects to url and declares exchange as a durable topic exchange.
func Dial(url, exchange string, timeout time.Duration, logger *slog.Logger) (*Publisher, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("dial rabbitmq: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}
	if err := ch.ExchangeDeclare(exchange, "topic", true, false, false, false, nil); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, fmt.Errorf("declare exchange %s: %w", exchange, err)
	}

	p := newPublisher(ch, exchange, timeout, logger)
	p.conn = conn
	p.logger.Info("rabbitmq_connected", "exchange", exchange)
	return p, nil
}

func newPublisher(ch channel, exchange string, timeout time.Duration, logger *slog.Logger) *Publisher {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Publisher{
		ch:       ch,
		exchange: exchange,
		timeout:  timeout,
		logger:   logger.With("component", "events"),
	}
}

func (p *Publisher) TripBooked(ctx context.Context, trip *entities.Trip, cab *entities.Cab) error {
	return p.publish(ctx, newTripEvent(RoutingTripBooked, trip, cab))
}

func (p *Publisher) TripCompleted(ctx context.Context, trip *entities.Trip, cab *entities.Cab) error {
	return p.publish(ctx, newTripEvent(RoutingTripCompleted, trip, cab))
}

func (p *Publisher) publish(ctx context.Context, ev TripEvent) error {
	body, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("encode %s event: %w", ev.Type, err)
	}

	p.mu.Lock()
	ch := p.ch
	p.mu.Unlock()
	if ch == nil {
		return fmt.Errorf("publish %s: channel closed", ev.Type)
	}

	publishCtx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	err = ch.PublishWithContext(publishCtx, p.exchange, ev.Type, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    ev.At,
		Type:         ev.Type,
		Body:         body,
	})
	if err != nil {
		return fmt.Errorf("publish %s for trip %d: %w", ev.Type, ev.TripID, err)
	}
	p.logger.DebugContext(ctx, "event_published", "type", ev.Type, "trip_id", ev.TripID)
	return nil
}

// Close shuts the channel and connection. Later publishes fail.
func (p *Publisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	var err error
	if p.ch != nil {
		err = p.ch.Close()
		p.ch = nil
	}
	if p.conn != nil {
		if cerr := p.conn.Close(); err == nil {
			err = cerr
		}
		p.conn = nil
	}
	return err
}
