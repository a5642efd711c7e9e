// Package events publishes settlement outcomes to a RabbitMQ topic
// exchange so downstream consumers (notifications, analytics) can react
// without polling the payment ledger.
package events

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/rabbitmq/amqp091-go"
)

const exchange = "payment_events"

type PaymentEvent struct {
	PagoID     string    `json:"pago_id"`
	UsuarioID  int64     `json:"usuario_id"`
	MetaID     *int64    `json:"meta_id,omitempty"`
	Monto      int64     `json:"monto"`
	Estado     string    `json:"estado"`
	Automatico bool      `json:"automatico"`
	Timestamp  time.Time `json:"timestamp"`
}

type Publisher interface {
	PublishPayment(ctx context.Context, ev PaymentEvent) error
	Close()
}

// Nop is used when no AMQP_URL is configured or the broker is down at
// startup; settlement must not depend on the broker being reachable.
type Nop struct{}

func (Nop) PublishPayment(ctx context.Context, ev PaymentEvent) error {
	slog.Debug("event publish skipped", "pago_id", ev.PagoID, "estado", ev.Estado)
	return nil
}

func (Nop) Close() {}

type AMQP struct {
	conn    *amqp091.Connection
	channel *amqp091.Channel
}

func NewAMQP(url string) (*AMQP, error) {
	conn, err := amqp091.DialConfig(url, amqp091.Config{Dial: amqp091.DefaultDial(10 * time.Second)})
	if err != nil {
		return nil, err
	}
	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, err
	}
	if err := ch.ExchangeDeclare(exchange, "topic", true, false, false, false, nil); err != nil {
		ch.Close()
		conn.Close()
		return nil, err
	}
	return &AMQP{conn: conn, channel: ch}, nil
}

func (p *AMQP) PublishPayment(ctx context.Context, ev PaymentEvent) error {
	body, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	return p.channel.PublishWithContext(ctx,
		exchange,
		"payment."+ev.Estado, // payment.completado | payment.rechazado
		false, false,
		amqp091.Publishing{
			ContentType: "application/json",
			Timestamp:   time.Now(),
			Body:        body,
		})
}

func (p *AMQP) Close() {
	if p.channel != nil {
		p.channel.Close()
	}
	if p.conn != nil {
		p.conn.Close()
	}
}
