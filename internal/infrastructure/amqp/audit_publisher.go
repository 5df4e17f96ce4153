// Package amqp publica la bitácora de actividad en RabbitMQ para consumidores externos.
package amqp

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/rabbitmq/amqp091-go"

	"github.com/jhoicas/stock-ledger/internal/domain/entity"
	"github.com/jhoicas/stock-ledger/pkg/logger"
)

const publishTimeout = 5 * time.Second

// ActivityMessage cuerpo JSON de cada mensaje.
type ActivityMessage struct {
	ID           string         `json:"id"`
	UserID       string         `json:"user_id,omitempty"`
	ModuleType   string         `json:"module_type"`
	ModuleName   string         `json:"module_name"`
	Action       string         `json:"action"`
	RecordID     string         `json:"record_id,omitempty"`
	Summary      string         `json:"summary"`
	RecordData   map[string]any `json:"record_data,omitempty"`
	ErrorDetails map[string]any `json:"error_details,omitempty"`
	Timestamp    time.Time      `json:"timestamp"`
}

// NewActivityMessage arma el mensaje a partir de la entrada de bitácora.
func NewActivityMessage(l entity.ActivityLog) ActivityMessage {
	ts := l.CreatedAt
	if ts.IsZero() {
		ts = time.Now()
	}
	return ActivityMessage{
		ID:           l.ID,
		UserID:       l.UserID,
		ModuleType:   string(l.Category),
		ModuleName:   l.Category.DisplayName(),
		Action:       l.Action,
		RecordID:     l.RecordID,
		Summary:      l.Summary,
		RecordData:   l.RecordData,
		ErrorDetails: l.ErrorDetails,
		Timestamp:    ts.UTC(),
	}
}

// Publisher parte de *amqp091.Channel que usa AuditPublisher.
type Publisher interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp091.Publishing) error
}

// AuditPublisher implementa ledger.AuditSink publicando en un exchange direct.
// Un canal AMQP no admite publicaciones concurrentes: se serializan con mu.
type AuditPublisher struct {
	conn       *amqp091.Connection
	mu         sync.Mutex
	ch         Publisher
	exchange   string
	routingKey string
	log        *logger.Logger
}

// NewAuditPublisher construye el publicador sobre un canal ya configurado.
func NewAuditPublisher(ch Publisher, exchange, routingKey string, log *logger.Logger) *AuditPublisher {
	return &AuditPublisher{ch: ch, exchange: exchange, routingKey: routingKey, log: log.Named("amqp")}
}

// Dial conecta, declara exchange y cola (durables) y los enlaza con la cola como routing key.
func Dial(url, exchange, queue string, log *logger.Logger) (*AuditPublisher, error) {
	conn, err := amqp091.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("dial AMQP: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}
	if err := setup(ch, exchange, queue); err != nil {
		ch.Close()
		conn.Close()
		return nil, fmt.Errorf("setup exchange and queue: %w", err)
	}
	p := NewAuditPublisher(ch, exchange, queue, log)
	p.conn = conn
	return p, nil
}

func setup(ch *amqp091.Channel, exchange, queue string) error {
	if err := ch.ExchangeDeclare(exchange, "direct", true, false, false, false, nil); err != nil {
		return fmt.Errorf("declare exchange: %w", err)
	}
	if _, err := ch.QueueDeclare(queue, true, false, false, false, nil); err != nil {
		return fmt.Errorf("declare queue: %w", err)
	}
	if err := ch.QueueBind(queue, queue, exchange, false, nil); err != nil {
		return fmt.Errorf("bind queue: %w", err)
	}
	return nil
}

// Record publica la entrada como mensaje persistente.
func (p *AuditPublisher) Record(ctx context.Context, l entity.ActivityLog) error {
	body, err := json.Marshal(NewActivityMessage(l))
	if err != nil {
		return fmt.Errorf("marshal message: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()

	p.mu.Lock()
	err = p.ch.PublishWithContext(ctx, p.exchange, p.routingKey, false, false, amqp091.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp091.Persistent,
		Timestamp:    time.Now(),
		Type:         l.Action,
		Body:         body,
	})
	p.mu.Unlock()
	if err != nil {
		return fmt.Errorf("publish message: %w", err)
	}

	p.log.Debug().
		Str("action", l.Action).
		Str("category", string(l.Category)).
		Str("exchange", p.exchange).
		Msg("actividad publicada")
	return nil
}

// Close cierra canal y conexión si fueron abiertos por Dial.
func (p *AuditPublisher) Close() error {
	if c, ok := p.ch.(*amqp091.Channel); ok && c != nil {
		c.Close()
	}
	if p.conn != nil {
		return p.conn.Close()
	}
	return nil
}
