// Package analytics publica os eventos de adesão para o serviço de análise.
package analytics

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"

	"eva-meds/pkg/models"
)

const publishTimeout = 5 * time.Second

// Publisher destino dos eventos de adesão
type Publisher interface {
	PublishAdherence(ctx context.Context, entry *models.AdherenceLogEntry) error
	Close() error
}

// channel o subconjunto do amqp.Channel usado aqui
type channel interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	Close() error
}

// AdherenceEvent corpo publicado na exchange
type AdherenceEvent struct {
	Event  string                    `json:"event"`
	Entry  *models.AdherenceLogEntry `json:"entry"`
	SentAt time.Time                 `json:"sentAt"`
}

type AMQPPublisher struct {
	conn       *amqp.Connection
	ch         channel
	exchange   string
	routingKey string
	logger     *zap.Logger
	mu         sync.Mutex
}

// NewAMQPPublisher conecta e declara a exchange (topic, durável)
func NewAMQPPublisher(url, exchange, routingKey string, logger *zap.Logger) (*AMQPPublisher, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to open channel: %w", err)
	}

	if err := ch.ExchangeDeclare(exchange, "topic", true, false, false, false, nil); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to declare exchange %s: %w", exchange, err)
	}

	return &AMQPPublisher{
		conn:       conn,
		ch:         ch,
		exchange:   exchange,
		routingKey: routingKey,
		logger:     logger,
	}, nil
}

// PublishAdherence publica a entrada do log como JSON persistente
func (p *AMQPPublisher) PublishAdherence(ctx context.Context, entry *models.AdherenceLogEntry) error {
	body, err := json.Marshal(AdherenceEvent{
		Event:  "adherence.updated",
		Entry:  entry,
		SentAt: time.Now().UTC(),
	})
	if err != nil {
		return fmt.Errorf("failed to encode adherence event: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()

	// amqp.Channel não é seguro para publicações concorrentes
	p.mu.Lock()
	defer p.mu.Unlock()

	err = p.ch.PublishWithContext(ctx, p.exchange, p.routingKey, false, false, amqp.Publishing{
		DeliveryMode: amqp.Persistent,
		ContentType:  "application/json",
		MessageId:    entry.ID,
		Timestamp:    time.Now().UTC(),
		Body:         body,
	})
	if err != nil {
		return fmt.Errorf("failed to publish adherence event: %w", err)
	}
	return nil
}

func (p *AMQPPublisher) Close() error {
	if p.ch != nil {
		p.ch.Close()
	}
	if p.conn != nil {
		return p.conn.Close()
	}
	return nil
}

// NoopPublisher usado quando AMQP_URL não está configurado
type NoopPublisher struct{}

func (NoopPublisher) PublishAdherence(context.Context, *models.AdherenceLogEntry) error { return nil }
func (NoopPublisher) Close() error                                                      { return nil }
