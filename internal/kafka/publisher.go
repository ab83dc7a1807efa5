// Package kafka публикует события escrow во внешнюю шину.
package kafka

import (
	"context"
	"encoding/json"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/soulbahprojet/solutions224-backend/internal/service"
)

// Publisher пишет события жизненного цикла escrow в Kafka.
type Publisher struct {
	writer *kafka.Writer
}

// NewPublisher создаёт писателя для указанных брокеров и топика.
func NewPublisher(brokers []string, topic string) *Publisher {
	return &Publisher{
		writer: &kafka.Writer{
			Addr:     kafka.TCP(brokers...),
			Topic:    topic,
			Balancer: &kafka.LeastBytes{},
		},
	}
}

// Publish отправляет событие, ключ — id заказа для упорядоченности по заказу.
func (p *Publisher) Publish(event service.EscrowEvent) error {
	msg, err := json.Marshal(event)
	if err != nil {
		return err
	}

	return p.writer.WriteMessages(context.Background(), kafka.Message{
		Key:   []byte(event.OrderID),
		Value: msg,
		Time:  time.Now(),
	})
}

// Close закрывает соединение с брокерами.
func (p *Publisher) Close() error {
	return p.writer.Close()
}
