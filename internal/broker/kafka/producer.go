package kafka

import (
	"context"
	"encoding/json"
	"fmt"

	"pdf-rocket/internal/config"
	"pdf-rocket/internal/domain"

	wbkafka "github.com/wb-go/wbf/kafka"
	"github.com/wb-go/wbf/retry"
)

type ProducerClient struct {
	producer *wbkafka.Producer
	retries  retry.Strategy
}

func NewProducerClient(cfg *config.Config) *ProducerClient {
	return &ProducerClient{
		producer: wbkafka.NewProducer(cfg.Kafka.Brokers, cfg.Kafka.EventsTopic),
		retries:  cfg.DefaultRetryStrategy(),
	}
}

func (p *ProducerClient) Send(ctx context.Context, strategy retry.Strategy, key, value []byte) error {
	return p.producer.SendWithRetry(ctx, strategy, key, value)
}

// Publish sends a conversion event keyed by its id.
func (p *ProducerClient) Publish(ctx context.Context, event *domain.ConversionEvent) error {
	value, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}
	return p.Send(ctx, p.retries, []byte(event.ID), value)
}

func (p *ProducerClient) Close() error {
	return p.producer.Close()
}
