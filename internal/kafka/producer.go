package kafka

import (
	"context"
	"encoding/json"
	"time"

	"github.com/jmehdipour/shift-scheduler/internal/model"
	"github.com/segmentio/kafka-go"
)

type ProducerConfig struct {
	Brokers      []string
	Topic        string
	BatchTimeout time.Duration // default 50ms
	WriteTimeout time.Duration // default 5s
}

// Producer publishes change notifications, keyed by aggregate instance so
// that one aggregate's changes stay ordered within a partition.
type Producer struct {
	w *kafka.Writer
}

func NewProducerFromConfig(c ProducerConfig) *Producer {
	bt := c.BatchTimeout
	if bt <= 0 {
		bt = 50 * time.Millisecond
	}
	wt := c.WriteTimeout
	if wt <= 0 {
		wt = 5 * time.Second
	}

	w := &kafka.Writer{
		Addr:                   kafka.TCP(c.Brokers...),
		Topic:                  c.Topic,
		Balancer:               &kafka.Hash{},
		BatchTimeout:           bt,
		WriteTimeout:           wt,
		RequiredAcks:           kafka.RequireOne,
		AllowAutoTopicCreation: true,
	}

	return &Producer{w: w}
}

// PublishChange writes one notification.
func (p *Producer) PublishChange(ctx context.Context, n model.ChangeNotification) error {
	value, err := json.Marshal(n)
	if err != nil {
		return err
	}
	return p.w.WriteMessages(ctx, kafka.Message{
		Key:   []byte(n.Key()),
		Value: value,
		Time:  n.ProcessedUTC,
	})
}

func (p *Producer) Close() error { return p.w.Close() }
