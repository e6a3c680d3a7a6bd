package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/IBM/sarama"

	"github.com/civicgrid/grievance-engine/internal/config"
	"github.com/civicgrid/grievance-engine/internal/lifecycle"
)

// envelope is the wire format for lifecycle events.
type envelope struct {
	EventType   string    `json:"event_type"`
	ComplaintID string    `json:"complaint_id"`
	Status      string    `json:"status"`
	ActorID     string    `json:"actor_id"`
	ActorRole   string    `json:"actor_role"`
	OccurredAt  time.Time `json:"occurred_at"`
	Details     string    `json:"details,omitempty"`
}

// syncProducer is the subset of sarama.SyncProducer the publisher uses.
type syncProducer interface {
	SendMessage(msg *sarama.ProducerMessage) (partition int32, offset int64, err error)
	Close() error
}

const publishQueueSize = 256

// KafkaPublisher publishes lifecycle events to Kafka, one topic per event
// type. Messages are keyed by complaint ID so all events for a complaint land
// on the same partition in order. Publish only enqueues; a single worker
// drives the broker round-trips, so a slow or unreachable broker never stalls
// the transition that produced the event. When the queue is full the event is
// dropped and logged rather than blocking the caller.
type KafkaPublisher struct {
	producer syncProducer
	topics   config.TopicsConfig
	logger   *slog.Logger

	queue chan *sarama.ProducerMessage
	wg    sync.WaitGroup
}

// NewKafkaPublisher connects a synchronous producer to the configured brokers
// and starts the delivery worker.
func NewKafkaPublisher(cfg config.KafkaConfig, logger *slog.Logger) (*KafkaPublisher, error) {
	saramaConfig := sarama.NewConfig()
	saramaConfig.Producer.RequiredAcks = sarama.WaitForAll
	saramaConfig.Producer.Retry.Max = 3
	saramaConfig.Producer.Return.Successes = true
	saramaConfig.Producer.Idempotent = true
	saramaConfig.Net.MaxOpenRequests = 1

	producer, err := sarama.NewSyncProducer(cfg.Brokers, saramaConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create kafka producer: %w", err)
	}

	return newPublisher(producer, cfg.Topics, logger), nil
}

func newPublisher(producer syncProducer, topics config.TopicsConfig, logger *slog.Logger) *KafkaPublisher {
	publisher := &KafkaPublisher{
		producer: producer,
		topics:   topics,
		logger:   logger,
		queue:    make(chan *sarama.ProducerMessage, publishQueueSize),
	}

	// One worker keeps per-complaint ordering intact across topics.
	publisher.wg.Add(1)
	go publisher.deliver()

	return publisher
}

// Publish enqueues one lifecycle event. Publishing happens after the owning
// transition has committed, so queue overflow and broker failures are logged
// and absorbed rather than surfaced to the caller.
func (p *KafkaPublisher) Publish(_ context.Context, event lifecycle.Event) {
	topic := p.topicFor(event.Type)
	if topic == "" {
		p.logger.Warn("No topic mapped for event type", "event_type", event.Type)
		return
	}

	payload, err := json.Marshal(envelope{
		EventType:   event.Type,
		ComplaintID: event.ComplaintID,
		Status:      string(event.Status),
		ActorID:     event.Actor.ID,
		ActorRole:   event.Actor.Role,
		OccurredAt:  event.OccurredAt,
		Details:     event.Details,
	})
	if err != nil {
		p.logger.Error("Failed to marshal lifecycle event",
			"event_type", event.Type, "complaint_id", event.ComplaintID, "error", err)
		return
	}

	message := &sarama.ProducerMessage{
		Topic: topic,
		Key:   sarama.StringEncoder(event.ComplaintID),
		Value: sarama.ByteEncoder(payload),
	}

	select {
	case p.queue <- message:
	default:
		p.logger.Warn("Event queue full, dropping lifecycle event",
			"topic", topic, "complaint_id", event.ComplaintID)
	}
}

func (p *KafkaPublisher) deliver() {
	defer p.wg.Done()

	for message := range p.queue {
		partition, offset, err := p.producer.SendMessage(message)
		if err != nil {
			p.logger.Error("Failed to publish lifecycle event",
				"topic", message.Topic, "error", err)
			continue
		}

		p.logger.Debug("Lifecycle event published",
			"topic", message.Topic,
			"partition", partition,
			"offset", offset)
	}
}

func (p *KafkaPublisher) topicFor(eventType string) string {
	switch eventType {
	case lifecycle.EventSubmitted:
		return p.topics.ComplaintSubmitted
	case lifecycle.EventEscalated:
		return p.topics.ComplaintEscalated
	case lifecycle.EventResolved:
		return p.topics.ComplaintResolved
	case lifecycle.EventReviewed:
		return p.topics.ComplaintReviewed
	default:
		return ""
	}
}

// Close drains the queue, stops the worker, and shuts down the producer.
func (p *KafkaPublisher) Close() error {
	close(p.queue)
	p.wg.Wait()
	return p.producer.Close()
}
