package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"

	"ms-registration/internal/logger"
	"ms-registration/internal/models"
)

// Event is the envelope written to every topic.
type Event struct {
	Type               string      `json:"type"`
	RegistrationNumber string      `json:"registration_number"`
	OccurredAt         time.Time   `json:"occurred_at"`
	Payload            interface{} `json:"payload,omitempty"`
}

type Producer struct {
	registrations *kafka.Writer
	checkins      *kafka.Writer
	badges        *kafka.Writer
	Logger        *logger.Logger
}

func NewProducer(brokers []string, registrationTopic, checkinTopic, badgeTopic string, log *logger.Logger) *Producer {
	writer := func(topic string) *kafka.Writer {
		return kafka.NewWriter(kafka.WriterConfig{
			Brokers: brokers,
			Topic:   topic,
		})
	}
	return &Producer{
		registrations: writer(registrationTopic),
		checkins:      writer(checkinTopic),
		badges:        writer(badgeTopic),
		Logger:        log,
	}
}

func (p *Producer) publish(writer *kafka.Writer, event Event) error {
	msgBytes, err := json.Marshal(event)
	if err != nil {
		return err
	}

	if p.Logger != nil {
		p.Logger.LogKafka("PUBLISH", writer.Topic, event.Type+" "+event.RegistrationNumber)
	}

	return writer.WriteMessages(context.Background(),
		kafka.Message{
			Key:   []byte(event.RegistrationNumber),
			Value: msgBytes,
		},
	)
}

func (p *Producer) PublishRegistrationCreated(reg models.Registration) error {
	return p.publish(p.registrations, Event{
		Type:               EventRegistrationCreated,
		RegistrationNumber: reg.RegistrationNumber,
		OccurredAt:         time.Now(),
		Payload:            reg,
	})
}

func (p *Producer) PublishCheckedIn(reg models.Registration) error {
	return p.publish(p.checkins, Event{
		Type:               EventCheckedIn,
		RegistrationNumber: reg.RegistrationNumber,
		OccurredAt:         time.Now(),
		Payload:            reg,
	})
}

func (p *Producer) PublishBadgeGenerated(registrationNumber, fileName string) error {
	return p.publish(p.badges, Event{
		Type:               EventBadgeGenerated,
		RegistrationNumber: registrationNumber,
		OccurredAt:         time.Now(),
		Payload:            map[string]string{"file": fileName},
	})
}

// Close flushes and closes all writers.
func (p *Producer) Close() error {
	var firstErr error
	for _, w := range []*kafka.Writer{p.registrations, p.checkins, p.badges} {
		if err := w.Close(); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("kafka writer close: %w", err)
		}
	}
	return firstErr
}
