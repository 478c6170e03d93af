// Package kafka provides Kafka message producers for the risk service
package kafka

import (
	"context"
	"encoding/json"
	"time"

	"github.com/IBM/sarama"

	"github.com/saturn-mousehunter/saturn-risk/internal/metrics"
	"github.com/saturn-mousehunter/saturn-risk/internal/service"
	"github.com/saturn-mousehunter/saturn-risk/pkg/logger"
)

const (
	TopicRiskAlerts = "risk-alerts"
	TopicRiskEvents = "risk-events"
)

// AlertProducer produces risk alert messages to Kafka
type AlertProducer struct {
	producer sarama.SyncProducer
	enabled  bool
}

// NewAlertProducer creates a new alert producer
func NewAlertProducer(brokers []string) (*AlertProducer, error) {
	config := sarama.NewConfig()
	config.Producer.RequiredAcks = sarama.WaitForAll
	config.Producer.Retry.Max = 3
	config.Producer.Return.Successes = true
	config.Producer.Compression = sarama.CompressionSnappy
	config.Producer.Partitioner = sarama.NewRoundRobinPartitioner

	producer, err := sarama.NewSyncProducer(brokers, config)
	if err != nil {
		return nil, err
	}

	return &AlertProducer{
		producer: producer,
		enabled:  true,
	}, nil
}

// Close closes the producer
func (p *AlertProducer) Close() error {
	if p.producer != nil {
		return p.producer.Close()
	}
	return nil
}

// SetEnabled enables or disables the producer
func (p *AlertProducer) SetEnabled(enabled bool) {
	p.enabled = enabled
}

// SendRiskAlert sends a risk alert message keyed by target for ordered delivery per target
func (p *AlertProducer) SendRiskAlert(ctx context.Context, alert *service.RiskAlertMessage) error {
	if !p.enabled {
		return nil
	}

	data, err := json.Marshal(alert)
	if err != nil {
		return err
	}

	msg := &sarama.ProducerMessage{
		Topic:     TopicRiskAlerts,
		Key:       sarama.StringEncoder(alert.TargetID),
		Value:     sarama.ByteEncoder(data),
		Timestamp: time.Now(),
		Headers: []sarama.RecordHeader{
			{Key: []byte("alert_type"), Value: []byte(alert.AlertType)},
			{Key: []byte("severity"), Value: []byte(alert.Severity)},
		},
	}

	partition, offset, err := p.producer.SendMessage(msg)
	metrics.RecordKafkaProduce(TopicRiskAlerts, err)
	if err != nil {
		logger.Error("failed to send risk alert",
			"alert_id", alert.AlertID,
			"error", err)
		return err
	}

	logger.Debug("risk alert sent",
		"alert_id", alert.AlertID,
		"partition", partition,
		"offset", offset)

	return nil
}

// RiskEventMessage is the Kafka message format for risk events
type RiskEventMessage struct {
	EventID     string `json:"event_id"`
	Type        string `json:"type"`
	Severity    string `json:"severity"`
	SourceType  string `json:"source_type"`
	SourceID    string `json:"source_id"`
	TargetType  string `json:"target_type"`
	TargetID    string `json:"target_id"`
	Title       string `json:"title"`
	Description string `json:"description"`
	CreatedAt   int64  `json:"created_at"`
}

// SendRiskEvent sends a risk event message
func (p *AlertProducer) SendRiskEvent(ctx context.Context, event *RiskEventMessage) error {
	if !p.enabled {
		return nil
	}

	data, err := json.Marshal(event)
	if err != nil {
		return err
	}

	msg := &sarama.ProducerMessage{
		Topic:     TopicRiskEvents,
		Key:       sarama.StringEncoder(event.TargetID),
		Value:     sarama.ByteEncoder(data),
		Timestamp: time.Now(),
		Headers: []sarama.RecordHeader{
			{Key: []byte("type"), Value: []byte(event.Type)},
			{Key: []byte("severity"), Value: []byte(event.Severity)},
		},
	}

	_, _, err = p.producer.SendMessage(msg)
	metrics.RecordKafkaProduce(TopicRiskEvents, err)
	if err != nil {
		logger.Error("failed to send risk event",
			"event_id", event.EventID,
			"error", err)
		return err
	}
	return nil
}
