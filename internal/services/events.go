package services

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/tasklist/apiserver/internal/mq"
	"github.com/tasklist/apiserver/types"
)

// EventPublisher delivers task lifecycle events to interested consumers.
type EventPublisher interface {
	PublishTaskEvent(ctx context.Context, event types.TaskEvent) error
}

// MQEventPublisher publishes JSON-encoded task events on a single channel.
type MQEventPublisher struct {
	queue     *mq.MQ
	channel   string
	published *prometheus.CounterVec
}

// NewMQEventPublisher returns a publisher writing to channel. published may
// be nil; when set it is incremented with labels (type, result).
func NewMQEventPublisher(queue *mq.MQ, channel string, published *prometheus.CounterVec) *MQEventPublisher {
	return &MQEventPublisher{queue: queue, channel: channel, published: published}
}

func (p *MQEventPublisher) PublishTaskEvent(ctx context.Context, event types.TaskEvent) error {
	data, err := json.Marshal(event)
	if err != nil {
		p.observe(event.Type, "error")
		return fmt.Errorf("encode task event: %w", err)
	}

	attrs := map[string]string{
		"event_type":       string(event.Type),
		mq.AttrContentType: "application/json",
		// per-owner ordering keeps a user's events in commit order
		mq.AttrOrderingKey: "owner-" + strconv.Itoa(event.OwnerID),
	}
	if _, err := p.queue.Publish(ctx, p.channel, data, attrs); err != nil {
		p.observe(event.Type, "error")
		return fmt.Errorf("publish task event: %w", err)
	}
	p.observe(event.Type, "ok")
	return nil
}

func (p *MQEventPublisher) observe(eventType types.TaskEventType, result string) {
	if p.published == nil {
		return
	}
	p.published.WithLabelValues(string(eventType), result).Inc()
}

// DecodeTaskEvent parses a message produced by MQEventPublisher.
func DecodeTaskEvent(msg mq.Message) (types.TaskEvent, error) {
	var event types.TaskEvent
	if err := json.Unmarshal(msg.Data, &event); err != nil {
		return types.TaskEvent{}, fmt.Errorf("decode task event %s: %w", msg.ID, err)
	}
	return event, nil
}
