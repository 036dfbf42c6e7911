package notify

import (
	"context"
	"encoding/json"
	"time"

	"github.com/producthunt/apiserver/internal/mq"
	"github.com/producthunt/apiserver/types"
	"go.uber.org/zap"
)

// Publisher matches services.EventPublisher.
type Publisher interface {
	Publish(ctx context.Context, event types.Event)
}

const publishTimeout = 5 * time.Second

// MQPublisher forwards events to a broker channel as JSON. Failures are logged
// and never reach the caller.
type MQPublisher struct {
	queue   *mq.MQ
	channel string
	logger  *zap.Logger
}

func NewMQPublisher(queue *mq.MQ, channel string, logger *zap.Logger) *MQPublisher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &MQPublisher{queue: queue, channel: channel, logger: logger}
}

func (p *MQPublisher) Publish(ctx context.Context, event types.Event) {
	data, err := json.Marshal(event)
	if err != nil {
		p.logger.Error("failed to encode event", zap.String("type", string(event.Type)), zap.Error(err))
		return
	}

	// The request context may end as soon as the response is written.
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), publishTimeout)
	defer cancel()
	id, err := p.queue.Publish(ctx, p.channel, data, map[string]string{
		mq.AttrEventType:   string(event.Type),
		mq.AttrContentType: "application/json",
	})
	if err != nil {
		p.logger.Warn("failed to publish event",
			zap.String("channel", p.channel),
			zap.String("type", string(event.Type)),
			zap.String("product_id", event.ProductID),
			zap.Error(err),
		)
		return
	}
	p.logger.Debug("published event", zap.String("message_id", id), zap.String("type", string(event.Type)))
}

// DecodeEvent parses a message produced by MQPublisher.
func DecodeEvent(msg mq.Message) (types.Event, error) {
	var event types.Event
	err := json.Unmarshal(msg.Data, &event)
	return event, err
}

// Fanout delivers each event to every non-nil publisher in order.
type Fanout []Publisher

func NewFanout(publishers ...Publisher) Fanout {
	out := make(Fanout, 0, len(publishers))
	for _, p := range publishers {
		if p != nil {
			out = append(out, p)
		}
	}
	return out
}

func (f Fanout) Publish(ctx context.Context, event types.Event) {
	for _, p := range f {
		p.Publish(ctx, event)
	}
}
