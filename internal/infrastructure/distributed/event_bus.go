package distributed

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"callroom/internal/core/domain"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const DefaultChannel = "callroom:events"

var ErrAlreadySubscribed = errors.New("already subscribed")

// Event is a room lifecycle change as it travels between instances.
type Event struct {
	domain.RoomEvent
	InstanceID string    `json:"instanceId"`
	Timestamp  time.Time `json:"timestamp"`
}

// EventBus shares room lifecycle events between server instances over Redis
// pub/sub. It implements ports.RoomEventPublisher.
type EventBus struct {
	client     *redis.Client
	instanceID string
	channel    string
	logger     *zap.SugaredLogger

	mu     sync.Mutex
	pubsub *redis.PubSub
}

func NewEventBus(client *redis.Client, instanceID, channel string, logger *zap.SugaredLogger) *EventBus {
	if channel == "" {
		channel = DefaultChannel
	}
	return &EventBus{
		client:     client,
		instanceID: instanceID,
		channel:    channel,
		logger:     logger,
	}
}

func (eb *EventBus) InstanceID() string {
	return eb.instanceID
}

func (eb *EventBus) PublishRoomEvent(ctx context.Context, event domain.RoomEvent) error {
	data, err := json.Marshal(Event{
		RoomEvent:  event,
		InstanceID: eb.instanceID,
		Timestamp:  time.Now().UTC(),
	})
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	if err := eb.client.Publish(ctx, eb.channel, data).Err(); err != nil {
		return fmt.Errorf("failed to publish event: %w", err)
	}

	eb.logger.Debugw("published room event",
		"type", event.Type,
		"room_code", event.RoomCode,
		"user_id", event.UserID,
	)
	return nil
}

// Subscribe delivers events from other instances to handler. It blocks until
// ctx is cancelled or Close is called.
func (eb *EventBus) Subscribe(ctx context.Context, handler func(Event) error) error {
	eb.mu.Lock()
	if eb.pubsub != nil {
		eb.mu.Unlock()
		return ErrAlreadySubscribed
	}
	pubsub := eb.client.Subscribe(ctx, eb.channel)
	eb.pubsub = pubsub
	eb.mu.Unlock()

	if _, err := pubsub.Receive(ctx); err != nil {
		eb.Close()
		return fmt.Errorf("failed to subscribe to %s: %w", eb.channel, err)
	}

	ch := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			eb.Close()
			return ctx.Err()
		case msg, ok := <-ch:
			if !ok {
				return nil
			}

			var event Event
			if err := json.Unmarshal([]byte(msg.Payload), &event); err != nil {
				eb.logger.Warnw("failed to unmarshal event",
					"error", err,
					"payload", msg.Payload,
				)
				continue
			}

			// Skip events from this instance
			if event.InstanceID == eb.instanceID {
				continue
			}

			if err := handler(event); err != nil {
				eb.logger.Warnw("error handling event",
					"type", event.Type,
					"instance_id", event.InstanceID,
					"error", err,
				)
			}
		}
	}
}

// Close ends the subscription, if any.
func (eb *EventBus) Close() error {
	eb.mu.Lock()
	defer eb.mu.Unlock()

	if eb.pubsub == nil {
		return nil
	}
	err := eb.pubsub.Close()
	eb.pubsub = nil
	return err
}
