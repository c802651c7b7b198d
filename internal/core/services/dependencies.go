package services

import (
	"context"

	"callroom/internal/core/domain"
	"callroom/internal/core/ports"

	"go.uber.org/zap"
)

// Dependencies are shared by every room-level service. Events and Metrics
// are optional.
type Dependencies struct {
	Presence ports.PresenceRepository
	Members  ports.UserListRepository
	Waiting  ports.UserListRepository
	Notifier ports.Notifier
	Events   ports.RoomEventPublisher
	Metrics  ports.MetricsRecorder
	Logger   *zap.SugaredLogger
}

func (d Dependencies) withDefaults() Dependencies {
	if d.Events == nil {
		d.Events = noopPublisher{}
	}
	if d.Metrics == nil {
		d.Metrics = NoopMetrics{}
	}
	if d.Logger == nil {
		d.Logger = zap.NewNop().Sugar()
	}
	return d
}

type noopPublisher struct{}

func (noopPublisher) PublishRoomEvent(ctx context.Context, event domain.RoomEvent) error {
	return nil
}

// NoopMetrics discards every measurement.
type NoopMetrics struct{}

func (NoopMetrics) RoomCreated()                         {}
func (NoopMetrics) RoomClosed()                          {}
func (NoopMetrics) MemberJoined()                        {}
func (NoopMetrics) MemberLeft()                          {}
func (NoopMetrics) SignalRelayed(kind domain.SignalKind) {}
func (NoopMetrics) DeliveryFailed(event string)          {}
func (NoopMetrics) CleanupStepFailed(step string)        {}
