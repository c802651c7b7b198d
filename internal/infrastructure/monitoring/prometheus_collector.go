package monitoring

import (
	"strconv"
	"time"

	"callroom/internal/core/domain"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// PrometheusCollector records room, relay and transport metrics. It serves
// as both the services' MetricsRecorder and the socket server's Observer.
type PrometheusCollector struct {
	connectionsActive prometheus.Gauge
	connectionsTotal  prometheus.Counter

	roomsCreated  prometheus.Counter
	roomsClosed   prometheus.Counter
	membersJoined prometheus.Counter
	membersLeft   prometheus.Counter

	signalsRelayed   *prometheus.CounterVec
	eventsHandled    *prometheus.CounterVec
	eventDuration    *prometheus.HistogramVec
	deliveryFailures *prometheus.CounterVec
	cleanupFailures  *prometheus.CounterVec
	remoteRoomEvents *prometheus.CounterVec
}

// NewPrometheusCollector registers the collectors on reg; nil means the
// default registry.
func NewPrometheusCollector(reg prometheus.Registerer) *PrometheusCollector {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)

	return &PrometheusCollector{
		connectionsActive: factory.NewGauge(prometheus.GaugeOpts{
			Name: "callroom_connections_active",
			Help: "Number of open signaling connections",
		}),

		connectionsTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "callroom_connections_total",
			Help: "Total number of signaling connections accepted",
		}),

		roomsCreated: factory.NewCounter(prometheus.CounterOpts{
			Name: "callroom_rooms_created_total",
			Help: "Total number of rooms created",
		}),

		roomsClosed: factory.NewCounter(prometheus.CounterOpts{
			Name: "callroom_rooms_closed_total",
			Help: "Total number of rooms closed after the last member left",
		}),

		membersJoined: factory.NewCounter(prometheus.CounterOpts{
			Name: "callroom_members_joined_total",
			Help: "Total number of members admitted to rooms",
		}),

		membersLeft: factory.NewCounter(prometheus.CounterOpts{
			Name: "callroom_members_left_total",
			Help: "Total number of members that left or were expelled",
		}),

		signalsRelayed: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "callroom_signals_relayed_total",
			Help: "Negotiation messages relayed between members",
		}, []string{"kind"}),

		eventsHandled: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "callroom_events_handled_total",
			Help: "Inbound events by name and acknowledgement code",
		}, []string{"event", "code"}),

		eventDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "callroom_event_duration_seconds",
			Help:    "Time spent handling inbound events",
			Buckets: []float64{0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1},
		}, []string{"event"}),

		deliveryFailures: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "callroom_delivery_failures_total",
			Help: "Server events that could not be queued for a connection",
		}, []string{"event"}),

		cleanupFailures: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "callroom_cleanup_failures_total",
			Help: "Disconnect cleanup steps that failed unexpectedly",
		}, []string{"step"}),

		remoteRoomEvents: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "callroom_remote_room_events_total",
			Help: "Room lifecycle events received from other instances",
		}, []string{"type"}),
	}
}

func (p *PrometheusCollector) RoomCreated()  { p.roomsCreated.Inc() }
func (p *PrometheusCollector) RoomClosed()   { p.roomsClosed.Inc() }
func (p *PrometheusCollector) MemberJoined() { p.membersJoined.Inc() }
func (p *PrometheusCollector) MemberLeft()   { p.membersLeft.Inc() }

func (p *PrometheusCollector) SignalRelayed(kind domain.SignalKind) {
	p.signalsRelayed.WithLabelValues(string(kind)).Inc()
}

func (p *PrometheusCollector) DeliveryFailed(event string) {
	p.deliveryFailures.WithLabelValues(event).Inc()
}

func (p *PrometheusCollector) CleanupStepFailed(step string) {
	p.cleanupFailures.WithLabelValues(step).Inc()
}

func (p *PrometheusCollector) ConnectionOpened() {
	p.connectionsActive.Inc()
	p.connectionsTotal.Inc()
}

func (p *PrometheusCollector) ConnectionClosed() {
	p.connectionsActive.Dec()
}

func (p *PrometheusCollector) EventHandled(event string, code int, duration time.Duration) {
	p.eventsHandled.WithLabelValues(event, strconv.Itoa(code)).Inc()
	p.eventDuration.WithLabelValues(event).Observe(duration.Seconds())
}

// RemoteRoomEvent counts an event published by another instance.
func (p *PrometheusCollector) RemoteRoomEvent(event domain.RoomEvent) {
	p.remoteRoomEvents.WithLabelValues(string(event.Type)).Inc()
}
