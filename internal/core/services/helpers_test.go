package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"callroom/internal/core/domain"
	"callroom/internal/core/ports"
	"callroom/internal/infrastructure/repositories/kv"
	"callroom/internal/infrastructure/repositories/memory"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

type sentEvent struct {
	ConnID  domain.ConnectionID
	Event   string
	Payload interface{}
}

// fakeNotifier records deliveries and keeps broadcast groups in memory.
type fakeNotifier struct {
	mu      sync.Mutex
	groups  map[domain.RoomCode]map[domain.ConnectionID]struct{}
	sent    []sentEvent
	closed  []domain.ConnectionID
	failFor map[domain.ConnectionID]bool
}

func newFakeNotifier() *fakeNotifier {
	return &fakeNotifier{
		groups:  make(map[domain.RoomCode]map[domain.ConnectionID]struct{}),
		failFor: make(map[domain.ConnectionID]bool),
	}
}

func (n *fakeNotifier) Notify(connID domain.ConnectionID, event string, payload interface{}) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.failFor[connID] {
		return errors.New("send queue full")
	}
	n.sent = append(n.sent, sentEvent{ConnID: connID, Event: event, Payload: payload})
	return nil
}

func (n *fakeNotifier) JoinGroup(connID domain.ConnectionID, code domain.RoomCode) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.groups[code] == nil {
		n.groups[code] = make(map[domain.ConnectionID]struct{})
	}
	n.groups[code][connID] = struct{}{}
}

func (n *fakeNotifier) LeaveGroup(connID domain.ConnectionID, code domain.RoomCode) {
	n.mu.Lock()
	defer n.mu.Unlock()
	delete(n.groups[code], connID)
	if len(n.groups[code]) == 0 {
		delete(n.groups, code)
	}
}

func (n *fakeNotifier) GroupExists(code domain.RoomCode) bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.groups[code]) > 0
}

func (n *fakeNotifier) CloseConnection(connID domain.ConnectionID) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.closed = append(n.closed, connID)
}

// events returns the payloads delivered to connID for event, in order.
func (n *fakeNotifier) events(connID domain.ConnectionID, event string) []interface{} {
	n.mu.Lock()
	defer n.mu.Unlock()
	var out []interface{}
	for _, e := range n.sent {
		if e.ConnID == connID && e.Event == event {
			out = append(out, e.Payload)
		}
	}
	return out
}

func (n *fakeNotifier) count() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.sent)
}

func (n *fakeNotifier) reset() {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sent = nil
}

type MockTokenVerifier struct {
	mock.Mock
}

func (m *MockTokenVerifier) VerifyAccessToken(token string) (domain.Identity, error) {
	args := m.Called(token)
	return args.Get(0).(domain.Identity), args.Error(1)
}

type recordingMetrics struct {
	mu             sync.Mutex
	roomsCreated   int
	roomsClosed    int
	joined         int
	left           int
	relayed        map[domain.SignalKind]int
	deliveryFailed map[string]int
	cleanupFailed  map[string]int
}

func newRecordingMetrics() *recordingMetrics {
	return &recordingMetrics{
		relayed:        make(map[domain.SignalKind]int),
		deliveryFailed: make(map[string]int),
		cleanupFailed:  make(map[string]int),
	}
}

func (m *recordingMetrics) RoomCreated()  { m.mu.Lock(); m.roomsCreated++; m.mu.Unlock() }
func (m *recordingMetrics) RoomClosed()   { m.mu.Lock(); m.roomsClosed++; m.mu.Unlock() }
func (m *recordingMetrics) MemberJoined() { m.mu.Lock(); m.joined++; m.mu.Unlock() }
func (m *recordingMetrics) MemberLeft()   { m.mu.Lock(); m.left++; m.mu.Unlock() }

func (m *recordingMetrics) SignalRelayed(kind domain.SignalKind) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.relayed[kind]++
}

func (m *recordingMetrics) DeliveryFailed(event string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.deliveryFailed[event]++
}

func (m *recordingMetrics) CleanupStepFailed(step string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cleanupFailed[step]++
}

type testEnv struct {
	ctx       context.Context
	store     *memory.MemoryStore
	deps      Dependencies
	notifier  *fakeNotifier
	metrics   *recordingMetrics
	verifier  *MockTokenVerifier
	rooms     ports.RoomService
	admission ports.AdmissionService
	relay     ports.SignalRelay
	calls     ports.CallService
	lifecycle ports.LifecycleService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	return newTestEnvWithTTL(t, 0)
}

// newTestEnvWithTTL expires every key ttl after its last mutation.
func newTestEnvWithTTL(t *testing.T, ttl time.Duration) *testEnv {
	t.Helper()

	store := memory.NewMemoryStore()
	env := &testEnv{
		ctx:      context.Background(),
		store:    store,
		notifier: newFakeNotifier(),
		metrics:  newRecordingMetrics(),
		verifier: new(MockTokenVerifier),
	}
	env.deps = Dependencies{
		Presence: kv.NewPresenceRepository(store, "test:", ttl),
		Members:  kv.NewMembershipRepository(store, "test:", ttl),
		Waiting:  kv.NewWaitingRepository(store, "test:", ttl),
		Notifier: env.notifier,
		Metrics:  env.metrics,
		Logger:   zaptest.NewLogger(t).Sugar(),
	}
	env.build()
	return env
}

func (e *testEnv) build() {
	e.rooms = NewRoomService(e.deps)
	e.admission = NewAdmissionService(e.deps, e.rooms)
	e.relay = NewSignalRelay(e.deps)
	e.calls = NewCallService(e.deps, 20)
	e.lifecycle = NewLifecycleService(e.deps, e.verifier, e.rooms, e.admission)
}

func connID(userID domain.UserID) domain.ConnectionID {
	return domain.ConnectionID("conn_" + string(userID))
}

// connect binds userID on conn_<userID>.
func (e *testEnv) connect(t *testing.T, userID domain.UserID) domain.ConnectionID {
	t.Helper()
	return e.connectOn(t, userID, connID(userID))
}

func (e *testEnv) connectOn(t *testing.T, userID domain.UserID, conn domain.ConnectionID) domain.ConnectionID {
	t.Helper()
	token := "token-" + string(userID)
	identity := domain.Identity{UserID: userID, Name: string(userID) + " name"}
	e.verifier.On("VerifyAccessToken", token).Return(identity, nil).Maybe()

	_, err := e.lifecycle.Connect(e.ctx, conn, token)
	require.NoError(t, err)
	return conn
}

// roomWith creates a room owned by the first user and admits the rest in order.
func (e *testEnv) roomWith(t *testing.T, users ...domain.UserID) domain.RoomCode {
	t.Helper()
	owner := e.connect(t, users[0])
	code, err := e.rooms.CreateRoom(e.ctx, owner, "")
	require.NoError(t, err)

	for _, u := range users[1:] {
		conn := e.connect(t, u)
		require.NoError(t, e.admission.RequestJoin(e.ctx, conn, code))
		require.NoError(t, e.admission.Decide(e.ctx, owner, code, u, true))
	}
	e.notifier.reset()
	return code
}

func (e *testEnv) memberIDs(t *testing.T, code domain.RoomCode) []domain.UserID {
	t.Helper()
	ids, err := e.deps.Members.List(e.ctx, code)
	require.NoError(t, err)
	return ids
}

func (e *testEnv) waitingIDs(t *testing.T, code domain.RoomCode) []domain.UserID {
	t.Helper()
	ids, err := e.deps.Waiting.List(e.ctx, code)
	require.NoError(t, err)
	return ids
}

func (e *testEnv) presenceOf(t *testing.T, userID domain.UserID) *domain.PresenceEntry {
	t.Helper()
	entry, err := e.deps.Presence.GetByUser(e.ctx, userID)
	require.NoError(t, err)
	return entry
}
