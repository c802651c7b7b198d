package kv

import (
	"context"
	"errors"
	"fmt"
	"time"

	"callroom/internal/core/domain"
	"callroom/internal/core/ports"
)

const (
	fieldUserID          = "userId"
	fieldName            = "name"
	fieldProfileURL      = "profileUrl"
	fieldConnectionID    = "connectionId"
	fieldRoomCode        = "roomCode"
	fieldWaitingRoomCode = "waitingRoomCode"
	fieldMicOn           = "micOn"
	fieldCameraOn        = "cameraOn"
	fieldHandRaised      = "handRaised"
)

// PresenceRepository indexes presence entries by user id (a hash) and by
// connection id (a string holding the user id).
type PresenceRepository struct {
	store  ports.Store
	prefix string
	ttl    time.Duration
}

func NewPresenceRepository(store ports.Store, prefix string, ttl time.Duration) *PresenceRepository {
	return &PresenceRepository{
		store:  store,
		prefix: prefix,
		ttl:    ttl,
	}
}

func (r *PresenceRepository) userKey(id domain.UserID) string {
	return r.prefix + "presence:user:" + string(id)
}

func (r *PresenceRepository) connKey(id domain.ConnectionID) string {
	return r.prefix + "presence:conn:" + string(id)
}

func formatBool(b bool) string {
	if b {
		return "1"
	}
	return "0"
}

func encodePresence(p *domain.PresenceEntry) map[string]string {
	return map[string]string{
		fieldUserID:          string(p.UserID),
		fieldName:            p.Name,
		fieldProfileURL:      p.ProfileURL,
		fieldConnectionID:    string(p.ConnectionID),
		fieldRoomCode:        string(p.RoomCode),
		fieldWaitingRoomCode: string(p.WaitingRoomCode),
		fieldMicOn:           formatBool(p.MicOn),
		fieldCameraOn:        formatBool(p.CameraOn),
		fieldHandRaised:      formatBool(p.HandRaised),
	}
}

func decodePresence(fields map[string]string) *domain.PresenceEntry {
	return &domain.PresenceEntry{
		UserID:          domain.UserID(fields[fieldUserID]),
		Name:            fields[fieldName],
		ProfileURL:      fields[fieldProfileURL],
		ConnectionID:    domain.ConnectionID(fields[fieldConnectionID]),
		RoomCode:        domain.RoomCode(fields[fieldRoomCode]),
		WaitingRoomCode: domain.RoomCode(fields[fieldWaitingRoomCode]),
		MicOn:           fields[fieldMicOn] == "1",
		CameraOn:        fields[fieldCameraOn] == "1",
		HandRaised:      fields[fieldHandRaised] == "1",
	}
}

func encodeUpdate(u domain.PresenceUpdate) map[string]string {
	fields := make(map[string]string)
	if u.RoomCode != nil {
		fields[fieldRoomCode] = string(*u.RoomCode)
	}
	if u.WaitingRoomCode != nil {
		fields[fieldWaitingRoomCode] = string(*u.WaitingRoomCode)
	}
	if u.MicOn != nil {
		fields[fieldMicOn] = formatBool(*u.MicOn)
	}
	if u.CameraOn != nil {
		fields[fieldCameraOn] = formatBool(*u.CameraOn)
	}
	if u.HandRaised != nil {
		fields[fieldHandRaised] = formatBool(*u.HandRaised)
	}
	return fields
}

// Bind writes both indices in one batch, replacing any previous entry for the user.
func (r *PresenceRepository) Bind(ctx context.Context, entry *domain.PresenceEntry) error {
	if entry.UserID == "" || entry.ConnectionID == "" {
		return fmt.Errorf("bind presence: %w", domain.ErrInvalidParams)
	}

	err := r.store.Exec(ctx,
		ports.StoreOp{
			Kind:   ports.StoreOpHashReplace,
			Key:    r.userKey(entry.UserID),
			Fields: encodePresence(entry),
			TTL:    r.ttl,
		},
		ports.StoreOp{
			Kind:  ports.StoreOpSet,
			Key:   r.connKey(entry.ConnectionID),
			Value: string(entry.UserID),
			TTL:   r.ttl,
		},
	)
	if err != nil {
		return fmt.Errorf("failed to bind presence for %s: %w", entry.UserID, err)
	}
	return nil
}

func (r *PresenceRepository) GetByUser(ctx context.Context, userID domain.UserID) (*domain.PresenceEntry, error) {
	fields, err := r.store.HashGetAll(ctx, r.userKey(userID))
	if errors.Is(err, ports.ErrKeyNotFound) {
		return nil, domain.ErrPresenceNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get presence for %s: %w", userID, err)
	}
	return decodePresence(fields), nil
}

// GetByConnection resolves a connection to its entry. A connection key left
// behind by a replaced connection does not resolve.
func (r *PresenceRepository) GetByConnection(ctx context.Context, connID domain.ConnectionID) (*domain.PresenceEntry, error) {
	userID, err := r.store.Get(ctx, r.connKey(connID))
	if errors.Is(err, ports.ErrKeyNotFound) {
		return nil, domain.ErrPresenceNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to resolve connection %s: %w", connID, err)
	}

	entry, err := r.GetByUser(ctx, domain.UserID(userID))
	if err != nil {
		return nil, err
	}
	if entry.ConnectionID != connID {
		return nil, domain.ErrPresenceNotFound
	}
	return entry, nil
}

// linkedKeys are refreshed with the user entry so that an active participant's
// connection index and room lists never expire before the entry does.
func (r *PresenceRepository) linkedKeys() []ports.LinkedKey {
	return []ports.LinkedKey{
		{Prefix: r.connKey(""), Field: fieldConnectionID},
		{Prefix: r.prefix + "room:", Field: fieldRoomCode, Suffix: ":" + listMembers},
		{Prefix: r.prefix + "room:", Field: fieldWaitingRoomCode, Suffix: ":" + listWaiting},
	}
}

func (r *PresenceRepository) Update(ctx context.Context, userID domain.UserID, update domain.PresenceUpdate) error {
	updated, err := r.store.HashUpdate(ctx, r.userKey(userID), encodeUpdate(update), r.ttl, r.linkedKeys()...)
	if err != nil {
		return fmt.Errorf("failed to update presence for %s: %w", userID, err)
	}
	if !updated {
		return domain.ErrPresenceNotFound
	}
	return nil
}

// Unbind drops the connection index, and the user entry too while it still
// belongs to this connection.
func (r *PresenceRepository) Unbind(ctx context.Context, connID domain.ConnectionID) error {
	userID, err := r.store.Get(ctx, r.connKey(connID))
	if errors.Is(err, ports.ErrKeyNotFound) {
		return domain.ErrPresenceNotFound
	}
	if err != nil {
		return fmt.Errorf("failed to resolve connection %s: %w", connID, err)
	}

	ops := []ports.StoreOp{{Kind: ports.StoreOpDel, Key: r.connKey(connID)}}

	entry, err := r.GetByUser(ctx, domain.UserID(userID))
	switch {
	case err == nil && entry.ConnectionID == connID:
		ops = append(ops, ports.StoreOp{Kind: ports.StoreOpDel, Key: r.userKey(entry.UserID)})
	case err != nil && !errors.Is(err, domain.ErrPresenceNotFound):
		return err
	}

	if err := r.store.Exec(ctx, ops...); err != nil {
		return fmt.Errorf("failed to unbind connection %s: %w", connID, err)
	}
	return nil
}
