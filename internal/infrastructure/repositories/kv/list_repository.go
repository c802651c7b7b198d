package kv

import (
	"context"
	"errors"
	"fmt"
	"time"

	"callroom/internal/core/domain"
	"callroom/internal/core/ports"
)

// ListRepository keeps an insertion-ordered list of user ids per room.
// Room membership and the waiting list are both instances of it.
type ListRepository struct {
	store  ports.Store
	prefix string
	name   string
	ttl    time.Duration
}

func newListRepository(store ports.Store, prefix, name string, ttl time.Duration) *ListRepository {
	return &ListRepository{
		store:  store,
		prefix: prefix,
		name:   name,
		ttl:    ttl,
	}
}

// NewMembershipRepository stores room members; the head of the list is the owner.
func NewMembershipRepository(store ports.Store, prefix string, ttl time.Duration) *ListRepository {
	return newListRepository(store, prefix, listMembers, ttl)
}

// NewWaitingRepository stores entrants waiting for the owner's decision, oldest first.
func NewWaitingRepository(store ports.Store, prefix string, ttl time.Duration) *ListRepository {
	return newListRepository(store, prefix, listWaiting, ttl)
}

const (
	listMembers = "members"
	listWaiting = "waiting"
)

func (r *ListRepository) key(code domain.RoomCode) string {
	return fmt.Sprintf("%sroom:%s:%s", r.prefix, code, r.name)
}

func (r *ListRepository) Append(ctx context.Context, code domain.RoomCode, userID domain.UserID) error {
	if err := r.store.ListPush(ctx, r.key(code), string(userID), r.ttl); err != nil {
		return fmt.Errorf("failed to append %s to %s list of %s: %w", userID, r.name, code, err)
	}
	return nil
}

func (r *ListRepository) List(ctx context.Context, code domain.RoomCode) ([]domain.UserID, error) {
	vals, err := r.store.ListRange(ctx, r.key(code))
	if err != nil {
		return nil, fmt.Errorf("failed to read %s list of %s: %w", r.name, code, err)
	}

	ids := make([]domain.UserID, len(vals))
	for i, v := range vals {
		ids[i] = domain.UserID(v)
	}
	return ids, nil
}

func (r *ListRepository) Head(ctx context.Context, code domain.RoomCode) (domain.UserID, bool, error) {
	val, err := r.store.ListIndex(ctx, r.key(code), 0)
	if errors.Is(err, ports.ErrKeyNotFound) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("failed to read head of %s list of %s: %w", r.name, code, err)
	}
	return domain.UserID(val), true, nil
}

func (r *ListRepository) Contains(ctx context.Context, code domain.RoomCode, userID domain.UserID) (bool, error) {
	ids, err := r.List(ctx, code)
	if err != nil {
		return false, err
	}
	for _, id := range ids {
		if id == userID {
			return true, nil
		}
	}
	return false, nil
}

// Remove deletes the first occurrence of userID and reports whether one was found.
func (r *ListRepository) Remove(ctx context.Context, code domain.RoomCode, userID domain.UserID) (bool, error) {
	n, err := r.store.ListRemove(ctx, r.key(code), string(userID), r.ttl)
	if err != nil {
		return false, fmt.Errorf("failed to remove %s from %s list of %s: %w", userID, r.name, code, err)
	}
	return n > 0, nil
}

func (r *ListRepository) Clear(ctx context.Context, code domain.RoomCode) error {
	if err := r.store.Exec(ctx, ports.StoreOp{Kind: ports.StoreOpDel, Key: r.key(code)}); err != nil {
		return fmt.Errorf("failed to clear %s list of %s: %w", r.name, code, err)
	}
	return nil
}
