package ports

import (
	"context"
	"errors"
	"time"

	"callroom/internal/core/domain"
)

var ErrKeyNotFound = errors.New("key not found")

type StoreOpKind string

const (
	StoreOpSet         StoreOpKind = "set"
	StoreOpHashReplace StoreOpKind = "hash_replace"
	StoreOpDel         StoreOpKind = "del"
)

// StoreOp is one step of an atomic Exec batch.
type StoreOp struct {
	Kind   StoreOpKind
	Key    string
	Value  string
	Fields map[string]string
	TTL    time.Duration
}

// LinkedKey names the key Prefix+hash[Field]+Suffix of a hash, e.g. a
// secondary index that must expire together with the hash. An empty field
// links nothing.
type LinkedKey struct {
	Prefix string
	Field  string
	Suffix string
}

// Store is the key-value capability the repositories are built on.
// Every mutation refreshes the TTL of the key it touches.
type Store interface {
	Get(ctx context.Context, key string) (string, error)
	HashGetAll(ctx context.Context, key string) (map[string]string, error)
	// HashUpdate sets fields only when key already exists. The TTL of every
	// linked key that exists is refreshed in the same step.
	HashUpdate(ctx context.Context, key string, fields map[string]string, ttl time.Duration, linked ...LinkedKey) (bool, error)
	ListPush(ctx context.Context, key, value string, ttl time.Duration) error
	ListRange(ctx context.Context, key string) ([]string, error)
	ListIndex(ctx context.Context, key string, index int64) (string, error)
	// ListRemove removes the first occurrence of value and returns how many were removed.
	ListRemove(ctx context.Context, key, value string, ttl time.Duration) (int64, error)
	Exec(ctx context.Context, ops ...StoreOp) error
	Ping(ctx context.Context) error
	Close() error
}

type PresenceRepository interface {
	Bind(ctx context.Context, entry *domain.PresenceEntry) error
	GetByConnection(ctx context.Context, connID domain.ConnectionID) (*domain.PresenceEntry, error)
	GetByUser(ctx context.Context, userID domain.UserID) (*domain.PresenceEntry, error)
	Update(ctx context.Context, userID domain.UserID, update domain.PresenceUpdate) error
	Unbind(ctx context.Context, connID domain.ConnectionID) error
}

// UserListRepository is an ordered per-room list of user ids.
type UserListRepository interface {
	Append(ctx context.Context, code domain.RoomCode, userID domain.UserID) error
	List(ctx context.Context, code domain.RoomCode) ([]domain.UserID, error)
	Head(ctx context.Context, code domain.RoomCode) (domain.UserID, bool, error)
	Contains(ctx context.Context, code domain.RoomCode, userID domain.UserID) (bool, error)
	Remove(ctx context.Context, code domain.RoomCode, userID domain.UserID) (bool, error)
	Clear(ctx context.Context, code domain.RoomCode) error
}
