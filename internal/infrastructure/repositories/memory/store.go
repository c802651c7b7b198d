package memory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"callroom/internal/core/ports"
)

type valueKind int

const (
	kindString valueKind = iota
	kindHash
	kindList
)

type item struct {
	kind      valueKind
	str       string
	hash      map[string]string
	list      []string
	expiresAt time.Time
}

func (i *item) expired(now time.Time) bool {
	return !i.expiresAt.IsZero() && !now.Before(i.expiresAt)
}

// MemoryStore keeps keys in process. Expired keys are dropped when next touched.
type MemoryStore struct {
	items map[string]*item
	mu    sync.Mutex
	now   func() time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		items: make(map[string]*item),
		now:   time.Now,
	}
}

// SetClock replaces the time source; used by tests to move past TTLs.
func (s *MemoryStore) SetClock(now func() time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.now = now
}

// lookup returns the live item for key, evicting it if it has expired.
// Caller must hold s.mu.
func (s *MemoryStore) lookup(key string) *item {
	it, ok := s.items[key]
	if !ok {
		return nil
	}
	if it.expired(s.now()) {
		delete(s.items, key)
		return nil
	}
	return it
}

func (s *MemoryStore) touch(it *item, ttl time.Duration) {
	if ttl > 0 {
		it.expiresAt = s.now().Add(ttl)
	}
}

func wrongType(key string) error {
	return fmt.Errorf("wrong value type for key %s", key)
}

func (s *MemoryStore) Get(ctx context.Context, key string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	it := s.lookup(key)
	if it == nil {
		return "", ports.ErrKeyNotFound
	}
	if it.kind != kindString {
		return "", wrongType(key)
	}
	return it.str, nil
}

func (s *MemoryStore) HashGetAll(ctx context.Context, key string) (map[string]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	it := s.lookup(key)
	if it == nil {
		return nil, ports.ErrKeyNotFound
	}
	if it.kind != kindHash {
		return nil, wrongType(key)
	}

	out := make(map[string]string, len(it.hash))
	for k, v := range it.hash {
		out[k] = v
	}
	return out, nil
}

func (s *MemoryStore) HashUpdate(ctx context.Context, key string, fields map[string]string, ttl time.Duration, linked ...ports.LinkedKey) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	it := s.lookup(key)
	if it == nil {
		return false, nil
	}
	if it.kind != kindHash {
		return false, wrongType(key)
	}

	for k, v := range fields {
		it.hash[k] = v
	}
	s.touch(it, ttl)
	for _, l := range linked {
		if v := it.hash[l.Field]; v != "" {
			if other := s.lookup(l.Prefix + v + l.Suffix); other != nil {
				s.touch(other, ttl)
			}
		}
	}
	return true, nil
}

func (s *MemoryStore) ListPush(ctx context.Context, key, value string, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	it := s.lookup(key)
	if it == nil {
		it = &item{kind: kindList}
		s.items[key] = it
	}
	if it.kind != kindList {
		return wrongType(key)
	}

	it.list = append(it.list, value)
	s.touch(it, ttl)
	return nil
}

func (s *MemoryStore) ListRange(ctx context.Context, key string) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	it := s.lookup(key)
	if it == nil {
		return []string{}, nil
	}
	if it.kind != kindList {
		return nil, wrongType(key)
	}

	out := make([]string, len(it.list))
	copy(out, it.list)
	return out, nil
}

func (s *MemoryStore) ListIndex(ctx context.Context, key string, index int64) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	it := s.lookup(key)
	if it == nil {
		return "", ports.ErrKeyNotFound
	}
	if it.kind != kindList {
		return "", wrongType(key)
	}

	n := int64(len(it.list))
	if index < 0 {
		index += n
	}
	if index < 0 || index >= n {
		return "", ports.ErrKeyNotFound
	}
	return it.list[index], nil
}

func (s *MemoryStore) ListRemove(ctx context.Context, key, value string, ttl time.Duration) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	it := s.lookup(key)
	if it == nil {
		return 0, nil
	}
	if it.kind != kindList {
		return 0, wrongType(key)
	}

	for i, v := range it.list {
		if v == value {
			it.list = append(it.list[:i], it.list[i+1:]...)
			if len(it.list) == 0 {
				delete(s.items, key)
			} else {
				s.touch(it, ttl)
			}
			return 1, nil
		}
	}
	return 0, nil
}

// Exec applies every op under one lock so readers never see a partial batch.
func (s *MemoryStore) Exec(ctx context.Context, ops ...ports.StoreOp) error {
	for _, op := range ops {
		switch op.Kind {
		case ports.StoreOpSet, ports.StoreOpHashReplace, ports.StoreOpDel:
		default:
			return fmt.Errorf("unknown store operation: %s", op.Kind)
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, op := range ops {
		switch op.Kind {
		case ports.StoreOpSet:
			it := &item{kind: kindString, str: op.Value}
			s.touch(it, op.TTL)
			s.items[op.Key] = it
		case ports.StoreOpHashReplace:
			it := &item{kind: kindHash, hash: make(map[string]string, len(op.Fields))}
			for k, v := range op.Fields {
				it.hash[k] = v
			}
			s.touch(it, op.TTL)
			s.items[op.Key] = it
		case ports.StoreOpDel:
			delete(s.items, op.Key)
		}
	}
	return nil
}

func (s *MemoryStore) Ping(ctx context.Context) error {
	return ctx.Err()
}

func (s *MemoryStore) Close() error {
	return nil
}

// Len reports the number of live keys.
func (s *MemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := 0
	for key := range s.items {
		if s.lookup(key) != nil {
			n++
		}
	}
	return n
}
