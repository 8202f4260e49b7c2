package persistence

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/frahmantamala/herasat/internal"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/afero"
)

// ErrSlotEmpty is returned by Load when nothing has been stored yet.
var ErrSlotEmpty = errors.New("persistence slot is empty")

// Slot is a single named blob of bytes owned by the host. Store fully
// overwrites the previous content. There is no protection against two
// writers; the last Store wins.
type Slot interface {
	Name() string
	Load(ctx context.Context) ([]byte, error)
	Store(ctx context.Context, b []byte) error
}

// NewSlot builds the slot selected in the storage config.
func NewSlot(cfg internal.StorageConfig) (Slot, error) {
	switch cfg.Slot {
	case internal.SlotKindFile:
		return NewFileSlot(afero.NewOsFs(), cfg.File.Path), nil
	case internal.SlotKindRedis:
		client := redis.NewClient(&redis.Options{
			Addr:        cfg.Redis.Addr,
			Password:    cfg.Redis.Password,
			DB:          cfg.Redis.DB,
			DialTimeout: cfg.Redis.DialTimeout,
		})
		return NewRedisSlot(client, cfg.SlotName), nil
	case internal.SlotKindMemory:
		return NewMemorySlot(cfg.SlotName), nil
	default:
		return nil, fmt.Errorf("unknown slot kind %q", cfg.Slot)
	}
}

// MemorySlot keeps the blob in process memory.
type MemorySlot struct {
	name string

	mu   sync.RWMutex
	data []byte
}

func NewMemorySlot(name string) *MemorySlot {
	return &MemorySlot{name: name}
}

func (s *MemorySlot) Name() string { return "memory:" + s.name }

func (s *MemorySlot) Load(_ context.Context) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if len(s.data) == 0 {
		return nil, ErrSlotEmpty
	}
	out := make([]byte, len(s.data))
	copy(out, s.data)
	return out, nil
}

func (s *MemorySlot) Store(_ context.Context, b []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data = append(s.data[:0:0], b...)
	return nil
}
