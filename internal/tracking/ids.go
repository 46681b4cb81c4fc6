package tracking

import (
	"context"
	"fmt"
	"sync"

	"bevops-backend/internal/models"
)

// Sequence hands out monotonically increasing numbers per container type.
// The Postgres implementation lives in internal/database.
type Sequence interface {
	Next(ctx context.Context, t models.ContainerType) (int64, error)
}

var idPrefixes = map[models.ContainerType]string{
	models.ContainerKeg:    "KEG",
	models.ContainerCase:   "CASE",
	models.ContainerPallet: "PLT",
	models.ContainerBottle: "BTL",
	models.ContainerCan:    "CAN",
}

// Prefix returns the id prefix for a container type
func Prefix(t models.ContainerType) (string, error) {
	p, ok := idPrefixes[t]
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownType, t)
	}
	return p, nil
}

// FormatID renders a sequence number as KEG-0001 style. Numbers past 9999 keep all digits.
func FormatID(t models.ContainerType, n int64) (string, error) {
	p, err := Prefix(t)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%s-%04d", p, n), nil
}

// QRCode returns the opaque scan token for an id
func QRCode(id string) string {
	return "qr:" + id
}

// MemorySequence is a process-local Sequence. It starts every type at 1.
type MemorySequence struct {
	mu       sync.Mutex
	counters map[models.ContainerType]int64
}

func NewMemorySequence() *MemorySequence {
	return &MemorySequence{counters: make(map[models.ContainerType]int64)}
}

func (s *MemorySequence) Next(_ context.Context, t models.ContainerType) (int64, error) {
	if !t.Valid() {
		return 0, fmt.Errorf("%w: %q", ErrUnknownType, t)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.counters[t]++
	return s.counters[t], nil
}
