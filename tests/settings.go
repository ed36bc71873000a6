package testutil

import (
	"context"
	"sync"

	"github.com/trezcool/certify/core/settings"
)

// MemorySettings is a settings.Repository kept in a map, for service tests that need no database.
type MemorySettings struct {
	options map[string]string
	mutex   sync.RWMutex
}

var _ settings.Repository = (*MemorySettings)(nil)

func NewMemorySettings() *MemorySettings {
	return &MemorySettings{options: make(map[string]string)}
}

func (r *MemorySettings) GetOption(_ context.Context, name string) (string, error) {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	val, ok := r.options[name]
	if !ok {
		return "", settings.ErrNotFound
	}
	return val, nil
}

func (r *MemorySettings) SetOption(_ context.Context, name, value string) error {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	r.options[name] = value
	return nil
}

// AddOption only sets name when it is missing.
func (r *MemorySettings) AddOption(_ context.Context, name, value string) error {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	if _, ok := r.options[name]; !ok {
		r.options[name] = value
	}
	return nil
}
