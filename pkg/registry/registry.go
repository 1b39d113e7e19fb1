package registry

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound          = errors.New("not found")
	ErrAlreadyRegistered = errors.New("already registered")
)

// Registry holds named items in registration order.
type Registry[T any] struct {
	items map[string]T
	ids   []string
}

func NewRegistry[T any]() *Registry[T] {
	return &Registry[T]{
		items: make(map[string]T),
	}
}

func (r *Registry[T]) Register(id string, item T) error {
	if _, ok := r.items[id]; ok {
		return fmt.Errorf("%s: %w", id, ErrAlreadyRegistered)
	}
	r.items[id] = item
	r.ids = append(r.ids, id)
	return nil
}

func (r *Registry[T]) Has(id string) bool {
	_, ok := r.items[id]
	return ok
}

func (r *Registry[T]) Get(id string) (T, error) {
	item, ok := r.items[id]
	if !ok {
		var zero T
		return zero, fmt.Errorf("%s: %w", id, ErrNotFound)
	}
	return item, nil
}

// IDs returns the registered ids in registration order.
func (r *Registry[T]) IDs() []string {
	ids := make([]string, len(r.ids))
	copy(ids, r.ids)
	return ids
}
