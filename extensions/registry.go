// Package extensions registers every extension of this module under the key
// used for it in configuration files.
package extensions

import (
	"encoding/json"
	"fmt"

	"github.com/yuin/goldmark"
	"go.uber.org/zap"

	"github.com/neuroplastio/mdplug/pkg/registry"
)

// Descriptor describes an extension for listings.
type Descriptor struct {
	DisplayName string
	Description string
	// Syntax holds short examples of the markup the extension adds.
	Syntax []string
}

type Provider struct {
	Log *zap.Logger
}

// Creator builds an extension from its raw JSON configuration, which may be
// empty.
type Creator func(config json.RawMessage, provider *Provider) (goldmark.Extender, error)

type registration struct {
	descriptor Descriptor
	creator    Creator
}

type Registry struct {
	extensions *registry.Registry[registration]
	provider   *Provider
}

func NewRegistry(log *zap.Logger) *Registry {
	return &Registry{
		extensions: registry.NewRegistry[registration](),
		provider:   &Provider{Log: log.Named("extensions")},
	}
}

func (r *Registry) Register(id string, descriptor Descriptor, creator Creator) error {
	err := r.extensions.Register(id, registration{
		descriptor: descriptor,
		creator:    creator,
	})
	if err != nil {
		return fmt.Errorf("failed to register extension: %w", err)
	}
	return nil
}

func (r *Registry) Has(id string) bool {
	return r.extensions.Has(id)
}

// New builds the extension registered under id.
func (r *Registry) New(id string, config json.RawMessage) (goldmark.Extender, error) {
	reg, err := r.extensions.Get(id)
	if err != nil {
		return nil, fmt.Errorf("failed to get extension: %w", err)
	}
	ext, err := reg.creator(config, r.provider)
	if err != nil {
		return nil, fmt.Errorf("failed to create extension %s: %w", id, err)
	}
	return ext, nil
}

func (r *Registry) Descriptor(id string) (Descriptor, error) {
	reg, err := r.extensions.Get(id)
	if err != nil {
		return Descriptor{}, fmt.Errorf("failed to get extension: %w", err)
	}
	return reg.descriptor, nil
}

// IDs returns the registered extension ids in registration order.
func (r *Registry) IDs() []string {
	return r.extensions.IDs()
}

// DecodeConfig decodes raw extension configuration into T. Empty and null
// configurations decode to the zero value.
func DecodeConfig[T any](raw json.RawMessage) (T, error) {
	var config T
	if len(raw) == 0 || string(raw) == "null" {
		return config, nil
	}
	if err := json.Unmarshal(raw, &config); err != nil {
		return config, fmt.Errorf("failed to decode config: %w", err)
	}
	return config, nil
}
