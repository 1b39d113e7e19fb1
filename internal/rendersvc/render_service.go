// Package rendersvc renders Markdown documents with the configured converter,
// caching the results.
package rendersvc

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/atomic"
	"go.uber.org/zap"

	"github.com/neuroplastio/mdplug/extensions"
	"github.com/neuroplastio/mdplug/internal/cache"
	"github.com/neuroplastio/mdplug/internal/configsvc"
	"github.com/neuroplastio/mdplug/pkg/markdown"
)

var ErrNotConfigured = errors.New("render service is not configured")

type Service struct {
	log      *zap.Logger
	registry *extensions.Registry
	cache    *cache.Cache

	converter *atomic.Pointer[markdown.Converter]
	reloads   *atomic.Int64
	hits      *atomic.Int64
	misses    *atomic.Int64
}

type Stats struct {
	Reloads int64
	Hits    int64
	Misses  int64
}

// New creates the service. c may be nil to disable caching.
func New(log *zap.Logger, registry *extensions.Registry, c *cache.Cache) *Service {
	return &Service{
		log:       log,
		registry:  registry,
		cache:     c,
		converter: atomic.NewPointer[markdown.Converter](nil),
		reloads:   atomic.NewInt64(0),
		hits:      atomic.NewInt64(0),
		misses:    atomic.NewInt64(0),
	}
}

// Reload replaces the converter. On error the previous converter stays in
// use.
func (s *Service) Reload(cfg markdown.Config) error {
	conv, err := markdown.New(s.registry, cfg)
	if err != nil {
		return fmt.Errorf("failed to create converter: %w", err)
	}
	s.converter.Store(conv)
	s.reloads.Inc()
	s.log.Info("Converter loaded",
		zap.Int("extensions", len(cfg.Extensions)),
		zap.String("digest", fmt.Sprintf("%016x", conv.Digest())),
	)
	if s.cache != nil {
		if _, err := s.cache.Prune(conv.Digest()); err != nil {
			s.log.Warn("Failed to prune cache", zap.Error(err))
		}
	}
	return nil
}

// Watch loads the configuration file at path, writing the defaults there when
// it is missing, and reloads the converter whenever it changes, until ctx is
// done. An invalid configuration at startup is an error; later invalid
// configurations are logged and ignored.
func (s *Service) Watch(ctx context.Context, configs *configsvc.Service, path string) error {
	select {
	case <-ctx.Done():
		return nil
	case <-configs.Ready():
	}
	cfg, err := configsvc.RegisterWriteable(configs, path, markdown.DefaultConfig(), s.onConfigChange)
	if err != nil {
		return fmt.Errorf("failed to register config: %w", err)
	}
	if err := s.Reload(cfg); err != nil {
		return err
	}
	<-ctx.Done()
	return nil
}

func (s *Service) onConfigChange(cfg markdown.Config, err error) {
	if err != nil {
		s.log.Error("Failed to read config", zap.Error(err))
		return
	}
	if err := s.Reload(cfg); err != nil {
		s.log.Error("Failed to reload config, keeping the previous one", zap.Error(err))
	}
}

// Render converts source. name is only used for logging and errors.
func (s *Service) Render(ctx context.Context, name string, source []byte) (markdown.Document, error) {
	if err := ctx.Err(); err != nil {
		return markdown.Document{}, err
	}
	conv := s.converter.Load()
	if conv == nil {
		return markdown.Document{}, ErrNotConfigured
	}

	key := cache.Key(source, conv.Digest())
	if s.cache != nil {
		entry, ok, err := s.cache.Get(key)
		switch {
		case err != nil:
			s.log.Warn("Cache lookup failed", zap.String("name", name), zap.Error(err))
		case ok:
			s.hits.Inc()
			return markdown.Document{HTML: entry.HTML, Meta: entry.Meta}, nil
		}
	}
	s.misses.Inc()

	start := time.Now()
	doc, err := conv.Convert(source)
	if err != nil {
		return markdown.Document{}, fmt.Errorf("failed to render %s: %w", name, err)
	}
	s.log.Debug("Rendered document", zap.String("name", name), zap.Duration("took", time.Since(start)))

	if s.cache != nil {
		if err := s.cache.Put(key, cache.Entry{HTML: doc.HTML, Meta: doc.Meta}); err != nil {
			s.log.Warn("Failed to cache document", zap.String("name", name), zap.Error(err))
		}
	}
	return doc, nil
}

func (s *Service) Stats() Stats {
	return Stats{
		Reloads: s.reloads.Load(),
		Hits:    s.hits.Load(),
		Misses:  s.misses.Load(),
	}
}
