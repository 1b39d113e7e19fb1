package engine

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/dgraph-io/badger"
	"go.uber.org/multierr"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"golang.org/x/sync/errgroup"

	"github.com/neuroplastio/mdplug/extensions"
	"github.com/neuroplastio/mdplug/internal/buildsvc"
	"github.com/neuroplastio/mdplug/internal/cache"
	"github.com/neuroplastio/mdplug/internal/configsvc"
	"github.com/neuroplastio/mdplug/internal/rendersvc"
	"github.com/neuroplastio/mdplug/pkg/bus"
	"github.com/neuroplastio/mdplug/pkg/markdown"
)

type Engine struct {
	config Config
	log    *zap.Logger
	stop   context.CancelFunc

	db        *badger.DB
	registry  *extensions.Registry
	events    *buildsvc.Bus
	configSvc *configsvc.Service
	renderSvc *rendersvc.Service
	buildSvc  *buildsvc.Service
}

func NewLogger(verbose bool) (*zap.Logger, error) {
	loggerConfig := zap.NewDevelopmentConfig()
	loggerConfig.EncoderConfig.EncodeTime = zapcore.TimeEncoderOfLayout("15:04:05.000")
	loggerConfig.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	if !verbose {
		loggerConfig.Level = zap.NewAtomicLevelAt(zap.InfoLevel)
	}
	logger, err := loggerConfig.Build()
	if err != nil {
		return nil, fmt.Errorf("failed to create logger: %w", err)
	}
	return logger, nil
}

func New(config Config) (*Engine, error) {
	logger, err := NewLogger(config.Verbose)
	if err != nil {
		return nil, err
	}
	return NewWithLogger(config, logger)
}

func NewWithLogger(config Config, logger *zap.Logger) (*Engine, error) {
	registry := extensions.NewRegistry(logger.Named("extensions"))
	if err := extensions.RegisterBuiltin(registry); err != nil {
		return nil, fmt.Errorf("failed to register extensions: %w", err)
	}

	var (
		db     *badger.DB
		cached *cache.Cache
	)
	if config.DataDir != "" {
		var err error
		db, err = cache.Open(filepath.Join(config.DataDir, "cache"), logger.Named("badger"))
		if err != nil {
			return nil, err
		}
		cached = cache.New(db, logger.Named("cache"), time.Now)
	}

	e := &Engine{
		config:    config,
		log:       logger,
		db:        db,
		registry:  registry,
		configSvc: configsvc.New(logger.Named("config")),
		renderSvc: rendersvc.New(logger.Named("render"), registry, cached),
	}
	mdConfig, err := e.loadConfig()
	if err == nil {
		err = e.renderSvc.Reload(mdConfig)
	}
	if err != nil {
		return nil, multierr.Append(err, e.closeDB())
	}

	ctx, stop := context.WithCancel(context.Background())
	e.stop = stop
	e.events = bus.NewBus[buildsvc.EventType, buildsvc.Event](logger.Named("events"))
	if err := e.events.Start(ctx); err != nil {
		stop()
		return nil, multierr.Append(err, e.closeDB())
	}
	e.buildSvc = buildsvc.New(logger.Named("build"), e.renderSvc, e.events, config.Build)
	return e, nil
}

func (e *Engine) configFileExists() bool {
	if e.config.ConfigFile == "" {
		return false
	}
	_, err := os.Stat(e.config.ConfigFile)
	return err == nil
}

func (e *Engine) loadConfig() (markdown.Config, error) {
	if !e.configFileExists() {
		e.log.Debug("No config file, using defaults", zap.String("path", e.config.ConfigFile))
		return markdown.DefaultConfig(), nil
	}
	return configsvc.Load(e.config.ConfigFile, markdown.DefaultConfig())
}

func (e *Engine) closeDB() error {
	if e.db == nil {
		return nil
	}
	return e.db.Close()
}

func (e *Engine) Close() error {
	if e.stop != nil {
		e.stop()
	}
	err := e.closeDB()
	// Sync fails on terminals.
	_ = e.log.Sync()
	return err
}

func (e *Engine) Render(ctx context.Context, name string, source []byte) (markdown.Document, error) {
	return e.renderSvc.Render(ctx, name, source)
}

func (e *Engine) Build(ctx context.Context, src, dst string) (buildsvc.Stats, error) {
	return e.buildSvc.Build(ctx, src, dst)
}

// Watch keeps dst up to date with src and reloads the converter configuration
// when it changes, until ctx is done. A missing configuration file is created
// with the defaults so that it can be edited while watching. A configuration that becomes invalid
// after startup is ignored and the last valid one stays in use.
func (e *Engine) Watch(ctx context.Context, src, dst string) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	group, groupCtx := errgroup.WithContext(ctx)
	group.Go(func() error {
		return e.configSvc.Start(groupCtx)
	})
	if e.config.ConfigFile != "" {
		group.Go(func() error {
			return e.renderSvc.Watch(groupCtx, e.configSvc, e.config.ConfigFile)
		})
	}
	group.Go(func() error {
		return e.buildSvc.Watch(groupCtx, e.configSvc, src, dst)
	})

	err := group.Wait()
	if err != nil {
		return fmt.Errorf("watch failed: %w", err)
	}
	return nil
}

func (e *Engine) Events() *buildsvc.Bus {
	return e.events
}

func (e *Engine) Registry() *extensions.Registry {
	return e.registry
}

func (e *Engine) RenderStats() rendersvc.Stats {
	return e.renderSvc.Stats()
}
