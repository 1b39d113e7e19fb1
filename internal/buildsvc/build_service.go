// Package buildsvc renders a tree of Markdown files into HTML files.
package buildsvc

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/puzpuzpuz/xsync/v3"
	"go.uber.org/atomic"
	"go.uber.org/multierr"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/neuroplastio/mdplug/internal/configsvc"
	"github.com/neuroplastio/mdplug/pkg/bus"
	"github.com/neuroplastio/mdplug/pkg/markdown"
)

type EventType uint8

const (
	EventRendered EventType = iota
	EventFailed
	EventRemoved
)

func (e EventType) String() string {
	switch e {
	case EventRendered:
		return "rendered"
	case EventFailed:
		return "failed"
	case EventRemoved:
		return "removed"
	default:
		return "unknown"
	}
}

type Event struct {
	Source string
	Output string
	Err    error
	Took   time.Duration
}

type Bus = bus.Bus[EventType, Event]

type Renderer interface {
	Render(ctx context.Context, name string, source []byte) (markdown.Document, error)
}

type Config struct {
	// Workers bounds the number of files rendered at once.
	Workers int `json:"workers"`
	// OutputExtension replaces the source extension in output names.
	OutputExtension string `json:"outputExtension"`
	// Debounce is how long Watch waits for a file to settle.
	Debounce time.Duration `json:"debounce"`
}

func DefaultConfig() Config {
	return Config{
		Workers:         8,
		OutputExtension: ".html",
		Debounce:        100 * time.Millisecond,
	}
}

type Stats struct {
	Rendered int
	Failed   int
	Removed  int
}

type Service struct {
	log      *zap.Logger
	renderer Renderer
	events   *Bus
	config   Config

	pending *xsync.MapOf[string, *pendingFile]
}

type pendingFile struct {
	timer *time.Timer
}

// New creates the service. events may be nil.
func New(log *zap.Logger, renderer Renderer, events *Bus, config Config) *Service {
	if config.Workers < 1 {
		config.Workers = 1
	}
	if config.OutputExtension == "" {
		config.OutputExtension = DefaultConfig().OutputExtension
	}
	return &Service{
		log:      log,
		renderer: renderer,
		events:   events,
		config:   config,
		pending:  xsync.NewMapOf[string, *pendingFile](),
	}
}

func IsMarkdown(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".md", ".markdown":
		return true
	}
	return false
}

// OutputPath maps a source file below src to its output file below dst.
func (s *Service) OutputPath(src, dst, path string) (string, error) {
	rel, err := filepath.Rel(src, path)
	if err != nil {
		return "", fmt.Errorf("failed to get relative path for %s: %w", path, err)
	}
	if rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("%s is outside of %s", path, src)
	}
	return filepath.Join(dst, strings.TrimSuffix(rel, filepath.Ext(rel))+s.config.OutputExtension), nil
}

// Build renders every Markdown file below src. A file that fails to render
// does not stop the others; all failures are returned together.
func (s *Service) Build(ctx context.Context, src, dst string) (Stats, error) {
	var files []string
	err := filepath.WalkDir(src, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() && IsMarkdown(path) {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return Stats{}, fmt.Errorf("failed to walk %s: %w", src, err)
	}

	rendered := atomic.NewInt64(0)
	var (
		mu   sync.Mutex
		errs error
	)
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(s.config.Workers)
	for _, path := range files {
		path := path
		g.Go(func() error {
			if err := s.renderFile(ctx, src, dst, path); err != nil {
				mu.Lock()
				errs = multierr.Append(errs, err)
				mu.Unlock()
				return nil
			}
			rendered.Inc()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return Stats{}, err
	}
	stats := Stats{
		Rendered: int(rendered.Load()),
		Failed:   len(multierr.Errors(errs)),
	}
	s.log.Info("Build finished",
		zap.String("src", src),
		zap.String("dst", dst),
		zap.Int("rendered", stats.Rendered),
		zap.Int("failed", stats.Failed),
	)
	return stats, errs
}

func (s *Service) renderFile(ctx context.Context, src, dst, path string) error {
	start := time.Now()
	output, err := s.OutputPath(src, dst, path)
	if err != nil {
		return err
	}
	err = s.writeOutput(ctx, path, output)
	event := Event{Source: path, Output: output, Err: err, Took: time.Since(start)}
	if err != nil {
		s.log.Error("Failed to render file", zap.String("path", path), zap.Error(err))
		s.publish(ctx, EventFailed, event)
		return err
	}
	s.log.Debug("Rendered file", zap.String("path", path), zap.String("output", output))
	s.publish(ctx, EventRendered, event)
	return nil
}

func (s *Service) writeOutput(ctx context.Context, path, output string) error {
	source, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", path, err)
	}
	doc, err := s.renderer.Render(ctx, path, source)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(output), 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}
	if err := os.WriteFile(output, doc.HTML, 0644); err != nil {
		return fmt.Errorf("failed to write %s: %w", output, err)
	}
	return nil
}

func (s *Service) removeOutput(ctx context.Context, src, dst, path string) {
	output, err := s.OutputPath(src, dst, path)
	if err != nil {
		s.log.Warn("Failed to map removed file", zap.String("path", path), zap.Error(err))
		return
	}
	if err := os.Remove(output); err != nil {
		if !os.IsNotExist(err) {
			s.log.Warn("Failed to remove output", zap.String("output", output), zap.Error(err))
		}
		return
	}
	s.log.Debug("Removed output", zap.String("output", output))
	s.publish(ctx, EventRemoved, Event{Source: path, Output: output})
}

func (s *Service) publish(ctx context.Context, typ EventType, event Event) {
	if s.events == nil {
		return
	}
	s.events.Publish(ctx, typ, event)
}

// Watch builds src once and then keeps dst up to date until ctx is done.
// Changes to a file are debounced.
func (s *Service) Watch(ctx context.Context, configs *configsvc.Service, src, dst string) error {
	select {
	case <-ctx.Done():
		return nil
	case <-configs.Ready():
	}
	src, err := filepath.Abs(src)
	if err != nil {
		return fmt.Errorf("failed to get absolute path for %s: %w", src, err)
	}
	if _, err := s.Build(ctx, src, dst); err != nil {
		s.log.Warn("Initial build had failures", zap.Error(err))
	}
	err = configs.WatchPath(src, func(event fsnotify.Event) {
		if event.Has(fsnotify.Create) {
			if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
				// Files may land in a new directory before it is watched.
				s.scheduleTree(ctx, src, dst, event.Name)
				return
			}
		}
		if !IsMarkdown(event.Name) {
			return
		}
		switch {
		case event.Has(fsnotify.Remove), event.Has(fsnotify.Rename):
			s.schedule(event.Name, func() {
				if _, err := os.Stat(event.Name); os.IsNotExist(err) {
					s.removeOutput(ctx, src, dst, event.Name)
				}
			})
		case event.Has(fsnotify.Write), event.Has(fsnotify.Create):
			s.schedule(event.Name, func() {
				_ = s.renderFile(ctx, src, dst, event.Name)
			})
		}
	})
	if err != nil {
		return fmt.Errorf("failed to watch %s: %w", src, err)
	}
	s.log.Info("Watching", zap.String("src", src), zap.String("dst", dst))
	<-ctx.Done()
	s.pending.Range(func(path string, p *pendingFile) bool {
		p.timer.Stop()
		s.pending.Delete(path)
		return true
	})
	return nil
}

func (s *Service) scheduleTree(ctx context.Context, src, dst, dir string) {
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() && IsMarkdown(path) {
			s.schedule(path, func() {
				_ = s.renderFile(ctx, src, dst, path)
			})
		}
		return nil
	})
	if err != nil {
		s.log.Warn("Failed to scan new directory", zap.String("path", dir), zap.Error(err))
	}
}

// schedule runs fn once path has been quiet for the debounce interval. A later
// call for the same path replaces fn.
func (s *Service) schedule(path string, fn func()) {
	s.pending.Compute(path, func(prev *pendingFile, loaded bool) (*pendingFile, bool) {
		if loaded {
			prev.timer.Stop()
		}
		p := &pendingFile{}
		p.timer = time.AfterFunc(s.config.Debounce, func() {
			s.pending.Compute(path, func(cur *pendingFile, loaded bool) (*pendingFile, bool) {
				return cur, !loaded || cur == p
			})
			fn()
		})
		return p, false
	})
}
