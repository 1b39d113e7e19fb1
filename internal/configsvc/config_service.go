// Package configsvc provides a service for watching configuration files and
// source trees and notifying clients of changes.
package configsvc

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"
	"github.com/ghodss/yaml"
	"go.uber.org/zap"
)

type subscriber func(event fsnotify.Event)

type Service struct {
	log *zap.Logger

	watcher     *fsnotify.Watcher
	mu          sync.Mutex
	subscribers []subscriber
	ready       chan struct{}
}

func New(log *zap.Logger) *Service {
	return &Service{
		log:   log,
		ready: make(chan struct{}),
	}
}

// Start runs the watcher until ctx is done. RegisterWriteable and WatchPath
// may only be called once Ready is closed.
func (s *Service) Start(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create fsnotify watcher: %w", err)
	}
	s.watcher = watcher
	defer s.watcher.Close()
	close(s.ready)
	s.log.Info("Config service started")
	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-s.watcher.Events:
			if !ok {
				return nil
			}
			s.mu.Lock()
			subscribers := s.subscribers
			s.mu.Unlock()
			for _, sub := range subscribers {
				sub(event)
			}
		case err, ok := <-s.watcher.Errors:
			if !ok {
				return nil
			}
			s.log.Error("Watcher error", zap.Error(err))
		}
	}
}

func (s *Service) Ready() <-chan struct{} {
	return s.ready
}

func (s *Service) subscribe(sub subscriber) {
	s.mu.Lock()
	s.subscribers = append(s.subscribers, sub)
	s.mu.Unlock()
}

// RegisterWriteable loads a configuration file the program owns, creating it
// from def when it is missing, and calls fn with every new version of it.
// Service instance is used as a parameter instead of the method receiver to enable generic types.
func RegisterWriteable[T any](s *Service, path string, def T, fn func(config T, err error)) (T, error) {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return def, fmt.Errorf("failed to get absolute path for %s: %w", path, err)
	}
	config, err := LoadOrCreate(absPath, def)
	if err != nil {
		return def, err
	}
	if err := watchFile(s, absPath, def, fn); err != nil {
		return def, err
	}
	return config, nil
}

func watchFile[T any](s *Service, absPath string, def T, fn func(config T, err error)) error {
	if fn == nil {
		return nil
	}
	dir := filepath.Dir(absPath)
	if err := s.watcher.Add(dir); err != nil {
		return fmt.Errorf("failed to add path to watcher %s: %w", dir, err)
	}
	s.subscribe(func(event fsnotify.Event) {
		if event.Name == absPath && (event.Has(fsnotify.Write) || event.Has(fsnotify.Create)) {
			newConfig, err := readConfig(absPath, def)
			fn(newConfig, err)
		}
	})
	return nil
}

// Load reads a YAML configuration file on top of def.
func Load[T any](path string, def T) (T, error) {
	config, err := readConfig(path, def)
	if err != nil {
		return def, fmt.Errorf("failed to read config: %w", err)
	}
	return config, nil
}

// LoadOrCreate reads a YAML configuration file, writing def to it first when
// it does not exist.
func LoadOrCreate[T any](path string, def T) (T, error) {
	config, err := readConfig(path, def)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		if err := Write(path, def); err != nil {
			return def, fmt.Errorf("failed to initialize config: %w", err)
		}
		return def, nil
	case err != nil:
		return def, fmt.Errorf("failed to read config: %w", err)
	}
	return config, nil
}

// Write writes config to path as YAML.
func Write[T any](path string, config T) error {
	jsonB, err := json.Marshal(config)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	yamlB, err := yaml.JSONToYAML(jsonB)
	if err != nil {
		return fmt.Errorf("failed to convert json to yaml: %w", err)
	}

	err = os.WriteFile(path, yamlB, 0644)
	if err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

func readConfig[T any](path string, def T) (T, error) {
	yamlB, err := os.ReadFile(path)
	if err != nil {
		return def, fmt.Errorf("failed to read config file: %w", err)
	}

	jsonB, err := yaml.YAMLToJSON(yamlB)
	if err != nil {
		return def, fmt.Errorf("failed to convert yaml to json: %w", err)
	}
	// decode into a copy so that slices and maps of def are never written to
	var config T
	defB, err := json.Marshal(def)
	if err != nil {
		return def, fmt.Errorf("failed to marshal defaults: %w", err)
	}
	if err := json.Unmarshal(defB, &config); err != nil {
		return def, fmt.Errorf("failed to copy defaults: %w", err)
	}
	err = json.Unmarshal(jsonB, &config)
	if err != nil {
		return def, fmt.Errorf("failed to unmarshal json: %w", err)
	}
	return config, nil
}

// WatchPath watches a directory tree and calls fn for every event below it.
// Directories created later are watched too.
func (s *Service) WatchPath(path string, fn func(event fsnotify.Event)) error {
	root, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("failed to get absolute path for %s: %w", path, err)
	}
	if err := s.addTree(root); err != nil {
		return err
	}
	prefix := root + string(filepath.Separator)
	s.subscribe(func(event fsnotify.Event) {
		if event.Name != root && !strings.HasPrefix(event.Name, prefix) {
			return
		}
		if event.Has(fsnotify.Create) {
			if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
				if err := s.addTree(event.Name); err != nil {
					s.log.Warn("Failed to watch new directory", zap.String("path", event.Name), zap.Error(err))
				}
			}
		}
		fn(event)
	})
	return nil
}

func (s *Service) addTree(root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if err := s.watcher.Add(path); err != nil {
			return fmt.Errorf("failed to add path to watcher %s: %w", path, err)
		}
		return nil
	})
}
