// Package cache stores rendered documents in badger, keyed by source content
// and converter configuration.
package cache

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/dgraph-io/badger"
	"go.uber.org/zap"
)

const keyPrefix = "render/"

type Entry struct {
	HTML       []byte         `json:"html"`
	Meta       map[string]any `json:"meta,omitempty"`
	RenderedAt time.Time      `json:"renderedAt"`
}

type Cache struct {
	db  *badger.DB
	log *zap.Logger
	now func() time.Time
}

// Open opens (or creates) the badger database in dir.
func Open(dir string, log *zap.Logger) (*badger.DB, error) {
	opts := badger.DefaultOptions(dir)
	opts.Logger = NewLogger(log)
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open badger db: %w", err)
	}
	return db, nil
}

func New(db *badger.DB, log *zap.Logger, now func() time.Time) *Cache {
	return &Cache{
		db:  db,
		log: log,
		now: now,
	}
}

// Key returns the cache key of a source rendered with the configuration of
// the given digest.
func Key(source []byte, configDigest uint64) []byte {
	return []byte(fmt.Sprintf("%s%016x/%016x", keyPrefix, configDigest, xxhash.Sum64(source)))
}

func digestPrefix(configDigest uint64) []byte {
	return []byte(fmt.Sprintf("%s%016x/", keyPrefix, configDigest))
}

// Get returns the entry stored under key. ok is false on a miss.
func (c *Cache) Get(key []byte) (entry Entry, ok bool, err error) {
	err = c.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(key)
		switch {
		case errors.Is(err, badger.ErrKeyNotFound):
			return nil
		case err != nil:
			return err
		}
		ok = true
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &entry)
		})
	})
	if err != nil {
		return Entry{}, false, fmt.Errorf("failed to get cache entry: %w", err)
	}
	return entry, ok, nil
}

func (c *Cache) Put(key []byte, entry Entry) error {
	if entry.RenderedAt.IsZero() {
		entry.RenderedAt = c.now()
	}
	b, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("failed to marshal cache entry: %w", err)
	}
	err = c.db.Update(func(txn *badger.Txn) error {
		return txn.Set(key, b)
	})
	if err != nil {
		return fmt.Errorf("failed to put cache entry: %w", err)
	}
	return nil
}

// Prune deletes every entry rendered with a configuration other than the one
// of keepDigest and returns how many were deleted.
func (c *Cache) Prune(keepDigest uint64) (int, error) {
	keep := digestPrefix(keepDigest)
	var stale [][]byte
	err := c.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		iter := txn.NewIterator(opts)
		defer iter.Close()
		prefix := []byte(keyPrefix)
		for iter.Seek(prefix); iter.ValidForPrefix(prefix); iter.Next() {
			key := iter.Item().KeyCopy(nil)
			if !bytes.HasPrefix(key, keep) {
				stale = append(stale, key)
			}
		}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("failed to list cache entries: %w", err)
	}
	for _, key := range stale {
		err := c.db.Update(func(txn *badger.Txn) error {
			return txn.Delete(key)
		})
		if err != nil {
			return 0, fmt.Errorf("failed to delete cache entry: %w", err)
		}
	}
	if len(stale) > 0 {
		c.log.Debug("Pruned cache", zap.Int("entries", len(stale)))
	}
	return len(stale), nil
}

type badgerLogger struct {
	l *zap.Logger
}

// NewLogger adapts a zap logger to badger.
func NewLogger(log *zap.Logger) badger.Logger {
	return badgerLogger{l: log}
}

func (l badgerLogger) Errorf(msg string, args ...any) {
	l.l.Error(fmt.Sprintf(msg, args...))
}

func (l badgerLogger) Warningf(msg string, args ...any) {
	l.l.Warn(fmt.Sprintf(msg, args...))
}

func (l badgerLogger) Infof(msg string, args ...any) {
	l.l.Info(fmt.Sprintf(msg, args...))
}

func (l badgerLogger) Debugf(msg string, args ...any) {
	l.l.Debug(fmt.Sprintf(msg, args...))
}
