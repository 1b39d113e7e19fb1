// Package bus is an in-process publish/subscribe bus keyed by message kind.
package bus

import (
	"context"
	"sync"

	"github.com/puzpuzpuz/xsync/v3"
	"go.uber.org/atomic"
	"go.uber.org/zap"
)

type Message[K comparable, M any] struct {
	Key     K
	Message M
}

// subscription queues messages for one subscriber and delivers them from its
// own goroutine, so a subscriber that stops reading only holds up itself.
type subscription[K comparable, M any] struct {
	keys map[K]struct{}
	ch   chan Message[K, M]
	done <-chan struct{}

	mu     sync.Mutex
	queue  []Message[K, M]
	notify chan struct{}
}

func (s *subscription[K, M]) wants(key K) bool {
	if len(s.keys) == 0 {
		return true
	}
	_, ok := s.keys[key]
	return ok
}

func (s *subscription[K, M]) push(msg Message[K, M]) {
	s.mu.Lock()
	s.queue = append(s.queue, msg)
	s.mu.Unlock()
	select {
	case s.notify <- struct{}{}:
	default:
	}
}

// run is the only sender on ch and closes it once the subscriber is gone.
func (s *subscription[K, M]) run() {
	defer close(s.ch)
	for {
		s.mu.Lock()
		queue := s.queue
		s.queue = nil
		s.mu.Unlock()
		for _, msg := range queue {
			select {
			case <-s.done:
				return
			case s.ch <- msg:
			}
		}
		select {
		case <-s.done:
			return
		case <-s.notify:
		}
	}
}

type Bus[K comparable, M any] struct {
	log   *zap.Logger
	ready chan struct{}

	ch     chan Message[K, M]
	subs   *xsync.MapOf[uint64, *subscription[K, M]]
	nextID *atomic.Uint64
}

func NewBus[K comparable, M any](logger *zap.Logger) *Bus[K, M] {
	return &Bus[K, M]{
		log:    logger,
		ready:  make(chan struct{}),
		ch:     make(chan Message[K, M]),
		subs:   xsync.NewMapOf[uint64, *subscription[K, M]](),
		nextID: atomic.NewUint64(0),
	}
}

// Start starts delivering messages until ctx is done. It does not block.
func (b *Bus[K, M]) Start(ctx context.Context) error {
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case msg := <-b.ch:
				b.process(msg)
			}
		}
	}()
	close(b.ready)
	return nil
}

func (b *Bus[K, M]) Ready() <-chan struct{} {
	return b.ready
}

// Publish hands msg to the bus. It blocks until the bus accepts it or ctx is
// done, so the bus must be started.
func (b *Bus[K, M]) Publish(ctx context.Context, key K, msg M) {
	select {
	case <-ctx.Done():
	case b.ch <- Message[K, M]{Key: key, Message: msg}:
	}
}

func (b *Bus[K, M]) process(msg Message[K, M]) {
	b.subs.Range(func(_ uint64, sub *subscription[K, M]) bool {
		if sub.wants(msg.Key) {
			sub.push(msg)
		}
		return true
	})
}

// Subscribe returns a channel receiving the messages published under any of
// keys, or every message when no key is given. The channel is closed once ctx
// is done.
func (b *Bus[K, M]) Subscribe(ctx context.Context, keys ...K) <-chan Message[K, M] {
	sub := &subscription[K, M]{
		keys:   make(map[K]struct{}, len(keys)),
		ch:     make(chan Message[K, M]),
		done:   ctx.Done(),
		notify: make(chan struct{}, 1),
	}
	for _, k := range keys {
		sub.keys[k] = struct{}{}
	}
	id := b.nextID.Inc()
	b.subs.Store(id, sub)
	b.log.Debug("Subscribed", zap.Uint64("id", id), zap.Int("keys", len(keys)))
	go func() {
		sub.run()
		b.subs.Delete(id)
	}()
	return sub.ch
}
