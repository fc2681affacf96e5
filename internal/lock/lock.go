// Package lock serializes uploads per (employee, date) key. Different keys
// proceed independently; within one key at most one holder exists at a time.
package lock

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
)

// ErrTimeout means the lock was still held by someone else when the bounded
// wait ran out. State is untouched; the caller should advise "try again".
var ErrTimeout = errors.New("lock: acquire timed out")

// Handle proves ownership of one acquired key.
type Handle struct {
	Key   string
	Token string
	rel   func(ctx context.Context) error
}

// KeyLocker grants exclusive ownership of a string key for the duration of a
// reconciliation.
type KeyLocker interface {
	// Acquire blocks up to wait for exclusive ownership of key.
	Acquire(ctx context.Context, key string, wait time.Duration) (*Handle, error)
	// Release gives the key back. Safe to call exactly once per handle.
	Release(ctx context.Context, h *Handle) error
}

const pollInterval = 20 * time.Millisecond

// LocalLocker is the in-process implementation: a mutex-guarded set of held
// keys with bounded polling, the single-binary deployment default.
type LocalLocker struct {
	mu   sync.Mutex
	held map[string]string // key -> owner token
}

func NewLocalLocker() *LocalLocker {
	return &LocalLocker{held: make(map[string]string)}
}

func (l *LocalLocker) Acquire(ctx context.Context, key string, wait time.Duration) (*Handle, error) {
	token := uuid.NewString()
	deadline := time.Now().Add(wait)

	for {
		l.mu.Lock()
		if _, taken := l.held[key]; !taken {
			l.held[key] = token
			l.mu.Unlock()
			return &Handle{Key: key, Token: token, rel: func(context.Context) error {
				l.mu.Lock()
				defer l.mu.Unlock()
				if l.held[key] == token {
					delete(l.held, key)
				}
				return nil
			}}, nil
		}
		l.mu.Unlock()

		if time.Now().After(deadline) {
			return nil, ErrTimeout
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(pollInterval):
		}
	}
}

func (l *LocalLocker) Release(ctx context.Context, h *Handle) error {
	if h == nil || h.rel == nil {
		return nil
	}
	return h.rel(ctx)
}
