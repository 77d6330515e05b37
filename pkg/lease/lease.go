// Package lease provides exclusive, expiring locks over a chain's storage prefix.
package lease

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
)

var (
	// ErrLeaseHeld means another holder owns the lease.
	ErrLeaseHeld = errors.New("lease is held by another run")
	// ErrLeaseLost means the lease expired or was taken before release.
	ErrLeaseLost = errors.New("lease lost before release")
)

// Locker hands out leases by name.
type Locker interface {
	Acquire(ctx context.Context, name string, ttl time.Duration) (*Lease, error)
}

// Lease is a held lock. Release it exactly once.
type Lease struct {
	Name    string
	Token   string
	Expires time.Time

	release func(ctx context.Context) error
	once    sync.Once
	err     error
}

func newLease(name string, ttl time.Duration, release func(ctx context.Context, token string) error) *Lease {
	l := &Lease{Name: name, Token: uuid.NewString(), Expires: time.Now().Add(ttl)}
	l.release = func(ctx context.Context) error { return release(ctx, l.Token) }
	return l
}

func (l *Lease) Release(ctx context.Context) error {
	l.once.Do(func() { l.err = l.release(ctx) })
	return l.err
}

// Memory is a Locker for a single process.
type Memory struct {
	mu     sync.Mutex
	leases map[string]memoryEntry
	now    func() time.Time
}

type memoryEntry struct {
	token   string
	expires time.Time
}

func NewMemory() *Memory {
	return &Memory{leases: make(map[string]memoryEntry), now: time.Now}
}

func (m *Memory) Acquire(ctx context.Context, name string, ttl time.Duration) (*Lease, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if e, ok := m.leases[name]; ok && m.now().Before(e.expires) {
		return nil, fmt.Errorf("%w: %s", ErrLeaseHeld, name)
	}
	l := newLease(name, ttl, func(_ context.Context, token string) error {
		m.mu.Lock()
		defer m.mu.Unlock()
		if e, ok := m.leases[name]; !ok || e.token != token {
			return fmt.Errorf("%w: %s", ErrLeaseLost, name)
		}
		delete(m.leases, name)
		return nil
	})
	m.leases[name] = memoryEntry{token: l.Token, expires: m.now().Add(ttl)}
	return l, nil
}
