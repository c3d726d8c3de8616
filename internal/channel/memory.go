package channel

import (
	"context"
	"sync"
	"time"

	"github.com/hackgods/salon-booking-assistant/internal/session"
)

// MemoryStates keeps conversation state in process. Used when no Redis is
// configured; state is lost on restart and not shared between instances.
type MemoryStates struct {
	mu     sync.Mutex
	states map[string]memoryState
	ttl    time.Duration
	now    func() time.Time
}

type memoryState struct {
	state     session.State
	expiresAt time.Time
}

func NewMemoryStates(ttl time.Duration) *MemoryStates {
	return &MemoryStates{
		states: make(map[string]memoryState),
		ttl:    ttl,
		now:    time.Now,
	}
}

func (m *MemoryStates) Load(_ context.Context, channel, sender string) (session.State, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.states[channel+":"+sender]
	if !ok || m.now().After(s.expiresAt) {
		return session.Fresh(), nil
	}
	return cloneState(s.state), nil
}

func (m *MemoryStates) Save(_ context.Context, channel, sender string, st session.State) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	for k, s := range m.states {
		if now.After(s.expiresAt) {
			delete(m.states, k)
		}
	}

	m.states[channel+":"+sender] = memoryState{state: cloneState(st), expiresAt: now.Add(m.ttl)}
	return nil
}

func cloneState(st session.State) session.State {
	st.Draft = st.Draft.Clone()
	return st
}

// MemoryLocker serializes turns per key inside one process.
type MemoryLocker struct {
	mu    sync.Mutex
	locks map[string]*keyLock
}

type keyLock struct {
	mu   sync.Mutex
	refs int
}

func NewMemoryLocker() *MemoryLocker {
	return &MemoryLocker{locks: make(map[string]*keyLock)}
}

func (l *MemoryLocker) WithKeyLock(ctx context.Context, key string, fn func(ctx context.Context) error) error {
	l.mu.Lock()
	k, ok := l.locks[key]
	if !ok {
		k = &keyLock{}
		l.locks[key] = k
	}
	k.refs++
	l.mu.Unlock()

	k.mu.Lock()
	defer func() {
		k.mu.Unlock()
		l.mu.Lock()
		k.refs--
		if k.refs == 0 {
			delete(l.locks, key)
		}
		l.mu.Unlock()
	}()

	return fn(ctx)
}

// MemoryDeduper remembers message ids for ttl inside one process.
type MemoryDeduper struct {
	mu   sync.Mutex
	seen map[string]time.Time
	ttl  time.Duration
	now  func() time.Time
}

func NewMemoryDeduper(ttl time.Duration) *MemoryDeduper {
	return &MemoryDeduper{seen: make(map[string]time.Time), ttl: ttl, now: time.Now}
}

func (d *MemoryDeduper) FirstSeen(_ context.Context, channel, messageID string) (bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	now := d.now()
	for k, exp := range d.seen {
		if now.After(exp) {
			delete(d.seen, k)
		}
	}

	key := channel + ":" + messageID
	if _, ok := d.seen[key]; ok {
		return false, nil
	}
	d.seen[key] = now.Add(d.ttl)
	return true, nil
}

func (d *MemoryDeduper) Forget(_ context.Context, channel, messageID string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.seen, channel+":"+messageID)
	return nil
}
