package store

import (
	"context"
	"strconv"
	"sync"
	"time"
)

// memoryKV is the in-process KV used when redis is disabled
// counters share the keyspace with values, encoded as decimal strings
// so Incr/Counter behave the same against either backend
type memoryKV struct {
	mu   sync.RWMutex
	data map[string]memEntry

	stop     chan struct{}
	stopOnce sync.Once
}

type memEntry struct {
	val []byte
	exp time.Time // zero means no expiry
}

// NewMemoryKV returns an in-process KV with lazy expiry and a periodic sweep
func NewMemoryKV() KV {
	m := &memoryKV{
		data: make(map[string]memEntry),
		stop: make(chan struct{}),
	}
	go m.sweep()
	return m
}

func (m *memoryKV) sweep() {
	t := time.NewTicker(time.Minute)
	defer t.Stop()
	for {
		select {
		case <-m.stop:
			return
		case now := <-t.C:
			m.mu.Lock()
			for k, e := range m.data {
				if !e.exp.IsZero() && now.After(e.exp) {
					delete(m.data, k)
				}
			}
			m.mu.Unlock()
		}
	}
}

func (m *memoryKV) live(e memEntry) bool {
	return e.exp.IsZero() || time.Now().Before(e.exp)
}

func (m *memoryKV) Get(_ context.Context, key string) ([]byte, bool, error) {
	m.mu.RLock()
	e, ok := m.data[key]
	m.mu.RUnlock()
	if !ok || !m.live(e) {
		return nil, false, nil
	}
	out := make([]byte, len(e.val))
	copy(out, e.val)
	return out, true, nil
}

func (m *memoryKV) Set(_ context.Context, key string, val []byte, ttl time.Duration) error {
	e := memEntry{val: make([]byte, len(val))}
	copy(e.val, val)
	if ttl > 0 {
		e.exp = time.Now().Add(ttl)
	}
	m.mu.Lock()
	m.data[key] = e
	m.mu.Unlock()
	return nil
}

func (m *memoryKV) Del(_ context.Context, keys ...string) error {
	m.mu.Lock()
	for _, k := range keys {
		delete(m.data, k)
	}
	m.mu.Unlock()
	return nil
}

func (m *memoryKV) Incr(_ context.Context, key string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	if e, ok := m.data[key]; ok && m.live(e) {
		n, _ = strconv.ParseInt(string(e.val), 10, 64)
	}
	n++
	m.data[key] = memEntry{val: []byte(strconv.FormatInt(n, 10))}
	return n, nil
}

func (m *memoryKV) Counter(_ context.Context, key string) (int64, error) {
	m.mu.RLock()
	e, ok := m.data[key]
	m.mu.RUnlock()
	if !ok || !m.live(e) {
		return 0, nil
	}
	n, _ := strconv.ParseInt(string(e.val), 10, 64)
	return n, nil
}

func (m *memoryKV) MCounter(ctx context.Context, keys ...string) ([]int64, error) {
	out := make([]int64, len(keys))
	m.mu.RLock()
	defer m.mu.RUnlock()
	for i, k := range keys {
		if e, ok := m.data[k]; ok && m.live(e) {
			out[i], _ = strconv.ParseInt(string(e.val), 10, 64)
		}
	}
	return out, nil
}

func (m *memoryKV) Close() error {
	m.stopOnce.Do(func() { close(m.stop) })
	return nil
}
