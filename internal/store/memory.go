package store

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
)

type memoryData struct {
	mu       sync.RWMutex
	items    map[string][]byte
	watchers map[string]map[chan Change]struct{}
}

// Memory es un Store en proceso. Varios handles creados con Sibling comparten
// los datos y se ven entre sí como contextos distintos.
type Memory struct {
	id     string
	data   *memoryData
	closed atomic.Bool
}

func NewMemory() *Memory {
	return &Memory{
		id: uuid.NewString(),
		data: &memoryData{
			items:    make(map[string][]byte),
			watchers: make(map[string]map[chan Change]struct{}),
		},
	}
}

// Sibling abre otro handle sobre los mismos datos con un origen distinto.
func (m *Memory) Sibling() *Memory {
	return &Memory{id: uuid.NewString(), data: m.data}
}

func (m *Memory) ID() string {
	return m.id
}

func (m *Memory) Get(_ context.Context, key string) ([]byte, error) {
	if m.closed.Load() {
		return nil, ErrClosed
	}
	if err := validateKey(key); err != nil {
		return nil, err
	}
	m.data.mu.RLock()
	defer m.data.mu.RUnlock()

	value, ok := m.data.items[key]
	if !ok {
		return nil, ErrNotFound
	}
	return append([]byte(nil), value...), nil
}

func (m *Memory) Set(_ context.Context, key string, value []byte) error {
	if m.closed.Load() {
		return ErrClosed
	}
	if err := validateKey(key); err != nil {
		return err
	}
	stored := append([]byte(nil), value...)

	// Aviso bajo el mismo lock que la escritura: los watchers ven los cambios
	// en el orden en que quedaron guardados. offer nunca bloquea.
	m.data.mu.Lock()
	defer m.data.mu.Unlock()
	m.data.items[key] = stored
	for ch := range m.data.watchers[key] {
		offer(ch, Change{Key: key, Value: append([]byte(nil), stored...), Origin: m.id})
	}
	return nil
}

// Delete borra la clave y notifica un valor nulo.
func (m *Memory) Delete(_ context.Context, key string) error {
	if m.closed.Load() {
		return ErrClosed
	}
	m.data.mu.Lock()
	defer m.data.mu.Unlock()
	delete(m.data.items, key)
	for ch := range m.data.watchers[key] {
		offer(ch, Change{Key: key, Origin: m.id})
	}
	return nil
}

func (m *Memory) Watch(ctx context.Context, key string) (<-chan Change, error) {
	if m.closed.Load() {
		return nil, ErrClosed
	}
	ch := make(chan Change, watchBuffer)

	m.data.mu.Lock()
	if m.data.watchers[key] == nil {
		m.data.watchers[key] = make(map[chan Change]struct{})
	}
	m.data.watchers[key][ch] = struct{}{}
	m.data.mu.Unlock()

	go func() {
		<-ctx.Done()
		m.data.mu.Lock()
		delete(m.data.watchers[key], ch)
		m.data.mu.Unlock()
		close(ch)
	}()
	return ch, nil
}

func (m *Memory) Close() error {
	m.closed.Store(true)
	return nil
}
