package store

import (
	"context"
	"encoding/json"
	"errors"
	"sync"

	"go.uber.org/zap"
)

// Persisted es un valor tipado respaldado por una clave del Store.
// La caché en memoria siempre va por delante del almacenamiento: si persistir
// falla se registra y se sigue con el valor nuevo.
type Persisted[T any] struct {
	mu        sync.Mutex
	st        Store
	key       string
	value     T
	logger    *zap.Logger
	listeners []func(T)
}

// NewPersisted lee la clave una sola vez. Si falta o no decodifica se usa def,
// que no se escribe de vuelta.
func NewPersisted[T any](ctx context.Context, st Store, key string, def T, logger *zap.Logger) *Persisted[T] {
	if logger == nil {
		logger = zap.NewNop()
	}
	p := &Persisted[T]{st: st, key: key, value: def, logger: logger}

	raw, err := st.Get(ctx, key)
	switch {
	case errors.Is(err, ErrNotFound):
	case err != nil:
		logger.Warn("persisted value unavailable, using default", zap.String("key", key), zap.Error(err))
	default:
		var v T
		if err := json.Unmarshal(raw, &v); err != nil {
			logger.Warn("persisted value corrupt, using default", zap.String("key", key), zap.Error(err))
		} else {
			p.value = v
		}
	}
	return p
}

func (p *Persisted[T]) Key() string {
	return p.key
}

// Get devuelve la caché actual. Quien la recibe no debe mutarla.
func (p *Persisted[T]) Get() T {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.value
}

func (p *Persisted[T]) Set(ctx context.Context, v T) {
	p.Update(ctx, func(T) T { return v })
}

// Update aplica fn sobre el valor más reciente y persiste el resultado.
// Lectura, cálculo y escritura ocurren bajo el mismo lock.
func (p *Persisted[T]) Update(ctx context.Context, fn func(T) T) T {
	p.mu.Lock()
	next := fn(p.value)
	p.value = next
	p.persistLocked(ctx, next)
	listeners := p.listeners
	p.mu.Unlock()

	notify(listeners, next)
	return next
}

func (p *Persisted[T]) persistLocked(ctx context.Context, v T) {
	raw, err := json.Marshal(v)
	if err != nil {
		p.logger.Error("failed to encode persisted value", zap.String("key", p.key), zap.Error(err))
		return
	}
	if err := p.st.Set(ctx, p.key, raw); err != nil {
		p.logger.Error("failed to persist value", zap.String("key", p.key), zap.Error(err))
	}
}

// OnChange registra fn para cada cambio de la caché, local o externo.
func (p *Persisted[T]) OnChange(fn func(T)) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.listeners = append(p.listeners, fn)
}

// Sync escucha los cambios que otros contextos hacen sobre la clave hasta que
// ctx termina. Los cambios propios se ignoran y gana la última escritura.
// El canal devuelto se cierra al terminar la escucha.
func (p *Persisted[T]) Sync(ctx context.Context) (<-chan struct{}, error) {
	changes, err := p.st.Watch(ctx, p.key)
	if err != nil {
		return nil, err
	}
	done := make(chan struct{})
	go func() {
		defer close(done)
		for c := range changes {
			p.apply(c)
		}
	}()
	return done, nil
}

func (p *Persisted[T]) apply(c Change) {
	if c.Key != p.key || c.Origin == p.st.ID() {
		return
	}
	var v T
	if c.Value != nil {
		if err := json.Unmarshal(c.Value, &v); err != nil {
			p.logger.Warn("ignoring corrupt external change", zap.String("key", p.key), zap.String("origin", c.Origin), zap.Error(err))
			return
		}
	}

	p.mu.Lock()
	p.value = v
	listeners := p.listeners
	p.mu.Unlock()

	p.logger.Debug("applied external change", zap.String("key", p.key), zap.String("origin", c.Origin))
	notify(listeners, v)
}

func notify[T any](listeners []func(T), v T) {
	for _, fn := range listeners {
		fn(v)
	}
}
