// Package theme mantiene la preferencia claro/oscuro persistida.
package theme

import (
	"context"

	"go.uber.org/zap"

	"bookbot/internal/store"
)

const (
	Key   = "theme"
	Dark  = "dark"
	Light = "light"
)

// Applier aplica el efecto global del tema (paleta de la terminal, flag de la API).
type Applier func(dark bool)

type State struct {
	value *store.Persisted[string]
}

// New lee el tema guardado (por defecto "dark") y aplica el efecto de inmediato
// y en cada cambio posterior, incluidos los de otros contextos.
func New(ctx context.Context, st store.Store, apply Applier, logger *zap.Logger) *State {
	s := &State{value: store.NewPersisted(ctx, st, Key, Dark, logger)}
	if apply != nil {
		apply(s.IsDark())
		s.value.OnChange(func(v string) { apply(v == Dark) })
	}
	return s
}

func (s *State) Current() string {
	return s.value.Get()
}

// IsDark compara por igualdad; cualquier valor ajeno se trata como claro.
func (s *State) IsDark() bool {
	return s.Current() == Dark
}

// Toggle alterna entre "dark" y "light" y devuelve el valor nuevo.
func (s *State) Toggle(ctx context.Context) string {
	return s.value.Update(ctx, func(cur string) string {
		if cur == Dark {
			return Light
		}
		return Dark
	})
}

// Sync escucha los cambios de tema hechos por otros contextos.
func (s *State) Sync(ctx context.Context) (<-chan struct{}, error) {
	return s.value.Sync(ctx)
}

func (s *State) OnChange(fn func(theme string)) {
	s.value.OnChange(fn)
}
