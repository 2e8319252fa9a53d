// Package store implementa el almacenamiento clave-valor persistido que comparten
// los distintos contextos (API, cliente de terminal, otras instancias) y la
// notificación de cambios entre ellos.
package store

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
)

var (
	ErrNotFound      = errors.New("store: key not found")
	ErrClosed        = errors.New("store: closed")
	ErrInvalidKey    = errors.New("store: invalid key")
	ErrUnknownDriver = errors.New("store: unknown driver")
)

// Change es un cambio observado sobre una clave. Value nil significa borrado o null.
type Change struct {
	Key    string
	Value  []byte
	Origin string
}

// Store es la capa cruda: JSON por clave más un flujo de cambios.
// Los valores escritos con Set deben ser JSON válido.
type Store interface {
	// ID identifica este handle; cada Set lo estampa como Origin del cambio.
	ID() string
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	// Watch entrega los cambios de key hasta que ctx termina.
	Watch(ctx context.Context, key string) (<-chan Change, error)
	Close() error
}

// watchBuffer acota los cambios pendientes por suscriptor.
const watchBuffer = 16

var keyPattern = regexp.MustCompile(`^[A-Za-z0-9_.-]+$`)

func validateKey(key string) error {
	if !keyPattern.MatchString(key) {
		return fmt.Errorf("%w: %q", ErrInvalidKey, key)
	}
	return nil
}

// envelope es el formato en el que los backends transportan un valor y su origen.
type envelope struct {
	Key    string          `json:"key"`
	Origin string          `json:"origin"`
	Value  json.RawMessage `json:"value,omitempty"`
}

func encodeEnvelope(key, origin string, value []byte) ([]byte, error) {
	return json.Marshal(envelope{Key: key, Origin: origin, Value: value})
}

func decodeEnvelope(raw []byte) (envelope, error) {
	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return envelope{}, err
	}
	if env.Key == "" {
		return envelope{}, errors.New("envelope without key")
	}
	return env, nil
}

func (e envelope) change() Change {
	value := []byte(e.Value)
	if len(value) == 0 || bytes.Equal(bytes.TrimSpace(value), []byte("null")) {
		value = nil
	}
	return Change{Key: e.Key, Value: value, Origin: e.Origin}
}

// offer entrega c sin bloquear; si el buffer está lleno descarta el cambio más
// viejo, ya que solo importa el último valor.
func offer(ch chan Change, c Change) {
	select {
	case ch <- c:
		return
	default:
	}
	select {
	case <-ch:
	default:
	}
	select {
	case ch <- c:
	default:
	}
}
