// Package cache guarda las respuestas de POST /api/ventas por clave de idempotencia para que un
// reintento del cliente no cierre la misma venta dos veces.
package cache

import (
	"context"
	"time"
)

// IdempotencyState resultado de reclamar una clave.
type IdempotencyState int

const (
	// IdempotencyNew la clave quedó reclamada por esta petición.
	IdempotencyNew IdempotencyState = iota
	// IdempotencyPending otra petición con la misma clave sigue en curso.
	IdempotencyPending
	// IdempotencyDone ya existe una respuesta guardada.
	IdempotencyDone
)

// IdempotencyStore contrato del almacén de claves.
type IdempotencyStore interface {
	// Claim reclama key; si ya tiene respuesta la devuelve con IdempotencyDone.
	Claim(ctx context.Context, key string, ttl time.Duration) (IdempotencyState, []byte, error)
	// Complete guarda la respuesta final de key.
	Complete(ctx context.Context, key string, payload []byte, ttl time.Duration) error
	// Release libera key sin respuesta (la venta falló y el cliente puede reintentar).
	Release(ctx context.Context, key string) error
}

// NoopIdempotencyStore desactiva la idempotencia (sin REDIS_ADDR).
type NoopIdempotencyStore struct{}

// Claim siempre devuelve IdempotencyNew.
func (NoopIdempotencyStore) Claim(context.Context, string, time.Duration) (IdempotencyState, []byte, error) {
	return IdempotencyNew, nil, nil
}

// Complete no guarda nada.
func (NoopIdempotencyStore) Complete(context.Context, string, []byte, time.Duration) error {
	return nil
}

// Release no hace nada.
func (NoopIdempotencyStore) Release(context.Context, string) error {
	return nil
}
