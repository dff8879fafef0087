package cache

import (
	"context"
	"errors"
	"time"

	redis "github.com/redis/go-redis/v9"
)

// KeyPrefix antecede a cada clave de idempotencia en Redis.
const KeyPrefix = "possbien:idem:"

const pendingMarker = "__pendiente__"

var _ IdempotencyStore = (*RedisIdempotencyStore)(nil)

// RedisIdempotencyStore implementa IdempotencyStore con SET NX: solo una petición gana la clave.
type RedisIdempotencyStore struct {
	client *redis.Client
	prefix string
}

// NewRedisIdempotencyStore abre un cliente contra addr. La conexión es perezosa; usar Ping para validarla.
func NewRedisIdempotencyStore(addr string, password string, db int) *RedisIdempotencyStore {
	return NewRedisIdempotencyStoreFromClient(redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	}))
}

// NewRedisIdempotencyStoreFromClient usa un cliente ya configurado. Close lo cierra.
func NewRedisIdempotencyStoreFromClient(client *redis.Client) *RedisIdempotencyStore {
	return &RedisIdempotencyStore{client: client, prefix: KeyPrefix}
}

// Ping comprueba que Redis responde.
func (s *RedisIdempotencyStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

// Close cierra el cliente.
func (s *RedisIdempotencyStore) Close() error {
	return s.client.Close()
}

// Claim reclama key con SET NX y un marcador pendiente que vence en ttl. Si la clave ya existe
// devuelve IdempotencyPending mientras la otra petición no termine, o IdempotencyDone con la
// respuesta guardada.
func (s *RedisIdempotencyStore) Claim(ctx context.Context, key string, ttl time.Duration) (IdempotencyState, []byte, error) {
	ok, err := s.client.SetNX(ctx, s.prefix+key, pendingMarker, ttl).Result()
	if err != nil {
		return IdempotencyNew, nil, err
	}
	if ok {
		return IdempotencyNew, nil, nil
	}
	val, err := s.client.Get(ctx, s.prefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		// expiró entre SETNX y GET: se intenta de nuevo una sola vez
		ok, err = s.client.SetNX(ctx, s.prefix+key, pendingMarker, ttl).Result()
		if err != nil {
			return IdempotencyNew, nil, err
		}
		if ok {
			return IdempotencyNew, nil, nil
		}
		return IdempotencyPending, nil, nil
	}
	if err != nil {
		return IdempotencyNew, nil, err
	}
	if string(val) == pendingMarker {
		return IdempotencyPending, nil, nil
	}
	return IdempotencyDone, val, nil
}

// Complete reemplaza el marcador pendiente por payload durante ttl.
func (s *RedisIdempotencyStore) Complete(ctx context.Context, key string, payload []byte, ttl time.Duration) error {
	return s.client.Set(ctx, s.prefix+key, payload, ttl).Err()
}

// Release borra key para que un reintento vuelva a reclamarla.
func (s *RedisIdempotencyStore) Release(ctx context.Context, key string) error {
	return s.client.Del(ctx, s.prefix+key).Err()
}
