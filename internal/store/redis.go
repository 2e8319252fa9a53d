package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// El valor y su notificación se aplican juntos para que ningún suscriptor vea
// un aviso de un valor que todavía no está escrito.
const redisSetPublishScript = `
redis.call("SET", KEYS[1], ARGV[1])
redis.call("PUBLISH", KEYS[2], ARGV[2])
return 1
`

type redisKV interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Eval(ctx context.Context, script string, keys []string, args ...interface{}) *redis.Cmd
	Close() error
}

// redisSubscription es la parte de *redis.PubSub que usa Watch.
type redisSubscription interface {
	Receive(ctx context.Context) (interface{}, error)
	Channel(opts ...redis.ChannelOption) <-chan *redis.Message
	Close() error
}

// Redis guarda cada clave en <prefix><key> y publica los cambios en
// <prefix>changes:<key>.
type Redis struct {
	id     string
	client redisKV
	// subscribe abre la suscripción a un canal; nil deja Watch sin soporte.
	subscribe func(ctx context.Context, channel string) redisSubscription
	prefix    string
	logger    *zap.Logger
}

func NewRedis(client *redis.Client, prefix string, logger *zap.Logger) *Redis {
	r := newRedis(client, prefix, logger)
	r.subscribe = func(ctx context.Context, channel string) redisSubscription {
		return client.Subscribe(ctx, channel)
	}
	return r
}

func newRedis(client redisKV, prefix string, logger *zap.Logger) *Redis {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Redis{id: uuid.NewString(), client: client, prefix: prefix, logger: logger}
}

func (r *Redis) ID() string {
	return r.id
}

func (r *Redis) valueKey(key string) string {
	return r.prefix + key
}

func (r *Redis) channel(key string) string {
	return r.prefix + "changes:" + key
}

func (r *Redis) Get(ctx context.Context, key string) ([]byte, error) {
	if err := validateKey(key); err != nil {
		return nil, err
	}
	raw, err := r.client.Get(ctx, r.valueKey(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("redis get %s: %w", key, err)
	}
	return raw, nil
}

func (r *Redis) Set(ctx context.Context, key string, value []byte) error {
	if err := validateKey(key); err != nil {
		return err
	}
	msg, err := encodeEnvelope(key, r.id, value)
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}
	keys := []string{r.valueKey(key), r.channel(key)}
	if err := r.client.Eval(ctx, redisSetPublishScript, keys, string(value), string(msg)).Err(); err != nil {
		return fmt.Errorf("redis set %s: %w", key, err)
	}
	return nil
}

func (r *Redis) Watch(ctx context.Context, key string) (<-chan Change, error) {
	if err := validateKey(key); err != nil {
		return nil, err
	}
	if r.subscribe == nil {
		return nil, fmt.Errorf("redis watch %s: no subscriber", key)
	}
	pubsub := r.subscribe(ctx, r.channel(key))
	// Esperar la confirmación evita perder cambios publicados justo después.
	if _, err := pubsub.Receive(ctx); err != nil {
		pubsub.Close()
		return nil, fmt.Errorf("redis subscribe %s: %w", key, err)
	}

	out := make(chan Change, watchBuffer)
	messages := pubsub.Channel()
	go func() {
		defer close(out)
		defer pubsub.Close()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-messages:
				if !ok {
					return
				}
				change, err := r.decodeMessage(key, msg.Payload)
				if err != nil {
					r.logger.Warn("ignoring malformed change notification", zap.String("channel", msg.Channel), zap.Error(err))
					continue
				}
				offer(out, change)
			}
		}
	}()
	return out, nil
}

func (r *Redis) decodeMessage(key, payload string) (Change, error) {
	env, err := decodeEnvelope([]byte(payload))
	if err != nil {
		return Change{}, err
	}
	if env.Key != key {
		return Change{}, fmt.Errorf("unexpected key %q", env.Key)
	}
	return env.change(), nil
}

func (r *Redis) Close() error {
	return r.client.Close()
}
