package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

const pgChangesChannel = "kv_changes"

const pgSchema = `
CREATE TABLE IF NOT EXISTS kv_entries (
	key        TEXT PRIMARY KEY,
	value      JSONB NOT NULL,
	origin     TEXT NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
)`

const (
	pgSelectValue = `SELECT value::text FROM kv_entries WHERE key = $1`
	pgUpsert      = `
		INSERT INTO kv_entries (key, value, origin, updated_at)
		VALUES ($1, $2::jsonb, $3, now())
		ON CONFLICT (key) DO UPDATE
		SET value = EXCLUDED.value, origin = EXCLUDED.origin, updated_at = EXCLUDED.updated_at
	`
	pgNotify = `SELECT pg_notify($1, $2)`
)

// pg_notify limita el payload a 8000 bytes, así que la notificación solo lleva
// la clave y el origen; el valor se relee de la tabla.
type pgNotice struct {
	Key    string `json:"key"`
	Origin string `json:"origin"`
}

// pgDB es lo que Postgres usa del pool; los tests lo reemplazan.
type pgDB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	BeginTx(ctx context.Context) (pgTx, error)
	Listen(ctx context.Context, channel string) (pgListener, error)
	Close()
}

type pgTx interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
}

// pgListener es una conexión dedicada a LISTEN. Close deja de escuchar y la devuelve.
type pgListener interface {
	WaitForNotification(ctx context.Context) (*pgconn.Notification, error)
	Close()
}

type poolDB struct {
	pool *pgxpool.Pool
}

func (d poolDB) Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	return d.pool.Exec(ctx, sql, args...)
}

func (d poolDB) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	return d.pool.QueryRow(ctx, sql, args...)
}

func (d poolDB) BeginTx(ctx context.Context) (pgTx, error) {
	return d.pool.Begin(ctx)
}

func (d poolDB) Listen(ctx context.Context, channel string) (pgListener, error) {
	conn, err := d.pool.Acquire(ctx)
	if err != nil {
		return nil, fmt.Errorf("acquire listen conn: %w", err)
	}
	if _, err := conn.Exec(ctx, "LISTEN "+channel); err != nil {
		conn.Release()
		return nil, fmt.Errorf("listen: %w", err)
	}
	return &poolListener{conn: conn, channel: channel}, nil
}

func (d poolDB) Close() {
	d.pool.Close()
}

type poolListener struct {
	conn    *pgxpool.Conn
	channel string
}

func (l *poolListener) WaitForNotification(ctx context.Context) (*pgconn.Notification, error) {
	return l.conn.Conn().WaitForNotification(ctx)
}

func (l *poolListener) Close() {
	// La conexión vuelve al pool, así que hay que dejar de escuchar.
	if _, err := l.conn.Exec(context.Background(), "UNLISTEN "+l.channel); err != nil {
		l.conn.Conn().Close(context.Background())
	}
	l.conn.Release()
}

// Postgres guarda las claves en kv_entries y avisa los cambios con NOTIFY.
type Postgres struct {
	id     string
	db     pgDB
	logger *zap.Logger
	// ownsPool indica que Close debe cerrar el pool.
	ownsPool bool
}

// NewPostgres crea la tabla si hace falta.
func NewPostgres(ctx context.Context, pool *pgxpool.Pool, logger *zap.Logger) (*Postgres, error) {
	return newPostgres(ctx, poolDB{pool: pool}, logger)
}

func newPostgres(ctx context.Context, db pgDB, logger *zap.Logger) (*Postgres, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if _, err := db.Exec(ctx, pgSchema); err != nil {
		return nil, fmt.Errorf("create kv_entries: %w", err)
	}
	return &Postgres{id: uuid.NewString(), db: db, logger: logger}, nil
}

func (p *Postgres) ID() string {
	return p.id
}

func (p *Postgres) Get(ctx context.Context, key string) ([]byte, error) {
	if err := validateKey(key); err != nil {
		return nil, err
	}
	var raw string
	if err := p.db.QueryRow(ctx, pgSelectValue, key).Scan(&raw); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("select %s: %w", key, err)
	}
	return []byte(raw), nil
}

func (p *Postgres) Set(ctx context.Context, key string, value []byte) error {
	if err := validateKey(key); err != nil {
		return err
	}
	notice, err := json.Marshal(pgNotice{Key: key, Origin: p.id})
	if err != nil {
		return err
	}

	tx, err := p.db.BeginTx(ctx)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, pgUpsert, key, string(value), p.id); err != nil {
		return fmt.Errorf("upsert %s: %w", key, err)
	}
	// NOTIFY dentro de la transacción solo se entrega al hacer commit.
	if _, err := tx.Exec(ctx, pgNotify, pgChangesChannel, string(notice)); err != nil {
		return fmt.Errorf("notify %s: %w", key, err)
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit %s: %w", key, err)
	}
	return nil
}

func (p *Postgres) Watch(ctx context.Context, key string) (<-chan Change, error) {
	if err := validateKey(key); err != nil {
		return nil, err
	}
	listener, err := p.db.Listen(ctx, pgChangesChannel)
	if err != nil {
		return nil, err
	}

	out := make(chan Change, watchBuffer)
	go func() {
		defer close(out)
		defer listener.Close()
		for {
			n, err := listener.WaitForNotification(ctx)
			if err != nil {
				if ctx.Err() == nil {
					p.logger.Warn("postgres listen stopped", zap.String("key", key), zap.Error(err))
				}
				return
			}
			notice, ok := decodePGNotice(n.Payload)
			if !ok || notice.Key != key {
				continue
			}
			value, err := p.Get(ctx, key)
			if err != nil && !errors.Is(err, ErrNotFound) {
				p.logger.Warn("failed to reload changed key", zap.String("key", key), zap.Error(err))
				continue
			}
			offer(out, Change{Key: key, Value: value, Origin: notice.Origin})
		}
	}()
	return out, nil
}

func decodePGNotice(payload string) (pgNotice, bool) {
	var n pgNotice
	if err := json.Unmarshal([]byte(payload), &n); err != nil || n.Key == "" {
		return pgNotice{}, false
	}
	return n, true
}

// Close cierra el pool solo si lo abrió Open.
func (p *Postgres) Close() error {
	if p.ownsPool {
		p.db.Close()
	}
	return nil
}
