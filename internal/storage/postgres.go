package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresStore 基于 pgx 连接池的键值存储
type PostgresStore struct {
	pool  *pgxpool.Pool
	table string
}

// OpenPostgres 建立连接池并初始化键值表
// 连接采用短时快速探测策略：最多尝试 3 次，失败立即返回
func OpenPostgres(ctx context.Context, dsn, table string) (*PostgresStore, error) {
	if err := validTable(table); err != nil {
		return nil, err
	}
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse dsn failed: %w", err)
	}
	cfg.MaxConns = 4

	const attempts = 3
	interval := 300 * time.Millisecond

	var pool *pgxpool.Pool
	var lastErr error
	for i := 0; i < attempts; i++ {
		attemptCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
		pool, lastErr = pgxpool.NewWithConfig(attemptCtx, cfg)
		if lastErr == nil {
			var one int
			lastErr = pool.QueryRow(attemptCtx, "SELECT 1").Scan(&one)
			if lastErr == nil && one == 1 {
				cancel()
				break
			}
			pool.Close()
			pool = nil
		}
		cancel()
		if i < attempts-1 {
			time.Sleep(interval)
		}
	}
	if pool == nil {
		return nil, fmt.Errorf("postgres not ready (quick probe failed): %w", lastErr)
	}

	ddl := fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
		key TEXT PRIMARY KEY,
		value BYTEA NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`, table)
	if _, err := pool.Exec(ctx, ddl); err != nil {
		pool.Close()
		return nil, fmt.Errorf("create kv table: %w", err)
	}

	return &PostgresStore{pool: pool, table: table}, nil
}

// Get 读取键对应的值
func (p *PostgresStore) Get(ctx context.Context, key string) ([]byte, bool, error) {
	var value []byte
	err := p.pool.QueryRow(ctx, fmt.Sprintf(`SELECT value FROM %s WHERE key = $1`, p.table), key).Scan(&value)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("get %s: %w", key, err)
	}
	return value, true, nil
}

// Set 写入键对应的值
func (p *PostgresStore) Set(ctx context.Context, key string, value []byte) error {
	_, err := p.pool.Exec(ctx, fmt.Sprintf(
		`INSERT INTO %s (key, value, updated_at) VALUES ($1, $2, now())
		 ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value, updated_at = now()`, p.table),
		key, value,
	)
	if err != nil {
		return fmt.Errorf("set %s: %w", key, err)
	}
	return nil
}

// Remove 删除键
func (p *PostgresStore) Remove(ctx context.Context, key string) error {
	if _, err := p.pool.Exec(ctx, fmt.Sprintf(`DELETE FROM %s WHERE key = $1`, p.table), key); err != nil {
		return fmt.Errorf("remove %s: %w", key, err)
	}
	return nil
}

// Close 关闭连接池
func (p *PostgresStore) Close() error {
	if p.pool != nil {
		p.pool.Close()
	}
	return nil
}
