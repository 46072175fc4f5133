// Package storage 提供课程快照与用户资料的持久化键值存储
//
// 所有驱动都实现 KV 接口，值为序列化后的字节串：
//   - file: 单个 JSON 文档（默认）
//   - sqlite: 基于 modernc.org/sqlite 的键值表
//   - postgres: 基于 pgx 连接池的键值表
//   - memory: 进程内存储，用于测试和临时运行
package storage

import (
	"context"
	"errors"
	"fmt"
	"regexp"

	"eduverse/internal/config"
	"eduverse/internal/logger"
)

// ErrUnknownDriver 配置了不支持的存储驱动
var ErrUnknownDriver = errors.New("unknown storage driver")

// KV 持久化键值存储接口
// 对调用方而言所有操作都是同步的
type KV interface {
	// Get 读取键对应的值，键不存在时 found 为 false
	Get(ctx context.Context, key string) (value []byte, found bool, err error)
	// Set 写入（覆盖）键对应的值
	Set(ctx context.Context, key string, value []byte) error
	// Remove 删除键，键不存在时不返回错误
	Remove(ctx context.Context, key string) error
	// Close 释放底层资源
	Close() error
}

var tableNamePattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]{0,62}$`)

func validTable(table string) error {
	if !tableNamePattern.MatchString(table) {
		return fmt.Errorf("invalid storage table name: %q", table)
	}
	return nil
}

// Open 根据配置打开存储驱动
// 参数:
//
//	ctx: 用于建立数据库连接的上下文
//	cfg: 存储配置
//	log: 日志记录器实例
//
// 返回: 存储实例或错误
func Open(ctx context.Context, cfg config.StorageConfig, log *logger.Logger) (KV, error) {
	switch cfg.Driver {
	case config.DriverFile, "":
		return NewFileStore(cfg.Path, log), nil
	case config.DriverSQLite:
		return OpenSQLite(ctx, cfg.Path, cfg.Table)
	case config.DriverPostgres:
		return OpenPostgres(ctx, cfg.DSN, cfg.Table)
	case config.DriverMemory:
		return NewMemoryStore(), nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownDriver, cfg.Driver)
	}
}
