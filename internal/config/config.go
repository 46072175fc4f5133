package config

import (
	"fmt"
	"os"
	"strings"

	"eduverse/internal/logger"

	"github.com/caarlos0/env/v11"
)

// BuildDefaultUseEmbed 用于通过 -ldflags 注入发布版本的默认嵌入开关（"true"/"false" 或 "1"/"0"）
// 在未设置环境变量 CATALOG_USE_EMBED 时，此值作为默认值生效
var BuildDefaultUseEmbed = ""

// 支持的存储驱动
const (
	DriverFile     = "file"
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
	DriverMemory   = "memory"
)

// Config 应用程序配置结构
type Config struct {
	// Server 服务器相关配置
	Server ServerConfig `json:"server" yaml:"server"`
	// Storage 持久化存储配置（课程快照与用户资料）
	Storage StorageConfig `json:"storage" yaml:"storage"`
	// Catalog 种子课程目录配置
	Catalog CatalogConfig `json:"catalog" yaml:"catalog"`
	Media   MediaConfig   `json:"media" yaml:"media"`
	Log     LogConfig     `json:"log" yaml:"log"`
}

// ServerConfig 服务器配置
type ServerConfig struct {
	Host string `json:"host" yaml:"host" env:"SERVER_HOST" envDefault:"0.0.0.0"` // 服务器监听地址
	Port int    `json:"port" yaml:"port" env:"SERVER_PORT" envDefault:"3006"`    // 服务器监听端口
}

// StorageConfig 持久化存储配置
type StorageConfig struct {
	Driver string `json:"driver" yaml:"driver" env:"STORAGE_DRIVER" envDefault:"file"`              // file, sqlite, postgres, memory
	Path   string `json:"path" yaml:"path" env:"STORAGE_PATH" envDefault:"data/eduverse.json"`      // file/sqlite 驱动的文件路径
	DSN    string `json:"dsn" yaml:"dsn" env:"STORAGE_DSN"`                                          // postgres 连接串
	Table  string `json:"table" yaml:"table" env:"STORAGE_TABLE" envDefault:"eduverse_kv"`           // sqlite/postgres 键值表名
}

// CatalogConfig 种子课程目录配置
type CatalogConfig struct {
	Dir      string `json:"dir" yaml:"dir" env:"CATALOG_DIR" envDefault:"./catalog"` // 种子目录路径
	UseEmbed bool   `json:"useEmbed" yaml:"useEmbed" env:"CATALOG_USE_EMBED"`        // 是否使用嵌入式FS作为种子数据来源
}

// MediaConfig 上传视频相关配置
type MediaConfig struct {
	MaxUploadMB int `json:"maxUploadMB" yaml:"maxUploadMB" env:"MEDIA_MAX_UPLOAD_MB" envDefault:"200"`
}

// LogConfig 日志系统相关配置
type LogConfig struct {
	Level  string `json:"level" yaml:"level" env:"LOG_LEVEL" envDefault:"info"`   // 日志级别 (debug, info, warn, error)
	Format string `json:"format" yaml:"format" env:"LOG_FORMAT" envDefault:"text"` // 日志格式 (json, text)
}

// Load 从环境变量加载配置
// 支持的环境变量:
//   - SERVER_HOST / SERVER_PORT: 监听地址与端口 (默认: 0.0.0.0:3006)
//   - STORAGE_DRIVER: 存储驱动 file|sqlite|postgres|memory (默认: file)
//   - STORAGE_PATH / STORAGE_DSN / STORAGE_TABLE: 驱动参数
//   - CATALOG_DIR: 种子目录 (默认: ./catalog)
//   - CATALOG_USE_EMBED: 是否使用嵌入式种子 (默认: false 或由 BuildDefaultUseEmbed 指定)
//   - MEDIA_MAX_UPLOAD_MB: 单个视频上传上限 (默认: 200)
//   - LOG_LEVEL / LOG_FORMAT
//
// 返回完整的配置对象；配置校验失败时返回错误
func Load() (*Config, error) {
	cfg := &Config{
		Catalog: CatalogConfig{
			UseEmbed: BuildDefaultUseEmbed == "true" || BuildDefaultUseEmbed == "1",
		},
	}

	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	cfg.Storage.Driver = strings.ToLower(strings.TrimSpace(cfg.Storage.Driver))
	cfg.Log.Level = strings.ToLower(cfg.Log.Level)

	// 应用全局日志配置，确保后续新建的 Logger 统一遵循配置
	logger.SetGlobalFormat(cfg.Log.Format)
	logger.SetGlobalLevel(logger.ParseLogLevel(cfg.Log.Level))

	if err := validateConfig(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// validateConfig 验证配置的有效性
func validateConfig(cfg *Config) error {
	if cfg.Server.Port < 1 || cfg.Server.Port > 65535 {
		return fmt.Errorf("invalid port number: %d, must be between 1 and 65535", cfg.Server.Port)
	}

	switch cfg.Storage.Driver {
	case DriverFile, DriverSQLite:
		if strings.TrimSpace(cfg.Storage.Path) == "" {
			return fmt.Errorf("storage path is required for driver %s", cfg.Storage.Driver)
		}
	case DriverPostgres:
		if strings.TrimSpace(cfg.Storage.DSN) == "" {
			return fmt.Errorf("storage dsn is required for driver %s", cfg.Storage.Driver)
		}
	case DriverMemory:
	default:
		return fmt.Errorf("invalid storage driver: %s, must be one of: file, sqlite, postgres, memory", cfg.Storage.Driver)
	}

	if cfg.Media.MaxUploadMB < 1 {
		return fmt.Errorf("invalid media upload limit: %d, must be positive", cfg.Media.MaxUploadMB)
	}

	// 检查种子目录是否存在（仅在非嵌入模式下）
	if !cfg.Catalog.UseEmbed {
		if _, err := os.Stat(cfg.Catalog.Dir); os.IsNotExist(err) {
			return fmt.Errorf("catalog directory does not exist: %s", cfg.Catalog.Dir)
		}
	}

	validLogLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLogLevels[cfg.Log.Level] {
		return fmt.Errorf("invalid log level: %s, must be one of: debug, info, warn, error", cfg.Log.Level)
	}

	return nil
}

// MaxUploadBytes 返回上传视频的字节上限
func (c *Config) MaxUploadBytes() int64 {
	return int64(c.Media.MaxUploadMB) << 20
}
