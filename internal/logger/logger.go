package logger

import (
	"io"
	"os"
	"strings"
	"sync/atomic"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// LogLevel 定义日志级别类型
type LogLevel int

// 日志级别常量定义
const (
	DEBUG LogLevel = iota
	INFO
	WARN
	ERROR
)

// LogLevelNames 日志级别名称映射
var LogLevelNames = map[LogLevel]string{
	DEBUG: "DEBUG",
	INFO:  "INFO",
	WARN:  "WARN",
	ERROR: "ERROR",
}

// 日志输出格式
const (
	FormatText = "text"
	FormatJSON = "json"
)

// globalLevel 全局最低日志级别，-1 表示未设置
var globalLevel atomic.Int32

// globalFormat 全局日志格式，由配置加载时设置
var globalFormat atomic.Value

func init() {
	globalLevel.Store(-1)
	globalFormat.Store(FormatText)
}

// Logger 日志记录器结构体
// 对外保持 printf 风格接口，内部由 zap 负责编码与输出
type Logger struct {
	level zap.AtomicLevel    // 当前日志级别
	sugar *zap.SugaredLogger // zap 输出实例
}

// NewLogger 创建新的日志记录器实例，输出到标准错误
// 若已通过 SetGlobalLevel 设置全局级别，则取两者中更严格的级别
func NewLogger(level LogLevel) *Logger {
	format, _ := globalFormat.Load().(string)
	return New(level, format, os.Stderr)
}

// New 创建指定级别、格式与输出目标的日志记录器
// 参数:
//
//	level: 日志级别
//	format: 输出格式 (json, text)
//	w: 输出目标
func New(level LogLevel, format string, w io.Writer) *Logger {
	if g := LogLevel(globalLevel.Load()); g >= 0 && g > level {
		level = g
	}

	encCfg := zap.NewProductionEncoderConfig()
	encCfg.TimeKey = "time"
	encCfg.EncodeTime = zapcore.ISO8601TimeEncoder

	var encoder zapcore.Encoder
	if strings.EqualFold(format, FormatJSON) {
		encoder = zapcore.NewJSONEncoder(encCfg)
	} else {
		encCfg.EncodeLevel = zapcore.CapitalLevelEncoder
		encoder = zapcore.NewConsoleEncoder(encCfg)
	}

	atom := zap.NewAtomicLevelAt(toZapLevel(level))
	core := zapcore.NewCore(encoder, zapcore.AddSync(w), atom)

	return &Logger{
		level: atom,
		sugar: zap.New(core).Sugar(),
	}
}

// ParseLogLevel 从字符串解析日志级别
func ParseLogLevel(levelStr string) LogLevel {
	switch strings.ToUpper(levelStr) {
	case "DEBUG":
		return DEBUG
	case "INFO":
		return INFO
	case "WARN", "WARNING":
		return WARN
	case "ERROR":
		return ERROR
	default:
		return INFO // 默认级别
	}
}

// SetGlobalLevel 设置全局日志级别，之后新建的 Logger 不会低于该级别
func SetGlobalLevel(level LogLevel) {
	globalLevel.Store(int32(level))
}

// SetGlobalFormat 设置全局日志格式，供 NewLogger 使用
func SetGlobalFormat(format string) {
	if strings.EqualFold(format, FormatJSON) {
		globalFormat.Store(FormatJSON)
		return
	}
	globalFormat.Store(FormatText)
}

func toZapLevel(level LogLevel) zapcore.Level {
	switch level {
	case DEBUG:
		return zapcore.DebugLevel
	case WARN:
		return zapcore.WarnLevel
	case ERROR:
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}

func fromZapLevel(level zapcore.Level) LogLevel {
	switch level {
	case zapcore.DebugLevel:
		return DEBUG
	case zapcore.WarnLevel:
		return WARN
	case zapcore.InfoLevel:
		return INFO
	default:
		return ERROR
	}
}

// Debug 记录DEBUG级别日志
func (l *Logger) Debug(format string, args ...interface{}) {
	l.sugar.Debugf(format, args...)
}

// Info 记录INFO级别日志
func (l *Logger) Info(format string, args ...interface{}) {
	l.sugar.Infof(format, args...)
}

// Warn 记录WARN级别日志
func (l *Logger) Warn(format string, args ...interface{}) {
	l.sugar.Warnf(format, args...)
}

// Error 记录ERROR级别日志
func (l *Logger) Error(format string, args ...interface{}) {
	l.sugar.Errorf(format, args...)
}

// SetLevel 设置日志级别
func (l *Logger) SetLevel(level LogLevel) {
	l.level.SetLevel(toZapLevel(level))
}

// GetLevel 获取当前日志级别
func (l *Logger) GetLevel() LogLevel {
	return fromZapLevel(l.level.Level())
}

// Sync 刷新缓冲的日志输出
func (l *Logger) Sync() error {
	return l.sugar.Sync()
}
