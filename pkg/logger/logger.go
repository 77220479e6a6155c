// Package logger 提供统一的日志封装，基于 slog 与共享 logging 包
// 支持 run_id 注入、OpenTelemetry trace_id/span_id 注入与日志切割。
package logger

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/wyfcoding/pkg/logging"
	"gopkg.in/natefinch/lumberjack.v2"
)

// 全局日志实例
var globalLogger *slog.Logger

type ctxKey string

const (
	runIDKey   ctxKey = "run_id"
	traceIDKey ctxKey = "trace_id"
)

// Config 日志配置
type Config struct {
	// 服务名与模块名，作为每条日志的固定字段
	Service string `mapstructure:"service"`
	Module  string `mapstructure:"module"`
	// 日志级别：debug, info, warn, error
	Level string `mapstructure:"level"`
	// 输出格式：json 或 text
	Format string `mapstructure:"format"`
	// 输出目标：stdout, stderr, file, both
	Output string `mapstructure:"output"`
	// 日志文件路径（当 output 为 file 或 both 时）
	FilePath string `mapstructure:"file_path"`
	// 最大文件大小（MB）
	MaxSize int `mapstructure:"max_size"`
	// 最大备份文件数
	MaxBackups int `mapstructure:"max_backups"`
	// 最大保留天数
	MaxAge int `mapstructure:"max_age"`
	// 是否压缩
	Compress bool `mapstructure:"compress"`
	// 是否输出调用者信息
	WithCaller bool `mapstructure:"with_caller"`
}

// ParseLevel 解析日志级别，未知值按 info 处理
func ParseLevel(s string) slog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// New 按配置创建日志实例
// output=file 时交给 logging.NewFromConfig，固定 JSON 格式。
func New(cfg Config) (*slog.Logger, error) {
	var output io.Writer
	switch cfg.Output {
	case "file":
		l := logging.NewFromConfig(logging.Config{
			Service:    cfg.Service,
			Module:     cfg.Module,
			Level:      strings.ToLower(cfg.Level),
			File:       cfg.FilePath,
			MaxSize:    cfg.MaxSize,
			MaxBackups: cfg.MaxBackups,
			MaxAge:     cfg.MaxAge,
			Compress:   cfg.Compress,
		})
		// NewFromConfig 的 With 会丢掉外层 TraceHandler，这里重新包装
		return slog.New(&logging.TraceHandler{Handler: l.Handler()}), nil
	case "both":
		if err := os.MkdirAll(filepath.Dir(cfg.FilePath), 0o755); err != nil {
			return nil, err
		}
		fileWriter := &lumberjack.Logger{
			Filename:   cfg.FilePath,
			MaxSize:    cfg.MaxSize,
			MaxBackups: cfg.MaxBackups,
			MaxAge:     cfg.MaxAge,
			Compress:   cfg.Compress,
		}
		// 标准输出留给定价结果
		output = io.MultiWriter(os.Stderr, fileWriter)
	case "stderr":
		output = os.Stderr
	default:
		output = os.Stdout
	}
	return NewWithWriter(cfg, output), nil
}

// NewWithWriter 使用指定输出创建日志实例
func NewWithWriter(cfg Config, w io.Writer) *slog.Logger {
	opts := &slog.HandlerOptions{
		Level:     ParseLevel(cfg.Level),
		AddSource: cfg.WithCaller,
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			if a.Key == slog.TimeKey && len(groups) == 0 {
				a.Value = slog.StringValue(a.Value.Time().Format(time.RFC3339))
			}
			return a
		},
	}

	var handler slog.Handler
	if cfg.Format == "text" {
		handler = slog.NewTextHandler(w, opts)
	} else {
		handler = slog.NewJSONHandler(w, opts)
	}
	var attrs []slog.Attr
	if cfg.Service != "" {
		attrs = append(attrs, slog.String("service", cfg.Service))
	}
	if cfg.Module != "" {
		attrs = append(attrs, slog.String("module", cfg.Module))
	}
	return withAttrs(slog.New(&logging.TraceHandler{Handler: handler}), attrs...)
}

// withAttrs 追加固定字段并保留 trace_id/span_id 注入
func withAttrs(l *slog.Logger, attrs ...slog.Attr) *slog.Logger {
	if len(attrs) == 0 {
		return l
	}
	if th, ok := l.Handler().(*logging.TraceHandler); ok {
		return slog.New(&logging.TraceHandler{Handler: th.Handler.WithAttrs(attrs)})
	}
	return slog.New(l.Handler().WithAttrs(attrs))
}

// Init 初始化全局日志实例
func Init(cfg Config) error {
	l, err := New(cfg)
	if err != nil {
		return err
	}
	SetDefault(l)
	return nil
}

// SetDefault 替换全局日志实例
func SetDefault(l *slog.Logger) {
	globalLogger = l
	slog.SetDefault(l)
}

// Get 获取全局日志实例
func Get() *slog.Logger {
	if globalLogger == nil {
		return slog.Default()
	}
	return globalLogger
}

// WithRunID 在 context 中记录一次定价运行的 ID
func WithRunID(ctx context.Context, runID string) context.Context {
	return context.WithValue(ctx, runIDKey, runID)
}

// WithTraceID 在 context 中记录外部调用方传入的 trace_id
func WithTraceID(ctx context.Context, traceID string) context.Context {
	return context.WithValue(ctx, traceIDKey, traceID)
}

// WithContext 从 context 中提取 run_id 和 trace_id，返回带有这些字段的 logger
func WithContext(ctx context.Context) *slog.Logger {
	l := Get()
	if ctx == nil {
		return l
	}

	var attrs []slog.Attr
	if runID, ok := ctx.Value(runIDKey).(string); ok && runID != "" {
		attrs = append(attrs, slog.String(string(runIDKey), runID))
	}
	if traceID, ok := ctx.Value(traceIDKey).(string); ok && traceID != "" {
		attrs = append(attrs, slog.String(string(traceIDKey), traceID))
	}
	return withAttrs(l, attrs...)
}

// Debug 输出 debug 级别日志
func Debug(ctx context.Context, msg string, args ...any) {
	WithContext(ctx).DebugContext(ctx, msg, args...)
}

// Info 输出 info 级别日志
func Info(ctx context.Context, msg string, args ...any) {
	WithContext(ctx).InfoContext(ctx, msg, args...)
}

// Warn 输出 warn 级别日志
func Warn(ctx context.Context, msg string, args ...any) {
	WithContext(ctx).WarnContext(ctx, msg, args...)
}

// Error 输出 error 级别日志
func Error(ctx context.Context, msg string, args ...any) {
	WithContext(ctx).ErrorContext(ctx, msg, args...)
}

// Fatal 输出 error 级别日志并退出
func Fatal(ctx context.Context, msg string, args ...any) {
	WithContext(ctx).ErrorContext(ctx, msg, args...)
	os.Exit(1)
}

// LogDuration 记录操作耗时，返回一个函数用于在 defer 中调用
func LogDuration(ctx context.Context, msg string, args ...any) func() {
	start := time.Now()
	return func() {
		args = append(args, slog.Duration("duration", time.Since(start)))
		Info(ctx, msg, args...)
	}
}
