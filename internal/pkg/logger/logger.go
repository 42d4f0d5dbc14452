// internal/pkg/logger/logger.go
package logger

import (
	"context"
	"os"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/trace"
)

// Logger 是全局的基础 logger 实例。
// 所有业务日志都应该通过 Ctx(ctx) 获取带链路信息的 logger，
// 只有在没有 context 的场景（如 main 初始化）才直接使用它。
var Logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}).
	With().Timestamp().Caller().Logger()

// Init 根据服务名和日志级别重新配置全局 logger。
func Init(serviceName string) {
	level := zerolog.InfoLevel
	if lvl, err := zerolog.ParseLevel(os.Getenv("LOG_LEVEL")); err == nil && lvl != zerolog.NoLevel {
		level = lvl
	}
	Logger = zerolog.New(os.Stderr).Level(level).
		With().Timestamp().Str("service", serviceName).Logger()
}

// Ctx 返回一个附带了当前链路 trace_id/span_id 的 logger。
// 业务代码统一通过它打日志，保证日志和 Jaeger 链路可以互相检索。
func Ctx(ctx context.Context) *zerolog.Logger {
	spanCtx := trace.SpanContextFromContext(ctx)
	if !spanCtx.IsValid() {
		return &Logger
	}
	l := Logger.With().
		Str("trace_id", spanCtx.TraceID().String()).
		Str("span_id", spanCtx.SpanID().String()).
		Logger()
	return &l
}
