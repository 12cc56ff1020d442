package observability

import (
	"context"
	"os"
	"sort"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/vinkcol/novacore-ecommerce-template-sub000/internal/platform/requestctx"
)

const (
	defaultLogLevel = "info"
	logLevelEnv     = "API_LOG_LEVEL"
)

// EventLogger is the structured logging hook accepted by services.
type EventLogger func(ctx context.Context, event string, fields map[string]any)

// NewLogger constructs a zap logger emitting Cloud Logging compatible JSON.
func NewLogger() (*zap.Logger, error) {
	level := zap.NewAtomicLevel()
	raw := strings.ToLower(strings.TrimSpace(os.Getenv(logLevelEnv)))
	if err := level.UnmarshalText([]byte(raw)); err != nil || raw == "" {
		_ = level.UnmarshalText([]byte(defaultLogLevel))
	}

	encoderCfg := zapcore.EncoderConfig{
		MessageKey: "message",
		TimeKey:    "timestamp",
		LevelKey:   "severity",
		EncodeTime: zapcore.RFC3339NanoTimeEncoder,
		EncodeLevel: func(level zapcore.Level, enc zapcore.PrimitiveArrayEncoder) {
			enc.AppendString(strings.ToUpper(level.String()))
		},
		EncodeDuration: zapcore.MillisDurationEncoder,
		CallerKey:      "caller",
		EncodeCaller:   zapcore.ShortCallerEncoder,
		StacktraceKey:  "stacktrace",
	}

	cfg := zap.Config{
		Level:             level,
		Encoding:          "json",
		EncoderConfig:     encoderCfg,
		OutputPaths:       []string{"stdout"},
		ErrorOutputPaths:  []string{"stderr"},
		DisableStacktrace: true,
	}

	return cfg.Build()
}

// FromContext retrieves the request logger, defaulting to a no-op logger.
func FromContext(ctx context.Context) *zap.Logger {
	return requestctx.Logger(ctx)
}

// NewEventLogger adapts zap to the service logging hook. The request scoped
// logger is preferred so events carry request and session fields.
func NewEventLogger(base *zap.Logger) EventLogger {
	if base == nil {
		base = zap.NewNop()
	}
	return func(ctx context.Context, event string, fields map[string]any) {
		logger := base
		if ctx != nil {
			if scoped := requestctx.Logger(ctx); scoped != nil && scoped.Core().Enabled(zapcore.ErrorLevel) {
				logger = scoped
			}
		}
		zapFields := make([]zap.Field, 0, len(fields)+1)
		zapFields = append(zapFields, zap.String("event", event))
		keys := make([]string, 0, len(fields))
		for key := range fields {
			keys = append(keys, key)
		}
		sort.Strings(keys)
		for _, key := range keys {
			zapFields = append(zapFields, fieldFor(key, fields[key]))
		}
		logger.Log(levelForEvent(event), event, zapFields...)
	}
}

func fieldFor(key string, value any) zap.Field {
	if err, ok := value.(error); ok {
		return zap.NamedError(key, err)
	}
	return zap.Any(key, value)
}

func levelForEvent(event string) zapcore.Level {
	switch {
	case strings.HasSuffix(event, ".failed"), strings.HasSuffix(event, "_failed"):
		return zapcore.ErrorLevel
	case strings.HasSuffix(event, ".fallback"), strings.Contains(event, ".retry"):
		return zapcore.WarnLevel
	default:
		return zapcore.InfoLevel
	}
}
