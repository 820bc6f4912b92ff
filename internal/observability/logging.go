package observability

import (
	"context"
	"log/slog"
	"os"
	"strings"

	"go.opentelemetry.io/otel/trace"

	"github.com/medplatform/orders/internal/domain"
)

// sensitiveSubstrings mirrors the realtime-messaging-platform reference's
// redaction table, extended with the PII fields §7 names explicitly.
var sensitiveSubstrings = []string{
	"otp", "password", "token", "secret", "pepper", "credential",
	"authorization", "bearer", "api_key", "apikey", "phone", "email",
}

// LogConfig controls the process logger, mirroring the ambient-stack
// section of SPEC_FULL.md.
type LogConfig struct {
	Level       string
	ServiceName string
	Environment string
}

// InitLogger builds a JSON slog.Logger with a ReplaceAttr redaction hook
// implementing §7's PII masking policy before any record reaches the sink,
// and installs it as the process default.
func InitLogger(cfg LogConfig) *slog.Logger {
	level := slog.LevelInfo
	switch strings.ToLower(cfg.Level) {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}

	handler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level:       level,
		ReplaceAttr: redactSecrets,
	})
	logger := slog.New(handler).With(
		slog.String("service", cfg.ServiceName),
		slog.String("env", cfg.Environment),
	)
	slog.SetDefault(logger)
	return logger
}

func redactSecrets(groups []string, a slog.Attr) slog.Attr {
	key := strings.ToLower(a.Key)
	for _, sub := range sensitiveSubstrings {
		if strings.Contains(key, sub) {
			if a.Value.Kind() == slog.KindString {
				a.Value = slog.StringValue(domain.Mask(a.Value.String()))
			}
			return a
		}
	}
	return a
}

type traceIDKey struct{}

// WithTraceID attaches the active span's trace id to ctx so
// LoggerFromContext can stamp log lines with it.
func WithTraceID(ctx context.Context) context.Context {
	span := trace.SpanContextFromContext(ctx)
	if !span.IsValid() {
		return ctx
	}
	return context.WithValue(ctx, traceIDKey{}, span.TraceID().String())
}

// LoggerFromContext returns the default logger annotated with the request's
// trace id, when present.
func LoggerFromContext(ctx context.Context) *slog.Logger {
	logger := slog.Default()
	if id, ok := ctx.Value(traceIDKey{}).(string); ok {
		return logger.With(slog.String("trace_id", id))
	}
	return logger
}
