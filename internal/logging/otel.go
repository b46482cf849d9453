package logging

import (
	"go.opentelemetry.io/contrib/bridges/otelzap"
	"go.opentelemetry.io/otel/log"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// WithOTel returns a logger that also emits every entry as an OpenTelemetry
// log record through lp. A nil provider returns l unchanged.
func (l *Logger) WithOTel(name string, lp log.LoggerProvider) *Logger {
	if lp == nil {
		return l
	}
	otelCore := otelzap.NewCore(name, otelzap.WithLoggerProvider(lp))
	return &Logger{
		zap: l.zap.WithOptions(zap.WrapCore(func(c zapcore.Core) zapcore.Core {
			return zapcore.NewTee(c, otelCore)
		})),
		config: l.config,
	}
}
