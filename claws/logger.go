package claws

import (
	"fmt"

	"github.com/aws/smithy-go/logging"
	"go.uber.org/zap"
)

// Logger adapts zap to the logging interface of the AWS SDK.
type Logger struct{ logs *zap.Logger }

// NewLogger inits the logger.
func NewLogger(logs *zap.Logger) *Logger {
	return &Logger{logs: logs.WithOptions(zap.AddCallerSkip(1))}
}

// Logf implements logging.Logger.
func (l Logger) Logf(classification logging.Classification, format string, v ...any) {
	switch classification {
	case logging.Warn:
		l.logs.Warn(fmt.Sprintf(format, v...))
	case logging.Debug:
		l.logs.Debug(fmt.Sprintf(format, v...))
	default:
		l.logs.Info(fmt.Sprintf(format, v...))
	}
}
