package ctxlogger

import (
	"context"
	"io"

	"github.com/sirupsen/logrus"
)

// context registration

var loggerKey int

func WithLogger(ctx context.Context, l logrus.FieldLogger) context.Context {
	return context.WithValue(ctx, &loggerKey, l)
}

// GetLogger returns the logger registered on ctx. Without one, log output is
// discarded rather than sent to the logrus standard logger.
func GetLogger(ctx context.Context) logrus.FieldLogger {
	if v := ctx.Value(&loggerKey); v != nil {
		return v.(logrus.FieldLogger)
	}

	return discardLogger
}

var discardLogger = newDiscardLogger()

func newDiscardLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	l.SetLevel(logrus.PanicLevel)
	return l
}

// WithFields is shorthand for deriving a child logger and registering it in
// one step.
func WithFields(ctx context.Context, fields logrus.Fields) (context.Context, logrus.FieldLogger) {
	l := GetLogger(ctx).WithFields(fields)
	return WithLogger(ctx, l), l
}
