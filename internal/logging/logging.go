package logging

import (
	"io"
	"os"

	"github.com/sirupsen/logrus"
)

type Options struct {
	Level       logrus.Level
	StackLevels []logrus.Level
	JSON        bool
	Output      io.Writer
}

// New builds the process logger. The entry point owns the result and passes it
// down through ctxlogger; nothing here touches the logrus standard logger.
func New(opts Options) *logrus.Logger {
	l := logrus.New()

	l.SetLevel(opts.Level)

	if opts.Output != nil {
		l.SetOutput(opts.Output)
	} else {
		l.SetOutput(os.Stderr)
	}

	if opts.JSON {
		l.SetFormatter(&logrus.JSONFormatter{})
	}

	if len(opts.StackLevels) > 0 {
		l.AddHook(NewStackHook(opts.StackLevels, nil))
	}

	return l
}
