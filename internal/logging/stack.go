package logging

import (
	"fmt"
	"runtime"
	"strings"

	"github.com/sirupsen/logrus"
)

func GetStack(depth, skip int) []runtime.Frame {
	pc := make([]uintptr, depth)

	n := runtime.Callers(0, pc)
	if n == 0 {
		return []runtime.Frame{}
	}

	pc = pc[:n]
	frames := runtime.CallersFrames(pc)

	// skip this call and the one to runtime.Callers
	skip += 2

	var a []runtime.Frame

	for i := 0; ; i++ {
		frame, more := frames.Next()

		if i >= skip {
			a = append(a, frame)
		}

		if !more {
			break
		}
	}

	return a
}

func FormatStackFrame(f runtime.Frame) string {
	return fmt.Sprintf("%s:%d: %s", f.File, f.Line, f.Function)
}

type FilterFunc func(index int, frame runtime.Frame) bool

func RemovePathsContaining(values []string) FilterFunc {
	return func(index int, frame runtime.Frame) bool {
		for _, value := range values {
			if strings.Contains(frame.File, value) {
				return false
			}
		}

		return true
	}
}

func RemoveFunctionsContaining(values []string) FilterFunc {
	return func(index int, frame runtime.Frame) bool {
		for _, value := range values {
			if strings.Contains(frame.Function, value) {
				return false
			}
		}

		return true
	}
}

func CombineFilters(a ...FilterFunc) FilterFunc {
	return func(index int, frame runtime.Frame) bool {
		for _, fn := range a {
			if !fn(index, frame) {
				return false
			}
		}

		return true
	}
}

var (
	DefaultLevels = []logrus.Level{logrus.DebugLevel, logrus.TraceLevel}
	DefaultFilter = CombineFilters(
		RemovePathsContaining([]string{"github.com/sirupsen/logrus"}),
		RemoveFunctionsContaining([]string{"runtime.", "internal/logging.(*StackHook)", "internal/logging.GetStack"}),
	)
)

// StackHook attaches the caller's stack to entries at the configured levels,
// one field per frame as stack.NN.
type StackHook struct {
	levels []logrus.Level
	filter FilterFunc
	depth  int
}

func NewStackHook(levels []logrus.Level, filter FilterFunc) *StackHook {
	if levels == nil {
		levels = DefaultLevels
	}

	if filter == nil {
		filter = DefaultFilter
	}

	return &StackHook{levels: levels, filter: filter, depth: 25}
}

func (h *StackHook) Levels() []logrus.Level { return h.levels }

func (h *StackHook) Fire(e *logrus.Entry) error {
	i := 0

	for index, frame := range GetStack(h.depth, 0) {
		if !h.filter(index, frame) {
			continue
		}

		e.Data[fmt.Sprintf("stack.%02d", i)] = FormatStackFrame(frame)
		i++
	}

	return nil
}
