package catchpanic

import (
	"fmt"
	"runtime"

	"fknsrs.biz/p/ytmetrics/internal/logging"
)

// PanicError carries a recovered panic value and the stack it was raised
// from.
type PanicError struct {
	Value interface{}
	Stack []runtime.Frame
}

func (e *PanicError) Error() string {
	if err, ok := e.Value.(error); ok {
		return fmt.Sprintf("catchpanic.Catch: %s", err.Error())
	}

	return fmt.Sprintf("catchpanic.Catch: %v", e.Value)
}

func (e *PanicError) Unwrap() error {
	if err, ok := e.Value.(error); ok {
		return err
	}

	return nil
}

// Frames renders the captured stack one frame per line.
func (e *PanicError) Frames() []string {
	r := make([]string, len(e.Stack))
	for i, f := range e.Stack {
		r[i] = logging.FormatStackFrame(f)
	}
	return r
}

func Catch(fn func()) (err error) {
	defer func() {
		if ex := recover(); ex != nil {
			err = &PanicError{Value: ex, Stack: logging.GetStack(32, 2)}
		}
	}()

	fn()

	return
}

func CatchErr0(fn func() error) error {
	var err error

	if err1 := Catch(func() { err = fn() }); err1 != nil {
		return err1
	}

	return err
}

func CatchErr1[T any](fn func() (T, error)) (T, error) {
	var res T
	var err error

	if err1 := Catch(func() { res, err = fn() }); err1 != nil {
		err = err1
	}

	return res, err
}
