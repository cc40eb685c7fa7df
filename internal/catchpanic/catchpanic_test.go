package catchpanic

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCatchError(t *testing.T) {
	a := assert.New(t)

	sentinel := fmt.Errorf("test_error")

	err := Catch(func() { panic(sentinel) })
	a.Error(err)
	a.ErrorContains(err, "test_error")
	a.ErrorIs(err, sentinel)

	var pe *PanicError
	if a.True(errors.As(err, &pe)) {
		a.NotEmpty(pe.Frames())
	}
}

func TestCatchString(t *testing.T) {
	a := assert.New(t)

	err := Catch(func() { panic("test_error") })
	a.Error(err)
	a.ErrorContains(err, "test_error")
}

func TestCatchNoPanic(t *testing.T) {
	a := assert.New(t)

	a.NoError(Catch(func() {}))
}

func TestCatchErr0(t *testing.T) {
	a := assert.New(t)

	{
		err := CatchErr0(func() error { return fmt.Errorf("test_error") })
		a.Error(err)
		a.ErrorContains(err, "test_error")
	}

	{
		err := CatchErr0(func() error { panic(fmt.Errorf("test_error")) })
		a.Error(err)
		a.ErrorContains(err, "test_error")
	}

	{
		err := CatchErr0(func() error { panic("test_error") })
		a.Error(err)
		a.ErrorContains(err, "test_error")
	}
}

func TestCatchErr1(t *testing.T) {
	a := assert.New(t)

	{
		v, err := CatchErr1(func() (string, error) { return "test_result", nil })
		a.Equal("test_result", v)
		a.NoError(err)
	}

	{
		v, err := CatchErr1(func() (string, error) { return "test_result", fmt.Errorf("test_error") })
		a.Equal("test_result", v)
		a.ErrorContains(err, "test_error")
	}

	{
		v, err := CatchErr1(func() (string, error) { panic(fmt.Errorf("test_error")) })
		a.Equal("", v)
		a.ErrorContains(err, "test_error")
	}

	{
		v, err := CatchErr1(func() (string, error) { panic("test_error") })
		a.Equal("", v)
		a.ErrorContains(err, "test_error")
	}
}
