package models

import (
	"errors"
	"fmt"
)

type ErrorKind int

const (
	// ErrTransient: сеть, таймауты, 5xx. Следующий тик повторит сам.
	ErrTransient ErrorKind = iota
	// ErrFatal: нарушение контракта (кривой прогноз, неположительные входы сайзера).
	ErrFatal
)

func (k ErrorKind) String() string {
	if k == ErrFatal {
		return "fatal"
	}
	return "transient"
}

// CycleError: ошибка цикла с классом и операцией, на которой упали.
type CycleError struct {
	Kind ErrorKind
	Op   string
	Err  error
}

func (e *CycleError) Error() string {
	return fmt.Sprintf("%s: %s: %v", e.Kind, e.Op, e.Err)
}

func (e *CycleError) Unwrap() error { return e.Err }

func Transient(op string, err error) error {
	if err == nil {
		return nil
	}
	return &CycleError{Kind: ErrTransient, Op: op, Err: err}
}

func Fatal(op string, err error) error {
	if err == nil {
		return nil
	}
	return &CycleError{Kind: ErrFatal, Op: op, Err: err}
}

// KindOf: неизвестные ошибки считаются транзиентными.
func KindOf(err error) ErrorKind {
	var ce *CycleError
	if errors.As(err, &ce) {
		return ce.Kind
	}
	return ErrTransient
}

func IsFatal(err error) bool {
	return err != nil && KindOf(err) == ErrFatal
}
