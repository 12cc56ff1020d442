package redis

import (
	"context"
	"errors"
	"fmt"
	"net"

	goredis "github.com/redis/go-redis/v9"

	"github.com/vinkcol/novacore-ecommerce-template-sub000/internal/repositories"
)

// Error implements repositories.RepositoryError for Redis backed repositories.
type Error struct {
	op          string
	err         error
	unavailable bool
}

var _ repositories.RepositoryError = (*Error)(nil)

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	return fmt.Sprintf("%s: %v", e.op, e.err)
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.err
}

// IsNotFound is always false: missing keys are reported as empty values.
func (e *Error) IsNotFound() bool { return false }

func (e *Error) IsConflict() bool { return false }

func (e *Error) IsUnavailable() bool { return e != nil && e.unavailable }

// wrapError classifies Redis failures. Context errors pass through unchanged.
func wrapError(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	var netErr net.Error
	unavailable := errors.As(err, &netErr) || errors.Is(err, net.ErrClosed) || errors.Is(err, goredis.ErrClosed)
	return &Error{op: op, err: err, unavailable: unavailable}
}
