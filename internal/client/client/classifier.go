package client

import (
	"context"
	"errors"
	"io"
	"net"
	"net/url"
	"syscall"
)

// ErrorClass tells the orchestrator what to do with a failed write.
type ErrorClass int

const (
	// ClassOther errors are returned to the caller as they are.
	ClassOther ErrorClass = iota
	// ClassConnectivity errors mean the server could not be reached; the
	// write is kept locally and queued.
	ClassConnectivity
	// ClassValidation errors mean the server refused the write.
	ClassValidation
)

func (c ErrorClass) String() string {
	switch c {
	case ClassConnectivity:
		return "CONNECTIVITY"
	case ClassValidation:
		return "VALIDATION"
	default:
		return "OTHER"
	}
}

type Classifier interface {
	Classify(err error) ErrorClass
}

// DefaultClassifier understands the errors produced by HTTPClient and the
// standard network stack.
type DefaultClassifier struct{}

func (DefaultClassifier) Classify(err error) ErrorClass {
	if err == nil {
		return ClassOther
	}

	switch {
	case errors.Is(err, ErrValidation), errors.Is(err, ErrNotFound), errors.Is(err, ErrConflict):
		return ClassValidation
	case errors.Is(err, ErrUnavailable),
		errors.Is(err, syscall.ECONNREFUSED),
		errors.Is(err, syscall.ECONNRESET),
		errors.Is(err, io.ErrUnexpectedEOF):
		return ClassConnectivity
	case errors.Is(err, ErrUnauthorized),
		errors.Is(err, context.Canceled),
		errors.Is(err, context.DeadlineExceeded):
		return ClassOther
	}

	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		return ClassConnectivity
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return ClassConnectivity
	}
	return ClassOther
}
