package updates_api

import (
	"errors"
	"fmt"
)

// Kind classifies a failure of the update pipeline
type Kind int

const (
	KindUnknown Kind = iota
	// KindNetwork covers unreachable hosts, non-success statuses and short or garbled responses
	KindNetwork
	// KindIO covers filesystem access, permission and space problems
	KindIO
	// KindDecode covers malformed compressed or archived input
	KindDecode
	// KindConfig means a decoder failed its self-test or the configuration is unusable
	KindConfig
)

var (
	ErrNetwork = errors.New("network error")
	ErrIO      = errors.New("io error")
	ErrDecode  = errors.New("decode error")
	ErrConfig  = errors.New("config error")
)

func (k Kind) String() string {
	switch k {
	case KindNetwork:
		return "network"
	case KindIO:
		return "io"
	case KindDecode:
		return "decode"
	case KindConfig:
		return "config"
	default:
		return "unknown"
	}
}

func (k Kind) sentinel() error {
	switch k {
	case KindNetwork:
		return ErrNetwork
	case KindIO:
		return ErrIO
	case KindDecode:
		return ErrDecode
	case KindConfig:
		return ErrConfig
	default:
		return nil
	}
}

// Error is a classified pipeline failure. Op names the step that failed,
// Target is the URL or path it was working on.
type Error struct {
	Kind   Kind
	Op     string
	Target string
	Err    error
}

func (e *Error) Error() string {
	if e.Target == "" {
		return fmt.Sprintf("%s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("%s: %v for %s", e.Op, e.Err, e.Target)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is lets errors.Is match an *Error against the kind sentinels.
func (e *Error) Is(target error) bool {
	s := e.Kind.sentinel()
	return s != nil && s == target
}

func newError(kind Kind, op, target string, err error) error {
	if err == nil {
		err = errors.New(kind.String() + " failure")
	}
	return &Error{Kind: kind, Op: op, Target: target, Err: err}
}

func NetworkError(op, target string, err error) error {
	return newError(KindNetwork, op, target, err)
}

func IOError(op, target string, err error) error {
	return newError(KindIO, op, target, err)
}

func DecodeError(op, target string, err error) error {
	return newError(KindDecode, op, target, err)
}

func ConfigError(op, target string, err error) error {
	return newError(KindConfig, op, target, err)
}

// KindOf returns the kind of the outermost classified error in the chain.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}
