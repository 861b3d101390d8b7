// Package errs defines the error taxonomy shared by every composition component.
//
// Each failure carries a Kind so callers can branch with errors.Is against the
// exported sentinels without parsing messages:
//
//	if errors.Is(err, errs.ErrWrongImageCount) { ... }
//
// InvalidAspectRatio and WrongImageCount are refinements of InvalidInput, so
// errors.Is(err, errs.ErrInvalidInput) also matches them.
package errs

import (
	"errors"
	"fmt"
)

// Kind classifies a composition failure.
type Kind string

const (
	KindInvalidInput        Kind = "invalid_input"
	KindInvalidAspectRatio  Kind = "invalid_aspect_ratio"
	KindWrongImageCount     Kind = "wrong_image_count"
	KindInvalidFrameAsset   Kind = "invalid_frame_asset"
	KindInvalidCollageAsset Kind = "invalid_collage_asset"
	KindMattingFailure      Kind = "matting_failure"
	KindUnknownStyle        Kind = "unknown_style"
)

// parent returns the broader kind a refined kind also satisfies.
func (k Kind) parent() Kind {
	switch k {
	case KindInvalidAspectRatio, KindWrongImageCount:
		return KindInvalidInput
	}
	return ""
}

// Sentinels for errors.Is checks.
var (
	ErrInvalidInput        = &Error{Kind: KindInvalidInput}
	ErrInvalidAspectRatio  = &Error{Kind: KindInvalidAspectRatio}
	ErrWrongImageCount     = &Error{Kind: KindWrongImageCount}
	ErrInvalidFrameAsset   = &Error{Kind: KindInvalidFrameAsset}
	ErrInvalidCollageAsset = &Error{Kind: KindInvalidCollageAsset}
	ErrMattingFailure      = &Error{Kind: KindMattingFailure}
	ErrUnknownStyle        = &Error{Kind: KindUnknownStyle}
)

// Error is a classified composition error.
type Error struct {
	Kind    Kind
	Op      string // component operation, e.g. "cropper.Crop"
	Key     string // batch key or asset name, optional
	Message string
	Err     error
}

func (e *Error) Error() string {
	msg := string(e.Kind)
	if e.Message != "" {
		msg = e.Message
	}
	if e.Key != "" {
		msg = fmt.Sprintf("%s [%s]", msg, e.Key)
	}
	if e.Op != "" {
		msg = e.Op + ": " + msg
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches by kind, so any *Error of the same kind (or a refinement of it)
// satisfies errors.Is against the sentinels.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Kind == t.Kind || e.Kind.parent() == t.Kind
}

// WithKey returns a copy of e tagged with a batch key.
func (e *Error) WithKey(key string) *Error {
	cp := *e
	cp.Key = key
	return &cp
}

// New creates an error of the given kind.
func New(kind Kind, op, format string, args ...any) *Error {
	return &Error{Kind: kind, Op: op, Message: fmt.Sprintf(format, args...)}
}

// Wrap classifies err under kind.
func Wrap(kind Kind, op string, err error, format string, args ...any) *Error {
	return &Error{Kind: kind, Op: op, Message: fmt.Sprintf(format, args...), Err: err}
}

// InvalidInput is a shorthand for the most common kind.
func InvalidInput(op, format string, args ...any) *Error {
	return New(KindInvalidInput, op, format, args...)
}

// KindOf reports the kind of the first *Error in err's chain, or "" if none.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}
