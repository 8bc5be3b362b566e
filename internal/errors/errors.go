// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

// Package errors provides classified errors for scanwall.
//
// Every error carries a Kind so callers at the poll-cycle boundary can tell
// a malformed kernel table (KindValidation) from a missing tool
// (KindUnavailable) without string matching.
package errors

import (
	"errors"
	"fmt"

	"github.com/hashicorp/go-multierror"
)

// Kind defines the category of error.
type Kind int

const (
	KindUnknown Kind = iota
	KindInternal
	KindValidation
	KindNotFound
	KindPermission
	KindConflict
	KindUnavailable
	KindTimeout
)

func (k Kind) String() string {
	switch k {
	case KindInternal:
		return "internal"
	case KindValidation:
		return "validation"
	case KindNotFound:
		return "not_found"
	case KindPermission:
		return "permission"
	case KindConflict:
		return "conflict"
	case KindUnavailable:
		return "unavailable"
	case KindTimeout:
		return "timeout"
	default:
		return "unknown"
	}
}

// Error is a classified error with optional structured attributes.
type Error struct {
	Kind       Kind
	Message    string
	Underlying error
	Attributes map[string]any

	// origin is the *Error this one was copied from by Attr.
	origin error
}

func (e *Error) Error() string {
	if e.Underlying != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Underlying)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Underlying
}

// Is matches the error an attributed copy was made from.
func (e *Error) Is(target error) bool {
	return e.origin != nil && errors.Is(e.origin, target)
}

// New creates a new Error of the specified kind.
func New(kind Kind, msg string) error {
	return &Error{Kind: kind, Message: msg}
}

// Errorf creates a new Error of the specified kind with a formatted message.
func Errorf(kind Kind, format string, args ...any) error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Wrap wraps err as a new Error of the specified kind. A nil err stays nil.
func Wrap(err error, kind Kind, msg string) error {
	if err == nil {
		return nil
	}
	return &Error{Kind: kind, Message: msg, Underlying: err}
}

// Wrapf is Wrap with a formatted message.
func Wrapf(err error, kind Kind, format string, args ...any) error {
	if err == nil {
		return nil
	}
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...), Underlying: err}
}

// Attr returns err with key=val attached.
//
// The outermost *Error is copied, never mutated, so attaching attributes to
// a wrapped package-level sentinel leaves the sentinel untouched. Errors that
// are not *Error are wrapped, keeping the kind of any *Error further down.
func Attr(err error, key string, val any) error {
	if err == nil {
		return nil
	}

	var out *Error
	if e, ok := err.(*Error); ok {
		cp := *e
		cp.origin = e
		out = &cp
	} else {
		out = &Error{Kind: GetKind(err), Message: err.Error(), Underlying: err}
		if out.Kind == KindUnknown {
			out.Kind = KindInternal
		}
	}

	attrs := make(map[string]any, len(out.Attributes)+1)
	for k, v := range out.Attributes {
		attrs[k] = v
	}
	attrs[key] = val
	out.Attributes = attrs
	return out
}

// GetKind returns the Kind of the first *Error in the chain, or KindUnknown.
func GetKind(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

// GetAttributes collects attributes from every *Error in the chain.
// Outer values win over inner ones with the same key.
func GetAttributes(err error) map[string]any {
	attrs := make(map[string]any)
	for cur := err; cur != nil; {
		var e *Error
		if !errors.As(cur, &e) {
			break
		}
		for k, v := range e.Attributes {
			if _, ok := attrs[k]; !ok {
				attrs[k] = v
			}
		}
		cur = e.Underlying
	}
	return attrs
}

// Append collects errs into a single multi-error, skipping nils.
// It returns nil when nothing was collected.
func Append(err error, errs ...error) error {
	var merr *multierror.Error
	if err != nil {
		merr = multierror.Append(merr, err)
	}
	for _, e := range errs {
		if e != nil {
			merr = multierror.Append(merr, e)
		}
	}
	return merr.ErrorOrNil()
}

// Is reports whether any error in err's chain matches target.
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As finds the first error in err's chain that matches target.
func As(err error, target any) bool {
	return errors.As(err, target)
}

// Unwrap returns the result of calling the Unwrap method on err.
func Unwrap(err error) error {
	return errors.Unwrap(err)
}
