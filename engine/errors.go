package engine

import (
	"errors"
	"fmt"
	"time"

	"webstress/browser"
	"webstress/models"
)

// ErrElementNotFound indicates no element matched a selector spec
// within the bounded wait.
type ErrElementNotFound struct {
	Spec    models.SelectorSpec
	Timeout time.Duration
	Err     error
}

func (e ErrElementNotFound) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("element not found: %s after %s: %v", e.Spec, e.Timeout, e.Err)
	}
	return fmt.Sprintf("element not found: %s after %s", e.Spec, e.Timeout)
}

func (e ErrElementNotFound) Unwrap() error {
	return e.Err
}

// ErrAmbiguousMatch indicates a composite or section-product selector
// matched more than one element and no disambiguation rule applies.
type ErrAmbiguousMatch struct {
	Spec    models.SelectorSpec
	Matches int
}

func (e ErrAmbiguousMatch) Error() string {
	return fmt.Sprintf("ambiguous match: %s matched %d elements", e.Spec, e.Matches)
}

// ErrActionTimeout indicates an element never became interactable
// within the action bound.
type ErrActionTimeout struct {
	Selector string
	Action   models.ActionKind
	Err      error
}

func (e ErrActionTimeout) Error() string {
	return fmt.Sprintf("action timeout: %s on %q: %v", e.Action, e.Selector, e.Err)
}

func (e ErrActionTimeout) Unwrap() error {
	return e.Err
}

// ErrControlNotFound indicates a resolved section exists but lacks the
// nested control an action needs. Kept distinct from ErrElementNotFound
// so diagnostics can separate "wrong product" from "product found but
// control missing".
type ErrControlNotFound struct {
	Section string
	Control string
}

func (e ErrControlNotFound) Error() string {
	return fmt.Sprintf("control not found: no %q inside section %q", e.Control, e.Section)
}

// ErrFatalSession indicates the shared page handle is no longer usable.
// It aborts the remaining campaign rather than a single iteration.
type ErrFatalSession struct {
	Err error
}

func (e ErrFatalSession) Error() string {
	return fmt.Sprintf("fatal session fault: %v", e.Err)
}

func (e ErrFatalSession) Unwrap() error {
	return e.Err
}

// IsFatal reports whether an error means the session itself is gone.
func IsFatal(err error) bool {
	if err == nil {
		return false
	}
	var fatal ErrFatalSession
	if errors.As(err, &fatal) {
		return true
	}
	return errors.Is(err, browser.ErrSessionClosed)
}

// ErrorKindLabel maps a step error to a stable label for results and
// metrics.
func ErrorKindLabel(err error) string {
	if err == nil {
		return "none"
	}
	var notFound ErrElementNotFound
	if errors.As(err, &notFound) {
		return "element_not_found"
	}
	var ambiguous ErrAmbiguousMatch
	if errors.As(err, &ambiguous) {
		return "ambiguous_match"
	}
	var timeout ErrActionTimeout
	if errors.As(err, &timeout) {
		return "action_timeout"
	}
	var control ErrControlNotFound
	if errors.As(err, &control) {
		return "control_not_found"
	}
	if IsFatal(err) {
		return "fatal_session"
	}
	return "other"
}
