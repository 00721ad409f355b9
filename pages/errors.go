package pages

import (
	"context"
	"errors"
	"fmt"
	"time"
)

var (
	// ErrTimeout is the single failure kind of page steps: an expected
	// element or page state did not materialise within the wait window.
	ErrTimeout = errors.New("timed out waiting for page element")

	// ErrNoMatchingRow means no timetable row matched the requested train.
	ErrNoMatchingRow = errors.New("no matching train row")

	// ErrNoTransition means the continue button never moved the flow on.
	ErrNoTransition = errors.New("page did not transition")
)

// WaitError describes a wait that ran out of time.
type WaitError struct {
	Target  string
	Query   string
	Timeout time.Duration
	Err     error
}

func (e *WaitError) Error() string {
	msg := fmt.Sprintf("waiting for %s", e.Target)
	if e.Query != "" {
		msg += fmt.Sprintf(" (%s)", e.Query)
	}
	msg += fmt.Sprintf(": timed out after %v", e.Timeout)
	if e.Err != nil && !errors.Is(e.Err, context.DeadlineExceeded) {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *WaitError) Unwrap() []error {
	if e.Err == nil {
		return []error{ErrTimeout}
	}
	return []error{ErrTimeout, e.Err}
}

// IsTimeout reports whether err came from an element wait.
func IsTimeout(err error) bool {
	return errors.Is(err, ErrTimeout)
}

// waitFailure converts a chromedp error into a WaitError when it was caused
// by the deadline; other errors are wrapped as is.
func waitFailure(target, query string, timeout time.Duration, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return &WaitError{Target: target, Query: query, Timeout: timeout, Err: err}
	}
	return fmt.Errorf("%s: %w", target, err)
}
