package utils

import (
	"errors"
	"fmt"
)

// Strategy is one way of carrying out an action, e.g. a native click
// versus a JavaScript click.
type Strategy struct {
	Name string
	Run  func() error
}

// Fallback tries each strategy in order and stops at the first that
// succeeds, returning its name. Strategies are attempted once each.
func Fallback(operation string, logger *Logger, strategies ...Strategy) (string, error) {
	if len(strategies) == 0 {
		return "", fmt.Errorf("%s: no strategies given", operation)
	}

	errs := make([]error, 0, len(strategies))
	for _, s := range strategies {
		err := s.Run()
		if err == nil {
			if logger != nil && len(errs) > 0 {
				logger.Debug("[fallback] %s succeeded via %s after %d failed attempt(s)",
					operation, s.Name, len(errs))
			}
			return s.Name, nil
		}
		if logger != nil {
			logger.Debug("[fallback] %s: %s failed: %v", operation, s.Name, err)
		}
		errs = append(errs, fmt.Errorf("%s: %w", s.Name, err))
	}

	return "", fmt.Errorf("%s: all %d strategies failed: %w", operation, len(strategies), errors.Join(errs...))
}
