package autosnipe

import (
	"errors"
	"fmt"
)

var ErrConfigNotFound = errors.New("autosnipe configuration not found")

// ValidationError reports a rejected configuration field
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}
