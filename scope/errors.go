package scope

import "fmt"

// ValidationError reports a caller-supplied parameter outside the documented
// legal set. It is raised before any command reaches the instrument, so a
// failed setter leaves instrument state untouched.
type ValidationError struct {
	Param string
	Value any
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("scope: invalid %s: %v", e.Param, e.Value)
}

func invalid(param string, value any) error {
	return &ValidationError{Param: param, Value: value}
}
