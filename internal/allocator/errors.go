package allocator

import "fmt"

// ConfigurationError reports invalid input detected before the solver runs.
// It is never retried; callers surface the message verbatim.
type ConfigurationError struct {
	Field  string
	Reason string
}

func (e *ConfigurationError) Error() string {
	if e.Field == "" {
		return e.Reason
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Reason)
}

func configErr(field, format string, args ...any) error {
	return &ConfigurationError{Field: field, Reason: fmt.Sprintf(format, args...)}
}

// SolverError reports a solve that terminated without an optimal allocation.
// An infeasible model is a valid, reportable outcome rather than a bug; callers
// should suggest relaxing tolerance or target proportions, not retry.
type SolverError struct {
	Status Status
	Reason string
}

func (e *SolverError) Error() string {
	return fmt.Sprintf("solver finished with status %s: %s", e.Status, e.Reason)
}
