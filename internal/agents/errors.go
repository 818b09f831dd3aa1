package agents

import (
	"fmt"
	"strings"
)

// ValidationError reports a request that violates a hard limit before any
// provider call is made.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed: %s", e.Message)
}

// ProviderCallError is the single error shape callers see from Ask. It
// carries the original error's type name and message so chat failures
// stay diagnosable without leaking provider internals into every caller.
type ProviderCallError struct {
	Kind    string
	Message string
}

func (e *ProviderCallError) Error() string {
	return fmt.Sprintf("an error occurred while processing your request: %s: %s", e.Kind, e.Message)
}

func wrapProviderError(err error) *ProviderCallError {
	kind := strings.TrimPrefix(fmt.Sprintf("%T", err), "*")
	return &ProviderCallError{Kind: kind, Message: err.Error()}
}

// NotRegisteredError reports a lookup for an unknown stage. The listed
// names are surfaced verbatim so clients can discover valid stages.
type NotRegisteredError struct {
	Name      string
	Available []string
}

func (e *NotRegisteredError) Error() string {
	return fmt.Sprintf("invalid agent type: %s. Available types: [%s]", e.Name, strings.Join(e.Available, ", "))
}
