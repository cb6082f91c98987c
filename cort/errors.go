package cort

import "fmt"

// CortError is the base error type for all engine errors
type CortError struct {
	Message string
	Cause   error
}

func (e *CortError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *CortError) Unwrap() error {
	return e.Cause
}

// CallError is returned by backend adapters when a chat-completion call fails
// at the network, auth, or decoding level. The thinking loop never sees it:
// the session converts it into sentinel text at the collaborator boundary.
type CallError struct {
	Provider   string
	StatusCode int
	Response   string
	*CortError
}

func NewCallError(provider string, statusCode int, response string) *CallError {
	msg := fmt.Sprintf("%s request failed", provider)
	if statusCode > 0 {
		msg = fmt.Sprintf("%s request failed (%d): %s", provider, statusCode, response)
	} else if response != "" {
		msg = fmt.Sprintf("%s request failed: %s", provider, response)
	}
	return &CallError{
		Provider:   provider,
		StatusCode: statusCode,
		Response:   response,
		CortError:  &CortError{Message: msg},
	}
}

// WrapCallError attaches a cause to a CallError for transport-level failures
// that never produced an HTTP status.
func WrapCallError(provider string, cause error) *CallError {
	return &CallError{
		Provider: provider,
		CortError: &CortError{
			Message: fmt.Sprintf("%s request failed", provider),
			Cause:   cause,
		},
	}
}

// ConfigError is fatal at startup: a missing credential or an unusable
// configuration value. It is reported to the user before any turn begins.
type ConfigError struct {
	*CortError
}

func NewConfigError(format string, args ...interface{}) *ConfigError {
	return &ConfigError{
		CortError: &CortError{Message: fmt.Sprintf(format, args...)},
	}
}
