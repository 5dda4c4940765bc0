package common

import "fmt"

// ProviderError is a failed or unusable platform call. Retryable: the queue
// layer decides whether the owning item gets another attempt.
type ProviderError struct {
	Platform   string
	StatusCode int
	Message    string
	Err        error
}

func (e *ProviderError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("provider %s returned status %d: %s", e.Platform, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("provider %s failed: %s", e.Platform, e.Message)
}

func (e *ProviderError) Unwrap() error {
	return e.Err
}

// ConfigurationError is an unknown platform or missing client/competitor
// setup. Fatal to the run, never retried at the item level.
type ConfigurationError struct {
	Message string
}

func (e *ConfigurationError) Error() string {
	return "configuration error: " + e.Message
}
