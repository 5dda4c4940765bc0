// internal/analysis/errors.go
package analysis

import "fmt"

// ExtractionError marks a response body that could not be analyzed. It is
// non-retryable: callers record it and treat the response as having zero
// citations rather than failing the item.
type ExtractionError struct {
	Reason string
	Err    error
}

func (e *ExtractionError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("extraction failed: %s: %v", e.Reason, e.Err)
	}
	return fmt.Sprintf("extraction failed: %s", e.Reason)
}

func (e *ExtractionError) Unwrap() error {
	return e.Err
}
