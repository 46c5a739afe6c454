package types

import (
	"errors"
	"fmt"
)

// LLMErrorKind classifies LLM client failures after retries are exhausted.
type LLMErrorKind string

const (
	LLMTimeout         LLMErrorKind = "timeout"
	LLMBadResponse     LLMErrorKind = "bad_response"
	LLMUpstream5xx     LLMErrorKind = "upstream_5xx"
	LLMSchemaViolation LLMErrorKind = "schema_violation"
	LLMCancelled       LLMErrorKind = "cancelled"
)

// LLMError wraps a provider failure with its kind and the provider name.
// Permanent marks failures retrying cannot fix, such as 4xx statuses.
type LLMError struct {
	Kind      LLMErrorKind
	Provider  string
	Permanent bool
	Err       error
}

func (e *LLMError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("llm %s: %s: %v", e.Provider, e.Kind, e.Err)
	}
	return fmt.Sprintf("llm %s: %s", e.Provider, e.Kind)
}

func (e *LLMError) Unwrap() error { return e.Err }

// PoiValidationError means the places API could not confirm a candidate POI.
// It is always caught at the node boundary; the hit is skipped, never fatal.
type PoiValidationError struct {
	Name string
	City string
}

func (e *PoiValidationError) Error() string {
	return fmt.Sprintf("poi validation failed for %q in %q", e.Name, e.City)
}

// ErrCoreUnavailable is returned when the LLM is unreachable for both keyword
// extraction and planning, the only condition under which an orchestrator
// fails as a whole.
var ErrCoreUnavailable = errors.New("core llm unavailable after retries")
