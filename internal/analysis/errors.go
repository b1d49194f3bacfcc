package analysis

import (
	"errors"
	"fmt"
)

// Outcome tags how an extraction result was produced.
type Outcome string

const (
	// OutcomeOK means the model response decoded and validated.
	OutcomeOK Outcome = "ok"
	// OutcomeFallback means the canonical fallback record was used.
	OutcomeFallback Outcome = "fallback"
)

// ErrEmptyResponse is returned when the model answered with no text.
var ErrEmptyResponse = errors.New("empty model response")

// DecodeError reports why a model response could not be turned into a record.
type DecodeError struct {
	Stage string // "decode", "schema" or "bind"
	Cause error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("failed to %s model response: %v", e.Stage, e.Cause)
}

func (e *DecodeError) Unwrap() error {
	return e.Cause
}

// ErrNoSections is returned when a model response holds no resume section.
var ErrNoSections = errors.New("response has no resume sections")

// ErrNoModel is returned when the client was built without a model client.
var ErrNoModel = errors.New("no language model configured")
