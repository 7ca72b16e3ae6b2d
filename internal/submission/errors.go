package submission

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

// Sentinel errors of the submission engine. Handlers translate these into
// HTTP status codes; everything else is treated as a server error.
var (
	// ErrUnsupportedType is returned for an unknown submission type key.
	ErrUnsupportedType = errors.New("unsupported submission type")

	// ErrForbidden is returned when the actor may not create or act.
	ErrForbidden = errors.New("forbidden")

	// ErrNotFound is returned when a submission does not exist or the actor
	// has no visibility into it. Both cases share one error deliberately so
	// existence is not leaked to unauthorized viewers.
	ErrNotFound = errors.New("submission not found")

	// ErrTerminal is returned for an action on a non-PENDING submission.
	ErrTerminal = errors.New("submission is in a terminal status")

	// ErrActionNotAllowed is returned when the action kind is not in the
	// current stage's allowed set.
	ErrActionNotAllowed = errors.New("action not allowed at the current stage")

	// ErrStageAdvanced is returned to the loser of a concurrent action race:
	// the stage observed at validation time is no longer current.
	ErrStageAdvanced = errors.New("stage advanced concurrently")

	// ErrCorruptedStage signals an invariant violation: the current stage
	// pointer does not resolve to a real stage row. This is a bug in a type
	// descriptor, not a user error, and is not recoverable.
	ErrCorruptedStage = errors.New("submission stage corrupted")

	// ErrConflictingLink signals that an idempotent side-effect creation
	// found a prior link from the same source to a different target.
	ErrConflictingLink = errors.New("conflicting link to a different target")
)

// InvalidPayloadError carries field-level validation failures for a creation
// or resubmission payload. It is fully recoverable by the client.
type InvalidPayloadError struct {
	Fields map[string][]string
}

func (e *InvalidPayloadError) Error() string {
	if len(e.Fields) == 0 {
		return "invalid payload"
	}
	parts := make([]string, 0, len(e.Fields))
	for field, msgs := range e.Fields {
		parts = append(parts, fmt.Sprintf("%s: %s", field, strings.Join(msgs, "; ")))
	}
	return "invalid payload: " + strings.Join(parts, ", ")
}

// NewInvalidPayload builds an InvalidPayloadError for a single field.
func NewInvalidPayload(field, message string) *InvalidPayloadError {
	return &InvalidPayloadError{Fields: map[string][]string{field: {message}}}
}

// InvalidPayloadFromValidator converts validator.ValidationErrors into the
// engine's field-level payload error. Other errors pass through unchanged.
func InvalidPayloadFromValidator(err error) error {
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}

	fields := make(map[string][]string, len(verrs))
	for _, fe := range verrs {
		field := fe.Field()
		fields[field] = append(fields[field], fmt.Sprintf("failed %q validation", fe.Tag()))
	}
	return &InvalidPayloadError{Fields: fields}
}

// AsInvalidPayload reports whether err is (or wraps) an InvalidPayloadError.
func AsInvalidPayload(err error) (*InvalidPayloadError, bool) {
	var ipe *InvalidPayloadError
	if errors.As(err, &ipe) {
		return ipe, true
	}
	return nil, false
}
