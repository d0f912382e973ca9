package pandda

import (
	"errors"
	"fmt"
	"strings"

	"github.com/xraph/pandda/lock"
	"github.com/xraph/pandda/validate"
)

// Sentinel errors for common failure scenarios.
var (
	// General errors
	ErrNotFound           = errors.New("pandda: not found")
	ErrAlreadyExists      = errors.New("pandda: already exists")
	ErrForbidden          = errors.New("pandda: forbidden")
	ErrSelfAction         = errors.New("pandda: action not allowed on own account")
	ErrInvalidCredentials = errors.New("pandda: invalid credentials")

	// Validation errors
	ErrValidation             = errors.New("pandda: validation failed")
	ErrMissingField           = errors.New("pandda: missing field")
	ErrInvalidField           = errors.New("pandda: invalid field")
	ErrPastDueDate            = errors.New("pandda: due date must be after today")
	ErrCapacityMismatch       = errors.New("pandda: allocated slots do not match screens")
	ErrDuplicateExclusiveUser = errors.New("pandda: username already in use on exclusive app")
	ErrServerNotAssigned      = errors.New("pandda: server not assigned to customer")
	ErrUnknownApp             = errors.New("pandda: unknown app")

	// Record errors
	ErrCustomerNotFound     = errors.New("pandda: customer not found")
	ErrSubscriptionNotFound = errors.New("pandda: subscription not found")
	ErrAccessPointNotFound  = errors.New("pandda: access point not found")
	ErrServerNotFound       = errors.New("pandda: server not found")
	ErrAppNotFound          = errors.New("pandda: app not found")
	ErrPlanNotFound         = errors.New("pandda: plan not found")
	ErrAdminNotFound        = errors.New("pandda: admin not found")

	// Catalog guards
	ErrServerInUse = errors.New("pandda: server is in use by apps")
	ErrAppInUse    = errors.New("pandda: app is in use by access points")
	ErrPlanInUse   = errors.New("pandda: plan is in use by customers or subscriptions")

	// Workflow errors
	ErrPersistence        = errors.New("pandda: persistence failure")
	ErrFatalInconsistency = errors.New("pandda: fatal inconsistency")
	ErrLockTimeout        = lock.ErrTimeout

	// Store errors
	ErrStoreClosed     = errors.New("pandda: store is closed")
	ErrMigrationFailed = errors.New("pandda: migration failed")
)

var violationSentinels = map[validate.Kind]error{
	validate.KindMissingField:           ErrMissingField,
	validate.KindInvalidField:           ErrInvalidField,
	validate.KindPastDueDate:            ErrPastDueDate,
	validate.KindCapacityMismatch:       ErrCapacityMismatch,
	validate.KindDuplicateExclusiveUser: ErrDuplicateExclusiveUser,
	validate.KindServerNotAssigned:      ErrServerNotAssigned,
	validate.KindUnknownApp:             ErrUnknownApp,
}

// ValidationError reports the first constraint a request violated. It
// matches ErrValidation and the sentinel for its kind. When it is returned
// from a workflow, nothing the workflow wrote remains in the store.
type ValidationError struct {
	Violation validate.Violation
}

func (e *ValidationError) Error() string {
	return "pandda: validation failed: " + e.Violation.String()
}

// Is matches ErrValidation and the violation's kind sentinel.
func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation || target == violationSentinels[e.Violation.Kind]
}

func newValidationError(v validate.Violation) *ValidationError {
	return &ValidationError{Violation: v}
}

// PersistenceError wraps an unexpected store failure during a workflow.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("pandda: %s: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }

// Is matches ErrPersistence.
func (e *PersistenceError) Is(target error) bool { return target == ErrPersistence }

// FatalInconsistencyError means a workflow failed and then could not undo
// its partial writes. The store needs manual repair; it is never retried.
type FatalInconsistencyError struct {
	Workflow string
	Cause    error
	Failures []error
}

func (e *FatalInconsistencyError) Error() string {
	msgs := make([]string, len(e.Failures))
	for i, f := range e.Failures {
		msgs[i] = f.Error()
	}
	return fmt.Sprintf("pandda: fatal inconsistency in %s: cause: %v; compensation failures: %s",
		e.Workflow, e.Cause, strings.Join(msgs, "; "))
}

// Is matches ErrFatalInconsistency.
func (e *FatalInconsistencyError) Is(target error) bool { return target == ErrFatalInconsistency }

// Unwrap exposes the original cause.
func (e *FatalInconsistencyError) Unwrap() error { return e.Cause }

// MultiError represents multiple errors that occurred.
type MultiError struct {
	Errors []error
}

func (e MultiError) Error() string {
	if len(e.Errors) == 0 {
		return "pandda: no errors"
	}
	if len(e.Errors) == 1 {
		return e.Errors[0].Error()
	}
	return fmt.Sprintf("pandda: %d errors occurred", len(e.Errors))
}

// Add adds an error to the multi-error.
func (e *MultiError) Add(err error) {
	if err != nil {
		e.Errors = append(e.Errors, err)
	}
}

// HasErrors returns true if there are any errors.
func (e MultiError) HasErrors() bool {
	return len(e.Errors) > 0
}

// IsNotFound returns true if the error is a not found error.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound) ||
		errors.Is(err, ErrCustomerNotFound) ||
		errors.Is(err, ErrSubscriptionNotFound) ||
		errors.Is(err, ErrAccessPointNotFound) ||
		errors.Is(err, ErrServerNotFound) ||
		errors.Is(err, ErrAppNotFound) ||
		errors.Is(err, ErrPlanNotFound) ||
		errors.Is(err, ErrAdminNotFound)
}

// IsValidation returns true if the error is a constraint violation.
func IsValidation(err error) bool {
	return errors.Is(err, ErrValidation)
}

// IsRetryable returns true if the error is temporary and the operation can be retried.
func IsRetryable(err error) bool {
	if errors.Is(err, ErrFatalInconsistency) {
		return false
	}
	return errors.Is(err, ErrLockTimeout) ||
		errors.Is(err, ErrPersistence)
}

const genericFailureMessage = "The operation could not be completed and was reverted. Please try again or contact the operator."

// UserMessage returns text suitable for showing to the back-office user.
// Store and consistency failures get a generic message.
func UserMessage(err error) string {
	if err == nil {
		return ""
	}

	var ve *ValidationError
	switch {
	case errors.As(err, &ve):
		return ve.Violation.String()
	case IsNotFound(err):
		return strings.TrimPrefix(notFoundText(err), "pandda: ")
	case errors.Is(err, ErrLockTimeout):
		return "Another operation is in progress for these servers. Please try again."
	case errors.Is(err, ErrForbidden):
		return "Only a master admin can do this."
	case errors.Is(err, ErrSelfAction), errors.Is(err, ErrInvalidCredentials), errors.Is(err, ErrAlreadyExists),
		errors.Is(err, ErrServerInUse), errors.Is(err, ErrAppInUse), errors.Is(err, ErrPlanInUse):
		return strings.TrimPrefix(sentinelText(err), "pandda: ")
	default:
		return genericFailureMessage
	}
}

func notFoundText(err error) string {
	for _, s := range []error{
		ErrCustomerNotFound, ErrSubscriptionNotFound, ErrAccessPointNotFound,
		ErrServerNotFound, ErrAppNotFound, ErrPlanNotFound, ErrAdminNotFound,
	} {
		if errors.Is(err, s) {
			return s.Error()
		}
	}
	return ErrNotFound.Error()
}

func sentinelText(err error) string {
	for _, s := range []error{ErrSelfAction, ErrInvalidCredentials, ErrAlreadyExists, ErrServerInUse, ErrAppInUse, ErrPlanInUse} {
		if errors.Is(err, s) {
			return s.Error()
		}
	}
	return err.Error()
}
