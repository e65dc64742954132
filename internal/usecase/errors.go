package usecase

import (
	"errors"
	"fmt"
)

const (
	CodeValidation        = "VALIDATION_ERROR"
	CodeInvalidArgument   = "INVALID_ARGUMENT"
	CodeNotFound          = "NOT_FOUND"
	CodeConflict          = "CONFLICT"
	CodeAlreadyInProgress = "ALREADY_IN_PROGRESS"
	CodeAlreadySent       = "ALREADY_SENT"
	CodeStaleSuggestion   = "STALE_SUGGESTION"
	CodeGenerationFailed  = "GENERATION_FAILED"
	CodeSendFailed        = "SEND_FAILED"
	CodeCancelled         = "CANCELLED"
)

// Sentinels for errors.Is. Only the Code is compared.
var (
	ErrValidation        = &DomainError{Code: CodeValidation}
	ErrInvalidArgument   = &DomainError{Code: CodeInvalidArgument}
	ErrNotFound          = &DomainError{Code: CodeNotFound}
	ErrConflict          = &DomainError{Code: CodeConflict}
	ErrAlreadyInProgress = &DomainError{Code: CodeAlreadyInProgress}
	ErrAlreadySent       = &DomainError{Code: CodeAlreadySent}
	ErrStaleSuggestion   = &DomainError{Code: CodeStaleSuggestion}
	ErrGenerationFailed  = &DomainError{Code: CodeGenerationFailed}
	ErrSendFailed        = &DomainError{Code: CodeSendFailed}
	ErrCancelled         = &DomainError{Code: CodeCancelled}
)

type DomainError struct {
	Code    string
	Message string

	LeadID       string
	Tone         string
	VariantIndex *int
	// MayHaveDelivered is set when the transport accepted the email but the
	// outcome could not be recorded.
	MayHaveDelivered bool
	Fields           []ValidationError

	Err error
}

func (e *DomainError) Error() string {
	if e.Message == "" {
		return e.Code
	}
	return e.Message
}

func (e *DomainError) Unwrap() error {
	return e.Err
}

// Is matches on Code. INVALID_ARGUMENT is a validation error as well.
func (e *DomainError) Is(target error) bool {
	t, ok := target.(*DomainError)
	if !ok {
		return false
	}
	if t.Code == e.Code {
		return true
	}
	return t.Code == CodeValidation && e.Code == CodeInvalidArgument
}

func IsDomainError(err error) bool {
	var de *DomainError
	return errors.As(err, &de)
}

// ErrorCode returns the domain code carried by err, or "" for anything else.
func ErrorCode(err error) string {
	var de *DomainError
	if errors.As(err, &de) {
		return de.Code
	}
	return ""
}

type TechnicalError struct {
	Code    string
	Message string
	Err     error
}

func (e *TechnicalError) Error() string {
	return e.Message
}

func (e *TechnicalError) Unwrap() error {
	return e.Err
}

func IsTechnicalError(err error) bool {
	var te *TechnicalError
	return errors.As(err, &te)
}

func storageError(op string, err error) error {
	return &TechnicalError{
		Code:    "DATABASE_ERROR",
		Message: fmt.Sprintf("%s: %v", op, err),
		Err:     err,
	}
}

func notFound(leadID string) error {
	return &DomainError{
		Code:    CodeNotFound,
		Message: fmt.Sprintf("lead %s not found", leadID),
		LeadID:  leadID,
	}
}

func cancelled(leadID string, err error) error {
	return &DomainError{
		Code:    CodeCancelled,
		Message: "operation cancelled by caller",
		LeadID:  leadID,
		Err:     err,
	}
}

func variantRef(i int) *int {
	return &i
}
