package usecase

import (
	"fmt"
	"net/mail"
	"strings"

	"github.com/xavierca1/followwise/internal/entity"
)

type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func ValidateCreateLeadInput(input CreateLeadInput) []ValidationError {
	var errors []ValidationError

	errors = append(errors, validateName(input.ContactName)...)
	errors = append(errors, validateEmail("contact_email", input.ContactEmail)...)

	if input.Status != "" && !entity.LeadStatus(input.Status).Valid() {
		errors = append(errors, ValidationError{"status", "must be one of new, in_progress, won, lost"})
	}
	if input.Source != "" && !entity.LeadSource(input.Source).Valid() {
		errors = append(errors, ValidationError{"source", "must be one of email, manual, import, other"})
	}
	errors = append(errors, validateScore(input.LeadScore)...)

	return errors
}

func ValidateUpdateLeadInput(input UpdateLeadInput) []ValidationError {
	var errors []ValidationError

	if input.ContactName != nil {
		errors = append(errors, validateName(*input.ContactName)...)
	}
	if input.ContactEmail != nil {
		errors = append(errors, validateEmail("contact_email", *input.ContactEmail)...)
	}
	if input.Status != nil && !entity.LeadStatus(*input.Status).Valid() {
		errors = append(errors, ValidationError{"status", "must be one of new, in_progress, won, lost"})
	}
	if input.Source != nil && !entity.LeadSource(*input.Source).Valid() {
		errors = append(errors, ValidationError{"source", "must be one of email, manual, import, other"})
	}
	if input.LeadScore != nil {
		errors = append(errors, validateScore(*input.LeadScore)...)
	}

	return errors
}

func validateName(name string) []ValidationError {
	name = strings.TrimSpace(name)
	if name == "" {
		return []ValidationError{{"contact_name", "is required"}}
	}
	if len(name) > 200 {
		return []ValidationError{{"contact_name", "must not exceed 200 characters"}}
	}
	return nil
}

func validateScore(score int) []ValidationError {
	if score < 0 || score > entity.MaxLeadScore {
		return []ValidationError{{"lead_score", fmt.Sprintf("must be between 0 and %d", entity.MaxLeadScore)}}
	}
	return nil
}

func validateEmail(field, email string) []ValidationError {
	email = strings.TrimSpace(email)
	if email == "" {
		return []ValidationError{{field, "is required"}}
	}
	addr, err := mail.ParseAddress(email)
	// ParseAddress accepts "Name <a@b>"; only the bare address is stored.
	if err != nil || addr.Address != email {
		return []ValidationError{{field, "is invalid"}}
	}
	return nil
}

func ValidateLogSentEmailInput(input LogSentEmailInput) []ValidationError {
	errors := validateEmail("to_email", input.ToEmail)
	if strings.TrimSpace(input.Subject) == "" {
		errors = append(errors, ValidationError{"subject", "is required"})
	}
	if strings.TrimSpace(input.Body) == "" {
		errors = append(errors, ValidationError{"body", "is required"})
	}
	return errors
}

func validationFailed(errs []ValidationError) error {
	msg := "validation failed: "
	for i, e := range errs {
		if i > 0 {
			msg += ", "
		}
		msg += e.Field + " (" + e.Message + ")"
	}
	return &DomainError{
		Code:    CodeValidation,
		Message: msg,
		Fields:  errs,
	}
}
