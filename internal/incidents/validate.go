package incidents

import (
	"errors"
	"strings"

	"github.com/kiranshivaraju/loghunter/pkg/models"
)

var (
	ErrTitleTooShort      = errors.New("title must be at least 5 characters")
	ErrServiceRequired    = errors.New("service must not be empty")
	ErrInvalidSeverity    = errors.New("severity must be one of SEV1, SEV2, SEV3, SEV4")
	ErrInvalidEnvironment = errors.New("environment must be one of DEV, STAGING, PROD")
	ErrEventMessageEmpty  = errors.New("message must be at least 1 character")
	ErrInvalidEventType   = errors.New("timeline entry point accepts only NOTE or ACTION")
	ErrAttachmentRejected = errors.New("attachment rejected: size or MIME type not allowed")
)

// ValidateCreateInput checks the fields accepted by incident creation.
func ValidateCreateInput(title, severity, service, environment string) error {
	if len(strings.TrimSpace(title)) < 5 {
		return ErrTitleTooShort
	}
	if strings.TrimSpace(service) == "" {
		return ErrServiceRequired
	}
	if !models.ValidSeverities[severity] {
		return ErrInvalidSeverity
	}
	if !models.ValidEnvironments[environment] {
		return ErrInvalidEnvironment
	}
	return nil
}

// ValidateTimelineEntry rejects STATUS_CHANGE at this entry point; those
// events are produced only by the transition path.
func ValidateTimelineEntry(eventType, message string) error {
	if eventType != models.EventTypeNote && eventType != models.EventTypeAction {
		return ErrInvalidEventType
	}
	if len(strings.TrimSpace(message)) < 1 {
		return ErrEventMessageEmpty
	}
	return nil
}

// ValidateAttachment enforces the 10 MiB cap and the MIME whitelist.
func ValidateAttachment(mimeType string, sizeBytes int64) error {
	if sizeBytes <= 0 || sizeBytes > models.MaxAttachmentBytes {
		return ErrAttachmentRejected
	}
	if !models.AllowedAttachmentMIMETypes[mimeType] {
		return ErrAttachmentRejected
	}
	return nil
}
