package handler

import (
	"errors"
	"net/http"

	"github.com/kiranshivaraju/loghunter/internal/api/response"
	"github.com/kiranshivaraju/loghunter/internal/flags"
	"github.com/kiranshivaraju/loghunter/internal/incidents"
	"github.com/kiranshivaraju/loghunter/internal/store"
	"github.com/kiranshivaraju/loghunter/internal/tenancy"
)

// writeError maps a domain or store error to the right HTTP status and
// JSON envelope. Handlers funnel every returned error through here so the
// mapping stays in one place.
func writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, tenancy.ErrTenantContextMissing):
		response.Error(w, http.StatusUnauthorized, "INVALID_SESSION", "Missing or invalid session", nil)
	case errors.Is(err, store.ErrForbidden):
		response.Error(w, http.StatusForbidden, "FORBIDDEN", "Role does not permit this operation", nil)
	case errors.Is(err, store.ErrNotFound):
		response.Error(w, http.StatusNotFound, "NOT_FOUND", "Resource not found", nil)
	case errors.Is(err, store.ErrDuplicateKey):
		response.Error(w, http.StatusConflict, "DUPLICATE_KEY", "A resource with this key already exists", nil)
	case errors.Is(err, store.ErrInvalidTransition):
		response.Error(w, http.StatusConflict, "INVALID_TRANSITION", err.Error(), nil)
	case errors.Is(err, store.ErrAssigneeNotInTenant):
		response.Error(w, http.StatusBadRequest, "INVALID_ASSIGNEE", err.Error(), nil)
	case errors.Is(err, incidents.ErrTitleTooShort),
		errors.Is(err, incidents.ErrServiceRequired),
		errors.Is(err, incidents.ErrInvalidSeverity),
		errors.Is(err, incidents.ErrInvalidEnvironment),
		errors.Is(err, incidents.ErrEventMessageEmpty),
		errors.Is(err, incidents.ErrInvalidEventType),
		errors.Is(err, incidents.ErrAttachmentRejected),
		errors.Is(err, flags.ErrKeyRequired),
		errors.Is(err, flags.ErrNameRequired),
		errors.Is(err, flags.ErrUnknownRuleType),
		errors.Is(err, flags.ErrInvalidPercentage),
		errors.Is(err, flags.ErrEmptyComposite),
		errors.Is(err, flags.ErrMaxDepthExceeded):
		response.Error(w, http.StatusBadRequest, "VALIDATION_ERROR", err.Error(), nil)
	default:
		response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR", "An unexpected error occurred", nil)
	}
}
