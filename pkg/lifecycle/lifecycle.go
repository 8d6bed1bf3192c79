// Package lifecycle implements the supervision workflow rules: status
// resolution, the acknowledgement gate, and reconciliation of dependent
// indicators and attachments on edit.
package lifecycle

import (
	"fmt"

	"github.com/edusupervise/supervision-engine/pkg/apperrors"
	"github.com/edusupervise/supervision-engine/pkg/models"
)

// Transitions are not restricted: any valid status may follow any other.
// The workflow DRAFT/SUBMITTED -> APPROVED -> acknowledged is carried by the
// approve and acknowledge operations, not by a transition table.

// InitialStatus resolves the status of a newly created supervision.
func InitialStatus(requested models.SupervisionStatus) (models.SupervisionStatus, error) {
	return resolve(requested, models.StatusDraft)
}

// EditStatus resolves the status after an edit, keeping current when none is requested.
func EditStatus(requested, current models.SupervisionStatus) (models.SupervisionStatus, error) {
	return resolve(requested, current)
}

// ApprovalStatus resolves the status set by the approve operation. It defaults to APPROVED.
func ApprovalStatus(requested models.SupervisionStatus) (models.SupervisionStatus, error) {
	return resolve(requested, models.StatusApproved)
}

func resolve(requested, fallback models.SupervisionStatus) (models.SupervisionStatus, error) {
	if requested == "" {
		return fallback, nil
	}
	if !requested.IsValid() {
		return "", apperrors.NewValidationError("Invalid status", apperrors.FieldError{
			Field: "status",
			Error: fmt.Sprintf("unknown status %q", requested),
		})
	}
	return requested, nil
}

// ShouldNotify reports whether entering status sends the school a notification.
func ShouldNotify(status models.SupervisionStatus) bool {
	return status == models.StatusApproved
}

// CanAcknowledge checks the acknowledgement gate for a supervision.
// An existing acknowledgement always wins so repeated attempts surface as conflicts.
func CanAcknowledge(status models.SupervisionStatus, existing *models.Acknowledgement) error {
	if existing != nil {
		return apperrors.ErrAlreadyAcknowledged
	}
	if status != models.StatusApproved {
		return apperrors.ErrNotApproved
	}
	return nil
}

// AcknowledgedBy picks the name recorded on an acknowledgement.
func AcknowledgedBy(principalName, actorName string) string {
	if principalName != "" {
		return principalName
	}
	return actorName
}

// RequireIndicators enforces the minimum of one indicator on a new supervision.
func RequireIndicators(indicators []models.Indicator) error {
	if len(indicators) == 0 {
		return apperrors.NewValidationError("At least one indicator is required", apperrors.FieldError{
			Field: "indicators",
			Error: "must contain at least 1 item",
		})
	}
	return nil
}
