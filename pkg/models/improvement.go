package models

import (
	"time"

	"github.com/google/uuid"
)

// ImprovementStatus tracks a remediation plan.
type ImprovementStatus string

const (
	ImprovementPending   ImprovementStatus = "pending"
	ImprovementApproved  ImprovementStatus = "approved"
	ImprovementCompleted ImprovementStatus = "completed"
)

// IsValid reports whether s is a known improvement status.
func (s ImprovementStatus) IsValid() bool {
	switch s {
	case ImprovementPending, ImprovementApproved, ImprovementCompleted:
		return true
	}
	return false
}

// Improvement is a school-authored remediation plan.
type Improvement struct {
	ID          uuid.UUID         `json:"id"`
	SchoolID    uuid.UUID         `json:"schoolId"`
	UserID      uuid.UUID         `json:"userId"`
	Title       string            `json:"title"`
	Description string            `json:"description"`
	FileURL     *string           `json:"fileUrl"`
	Status      ImprovementStatus `json:"status"`
	CreatedAt   time.Time         `json:"createdAt"`
	UpdatedAt   time.Time         `json:"updatedAt"`

	School *SchoolSummary `json:"school,omitempty"`
	Author *UserSummary   `json:"user,omitempty"`
}
