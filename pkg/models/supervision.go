package models

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// SupervisionStatus is the workflow state of a supervision record.
type SupervisionStatus string

const (
	StatusDraft            SupervisionStatus = "DRAFT"
	StatusSubmitted        SupervisionStatus = "SUBMITTED"
	StatusApproved         SupervisionStatus = "APPROVED"
	StatusPublished        SupervisionStatus = "PUBLISHED"
	StatusNeedsImprovement SupervisionStatus = "NEEDS_IMPROVEMENT"
)

// ValidSupervisionStatuses contains all valid status values.
var ValidSupervisionStatuses = []SupervisionStatus{
	StatusDraft,
	StatusSubmitted,
	StatusApproved,
	StatusPublished,
	StatusNeedsImprovement,
}

// IsValid reports whether s is a known status.
func (s SupervisionStatus) IsValid() bool {
	for _, v := range ValidSupervisionStatuses {
		if v == s {
			return true
		}
	}
	return false
}

// IndicatorLevel is the qualitative score given to an indicator.
type IndicatorLevel string

const (
	LevelExcellent IndicatorLevel = "EXCELLENT"
	LevelGood      IndicatorLevel = "GOOD"
	LevelFair      IndicatorLevel = "FAIR"
	LevelNeedsWork IndicatorLevel = "NEEDS_WORK"
)

// ValidIndicatorLevels contains all valid level values.
var ValidIndicatorLevels = []IndicatorLevel{LevelExcellent, LevelGood, LevelFair, LevelNeedsWork}

// IsValid reports whether l is a known level.
func (l IndicatorLevel) IsValid() bool {
	for _, v := range ValidIndicatorLevels {
		if v == l {
			return true
		}
	}
	return false
}

// Supervision is a recorded school visit and its evaluation.
type Supervision struct {
	ID               uuid.UUID         `json:"id"`
	SchoolID         uuid.UUID         `json:"schoolId"`
	UserID           uuid.UUID         `json:"userId"`
	Type             string            `json:"type"`
	Date             time.Time         `json:"date"`
	AcademicYear     *string           `json:"academicYear,omitempty"`
	MinisterPolicyID *uuid.UUID        `json:"ministerPolicyId,omitempty"`
	OBECPolicyID     *uuid.UUID        `json:"obecPolicyId,omitempty"`
	AreaPolicyID     *uuid.UUID        `json:"areaPolicyId,omitempty"`
	Summary          string            `json:"summary"`
	Suggestions      string            `json:"suggestions"`
	Status           SupervisionStatus `json:"status"`
	CreatedAt        time.Time         `json:"createdAt"`
	UpdatedAt        time.Time         `json:"updatedAt"`

	Indicators      []Indicator      `json:"indicators"`
	Attachments     []Attachment     `json:"attachments"`
	Acknowledgement *Acknowledgement `json:"acknowledgement,omitempty"`
	School          *SchoolSummary   `json:"school,omitempty"`
	Author          *UserSummary     `json:"user,omitempty"`
}

// PolicyRefs returns the policy id held by each slot.
func (s *Supervision) PolicyRefs() map[PolicySlot]*uuid.UUID {
	return map[PolicySlot]*uuid.UUID{
		PolicySlotMinister: s.MinisterPolicyID,
		PolicySlotOBEC:     s.OBECPolicyID,
		PolicySlotArea:     s.AreaPolicyID,
	}
}

// Indicator is one evaluated criterion of a supervision.
type Indicator struct {
	ID            uuid.UUID      `json:"id"`
	SupervisionID uuid.UUID      `json:"supervisionId"`
	Name          string         `json:"name"`
	Level         IndicatorLevel `json:"level"`
	Comment       *string        `json:"comment"`
}

// AttachmentIDPrefix marks an attachment reference in an edit request as already persisted.
const AttachmentIDPrefix = "attachment-"

// Attachment is a file linked to a supervision.
type Attachment struct {
	ID            uuid.UUID `json:"id"`
	SupervisionID uuid.UUID `json:"supervisionId"`
	Filename      string    `json:"filename"`
	FileURL       string    `json:"fileUrl"`
	FileType      string    `json:"fileType"`
	FileSize      int64     `json:"fileSize"`
	CreatedAt     time.Time `json:"createdAt"`
}

// Ref returns the prefixed reference clients echo back to keep this attachment on edit.
func (a Attachment) Ref() string {
	return AttachmentIDPrefix + a.ID.String()
}

// ParseAttachmentRef extracts the persisted attachment id from a prefixed reference.
// It returns false for references that denote a new attachment.
func ParseAttachmentRef(ref string) (uuid.UUID, bool) {
	raw, ok := strings.CutPrefix(ref, AttachmentIDPrefix)
	if !ok {
		return uuid.Nil, false
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, false
	}
	return id, true
}

// Acknowledgement records a school's receipt of an approved supervision.
type Acknowledgement struct {
	ID             uuid.UUID `json:"id"`
	SupervisionID  uuid.UUID `json:"supervisionId"`
	AcknowledgedBy string    `json:"acknowledgedBy"`
	Comment        *string   `json:"comment"`
	AcknowledgedAt time.Time `json:"acknowledgedAt"`
}

// SupervisionFilter narrows supervision listings.
// UserID and SchoolID carry both explicit filters and role scoping.
type SupervisionFilter struct {
	UserID       *uuid.UUID
	SchoolID     *uuid.UUID
	SchoolIDs    []uuid.UUID
	Status       *SupervisionStatus
	AcademicYear *string
}
