package models

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestParseAttachmentRef(t *testing.T) {
	id := uuid.New()

	got, ok := ParseAttachmentRef(Attachment{ID: id}.Ref())
	assert.True(t, ok)
	assert.Equal(t, id, got)

	_, ok = ParseAttachmentRef(id.String())
	assert.False(t, ok, "unprefixed id denotes a new attachment")

	_, ok = ParseAttachmentRef("attachment-not-a-uuid")
	assert.False(t, ok)

	_, ok = ParseAttachmentRef("")
	assert.False(t, ok)
}

func TestEnumValidity(t *testing.T) {
	assert.True(t, RoleExecutive.IsValid())
	assert.False(t, Role("admin").IsValid(), "roles are case sensitive")

	for _, s := range ValidSupervisionStatuses {
		assert.True(t, s.IsValid())
	}
	assert.False(t, SupervisionStatus("ARCHIVED").IsValid())

	assert.True(t, LevelNeedsWork.IsValid())
	assert.False(t, IndicatorLevel("POOR").IsValid())

	assert.Len(t, ValidPolicyTypes, 15)
	assert.True(t, PolicySchoolSafety.IsValid())
	assert.False(t, PolicyType("OTHER").IsValid())

	assert.True(t, ImprovementCompleted.IsValid())
	assert.False(t, ImprovementStatus("rejected").IsValid())
}

func TestPolicySlotLabels(t *testing.T) {
	assert.Equal(t, "OBEC policy", PolicySlotOBEC.Label())
	assert.Equal(t, "areaPolicyId", PolicySlotArea.Field())
	assert.Equal(t, "ministerPolicyId", PolicySlotMinister.Field())
}
