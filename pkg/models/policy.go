package models

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// PolicyType classifies a policy into one of the fixed policy areas.
type PolicyType string

const (
	PolicyNatValuesLoyalty       PolicyType = "NAT_VALUES_LOYALTY"
	PolicyCivicHistoryGeo        PolicyType = "CIVIC_HISTORY_GEO"
	PolicyMoralQualityLearning   PolicyType = "MORAL_QUALITY_LEARNING"
	PolicyPersonalExcellence     PolicyType = "PERSONAL_EXCELLENCE"
	PolicyReadingCulture         PolicyType = "READING_CULTURE"
	PolicyEduInnovTech           PolicyType = "EDU_INNOV_TECH"
	PolicyEduEquityAccess        PolicyType = "EDU_EQUITY_ACCESS"
	PolicySpecialNeedsEdu        PolicyType = "SPECIAL_NEEDS_EDU"
	PolicyStudentDevelopment     PolicyType = "STUDENT_DEVELOPMENT"
	PolicyTeacherUpskill         PolicyType = "TEACHER_UPSKILL"
	PolicyTeacherWelfare         PolicyType = "TEACHER_WELFARE"
	PolicyReduceTeacherWorkload  PolicyType = "REDUCE_TEACHER_WORKLOAD"
	PolicySmartGovernance        PolicyType = "SMART_GOVERNANCE"
	PolicySchoolSafety           PolicyType = "SCHOOL_SAFETY"
	PolicyPersonalizedAssessment PolicyType = "PERSONALIZED_ASSESSMENT"
)

// ValidPolicyTypes lists every policy type in display order.
var ValidPolicyTypes = []PolicyType{
	PolicyNatValuesLoyalty,
	PolicyCivicHistoryGeo,
	PolicyMoralQualityLearning,
	PolicyPersonalExcellence,
	PolicyReadingCulture,
	PolicyEduInnovTech,
	PolicyEduEquityAccess,
	PolicySpecialNeedsEdu,
	PolicyStudentDevelopment,
	PolicyTeacherUpskill,
	PolicyTeacherWelfare,
	PolicyReduceTeacherWorkload,
	PolicySmartGovernance,
	PolicySchoolSafety,
	PolicyPersonalizedAssessment,
}

// IsValid reports whether t is a known policy type.
func (t PolicyType) IsValid() bool {
	for _, v := range ValidPolicyTypes {
		if v == t {
			return true
		}
	}
	return false
}

// policyTypeLabels holds the Thai policy area names used in spreadsheets.
var policyTypeLabels = []struct {
	label string
	typ   PolicyType
}{
	{"คุณธรรม จริยธรรม ความเป็นไทย และความภาคภูมิใจในความเป็นไทย", PolicyNatValuesLoyalty},
	{"หน้าที่พลเมือง ประวัติศาสตร์ และภูมิศาสตร์", PolicyCivicHistoryGeo},
	{"การศึกษาเพื่อการพัฒนาทักษะในศตวรรษที่ 21 และนวัตกรรมเทคโนโลยี", PolicyEduInnovTech},
	{"การส่งเสริมการอ่านและวัฒนธรรมการอ่าน", PolicyReadingCulture},
	{"การพัฒนาผู้เรียนให้มีคุณภาพตามมาตรฐานการศึกษา", PolicyStudentDevelopment},
	{"การจัดการศึกษาสำหรับผู้เรียนที่มีความต้องการพิเศษ", PolicySpecialNeedsEdu},
	{"การส่งเสริมความเป็นเลิศของผู้เรียน", PolicyPersonalExcellence},
	{"ความปลอดภัยในสถานศึกษา", PolicySchoolSafety},
	{"ความเสมอภาคทางการศึกษาและการเข้าถึงการศึกษา", PolicyEduEquityAccess},
	{"การพัฒนาครูและบุคลากรทางการศึกษา", PolicyTeacherUpskill},
	{"การประเมินผลการเรียนรู้ที่หลากหลายและเหมาะสมกับผู้เรียน", PolicyPersonalizedAssessment},
	{"การบริหารจัดการสถานศึกษาอย่างมีประสิทธิภาพ", PolicySmartGovernance},
	{"การลดภาระงานครู", PolicyReduceTeacherWorkload},
	{"สวัสดิการครูและบุคลากรทางการศึกษา", PolicyTeacherWelfare},
	{"คุณภาพการเรียนรู้ที่เน้นคุณธรรม", PolicyMoralQualityLearning},
}

// ParsePolicyType accepts the enum value in any case, with dashes or
// underscores, or the Thai area name.
func ParsePolicyType(s string) (PolicyType, bool) {
	s = strings.TrimSpace(s)
	for _, l := range policyTypeLabels {
		if l.label == s {
			return l.typ, true
		}
	}
	t := PolicyType(strings.ReplaceAll(strings.ToUpper(s), "-", "_"))
	return t, t.IsValid()
}

// Policy is a coded reference document a supervision can cite.
type Policy struct {
	ID          uuid.UUID  `json:"id"`
	Code        string     `json:"code"`
	Title       string     `json:"title"`
	Description string     `json:"description"`
	Type        PolicyType `json:"type"`
	IsActive    bool       `json:"isActive"`
	CreatedAt   time.Time  `json:"createdAt"`
	UpdatedAt   time.Time  `json:"updatedAt"`
}

// PolicySlot names one of the three policy levels on a supervision.
type PolicySlot string

const (
	PolicySlotMinister PolicySlot = "minister"
	PolicySlotOBEC     PolicySlot = "obec"
	PolicySlotArea     PolicySlot = "area"
)

// Label is the user-facing name of the slot used in validation messages.
func (s PolicySlot) Label() string {
	switch s {
	case PolicySlotMinister:
		return "minister policy"
	case PolicySlotOBEC:
		return "OBEC policy"
	case PolicySlotArea:
		return "area policy"
	}
	return string(s) + " policy"
}

// Field is the request field carrying the slot's policy id.
func (s PolicySlot) Field() string {
	switch s {
	case PolicySlotMinister:
		return "ministerPolicyId"
	case PolicySlotOBEC:
		return "obecPolicyId"
	case PolicySlotArea:
		return "areaPolicyId"
	}
	return string(s) + "PolicyId"
}
