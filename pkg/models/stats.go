package models

import "github.com/google/uuid"

// AdminStats is the administrator dashboard summary.
type AdminStats struct {
	TotalSchools      int             `json:"totalSchools"`
	TotalSupervisions int             `json:"totalSupervisions"`
	TotalUsers        int             `json:"totalUsers"`
	Approved          int             `json:"approvedSupervisions"`
	Pending           int             `json:"pendingSupervisions"`
	ApprovalRate      int             `json:"approvalRate"`
	SchoolsByDistrict []DistrictCount `json:"schoolsByDistrict"`
}

// DistrictCount is the number of schools in one district.
type DistrictCount struct {
	District string `json:"district"`
	Count    int    `json:"count"`
}

// SupervisorStats is the supervisor dashboard summary.
type SupervisorStats struct {
	AssignedSchools         int `json:"assignedSchools"`
	MySupervisions          int `json:"mySupervisions"`
	PendingAcknowledgements int `json:"pendingAcknowledgements"`
}

// SchoolStats is the school dashboard summary.
type SchoolStats struct {
	TotalSupervisions int           `json:"totalSupervisions"`
	LatestSupervision *Supervision  `json:"latestSupervision"`
	Improvements      int           `json:"improvements"`
	School            SchoolProfile `json:"school"`
}

// SchoolProfile is the headline school data on the school dashboard.
type SchoolProfile struct {
	Name         string `json:"name"`
	Code         string `json:"code"`
	StudentCount int    `json:"studentCount"`
	TeacherCount int    `json:"teacherCount"`
}

// StatusCount is the number of supervisions in one status.
type StatusCount struct {
	Status SupervisionStatus `json:"status"`
	Count  int               `json:"count"`
}

// LevelCount is the number of indicators scored at one level.
type LevelCount struct {
	Level IndicatorLevel `json:"level"`
	Count int            `json:"count"`
}

// LevelBreakdown counts indicators at each level.
type LevelBreakdown struct {
	Excellent int `json:"EXCELLENT"`
	Good      int `json:"GOOD"`
	Fair      int `json:"FAIR"`
	NeedsWork int `json:"NEEDS_WORK"`
}

// Total is the number of indicators across all levels.
func (b LevelBreakdown) Total() int {
	return b.Excellent + b.Good + b.Fair + b.NeedsWork
}

// YearCount is the number of supervisions in one academic year.
type YearCount struct {
	Year  string `json:"year"`
	Count int    `json:"count"`
}

// NamedCount is a supervision count for a named bucket such as a district.
type NamedCount struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

// NetworkGroupCount is the number of supervisions of schools in one network group.
type NetworkGroupCount struct {
	ID    uuid.UUID `json:"id"`
	Name  string    `json:"name"`
	Count int       `json:"count"`
}

// PolicyTypeCount is how often policies of one type fill a supervision slot.
type PolicyTypeCount struct {
	Type  PolicyType `json:"type"`
	Count int        `json:"count"`
}

// SupervisionTypePolicies breaks policy usage down for one visit type.
type SupervisionTypePolicies struct {
	Type     string             `json:"type"`
	Policies map[PolicyType]int `json:"policies"`
}

// SchoolIndicators is the indicator level distribution of one school.
type SchoolIndicators struct {
	SchoolID uuid.UUID `json:"schoolId"`
	School   string    `json:"school"`
	LevelBreakdown
}

// IndicatorRadar is the level distribution of one indicator name.
type IndicatorRadar struct {
	Name string `json:"name"`
	LevelBreakdown
}

// SupervisorPerformance summarises one author's supervisions.
type SupervisorPerformance struct {
	ID       uuid.UUID `json:"id"`
	Name     string    `json:"name"`
	Total    int       `json:"total"`
	Approved int       `json:"approved"`
	Rate     int       `json:"rate"`
}

// Analytics is the executive overview of supervision outcomes.
type Analytics struct {
	Statuses         []StatusCount             `json:"statuses"`
	Levels           []LevelCount              `json:"levels"`
	AcademicYears    []YearCount               `json:"academicYears"`
	Districts        []NamedCount              `json:"districts"`
	NetworkGroups    []NetworkGroupCount       `json:"networkGroups"`
	PolicyUsage      []PolicyTypeCount         `json:"policyUsage"`
	PolicyByType     []SupervisionTypePolicies `json:"policyByType"`
	SchoolIndicators []SchoolIndicators        `json:"schoolIndicators"`
	IndicatorRadar   []IndicatorRadar          `json:"indicatorRadar"`
	Supervisors      []SupervisorPerformance   `json:"supervisors"`
}
