package models

import (
	"time"

	"github.com/google/uuid"
)

// School is an administrative unit that receives supervision visits.
type School struct {
	ID             uuid.UUID  `json:"id"`
	Code           string     `json:"code"`
	Name           string     `json:"name"`
	Province       string     `json:"province"`
	District       string     `json:"district"`
	SubDistrict    string     `json:"subDistrict"`
	Address        string     `json:"address"`
	Phone          string     `json:"phone"`
	Email          string     `json:"email"`
	PrincipalName  string     `json:"principalName"`
	StudentCount   int        `json:"studentCount"`
	TeacherCount   int        `json:"teacherCount"`
	NetworkGroupID *uuid.UUID `json:"networkGroupId,omitempty"`
	CreatedAt      time.Time  `json:"createdAt"`
	UpdatedAt      time.Time  `json:"updatedAt"`

	// Populated on detail reads only.
	Supervisors      []UserSummary `json:"supervisors,omitempty"`
	NetworkGroup     *NetworkGroup `json:"networkGroup,omitempty"`
	SupervisionCount int           `json:"supervisionCount"`
}

// SchoolSummary is the compact school projection embedded in other records.
type SchoolSummary struct {
	ID   uuid.UUID `json:"id"`
	Code string    `json:"code"`
	Name string    `json:"name"`
}

// NetworkGroup groups schools administratively.
type NetworkGroup struct {
	ID          uuid.UUID `json:"id"`
	Code        string    `json:"code"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`

	Schools     []SchoolSummary `json:"schools,omitempty"`
	SchoolCount int             `json:"schoolCount"`
}
