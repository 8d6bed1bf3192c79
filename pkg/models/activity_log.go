package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Activity actions written to the activity log.
const (
	ActionCreateSupervision      = "CREATE_SUPERVISION"
	ActionUpdateSupervision      = "UPDATE_SUPERVISION"
	ActionDeleteSupervision      = "DELETE_SUPERVISION"
	ActionApproveSupervision     = "APPROVE_SUPERVISION"
	ActionAcknowledgeSupervision = "ACKNOWLEDGE_SUPERVISION"
	ActionCreateUser             = "CREATE_USER"
	ActionUpdateUser             = "UPDATE_USER"
	ActionDeleteUser             = "DELETE_USER"
	ActionCreateImprovement      = "CREATE_IMPROVEMENT"
	ActionImportData             = "IMPORT_DATA"
)

// Entity names recorded with activity log rows.
const (
	EntitySupervisions = "supervisions"
	EntityUsers        = "users"
	EntityImprovements = "improvements"
	EntityImports      = "imports"
)

// ActivityLog is an append-only audit record of a mutating operation.
type ActivityLog struct {
	ID        uuid.UUID      `json:"id"`
	UserID    *uuid.UUID     `json:"userId"`
	Action    string         `json:"action"`
	Entity    string         `json:"entity"`
	EntityID  *string        `json:"entityId"`
	Details   map[string]any `json:"details"`
	IPAddress string         `json:"ipAddress"`
	UserAgent string         `json:"userAgent"`
	CreatedAt time.Time      `json:"createdAt"`
}

// RequestInfo is the requester metadata attached to activity log rows.
type RequestInfo struct {
	IPAddress string
	UserAgent string
}

// Setting is a named JSON configuration value.
type Setting struct {
	Key       string          `json:"key"`
	Value     json.RawMessage `json:"value"`
	UpdatedAt time.Time       `json:"updatedAt"`
}

// Known setting keys.
const (
	SettingSupervisionTypes  = "supervision_types"
	SettingIndicatorCriteria = "indicator_criteria"
)
