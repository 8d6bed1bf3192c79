// Package authz holds the role capability table and the single authorization
// predicate evaluated before every mutating or scoped read operation.
package authz

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/edusupervise/supervision-engine/pkg/apperrors"
	"github.com/edusupervise/supervision-engine/pkg/models"
)

// Action is an operation an actor attempts.
type Action string

const (
	SupervisionCreate      Action = "supervision:create"
	SupervisionView        Action = "supervision:view"
	SupervisionList        Action = "supervision:list"
	SupervisionUpdate      Action = "supervision:update"
	SupervisionDelete      Action = "supervision:delete"
	SupervisionApprove     Action = "supervision:approve"
	SupervisionAcknowledge Action = "supervision:acknowledge"

	SchoolView           Action = "school:view"
	SchoolManage         Action = "school:manage"
	NetworkGroupView     Action = "network-group:view"
	NetworkGroupManage   Action = "network-group:manage"
	PolicyView           Action = "policy:view"
	PolicyManage         Action = "policy:manage"
	UserManage           Action = "user:manage"
	ImprovementCreate    Action = "improvement:create"
	ImprovementList      Action = "improvement:list"
	ImprovementReview    Action = "improvement:review"
	AttachmentUpload     Action = "attachment:upload"
	AdminStatsView       Action = "stats:admin"
	SupervisorStatsView  Action = "stats:supervisor"
	SchoolStatsView      Action = "stats:school"
	AnalyticsView        Action = "analytics:view"
	ReportExport         Action = "report:export"
	SettingsView         Action = "settings:view"
	SettingsManage       Action = "settings:manage"
	ActivityLogView      Action = "activity-log:view"
	DataImport           Action = "data:import"
)

// capabilities is the role-level gate. ADMIN is absent because it is allowed
// everything outside exclusive.
// Row-level refinements for the remaining roles live in refine.
var capabilities = map[models.Role]map[Action]bool{
	models.RoleSupervisor: set(
		SupervisionCreate, SupervisionView, SupervisionList, SupervisionUpdate, SupervisionDelete,
		SchoolView, NetworkGroupView, PolicyView,
		ImprovementList, AttachmentUpload, SupervisorStatsView, ReportExport, SettingsView,
	),
	models.RoleSchool: set(
		SupervisionView, SupervisionList, SupervisionAcknowledge,
		SchoolView, NetworkGroupView, PolicyView,
		ImprovementCreate, ImprovementList, SchoolStatsView, SettingsView,
	),
	models.RoleExecutive: set(
		SupervisionView, SupervisionList,
		SchoolView, NetworkGroupView, PolicyView,
		ImprovementList, AnalyticsView, ReportExport, SettingsView,
	),
}

// exclusive reserves actions to a single role. ADMIN's blanket allowance does
// not extend to them.
var exclusive = map[Action]models.Role{
	SupervisionAcknowledge: models.RoleSchool,
}

func set(actions ...Action) map[Action]bool {
	m := make(map[Action]bool, len(actions))
	for _, a := range actions {
		m[a] = true
	}
	return m
}

// Resource is the snapshot of the target needed for row-level decisions.
// Callers fill only the fields the action consults.
type Resource struct {
	// OwnerID is the author of a supervision.
	OwnerID uuid.UUID
	// SchoolID is the school the target belongs to.
	SchoolID uuid.UUID
	// ActorAssigned reports whether a SUPERVISOR actor is assigned to SchoolID.
	ActorAssigned bool
	// ActorSchoolID is the school resolved for a SCHOOL actor, nil when none matched.
	ActorSchoolID *uuid.UUID
}

// Gate applies only the role-level capability table. Services call it before
// loading the target so that a role that can never perform action is refused
// without revealing whether the target exists.
func Gate(actor *models.Actor, action Action) error {
	if actor == nil {
		return apperrors.ErrUnauthorized
	}
	if role, ok := exclusive[action]; ok && actor.Role != role {
		return fmt.Errorf("%w: only %s may perform %s", apperrors.ErrForbidden, role, action)
	}
	if actor.Role == models.RoleAdmin {
		return nil
	}
	if !capabilities[actor.Role][action] {
		return fmt.Errorf("%w: role %s cannot perform %s", apperrors.ErrForbidden, actor.Role, action)
	}
	return nil
}

// Check decides whether actor may perform action on res.
// It returns nil, ErrUnauthorized, or an error wrapping ErrForbidden.
func Check(actor *models.Actor, action Action, res *Resource) error {
	if err := Gate(actor, action); err != nil {
		return err
	}
	if actor.Role == models.RoleAdmin {
		return nil
	}
	return refine(actor, action, res)
}

func refine(actor *models.Actor, action Action, res *Resource) error {
	if res == nil {
		res = &Resource{}
	}
	switch actor.Role {
	case models.RoleSupervisor:
		switch action {
		case SupervisionCreate:
			if !res.ActorAssigned {
				return apperrors.ErrNotAssigned
			}
		case SupervisionUpdate, SupervisionDelete:
			if res.OwnerID != actor.ID {
				return fmt.Errorf("%w: only the author may modify this supervision", apperrors.ErrForbidden)
			}
		case SupervisionView:
			if res.OwnerID != actor.ID && !res.ActorAssigned {
				return fmt.Errorf("%w: supervision belongs to another supervisor", apperrors.ErrForbidden)
			}
		}
	case models.RoleSchool:
		switch action {
		case SupervisionView, SupervisionAcknowledge, ImprovementCreate:
			if res.ActorSchoolID == nil {
				return apperrors.ErrNoSchoolForActor
			}
			if *res.ActorSchoolID != res.SchoolID {
				return fmt.Errorf("%w: record belongs to another school", apperrors.ErrForbidden)
			}
		}
	}
	return nil
}
