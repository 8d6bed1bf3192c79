package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/edusupervise/supervision-engine/pkg/apperrors"
	"github.com/edusupervise/supervision-engine/pkg/authz"
	"github.com/edusupervise/supervision-engine/pkg/email"
	"github.com/edusupervise/supervision-engine/pkg/lifecycle"
	"github.com/edusupervise/supervision-engine/pkg/models"
	"github.com/edusupervise/supervision-engine/pkg/repositories"
)

// IndicatorRequest is one indicator in a supervision form.
type IndicatorRequest struct {
	Name    string                `json:"name" validate:"notblank"`
	Level   models.IndicatorLevel `json:"level" validate:"required,indicator_level"`
	Comment string                `json:"comment"`
}

// AttachmentRequest is one attachment in a supervision form. ID carries the
// prefixed reference of an attachment that is already stored.
type AttachmentRequest struct {
	ID       string `json:"id"`
	Filename string `json:"filename"`
	FileURL  string `json:"fileUrl" validate:"notblank"`
	FileType string `json:"fileType"`
	FileSize int64  `json:"fileSize" validate:"min=0"`
}

// SupervisionInput is the create and edit request for a supervision.
// SchoolID and UserID are read on create only.
type SupervisionInput struct {
	SchoolID         uuid.UUID                `json:"schoolId"`
	UserID           *uuid.UUID               `json:"userId"`
	Type             string                   `json:"type" validate:"notblank"`
	Date             string                   `json:"date" validate:"notblank"`
	AcademicYear     string                   `json:"academicYear"`
	MinisterPolicyID *uuid.UUID               `json:"ministerPolicyId"`
	OBECPolicyID     *uuid.UUID               `json:"obecPolicyId"`
	AreaPolicyID     *uuid.UUID               `json:"areaPolicyId"`
	Summary          string                   `json:"summary"`
	Suggestions      string                   `json:"suggestions"`
	Status           models.SupervisionStatus `json:"status" validate:"supervision_status"`
	Indicators       []IndicatorRequest       `json:"indicators" validate:"required,min=1,dive"`
	Attachments      []AttachmentRequest      `json:"attachments" validate:"dive"`
}

// ApproveInput is the approval request. An empty status means APPROVED.
type ApproveInput struct {
	Status models.SupervisionStatus `json:"status" validate:"supervision_status"`
}

// AcknowledgeInput is a school's acknowledgement request.
type AcknowledgeInput struct {
	Comment string `json:"comment"`
}

// SupervisionListFilter holds the explicit filters of a supervision listing.
type SupervisionListFilter struct {
	SchoolID     *uuid.UUID
	Status       *models.SupervisionStatus
	AcademicYear *string
}

// SupervisionService runs the supervision workflow.
type SupervisionService interface {
	Create(ctx context.Context, actor *models.Actor, in SupervisionInput) (*models.Supervision, error)
	Get(ctx context.Context, actor *models.Actor, id uuid.UUID) (*models.Supervision, error)
	// List applies the actor's implicit scope on top of filter.
	List(ctx context.Context, actor *models.Actor, filter SupervisionListFilter) ([]*models.Supervision, error)
	Update(ctx context.Context, actor *models.Actor, id uuid.UUID, in SupervisionInput) (*models.Supervision, error)
	Delete(ctx context.Context, actor *models.Actor, id uuid.UUID) error

	// Approve sets the approval status and notifies the school when the result is APPROVED.
	Approve(ctx context.Context, actor *models.Actor, id uuid.UUID, in ApproveInput) (*models.Supervision, error)

	// Acknowledge records the school's receipt of an approved supervision, at most once.
	Acknowledge(ctx context.Context, actor *models.Actor, id uuid.UUID, in AcknowledgeInput) (*models.Acknowledgement, error)
}

type supervisionService struct {
	supervisions repositories.SupervisionRepository
	acks         repositories.AcknowledgementRepository
	schools      repositories.SchoolRepository
	users        repositories.UserRepository
	policies     repositories.PolicyRepository
	activity     ActivityLogService
	mailer       email.Sender
	baseURL      string
	logger       *zap.Logger
}

// NewSupervisionService creates a new SupervisionService.
// baseURL is used to build links in notification emails.
func NewSupervisionService(
	supervisions repositories.SupervisionRepository,
	acks repositories.AcknowledgementRepository,
	schools repositories.SchoolRepository,
	users repositories.UserRepository,
	policies repositories.PolicyRepository,
	activity ActivityLogService,
	mailer email.Sender,
	baseURL string,
	logger *zap.Logger,
) SupervisionService {
	return &supervisionService{
		supervisions: supervisions,
		acks:         acks,
		schools:      schools,
		users:        users,
		policies:     policies,
		activity:     activity,
		mailer:       mailer,
		baseURL:      strings.TrimRight(baseURL, "/"),
		logger:       logger.Named("supervision-service"),
	}
}

var _ SupervisionService = (*supervisionService)(nil)

func (s *supervisionService) Create(ctx context.Context, actor *models.Actor, in SupervisionInput) (*models.Supervision, error) {
	if err := authz.Gate(actor, authz.SupervisionCreate); err != nil {
		return nil, err
	}
	if in.SchoolID == uuid.Nil {
		return nil, apperrors.NewValidationError("School is required", apperrors.FieldError{
			Field: "schoolId", Error: "schoolId is required",
		})
	}

	if _, err := s.schools.GetByID(ctx, in.SchoolID); err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, fmt.Errorf("%w: school", apperrors.ErrNotFound)
		}
		return nil, err
	}

	res := &authz.Resource{SchoolID: in.SchoolID}
	if actor.Role == models.RoleSupervisor {
		assigned, err := s.users.IsAssigned(ctx, actor.ID, in.SchoolID)
		if err != nil {
			return nil, err
		}
		res.ActorAssigned = assigned
	}
	if err := authz.Check(actor, authz.SupervisionCreate, res); err != nil {
		return nil, err
	}

	status, err := lifecycle.InitialStatus(in.Status)
	if err != nil {
		return nil, err
	}
	date, err := parseVisitDate(in.Date)
	if err != nil {
		return nil, err
	}

	sup := &models.Supervision{
		ID:       uuid.New(),
		SchoolID: in.SchoolID,
		UserID:   actor.ID,
		Status:   status,
		Date:     date,
	}
	if in.UserID != nil && *in.UserID != uuid.Nil && actor.Role == models.RoleAdmin {
		sup.UserID = *in.UserID
	}
	applySupervisionFields(sup, in)

	if err := s.validatePolicies(ctx, sup); err != nil {
		return nil, err
	}

	sup.Indicators = lifecycle.BuildIndicators(sup.ID, indicatorInputs(in.Indicators))
	if err := lifecycle.RequireIndicators(sup.Indicators); err != nil {
		return nil, err
	}
	sup.Attachments = make([]models.Attachment, 0, len(in.Attachments))
	for _, a := range attachmentInputs(in.Attachments) {
		sup.Attachments = append(sup.Attachments, lifecycle.NewAttachment(sup.ID, a))
	}

	if err := s.supervisions.Create(ctx, sup); err != nil {
		return nil, err
	}

	s.activity.Record(ctx, actor, models.ActionCreateSupervision, models.EntitySupervisions, sup.ID, map[string]any{
		"schoolId": sup.SchoolID.String(),
		"type":     sup.Type,
		"status":   string(sup.Status),
	})
	return s.supervisions.GetByID(ctx, sup.ID)
}

func (s *supervisionService) Get(ctx context.Context, actor *models.Actor, id uuid.UUID) (*models.Supervision, error) {
	if err := authz.Gate(actor, authz.SupervisionView); err != nil {
		return nil, err
	}
	sup, err := s.supervisions.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	res, err := s.resourceFor(ctx, actor, sup)
	if err != nil {
		return nil, err
	}
	if err := authz.Check(actor, authz.SupervisionView, res); err != nil {
		return nil, err
	}
	return sup, nil
}

// resourceFor builds the authorization snapshot of sup for actor.
func (s *supervisionService) resourceFor(ctx context.Context, actor *models.Actor, sup *models.Supervision) (*authz.Resource, error) {
	res := &authz.Resource{OwnerID: sup.UserID, SchoolID: sup.SchoolID}
	switch actor.Role {
	case models.RoleSupervisor:
		if sup.UserID != actor.ID {
			assigned, err := s.users.IsAssigned(ctx, actor.ID, sup.SchoolID)
			if err != nil {
				return nil, err
			}
			res.ActorAssigned = assigned
		}
	case models.RoleSchool:
		school, err := resolveActorSchool(ctx, s.schools, actor)
		if err != nil {
			return nil, err
		}
		res.ActorSchoolID = schoolIDOf(school)
	}
	return res, nil
}

func (s *supervisionService) List(ctx context.Context, actor *models.Actor, filter SupervisionListFilter) ([]*models.Supervision, error) {
	if err := authz.Gate(actor, authz.SupervisionList); err != nil {
		return nil, err
	}
	if filter.Status != nil && !filter.Status.IsValid() {
		return nil, apperrors.NewValidationError("Invalid status", apperrors.FieldError{
			Field: "status", Error: fmt.Sprintf("unknown status %q", *filter.Status),
		})
	}

	var actorSchoolID *uuid.UUID
	if actor.Role == models.RoleSchool {
		school, err := resolveActorSchool(ctx, s.schools, actor)
		if err != nil {
			return nil, err
		}
		actorSchoolID = schoolIDOf(school)
	}
	scope, err := authz.SupervisionScope(actor, actorSchoolID)
	if err != nil {
		return nil, err
	}

	f := models.SupervisionFilter{
		SchoolID:     filter.SchoolID,
		Status:       filter.Status,
		AcademicYear: filter.AcademicYear,
	}
	if scope.Apply(&f) {
		return []*models.Supervision{}, nil
	}

	list, err := s.supervisions.List(ctx, f)
	if err != nil {
		return nil, err
	}
	if list == nil {
		list = []*models.Supervision{}
	}
	return list, nil
}

func (s *supervisionService) Update(ctx context.Context, actor *models.Actor, id uuid.UUID, in SupervisionInput) (*models.Supervision, error) {
	if err := authz.Gate(actor, authz.SupervisionUpdate); err != nil {
		return nil, err
	}
	existing, err := s.supervisions.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := authz.Check(actor, authz.SupervisionUpdate, &authz.Resource{
		OwnerID:  existing.UserID,
		SchoolID: existing.SchoolID,
	}); err != nil {
		return nil, err
	}

	status, err := lifecycle.EditStatus(in.Status, existing.Status)
	if err != nil {
		return nil, err
	}
	date, err := parseVisitDate(in.Date)
	if err != nil {
		return nil, err
	}

	updated := *existing
	updated.Status = status
	updated.Date = date
	applySupervisionFields(&updated, in)

	if err := s.validatePolicies(ctx, &updated); err != nil {
		return nil, err
	}

	indicators := lifecycle.BuildIndicators(existing.ID, indicatorInputs(in.Indicators))
	diff := lifecycle.DiffAttachments(existing.ID, existing.Attachments, attachmentInputs(in.Attachments))
	if err := s.supervisions.Update(ctx, &updated, indicators, diff); err != nil {
		return nil, err
	}

	s.activity.Record(ctx, actor, models.ActionUpdateSupervision, models.EntitySupervisions, existing.ID, map[string]any{
		"status":             string(updated.Status),
		"previousStatus":     string(existing.Status),
		"indicators":         len(indicators),
		"attachmentsAdded":   len(diff.Add),
		"attachmentsDeleted": len(diff.Delete),
	})
	return s.supervisions.GetByID(ctx, id)
}

func (s *supervisionService) Delete(ctx context.Context, actor *models.Actor, id uuid.UUID) error {
	if err := authz.Gate(actor, authz.SupervisionDelete); err != nil {
		return err
	}
	existing, err := s.supervisions.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if err := authz.Check(actor, authz.SupervisionDelete, &authz.Resource{
		OwnerID:  existing.UserID,
		SchoolID: existing.SchoolID,
	}); err != nil {
		return err
	}

	if err := s.supervisions.Delete(ctx, id); err != nil {
		return err
	}

	s.activity.Record(ctx, actor, models.ActionDeleteSupervision, models.EntitySupervisions, id, map[string]any{
		"schoolId": existing.SchoolID.String(),
		"type":     existing.Type,
	})
	return nil
}

func (s *supervisionService) Approve(ctx context.Context, actor *models.Actor, id uuid.UUID, in ApproveInput) (*models.Supervision, error) {
	if err := authz.Check(actor, authz.SupervisionApprove, nil); err != nil {
		return nil, err
	}
	status, err := lifecycle.ApprovalStatus(in.Status)
	if err != nil {
		return nil, err
	}

	existing, err := s.supervisions.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.supervisions.UpdateStatus(ctx, id, status); err != nil {
		return nil, err
	}

	s.activity.Record(ctx, actor, models.ActionApproveSupervision, models.EntitySupervisions, id, map[string]any{
		"status":         string(status),
		"previousStatus": string(existing.Status),
	})

	if lifecycle.ShouldNotify(status) {
		s.notifyApproval(ctx, existing)
	}
	return s.supervisions.GetByID(ctx, id)
}

// notifyApproval emails the school about an approved supervision. Failures are
// logged and never returned.
func (s *supervisionService) notifyApproval(ctx context.Context, sup *models.Supervision) {
	if s.mailer == nil {
		return
	}
	school, err := s.schools.GetByID(ctx, sup.SchoolID)
	if err != nil {
		s.logger.Warn("Failed to load school for approval email",
			zap.String("supervision_id", sup.ID.String()),
			zap.Error(err))
		return
	}
	if school.Email == "" {
		s.logger.Debug("School has no email, skipping approval notification",
			zap.String("school_id", school.ID.String()))
		return
	}

	msg, err := email.ApprovalMessage(email.Approval{
		To:            school.Email,
		SchoolName:    school.Name,
		SupervisionID: sup.ID,
		Date:          sup.Date,
		BaseURL:       s.baseURL,
	})
	if err != nil {
		s.logger.Error("Failed to render approval email", zap.Error(err))
		return
	}
	if err := s.mailer.Send(ctx, msg); err != nil {
		s.logger.Error("Failed to send approval email",
			zap.String("supervision_id", sup.ID.String()),
			zap.String("school_id", school.ID.String()),
			zap.Error(err))
		return
	}
	s.logger.Info("Approval email sent",
		zap.String("supervision_id", sup.ID.String()),
		zap.String("school_id", school.ID.String()))
}

func (s *supervisionService) Acknowledge(ctx context.Context, actor *models.Actor, id uuid.UUID, in AcknowledgeInput) (*models.Acknowledgement, error) {
	if err := authz.Gate(actor, authz.SupervisionAcknowledge); err != nil {
		return nil, err
	}
	sup, err := s.supervisions.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	school, err := resolveActorSchool(ctx, s.schools, actor)
	if err != nil {
		return nil, err
	}
	if err := authz.Check(actor, authz.SupervisionAcknowledge, &authz.Resource{
		SchoolID:      sup.SchoolID,
		ActorSchoolID: schoolIDOf(school),
	}); err != nil {
		return nil, err
	}
	if err := lifecycle.CanAcknowledge(sup.Status, sup.Acknowledgement); err != nil {
		return nil, err
	}

	principal := ""
	if school != nil {
		principal = school.PrincipalName
	}
	ack := &models.Acknowledgement{
		SupervisionID:  sup.ID,
		AcknowledgedBy: lifecycle.AcknowledgedBy(principal, actor.Name),
		Comment:        optionalString(in.Comment),
	}
	if err := s.acks.Create(ctx, ack); err != nil {
		return nil, err
	}

	s.activity.Record(ctx, actor, models.ActionAcknowledgeSupervision, models.EntitySupervisions, sup.ID, map[string]any{
		"acknowledgedBy": ack.AcknowledgedBy,
	})
	return ack, nil
}

// validatePolicies checks each populated policy slot in minister, OBEC, area
// order and reports the first slot whose policy does not exist.
func (s *supervisionService) validatePolicies(ctx context.Context, sup *models.Supervision) error {
	refs := sup.PolicyRefs()
	var ids []uuid.UUID
	for _, id := range refs {
		if id != nil {
			ids = append(ids, *id)
		}
	}
	if len(ids) == 0 {
		return nil
	}

	found, err := s.policies.ExistingIDs(ctx, ids)
	if err != nil {
		return err
	}
	for _, slot := range []models.PolicySlot{models.PolicySlotMinister, models.PolicySlotOBEC, models.PolicySlotArea} {
		id := refs[slot]
		if id != nil && !found[*id] {
			return apperrors.NewValidationError("Invalid "+slot.Label(), apperrors.FieldError{
				Field: slot.Field(),
				Error: "policy does not exist",
			})
		}
	}
	return nil
}

func applySupervisionFields(sup *models.Supervision, in SupervisionInput) {
	sup.Type = strings.TrimSpace(in.Type)
	sup.AcademicYear = optionalString(in.AcademicYear)
	sup.MinisterPolicyID = nonNilID(in.MinisterPolicyID)
	sup.OBECPolicyID = nonNilID(in.OBECPolicyID)
	sup.AreaPolicyID = nonNilID(in.AreaPolicyID)
	sup.Summary = in.Summary
	sup.Suggestions = in.Suggestions
}

func nonNilID(id *uuid.UUID) *uuid.UUID {
	if id == nil || *id == uuid.Nil {
		return nil
	}
	v := *id
	return &v
}

func indicatorInputs(in []IndicatorRequest) []lifecycle.IndicatorInput {
	out := make([]lifecycle.IndicatorInput, 0, len(in))
	for _, i := range in {
		out = append(out, lifecycle.IndicatorInput{
			Name:    strings.TrimSpace(i.Name),
			Level:   i.Level,
			Comment: strings.TrimSpace(i.Comment),
		})
	}
	return out
}

func attachmentInputs(in []AttachmentRequest) []lifecycle.AttachmentInput {
	out := make([]lifecycle.AttachmentInput, 0, len(in))
	for _, a := range in {
		out = append(out, lifecycle.AttachmentInput{
			Ref:      a.ID,
			Filename: a.Filename,
			FileURL:  a.FileURL,
			FileType: a.FileType,
			FileSize: a.FileSize,
		})
	}
	return out
}

var visitDateLayouts = []string{time.RFC3339, "2006-01-02T15:04", "2006-01-02"}

// parseVisitDate accepts RFC 3339 timestamps and the date-only form sent by HTML date inputs.
func parseVisitDate(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	for _, layout := range visitDateLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t, nil
		}
	}
	return time.Time{}, apperrors.NewValidationError("Invalid date", apperrors.FieldError{
		Field: "date", Error: "must be a date (YYYY-MM-DD) or RFC 3339 timestamp",
	})
}
