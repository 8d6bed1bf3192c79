package services

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/edusupervise/supervision-engine/pkg/apperrors"
	"github.com/edusupervise/supervision-engine/pkg/authz"
	"github.com/edusupervise/supervision-engine/pkg/models"
	"github.com/edusupervise/supervision-engine/pkg/repositories"
)

// CreatePolicyInput is the request to create a policy.
type CreatePolicyInput struct {
	Code        string            `json:"code" validate:"notblank,max=50"`
	Title       string            `json:"title" validate:"notblank"`
	Description string            `json:"description"`
	Type        models.PolicyType `json:"type" validate:"required,policy_type"`
	IsActive    *bool             `json:"isActive"`
}

// UpdatePolicyInput changes the mutable fields of a policy. Code and type are fixed.
type UpdatePolicyInput struct {
	Title       string `json:"title" validate:"notblank"`
	Description string `json:"description"`
	IsActive    *bool  `json:"isActive"`
}

// PolicyListFilter narrows policy listings.
type PolicyListFilter struct {
	Type            *models.PolicyType
	IncludeInactive bool
}

// PolicyService manages the policy catalogue supervisions cite.
type PolicyService interface {
	List(ctx context.Context, actor *models.Actor, filter PolicyListFilter) ([]*models.Policy, error)
	Get(ctx context.Context, actor *models.Actor, id uuid.UUID) (*models.Policy, error)
	Create(ctx context.Context, actor *models.Actor, in CreatePolicyInput) (*models.Policy, error)
	Update(ctx context.Context, actor *models.Actor, id uuid.UUID, in UpdatePolicyInput) (*models.Policy, error)
	// Delete refuses with ErrInUse while any supervision cites the policy.
	Delete(ctx context.Context, actor *models.Actor, id uuid.UUID) error

	// GenerateCode proposes the next POL-{PREFIX}-{NNN} code for a policy type.
	GenerateCode(ctx context.Context, actor *models.Actor, policyType models.PolicyType) (string, error)
}

type policyService struct {
	policies repositories.PolicyRepository
	logger   *zap.Logger
}

// NewPolicyService creates a new PolicyService.
func NewPolicyService(policies repositories.PolicyRepository, logger *zap.Logger) PolicyService {
	return &policyService{
		policies: policies,
		logger:   logger.Named("policy-service"),
	}
}

var _ PolicyService = (*policyService)(nil)

func (s *policyService) List(ctx context.Context, actor *models.Actor, filter PolicyListFilter) ([]*models.Policy, error) {
	if err := authz.Check(actor, authz.PolicyView, nil); err != nil {
		return nil, err
	}
	if filter.Type != nil && !filter.Type.IsValid() {
		return nil, invalidPolicyType(*filter.Type)
	}
	return s.policies.List(ctx, repositories.PolicyFilter{
		Type:            filter.Type,
		IncludeInactive: filter.IncludeInactive,
	})
}

func (s *policyService) Get(ctx context.Context, actor *models.Actor, id uuid.UUID) (*models.Policy, error) {
	if err := authz.Check(actor, authz.PolicyView, nil); err != nil {
		return nil, err
	}
	return s.policies.GetByID(ctx, id)
}

func (s *policyService) Create(ctx context.Context, actor *models.Actor, in CreatePolicyInput) (*models.Policy, error) {
	if err := authz.Check(actor, authz.PolicyManage, nil); err != nil {
		return nil, err
	}
	if !in.Type.IsValid() {
		return nil, invalidPolicyType(in.Type)
	}

	policy := &models.Policy{
		Code:        strings.TrimSpace(in.Code),
		Title:       strings.TrimSpace(in.Title),
		Description: in.Description,
		Type:        in.Type,
		IsActive:    true,
	}
	if in.IsActive != nil {
		policy.IsActive = *in.IsActive
	}
	if err := s.policies.Create(ctx, policy); err != nil {
		return nil, err
	}
	return policy, nil
}

func (s *policyService) Update(ctx context.Context, actor *models.Actor, id uuid.UUID, in UpdatePolicyInput) (*models.Policy, error) {
	if err := authz.Check(actor, authz.PolicyManage, nil); err != nil {
		return nil, err
	}
	policy, err := s.policies.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	policy.Title = strings.TrimSpace(in.Title)
	policy.Description = in.Description
	if in.IsActive != nil {
		policy.IsActive = *in.IsActive
	}
	if err := s.policies.Update(ctx, policy); err != nil {
		return nil, err
	}
	return policy, nil
}

func (s *policyService) Delete(ctx context.Context, actor *models.Actor, id uuid.UUID) error {
	if err := authz.Check(actor, authz.PolicyManage, nil); err != nil {
		return err
	}
	if _, err := s.policies.GetByID(ctx, id); err != nil {
		return err
	}
	n, err := s.policies.CountReferences(ctx, id)
	if err != nil {
		return err
	}
	if n > 0 {
		return fmt.Errorf("%w: policy is cited by %d supervisions", apperrors.ErrInUse, n)
	}
	return s.policies.Delete(ctx, id)
}

func (s *policyService) GenerateCode(ctx context.Context, actor *models.Actor, policyType models.PolicyType) (string, error) {
	if err := authz.Check(actor, authz.PolicyManage, nil); err != nil {
		return "", err
	}
	if !policyType.IsValid() {
		return "", invalidPolicyType(policyType)
	}
	codes, err := s.policies.CodesByType(ctx, policyType)
	if err != nil {
		return "", err
	}
	return NextPolicyCode(policyType, codes), nil
}

var policyCodeNumber = regexp.MustCompile(`^POL-\w+-(\d+)$`)

// PolicyCodePrefix abbreviates a policy type: the first three letters of each
// underscore separated word, joined and cut to six characters.
func PolicyCodePrefix(policyType models.PolicyType) string {
	var b strings.Builder
	for _, word := range strings.Split(string(policyType), "_") {
		if len(word) > 3 {
			word = word[:3]
		}
		b.WriteString(word)
	}
	prefix := b.String()
	if len(prefix) > 6 {
		prefix = prefix[:6]
	}
	return prefix
}

// NextPolicyCode returns the code after the highest numbered existing code
// sharing the type's prefix.
func NextPolicyCode(policyType models.PolicyType, existing []string) string {
	head := "POL-" + PolicyCodePrefix(policyType) + "-"
	highest := 0
	for _, code := range existing {
		if !strings.HasPrefix(code, head) {
			continue
		}
		m := policyCodeNumber.FindStringSubmatch(code)
		if m == nil {
			continue
		}
		if n, err := strconv.Atoi(m[1]); err == nil && n > highest {
			highest = n
		}
	}
	return fmt.Sprintf("%s%03d", head, highest+1)
}

func invalidPolicyType(t models.PolicyType) error {
	return apperrors.NewValidationError("Invalid policy type", apperrors.FieldError{
		Field: "type",
		Error: fmt.Sprintf("unknown policy type %q", t),
	})
}
