package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/edusupervise/supervision-engine/pkg/apperrors"
	"github.com/edusupervise/supervision-engine/pkg/authz"
	"github.com/edusupervise/supervision-engine/pkg/models"
	"github.com/edusupervise/supervision-engine/pkg/repositories"
)

// NetworkGroupInput is the create and update request for a network group.
type NetworkGroupInput struct {
	Code        string `json:"code" validate:"notblank,max=50"`
	Name        string `json:"name" validate:"notblank,max=255"`
	Description string `json:"description"`
}

// NetworkGroupService manages administrative school groupings.
type NetworkGroupService interface {
	List(ctx context.Context, actor *models.Actor) ([]*models.NetworkGroup, error)
	Get(ctx context.Context, actor *models.Actor, id uuid.UUID) (*models.NetworkGroup, error)
	Create(ctx context.Context, actor *models.Actor, in NetworkGroupInput) (*models.NetworkGroup, error)
	Update(ctx context.Context, actor *models.Actor, id uuid.UUID, in NetworkGroupInput) (*models.NetworkGroup, error)
	// Delete refuses with ErrInUse while any school belongs to the group.
	Delete(ctx context.Context, actor *models.Actor, id uuid.UUID) error
}

type networkGroupService struct {
	groups repositories.NetworkGroupRepository
	logger *zap.Logger
}

// NewNetworkGroupService creates a new NetworkGroupService.
func NewNetworkGroupService(groups repositories.NetworkGroupRepository, logger *zap.Logger) NetworkGroupService {
	return &networkGroupService{
		groups: groups,
		logger: logger.Named("network-group-service"),
	}
}

var _ NetworkGroupService = (*networkGroupService)(nil)

func (s *networkGroupService) List(ctx context.Context, actor *models.Actor) ([]*models.NetworkGroup, error) {
	if err := authz.Check(actor, authz.NetworkGroupView, nil); err != nil {
		return nil, err
	}
	return s.groups.List(ctx)
}

func (s *networkGroupService) Get(ctx context.Context, actor *models.Actor, id uuid.UUID) (*models.NetworkGroup, error) {
	if err := authz.Check(actor, authz.NetworkGroupView, nil); err != nil {
		return nil, err
	}
	return s.groups.GetByID(ctx, id)
}

func (s *networkGroupService) Create(ctx context.Context, actor *models.Actor, in NetworkGroupInput) (*models.NetworkGroup, error) {
	if err := authz.Check(actor, authz.NetworkGroupManage, nil); err != nil {
		return nil, err
	}
	group := &models.NetworkGroup{
		Code:        strings.TrimSpace(in.Code),
		Name:        strings.TrimSpace(in.Name),
		Description: in.Description,
	}
	if err := s.groups.Create(ctx, group); err != nil {
		return nil, err
	}
	return group, nil
}

func (s *networkGroupService) Update(ctx context.Context, actor *models.Actor, id uuid.UUID, in NetworkGroupInput) (*models.NetworkGroup, error) {
	if err := authz.Check(actor, authz.NetworkGroupManage, nil); err != nil {
		return nil, err
	}
	group, err := s.groups.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	group.Code = strings.TrimSpace(in.Code)
	group.Name = strings.TrimSpace(in.Name)
	group.Description = in.Description
	if err := s.groups.Update(ctx, group); err != nil {
		return nil, err
	}
	return group, nil
}

func (s *networkGroupService) Delete(ctx context.Context, actor *models.Actor, id uuid.UUID) error {
	if err := authz.Check(actor, authz.NetworkGroupManage, nil); err != nil {
		return err
	}
	if _, err := s.groups.GetByID(ctx, id); err != nil {
		return err
	}
	n, err := s.groups.CountSchools(ctx, id)
	if err != nil {
		return err
	}
	if n > 0 {
		return fmt.Errorf("%w: network group has %d schools", apperrors.ErrInUse, n)
	}
	return s.groups.Delete(ctx, id)
}
