package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/edusupervise/supervision-engine/pkg/apperrors"
	"github.com/edusupervise/supervision-engine/pkg/authz"
	"github.com/edusupervise/supervision-engine/pkg/models"
	"github.com/edusupervise/supervision-engine/pkg/tabular"
	"github.com/edusupervise/supervision-engine/pkg/validation"
)

// ImportService bulk-loads schools, network groups and policies from CSV or
// XLSX files. Each row goes through the same create operation as the
// single-record API, so uniqueness and validation rules are shared.
type ImportService interface {
	// Import reads content, whose format is taken from filename, and creates
	// one record per data row. Row failures are reported in the result; only
	// file-level problems are returned as errors.
	Import(ctx context.Context, actor *models.Actor, kind models.ImportKind, filename string, content io.Reader) (*models.ImportResult, error)
}

type importService struct {
	schools   SchoolService
	groups    NetworkGroupService
	policies  PolicyService
	activity  ActivityLogService
	validator *validation.Validator
	logger    *zap.Logger
}

// NewImportService creates a new ImportService.
func NewImportService(
	schools SchoolService,
	groups NetworkGroupService,
	policies PolicyService,
	activity ActivityLogService,
	validator *validation.Validator,
	logger *zap.Logger,
) ImportService {
	return &importService{
		schools:   schools,
		groups:    groups,
		policies:  policies,
		activity:  activity,
		validator: validator,
		logger:    logger.Named("import-service"),
	}
}

var _ ImportService = (*importService)(nil)

// rowImporter creates the record for one row.
type rowImporter func(ctx context.Context, row tabular.Row) error

func (s *importService) Import(ctx context.Context, actor *models.Actor, kind models.ImportKind, filename string, content io.Reader) (*models.ImportResult, error) {
	if err := authz.Gate(actor, authz.DataImport); err != nil {
		return nil, err
	}
	if !kind.IsValid() {
		return nil, apperrors.NewValidationError("Invalid import type", apperrors.FieldError{
			Field: "type",
			Error: "must be one of schools, networkGroups, policies",
		})
	}

	format, err := tabular.FormatOf(filename)
	if err != nil {
		return nil, apperrors.NewValidationError("Invalid file type", apperrors.FieldError{Field: "file", Error: err.Error()})
	}
	rows, err := tabular.Read(format, content)
	if err != nil {
		return nil, apperrors.NewValidationError("Failed to read file", apperrors.FieldError{Field: "file", Error: err.Error()})
	}
	if len(rows) == 0 {
		return nil, apperrors.NewValidationError("File has no data rows")
	}

	var importRow rowImporter
	switch kind {
	case models.ImportSchools:
		importRow, err = s.schoolImporter(ctx, actor)
		if err != nil {
			return nil, err
		}
	case models.ImportNetworkGroups:
		importRow = s.networkGroupImporter(actor)
	case models.ImportPolicies:
		importRow = s.policyImporter(actor)
	}

	result := &models.ImportResult{Kind: kind, Errors: []models.ImportRowError{}}
	for _, row := range rows {
		if err := importRow(ctx, row); err != nil {
			msg, err := s.rowMessage(err)
			if err != nil {
				return nil, err
			}
			result.Failed++
			result.Errors = append(result.Errors, models.ImportRowError{Row: row.Line, Message: msg})
			continue
		}
		result.Success++
	}

	s.logger.Info("Import finished",
		zap.String("kind", string(kind)),
		zap.Int("success", result.Success),
		zap.Int("failed", result.Failed))
	s.activity.Record(ctx, actor, models.ActionImportData, models.EntityImports, uuid.Nil, map[string]any{
		"kind":    kind,
		"file":    filename,
		"success": result.Success,
		"failed":  result.Failed,
	})
	return result, nil
}

// rowMessage turns a row failure into its report text. Store failures other
// than the domain errors abort the import.
func (s *importService) rowMessage(err error) (string, error) {
	var ve *apperrors.ValidationError
	switch {
	case errors.As(err, &ve):
		return ve.Error(), nil
	case errors.Is(err, apperrors.ErrValidation),
		errors.Is(err, apperrors.ErrConflict),
		errors.Is(err, apperrors.ErrNotFound):
		return err.Error(), nil
	default:
		return "", err
	}
}

func (s *importService) schoolImporter(ctx context.Context, actor *models.Actor) (rowImporter, error) {
	groups, err := s.groups.List(ctx, actor)
	if err != nil {
		return nil, err
	}
	groupIDs := make(map[string]uuid.UUID, len(groups))
	for _, g := range groups {
		groupIDs[g.Code] = g.ID
	}

	return func(ctx context.Context, row tabular.Row) error {
		if row.Get("district") == "" {
			return apperrors.NewValidationError("Missing required fields", apperrors.FieldError{
				Field: "district", Error: "district is required",
			})
		}
		students, err := countCell(row, "studentCount")
		if err != nil {
			return err
		}
		teachers, err := countCell(row, "teacherCount")
		if err != nil {
			return err
		}

		in := SchoolInput{
			Code:          row.Get("code"),
			Name:          row.Get("name"),
			Province:      row.Get("province"),
			District:      row.Get("district"),
			SubDistrict:   row.Get("subDistrict"),
			Address:       row.Get("address"),
			Phone:         row.Get("phone"),
			Email:         row.Get("email"),
			PrincipalName: row.Get("principalName"),
			StudentCount:  students,
			TeacherCount:  teachers,
		}
		if code := row.Get("networkGroupCode"); code != "" {
			id, ok := groupIDs[code]
			if !ok {
				return fmt.Errorf("%w: network group code %s not found", apperrors.ErrNotFound, code)
			}
			in.NetworkGroupID = &id
		}
		if err := s.validator.Struct(in); err != nil {
			return err
		}
		_, err = s.schools.Create(ctx, actor, in)
		return err
	}, nil
}

func (s *importService) networkGroupImporter(actor *models.Actor) rowImporter {
	return func(ctx context.Context, row tabular.Row) error {
		in := NetworkGroupInput{
			Code:        row.Get("code"),
			Name:        row.Get("name"),
			Description: row.Get("description"),
		}
		if err := s.validator.Struct(in); err != nil {
			return err
		}
		_, err := s.groups.Create(ctx, actor, in)
		return err
	}
}

func (s *importService) policyImporter(actor *models.Actor) rowImporter {
	return func(ctx context.Context, row tabular.Row) error {
		raw := row.Get("type")
		policyType, ok := models.ParsePolicyType(raw)
		if !ok {
			return invalidPolicyType(models.PolicyType(raw))
		}
		active, err := activeCell(row.Get("isActive"))
		if err != nil {
			return err
		}

		in := CreatePolicyInput{
			Code:        row.Get("code"),
			Title:       row.Get("title"),
			Description: row.Get("description"),
			Type:        policyType,
			IsActive:    &active,
		}
		if err := s.validator.Struct(in); err != nil {
			return err
		}
		_, err = s.policies.Create(ctx, actor, in)
		return err
	}
}

// countCell reads an optional non-negative whole number.
func countCell(row tabular.Row, key string) (int, error) {
	v := row.Get(key)
	if v == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(strings.ReplaceAll(v, ",", ""))
	if err != nil || n < 0 {
		return 0, apperrors.NewValidationError("Invalid number", apperrors.FieldError{
			Field: key, Error: fmt.Sprintf("%q is not a whole number", v),
		})
	}
	return n, nil
}

// activeCell reads the isActive column. Blank means active.
func activeCell(v string) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "", "true", "1", "yes", "ใช่":
		return true, nil
	case "false", "0", "no", "ไม่":
		return false, nil
	default:
		return false, apperrors.NewValidationError("Invalid isActive", apperrors.FieldError{
			Field: "isActive", Error: fmt.Sprintf("%q is not a yes/no value", v),
		})
	}
}
