package services

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	"go.uber.org/zap"

	"github.com/edusupervise/supervision-engine/pkg/authz"
	"github.com/edusupervise/supervision-engine/pkg/models"
)

// utf8BOM lets spreadsheet applications detect UTF-8 for the Thai text.
const utf8BOM = "\ufeff"

var reportHeader = []string{
	"date", "school_code", "school_name", "type", "academic_year", "status",
	"supervisor", "indicators", "acknowledged", "acknowledged_by",
}

// ReportService exports supervision records.
type ReportService interface {
	// ExportSupervisions writes the supervisions visible to actor as CSV and
	// returns the number of data rows written.
	ExportSupervisions(ctx context.Context, actor *models.Actor, filter SupervisionListFilter, w io.Writer) (int, error)
}

type reportService struct {
	supervisions SupervisionService
	logger       *zap.Logger
}

// NewReportService creates a new ReportService listing through supervisions so
// exports follow the same scoping as the supervision list.
func NewReportService(supervisions SupervisionService, logger *zap.Logger) ReportService {
	return &reportService{
		supervisions: supervisions,
		logger:       logger.Named("report-service"),
	}
}

var _ ReportService = (*reportService)(nil)

func (s *reportService) ExportSupervisions(ctx context.Context, actor *models.Actor, filter SupervisionListFilter, w io.Writer) (int, error) {
	if err := authz.Check(actor, authz.ReportExport, nil); err != nil {
		return 0, err
	}
	list, err := s.supervisions.List(ctx, actor, filter)
	if err != nil {
		return 0, err
	}

	if _, err := io.WriteString(w, utf8BOM); err != nil {
		return 0, fmt.Errorf("write report: %w", err)
	}
	cw := csv.NewWriter(w)
	if err := cw.Write(reportHeader); err != nil {
		return 0, fmt.Errorf("write report header: %w", err)
	}
	for _, sup := range list {
		if err := cw.Write(reportRow(sup)); err != nil {
			return 0, fmt.Errorf("write report row: %w", err)
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return 0, fmt.Errorf("flush report: %w", err)
	}

	s.logger.Debug("Supervision report exported",
		zap.String("user_id", actor.ID.String()),
		zap.Int("rows", len(list)))
	return len(list), nil
}

func reportRow(sup *models.Supervision) []string {
	var schoolCode, schoolName, author string
	if sup.School != nil {
		schoolCode, schoolName = sup.School.Code, sup.School.Name
	}
	if sup.Author != nil {
		author = sup.Author.Name
	}
	acknowledged, acknowledgedBy := "no", ""
	if sup.Acknowledgement != nil {
		acknowledged, acknowledgedBy = "yes", sup.Acknowledgement.AcknowledgedBy
	}
	return []string{
		sup.Date.Format("2006-01-02"),
		schoolCode,
		schoolName,
		sup.Type,
		derefString(sup.AcademicYear),
		string(sup.Status),
		author,
		strconv.Itoa(len(sup.Indicators)),
		acknowledged,
		acknowledgedBy,
	}
}
