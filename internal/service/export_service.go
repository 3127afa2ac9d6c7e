package service

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/klil-music/conservatory-api/internal/models"
	appErrors "github.com/klil-music/conservatory-api/pkg/errors"
	"github.com/klil-music/conservatory-api/pkg/export"
	"github.com/klil-music/conservatory-api/pkg/timeutil"
)

// ExportFormat selects the rendered output type.
type ExportFormat string

const (
	ExportFormatCSV ExportFormat = "csv"
	ExportFormatPDF ExportFormat = "pdf"
)

type weekProvider interface {
	TeacherWeek(ctx context.Context, teacherID string) (*models.TeacherWeeklySchedule, bool, error)
}

// ExportResult carries the rendered bytes and response metadata.
type ExportResult struct {
	Payload     []byte
	ContentType string
	Filename    string
}

// ExportService renders weekly teacher schedules as CSV or PDF downloads.
type ExportService struct {
	availability weekProvider
	teachers     availabilityTeacherLookup
	csv          export.Renderer
	pdf          export.Renderer
	logger       *zap.Logger
}

// NewExportService constructs an ExportService.
func NewExportService(availability weekProvider, teachers availabilityTeacherLookup, csv, pdf export.Renderer, logger *zap.Logger) *ExportService {
	if csv == nil {
		csv = export.NewCSVRenderer()
	}
	if pdf == nil {
		pdf = export.NewPDFRenderer()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ExportService{availability: availability, teachers: teachers, csv: csv, pdf: pdf, logger: logger}
}

// TeacherSchedule renders a teacher's full week in the requested format.
func (s *ExportService) TeacherSchedule(ctx context.Context, teacherID string, format ExportFormat) (*ExportResult, error) {
	teacher, err := s.teachers.FindByID(ctx, teacherID)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "teacher not found")
	}

	week, _, err := s.availability.TeacherWeek(ctx, teacherID)
	if err != nil {
		return nil, err
	}

	table := buildScheduleTable(*week)
	table.Title = fmt.Sprintf("Weekly Schedule - %s", teacher.FullName)

	var payload []byte
	var contentType, ext string
	switch format {
	case ExportFormatCSV:
		payload, err = s.csv.Render(table)
		contentType, ext = "text/csv", "csv"
	case ExportFormatPDF:
		payload, err = s.pdf.Render(table)
		contentType, ext = "application/pdf", "pdf"
	default:
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unsupported export format %q", format))
	}
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render schedule")
	}

	filename := fmt.Sprintf("schedule-%s.%s", sanitizeFilename(teacher.FullName), ext)
	return &ExportResult{Payload: payload, ContentType: contentType, Filename: filename}, nil
}

func buildScheduleTable(week models.TeacherWeeklySchedule) export.Table {
	columns := []string{"Day", "Start", "End", "Duration", "Status", "Student", "Location"}
	var rows [][]string

	for day := timeutil.Sunday; day <= timeutil.Saturday; day++ {
		for _, slot := range week.Days[day] {
			status := "available"
			student := ""
			if slot.Booked() {
				status = "booked"
				student = *slot.StudentID
			}
			location := ""
			if slot.Location != nil {
				location = *slot.Location
			}
			rows = append(rows, []string{
				day.String(),
				slot.StartTime,
				slot.EndTime,
				fmt.Sprintf("%d", slot.Duration),
				status,
				student,
				location,
			})
		}
	}

	return export.Table{Columns: columns, Rows: rows}
}

func sanitizeFilename(name string) string {
	name = strings.ToLower(strings.TrimSpace(name))
	name = strings.ReplaceAll(name, " ", "-")
	var b strings.Builder
	for _, r := range name {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') || r == '-' {
			b.WriteRune(r)
		}
	}
	if b.Len() == 0 {
		return "teacher"
	}
	return b.String()
}
