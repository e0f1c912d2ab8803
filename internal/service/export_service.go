package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"

	"go.uber.org/zap"

	"github.com/noah-isme/maktab-fin-api/internal/models"
	appErrors "github.com/noah-isme/maktab-fin-api/pkg/errors"
	"github.com/noah-isme/maktab-fin-api/pkg/export"
)

type receiptReader interface {
	FindByID(ctx context.Context, id string) (*models.Payment, error)
}

type runDetailReader interface {
	FindRunByID(ctx context.Context, id string) (*models.PayrollRun, error)
	ListLines(ctx context.Context, runID string) ([]models.PayrollLine, error)
	RunTotal(ctx context.Context, runID string) (int64, error)
}

// ExportService renders tuition receipts as PDF and payroll runs as CSV.
type ExportService struct {
	payments receiptReader
	students studentReader
	runs     runDetailReader
	pdf      *export.PDFExporter
	csv      *export.CSVExporter
	logger   *zap.Logger
}

// NewExportService constructs ExportService.
func NewExportService(payments receiptReader, students studentReader, runs runDetailReader, logger *zap.Logger) *ExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ExportService{
		payments: payments,
		students: students,
		runs:     runs,
		pdf:      export.NewPDFExporter(),
		csv:      export.NewCSVExporter(),
		logger:   logger,
	}
}

// PaymentReceipt renders a PDF receipt for one payment: header with student
// and payment metadata, one table row per closed month.
func (s *ExportService) PaymentReceipt(ctx context.Context, paymentID string) ([]byte, error) {
	payment, err := s.payments.FindByID(ctx, paymentID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "payment not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load payment")
	}
	student, err := s.students.FindByID(ctx, payment.StudentID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student")
	}

	header := [][2]string{
		{"Receipt No", payment.ID},
		{"Date", payment.CreatedAt.Format("2006-01-02 15:04")},
		{"Student", student.FullName},
		{"Student Code", student.Code},
		{"Payment Type", string(payment.Type)},
		{"Status", string(payment.Status)},
		{"Amount", formatSoum(payment.Amount)},
	}

	data := export.Dataset{Headers: []string{"#", "Closed Month"}}
	for i, month := range payment.ClosedMonths {
		data.Rows = append(data.Rows, map[string]string{
			"#":            strconv.Itoa(i + 1),
			"Closed Month": month,
		})
	}

	out, err := s.pdf.Render(data, "Tuition Payment Receipt", header)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render receipt")
	}
	return out, nil
}

// PayrollRunCSV renders the run's lines as CSV, with a trailing total row.
func (s *ExportService) PayrollRunCSV(ctx context.Context, runID string) ([]byte, *models.PayrollRun, error) {
	run, err := s.runs.FindRunByID(ctx, runID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil, appErrors.Clone(appErrors.ErrNotFound, "payroll run not found")
		}
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load payroll run")
	}
	lines, err := s.runs.ListLines(ctx, runID)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list run lines")
	}
	total, err := s.runs.RunTotal(ctx, runID)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to total run")
	}

	data := export.Dataset{Headers: []string{"Teacher", "Type", "Amount", "Description", "Lesson"}}
	for _, line := range lines {
		lessonRef := ""
		if line.SourceLessonID != nil {
			lessonRef = *line.SourceLessonID
		}
		data.Rows = append(data.Rows, map[string]string{
			"Teacher":     line.PayeeTeacherID,
			"Type":        string(line.Type),
			"Amount":      strconv.FormatInt(line.Amount, 10),
			"Description": line.Description,
			"Lesson":      lessonRef,
		})
	}
	data.Rows = append(data.Rows, map[string]string{
		"Teacher": "TOTAL",
		"Amount":  strconv.FormatInt(total, 10),
	})

	out, err := s.csv.Render(data)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render csv")
	}
	return out, run, nil
}

func formatSoum(amount int64) string {
	return fmt.Sprintf("%d UZS", amount)
}
