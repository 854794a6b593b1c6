package report

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"strings"
	"time"

	common_models "go-qms/internal/common/models"
	"go-qms/internal/features/audit"

	"github.com/xuri/excelize/v2"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

const excelContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

type ReportService interface {
	CreateReport(ctx context.Context, definition *ReportDefinition) error
	GetReport(ctx context.Context, id string) (*ReportDefinition, error)
	ListReports(ctx context.Context) ([]ReportDefinition, error)
	UpdateReport(ctx context.Context, id string, definition *ReportDefinition) error
	DeleteReport(ctx context.Context, id string) error

	// Run executes the saved query and returns the projected rows.
	Run(ctx context.Context, id string) ([]map[string]any, error)

	// Build renders a named report as a downloadable file. Used by the
	// delivery scheduler for attachments.
	Build(ctx context.Context, reportName, format string) (filename, contentType string, content []byte, err error)

	// GenerateByName renders a named report and returns the filename.
	// Format comes from params ("format"), defaulting to Excel.
	GenerateByName(ctx context.Context, reportName string, params map[string]interface{}) (string, error)
}

type ReportServiceImpl struct {
	Repo   ReportRepository
	Audit  audit.AuditService
	Logger *zap.Logger
}

func NewReportService(repo ReportRepository, auditService audit.AuditService, logger *zap.Logger) ReportService {
	return &ReportServiceImpl{
		Repo:   repo,
		Audit:  auditService,
		Logger: logger,
	}
}

func (s *ReportServiceImpl) CreateReport(ctx context.Context, definition *ReportDefinition) error {
	if definition.Name == "" {
		return fmt.Errorf("report name is required")
	}
	if definition.Source == "" {
		return fmt.Errorf("report source is required")
	}
	if existing, err := s.Repo.GetByName(ctx, definition.Name); err == nil && existing != nil {
		return fmt.Errorf("report %q already exists", definition.Name)
	}
	if err := s.Repo.Create(ctx, definition); err != nil {
		return err
	}
	s.Audit.LogChange(ctx, common_models.AuditActionReport, "reports", definition.ID.Hex(), map[string]common_models.Change{
		"report": {New: definition.Name},
	})
	return nil
}

func (s *ReportServiceImpl) GetReport(ctx context.Context, id string) (*ReportDefinition, error) {
	return s.Repo.Get(ctx, id)
}

func (s *ReportServiceImpl) ListReports(ctx context.Context) ([]ReportDefinition, error) {
	return s.Repo.List(ctx)
}

func (s *ReportServiceImpl) UpdateReport(ctx context.Context, id string, definition *ReportDefinition) error {
	existing, err := s.Repo.Get(ctx, id)
	if err != nil {
		return err
	}
	definition.ID = existing.ID
	definition.CreatedAt = existing.CreatedAt
	if err := s.Repo.Update(ctx, definition); err != nil {
		return err
	}
	s.Audit.LogChange(ctx, common_models.AuditActionReport, "reports", id, map[string]common_models.Change{
		"report": {Old: existing.Name, New: definition.Name},
	})
	return nil
}

func (s *ReportServiceImpl) DeleteReport(ctx context.Context, id string) error {
	existing, err := s.Repo.Get(ctx, id)
	if err != nil {
		return err
	}
	if err := s.Repo.Delete(ctx, id); err != nil {
		return err
	}
	s.Audit.LogChange(ctx, common_models.AuditActionReport, "reports", id, map[string]common_models.Change{
		"report": {Old: existing.Name, New: "DELETED"},
	})
	return nil
}

func (s *ReportServiceImpl) Run(ctx context.Context, id string) ([]map[string]any, error) {
	definition, err := s.Repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.rows(ctx, definition)
}

func (s *ReportServiceImpl) rows(ctx context.Context, definition *ReportDefinition) ([]map[string]any, error) {
	filter := bson.M{}
	for k, v := range definition.Filters {
		filter[k] = v
	}
	rows, err := s.Repo.FetchRows(ctx, definition.Source, filter, definition.Limit)
	if err != nil {
		return nil, err
	}
	if len(definition.Columns) == 0 {
		return rows, nil
	}

	projected := make([]map[string]any, 0, len(rows))
	for _, row := range rows {
		out := make(map[string]any, len(definition.Columns))
		for _, col := range definition.Columns {
			if val, ok := row[col]; ok {
				out[col] = val
			}
		}
		projected = append(projected, out)
	}
	return projected, nil
}

func (s *ReportServiceImpl) Build(ctx context.Context, reportName, format string) (string, string, []byte, error) {
	definition, err := s.Repo.GetByName(ctx, reportName)
	if err != nil {
		return "", "", nil, fmt.Errorf("report %q: %w", reportName, err)
	}

	rows, err := s.rows(ctx, definition)
	if err != nil {
		return "", "", nil, err
	}

	columns := definition.Columns
	if len(columns) == 0 && len(rows) > 0 {
		for k := range rows[0] {
			columns = append(columns, k)
		}
	}

	stamp := time.Now().Format("20060102_150405")
	switch format {
	case FormatCSV:
		content, err := renderCSV(rows, columns)
		if err != nil {
			return "", "", nil, err
		}
		return fmt.Sprintf("%s_%s.csv", definition.Name, stamp), "text/csv", content, nil
	case FormatExcel, "":
		content, err := renderExcel(rows, columns)
		if err != nil {
			return "", "", nil, err
		}
		return fmt.Sprintf("%s_%s.xlsx", definition.Name, stamp), excelContentType, content, nil
	default:
		return "", "", nil, fmt.Errorf("unsupported format: %s", format)
	}
}

func (s *ReportServiceImpl) GenerateByName(ctx context.Context, reportName string, params map[string]interface{}) (string, error) {
	format := FormatExcel
	if f, ok := params["format"].(string); ok && f != "" {
		format = f
	}
	filename, _, content, err := s.Build(ctx, reportName, format)
	if err != nil {
		return "", err
	}

	s.Audit.LogChange(ctx, common_models.AuditActionReport, "reports", reportName, map[string]common_models.Change{
		"generated": {New: fmt.Sprintf("%s (%d bytes)", filename, len(content))},
	})
	return filename, nil
}

func renderCSV(rows []map[string]any, columns []string) ([]byte, error) {
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)

	if err := writer.Write(columns); err != nil {
		return nil, err
	}
	for _, row := range rows {
		record := make([]string, 0, len(columns))
		for _, col := range columns {
			record = append(record, cellString(row[col]))
		}
		if err := writer.Write(record); err != nil {
			return nil, err
		}
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func renderExcel(rows []map[string]any, columns []string) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	sheetName := "Report"
	index, err := f.NewSheet(sheetName)
	if err != nil {
		return nil, err
	}
	f.SetActiveSheet(index)

	headerStyle, _ := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"#E0E0E0"}, Pattern: 1},
	})

	widths := make([]float64, len(columns))
	for i, col := range columns {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		f.SetCellValue(sheetName, cell, col)
		f.SetCellStyle(sheetName, cell, cell, headerStyle)
		widths[i] = float64(len(col))
	}

	for rowIdx, row := range rows {
		for colIdx, col := range columns {
			cell, _ := excelize.CoordinatesToCellName(colIdx+1, rowIdx+2)
			text := cellString(row[col])
			f.SetCellValue(sheetName, cell, text)
			if w := float64(len(text)); w > widths[colIdx] {
				widths[colIdx] = w
			}
		}
	}

	for i := range columns {
		col, _ := excelize.ColumnNumberToName(i + 1)
		width := widths[i] + 2
		if width > 60 {
			width = 60
		}
		f.SetColWidth(sheetName, col, col, width)
	}

	buffer, err := f.WriteToBuffer()
	if err != nil {
		return nil, err
	}
	return buffer.Bytes(), nil
}

func cellString(val any) string {
	switch v := val.(type) {
	case nil:
		return ""
	case time.Time:
		return v.Format("2006-01-02 15:04:05")
	case primitive.DateTime:
		return v.Time().Format("2006-01-02 15:04:05")
	case primitive.ObjectID:
		return v.Hex()
	case []any:
		parts := make([]string, 0, len(v))
		for _, item := range v {
			parts = append(parts, cellString(item))
		}
		return strings.Join(parts, "; ")
	default:
		return fmt.Sprintf("%v", v)
	}
}
