package report

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"strings"
	"testing"
	"time"

	common_models "go-qms/internal/common/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

type memReportRepo struct {
	definitions map[string]ReportDefinition
	sources     map[string][]map[string]any
}

func newMemReportRepo() *memReportRepo {
	return &memReportRepo{
		definitions: map[string]ReportDefinition{},
		sources:     map[string][]map[string]any{},
	}
}

func (r *memReportRepo) Create(_ context.Context, d *ReportDefinition) error {
	if d.ID.IsZero() {
		d.ID = primitive.NewObjectID()
	}
	r.definitions[d.ID.Hex()] = *d
	return nil
}

func (r *memReportRepo) Get(_ context.Context, id string) (*ReportDefinition, error) {
	d, ok := r.definitions[id]
	if !ok {
		return nil, fmt.Errorf("report %s not found", id)
	}
	return &d, nil
}

func (r *memReportRepo) GetByName(_ context.Context, name string) (*ReportDefinition, error) {
	for _, d := range r.definitions {
		if d.Name == name {
			return &d, nil
		}
	}
	return nil, fmt.Errorf("report %s not found", name)
}

func (r *memReportRepo) List(_ context.Context) ([]ReportDefinition, error) {
	var out []ReportDefinition
	for _, d := range r.definitions {
		out = append(out, d)
	}
	return out, nil
}

func (r *memReportRepo) Update(_ context.Context, d *ReportDefinition) error {
	r.definitions[d.ID.Hex()] = *d
	return nil
}

func (r *memReportRepo) Delete(_ context.Context, id string) error {
	delete(r.definitions, id)
	return nil
}

func (r *memReportRepo) FetchRows(_ context.Context, source string, _ bson.M, _ int64) ([]map[string]any, error) {
	rows, ok := r.sources[source]
	if !ok {
		return nil, fmt.Errorf("unknown source %s", source)
	}
	return rows, nil
}

type noopAudit struct{}

func (noopAudit) LogChange(_ context.Context, _ common_models.AuditAction, _ string, _ string, _ map[string]common_models.Change) error {
	return nil
}
func (noopAudit) ListLogs(_ context.Context, _ map[string]interface{}, _, _ int64) ([]common_models.AuditLog, error) {
	return nil, nil
}

func newTestService() (*ReportServiceImpl, *memReportRepo) {
	repo := newMemReportRepo()
	return &ReportServiceImpl{Repo: repo, Audit: noopAudit{}, Logger: zap.NewNop()}, repo
}

func seedCAPAReport(t *testing.T, svc *ReportServiceImpl, repo *memReportRepo) {
	t.Helper()
	repo.sources["capas"] = []map[string]any{
		{"title": "Retrain operators", "status": "open", "owner": "u1", "internal_note": "hidden"},
		{"title": "Revise SOP-12", "status": "in_progress", "owner": "u2", "internal_note": "hidden"},
	}
	err := svc.CreateReport(context.Background(), &ReportDefinition{
		Name:    "open_capas",
		Source:  "capas",
		Columns: []string{"title", "status", "owner"},
	})
	if err != nil {
		t.Fatalf("CreateReport() error = %v", err)
	}
}

func TestBuildCSV(t *testing.T) {
	svc, repo := newTestService()
	seedCAPAReport(t, svc, repo)

	filename, contentType, content, err := svc.Build(context.Background(), "open_capas", FormatCSV)
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	if contentType != "text/csv" {
		t.Errorf("content type = %s, want text/csv", contentType)
	}
	if !strings.HasPrefix(filename, "open_capas_") || !strings.HasSuffix(filename, ".csv") {
		t.Errorf("unexpected filename %s", filename)
	}

	records, err := csv.NewReader(bytes.NewReader(content)).ReadAll()
	if err != nil {
		t.Fatalf("parse csv: %v", err)
	}
	if len(records) != 3 {
		t.Fatalf("row count = %d, want header + 2", len(records))
	}
	if strings.Join(records[0], ",") != "title,status,owner" {
		t.Errorf("header = %v", records[0])
	}
	for _, row := range records[1:] {
		for _, cell := range row {
			if cell == "hidden" {
				t.Error("column projection leaked an unselected field")
			}
		}
	}
}

func TestBuildExcelDefaultFormat(t *testing.T) {
	svc, repo := newTestService()
	seedCAPAReport(t, svc, repo)

	filename, contentType, content, err := svc.Build(context.Background(), "open_capas", "")
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	if contentType != excelContentType {
		t.Errorf("content type = %s, want xlsx", contentType)
	}
	if !strings.HasSuffix(filename, ".xlsx") {
		t.Errorf("unexpected filename %s", filename)
	}
	// xlsx files are zip archives.
	if len(content) < 4 || content[0] != 'P' || content[1] != 'K' {
		t.Error("excel output is not a zip archive")
	}
}

func TestBuildRejectsUnknownFormatAndReport(t *testing.T) {
	svc, repo := newTestService()
	seedCAPAReport(t, svc, repo)

	if _, _, _, err := svc.Build(context.Background(), "open_capas", "pdf"); err == nil {
		t.Error("expected error for unsupported format")
	}
	if _, _, _, err := svc.Build(context.Background(), "missing_report", FormatCSV); err == nil {
		t.Error("expected error for unknown report")
	}
}

func TestGenerateByName(t *testing.T) {
	svc, repo := newTestService()
	seedCAPAReport(t, svc, repo)

	filename, err := svc.GenerateByName(context.Background(), "open_capas", map[string]interface{}{"format": "csv"})
	if err != nil {
		t.Fatalf("GenerateByName() error = %v", err)
	}
	if !strings.HasSuffix(filename, ".csv") {
		t.Errorf("filename = %s, want csv", filename)
	}
}

func TestCreateReportRejectsDuplicateName(t *testing.T) {
	svc, repo := newTestService()
	seedCAPAReport(t, svc, repo)

	err := svc.CreateReport(context.Background(), &ReportDefinition{Name: "open_capas", Source: "capas"})
	if err == nil {
		t.Fatal("expected duplicate name error")
	}
}

func TestCellString(t *testing.T) {
	oid := primitive.NewObjectID()
	ts := time.Date(2026, 8, 1, 9, 30, 0, 0, time.UTC)

	cases := []struct {
		in   any
		want string
	}{
		{nil, ""},
		{"text", "text"},
		{42, "42"},
		{ts, "2026-08-01 09:30:00"},
		{oid, oid.Hex()},
		{[]any{"a", "b"}, "a; b"},
	}
	for _, tc := range cases {
		if got := cellString(tc.in); got != tc.want {
			t.Errorf("cellString(%v) = %q, want %q", tc.in, got, tc.want)
		}
	}
}
