package export

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"strings"
	"time"

	common_models "go-qms/internal/common/models"
	"go-qms/internal/features/audit"

	_ "github.com/lib/pq"
	"go.uber.org/zap"
)

type ExportService interface {
	CreateSetting(ctx context.Context, setting *ExportSetting) error
	GetSetting(ctx context.Context, id string) (*ExportSetting, error)
	ListSettings(ctx context.Context) ([]ExportSetting, error)
	UpdateSetting(ctx context.Context, id string, setting *ExportSetting) error
	DeleteSetting(ctx context.Context, id string) error

	// RunExport pushes rows changed since the last run into the
	// Postgres warehouse and writes a run log.
	RunExport(ctx context.Context, id string) (*ExportRun, error)

	// RunByName lets workflow actions and delivery schedules trigger
	// an export by setting name.
	RunByName(ctx context.Context, name string) (*ExportRun, error)

	ListRuns(ctx context.Context, settingID string, limit int64) ([]ExportRun, error)
}

type ExportServiceImpl struct {
	Repo   ExportRepository
	Audit  audit.AuditService
	Logger *zap.Logger

	// openWarehouse is swapped in tests.
	openWarehouse func(connStr string) (*sql.DB, error)
}

func NewExportService(repo ExportRepository, auditService audit.AuditService, logger *zap.Logger) ExportService {
	return &ExportServiceImpl{
		Repo:   repo,
		Audit:  auditService,
		Logger: logger,
		openWarehouse: func(connStr string) (*sql.DB, error) {
			return sql.Open("postgres", connStr)
		},
	}
}

func (s *ExportServiceImpl) CreateSetting(ctx context.Context, setting *ExportSetting) error {
	if err := validateSetting(setting); err != nil {
		return err
	}
	if err := s.Repo.CreateSetting(ctx, setting); err != nil {
		return err
	}
	s.Audit.LogChange(ctx, common_models.AuditActionSettings, "export_settings", setting.ID.Hex(), map[string]common_models.Change{
		"setting": {New: setting.Name},
	})
	return nil
}

func validateSetting(setting *ExportSetting) error {
	if setting.Name == "" {
		return fmt.Errorf("setting name is required")
	}
	if len(setting.Collections) == 0 {
		return fmt.Errorf("at least one collection mapping is required")
	}
	for _, mapping := range setting.Collections {
		if mapping.Collection == "" || mapping.Table == "" {
			return fmt.Errorf("collection and table are required in every mapping")
		}
		if len(mapping.Mapping) == 0 {
			return fmt.Errorf("mapping for %s has no columns", mapping.Collection)
		}
	}
	for _, key := range []string{"host", "port", "database"} {
		if setting.Warehouse[key] == "" {
			return fmt.Errorf("warehouse %s is required", key)
		}
	}
	return nil
}

func (s *ExportServiceImpl) GetSetting(ctx context.Context, id string) (*ExportSetting, error) {
	return s.Repo.GetSetting(ctx, id)
}

func (s *ExportServiceImpl) ListSettings(ctx context.Context) ([]ExportSetting, error) {
	return s.Repo.ListSettings(ctx)
}

func (s *ExportServiceImpl) UpdateSetting(ctx context.Context, id string, setting *ExportSetting) error {
	existing, err := s.Repo.GetSetting(ctx, id)
	if err != nil {
		return err
	}
	if err := validateSetting(setting); err != nil {
		return err
	}
	setting.ID = existing.ID
	setting.CreatedAt = existing.CreatedAt
	setting.LastRunAt = existing.LastRunAt
	if err := s.Repo.UpdateSetting(ctx, setting); err != nil {
		return err
	}
	s.Audit.LogChange(ctx, common_models.AuditActionSettings, "export_settings", id, map[string]common_models.Change{
		"setting": {Old: existing.Name, New: setting.Name},
	})
	return nil
}

func (s *ExportServiceImpl) DeleteSetting(ctx context.Context, id string) error {
	existing, err := s.Repo.GetSetting(ctx, id)
	if err != nil {
		return err
	}
	if err := s.Repo.DeleteSetting(ctx, id); err != nil {
		return err
	}
	s.Audit.LogChange(ctx, common_models.AuditActionSettings, "export_settings", id, map[string]common_models.Change{
		"setting": {Old: existing.Name, New: "DELETED"},
	})
	return nil
}

func (s *ExportServiceImpl) ListRuns(ctx context.Context, settingID string, limit int64) ([]ExportRun, error) {
	return s.Repo.ListRuns(ctx, settingID, limit)
}

func (s *ExportServiceImpl) RunByName(ctx context.Context, name string) (*ExportRun, error) {
	settings, err := s.Repo.ListSettings(ctx)
	if err != nil {
		return nil, err
	}
	for i := range settings {
		if settings[i].Name == name {
			return s.RunExport(ctx, settings[i].ID.Hex())
		}
	}
	return nil, fmt.Errorf("export setting %q not found", name)
}

func (s *ExportServiceImpl) RunExport(ctx context.Context, id string) (*ExportRun, error) {
	setting, err := s.Repo.GetSetting(ctx, id)
	if err != nil {
		return nil, err
	}

	run := &ExportRun{
		SettingID: setting.ID,
		Status:    RunInProgress,
		StartedAt: time.Now(),
	}
	if err := s.Repo.CreateRun(ctx, run); err != nil {
		return nil, err
	}

	processed, runErr := s.push(ctx, setting)
	run.ProcessedCount = processed
	run.FinishedAt = time.Now()
	if runErr != nil {
		run.Status = RunFailed
		run.Error = runErr.Error()
	} else {
		run.Status = RunSuccess
		setting.LastRunAt = run.StartedAt
		if err := s.Repo.UpdateSetting(ctx, setting); err != nil {
			s.Logger.Warn("update export watermark", zap.String("setting", setting.Name), zap.Error(err))
		}
	}
	if err := s.Repo.UpdateRun(ctx, run); err != nil {
		s.Logger.Warn("persist export run", zap.String("setting", setting.Name), zap.Error(err))
	}

	s.Audit.LogChange(ctx, common_models.AuditActionExport, "export_settings", setting.Name, map[string]common_models.Change{
		"status":    {New: run.Status},
		"processed": {New: processed},
	})
	return run, runErr
}

func (s *ExportServiceImpl) push(ctx context.Context, setting *ExportSetting) (int, error) {
	connStr := fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=disable",
		setting.Warehouse["host"], setting.Warehouse["port"], setting.Warehouse["user"],
		setting.Warehouse["password"], setting.Warehouse["database"])

	db, err := s.openWarehouse(connStr)
	if err != nil {
		return 0, fmt.Errorf("connect warehouse: %w", err)
	}
	defer db.Close()
	if err := db.PingContext(ctx); err != nil {
		return 0, fmt.Errorf("ping warehouse: %w", err)
	}

	total := 0
	for _, mapping := range setting.Collections {
		count, err := s.pushCollection(ctx, db, setting.LastRunAt, mapping)
		total += count
		if err != nil {
			return total, err
		}
	}
	return total, nil
}

func (s *ExportServiceImpl) pushCollection(ctx context.Context, db *sql.DB, since time.Time, mapping CollectionMapping) (int, error) {
	const batchSize = 1000
	count := 0
	watermark := since

	for {
		rows, err := s.Repo.FetchChanged(ctx, mapping.Collection, watermark, batchSize)
		if err != nil {
			return count, fmt.Errorf("fetch %s: %w", mapping.Collection, err)
		}
		if len(rows) == 0 {
			return count, nil
		}

		for _, row := range rows {
			query, args := buildUpsert(mapping.Table, mapping.Mapping, row)
			if query == "" {
				continue
			}
			if _, err := db.ExecContext(ctx, query, args...); err != nil {
				s.Logger.Warn("warehouse upsert failed",
					zap.String("table", mapping.Table),
					zap.Error(err),
				)
				continue
			}
			count++
		}

		if len(rows) < batchSize {
			return count, nil
		}
		if ts, ok := rows[len(rows)-1]["updated_at"].(time.Time); ok {
			watermark = ts
		} else {
			return count, nil
		}
	}
}

// buildUpsert renders an INSERT ... ON CONFLICT (id) DO UPDATE for one
// row. Columns are emitted in sorted order so the statement is stable.
func buildUpsert(table string, mapping map[string]string, row map[string]any) (string, []interface{}) {
	fields := make([]string, 0, len(mapping))
	for field := range mapping {
		fields = append(fields, field)
	}
	sort.Strings(fields)

	var columns []string
	var placeholders []string
	var updates []string
	var args []interface{}

	for _, field := range fields {
		column := mapping[field]
		val, ok := row[field]
		if !ok && field == "id" {
			val = row["_id"]
		}
		if oid, isOID := val.(interface{ Hex() string }); isOID {
			val = oid.Hex()
		}

		args = append(args, val)
		columns = append(columns, column)
		placeholders = append(placeholders, fmt.Sprintf("$%d", len(args)))
		if column != "id" {
			updates = append(updates, fmt.Sprintf("%s = $%d", column, len(args)))
		}
	}
	if len(columns) == 0 {
		return "", nil
	}

	return fmt.Sprintf(
		"INSERT INTO %s (%s) VALUES (%s) ON CONFLICT (id) DO UPDATE SET %s",
		table,
		strings.Join(columns, ", "),
		strings.Join(placeholders, ", "),
		strings.Join(updates, ", "),
	), args
}
