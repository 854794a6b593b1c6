package organization

import (
	"context"
	"fmt"

	common_models "go-qms/internal/common/models"
	"go-qms/internal/features/audit"

	"go.uber.org/zap"
)

// MemberCounter reports how many active users belong to a department.
type MemberCounter interface {
	CountByDepartment(ctx context.Context, department string) (int64, error)
}

// TrainingSummarizer reports completion rate and overdue count for a
// department's training assignments.
type TrainingSummarizer interface {
	DepartmentTraining(ctx context.Context, department string) (completionRate float64, overdue int64, err error)
}

// QualityCounter reports open quality events and CAPAs for a
// department.
type QualityCounter interface {
	OpenEventCounts(ctx context.Context, department string) (events, capas int64, err error)
}

// TrendSource supplies recent compliance assessment snapshots.
type TrendSource interface {
	Trend(ctx context.Context, limit int64) ([]TrendPoint, error)
}

type OrganizationService interface {
	CreateDepartment(ctx context.Context, department *Department) error
	GetDepartment(ctx context.Context, id string) (*Department, error)
	ListDepartments(ctx context.Context) ([]Department, error)
	UpdateDepartment(ctx context.Context, id string, department *Department) error
	DeleteDepartment(ctx context.Context, id string) error

	// Analytics aggregates training, quality, and compliance figures
	// for one department. Sources that fail contribute zero values
	// rather than failing the whole view.
	Analytics(ctx context.Context, id string) (*DepartmentAnalytics, error)
}

type OrganizationServiceImpl struct {
	Repo     DepartmentRepository
	Members  MemberCounter
	Training TrainingSummarizer
	Quality  QualityCounter
	Trend    TrendSource
	Audit    audit.AuditService
	Logger   *zap.Logger
}

func NewOrganizationService(
	repo DepartmentRepository,
	members MemberCounter,
	training TrainingSummarizer,
	quality QualityCounter,
	trend TrendSource,
	auditService audit.AuditService,
	logger *zap.Logger,
) OrganizationService {
	return &OrganizationServiceImpl{
		Repo:     repo,
		Members:  members,
		Training: training,
		Quality:  quality,
		Trend:    trend,
		Audit:    auditService,
		Logger:   logger,
	}
}

func (s *OrganizationServiceImpl) CreateDepartment(ctx context.Context, department *Department) error {
	if department.Name == "" {
		return fmt.Errorf("department name is required")
	}
	if department.ParentID != nil {
		if _, err := s.Repo.GetByID(ctx, department.ParentID.Hex()); err != nil {
			return fmt.Errorf("parent department: %w", err)
		}
	}
	if err := s.Repo.Create(ctx, department); err != nil {
		return err
	}
	s.Audit.LogChange(ctx, common_models.AuditActionCreate, "departments", department.ID.Hex(), map[string]common_models.Change{
		"department": {New: department.Name},
	})
	return nil
}

func (s *OrganizationServiceImpl) GetDepartment(ctx context.Context, id string) (*Department, error) {
	return s.Repo.GetByID(ctx, id)
}

func (s *OrganizationServiceImpl) ListDepartments(ctx context.Context) ([]Department, error) {
	return s.Repo.List(ctx)
}

func (s *OrganizationServiceImpl) UpdateDepartment(ctx context.Context, id string, department *Department) error {
	existing, err := s.Repo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if department.ParentID != nil {
		if department.ParentID.Hex() == id {
			return fmt.Errorf("department cannot be its own parent")
		}
		if _, err := s.Repo.GetByID(ctx, department.ParentID.Hex()); err != nil {
			return fmt.Errorf("parent department: %w", err)
		}
	}
	department.ID = existing.ID
	department.CreatedAt = existing.CreatedAt
	if err := s.Repo.Update(ctx, department); err != nil {
		return err
	}
	s.Audit.LogChange(ctx, common_models.AuditActionUpdate, "departments", id, map[string]common_models.Change{
		"department": {Old: existing.Name, New: department.Name},
	})
	return nil
}

func (s *OrganizationServiceImpl) DeleteDepartment(ctx context.Context, id string) error {
	children, err := s.Repo.ListChildren(ctx, id)
	if err != nil {
		return err
	}
	if len(children) > 0 {
		return fmt.Errorf("department has %d child departments", len(children))
	}
	if err := s.Repo.Delete(ctx, id); err != nil {
		return err
	}
	s.Audit.LogChange(ctx, common_models.AuditActionDelete, "departments", id, nil)
	return nil
}

func (s *OrganizationServiceImpl) Analytics(ctx context.Context, id string) (*DepartmentAnalytics, error) {
	department, err := s.Repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	analytics := &DepartmentAnalytics{
		DepartmentID:   department.ID.Hex(),
		DepartmentName: department.Name,
	}

	if count, err := s.Members.CountByDepartment(ctx, department.Name); err != nil {
		s.Logger.Warn("member count unavailable", zap.String("department", department.Name), zap.Error(err))
	} else {
		analytics.MemberCount = count
	}

	if rate, overdue, err := s.Training.DepartmentTraining(ctx, department.Name); err != nil {
		s.Logger.Warn("training summary unavailable", zap.String("department", department.Name), zap.Error(err))
	} else {
		analytics.TrainingCompletionRate = rate
		analytics.TrainingOverdue = overdue
	}

	if events, capas, err := s.Quality.OpenEventCounts(ctx, department.Name); err != nil {
		s.Logger.Warn("quality counts unavailable", zap.String("department", department.Name), zap.Error(err))
	} else {
		analytics.OpenQualityEvents = events
		analytics.OpenCAPAs = capas
	}

	trend, err := s.Trend.Trend(ctx, 12)
	if err != nil {
		s.Logger.Warn("compliance trend unavailable", zap.Error(err))
		trend = []TrendPoint{}
	}
	analytics.ComplianceTrend = trend

	return analytics, nil
}
