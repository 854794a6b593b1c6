package training

import (
	"context"
	"fmt"
	"time"

	common_models "go-qms/internal/common/models"
	"go-qms/internal/features/audit"
	"go-qms/pkg/condition"

	"go.mongodb.org/mongo-driver/bson"
	"go.uber.org/zap"
)

type TrainingService interface {
	Assign(ctx context.Context, assignment *TrainingAssignment) error
	Complete(ctx context.Context, id string, score *float64) (*TrainingAssignment, error)
	Waive(ctx context.Context, id, reason string) (*TrainingAssignment, error)
	List(ctx context.Context, userID, department, status string) ([]TrainingAssignment, error)

	// Summary aggregates assignment state, optionally scoped to a
	// department.
	Summary(ctx context.Context, department string) (*TrainingSummary, error)

	// Stats feeds the training currency compliance check: how many
	// assignments are current against how many exist.
	Stats(ctx context.Context) (current, total int64, err error)

	// DepartmentTraining feeds department analytics.
	DepartmentTraining(ctx context.Context, department string) (completionRate float64, overdue int64, err error)

	// FillScope loads training aggregates into an evaluation context.
	FillScope(ctx context.Context, ectx *condition.Context) error
}

type TrainingServiceImpl struct {
	Repo   TrainingRepository
	Audit  audit.AuditService
	Logger *zap.Logger
}

func NewTrainingService(repo TrainingRepository, auditService audit.AuditService, logger *zap.Logger) TrainingService {
	return &TrainingServiceImpl{
		Repo:   repo,
		Audit:  auditService,
		Logger: logger,
	}
}

func (s *TrainingServiceImpl) Assign(ctx context.Context, assignment *TrainingAssignment) error {
	if assignment.UserID == "" {
		return fmt.Errorf("assignment user is required")
	}
	if assignment.CourseName == "" {
		return fmt.Errorf("assignment course is required")
	}
	if assignment.DueDate.IsZero() {
		return fmt.Errorf("assignment due date is required")
	}
	assignment.Status = AssignmentAssigned
	assignment.CompletedAt = nil

	if err := s.Repo.Create(ctx, assignment); err != nil {
		return err
	}
	s.Audit.LogChange(ctx, common_models.AuditActionCreate, "training_assignments", assignment.ID.Hex(), map[string]common_models.Change{
		"assignment": {New: fmt.Sprintf("%s -> %s", assignment.CourseName, assignment.UserID)},
	})
	return nil
}

func (s *TrainingServiceImpl) Complete(ctx context.Context, id string, score *float64) (*TrainingAssignment, error) {
	assignment, err := s.Repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if assignment.Status != AssignmentAssigned {
		return nil, fmt.Errorf("assignment is %s, not open", assignment.Status)
	}

	now := time.Now()
	assignment.Status = AssignmentCompleted
	assignment.CompletedAt = &now
	assignment.Score = score
	if err := s.Repo.Update(ctx, assignment); err != nil {
		return nil, err
	}

	s.Audit.LogChange(ctx, common_models.AuditActionUpdate, "training_assignments", id, map[string]common_models.Change{
		"status": {Old: AssignmentAssigned, New: AssignmentCompleted},
	})
	return assignment, nil
}

func (s *TrainingServiceImpl) Waive(ctx context.Context, id, reason string) (*TrainingAssignment, error) {
	assignment, err := s.Repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if assignment.Status != AssignmentAssigned {
		return nil, fmt.Errorf("assignment is %s, not open", assignment.Status)
	}

	assignment.Status = AssignmentWaived
	if err := s.Repo.Update(ctx, assignment); err != nil {
		return nil, err
	}

	s.Audit.LogChange(ctx, common_models.AuditActionUpdate, "training_assignments", id, map[string]common_models.Change{
		"status": {Old: AssignmentAssigned, New: AssignmentWaived},
		"reason": {New: reason},
	})
	return assignment, nil
}

func (s *TrainingServiceImpl) List(ctx context.Context, userID, department, status string) ([]TrainingAssignment, error) {
	filter := bson.M{}
	if userID != "" {
		filter["user_id"] = userID
	}
	if department != "" {
		filter["department"] = department
	}
	if status != "" {
		filter["status"] = status
	}
	return s.Repo.List(ctx, filter)
}

func (s *TrainingServiceImpl) Summary(ctx context.Context, department string) (*TrainingSummary, error) {
	filter := bson.M{}
	if department != "" {
		filter["department"] = department
	}
	assignments, err := s.Repo.List(ctx, filter)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	summary := &TrainingSummary{}
	for i := range assignments {
		a := &assignments[i]
		if a.Status == AssignmentWaived {
			continue
		}
		summary.Total++
		if a.Status == AssignmentCompleted {
			summary.Completed++
		}
		if a.Overdue(now) {
			summary.Overdue++
		}
	}
	if summary.Total > 0 {
		summary.CompletionRate = float64(summary.Completed) / float64(summary.Total) * 100
	} else {
		summary.CompletionRate = 100
	}
	return summary, nil
}

func (s *TrainingServiceImpl) Stats(ctx context.Context) (int64, int64, error) {
	summary, err := s.Summary(ctx, "")
	if err != nil {
		return 0, 0, err
	}
	return summary.Total - summary.Overdue, summary.Total, nil
}

func (s *TrainingServiceImpl) DepartmentTraining(ctx context.Context, department string) (float64, int64, error) {
	summary, err := s.Summary(ctx, department)
	if err != nil {
		return 0, 0, err
	}
	return summary.CompletionRate, summary.Overdue, nil
}

func (s *TrainingServiceImpl) FillScope(ctx context.Context, ectx *condition.Context) error {
	summary, err := s.Summary(ctx, "")
	if err != nil {
		return err
	}
	ectx.Training["completion_rate"] = summary.CompletionRate
	ectx.Training["overdue_count"] = summary.Overdue
	ectx.Training["total"] = summary.Total
	return nil
}
