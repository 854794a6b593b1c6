package lims

import (
	"context"
	"fmt"
	"time"

	common_models "go-qms/internal/common/models"
	"go-qms/internal/features/audit"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// EventOpener raises a quality event for an out-of-spec result.
type EventOpener interface {
	OpenEvent(ctx context.Context, title, severity, source string, details map[string]interface{}) (string, error)
}

type LimsService interface {
	RegisterSample(ctx context.Context, sample *Sample) error
	GetSample(ctx context.Context, id string) (*Sample, error)
	ListSamples(ctx context.Context, status string, limit int64) ([]Sample, error)

	// TransferCustody appends a hand-off to the sample's embedded
	// chain. The chain is append-only.
	TransferCustody(ctx context.Context, sampleID string, entry CustodyEntry) (*Sample, error)

	UpdateSampleStatus(ctx context.Context, id, status string) (*Sample, error)

	CreateExecution(ctx context.Context, execution *TestExecution) error
	GetExecution(ctx context.Context, id string) (*TestExecution, error)
	ListExecutions(ctx context.Context, sampleID string, limit int64) ([]TestExecution, error)

	// RecordResult evaluates the value against its specification
	// limits. An out-of-spec result opens a quality event.
	RecordResult(ctx context.Context, executionID string, result TestResult) (*TestExecution, error)

	CompleteExecution(ctx context.Context, id string) (*TestExecution, error)

	// CustodyStats feeds the data integrity compliance check: custody
	// entries carrying both actor and timestamp against all entries.
	CustodyStats(ctx context.Context) (complete, total int64, err error)
}

type LimsServiceImpl struct {
	Repo   LimsRepository
	Events EventOpener
	Audit  audit.AuditService
	Logger *zap.Logger
}

func NewLimsService(repo LimsRepository, events EventOpener, auditService audit.AuditService, logger *zap.Logger) LimsService {
	return &LimsServiceImpl{
		Repo:   repo,
		Events: events,
		Audit:  auditService,
		Logger: logger,
	}
}

func (s *LimsServiceImpl) RegisterSample(ctx context.Context, sample *Sample) error {
	if sample.SampleNumber == "" {
		return fmt.Errorf("sample number is required")
	}
	if sample.Material == "" {
		return fmt.Errorf("sample material is required")
	}
	if sample.CollectedBy == "" {
		return fmt.Errorf("collector is required")
	}
	sample.Status = SampleRegistered
	if sample.CollectedAt.IsZero() {
		sample.CollectedAt = time.Now()
	}
	sample.Custody = []CustodyEntry{{
		ToActor:   sample.CollectedBy,
		Reason:    "collection",
		Timestamp: sample.CollectedAt,
	}}

	if err := s.Repo.CreateSample(ctx, sample); err != nil {
		return err
	}
	s.Audit.LogChange(ctx, common_models.AuditActionCreate, "lims_samples", sample.ID.Hex(), map[string]common_models.Change{
		"sample": {New: sample.SampleNumber},
	})
	return nil
}

func (s *LimsServiceImpl) GetSample(ctx context.Context, id string) (*Sample, error) {
	return s.Repo.GetSample(ctx, id)
}

func (s *LimsServiceImpl) ListSamples(ctx context.Context, status string, limit int64) ([]Sample, error) {
	filter := bson.M{}
	if status != "" {
		filter["status"] = status
	}
	return s.Repo.ListSamples(ctx, filter, limit)
}

func (s *LimsServiceImpl) TransferCustody(ctx context.Context, sampleID string, entry CustodyEntry) (*Sample, error) {
	if entry.ToActor == "" {
		return nil, fmt.Errorf("custody transfer requires a receiving actor")
	}

	sample, err := s.Repo.GetSample(ctx, sampleID)
	if err != nil {
		return nil, err
	}
	if sample.Status == SampleReleased || sample.Status == SampleRejected {
		return nil, fmt.Errorf("sample is %s, custody is closed", sample.Status)
	}

	if entry.FromActor == "" && len(sample.Custody) > 0 {
		entry.FromActor = sample.Custody[len(sample.Custody)-1].ToActor
	}
	entry.Timestamp = time.Now()
	sample.Custody = append(sample.Custody, entry)

	if err := s.Repo.UpdateSample(ctx, sample); err != nil {
		return nil, err
	}
	s.Audit.LogChange(ctx, common_models.AuditActionCustody, "lims_samples", sampleID, map[string]common_models.Change{
		"custody": {Old: entry.FromActor, New: entry.ToActor},
	})
	return sample, nil
}

func (s *LimsServiceImpl) UpdateSampleStatus(ctx context.Context, id, status string) (*Sample, error) {
	switch status {
	case SampleRegistered, SampleInTesting, SampleReleased, SampleRejected:
	default:
		return nil, fmt.Errorf("invalid sample status %q", status)
	}

	sample, err := s.Repo.GetSample(ctx, id)
	if err != nil {
		return nil, err
	}
	old := sample.Status
	sample.Status = status
	if err := s.Repo.UpdateSample(ctx, sample); err != nil {
		return nil, err
	}
	s.Audit.LogChange(ctx, common_models.AuditActionUpdate, "lims_samples", id, map[string]common_models.Change{
		"status": {Old: old, New: status},
	})
	return sample, nil
}

func (s *LimsServiceImpl) CreateExecution(ctx context.Context, execution *TestExecution) error {
	if execution.TestName == "" {
		return fmt.Errorf("test name is required")
	}
	if execution.Analyst == "" {
		return fmt.Errorf("analyst is required")
	}
	sample, err := s.Repo.GetSample(ctx, execution.SampleID.Hex())
	if err != nil {
		return fmt.Errorf("sample: %w", err)
	}
	execution.Status = ExecutionScheduled
	if err := s.Repo.CreateExecution(ctx, execution); err != nil {
		return err
	}

	if sample.Status == SampleRegistered {
		sample.Status = SampleInTesting
		if err := s.Repo.UpdateSample(ctx, sample); err != nil {
			s.Logger.Warn("mark sample in testing", zap.String("sample_id", sample.ID.Hex()), zap.Error(err))
		}
	}
	return nil
}

func (s *LimsServiceImpl) GetExecution(ctx context.Context, id string) (*TestExecution, error) {
	return s.Repo.GetExecution(ctx, id)
}

func (s *LimsServiceImpl) ListExecutions(ctx context.Context, sampleID string, limit int64) ([]TestExecution, error) {
	filter := bson.M{}
	if sampleID != "" {
		oid, err := primitive.ObjectIDFromHex(sampleID)
		if err != nil {
			return nil, err
		}
		filter["sample_id"] = oid
	}
	return s.Repo.ListExecutions(ctx, filter, limit)
}

func (s *LimsServiceImpl) RecordResult(ctx context.Context, executionID string, result TestResult) (*TestExecution, error) {
	if result.Parameter == "" {
		return nil, fmt.Errorf("result parameter is required")
	}
	if result.RecordedBy == "" {
		return nil, fmt.Errorf("result must name who recorded it")
	}

	execution, err := s.Repo.GetExecution(ctx, executionID)
	if err != nil {
		return nil, err
	}
	if execution.Status == ExecutionCompleted {
		return nil, fmt.Errorf("execution already completed")
	}

	result.InSpec = result.WithinLimits()
	result.RecordedAt = time.Now()
	execution.Results = append(execution.Results, result)
	execution.Status = ExecutionRunning

	if err := s.Repo.UpdateExecution(ctx, execution); err != nil {
		return nil, err
	}

	s.Audit.LogChange(ctx, common_models.AuditActionUpdate, "lims_test_executions", executionID, map[string]common_models.Change{
		result.Parameter: {New: fmt.Sprintf("%g %s", result.Value, result.Unit)},
	})

	if !result.InSpec {
		title := fmt.Sprintf("OOS: %s %s = %g %s", execution.TestName, result.Parameter, result.Value, result.Unit)
		eventID, err := s.Events.OpenEvent(ctx, title, "major", "lims", map[string]interface{}{
			"type":         "oos",
			"execution_id": executionID,
			"sample_id":    execution.SampleID.Hex(),
			"parameter":    result.Parameter,
			"value":        result.Value,
		})
		if err != nil {
			s.Logger.Error("open quality event for OOS result",
				zap.String("execution_id", executionID),
				zap.Error(err),
			)
		} else {
			s.Logger.Info("out-of-spec result raised quality event",
				zap.String("execution_id", executionID),
				zap.String("event_id", eventID),
			)
		}
	}
	return execution, nil
}

func (s *LimsServiceImpl) CompleteExecution(ctx context.Context, id string) (*TestExecution, error) {
	execution, err := s.Repo.GetExecution(ctx, id)
	if err != nil {
		return nil, err
	}
	if len(execution.Results) == 0 {
		return nil, fmt.Errorf("execution has no recorded results")
	}
	execution.Status = ExecutionCompleted
	if err := s.Repo.UpdateExecution(ctx, execution); err != nil {
		return nil, err
	}
	return execution, nil
}

func (s *LimsServiceImpl) CustodyStats(ctx context.Context) (int64, int64, error) {
	samples, err := s.Repo.ListSamples(ctx, bson.M{}, 0)
	if err != nil {
		return 0, 0, err
	}
	var complete, total int64
	for _, sample := range samples {
		for _, entry := range sample.Custody {
			total++
			if entry.ToActor != "" && !entry.Timestamp.IsZero() {
				complete++
			}
		}
	}
	return complete, total, nil
}
