package quality

import (
	"context"
	"fmt"
	"time"

	common_models "go-qms/internal/common/models"
	"go-qms/internal/features/audit"

	"go.mongodb.org/mongo-driver/bson"
	"go.uber.org/zap"
)

// EscalationStarter kicks off the escalation workflow bound to a
// trigger; critical events escalate automatically.
type EscalationStarter interface {
	StartByTrigger(ctx context.Context, triggerType, subjectModule, subjectID, startedBy string) error
}

type QualityService interface {
	// OpenEvent creates a quality event. Critical events start the
	// escalation workflow bound to the quality_event trigger, when one
	// is configured.
	OpenEvent(ctx context.Context, title, severity, source string, details map[string]interface{}) (string, error)
	CreateEvent(ctx context.Context, event *QualityEvent) error
	GetEvent(ctx context.Context, id string) (*QualityEvent, error)
	ListEvents(ctx context.Context, status, severity string, limit int64) ([]QualityEvent, error)
	UpdateEventStatus(ctx context.Context, id, status string) (*QualityEvent, error)

	CreateCAPA(ctx context.Context, capa *CAPA) error
	GetCAPA(ctx context.Context, id string) (*CAPA, error)
	ListCAPAs(ctx context.Context, status string, limit int64) ([]CAPA, error)
	UpdateCAPAStatus(ctx context.Context, id, status string) (*CAPA, error)

	CreateDocument(ctx context.Context, doc *ControlledDocument) error
	ListDocuments(ctx context.Context, status string) ([]ControlledDocument, error)
	UpdateDocument(ctx context.Context, id string, doc *ControlledDocument) error

	// Compliance data source feeds.
	CAPAStats(ctx context.Context) (onTime, total int64, err error)
	DocumentStats(ctx context.Context) (controlled, total int64, err error)
	OpenEventCounts(ctx context.Context, department string) (events, capas int64, err error)
}

type QualityServiceImpl struct {
	Repo       QualityRepository
	Escalation EscalationStarter
	Audit      audit.AuditService
	Logger     *zap.Logger
}

func NewQualityService(
	repo QualityRepository,
	escalationStarter EscalationStarter,
	auditService audit.AuditService,
	logger *zap.Logger,
) QualityService {
	return &QualityServiceImpl{
		Repo:       repo,
		Escalation: escalationStarter,
		Audit:      auditService,
		Logger:     logger,
	}
}

func (s *QualityServiceImpl) OpenEvent(ctx context.Context, title, severity, source string, details map[string]interface{}) (string, error) {
	event := &QualityEvent{
		Title:      title,
		Type:       "deviation",
		Severity:   severity,
		Status:     EventOpen,
		Source:     source,
		Details:    details,
		ReportedBy: "system",
	}
	if t, ok := details["type"].(string); ok && t != "" {
		event.Type = t
	}
	if err := s.CreateEvent(ctx, event); err != nil {
		return "", err
	}
	return event.ID.Hex(), nil
}

func (s *QualityServiceImpl) CreateEvent(ctx context.Context, event *QualityEvent) error {
	if event.Title == "" {
		return fmt.Errorf("event title is required")
	}
	if event.Severity == "" {
		event.Severity = SeverityMinor
	}
	if event.Status == "" {
		event.Status = EventOpen
	}
	if err := s.Repo.CreateEvent(ctx, event); err != nil {
		return err
	}

	s.Audit.LogChange(ctx, common_models.AuditActionCreate, "quality_events", event.ID.Hex(), map[string]common_models.Change{
		"event": {New: fmt.Sprintf("%s (%s)", event.Title, event.Severity)},
	})

	if event.Severity == SeverityCritical {
		if err := s.Escalation.StartByTrigger(ctx, "quality_event", "quality_events", event.ID.Hex(), event.ReportedBy); err != nil {
			s.Logger.Error("start escalation for critical event",
				zap.String("event_id", event.ID.Hex()),
				zap.Error(err),
			)
		}
	}
	return nil
}

func (s *QualityServiceImpl) GetEvent(ctx context.Context, id string) (*QualityEvent, error) {
	return s.Repo.GetEvent(ctx, id)
}

func (s *QualityServiceImpl) ListEvents(ctx context.Context, status, severity string, limit int64) ([]QualityEvent, error) {
	filter := bson.M{}
	if status != "" {
		filter["status"] = status
	}
	if severity != "" {
		filter["severity"] = severity
	}
	return s.Repo.ListEvents(ctx, filter, limit)
}

func (s *QualityServiceImpl) UpdateEventStatus(ctx context.Context, id, status string) (*QualityEvent, error) {
	switch status {
	case EventOpen, EventInvestigating, EventClosed:
	default:
		return nil, fmt.Errorf("invalid event status %q", status)
	}

	event, err := s.Repo.GetEvent(ctx, id)
	if err != nil {
		return nil, err
	}

	old := event.Status
	event.Status = status
	if status == EventClosed {
		now := time.Now()
		event.ClosedAt = &now
	}
	if err := s.Repo.UpdateEvent(ctx, event); err != nil {
		return nil, err
	}

	s.Audit.LogChange(ctx, common_models.AuditActionUpdate, "quality_events", id, map[string]common_models.Change{
		"status": {Old: old, New: status},
	})
	return event, nil
}

func (s *QualityServiceImpl) CreateCAPA(ctx context.Context, capa *CAPA) error {
	if capa.Title == "" {
		return fmt.Errorf("capa title is required")
	}
	if capa.Owner == "" {
		return fmt.Errorf("capa owner is required")
	}
	if capa.DueDate.IsZero() {
		return fmt.Errorf("capa due date is required")
	}
	if capa.Type != "corrective" && capa.Type != "preventive" {
		return fmt.Errorf("capa type must be corrective or preventive")
	}
	if capa.Status == "" {
		capa.Status = CAPAOpen
	}
	if err := s.Repo.CreateCAPA(ctx, capa); err != nil {
		return err
	}

	s.Audit.LogChange(ctx, common_models.AuditActionCreate, "capas", capa.ID.Hex(), map[string]common_models.Change{
		"capa": {New: capa.Title},
	})
	return nil
}

func (s *QualityServiceImpl) GetCAPA(ctx context.Context, id string) (*CAPA, error) {
	return s.Repo.GetCAPA(ctx, id)
}

func (s *QualityServiceImpl) ListCAPAs(ctx context.Context, status string, limit int64) ([]CAPA, error) {
	filter := bson.M{}
	if status != "" {
		filter["status"] = status
	}
	return s.Repo.ListCAPAs(ctx, filter, limit)
}

func (s *QualityServiceImpl) UpdateCAPAStatus(ctx context.Context, id, status string) (*CAPA, error) {
	switch status {
	case CAPAOpen, CAPAInProgress, CAPACompleted, CAPAVerified, CAPAClosed:
	default:
		return nil, fmt.Errorf("invalid capa status %q", status)
	}

	capa, err := s.Repo.GetCAPA(ctx, id)
	if err != nil {
		return nil, err
	}

	old := capa.Status
	capa.Status = status
	if status == CAPACompleted && capa.CompletedAt == nil {
		now := time.Now()
		capa.CompletedAt = &now
	}
	if err := s.Repo.UpdateCAPA(ctx, capa); err != nil {
		return nil, err
	}

	s.Audit.LogChange(ctx, common_models.AuditActionUpdate, "capas", id, map[string]common_models.Change{
		"status": {Old: old, New: status},
	})
	return capa, nil
}

func (s *QualityServiceImpl) CreateDocument(ctx context.Context, doc *ControlledDocument) error {
	if doc.Number == "" || doc.Title == "" {
		return fmt.Errorf("document number and title are required")
	}
	if doc.Status == "" {
		doc.Status = "draft"
	}
	return s.Repo.CreateDocument(ctx, doc)
}

func (s *QualityServiceImpl) ListDocuments(ctx context.Context, status string) ([]ControlledDocument, error) {
	filter := bson.M{}
	if status != "" {
		filter["status"] = status
	}
	return s.Repo.ListDocuments(ctx, filter)
}

func (s *QualityServiceImpl) UpdateDocument(ctx context.Context, id string, doc *ControlledDocument) error {
	existing, err := s.Repo.GetDocument(ctx, id)
	if err != nil {
		return err
	}
	doc.ID = existing.ID
	doc.CreatedAt = existing.CreatedAt
	return s.Repo.UpdateDocument(ctx, doc)
}

// CAPAStats counts open CAPAs still inside their due date against all
// open CAPAs.
func (s *QualityServiceImpl) CAPAStats(ctx context.Context) (int64, int64, error) {
	openFilter := bson.M{"status": bson.M{"$in": []string{CAPAOpen, CAPAInProgress}}}
	total, err := s.Repo.CountCAPAs(ctx, openFilter)
	if err != nil {
		return 0, 0, err
	}

	overdue, err := s.Repo.CountCAPAs(ctx, bson.M{
		"status":   bson.M{"$in": []string{CAPAOpen, CAPAInProgress}},
		"due_date": bson.M{"$lt": time.Now()},
	})
	if err != nil {
		return 0, 0, err
	}
	return total - overdue, total, nil
}

// DocumentStats counts effective documents that carry both a revision
// and an approver.
func (s *QualityServiceImpl) DocumentStats(ctx context.Context) (int64, int64, error) {
	total, err := s.Repo.CountDocuments(ctx, bson.M{"status": "effective"})
	if err != nil {
		return 0, 0, err
	}
	controlled, err := s.Repo.CountDocuments(ctx, bson.M{
		"status":      "effective",
		"revision":    bson.M{"$ne": ""},
		"approved_by": bson.M{"$ne": ""},
	})
	if err != nil {
		return 0, 0, err
	}
	return controlled, total, nil
}

func (s *QualityServiceImpl) OpenEventCounts(ctx context.Context, department string) (int64, int64, error) {
	eventFilter := bson.M{"status": bson.M{"$ne": EventClosed}}
	capaFilter := bson.M{"status": bson.M{"$in": []string{CAPAOpen, CAPAInProgress}}}
	if department != "" {
		eventFilter["department"] = department
		capaFilter["department"] = department
	}

	events, err := s.Repo.CountEvents(ctx, eventFilter)
	if err != nil {
		return 0, 0, err
	}
	capas, err := s.Repo.CountCAPAs(ctx, capaFilter)
	if err != nil {
		return 0, 0, err
	}
	return events, capas, nil
}
