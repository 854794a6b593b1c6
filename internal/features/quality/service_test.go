package quality

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	common_models "go-qms/internal/common/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

type memQualityRepo struct {
	mu     sync.Mutex
	events map[string]QualityEvent
	capas  map[string]CAPA
	docs   map[string]ControlledDocument
}

func newMemQualityRepo() *memQualityRepo {
	return &memQualityRepo{
		events: map[string]QualityEvent{},
		capas:  map[string]CAPA{},
		docs:   map[string]ControlledDocument{},
	}
}

func (r *memQualityRepo) CreateEvent(_ context.Context, event *QualityEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if event.ID.IsZero() {
		event.ID = primitive.NewObjectID()
	}
	event.CreatedAt = time.Now()
	r.events[event.ID.Hex()] = *event
	return nil
}

func (r *memQualityRepo) GetEvent(_ context.Context, id string) (*QualityEvent, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	event, ok := r.events[id]
	if !ok {
		return nil, fmt.Errorf("event %s not found", id)
	}
	return &event, nil
}

func (r *memQualityRepo) ListEvents(_ context.Context, filter bson.M, _ int64) ([]QualityEvent, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []QualityEvent
	for _, event := range r.events {
		if status, ok := filter["status"].(string); ok && event.Status != status {
			continue
		}
		if severity, ok := filter["severity"].(string); ok && event.Severity != severity {
			continue
		}
		out = append(out, event)
	}
	return out, nil
}

func (r *memQualityRepo) UpdateEvent(_ context.Context, event *QualityEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events[event.ID.Hex()] = *event
	return nil
}

func (r *memQualityRepo) CountEvents(ctx context.Context, filter bson.M) (int64, error) {
	events, err := r.ListEvents(ctx, filter, 0)
	return int64(len(events)), err
}

func (r *memQualityRepo) CreateCAPA(_ context.Context, capa *CAPA) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if capa.ID.IsZero() {
		capa.ID = primitive.NewObjectID()
	}
	r.capas[capa.ID.Hex()] = *capa
	return nil
}

func (r *memQualityRepo) GetCAPA(_ context.Context, id string) (*CAPA, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	capa, ok := r.capas[id]
	if !ok {
		return nil, fmt.Errorf("capa %s not found", id)
	}
	return &capa, nil
}

func (r *memQualityRepo) ListCAPAs(_ context.Context, filter bson.M, _ int64) ([]CAPA, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []CAPA
	for _, capa := range r.capas {
		if !capaMatches(capa, filter) {
			continue
		}
		out = append(out, capa)
	}
	return out, nil
}

func capaMatches(capa CAPA, filter bson.M) bool {
	if status, ok := filter["status"].(string); ok && capa.Status != status {
		return false
	}
	if in, ok := filter["status"].(bson.M); ok {
		if list, ok := in["$in"].([]string); ok {
			found := false
			for _, s := range list {
				if capa.Status == s {
					found = true
				}
			}
			if !found {
				return false
			}
		}
	}
	if due, ok := filter["due_date"].(bson.M); ok {
		if before, ok := due["$lt"].(time.Time); ok && !capa.DueDate.Before(before) {
			return false
		}
	}
	return true
}

func (r *memQualityRepo) UpdateCAPA(_ context.Context, capa *CAPA) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.capas[capa.ID.Hex()] = *capa
	return nil
}

func (r *memQualityRepo) CountCAPAs(ctx context.Context, filter bson.M) (int64, error) {
	capas, err := r.ListCAPAs(ctx, filter, 0)
	return int64(len(capas)), err
}

func (r *memQualityRepo) CreateDocument(_ context.Context, doc *ControlledDocument) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if doc.ID.IsZero() {
		doc.ID = primitive.NewObjectID()
	}
	r.docs[doc.ID.Hex()] = *doc
	return nil
}

func (r *memQualityRepo) GetDocument(_ context.Context, id string) (*ControlledDocument, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	doc, ok := r.docs[id]
	if !ok {
		return nil, fmt.Errorf("document %s not found", id)
	}
	return &doc, nil
}

func (r *memQualityRepo) ListDocuments(_ context.Context, filter bson.M) ([]ControlledDocument, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []ControlledDocument
	for _, doc := range r.docs {
		if !docMatches(doc, filter) {
			continue
		}
		out = append(out, doc)
	}
	return out, nil
}

func docMatches(doc ControlledDocument, filter bson.M) bool {
	if status, ok := filter["status"].(string); ok && doc.Status != status {
		return false
	}
	if rev, ok := filter["revision"].(bson.M); ok {
		if ne, ok := rev["$ne"].(string); ok && doc.Revision == ne {
			return false
		}
	}
	if approver, ok := filter["approved_by"].(bson.M); ok {
		if ne, ok := approver["$ne"].(string); ok && doc.ApprovedBy == ne {
			return false
		}
	}
	return true
}

func (r *memQualityRepo) UpdateDocument(_ context.Context, doc *ControlledDocument) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.docs[doc.ID.Hex()] = *doc
	return nil
}

func (r *memQualityRepo) CountDocuments(ctx context.Context, filter bson.M) (int64, error) {
	docs, err := r.ListDocuments(ctx, filter)
	return int64(len(docs)), err
}

type recordingEscalation struct {
	triggers []string
	subjects []string
}

func (e *recordingEscalation) StartByTrigger(_ context.Context, triggerType, _ string, subjectID, _ string) error {
	e.triggers = append(e.triggers, triggerType)
	e.subjects = append(e.subjects, subjectID)
	return nil
}

type noopAudit struct{}

func (noopAudit) LogChange(_ context.Context, _ common_models.AuditAction, _ string, _ string, _ map[string]common_models.Change) error {
	return nil
}
func (noopAudit) ListLogs(_ context.Context, _ map[string]interface{}, _, _ int64) ([]common_models.AuditLog, error) {
	return nil, nil
}

func newService() (*QualityServiceImpl, *memQualityRepo, *recordingEscalation) {
	repo := newMemQualityRepo()
	escalation := &recordingEscalation{}
	svc := &QualityServiceImpl{
		Repo:       repo,
		Escalation: escalation,
		Audit:      noopAudit{},
		Logger:     zap.NewNop(),
	}
	return svc, repo, escalation
}

func TestCriticalEventStartsEscalation(t *testing.T) {
	svc, _, escalation := newService()

	id, err := svc.OpenEvent(context.Background(), "Sterility failure", SeverityCritical, "lims", nil)
	if err != nil {
		t.Fatalf("OpenEvent: %v", err)
	}
	if len(escalation.triggers) != 1 || escalation.triggers[0] != "quality_event" {
		t.Fatalf("expected one quality_event trigger, got %v", escalation.triggers)
	}
	if escalation.subjects[0] != id {
		t.Fatalf("escalation subject = %s, want %s", escalation.subjects[0], id)
	}
}

func TestMinorEventDoesNotEscalate(t *testing.T) {
	svc, _, escalation := newService()

	if _, err := svc.OpenEvent(context.Background(), "Label smudge", SeverityMinor, "manual", nil); err != nil {
		t.Fatalf("OpenEvent: %v", err)
	}
	if len(escalation.triggers) != 0 {
		t.Fatalf("expected no escalation, got %v", escalation.triggers)
	}
}

func TestOpenEventDefaultsAndDetails(t *testing.T) {
	svc, repo, _ := newService()

	id, err := svc.OpenEvent(context.Background(), "Out of spec pH", SeverityMajor, "lims", map[string]interface{}{
		"type":   "oos",
		"sample": "S-104",
	})
	if err != nil {
		t.Fatalf("OpenEvent: %v", err)
	}

	event, err := repo.GetEvent(context.Background(), id)
	if err != nil {
		t.Fatalf("GetEvent: %v", err)
	}
	if event.Type != "oos" {
		t.Errorf("type = %s, want oos", event.Type)
	}
	if event.Status != EventOpen {
		t.Errorf("status = %s, want open", event.Status)
	}
	if event.ReportedBy != "system" {
		t.Errorf("reported_by = %s, want system", event.ReportedBy)
	}
}

func TestUpdateEventStatusClosesWithTimestamp(t *testing.T) {
	svc, _, _ := newService()

	id, err := svc.OpenEvent(context.Background(), "Deviation", SeverityMinor, "manual", nil)
	if err != nil {
		t.Fatalf("OpenEvent: %v", err)
	}

	event, err := svc.UpdateEventStatus(context.Background(), id, EventClosed)
	if err != nil {
		t.Fatalf("UpdateEventStatus: %v", err)
	}
	if event.ClosedAt == nil {
		t.Fatal("expected closed_at to be set")
	}

	if _, err := svc.UpdateEventStatus(context.Background(), id, "archived"); err == nil {
		t.Fatal("expected error for invalid status")
	}
}

func TestCreateCAPAValidation(t *testing.T) {
	svc, _, _ := newService()
	due := time.Now().Add(14 * 24 * time.Hour)

	cases := []struct {
		name string
		capa CAPA
		ok   bool
	}{
		{"valid", CAPA{Title: "Retrain operators", Type: "corrective", Owner: "u1", DueDate: due}, true},
		{"missing owner", CAPA{Title: "Retrain", Type: "corrective", DueDate: due}, false},
		{"missing due date", CAPA{Title: "Retrain", Type: "corrective", Owner: "u1"}, false},
		{"bad type", CAPA{Title: "Retrain", Type: "remedial", Owner: "u1", DueDate: due}, false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := svc.CreateCAPA(context.Background(), &tc.capa)
			if tc.ok && err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !tc.ok && err == nil {
				t.Fatal("expected error")
			}
		})
	}
}

func TestCAPAStatsCountsOverdue(t *testing.T) {
	svc, repo, _ := newService()
	ctx := context.Background()

	past := time.Now().Add(-48 * time.Hour)
	future := time.Now().Add(72 * time.Hour)

	repo.CreateCAPA(ctx, &CAPA{Title: "a", Type: "corrective", Owner: "u1", Status: CAPAOpen, DueDate: past})
	repo.CreateCAPA(ctx, &CAPA{Title: "b", Type: "corrective", Owner: "u1", Status: CAPAInProgress, DueDate: future})
	repo.CreateCAPA(ctx, &CAPA{Title: "c", Type: "preventive", Owner: "u2", Status: CAPAClosed, DueDate: past})

	onTime, total, err := svc.CAPAStats(ctx)
	if err != nil {
		t.Fatalf("CAPAStats: %v", err)
	}
	if total != 2 {
		t.Errorf("total = %d, want 2 (closed capas excluded)", total)
	}
	if onTime != 1 {
		t.Errorf("onTime = %d, want 1", onTime)
	}
}

func TestDocumentStatsRequiresRevisionAndApprover(t *testing.T) {
	svc, repo, _ := newService()
	ctx := context.Background()

	repo.CreateDocument(ctx, &ControlledDocument{Number: "SOP-001", Title: "Sampling", Status: "effective", Revision: "B", ApprovedBy: "qa1"})
	repo.CreateDocument(ctx, &ControlledDocument{Number: "SOP-002", Title: "Cleaning", Status: "effective", Revision: "A"})
	repo.CreateDocument(ctx, &ControlledDocument{Number: "SOP-003", Title: "Draft", Status: "draft"})

	controlled, total, err := svc.DocumentStats(ctx)
	if err != nil {
		t.Fatalf("DocumentStats: %v", err)
	}
	if total != 2 {
		t.Errorf("total = %d, want 2 effective documents", total)
	}
	if controlled != 1 {
		t.Errorf("controlled = %d, want 1", controlled)
	}
}
