package lims

import (
	"context"
	"fmt"
	"testing"
	"time"

	common_models "go-qms/internal/common/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

type memLimsRepo struct {
	samples    map[string]Sample
	executions map[string]TestExecution
}

func newMemLimsRepo() *memLimsRepo {
	return &memLimsRepo{
		samples:    map[string]Sample{},
		executions: map[string]TestExecution{},
	}
}

func (r *memLimsRepo) CreateSample(_ context.Context, s *Sample) error {
	if s.ID.IsZero() {
		s.ID = primitive.NewObjectID()
	}
	r.samples[s.ID.Hex()] = *s
	return nil
}

func (r *memLimsRepo) GetSample(_ context.Context, id string) (*Sample, error) {
	s, ok := r.samples[id]
	if !ok {
		return nil, fmt.Errorf("sample %s not found", id)
	}
	return &s, nil
}

func (r *memLimsRepo) ListSamples(_ context.Context, _ bson.M, _ int64) ([]Sample, error) {
	var out []Sample
	for _, s := range r.samples {
		out = append(out, s)
	}
	return out, nil
}

func (r *memLimsRepo) UpdateSample(_ context.Context, s *Sample) error {
	r.samples[s.ID.Hex()] = *s
	return nil
}

func (r *memLimsRepo) CreateExecution(_ context.Context, e *TestExecution) error {
	if e.ID.IsZero() {
		e.ID = primitive.NewObjectID()
	}
	r.executions[e.ID.Hex()] = *e
	return nil
}

func (r *memLimsRepo) GetExecution(_ context.Context, id string) (*TestExecution, error) {
	e, ok := r.executions[id]
	if !ok {
		return nil, fmt.Errorf("execution %s not found", id)
	}
	return &e, nil
}

func (r *memLimsRepo) ListExecutions(_ context.Context, _ bson.M, _ int64) ([]TestExecution, error) {
	var out []TestExecution
	for _, e := range r.executions {
		out = append(out, e)
	}
	return out, nil
}

func (r *memLimsRepo) UpdateExecution(_ context.Context, e *TestExecution) error {
	r.executions[e.ID.Hex()] = *e
	return nil
}

type recordingOpener struct {
	titles []string
}

func (o *recordingOpener) OpenEvent(_ context.Context, title, _, _ string, _ map[string]interface{}) (string, error) {
	o.titles = append(o.titles, title)
	return primitive.NewObjectID().Hex(), nil
}

type noopAudit struct{}

func (noopAudit) LogChange(_ context.Context, _ common_models.AuditAction, _ string, _ string, _ map[string]common_models.Change) error {
	return nil
}
func (noopAudit) ListLogs(_ context.Context, _ map[string]interface{}, _, _ int64) ([]common_models.AuditLog, error) {
	return nil, nil
}

func newTestService() (*LimsServiceImpl, *memLimsRepo, *recordingOpener) {
	repo := newMemLimsRepo()
	opener := &recordingOpener{}
	svc := &LimsServiceImpl{
		Repo:   repo,
		Events: opener,
		Audit:  noopAudit{},
		Logger: zap.NewNop(),
	}
	return svc, repo, opener
}

func registerSample(t *testing.T, svc *LimsServiceImpl) *Sample {
	t.Helper()
	sample := &Sample{SampleNumber: "S-2026-014", Material: "purified water", CollectedBy: "analyst-1"}
	if err := svc.RegisterSample(context.Background(), sample); err != nil {
		t.Fatalf("RegisterSample() error = %v", err)
	}
	return sample
}

func scheduleExecution(t *testing.T, svc *LimsServiceImpl, sample *Sample) *TestExecution {
	t.Helper()
	execution := &TestExecution{SampleID: sample.ID, TestName: "pH", Analyst: "analyst-2"}
	if err := svc.CreateExecution(context.Background(), execution); err != nil {
		t.Fatalf("CreateExecution() error = %v", err)
	}
	return execution
}

func limits(lo, hi float64) (*float64, *float64) {
	return &lo, &hi
}

func TestRegisterSampleSeedsCustodyChain(t *testing.T) {
	svc, _, _ := newTestService()
	sample := registerSample(t, svc)

	if len(sample.Custody) != 1 {
		t.Fatalf("custody length = %d, want 1", len(sample.Custody))
	}
	if sample.Custody[0].ToActor != "analyst-1" || sample.Custody[0].Reason != "collection" {
		t.Errorf("unexpected first custody entry: %+v", sample.Custody[0])
	}
}

func TestTransferCustodyAppends(t *testing.T) {
	svc, repo, _ := newTestService()
	sample := registerSample(t, svc)
	ctx := context.Background()

	updated, err := svc.TransferCustody(ctx, sample.ID.Hex(), CustodyEntry{ToActor: "analyst-2", Location: "lab 3"})
	if err != nil {
		t.Fatalf("TransferCustody() error = %v", err)
	}
	if len(updated.Custody) != 2 {
		t.Fatalf("custody length = %d, want 2", len(updated.Custody))
	}
	last := updated.Custody[1]
	if last.FromActor != "analyst-1" {
		t.Errorf("from_actor = %s, want inferred analyst-1", last.FromActor)
	}
	if last.Timestamp.IsZero() {
		t.Error("transfer entry missing timestamp")
	}

	stored, _ := repo.GetSample(ctx, sample.ID.Hex())
	if len(stored.Custody) != 2 {
		t.Errorf("persisted custody length = %d, want 2", len(stored.Custody))
	}
}

func TestTransferCustodyClosedSample(t *testing.T) {
	svc, _, _ := newTestService()
	sample := registerSample(t, svc)
	ctx := context.Background()

	if _, err := svc.UpdateSampleStatus(ctx, sample.ID.Hex(), SampleReleased); err != nil {
		t.Fatalf("UpdateSampleStatus() error = %v", err)
	}
	if _, err := svc.TransferCustody(ctx, sample.ID.Hex(), CustodyEntry{ToActor: "analyst-3"}); err == nil {
		t.Fatal("expected error transferring custody of a released sample")
	}
}

func TestRecordResultInSpec(t *testing.T) {
	svc, _, opener := newTestService()
	sample := registerSample(t, svc)
	execution := scheduleExecution(t, svc, sample)
	ctx := context.Background()

	lo, hi := limits(6.5, 7.5)
	updated, err := svc.RecordResult(ctx, execution.ID.Hex(), TestResult{
		Parameter: "pH", Value: 7.0, LowerLimit: lo, UpperLimit: hi, RecordedBy: "analyst-2",
	})
	if err != nil {
		t.Fatalf("RecordResult() error = %v", err)
	}
	if !updated.Results[0].InSpec {
		t.Error("result within limits flagged out of spec")
	}
	if len(opener.titles) != 0 {
		t.Errorf("in-spec result opened quality event: %v", opener.titles)
	}
}

func TestRecordResultOutOfSpecOpensEvent(t *testing.T) {
	svc, _, opener := newTestService()
	sample := registerSample(t, svc)
	execution := scheduleExecution(t, svc, sample)
	ctx := context.Background()

	lo, hi := limits(6.5, 7.5)
	updated, err := svc.RecordResult(ctx, execution.ID.Hex(), TestResult{
		Parameter: "pH", Value: 8.2, LowerLimit: lo, UpperLimit: hi, RecordedBy: "analyst-2",
	})
	if err != nil {
		t.Fatalf("RecordResult() error = %v", err)
	}
	if updated.Results[0].InSpec {
		t.Error("result above upper limit flagged in spec")
	}
	if len(opener.titles) != 1 {
		t.Fatalf("expected one quality event, got %v", opener.titles)
	}
}

func TestResultLimitsAreInclusive(t *testing.T) {
	lo, hi := limits(6.5, 7.5)
	cases := []struct {
		value float64
		want  bool
	}{
		{6.5, true},
		{7.5, true},
		{6.49, false},
		{7.51, false},
	}
	for _, tc := range cases {
		r := TestResult{Value: tc.value, LowerLimit: lo, UpperLimit: hi}
		if got := r.WithinLimits(); got != tc.want {
			t.Errorf("WithinLimits(%g) = %v, want %v", tc.value, got, tc.want)
		}
	}
}

func TestCustodyStats(t *testing.T) {
	svc, repo, _ := newTestService()
	ctx := context.Background()

	repo.CreateSample(ctx, &Sample{SampleNumber: "S-1", Material: "api", Custody: []CustodyEntry{
		{ToActor: "a1", Timestamp: time.Now()},
		{ToActor: "a2", Timestamp: time.Now()},
	}})
	repo.CreateSample(ctx, &Sample{SampleNumber: "S-2", Material: "api", Custody: []CustodyEntry{
		{ToActor: "a1", Timestamp: time.Now()},
		{ToActor: ""},
	}})

	complete, total, err := svc.CustodyStats(ctx)
	if err != nil {
		t.Fatalf("CustodyStats() error = %v", err)
	}
	if total != 4 || complete != 3 {
		t.Errorf("stats = %d/%d, want 3/4", complete, total)
	}
}
