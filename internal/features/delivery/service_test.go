package delivery

import (
	"context"
	"errors"
	"testing"
	"time"

	common_models "go-qms/internal/common/models"
	emails "go-qms/internal/email"
	"go-qms/pkg/condition"

	"github.com/robfig/cron/v3"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

func TestCronExprFor(t *testing.T) {
	tests := []struct {
		frequency Frequency
		custom    string
		want      string
		wantErr   bool
	}{
		{frequency: FrequencyDaily, want: "0 8 * * *"},
		{frequency: FrequencyWeekly, want: "0 8 * * 1"},
		{frequency: FrequencyMonthly, want: "0 8 1 * *"},
		{frequency: FrequencyQuarterly, want: "0 8 1 1,4,7,10 *"},
		{frequency: FrequencyCron, custom: "*/15 * * * *", want: "*/15 * * * *"},
		{frequency: FrequencyCron, custom: "", wantErr: true},
		{frequency: Frequency("hourly"), wantErr: true},
	}

	for _, tt := range tests {
		t.Run(string(tt.frequency), func(t *testing.T) {
			got, err := CronExprFor(tt.frequency, tt.custom)
			if tt.wantErr {
				if err == nil {
					t.Errorf("CronExprFor(%q) expected error", tt.frequency)
				}
				return
			}
			if err != nil {
				t.Fatalf("CronExprFor(%q) error = %v", tt.frequency, err)
			}
			if got != tt.want {
				t.Errorf("CronExprFor(%q) = %q, want %q", tt.frequency, got, tt.want)
			}
			if _, err := cron.ParseStandard(got); err != nil {
				t.Errorf("generated expression %q does not parse: %v", got, err)
			}
		})
	}
}

func TestIsBusinessDay(t *testing.T) {
	// 2026-08-28 is a Friday, 2026-08-29 a Saturday, 2026-08-30 a Sunday.
	friday := time.Date(2026, 8, 28, 9, 0, 0, 0, time.UTC)
	saturday := time.Date(2026, 8, 29, 9, 0, 0, 0, time.UTC)
	sunday := time.Date(2026, 8, 30, 9, 0, 0, 0, time.UTC)

	if !isBusinessDay(friday) {
		t.Error("Friday should be a business day")
	}
	if isBusinessDay(saturday) {
		t.Error("Saturday should not be a business day")
	}
	if isBusinessDay(sunday) {
		t.Error("Sunday should not be a business day")
	}
}

type memScheduleRepo struct {
	schedules  map[string]*DeliverySchedule
	deliveries map[string]*ScheduledDelivery
}

func newMemScheduleRepo() *memScheduleRepo {
	return &memScheduleRepo{
		schedules:  map[string]*DeliverySchedule{},
		deliveries: map[string]*ScheduledDelivery{},
	}
}

func (m *memScheduleRepo) Create(_ context.Context, s *DeliverySchedule) error {
	if s.ID.IsZero() {
		s.ID = primitive.NewObjectID()
	}
	m.schedules[s.ID.Hex()] = s
	return nil
}

func (m *memScheduleRepo) GetByID(_ context.Context, id string) (*DeliverySchedule, error) {
	if s, ok := m.schedules[id]; ok {
		return s, nil
	}
	return nil, errors.New("not found")
}

func (m *memScheduleRepo) List(_ context.Context) ([]DeliverySchedule, error)      { return nil, nil }
func (m *memScheduleRepo) GetActive(_ context.Context) ([]DeliverySchedule, error) { return nil, nil }
func (m *memScheduleRepo) Update(_ context.Context, s *DeliverySchedule) error {
	m.schedules[s.ID.Hex()] = s
	return nil
}

func (m *memScheduleRepo) UpdateRunTimes(_ context.Context, id string, lastRun time.Time, nextRun *time.Time) error {
	if s, ok := m.schedules[id]; ok {
		s.LastRun = &lastRun
		s.NextRun = nextRun
	}
	return nil
}

func (m *memScheduleRepo) Delete(_ context.Context, id string) error {
	delete(m.schedules, id)
	return nil
}

func (m *memScheduleRepo) CreateDelivery(_ context.Context, d *ScheduledDelivery) error {
	if d.ID.IsZero() {
		d.ID = primitive.NewObjectID()
	}
	d.StartedAt = time.Now()
	m.deliveries[d.ID.Hex()] = d
	return nil
}

func (m *memScheduleRepo) UpdateDelivery(_ context.Context, d *ScheduledDelivery) error {
	m.deliveries[d.ID.Hex()] = d
	return nil
}

func (m *memScheduleRepo) ListDeliveries(_ context.Context, _ string, _ int64) ([]ScheduledDelivery, error) {
	return nil, nil
}

type fakeReportBuilder struct{ built int }

func (f *fakeReportBuilder) Build(_ context.Context, reportName, format string) (string, string, []byte, error) {
	f.built++
	return reportName + "." + format, "application/octet-stream", []byte("data"), nil
}

type fixedScorer struct{ score float64 }

func (f fixedScorer) OverallScore(_ context.Context) (float64, error) { return f.score, nil }

type noopFiller struct{}

func (noopFiller) FillScope(_ context.Context, _ *condition.Context) error { return nil }

type passthroughResolver struct{}

func (passthroughResolver) Resolve(_ context.Context, specs []string, _ *condition.Context) []string {
	return specs
}

type captureEmail struct{ sent []*emails.Email }

func (c *captureEmail) Send(_ context.Context, email *emails.Email) error {
	c.sent = append(c.sent, email)
	return nil
}

type noopAudit struct{}

func (noopAudit) LogChange(_ context.Context, _ common_models.AuditAction, _ string, _ string, _ map[string]common_models.Change) error {
	return nil
}
func (noopAudit) ListLogs(_ context.Context, _ map[string]interface{}, _, _ int64) ([]common_models.AuditLog, error) {
	return nil, nil
}

func newTestDelivery(score float64) (*DeliveryServiceImpl, *memScheduleRepo, *fakeReportBuilder, *captureEmail) {
	repo := newMemScheduleRepo()
	reports := &fakeReportBuilder{}
	mail := &captureEmail{}
	svc := &DeliveryServiceImpl{
		repo:       repo,
		reports:    reports,
		compliance: fixedScorer{score: score},
		training:   noopFiller{},
		resolver:   passthroughResolver{},
		email:      mail,
		audit:      noopAudit{},
		logger:     zap.NewNop(),
		jobEntries: map[string]cron.EntryID{},
	}
	return svc, repo, reports, mail
}

func testSchedule(conditions DeliveryConditions) *DeliverySchedule {
	return &DeliverySchedule{
		Name:       "weekly compliance summary",
		Frequency:  FrequencyWeekly,
		ReportName: "compliance_summary",
		Format:     "csv",
		Recipients: []string{"qm@example.com"},
		Conditions: conditions,
		Active:     true,
	}
}

func TestExecuteDeliversReport(t *testing.T) {
	svc, _, reports, mail := newTestDelivery(95)
	ctx := context.Background()

	schedule := testSchedule(DeliveryConditions{})
	if err := svc.CreateSchedule(ctx, schedule); err != nil {
		t.Fatalf("CreateSchedule() error = %v", err)
	}
	if schedule.NextRun == nil {
		t.Fatal("CreateSchedule() did not compute next run")
	}

	delivery, err := svc.Execute(ctx, schedule.ID.Hex())
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if delivery.Status != DeliveryCompleted {
		t.Errorf("delivery status = %s, want %s", delivery.Status, DeliveryCompleted)
	}
	if reports.built != 1 {
		t.Errorf("report built %d times, want 1", reports.built)
	}
	if len(mail.sent) != 1 {
		t.Fatalf("emails sent = %d, want 1", len(mail.sent))
	}
	if got := mail.sent[0].Attachments[0].Filename; got != "compliance_summary.csv" {
		t.Errorf("attachment filename = %q, want compliance_summary.csv", got)
	}
}

func TestExecuteSkipsBelowComplianceThreshold(t *testing.T) {
	svc, _, reports, mail := newTestDelivery(80)
	ctx := context.Background()

	threshold := 90.0
	schedule := testSchedule(DeliveryConditions{MinComplianceScore: &threshold})
	if err := svc.CreateSchedule(ctx, schedule); err != nil {
		t.Fatalf("CreateSchedule() error = %v", err)
	}

	delivery, err := svc.Execute(ctx, schedule.ID.Hex())
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if delivery.Status != DeliverySkipped {
		t.Errorf("delivery status = %s, want %s", delivery.Status, DeliverySkipped)
	}
	if delivery.SkipReason == "" {
		t.Error("skipped delivery should record a reason")
	}
	if reports.built != 0 {
		t.Errorf("report built %d times for a skipped delivery, want 0", reports.built)
	}
	if len(mail.sent) != 0 {
		t.Errorf("emails sent = %d for a skipped delivery, want 0", len(mail.sent))
	}
}

func TestShouldSkipBusinessDaysOnly(t *testing.T) {
	svc, _, _, _ := newTestDelivery(95)
	schedule := testSchedule(DeliveryConditions{BusinessDaysOnly: true})

	saturday := time.Date(2026, 8, 29, 8, 0, 0, 0, time.UTC)
	if skip, reason := svc.shouldSkip(context.Background(), schedule, saturday); !skip {
		t.Error("shouldSkip() = false on a Saturday, want true")
	} else if reason == "" {
		t.Error("skip reason should not be empty")
	}

	monday := time.Date(2026, 8, 31, 8, 0, 0, 0, time.UTC)
	if skip, _ := svc.shouldSkip(context.Background(), schedule, monday); skip {
		t.Error("shouldSkip() = true on a Monday, want false")
	}
}

func TestExecuteConditionScript(t *testing.T) {
	svc, _, _, mail := newTestDelivery(95)
	ctx := context.Background()

	schedule := testSchedule(DeliveryConditions{
		Script: `deliver := compliance.overall_score >= 90`,
	})
	if err := svc.CreateSchedule(ctx, schedule); err != nil {
		t.Fatalf("CreateSchedule() error = %v", err)
	}

	delivery, err := svc.Execute(ctx, schedule.ID.Hex())
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if delivery.Status != DeliveryCompleted {
		t.Errorf("delivery status = %s, want %s", delivery.Status, DeliveryCompleted)
	}
	if len(mail.sent) != 1 {
		t.Errorf("emails sent = %d, want 1", len(mail.sent))
	}
}

func TestCreateScheduleRejectsBadInput(t *testing.T) {
	svc, _, _, _ := newTestDelivery(95)
	ctx := context.Background()

	noRecipients := testSchedule(DeliveryConditions{})
	noRecipients.Recipients = nil
	if err := svc.CreateSchedule(ctx, noRecipients); err == nil {
		t.Error("CreateSchedule() should reject a schedule with no recipients")
	}

	badFormat := testSchedule(DeliveryConditions{})
	badFormat.Format = "pdf"
	if err := svc.CreateSchedule(ctx, badFormat); err == nil {
		t.Error("CreateSchedule() should reject an unsupported format")
	}

	badScript := testSchedule(DeliveryConditions{Script: "deliver :="})
	if err := svc.CreateSchedule(ctx, badScript); err == nil {
		t.Error("CreateSchedule() should reject a script that does not compile")
	}
}
