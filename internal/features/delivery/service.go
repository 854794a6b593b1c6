package delivery

import (
	"context"
	"fmt"
	"sync"
	"time"

	common_models "go-qms/internal/common/models"
	emails "go-qms/internal/email"
	"go-qms/internal/features/audit"
	"go-qms/pkg/condition"

	"github.com/d5/tengo/v2"
	"github.com/d5/tengo/v2/stdlib"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// ReportBuilder renders a named report into a file attachment.
type ReportBuilder interface {
	Build(ctx context.Context, reportName, format string) (filename, contentType string, content []byte, err error)
}

// ComplianceScorer exposes the current overall compliance score.
type ComplianceScorer interface {
	OverallScore(ctx context.Context) (float64, error)
}

// RecipientResolver expands symbolic recipient specs.
type RecipientResolver interface {
	Resolve(ctx context.Context, specs []string, ectx *condition.Context) []string
}

// ScopeFiller loads a feature's aggregates into an evaluation context
// before delivery conditions run.
type ScopeFiller interface {
	FillScope(ctx context.Context, ectx *condition.Context) error
}

type DeliveryService interface {
	CreateSchedule(ctx context.Context, schedule *DeliverySchedule) error
	GetSchedule(ctx context.Context, id string) (*DeliverySchedule, error)
	ListSchedules(ctx context.Context) ([]DeliverySchedule, error)
	UpdateSchedule(ctx context.Context, schedule *DeliverySchedule) error
	DeleteSchedule(ctx context.Context, id string) error

	// Execute fires a schedule immediately, running the full condition
	// check and delivery pipeline.
	Execute(ctx context.Context, scheduleID string) (*ScheduledDelivery, error)
	ListDeliveries(ctx context.Context, scheduleID string, limit int64) ([]ScheduledDelivery, error)

	InitializeScheduler(ctx context.Context) error
	StopScheduler() error
	RegisterSchedule(schedule *DeliverySchedule) error
	UnregisterSchedule(id string) error

	// RegisterMaintenance adds a background job to the internal cron;
	// the escalation timeout sweep and compliance auto-checks run here.
	RegisterMaintenance(spec string, job func()) error
}

type DeliveryServiceImpl struct {
	repo       ScheduleRepository
	reports    ReportBuilder
	compliance ComplianceScorer
	training   ScopeFiller
	resolver   RecipientResolver
	email      emails.EmailService
	audit      audit.AuditService
	logger     *zap.Logger

	scheduler  *cron.Cron
	jobEntries map[string]cron.EntryID
	mu         sync.RWMutex
}

func NewDeliveryService(
	repo ScheduleRepository,
	reports ReportBuilder,
	compliance ComplianceScorer,
	training ScopeFiller,
	resolver RecipientResolver,
	email emails.EmailService,
	auditService audit.AuditService,
	logger *zap.Logger,
) DeliveryService {
	return &DeliveryServiceImpl{
		repo:       repo,
		reports:    reports,
		compliance: compliance,
		training:   training,
		resolver:   resolver,
		email:      email,
		audit:      auditService,
		logger:     logger,
		jobEntries: make(map[string]cron.EntryID),
	}
}

// CronExprFor translates a coarse frequency into a cron expression.
// Deliveries fire at 08:00; quarterly means the first day of each
// quarter.
func CronExprFor(frequency Frequency, custom string) (string, error) {
	switch frequency {
	case FrequencyDaily:
		return "0 8 * * *", nil
	case FrequencyWeekly:
		return "0 8 * * 1", nil
	case FrequencyMonthly:
		return "0 8 1 * *", nil
	case FrequencyQuarterly:
		return "0 8 1 1,4,7,10 *", nil
	case FrequencyCron:
		if custom == "" {
			return "", fmt.Errorf("cron frequency requires a cron expression")
		}
		return custom, nil
	default:
		return "", fmt.Errorf("unknown frequency %q", frequency)
	}
}

func (s *DeliveryServiceImpl) CreateSchedule(ctx context.Context, schedule *DeliverySchedule) error {
	if err := s.prepare(schedule); err != nil {
		return err
	}
	if err := s.repo.Create(ctx, schedule); err != nil {
		return err
	}

	s.audit.LogChange(ctx, common_models.AuditActionDelivery, "delivery_schedules", schedule.ID.Hex(), map[string]common_models.Change{
		"schedule": {New: schedule.Name},
	})

	if schedule.Active && s.scheduler != nil {
		if err := s.RegisterSchedule(schedule); err != nil {
			s.logger.Error("register delivery schedule", zap.String("id", schedule.ID.Hex()), zap.Error(err))
		}
	}
	return nil
}

func (s *DeliveryServiceImpl) prepare(schedule *DeliverySchedule) error {
	if schedule.Name == "" {
		return fmt.Errorf("schedule name is required")
	}
	if schedule.ReportName == "" {
		return fmt.Errorf("report name is required")
	}
	if schedule.Format == "" {
		schedule.Format = "xlsx"
	}
	if schedule.Format != "xlsx" && schedule.Format != "csv" {
		return fmt.Errorf("unsupported format %q", schedule.Format)
	}
	if len(schedule.Recipients) == 0 {
		return fmt.Errorf("at least one recipient is required")
	}

	expr, err := CronExprFor(schedule.Frequency, schedule.CronExpr)
	if err != nil {
		return err
	}
	parsed, err := cron.ParseStandard(expr)
	if err != nil {
		return fmt.Errorf("invalid cron expression: %w", err)
	}
	schedule.CronExpr = expr
	next := parsed.Next(time.Now())
	schedule.NextRun = &next

	if schedule.Conditions.Script != "" {
		if _, err := tengo.NewScript([]byte(schedule.Conditions.Script)).Compile(); err != nil {
			return fmt.Errorf("invalid condition script: %w", err)
		}
	}
	return nil
}

func (s *DeliveryServiceImpl) GetSchedule(ctx context.Context, id string) (*DeliverySchedule, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *DeliveryServiceImpl) ListSchedules(ctx context.Context) ([]DeliverySchedule, error) {
	return s.repo.List(ctx)
}

func (s *DeliveryServiceImpl) UpdateSchedule(ctx context.Context, schedule *DeliverySchedule) error {
	if err := s.prepare(schedule); err != nil {
		return err
	}
	if err := s.repo.Update(ctx, schedule); err != nil {
		return err
	}

	s.UnregisterSchedule(schedule.ID.Hex())
	if schedule.Active && s.scheduler != nil {
		if err := s.RegisterSchedule(schedule); err != nil {
			s.logger.Error("register updated delivery schedule", zap.String("id", schedule.ID.Hex()), zap.Error(err))
		}
	}
	return nil
}

func (s *DeliveryServiceImpl) DeleteSchedule(ctx context.Context, id string) error {
	s.UnregisterSchedule(id)
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	s.audit.LogChange(ctx, common_models.AuditActionDelivery, "delivery_schedules", id, map[string]common_models.Change{
		"schedule": {Old: id, New: "DELETED"},
	})
	return nil
}

func (s *DeliveryServiceImpl) Execute(ctx context.Context, scheduleID string) (*ScheduledDelivery, error) {
	schedule, err := s.repo.GetByID(ctx, scheduleID)
	if err != nil {
		return nil, err
	}
	return s.execute(ctx, schedule)
}

func (s *DeliveryServiceImpl) execute(ctx context.Context, schedule *DeliverySchedule) (*ScheduledDelivery, error) {
	delivery := &ScheduledDelivery{
		ScheduleID:   schedule.ID,
		ScheduleName: schedule.Name,
		Status:       DeliveryExecuting,
	}
	if err := s.repo.CreateDelivery(ctx, delivery); err != nil {
		return nil, err
	}

	finish := func(status DeliveryStatus, skipReason, errMsg string) {
		now := time.Now()
		delivery.Status = status
		delivery.SkipReason = skipReason
		delivery.Error = errMsg
		delivery.FinishedAt = &now
		if err := s.repo.UpdateDelivery(ctx, delivery); err != nil {
			s.logger.Error("update delivery record", zap.Error(err))
		}
		s.advanceRunTimes(ctx, schedule)
	}

	if skip, reason := s.shouldSkip(ctx, schedule, time.Now()); skip {
		finish(DeliverySkipped, reason, "")
		return delivery, nil
	}

	filename, contentType, content, err := s.reports.Build(ctx, schedule.ReportName, schedule.Format)
	if err != nil {
		finish(DeliveryFailed, "", fmt.Sprintf("report generation: %v", err))
		return delivery, nil
	}
	delivery.ReportFile = filename

	recipients := s.resolver.Resolve(ctx, schedule.Recipients, s.evaluationContext(ctx))
	if len(recipients) == 0 {
		finish(DeliveryFailed, "", "no recipients resolved")
		return delivery, nil
	}
	delivery.Recipients = recipients

	body, err := emails.RenderBody(
		fmt.Sprintf("Scheduled report: %s", schedule.ReportName),
		emails.RenderTable([][2]string{
			{"Schedule", schedule.Name},
			{"Report", schedule.ReportName},
			{"Generated", time.Now().Format(time.RFC1123)},
		}),
	)
	if err != nil {
		finish(DeliveryFailed, "", fmt.Sprintf("render email: %v", err))
		return delivery, nil
	}

	err = s.email.Send(ctx, &emails.Email{
		To:       recipients,
		Subject:  fmt.Sprintf("Scheduled report: %s", schedule.ReportName),
		HtmlBody: body,
		Attachments: []emails.Attachment{{
			Filename:    filename,
			ContentType: contentType,
			Data:        content,
		}},
		EntityType: "delivery_schedule",
		EntityID:   schedule.ID.Hex(),
	})
	if err != nil {
		finish(DeliveryFailed, "", fmt.Sprintf("queue email: %v", err))
		return delivery, nil
	}

	finish(DeliveryCompleted, "", "")
	s.audit.LogChange(ctx, common_models.AuditActionDelivery, "delivery_schedules", schedule.ID.Hex(), map[string]common_models.Change{
		"delivery": {New: fmt.Sprintf("%s sent to %d recipients", schedule.ReportName, len(recipients))},
	})
	return delivery, nil
}

// shouldSkip runs the configured condition checks in order, returning
// the first failing check's reason.
func (s *DeliveryServiceImpl) shouldSkip(ctx context.Context, schedule *DeliverySchedule, now time.Time) (bool, string) {
	if schedule.Conditions.BusinessDaysOnly && !isBusinessDay(now) {
		return true, "not a business day"
	}

	if schedule.Conditions.MinComplianceScore != nil {
		score, err := s.compliance.OverallScore(ctx)
		if err != nil {
			s.logger.Warn("compliance score unavailable, skipping delivery", zap.Error(err))
			return true, "compliance score unavailable"
		}
		if score < *schedule.Conditions.MinComplianceScore {
			return true, fmt.Sprintf("compliance score %.1f below %.1f", score, *schedule.Conditions.MinComplianceScore)
		}
	}

	if schedule.Conditions.Condition != nil {
		if !condition.Evaluate(schedule.Conditions.Condition, s.evaluationContext(ctx)) {
			return true, "delivery condition not met"
		}
	}

	if schedule.Conditions.Script != "" {
		deliver, err := s.runConditionScript(ctx, schedule.Conditions.Script)
		if err != nil {
			s.logger.Warn("delivery condition script failed", zap.Error(err))
			return true, "condition script failed"
		}
		if !deliver {
			return true, "condition script returned false"
		}
	}
	return false, ""
}

func (s *DeliveryServiceImpl) runConditionScript(ctx context.Context, source string) (bool, error) {
	script := tengo.NewScript([]byte(source))
	script.SetImports(stdlib.GetModuleMap("text", "math", "times"))

	ectx := s.evaluationContext(ctx)
	for scope, values := range ectx.Scopes() {
		if err := script.Add(scope, values); err != nil {
			return false, err
		}
	}

	compiled, err := script.RunContext(ctx)
	if err != nil {
		return false, err
	}
	out := compiled.Get("deliver")
	if out == nil {
		return false, fmt.Errorf("script did not set deliver")
	}
	return out.Bool(), nil
}

func (s *DeliveryServiceImpl) evaluationContext(ctx context.Context) *condition.Context {
	ectx := condition.NewContext()
	now := time.Now()
	ectx.System["weekday"] = now.Weekday().String()
	ectx.System["hour"] = now.Hour()
	ectx.System["date"] = now.Format("2006-01-02")
	if score, err := s.compliance.OverallScore(ctx); err == nil {
		ectx.Compliance["overall_score"] = score
	}
	if err := s.training.FillScope(ctx, ectx); err != nil {
		s.logger.Warn("fill training scope", zap.Error(err))
	}
	return ectx
}

func isBusinessDay(t time.Time) bool {
	switch t.Weekday() {
	case time.Saturday, time.Sunday:
		return false
	}
	return true
}

func (s *DeliveryServiceImpl) advanceRunTimes(ctx context.Context, schedule *DeliverySchedule) {
	parsed, err := cron.ParseStandard(schedule.CronExpr)
	if err != nil {
		return
	}
	next := parsed.Next(time.Now())
	if err := s.repo.UpdateRunTimes(ctx, schedule.ID.Hex(), time.Now(), &next); err != nil {
		s.logger.Error("update schedule run times", zap.String("id", schedule.ID.Hex()), zap.Error(err))
	}
}

func (s *DeliveryServiceImpl) ListDeliveries(ctx context.Context, scheduleID string, limit int64) ([]ScheduledDelivery, error) {
	return s.repo.ListDeliveries(ctx, scheduleID, limit)
}

func (s *DeliveryServiceImpl) InitializeScheduler(ctx context.Context) error {
	s.scheduler = cron.New()

	schedules, err := s.repo.GetActive(ctx)
	if err != nil {
		return fmt.Errorf("load active delivery schedules: %w", err)
	}
	for i := range schedules {
		if err := s.RegisterSchedule(&schedules[i]); err != nil {
			s.logger.Error("register delivery schedule",
				zap.String("id", schedules[i].ID.Hex()),
				zap.Error(err),
			)
		}
	}

	s.scheduler.Start()
	s.logger.Info("delivery scheduler started", zap.Int("schedules", len(schedules)))
	return nil
}

func (s *DeliveryServiceImpl) StopScheduler() error {
	if s.scheduler != nil {
		ctx := s.scheduler.Stop()
		<-ctx.Done()
	}
	return nil
}

func (s *DeliveryServiceImpl) RegisterSchedule(schedule *DeliverySchedule) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.scheduler == nil {
		return fmt.Errorf("scheduler not initialized")
	}

	scheduleID := schedule.ID.Hex()
	entryID, err := s.scheduler.AddFunc(schedule.CronExpr, func() {
		ctx := context.Background()
		latest, err := s.repo.GetByID(ctx, scheduleID)
		if err != nil || !latest.Active {
			return
		}
		if _, err := s.execute(ctx, latest); err != nil {
			s.logger.Error("scheduled delivery failed", zap.String("id", scheduleID), zap.Error(err))
		}
	})
	if err != nil {
		return fmt.Errorf("add schedule to scheduler: %w", err)
	}

	s.jobEntries[scheduleID] = entryID
	return nil
}

func (s *DeliveryServiceImpl) RegisterMaintenance(spec string, job func()) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.scheduler == nil {
		return fmt.Errorf("scheduler not initialized")
	}
	if _, err := s.scheduler.AddFunc(spec, job); err != nil {
		return fmt.Errorf("add maintenance job to scheduler: %w", err)
	}
	return nil
}

func (s *DeliveryServiceImpl) UnregisterSchedule(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if entryID, ok := s.jobEntries[id]; ok && s.scheduler != nil {
		s.scheduler.Remove(entryID)
		delete(s.jobEntries, id)
	}
	return nil
}
