package main

import (
	"context"
	"time"

	common_models "go-qms/internal/common/models"
	"go-qms/internal/config"
	"go-qms/internal/database"
	"go-qms/internal/features/delivery"
	"go-qms/internal/features/escalation"
	"go-qms/internal/features/organization"
	"go-qms/internal/features/recipient"
	"go-qms/internal/features/report"
	"go-qms/internal/features/user"
	"go-qms/internal/features/workflow"
	"go-qms/internal/logger"

	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

// Seed loads the demo organization: users, departments, distribution
// lists, the critical-event escalation ladder, a compliance review
// workflow, and a weekly CAPA report delivery. Every record is skipped
// when one with the same name or email already exists.
func Seed(
	lc fx.Lifecycle,
	userRepo user.UserRepository,
	departmentRepo organization.DepartmentRepository,
	listRepo recipient.ListRepository,
	workflowRepo escalation.WorkflowRepository,
	definitionRepo workflow.DefinitionRepository,
	reportRepo report.ReportRepository,
	scheduleRepo delivery.ScheduleRepository,
	logger *zap.Logger,
	shutdowner fx.Shutdowner,
) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				defer func() {
					if err := shutdowner.Shutdown(); err != nil {
						logger.Error("Failed to shutdown", zap.Error(err))
					}
				}()

				logger.Info("Starting database seeding...")

				seedUsers(ctx, userRepo, logger)
				seedDepartments(ctx, departmentRepo, logger)
				seedDistributionLists(ctx, listRepo, logger)
				seedEscalationWorkflows(ctx, workflowRepo, logger)
				seedWorkflowDefinitions(ctx, definitionRepo, logger)
				seedReports(ctx, reportRepo, scheduleRepo, logger)

				logger.Info("Seeding complete")
			}()
			return nil
		},
	})
}

func seedUsers(ctx context.Context, repo user.UserRepository, logger *zap.Logger) {
	users := []struct {
		username, email, password, department string
		roles                                 []string
		isManager                             bool
	}{
		{"admin", "admin@example.com", "admin123", "quality_assurance", []string{"admin"}, true},
		{"qmanager", "qm@example.com", "qmanager123", "quality_assurance", []string{"quality_manager"}, true},
		{"analyst", "analyst@example.com", "analyst123", "laboratory", []string{"analyst"}, false},
		{"operator", "operator@example.com", "operator123", "manufacturing", []string{"operator"}, false},
	}

	for _, u := range users {
		if _, err := repo.FindByEmail(ctx, u.email); err == nil {
			logger.Info("User exists, skipping", zap.String("email", u.email))
			continue
		}
		hashed, err := bcrypt.GenerateFromPassword([]byte(u.password), bcrypt.DefaultCost)
		if err != nil {
			logger.Error("Failed to hash password", zap.String("email", u.email), zap.Error(err))
			continue
		}
		record := &common_models.User{
			Username:   u.username,
			Email:      u.email,
			Password:   string(hashed),
			Status:     "active",
			Roles:      u.roles,
			Department: u.department,
			IsManager:  u.isManager,
		}
		if err := repo.Create(ctx, record); err != nil {
			logger.Error("Failed to create user", zap.String("email", u.email), zap.Error(err))
			continue
		}
		logger.Info("User created", zap.String("email", u.email))
	}
}

func seedDepartments(ctx context.Context, repo organization.DepartmentRepository, logger *zap.Logger) {
	departments := []organization.Department{
		{Name: "quality_assurance", Description: "Quality assurance and compliance"},
		{Name: "laboratory", Description: "Analytical testing laboratory"},
		{Name: "manufacturing", Description: "Production and packaging"},
	}

	for i := range departments {
		if _, err := repo.GetByName(ctx, departments[i].Name); err == nil {
			logger.Info("Department exists, skipping", zap.String("name", departments[i].Name))
			continue
		}
		if err := repo.Create(ctx, &departments[i]); err != nil {
			logger.Error("Failed to create department", zap.String("name", departments[i].Name), zap.Error(err))
			continue
		}
		logger.Info("Department created", zap.String("name", departments[i].Name))
	}
}

func seedDistributionLists(ctx context.Context, repo recipient.ListRepository, logger *zap.Logger) {
	lists := []recipient.DistributionList{
		{
			Name:        "quality-leads",
			Description: "Quality leadership distribution",
			Addresses:   []string{"qm@example.com", "admin@example.com"},
		},
		{
			Name:        "lab-team",
			Description: "Laboratory analysts",
			Addresses:   []string{"analyst@example.com"},
		},
	}

	for i := range lists {
		if _, err := repo.FindByName(ctx, lists[i].Name); err == nil {
			logger.Info("Distribution list exists, skipping", zap.String("name", lists[i].Name))
			continue
		}
		if err := repo.Create(ctx, &lists[i]); err != nil {
			logger.Error("Failed to create distribution list", zap.String("name", lists[i].Name), zap.Error(err))
			continue
		}
		logger.Info("Distribution list created", zap.String("name", lists[i].Name))
	}
}

func seedEscalationWorkflows(ctx context.Context, repo escalation.WorkflowRepository, logger *zap.Logger) {
	wf := &escalation.EscalationWorkflow{
		Name:        "Critical quality event review",
		Description: "Two-stage sign-off for critical quality events",
		TriggerType: "quality_event",
		Active:      true,
		CreatedBy:   "seed",
		Steps: []escalation.EscalationStep{
			{
				Name:           "Quality manager review",
				Order:          0,
				Approvers:      []string{"role:quality_manager"},
				Timeout:        24 * time.Hour,
				NotifyOnEnter:  true,
				EscalateOnMiss: true,
			},
			{
				Name:              "Site leadership sign-off",
				Order:             1,
				Approvers:         []string{"role:admin", "dept:quality_assurance:manager"},
				RequiredApprovals: 2,
				Timeout:           48 * time.Hour,
				NotifyOnEnter:     true,
			},
		},
	}

	existing, err := repo.GetByTrigger(ctx, wf.TriggerType)
	if err == nil && existing != nil {
		logger.Info("Escalation workflow exists, skipping", zap.String("trigger", wf.TriggerType))
		return
	}
	if err := repo.Create(ctx, wf); err != nil {
		logger.Error("Failed to create escalation workflow", zap.Error(err))
		return
	}
	logger.Info("Escalation workflow created", zap.String("name", wf.Name))
}

func seedWorkflowDefinitions(ctx context.Context, repo workflow.DefinitionRepository, logger *zap.Logger) {
	definition := &workflow.WorkflowDefinition{
		Name:        "Monthly compliance review",
		Description: "Run the rule catalog, report on it, and alert quality leads",
		Active:      true,
		CreatedBy:   "seed",
		Actions: []workflow.WorkflowAction{
			{
				ID:       "check",
				Name:     "Run compliance checks",
				Type:     workflow.ActionComplianceCheck,
				Order:    0,
				Required: true,
			},
			{
				ID:        "report",
				Name:      "Generate compliance report",
				Type:      workflow.ActionGenerateReport,
				Order:     1,
				Config:    map[string]interface{}{"report": "capa-status", "format": "xlsx"},
				DependsOn: []string{"check"},
			},
			{
				ID:        "notify",
				Name:      "Notify quality leads",
				Type:      workflow.ActionSendNotification,
				Order:     2,
				DependsOn: []string{"check"},
				Config: map[string]interface{}{
					"recipients": []interface{}{"list:quality-leads"},
					"subject":    "Monthly compliance review complete",
					"message":    "The monthly compliance assessment has finished.",
				},
			},
		},
	}

	existing, err := repo.GetByName(ctx, definition.Name)
	if err == nil && existing != nil {
		logger.Info("Workflow definition exists, skipping", zap.String("name", definition.Name))
		return
	}
	if err := repo.Create(ctx, definition); err != nil {
		logger.Error("Failed to create workflow definition", zap.Error(err))
		return
	}
	logger.Info("Workflow definition created", zap.String("name", definition.Name))
}

func seedReports(ctx context.Context, reports report.ReportRepository, schedules delivery.ScheduleRepository, logger *zap.Logger) {
	def := &report.ReportDefinition{
		Name:        "capa-status",
		Description: "Open and in-progress CAPAs by owner",
		Source:      "capas",
		Columns:     []string{"title", "status", "owner", "due_date"},
		Filters:     map[string]interface{}{"status": map[string]interface{}{"$in": []interface{}{"open", "in_progress"}}},
		CreatedBy:   "seed",
	}
	if _, err := reports.GetByName(ctx, def.Name); err == nil {
		logger.Info("Report exists, skipping", zap.String("name", def.Name))
	} else if err := reports.Create(ctx, def); err != nil {
		logger.Error("Failed to create report", zap.Error(err))
	} else {
		logger.Info("Report created", zap.String("name", def.Name))
	}

	schedule := &delivery.DeliverySchedule{
		Name:        "Weekly CAPA status",
		Description: "CAPA status workbook for quality leadership",
		Frequency:   delivery.FrequencyWeekly,
		ReportName:  "capa-status",
		Format:      "xlsx",
		Recipients:  []string{"list:quality-leads"},
		Active:      true,
		CreatedBy:   "seed",
	}
	all, err := schedules.List(ctx)
	if err == nil {
		for i := range all {
			if all[i].Name == schedule.Name {
				logger.Info("Delivery schedule exists, skipping", zap.String("name", schedule.Name))
				return
			}
		}
	}
	expr, err := delivery.CronExprFor(schedule.Frequency, "")
	if err != nil {
		logger.Error("Failed to derive cron expression", zap.Error(err))
		return
	}
	schedule.CronExpr = expr
	if err := schedules.Create(ctx, schedule); err != nil {
		logger.Error("Failed to create delivery schedule", zap.Error(err))
		return
	}
	logger.Info("Delivery schedule created", zap.String("name", schedule.Name))
}

func main() {
	app := fx.New(
		fx.Provide(
			config.LoadConfig,
			logger.NewLogger,
			database.NewDatabase,

			user.NewUserRepository,
			organization.NewDepartmentRepository,
			recipient.NewListRepository,
			escalation.NewWorkflowRepository,
			workflow.NewDefinitionRepository,
			report.NewReportRepository,
			delivery.NewScheduleRepository,
		),
		fx.WithLogger(func(log *zap.Logger) fxevent.Logger {
			return &fxevent.ZapLogger{Logger: log}
		}),
		fx.Invoke(Seed),
	)

	app.Run()
}
