package main

import (
	"context"
	"fmt"
	"log"
	"time"

	common_api "go-qms/internal/common/api"
	"go-qms/internal/config"
	"go-qms/internal/database"
	emails "go-qms/internal/email"
	"go-qms/internal/features/audit"
	"go-qms/internal/features/auth"
	"go-qms/internal/features/compliance"
	"go-qms/internal/features/delivery"
	"go-qms/internal/features/escalation"
	"go-qms/internal/features/export"
	"go-qms/internal/features/lims"
	"go-qms/internal/features/notification"
	"go-qms/internal/features/organization"
	"go-qms/internal/features/quality"
	"go-qms/internal/features/recipient"
	"go-qms/internal/features/report"
	"go-qms/internal/features/system"
	"go-qms/internal/features/training"
	"go-qms/internal/features/user"
	"go-qms/internal/features/workflow"
	"go-qms/internal/logger"
	"go-qms/internal/middleware"

	_ "go-qms/docs" // Import swagger docs

	"github.com/gofiber/fiber/v2"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
	"go.uber.org/zap"
)

// NewFiberServer creates a new Fiber app instance
func NewFiberServer() *fiber.App {
	app := fiber.New(fiber.Config{
		DisableStartupMessage: true,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			code := fiber.StatusInternalServerError
			if e, ok := err.(*fiber.Error); ok {
				code = e.Code
			}
			return c.Status(code).JSON(fiber.Map{
				"error": err.Error(),
			})
		},
	})

	app.Use(middleware.CORSMiddleware())

	return app
}

// AsRoute is a helper function to reduce boilerplate.
// It tags the constructor so Fx knows to add it to the "routes" group.
func AsRoute(f any) any {
	return fx.Annotate(
		f,
		fx.As(new(common_api.Route)),
		fx.ResultTags(`group:"routes"`),
	)
}

// RegisterAllRoutes takes the group "routes" (slice of interfaces)
// and calls Setup() on each one.
func RegisterAllRoutes(app *fiber.App, routes []common_api.Route) {
	log.Printf("Registering %d routes...\n", len(routes))
	for _, route := range routes {
		route.Setup(app)
	}
}

var RegisterAllRoutesWithAnnotation = fx.Annotate(
	RegisterAllRoutes,
	fx.ParamTags(``, `group:"routes"`),
)

// StartServer creates a lifecycle hook to start Fiber in a goroutine
// and shut it down when the app exits.
func StartServer(lc fx.Lifecycle, app *fiber.App, cfg *config.Config) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				port := fmt.Sprintf(":%s", cfg.Port)
				if err := app.Listen(port); err != nil {
					log.Fatalf("Server failed to start: %v", err)
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			return app.Shutdown()
		},
	})
}

// StartScheduler boots the delivery cron and attaches the maintenance
// jobs that ride on it: the escalation timeout sweep and the daily
// compliance assessment.
func StartScheduler(
	lc fx.Lifecycle,
	deliveryService delivery.DeliveryService,
	escalationService escalation.EscalationService,
	complianceService compliance.ComplianceService,
	zapLogger *zap.Logger,
) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			if err := deliveryService.InitializeScheduler(ctx); err != nil {
				return err
			}
			if err := deliveryService.RegisterMaintenance("@every 1m", func() {
				if _, err := escalationService.ProcessTimeouts(context.Background()); err != nil {
					zapLogger.Error("escalation timeout sweep failed", zap.Error(err))
				}
			}); err != nil {
				return err
			}
			return deliveryService.RegisterMaintenance("@daily", func() {
				if _, err := complianceService.RunAssessment(context.Background(), nil, "scheduler"); err != nil {
					zapLogger.Error("scheduled compliance assessment failed", zap.Error(err))
				}
			})
		},
		OnStop: func(ctx context.Context) error {
			return deliveryService.StopScheduler()
		},
	})
}

// escalationStarterAdapter narrows EscalationService for callers that
// only need to fire a trigger and do not inspect the execution.
type escalationStarterAdapter struct {
	svc escalation.EscalationService
}

func (a *escalationStarterAdapter) StartByTrigger(ctx context.Context, triggerType, subjectModule, subjectID, startedBy string) error {
	_, err := a.svc.StartByTrigger(ctx, triggerType, subjectModule, subjectID, startedBy)
	return err
}

// complianceSourceAdapter fans the compliance rule checks out to the
// features that own each figure.
type complianceSourceAdapter struct {
	audits     audit.AuditRepository
	signatures escalation.EscalationService
	training   training.TrainingService
	quality    quality.QualityService
	custody    lims.LimsService
}

func (a *complianceSourceAdapter) AuditCountSince(ctx context.Context, since time.Time) (int64, error) {
	return a.audits.CountSince(ctx, "", since)
}

func (a *complianceSourceAdapter) SignatureStats(ctx context.Context) (int64, int64, error) {
	return a.signatures.SignatureStats(ctx)
}

func (a *complianceSourceAdapter) TrainingStats(ctx context.Context) (int64, int64, error) {
	return a.training.Stats(ctx)
}

func (a *complianceSourceAdapter) DocumentStats(ctx context.Context) (int64, int64, error) {
	return a.quality.DocumentStats(ctx)
}

func (a *complianceSourceAdapter) CAPAStats(ctx context.Context) (int64, int64, error) {
	return a.quality.CAPAStats(ctx)
}

func (a *complianceSourceAdapter) CustodyStats(ctx context.Context) (int64, int64, error) {
	return a.custody.CustodyStats(ctx)
}

// trendSourceAdapter maps compliance assessments into the trend points
// the department analytics view renders.
type trendSourceAdapter struct {
	svc compliance.ComplianceService
}

func (a *trendSourceAdapter) Trend(ctx context.Context, limit int64) ([]organization.TrendPoint, error) {
	assessments, err := a.svc.ListAssessments(ctx, limit)
	if err != nil {
		return nil, err
	}
	points := make([]organization.TrendPoint, 0, len(assessments))
	for _, assessment := range assessments {
		points = append(points, organization.TrendPoint{
			Score:     assessment.OverallScore,
			Status:    assessment.Status,
			Timestamp: assessment.GeneratedAt,
		})
	}
	return points, nil
}

// recordUpdaterAdapter patches fields on any feature collection, the
// primitive behind the workflow update_record action.
type recordUpdaterAdapter struct {
	db *database.MongodbDB
}

func (a *recordUpdaterAdapter) UpdateFields(ctx context.Context, module, recordID string, fields map[string]interface{}) error {
	oid, err := primitive.ObjectIDFromHex(recordID)
	if err != nil {
		return fmt.Errorf("invalid record id: %w", err)
	}

	set := bson.M{}
	for field, value := range fields {
		set[field] = value
	}
	set["updated_at"] = time.Now()

	result, err := a.db.DB.Collection(module).UpdateOne(ctx, bson.M{"_id": oid}, bson.M{"$set": set})
	if err != nil {
		return err
	}
	if result.MatchedCount == 0 {
		return fmt.Errorf("record %s not found in %s", recordID, module)
	}
	return nil
}

// @title           QMS Backend API
// @version         1.0
// @description     Quality management backend using Fiber, Uber Fx, and MongoDB.

// @host            localhost:8000
// @BasePath        /
func main() {
	app := fx.New(
		fx.Provide(
			// Load Config
			config.LoadConfig,

			// Initialize Logger
			logger.NewLogger,

			// Initialize Fiber Server
			NewFiberServer,

			// Initialize Database
			database.NewDatabase,

			// Initialize Repository
			audit.NewAuditRepository,
			user.NewUserRepository,
			quality.NewQualityRepository,
			training.NewTrainingRepository,
			organization.NewDepartmentRepository,
			lims.NewLimsRepository,
			escalation.NewWorkflowRepository,
			escalation.NewExecutionRepository,
			workflow.NewDefinitionRepository,
			workflow.NewRunRepository,
			compliance.NewAssessmentRepository,
			delivery.NewScheduleRepository,
			report.NewReportRepository,
			recipient.NewListRepository,
			recipient.NewScriptRepository,
			export.NewExportRepository,
			notification.NewNotificationRepository,
			emails.NewRepository,

			// Initialize Service
			audit.NewAuditService,
			auth.NewAuthService,
			user.NewUserService,
			emails.NewEmailService,
			notification.NewHub,
			notification.NewNotificationService,
			recipient.NewResolverService,
			escalation.NewEscalationService,
			quality.NewQualityService,
			training.NewTrainingService,
			lims.NewLimsService,
			compliance.NewComplianceService,
			report.NewReportService,
			workflow.NewActionExecutor,
			workflow.NewWorkflowService,
			delivery.NewDeliveryService,
			organization.NewOrganizationService,
			export.NewExportService,

			// Interface Adapters to break circular dependencies and satisfy Fx
			func(r user.UserRepository) audit.UserFinder { return r },
			func(r user.UserRepository) recipient.UserDirectory { return r },
			func(r user.UserRepository) organization.MemberCounter { return r },
			func(s escalation.EscalationService) quality.EscalationStarter {
				return &escalationStarterAdapter{svc: s}
			},
			func(s escalation.EscalationService) workflow.EscalationStarter {
				return &escalationStarterAdapter{svc: s}
			},
			func(s quality.QualityService) lims.EventOpener { return s },
			func(s quality.QualityService) workflow.QualityEventCreator { return s },
			func(s quality.QualityService) organization.QualityCounter { return s },
			func(s training.TrainingService) organization.TrainingSummarizer { return s },
			func(s training.TrainingService) delivery.ScopeFiller { return s },
			func(s notification.NotificationService) workflow.Notifier { return s },
			func(s recipient.ResolverService) workflow.RecipientResolver { return s },
			func(s recipient.ResolverService) escalation.RecipientResolver { return s },
			func(s recipient.ResolverService) delivery.RecipientResolver { return s },
			func(s compliance.ComplianceService) workflow.ComplianceChecker { return s },
			func(s compliance.ComplianceService) delivery.ComplianceScorer { return s },
			func(s compliance.ComplianceService) organization.TrendSource {
				return &trendSourceAdapter{svc: s}
			},
			func(s report.ReportService) workflow.ReportGenerator { return s },
			func(s report.ReportService) delivery.ReportBuilder { return s },
			func(db *database.MongodbDB) workflow.RecordUpdater {
				return &recordUpdaterAdapter{db: db}
			},
			func(
				audits audit.AuditRepository,
				escalationService escalation.EscalationService,
				trainingService training.TrainingService,
				qualityService quality.QualityService,
				limsService lims.LimsService,
			) compliance.DataSource {
				return &complianceSourceAdapter{
					audits:     audits,
					signatures: escalationService,
					training:   trainingService,
					quality:    qualityService,
					custody:    limsService,
				}
			},

			// Initialize Controller
			auth.NewAuthController,
			user.NewUserController,
			audit.NewAuditController,
			quality.NewQualityController,
			training.NewTrainingController,
			organization.NewOrganizationController,
			lims.NewLimsController,
			escalation.NewEscalationController,
			workflow.NewWorkflowController,
			compliance.NewComplianceController,
			delivery.NewDeliveryController,
			report.NewReportController,
			recipient.NewRecipientController,
			export.NewExportController,
			notification.NewNotificationController,
			system.NewHealthController,
			system.NewDebugController,

			// Initialize API Routes
			AsRoute(auth.NewAuthApi),
			AsRoute(user.NewUserApi),
			AsRoute(audit.NewAuditApi),
			AsRoute(quality.NewQualityApi),
			AsRoute(training.NewTrainingApi),
			AsRoute(organization.NewOrganizationApi),
			AsRoute(lims.NewLimsApi),
			AsRoute(escalation.NewEscalationApi),
			AsRoute(workflow.NewWorkflowApi),
			AsRoute(compliance.NewComplianceApi),
			AsRoute(delivery.NewDeliveryApi),
			AsRoute(report.NewReportApi),
			AsRoute(recipient.NewRecipientApi),
			AsRoute(export.NewExportApi),
			AsRoute(notification.NewNotificationApi),
			AsRoute(system.NewHealthApi),
			AsRoute(system.NewDebugApi),
			AsRoute(system.NewSwaggerApi),
		),
		fx.WithLogger(func(log *zap.Logger) fxevent.Logger {
			return &fxevent.ZapLogger{Logger: log}
		}),
		fx.Invoke(
			RegisterAllRoutesWithAnnotation,
			StartServer,
			StartScheduler,
		),
	)

	app.Run()
}
