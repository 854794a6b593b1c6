package workflow

import (
	"context"
	"fmt"

	emails "go-qms/internal/email"
	"go-qms/pkg/condition"

	"github.com/d5/tengo/v2"
	"github.com/d5/tengo/v2/stdlib"
	"go.uber.org/zap"
)

// ComplianceChecker runs a compliance assessment over the named rules.
type ComplianceChecker interface {
	CheckRules(ctx context.Context, ruleIDs []string) (score float64, findings []string, err error)
}

// ReportGenerator produces a stored report and returns its ID.
type ReportGenerator interface {
	GenerateByName(ctx context.Context, reportName string, params map[string]interface{}) (string, error)
}

// QualityEventCreator opens a quality event record.
type QualityEventCreator interface {
	OpenEvent(ctx context.Context, title, severity, source string, details map[string]interface{}) (string, error)
}

// Notifier pushes an in-app notification to the given user addresses.
type Notifier interface {
	Notify(ctx context.Context, recipients []string, subject, message string) error
}

// EscalationStarter kicks off the escalation workflow bound to a trigger.
type EscalationStarter interface {
	StartByTrigger(ctx context.Context, triggerType, subjectModule, subjectID, startedBy string) error
}

// RecordUpdater patches fields on a record in another module.
type RecordUpdater interface {
	UpdateFields(ctx context.Context, module, recordID string, fields map[string]interface{}) error
}

// RecipientResolver expands symbolic recipient specs.
type RecipientResolver interface {
	Resolve(ctx context.Context, specs []string, ectx *condition.Context) []string
}

// ActionExecutor dispatches a single workflow action by type.
type ActionExecutor interface {
	Execute(ctx context.Context, action WorkflowAction, ectx *condition.Context) (map[string]interface{}, error)
}

type ActionExecutorImpl struct {
	Compliance ComplianceChecker
	Reports    ReportGenerator
	Quality    QualityEventCreator
	Notifier   Notifier
	Escalation EscalationStarter
	Records    RecordUpdater
	Resolver   RecipientResolver
	Email      emails.EmailService
	Logger     *zap.Logger
}

func NewActionExecutor(
	compliance ComplianceChecker,
	reports ReportGenerator,
	quality QualityEventCreator,
	notifier Notifier,
	escalationStarter EscalationStarter,
	records RecordUpdater,
	resolver RecipientResolver,
	email emails.EmailService,
	logger *zap.Logger,
) ActionExecutor {
	return &ActionExecutorImpl{
		Compliance: compliance,
		Reports:    reports,
		Quality:    quality,
		Notifier:   notifier,
		Escalation: escalationStarter,
		Records:    records,
		Resolver:   resolver,
		Email:      email,
		Logger:     logger,
	}
}

func (e *ActionExecutorImpl) Execute(ctx context.Context, action WorkflowAction, ectx *condition.Context) (map[string]interface{}, error) {
	switch action.Type {
	case ActionComplianceCheck:
		return e.executeComplianceCheck(ctx, action.Config)
	case ActionGenerateReport:
		return e.executeGenerateReport(ctx, action.Config)
	case ActionSendNotification:
		return e.executeSendNotification(ctx, action.Config, ectx)
	case ActionSendEmail:
		return e.executeSendEmail(ctx, action.Config, ectx)
	case ActionCreateQualityEvent:
		return e.executeCreateQualityEvent(ctx, action.Config)
	case ActionRunScript:
		return e.executeRunScript(ctx, action.Config, ectx)
	case ActionEscalate:
		return e.executeEscalate(ctx, action.Config)
	case ActionUpdateRecord:
		return e.executeUpdateRecord(ctx, action.Config)
	default:
		return nil, fmt.Errorf("unsupported action type: %s", action.Type)
	}
}

func (e *ActionExecutorImpl) executeComplianceCheck(ctx context.Context, config map[string]interface{}) (map[string]interface{}, error) {
	ruleIDs := stringSlice(config["rules"])
	score, findings, err := e.Compliance.CheckRules(ctx, ruleIDs)
	if err != nil {
		return nil, err
	}

	output := map[string]interface{}{
		"score":    score,
		"findings": findings,
	}
	if threshold, ok := toFloat(config["min_score"]); ok && score < threshold {
		return output, fmt.Errorf("compliance score %.1f below threshold %.1f", score, threshold)
	}
	return output, nil
}

func (e *ActionExecutorImpl) executeGenerateReport(ctx context.Context, config map[string]interface{}) (map[string]interface{}, error) {
	name, _ := config["report"].(string)
	if name == "" {
		return nil, fmt.Errorf("report name is required")
	}
	params, _ := config["params"].(map[string]interface{})
	reportID, err := e.Reports.GenerateByName(ctx, name, params)
	if err != nil {
		return nil, err
	}
	return map[string]interface{}{"report_id": reportID}, nil
}

func (e *ActionExecutorImpl) executeSendNotification(ctx context.Context, config map[string]interface{}, ectx *condition.Context) (map[string]interface{}, error) {
	recipients := e.Resolver.Resolve(ctx, stringSlice(config["recipients"]), ectx)
	if len(recipients) == 0 {
		return nil, fmt.Errorf("no recipients resolved")
	}
	subject, _ := config["subject"].(string)
	message, _ := config["message"].(string)
	if err := e.Notifier.Notify(ctx, recipients, subject, message); err != nil {
		return nil, err
	}
	return map[string]interface{}{"recipients": recipients}, nil
}

func (e *ActionExecutorImpl) executeSendEmail(ctx context.Context, config map[string]interface{}, ectx *condition.Context) (map[string]interface{}, error) {
	recipients := e.Resolver.Resolve(ctx, stringSlice(config["recipients"]), ectx)
	if len(recipients) == 0 {
		return nil, fmt.Errorf("no recipients resolved")
	}

	subject, _ := config["subject"].(string)
	message, _ := config["body"].(string)
	body, err := emails.RenderBody(subject, message)
	if err != nil {
		return nil, err
	}

	if err := e.Email.Send(ctx, &emails.Email{
		To:       recipients,
		Subject:  subject,
		HtmlBody: body,
	}); err != nil {
		return nil, err
	}
	return map[string]interface{}{"recipients": recipients}, nil
}

func (e *ActionExecutorImpl) executeCreateQualityEvent(ctx context.Context, config map[string]interface{}) (map[string]interface{}, error) {
	title, _ := config["title"].(string)
	if title == "" {
		return nil, fmt.Errorf("quality event title is required")
	}
	severity, _ := config["severity"].(string)
	if severity == "" {
		severity = "minor"
	}
	source, _ := config["source"].(string)
	details, _ := config["details"].(map[string]interface{})

	eventID, err := e.Quality.OpenEvent(ctx, title, severity, source, details)
	if err != nil {
		return nil, err
	}
	return map[string]interface{}{"event_id": eventID}, nil
}

func (e *ActionExecutorImpl) executeRunScript(ctx context.Context, config map[string]interface{}, ectx *condition.Context) (map[string]interface{}, error) {
	source, _ := config["script"].(string)
	if source == "" {
		return nil, fmt.Errorf("script source is required")
	}

	script := tengo.NewScript([]byte(source))
	script.SetImports(stdlib.GetModuleMap("text", "math", "times"))

	if ectx == nil {
		ectx = condition.NewContext()
	}
	for scope, values := range ectx.Scopes() {
		if err := script.Add(scope, values); err != nil {
			return nil, err
		}
	}

	compiled, err := script.RunContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("script failed: %w", err)
	}

	output := map[string]interface{}{}
	if result := compiled.Get("result"); result != nil {
		output["result"] = result.Value()
	}
	return output, nil
}

func (e *ActionExecutorImpl) executeEscalate(ctx context.Context, config map[string]interface{}) (map[string]interface{}, error) {
	trigger, _ := config["trigger"].(string)
	if trigger == "" {
		return nil, fmt.Errorf("escalation trigger is required")
	}
	subjectModule, _ := config["subject_module"].(string)
	subjectID, _ := config["subject_id"].(string)
	if err := e.Escalation.StartByTrigger(ctx, trigger, subjectModule, subjectID, "workflow"); err != nil {
		return nil, err
	}
	return map[string]interface{}{"trigger": trigger}, nil
}

func (e *ActionExecutorImpl) executeUpdateRecord(ctx context.Context, config map[string]interface{}) (map[string]interface{}, error) {
	module, _ := config["module"].(string)
	recordID, _ := config["record_id"].(string)
	fields, _ := config["fields"].(map[string]interface{})
	if module == "" || recordID == "" || len(fields) == 0 {
		return nil, fmt.Errorf("module, record_id, and fields are required")
	}
	if err := e.Records.UpdateFields(ctx, module, recordID, fields); err != nil {
		return nil, err
	}
	return map[string]interface{}{"module": module, "record_id": recordID}, nil
}

func stringSlice(v interface{}) []string {
	switch typed := v.(type) {
	case []string:
		return typed
	case []interface{}:
		out := make([]string, 0, len(typed))
		for _, item := range typed {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	}
	return nil
}

func toFloat(v interface{}) (float64, bool) {
	switch typed := v.(type) {
	case float64:
		return typed, true
	case float32:
		return float64(typed), true
	case int:
		return float64(typed), true
	case int64:
		return float64(typed), true
	}
	return 0, false
}
