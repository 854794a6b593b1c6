package escalation

import (
	"context"
	"time"

	"go-qms/internal/database"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type WorkflowRepository interface {
	Create(ctx context.Context, workflow *EscalationWorkflow) error
	GetByID(ctx context.Context, id string) (*EscalationWorkflow, error)
	GetByTrigger(ctx context.Context, triggerType string) (*EscalationWorkflow, error)
	List(ctx context.Context) ([]EscalationWorkflow, error)
	Update(ctx context.Context, id string, workflow *EscalationWorkflow) error
	Delete(ctx context.Context, id string) error
}

type ExecutionRepository interface {
	Create(ctx context.Context, execution *WorkflowExecution) error
	GetByID(ctx context.Context, id string) (*WorkflowExecution, error)
	List(ctx context.Context, filter bson.M) ([]WorkflowExecution, error)
	ListPastDeadline(ctx context.Context, now time.Time) ([]WorkflowExecution, error)
	Update(ctx context.Context, execution *WorkflowExecution) error
}

type WorkflowRepositoryImpl struct {
	Collection *mongo.Collection
}

func NewWorkflowRepository(mongodb *database.MongodbDB) WorkflowRepository {
	return &WorkflowRepositoryImpl{
		Collection: mongodb.DB.Collection("escalation_workflows"),
	}
}

func (r *WorkflowRepositoryImpl) Create(ctx context.Context, workflow *EscalationWorkflow) error {
	if workflow.ID.IsZero() {
		workflow.ID = primitive.NewObjectID()
	}
	workflow.CreatedAt = time.Now()
	workflow.UpdatedAt = time.Now()
	_, err := r.Collection.InsertOne(ctx, workflow)
	return err
}

func (r *WorkflowRepositoryImpl) GetByID(ctx context.Context, id string) (*EscalationWorkflow, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, err
	}
	var workflow EscalationWorkflow
	if err := r.Collection.FindOne(ctx, bson.M{"_id": oid}).Decode(&workflow); err != nil {
		return nil, err
	}
	return &workflow, nil
}

func (r *WorkflowRepositoryImpl) GetByTrigger(ctx context.Context, triggerType string) (*EscalationWorkflow, error) {
	var workflow EscalationWorkflow
	err := r.Collection.FindOne(ctx, bson.M{"trigger_type": triggerType, "active": true}).Decode(&workflow)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, nil
		}
		return nil, err
	}
	return &workflow, nil
}

func (r *WorkflowRepositoryImpl) List(ctx context.Context) ([]EscalationWorkflow, error) {
	cursor, err := r.Collection.Find(ctx, bson.M{}, options.Find().SetSort(bson.M{"created_at": -1}))
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)
	var workflows []EscalationWorkflow
	if err := cursor.All(ctx, &workflows); err != nil {
		return nil, err
	}
	return workflows, nil
}

func (r *WorkflowRepositoryImpl) Update(ctx context.Context, id string, workflow *EscalationWorkflow) error {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return err
	}
	update := bson.M{"$set": bson.M{
		"name":         workflow.Name,
		"description":  workflow.Description,
		"trigger_type": workflow.TriggerType,
		"active":       workflow.Active,
		"steps":        workflow.Steps,
		"updated_at":   time.Now(),
	}}
	_, err = r.Collection.UpdateOne(ctx, bson.M{"_id": oid}, update)
	return err
}

func (r *WorkflowRepositoryImpl) Delete(ctx context.Context, id string) error {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return err
	}
	_, err = r.Collection.DeleteOne(ctx, bson.M{"_id": oid})
	return err
}

type ExecutionRepositoryImpl struct {
	Collection *mongo.Collection
}

func NewExecutionRepository(mongodb *database.MongodbDB) ExecutionRepository {
	return &ExecutionRepositoryImpl{
		Collection: mongodb.DB.Collection("workflow_executions"),
	}
}

func (r *ExecutionRepositoryImpl) Create(ctx context.Context, execution *WorkflowExecution) error {
	if execution.ID.IsZero() {
		execution.ID = primitive.NewObjectID()
	}
	execution.StartedAt = time.Now()
	execution.UpdatedAt = time.Now()
	_, err := r.Collection.InsertOne(ctx, execution)
	return err
}

func (r *ExecutionRepositoryImpl) GetByID(ctx context.Context, id string) (*WorkflowExecution, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, err
	}
	var execution WorkflowExecution
	if err := r.Collection.FindOne(ctx, bson.M{"_id": oid}).Decode(&execution); err != nil {
		return nil, err
	}
	return &execution, nil
}

func (r *ExecutionRepositoryImpl) List(ctx context.Context, filter bson.M) ([]WorkflowExecution, error) {
	if filter == nil {
		filter = bson.M{}
	}
	cursor, err := r.Collection.Find(ctx, filter, options.Find().SetSort(bson.M{"started_at": -1}))
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)
	var executions []WorkflowExecution
	if err := cursor.All(ctx, &executions); err != nil {
		return nil, err
	}
	return executions, nil
}

func (r *ExecutionRepositoryImpl) ListPastDeadline(ctx context.Context, now time.Time) ([]WorkflowExecution, error) {
	filter := bson.M{
		"status":        bson.M{"$in": []ExecutionStatus{StatusInProgress, StatusWaitingApproval}},
		"step_deadline": bson.M{"$ne": nil, "$lte": now},
	}
	return r.List(ctx, filter)
}

func (r *ExecutionRepositoryImpl) Update(ctx context.Context, execution *WorkflowExecution) error {
	execution.UpdatedAt = time.Now()
	_, err := r.Collection.ReplaceOne(ctx, bson.M{"_id": execution.ID}, execution)
	return err
}
