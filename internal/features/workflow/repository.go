package workflow

import (
	"context"
	"time"

	"go-qms/internal/database"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type DefinitionRepository interface {
	Create(ctx context.Context, definition *WorkflowDefinition) error
	GetByID(ctx context.Context, id string) (*WorkflowDefinition, error)
	GetByName(ctx context.Context, name string) (*WorkflowDefinition, error)
	List(ctx context.Context) ([]WorkflowDefinition, error)
	Update(ctx context.Context, id string, definition *WorkflowDefinition) error
	Delete(ctx context.Context, id string) error
}

type RunRepository interface {
	Create(ctx context.Context, run *WorkflowRun) error
	GetByID(ctx context.Context, id string) (*WorkflowRun, error)
	ListByWorkflow(ctx context.Context, workflowID string, limit int64) ([]WorkflowRun, error)
	Update(ctx context.Context, run *WorkflowRun) error
}

type DefinitionRepositoryImpl struct {
	Collection *mongo.Collection
}

func NewDefinitionRepository(mongodb *database.MongodbDB) DefinitionRepository {
	return &DefinitionRepositoryImpl{
		Collection: mongodb.DB.Collection("workflow_definitions"),
	}
}

func (r *DefinitionRepositoryImpl) Create(ctx context.Context, definition *WorkflowDefinition) error {
	if definition.ID.IsZero() {
		definition.ID = primitive.NewObjectID()
	}
	definition.CreatedAt = time.Now()
	definition.UpdatedAt = time.Now()
	_, err := r.Collection.InsertOne(ctx, definition)
	return err
}

func (r *DefinitionRepositoryImpl) GetByID(ctx context.Context, id string) (*WorkflowDefinition, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, err
	}
	var definition WorkflowDefinition
	if err := r.Collection.FindOne(ctx, bson.M{"_id": oid}).Decode(&definition); err != nil {
		return nil, err
	}
	return &definition, nil
}

func (r *DefinitionRepositoryImpl) GetByName(ctx context.Context, name string) (*WorkflowDefinition, error) {
	var definition WorkflowDefinition
	if err := r.Collection.FindOne(ctx, bson.M{"name": name}).Decode(&definition); err != nil {
		return nil, err
	}
	return &definition, nil
}

func (r *DefinitionRepositoryImpl) List(ctx context.Context) ([]WorkflowDefinition, error) {
	cursor, err := r.Collection.Find(ctx, bson.M{}, options.Find().SetSort(bson.M{"created_at": -1}))
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)
	var definitions []WorkflowDefinition
	if err := cursor.All(ctx, &definitions); err != nil {
		return nil, err
	}
	return definitions, nil
}

func (r *DefinitionRepositoryImpl) Update(ctx context.Context, id string, definition *WorkflowDefinition) error {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return err
	}
	update := bson.M{"$set": bson.M{
		"name":        definition.Name,
		"description": definition.Description,
		"active":      definition.Active,
		"actions":     definition.Actions,
		"updated_at":  time.Now(),
	}}
	_, err = r.Collection.UpdateOne(ctx, bson.M{"_id": oid}, update)
	return err
}

func (r *DefinitionRepositoryImpl) Delete(ctx context.Context, id string) error {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return err
	}
	_, err = r.Collection.DeleteOne(ctx, bson.M{"_id": oid})
	return err
}

type RunRepositoryImpl struct {
	Collection *mongo.Collection
}

func NewRunRepository(mongodb *database.MongodbDB) RunRepository {
	return &RunRepositoryImpl{
		Collection: mongodb.DB.Collection("workflow_runs"),
	}
}

func (r *RunRepositoryImpl) Create(ctx context.Context, run *WorkflowRun) error {
	if run.ID.IsZero() {
		run.ID = primitive.NewObjectID()
	}
	run.StartedAt = time.Now()
	_, err := r.Collection.InsertOne(ctx, run)
	return err
}

func (r *RunRepositoryImpl) GetByID(ctx context.Context, id string) (*WorkflowRun, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, err
	}
	var run WorkflowRun
	if err := r.Collection.FindOne(ctx, bson.M{"_id": oid}).Decode(&run); err != nil {
		return nil, err
	}
	return &run, nil
}

func (r *RunRepositoryImpl) ListByWorkflow(ctx context.Context, workflowID string, limit int64) ([]WorkflowRun, error) {
	filter := bson.M{}
	if workflowID != "" {
		oid, err := primitive.ObjectIDFromHex(workflowID)
		if err != nil {
			return nil, err
		}
		filter["workflow_id"] = oid
	}
	if limit <= 0 {
		limit = 50
	}
	cursor, err := r.Collection.Find(ctx, filter, options.Find().SetSort(bson.M{"started_at": -1}).SetLimit(limit))
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)
	var runs []WorkflowRun
	if err := cursor.All(ctx, &runs); err != nil {
		return nil, err
	}
	return runs, nil
}

func (r *RunRepositoryImpl) Update(ctx context.Context, run *WorkflowRun) error {
	_, err := r.Collection.ReplaceOne(ctx, bson.M{"_id": run.ID}, run)
	return err
}
