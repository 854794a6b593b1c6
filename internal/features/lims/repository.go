package lims

import (
	"context"
	"time"

	"go-qms/internal/database"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type LimsRepository interface {
	CreateSample(ctx context.Context, sample *Sample) error
	GetSample(ctx context.Context, id string) (*Sample, error)
	ListSamples(ctx context.Context, filter bson.M, limit int64) ([]Sample, error)
	UpdateSample(ctx context.Context, sample *Sample) error

	CreateExecution(ctx context.Context, execution *TestExecution) error
	GetExecution(ctx context.Context, id string) (*TestExecution, error)
	ListExecutions(ctx context.Context, filter bson.M, limit int64) ([]TestExecution, error)
	UpdateExecution(ctx context.Context, execution *TestExecution) error
}

type LimsRepositoryImpl struct {
	Samples    *mongo.Collection
	Executions *mongo.Collection
}

func NewLimsRepository(mongodb *database.MongodbDB) LimsRepository {
	return &LimsRepositoryImpl{
		Samples:    mongodb.DB.Collection("lims_samples"),
		Executions: mongodb.DB.Collection("lims_test_executions"),
	}
}

func (r *LimsRepositoryImpl) CreateSample(ctx context.Context, sample *Sample) error {
	if sample.ID.IsZero() {
		sample.ID = primitive.NewObjectID()
	}
	sample.CreatedAt = time.Now()
	sample.UpdatedAt = time.Now()
	_, err := r.Samples.InsertOne(ctx, sample)
	return err
}

func (r *LimsRepositoryImpl) GetSample(ctx context.Context, id string) (*Sample, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, err
	}
	var sample Sample
	if err := r.Samples.FindOne(ctx, bson.M{"_id": oid}).Decode(&sample); err != nil {
		return nil, err
	}
	return &sample, nil
}

func (r *LimsRepositoryImpl) ListSamples(ctx context.Context, filter bson.M, limit int64) ([]Sample, error) {
	if filter == nil {
		filter = bson.M{}
	}
	if limit <= 0 {
		limit = 100
	}
	cursor, err := r.Samples.Find(ctx, filter, options.Find().SetSort(bson.M{"created_at": -1}).SetLimit(limit))
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)
	var samples []Sample
	if err := cursor.All(ctx, &samples); err != nil {
		return nil, err
	}
	return samples, nil
}

func (r *LimsRepositoryImpl) UpdateSample(ctx context.Context, sample *Sample) error {
	sample.UpdatedAt = time.Now()
	_, err := r.Samples.ReplaceOne(ctx, bson.M{"_id": sample.ID}, sample)
	return err
}

func (r *LimsRepositoryImpl) CreateExecution(ctx context.Context, execution *TestExecution) error {
	if execution.ID.IsZero() {
		execution.ID = primitive.NewObjectID()
	}
	execution.CreatedAt = time.Now()
	execution.UpdatedAt = time.Now()
	_, err := r.Executions.InsertOne(ctx, execution)
	return err
}

func (r *LimsRepositoryImpl) GetExecution(ctx context.Context, id string) (*TestExecution, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, err
	}
	var execution TestExecution
	if err := r.Executions.FindOne(ctx, bson.M{"_id": oid}).Decode(&execution); err != nil {
		return nil, err
	}
	return &execution, nil
}

func (r *LimsRepositoryImpl) ListExecutions(ctx context.Context, filter bson.M, limit int64) ([]TestExecution, error) {
	if filter == nil {
		filter = bson.M{}
	}
	if limit <= 0 {
		limit = 100
	}
	cursor, err := r.Executions.Find(ctx, filter, options.Find().SetSort(bson.M{"created_at": -1}).SetLimit(limit))
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)
	var executions []TestExecution
	if err := cursor.All(ctx, &executions); err != nil {
		return nil, err
	}
	return executions, nil
}

func (r *LimsRepositoryImpl) UpdateExecution(ctx context.Context, execution *TestExecution) error {
	execution.UpdatedAt = time.Now()
	_, err := r.Executions.ReplaceOne(ctx, bson.M{"_id": execution.ID}, execution)
	return err
}
