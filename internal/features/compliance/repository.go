package compliance

import (
	"context"
	"time"

	"go-qms/internal/database"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type AssessmentRepository interface {
	Create(ctx context.Context, assessment *Assessment) error
	Latest(ctx context.Context) (*Assessment, error)
	List(ctx context.Context, limit int64) ([]Assessment, error)
}

type AssessmentRepositoryImpl struct {
	Collection *mongo.Collection
}

func NewAssessmentRepository(mongodb *database.MongodbDB) AssessmentRepository {
	return &AssessmentRepositoryImpl{
		Collection: mongodb.DB.Collection("compliance_assessments"),
	}
}

func (r *AssessmentRepositoryImpl) Create(ctx context.Context, assessment *Assessment) error {
	if assessment.ID.IsZero() {
		assessment.ID = primitive.NewObjectID()
	}
	assessment.GeneratedAt = time.Now()
	_, err := r.Collection.InsertOne(ctx, assessment)
	return err
}

func (r *AssessmentRepositoryImpl) Latest(ctx context.Context) (*Assessment, error) {
	var assessment Assessment
	err := r.Collection.FindOne(ctx, bson.M{}, options.FindOne().SetSort(bson.M{"generated_at": -1})).Decode(&assessment)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, nil
		}
		return nil, err
	}
	return &assessment, nil
}

func (r *AssessmentRepositoryImpl) List(ctx context.Context, limit int64) ([]Assessment, error) {
	if limit <= 0 {
		limit = 20
	}
	cursor, err := r.Collection.Find(ctx, bson.M{}, options.Find().SetSort(bson.M{"generated_at": -1}).SetLimit(limit))
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)
	var assessments []Assessment
	if err := cursor.All(ctx, &assessments); err != nil {
		return nil, err
	}
	return assessments, nil
}
