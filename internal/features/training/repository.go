package training

import (
	"context"
	"time"

	"go-qms/internal/database"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type TrainingRepository interface {
	Create(ctx context.Context, assignment *TrainingAssignment) error
	GetByID(ctx context.Context, id string) (*TrainingAssignment, error)
	List(ctx context.Context, filter bson.M) ([]TrainingAssignment, error)
	Update(ctx context.Context, assignment *TrainingAssignment) error
	Count(ctx context.Context, filter bson.M) (int64, error)
}

type TrainingRepositoryImpl struct {
	Collection *mongo.Collection
}

func NewTrainingRepository(mongodb *database.MongodbDB) TrainingRepository {
	return &TrainingRepositoryImpl{
		Collection: mongodb.DB.Collection("training_assignments"),
	}
}

func (r *TrainingRepositoryImpl) Create(ctx context.Context, assignment *TrainingAssignment) error {
	if assignment.ID.IsZero() {
		assignment.ID = primitive.NewObjectID()
	}
	assignment.CreatedAt = time.Now()
	assignment.UpdatedAt = time.Now()
	_, err := r.Collection.InsertOne(ctx, assignment)
	return err
}

func (r *TrainingRepositoryImpl) GetByID(ctx context.Context, id string) (*TrainingAssignment, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, err
	}
	var assignment TrainingAssignment
	if err := r.Collection.FindOne(ctx, bson.M{"_id": oid}).Decode(&assignment); err != nil {
		return nil, err
	}
	return &assignment, nil
}

func (r *TrainingRepositoryImpl) List(ctx context.Context, filter bson.M) ([]TrainingAssignment, error) {
	if filter == nil {
		filter = bson.M{}
	}
	cursor, err := r.Collection.Find(ctx, filter, options.Find().SetSort(bson.M{"due_date": 1}))
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)
	var assignments []TrainingAssignment
	if err := cursor.All(ctx, &assignments); err != nil {
		return nil, err
	}
	return assignments, nil
}

func (r *TrainingRepositoryImpl) Update(ctx context.Context, assignment *TrainingAssignment) error {
	assignment.UpdatedAt = time.Now()
	_, err := r.Collection.ReplaceOne(ctx, bson.M{"_id": assignment.ID}, assignment)
	return err
}

func (r *TrainingRepositoryImpl) Count(ctx context.Context, filter bson.M) (int64, error) {
	return r.Collection.CountDocuments(ctx, filter)
}
