package report

import (
	"context"
	"time"

	"go-qms/internal/database"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type ReportRepository interface {
	Create(ctx context.Context, definition *ReportDefinition) error
	Get(ctx context.Context, id string) (*ReportDefinition, error)
	GetByName(ctx context.Context, name string) (*ReportDefinition, error)
	List(ctx context.Context) ([]ReportDefinition, error)
	Update(ctx context.Context, definition *ReportDefinition) error
	Delete(ctx context.Context, id string) error

	// FetchRows queries the definition's source collection directly.
	FetchRows(ctx context.Context, source string, filter bson.M, limit int64) ([]map[string]any, error)
}

type ReportRepositoryImpl struct {
	Reports *mongo.Collection
	DB      *mongo.Database
}

func NewReportRepository(mongodb *database.MongodbDB) ReportRepository {
	return &ReportRepositoryImpl{
		Reports: mongodb.DB.Collection("reports"),
		DB:      mongodb.DB,
	}
}

func (r *ReportRepositoryImpl) Create(ctx context.Context, definition *ReportDefinition) error {
	if definition.ID.IsZero() {
		definition.ID = primitive.NewObjectID()
	}
	definition.CreatedAt = time.Now()
	definition.UpdatedAt = time.Now()
	_, err := r.Reports.InsertOne(ctx, definition)
	return err
}

func (r *ReportRepositoryImpl) Get(ctx context.Context, id string) (*ReportDefinition, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, err
	}
	var definition ReportDefinition
	if err := r.Reports.FindOne(ctx, bson.M{"_id": oid}).Decode(&definition); err != nil {
		return nil, err
	}
	return &definition, nil
}

func (r *ReportRepositoryImpl) GetByName(ctx context.Context, name string) (*ReportDefinition, error) {
	var definition ReportDefinition
	if err := r.Reports.FindOne(ctx, bson.M{"name": name}).Decode(&definition); err != nil {
		return nil, err
	}
	return &definition, nil
}

func (r *ReportRepositoryImpl) List(ctx context.Context) ([]ReportDefinition, error) {
	cursor, err := r.Reports.Find(ctx, bson.M{}, options.Find().SetSort(bson.M{"name": 1}))
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)
	var definitions []ReportDefinition
	if err := cursor.All(ctx, &definitions); err != nil {
		return nil, err
	}
	return definitions, nil
}

func (r *ReportRepositoryImpl) Update(ctx context.Context, definition *ReportDefinition) error {
	definition.UpdatedAt = time.Now()
	_, err := r.Reports.ReplaceOne(ctx, bson.M{"_id": definition.ID}, definition)
	return err
}

func (r *ReportRepositoryImpl) Delete(ctx context.Context, id string) error {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return err
	}
	_, err = r.Reports.DeleteOne(ctx, bson.M{"_id": oid})
	return err
}

func (r *ReportRepositoryImpl) FetchRows(ctx context.Context, source string, filter bson.M, limit int64) ([]map[string]any, error) {
	if filter == nil {
		filter = bson.M{}
	}
	if limit <= 0 {
		limit = 10000
	}
	cursor, err := r.DB.Collection(source).Find(ctx, filter, options.Find().SetSort(bson.M{"created_at": -1}).SetLimit(limit))
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)
	var rows []map[string]any
	if err := cursor.All(ctx, &rows); err != nil {
		return nil, err
	}
	return rows, nil
}
