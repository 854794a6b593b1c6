package export

import (
	"context"
	"time"

	"go-qms/internal/database"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type ExportRepository interface {
	CreateSetting(ctx context.Context, setting *ExportSetting) error
	GetSetting(ctx context.Context, id string) (*ExportSetting, error)
	ListSettings(ctx context.Context) ([]ExportSetting, error)
	UpdateSetting(ctx context.Context, setting *ExportSetting) error
	DeleteSetting(ctx context.Context, id string) error

	CreateRun(ctx context.Context, run *ExportRun) error
	UpdateRun(ctx context.Context, run *ExportRun) error
	ListRuns(ctx context.Context, settingID string, limit int64) ([]ExportRun, error)

	// FetchChanged reads source rows updated after the given time.
	FetchChanged(ctx context.Context, collection string, since time.Time, limit int64) ([]map[string]any, error)
}

type ExportRepositoryImpl struct {
	Settings *mongo.Collection
	Runs     *mongo.Collection
	DB       *mongo.Database
}

func NewExportRepository(mongodb *database.MongodbDB) ExportRepository {
	return &ExportRepositoryImpl{
		Settings: mongodb.DB.Collection("export_settings"),
		Runs:     mongodb.DB.Collection("export_runs"),
		DB:       mongodb.DB,
	}
}

func (r *ExportRepositoryImpl) CreateSetting(ctx context.Context, setting *ExportSetting) error {
	if setting.ID.IsZero() {
		setting.ID = primitive.NewObjectID()
	}
	setting.CreatedAt = time.Now()
	setting.UpdatedAt = time.Now()
	_, err := r.Settings.InsertOne(ctx, setting)
	return err
}

func (r *ExportRepositoryImpl) GetSetting(ctx context.Context, id string) (*ExportSetting, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, err
	}
	var setting ExportSetting
	if err := r.Settings.FindOne(ctx, bson.M{"_id": oid}).Decode(&setting); err != nil {
		return nil, err
	}
	return &setting, nil
}

func (r *ExportRepositoryImpl) ListSettings(ctx context.Context) ([]ExportSetting, error) {
	cursor, err := r.Settings.Find(ctx, bson.M{}, options.Find().SetSort(bson.M{"created_at": -1}))
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)
	var settings []ExportSetting
	if err := cursor.All(ctx, &settings); err != nil {
		return nil, err
	}
	return settings, nil
}

func (r *ExportRepositoryImpl) UpdateSetting(ctx context.Context, setting *ExportSetting) error {
	setting.UpdatedAt = time.Now()
	_, err := r.Settings.ReplaceOne(ctx, bson.M{"_id": setting.ID}, setting)
	return err
}

func (r *ExportRepositoryImpl) DeleteSetting(ctx context.Context, id string) error {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return err
	}
	_, err = r.Settings.DeleteOne(ctx, bson.M{"_id": oid})
	return err
}

func (r *ExportRepositoryImpl) CreateRun(ctx context.Context, run *ExportRun) error {
	if run.ID.IsZero() {
		run.ID = primitive.NewObjectID()
	}
	if run.StartedAt.IsZero() {
		run.StartedAt = time.Now()
	}
	_, err := r.Runs.InsertOne(ctx, run)
	return err
}

func (r *ExportRepositoryImpl) UpdateRun(ctx context.Context, run *ExportRun) error {
	_, err := r.Runs.ReplaceOne(ctx, bson.M{"_id": run.ID}, run)
	return err
}

func (r *ExportRepositoryImpl) ListRuns(ctx context.Context, settingID string, limit int64) ([]ExportRun, error) {
	oid, err := primitive.ObjectIDFromHex(settingID)
	if err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = 20
	}
	cursor, err := r.Runs.Find(ctx, bson.M{"setting_id": oid},
		options.Find().SetSort(bson.M{"started_at": -1}).SetLimit(limit))
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)
	var runs []ExportRun
	if err := cursor.All(ctx, &runs); err != nil {
		return nil, err
	}
	return runs, nil
}

func (r *ExportRepositoryImpl) FetchChanged(ctx context.Context, collection string, since time.Time, limit int64) ([]map[string]any, error) {
	if limit <= 0 {
		limit = 1000
	}
	filter := bson.M{"updated_at": bson.M{"$gt": since}}
	cursor, err := r.DB.Collection(collection).Find(ctx, filter,
		options.Find().SetSort(bson.M{"updated_at": 1}).SetLimit(limit))
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
