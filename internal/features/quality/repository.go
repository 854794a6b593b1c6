package quality

import (
	"context"
	"time"

	"go-qms/internal/database"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type QualityRepository interface {
	CreateEvent(ctx context.Context, event *QualityEvent) error
	GetEvent(ctx context.Context, id string) (*QualityEvent, error)
	ListEvents(ctx context.Context, filter bson.M, limit int64) ([]QualityEvent, error)
	UpdateEvent(ctx context.Context, event *QualityEvent) error
	CountEvents(ctx context.Context, filter bson.M) (int64, error)

	CreateCAPA(ctx context.Context, capa *CAPA) error
	GetCAPA(ctx context.Context, id string) (*CAPA, error)
	ListCAPAs(ctx context.Context, filter bson.M, limit int64) ([]CAPA, error)
	UpdateCAPA(ctx context.Context, capa *CAPA) error
	CountCAPAs(ctx context.Context, filter bson.M) (int64, error)

	CreateDocument(ctx context.Context, doc *ControlledDocument) error
	GetDocument(ctx context.Context, id string) (*ControlledDocument, error)
	ListDocuments(ctx context.Context, filter bson.M) ([]ControlledDocument, error)
	UpdateDocument(ctx context.Context, doc *ControlledDocument) error
	CountDocuments(ctx context.Context, filter bson.M) (int64, error)
}

type QualityRepositoryImpl struct {
	Events    *mongo.Collection
	CAPAs     *mongo.Collection
	Documents *mongo.Collection
}

func NewQualityRepository(mongodb *database.MongodbDB) QualityRepository {
	return &QualityRepositoryImpl{
		Events:    mongodb.DB.Collection("quality_events"),
		CAPAs:     mongodb.DB.Collection("capas"),
		Documents: mongodb.DB.Collection("controlled_documents"),
	}
}

func (r *QualityRepositoryImpl) CreateEvent(ctx context.Context, event *QualityEvent) error {
	if event.ID.IsZero() {
		event.ID = primitive.NewObjectID()
	}
	event.CreatedAt = time.Now()
	event.UpdatedAt = time.Now()
	_, err := r.Events.InsertOne(ctx, event)
	return err
}

func (r *QualityRepositoryImpl) GetEvent(ctx context.Context, id string) (*QualityEvent, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, err
	}
	var event QualityEvent
	if err := r.Events.FindOne(ctx, bson.M{"_id": oid}).Decode(&event); err != nil {
		return nil, err
	}
	return &event, nil
}

func (r *QualityRepositoryImpl) ListEvents(ctx context.Context, filter bson.M, limit int64) ([]QualityEvent, error) {
	if filter == nil {
		filter = bson.M{}
	}
	if limit <= 0 {
		limit = 100
	}
	cursor, err := r.Events.Find(ctx, filter, options.Find().SetSort(bson.M{"created_at": -1}).SetLimit(limit))
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)
	var events []QualityEvent
	if err := cursor.All(ctx, &events); err != nil {
		return nil, err
	}
	return events, nil
}

func (r *QualityRepositoryImpl) UpdateEvent(ctx context.Context, event *QualityEvent) error {
	event.UpdatedAt = time.Now()
	_, err := r.Events.ReplaceOne(ctx, bson.M{"_id": event.ID}, event)
	return err
}

func (r *QualityRepositoryImpl) CountEvents(ctx context.Context, filter bson.M) (int64, error) {
	return r.Events.CountDocuments(ctx, filter)
}

func (r *QualityRepositoryImpl) CreateCAPA(ctx context.Context, capa *CAPA) error {
	if capa.ID.IsZero() {
		capa.ID = primitive.NewObjectID()
	}
	capa.CreatedAt = time.Now()
	capa.UpdatedAt = time.Now()
	_, err := r.CAPAs.InsertOne(ctx, capa)
	return err
}

func (r *QualityRepositoryImpl) GetCAPA(ctx context.Context, id string) (*CAPA, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, err
	}
	var capa CAPA
	if err := r.CAPAs.FindOne(ctx, bson.M{"_id": oid}).Decode(&capa); err != nil {
		return nil, err
	}
	return &capa, nil
}

func (r *QualityRepositoryImpl) ListCAPAs(ctx context.Context, filter bson.M, limit int64) ([]CAPA, error) {
	if filter == nil {
		filter = bson.M{}
	}
	if limit <= 0 {
		limit = 100
	}
	cursor, err := r.CAPAs.Find(ctx, filter, options.Find().SetSort(bson.M{"due_date": 1}).SetLimit(limit))
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)
	var capas []CAPA
	if err := cursor.All(ctx, &capas); err != nil {
		return nil, err
	}
	return capas, nil
}

func (r *QualityRepositoryImpl) UpdateCAPA(ctx context.Context, capa *CAPA) error {
	capa.UpdatedAt = time.Now()
	_, err := r.CAPAs.ReplaceOne(ctx, bson.M{"_id": capa.ID}, capa)
	return err
}

func (r *QualityRepositoryImpl) CountCAPAs(ctx context.Context, filter bson.M) (int64, error) {
	return r.CAPAs.CountDocuments(ctx, filter)
}

func (r *QualityRepositoryImpl) CreateDocument(ctx context.Context, doc *ControlledDocument) error {
	if doc.ID.IsZero() {
		doc.ID = primitive.NewObjectID()
	}
	doc.CreatedAt = time.Now()
	doc.UpdatedAt = time.Now()
	_, err := r.Documents.InsertOne(ctx, doc)
	return err
}

func (r *QualityRepositoryImpl) GetDocument(ctx context.Context, id string) (*ControlledDocument, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, err
	}
	var doc ControlledDocument
	if err := r.Documents.FindOne(ctx, bson.M{"_id": oid}).Decode(&doc); err != nil {
		return nil, err
	}
	return &doc, nil
}

func (r *QualityRepositoryImpl) ListDocuments(ctx context.Context, filter bson.M) ([]ControlledDocument, error) {
	if filter == nil {
		filter = bson.M{}
	}
	cursor, err := r.Documents.Find(ctx, filter, options.Find().SetSort(bson.M{"number": 1}))
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)
	var docs []ControlledDocument
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, err
	}
	return docs, nil
}

func (r *QualityRepositoryImpl) UpdateDocument(ctx context.Context, doc *ControlledDocument) error {
	doc.UpdatedAt = time.Now()
	_, err := r.Documents.ReplaceOne(ctx, bson.M{"_id": doc.ID}, doc)
	return err
}

func (r *QualityRepositoryImpl) CountDocuments(ctx context.Context, filter bson.M) (int64, error) {
	return r.Documents.CountDocuments(ctx, filter)
}
