package organization

import (
	"context"
	"time"

	"go-qms/internal/database"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type DepartmentRepository interface {
	Create(ctx context.Context, department *Department) error
	GetByID(ctx context.Context, id string) (*Department, error)
	GetByName(ctx context.Context, name string) (*Department, error)
	List(ctx context.Context) ([]Department, error)
	ListChildren(ctx context.Context, parentID string) ([]Department, error)
	Update(ctx context.Context, department *Department) error
	Delete(ctx context.Context, id string) error
}

type DepartmentRepositoryImpl struct {
	Collection *mongo.Collection
}

func NewDepartmentRepository(mongodb *database.MongodbDB) DepartmentRepository {
	return &DepartmentRepositoryImpl{
		Collection: mongodb.DB.Collection("departments"),
	}
}

func (r *DepartmentRepositoryImpl) Create(ctx context.Context, department *Department) error {
	if department.ID.IsZero() {
		department.ID = primitive.NewObjectID()
	}
	department.CreatedAt = time.Now()
	department.UpdatedAt = time.Now()
	_, err := r.Collection.InsertOne(ctx, department)
	return err
}

func (r *DepartmentRepositoryImpl) GetByID(ctx context.Context, id string) (*Department, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, err
	}
	var department Department
	if err := r.Collection.FindOne(ctx, bson.M{"_id": oid}).Decode(&department); err != nil {
		return nil, err
	}
	return &department, nil
}

func (r *DepartmentRepositoryImpl) GetByName(ctx context.Context, name string) (*Department, error) {
	var department Department
	if err := r.Collection.FindOne(ctx, bson.M{"name": name}).Decode(&department); err != nil {
		return nil, err
	}
	return &department, nil
}

func (r *DepartmentRepositoryImpl) List(ctx context.Context) ([]Department, error) {
	cursor, err := r.Collection.Find(ctx, bson.M{}, options.Find().SetSort(bson.M{"name": 1}))
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)
	var departments []Department
	if err := cursor.All(ctx, &departments); err != nil {
		return nil, err
	}
	return departments, nil
}

func (r *DepartmentRepositoryImpl) ListChildren(ctx context.Context, parentID string) ([]Department, error) {
	oid, err := primitive.ObjectIDFromHex(parentID)
	if err != nil {
		return nil, err
	}
	cursor, err := r.Collection.Find(ctx, bson.M{"parent_id": oid})
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)
	var departments []Department
	if err := cursor.All(ctx, &departments); err != nil {
		return nil, err
	}
	return departments, nil
}

func (r *DepartmentRepositoryImpl) Update(ctx context.Context, department *Department) error {
	department.UpdatedAt = time.Now()
	_, err := r.Collection.ReplaceOne(ctx, bson.M{"_id": department.ID}, department)
	return err
}

func (r *DepartmentRepositoryImpl) Delete(ctx context.Context, id string) error {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return err
	}
	_, err = r.Collection.DeleteOne(ctx, bson.M{"_id": oid})
	return err
}
