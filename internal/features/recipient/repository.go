package recipient

import (
	"context"
	"time"

	"go-qms/internal/database"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

type ListRepository interface {
	Create(ctx context.Context, list *DistributionList) error
	FindByName(ctx context.Context, name string) (*DistributionList, error)
	List(ctx context.Context) ([]DistributionList, error)
	Update(ctx context.Context, id string, list *DistributionList) error
	Delete(ctx context.Context, id string) error
}

type ScriptRepository interface {
	Create(ctx context.Context, script *RecipientScript) error
	FindByName(ctx context.Context, name string) (*RecipientScript, error)
	List(ctx context.Context) ([]RecipientScript, error)
	Update(ctx context.Context, id string, script *RecipientScript) error
	Delete(ctx context.Context, id string) error
}

type ListRepositoryImpl struct {
	Collection *mongo.Collection
}

func NewListRepository(mongodb *database.MongodbDB) ListRepository {
	return &ListRepositoryImpl{
		Collection: mongodb.DB.Collection("distribution_lists"),
	}
}

func (r *ListRepositoryImpl) Create(ctx context.Context, list *DistributionList) error {
	if list.ID.IsZero() {
		list.ID = primitive.NewObjectID()
	}
	list.CreatedAt = time.Now()
	list.UpdatedAt = time.Now()
	_, err := r.Collection.InsertOne(ctx, list)
	return err
}

func (r *ListRepositoryImpl) FindByName(ctx context.Context, name string) (*DistributionList, error) {
	var list DistributionList
	err := r.Collection.FindOne(ctx, bson.M{"name": name}).Decode(&list)
	if err != nil {
		return nil, err
	}
	return &list, nil
}

func (r *ListRepositoryImpl) List(ctx context.Context) ([]DistributionList, error) {
	cursor, err := r.Collection.Find(ctx, bson.M{})
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var lists []DistributionList
	if err := cursor.All(ctx, &lists); err != nil {
		return nil, err
	}
	return lists, nil
}

func (r *ListRepositoryImpl) Update(ctx context.Context, id string, list *DistributionList) error {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return err
	}
	update := bson.M{"$set": bson.M{
		"name":        list.Name,
		"description": list.Description,
		"addresses":   list.Addresses,
		"updated_at":  time.Now(),
	}}
	_, err = r.Collection.UpdateOne(ctx, bson.M{"_id": oid}, update)
	return err
}

func (r *ListRepositoryImpl) Delete(ctx context.Context, id string) error {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return err
	}
	_, err = r.Collection.DeleteOne(ctx, bson.M{"_id": oid})
	return err
}

type ScriptRepositoryImpl struct {
	Collection *mongo.Collection
}

func NewScriptRepository(mongodb *database.MongodbDB) ScriptRepository {
	return &ScriptRepositoryImpl{
		Collection: mongodb.DB.Collection("recipient_scripts"),
	}
}

func (r *ScriptRepositoryImpl) Create(ctx context.Context, script *RecipientScript) error {
	if script.ID.IsZero() {
		script.ID = primitive.NewObjectID()
	}
	script.CreatedAt = time.Now()
	script.UpdatedAt = time.Now()
	_, err := r.Collection.InsertOne(ctx, script)
	return err
}

func (r *ScriptRepositoryImpl) FindByName(ctx context.Context, name string) (*RecipientScript, error) {
	var script RecipientScript
	err := r.Collection.FindOne(ctx, bson.M{"name": name}).Decode(&script)
	if err != nil {
		return nil, err
	}
	return &script, nil
}

func (r *ScriptRepositoryImpl) List(ctx context.Context) ([]RecipientScript, error) {
	cursor, err := r.Collection.Find(ctx, bson.M{})
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var scripts []RecipientScript
	if err := cursor.All(ctx, &scripts); err != nil {
		return nil, err
	}
	return scripts, nil
}

func (r *ScriptRepositoryImpl) Update(ctx context.Context, id string, script *RecipientScript) error {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return err
	}
	update := bson.M{"$set": bson.M{
		"name":        script.Name,
		"description": script.Description,
		"script":      script.Script,
		"updated_at":  time.Now(),
	}}
	_, err = r.Collection.UpdateOne(ctx, bson.M{"_id": oid}, update)
	return err
}

func (r *ScriptRepositoryImpl) Delete(ctx context.Context, id string) error {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return err
	}
	_, err = r.Collection.DeleteOne(ctx, bson.M{"_id": oid})
	return err
}
