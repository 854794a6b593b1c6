package notification

import (
	"context"
	"time"

	"go-qms/internal/database"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type NotificationRepository interface {
	Create(ctx context.Context, notif *Notification) error
	GetByID(ctx context.Context, id string) (*Notification, error)
	ListByRecipient(ctx context.Context, recipient string, unreadOnly bool, limit int64) ([]Notification, error)
	CountUnread(ctx context.Context, recipient string) (int64, error)
	MarkRead(ctx context.Context, id string) error
	MarkAllRead(ctx context.Context, recipient string) error
}

type NotificationRepositoryImpl struct {
	Collection *mongo.Collection
}

func NewNotificationRepository(mongodb *database.MongodbDB) NotificationRepository {
	return &NotificationRepositoryImpl{
		Collection: mongodb.DB.Collection("notifications"),
	}
}

func (r *NotificationRepositoryImpl) Create(ctx context.Context, notif *Notification) error {
	if notif.ID.IsZero() {
		notif.ID = primitive.NewObjectID()
	}
	notif.CreatedAt = time.Now()
	_, err := r.Collection.InsertOne(ctx, notif)
	return err
}

func (r *NotificationRepositoryImpl) GetByID(ctx context.Context, id string) (*Notification, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, err
	}
	var notif Notification
	if err := r.Collection.FindOne(ctx, bson.M{"_id": oid}).Decode(&notif); err != nil {
		return nil, err
	}
	return &notif, nil
}

func (r *NotificationRepositoryImpl) ListByRecipient(ctx context.Context, recipient string, unreadOnly bool, limit int64) ([]Notification, error) {
	filter := bson.M{"recipient": recipient}
	if unreadOnly {
		filter["read"] = false
	}
	if limit <= 0 {
		limit = 50
	}

	opts := options.Find().SetSort(bson.M{"created_at": -1}).SetLimit(limit)
	cursor, err := r.Collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var notifs []Notification
	if err := cursor.All(ctx, &notifs); err != nil {
		return nil, err
	}
	return notifs, nil
}

func (r *NotificationRepositoryImpl) CountUnread(ctx context.Context, recipient string) (int64, error) {
	return r.Collection.CountDocuments(ctx, bson.M{"recipient": recipient, "read": false})
}

func (r *NotificationRepositoryImpl) MarkRead(ctx context.Context, id string) error {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return err
	}
	update := bson.M{"$set": bson.M{"read": true, "read_at": time.Now()}}
	_, err = r.Collection.UpdateOne(ctx, bson.M{"_id": oid}, update)
	return err
}

func (r *NotificationRepositoryImpl) MarkAllRead(ctx context.Context, recipient string) error {
	update := bson.M{"$set": bson.M{"read": true, "read_at": time.Now()}}
	_, err := r.Collection.UpdateMany(ctx, bson.M{"recipient": recipient, "read": false}, update)
	return err
}
