package delivery

import (
	"context"
	"time"

	"go-qms/internal/database"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type ScheduleRepository interface {
	Create(ctx context.Context, schedule *DeliverySchedule) error
	GetByID(ctx context.Context, id string) (*DeliverySchedule, error)
	List(ctx context.Context) ([]DeliverySchedule, error)
	GetActive(ctx context.Context) ([]DeliverySchedule, error)
	Update(ctx context.Context, schedule *DeliverySchedule) error
	UpdateRunTimes(ctx context.Context, id string, lastRun time.Time, nextRun *time.Time) error
	Delete(ctx context.Context, id string) error

	CreateDelivery(ctx context.Context, delivery *ScheduledDelivery) error
	UpdateDelivery(ctx context.Context, delivery *ScheduledDelivery) error
	ListDeliveries(ctx context.Context, scheduleID string, limit int64) ([]ScheduledDelivery, error)
}

type ScheduleRepositoryImpl struct {
	Schedules  *mongo.Collection
	Deliveries *mongo.Collection
}

func NewScheduleRepository(mongodb *database.MongodbDB) ScheduleRepository {
	return &ScheduleRepositoryImpl{
		Schedules:  mongodb.DB.Collection("delivery_schedules"),
		Deliveries: mongodb.DB.Collection("scheduled_deliveries"),
	}
}

func (r *ScheduleRepositoryImpl) Create(ctx context.Context, schedule *DeliverySchedule) error {
	if schedule.ID.IsZero() {
		schedule.ID = primitive.NewObjectID()
	}
	schedule.CreatedAt = time.Now()
	schedule.UpdatedAt = time.Now()
	_, err := r.Schedules.InsertOne(ctx, schedule)
	return err
}

func (r *ScheduleRepositoryImpl) GetByID(ctx context.Context, id string) (*DeliverySchedule, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, err
	}
	var schedule DeliverySchedule
	if err := r.Schedules.FindOne(ctx, bson.M{"_id": oid}).Decode(&schedule); err != nil {
		return nil, err
	}
	return &schedule, nil
}

func (r *ScheduleRepositoryImpl) List(ctx context.Context) ([]DeliverySchedule, error) {
	return r.find(ctx, bson.M{})
}

func (r *ScheduleRepositoryImpl) GetActive(ctx context.Context) ([]DeliverySchedule, error) {
	return r.find(ctx, bson.M{"active": true})
}

func (r *ScheduleRepositoryImpl) find(ctx context.Context, filter bson.M) ([]DeliverySchedule, error) {
	cursor, err := r.Schedules.Find(ctx, filter, options.Find().SetSort(bson.M{"created_at": -1}))
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)
	var schedules []DeliverySchedule
	if err := cursor.All(ctx, &schedules); err != nil {
		return nil, err
	}
	return schedules, nil
}

func (r *ScheduleRepositoryImpl) Update(ctx context.Context, schedule *DeliverySchedule) error {
	schedule.UpdatedAt = time.Now()
	_, err := r.Schedules.ReplaceOne(ctx, bson.M{"_id": schedule.ID}, schedule)
	return err
}

func (r *ScheduleRepositoryImpl) UpdateRunTimes(ctx context.Context, id string, lastRun time.Time, nextRun *time.Time) error {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return err
	}
	update := bson.M{"$set": bson.M{
		"last_run":   lastRun,
		"next_run":   nextRun,
		"updated_at": time.Now(),
	}}
	_, err = r.Schedules.UpdateOne(ctx, bson.M{"_id": oid}, update)
	return err
}

func (r *ScheduleRepositoryImpl) Delete(ctx context.Context, id string) error {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return err
	}
	_, err = r.Schedules.DeleteOne(ctx, bson.M{"_id": oid})
	return err
}

func (r *ScheduleRepositoryImpl) CreateDelivery(ctx context.Context, delivery *ScheduledDelivery) error {
	if delivery.ID.IsZero() {
		delivery.ID = primitive.NewObjectID()
	}
	delivery.StartedAt = time.Now()
	_, err := r.Deliveries.InsertOne(ctx, delivery)
	return err
}

func (r *ScheduleRepositoryImpl) UpdateDelivery(ctx context.Context, delivery *ScheduledDelivery) error {
	_, err := r.Deliveries.ReplaceOne(ctx, bson.M{"_id": delivery.ID}, delivery)
	return err
}

func (r *ScheduleRepositoryImpl) ListDeliveries(ctx context.Context, scheduleID string, limit int64) ([]ScheduledDelivery, error) {
	filter := bson.M{}
	if scheduleID != "" {
		oid, err := primitive.ObjectIDFromHex(scheduleID)
		if err != nil {
			return nil, err
		}
		filter["schedule_id"] = oid
	}
	if limit <= 0 {
		limit = 50
	}
	cursor, err := r.Deliveries.Find(ctx, filter, options.Find().SetSort(bson.M{"started_at": -1}).SetLimit(limit))
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)
	var deliveries []ScheduledDelivery
	if err := cursor.All(ctx, &deliveries); err != nil {
		return nil, err
	}
	return deliveries, nil
}
