package training

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

const (
	AssignmentAssigned  = "assigned"
	AssignmentCompleted = "completed"
	AssignmentWaived    = "waived"
)

// TrainingAssignment ties a user to a required course with a due date.
type TrainingAssignment struct {
	ID          primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	UserID      string             `bson:"user_id" json:"user_id"`
	Department  string             `bson:"department,omitempty" json:"department,omitempty"`
	CourseName  string             `bson:"course_name" json:"course_name"`
	Status      string             `bson:"status" json:"status"`
	AssignedBy  string             `bson:"assigned_by" json:"assigned_by"`
	DueDate     time.Time          `bson:"due_date" json:"due_date"`
	CompletedAt *time.Time         `bson:"completed_at,omitempty" json:"completed_at,omitempty"`
	Score       *float64           `bson:"score,omitempty" json:"score,omitempty"`
	CreatedAt   time.Time          `bson:"created_at" json:"created_at"`
	UpdatedAt   time.Time          `bson:"updated_at" json:"updated_at"`
}

// Overdue reports whether an open assignment has passed its due date.
func (a *TrainingAssignment) Overdue(now time.Time) bool {
	return a.Status == AssignmentAssigned && a.DueDate.Before(now)
}

// TrainingSummary is the aggregate fed into the training context scope.
type TrainingSummary struct {
	Total          int64   `json:"total"`
	Completed      int64   `json:"completed"`
	Overdue        int64   `json:"overdue"`
	CompletionRate float64 `json:"completion_rate"`
}
