package organization

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Department is a node in the org hierarchy. ParentID is nil for
// top-level departments.
type Department struct {
	ID          primitive.ObjectID  `bson:"_id,omitempty" json:"id"`
	Name        string              `bson:"name" json:"name"`
	Description string              `bson:"description,omitempty" json:"description,omitempty"`
	ParentID    *primitive.ObjectID `bson:"parent_id,omitempty" json:"parent_id,omitempty"`
	ManagerID   string              `bson:"manager_id,omitempty" json:"manager_id,omitempty"`
	CreatedAt   time.Time           `bson:"created_at" json:"created_at"`
	UpdatedAt   time.Time           `bson:"updated_at" json:"updated_at"`
}

// DepartmentAnalytics is the aggregate view served per department.
type DepartmentAnalytics struct {
	DepartmentID           string       `json:"department_id"`
	DepartmentName         string       `json:"department_name"`
	MemberCount            int64        `json:"member_count"`
	TrainingCompletionRate float64      `json:"training_completion_rate"`
	TrainingOverdue        int64        `json:"training_overdue"`
	OpenQualityEvents      int64        `json:"open_quality_events"`
	OpenCAPAs              int64        `json:"open_capas"`
	ComplianceTrend        []TrendPoint `json:"compliance_trend"`
}

// TrendPoint is one assessment snapshot in the compliance trend.
type TrendPoint struct {
	Score     float64   `json:"score"`
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
}
