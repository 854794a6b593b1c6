package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type ContextKey string

const (
	SiteIDKey ContextKey = "site_id"
)

type AuditAction string

const (
	AuditActionCreate     AuditAction = "CREATE"
	AuditActionUpdate     AuditAction = "UPDATE"
	AuditActionDelete     AuditAction = "DELETE"
	AuditActionLogin      AuditAction = "LOGIN"
	AuditActionApproval   AuditAction = "APPROVAL"
	AuditActionEscalation AuditAction = "ESCALATION"
	AuditActionWorkflow   AuditAction = "WORKFLOW"
	AuditActionDelivery   AuditAction = "DELIVERY"
	AuditActionCompliance AuditAction = "COMPLIANCE"
	AuditActionExport     AuditAction = "EXPORT"
	AuditActionCustody    AuditAction = "CUSTODY"
	AuditActionReport     AuditAction = "REPORT"
	AuditActionSettings   AuditAction = "SETTINGS"
)

type Change struct {
	Old interface{} `bson:"old" json:"old"`
	New interface{} `bson:"new" json:"new"`
}

// AuditLog is the Part 11 audit trail entry. Every mutating service call
// records one, attributed to the acting user.
type AuditLog struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Action    AuditAction        `bson:"action" json:"action"`
	Module    string             `bson:"module" json:"module"`
	RecordID  string             `bson:"record_id" json:"record_id"`
	ActorID   string             `bson:"actor_id" json:"actor_id"`
	ActorName string             `bson:"-" json:"actor_name,omitempty"`
	Changes   map[string]Change  `bson:"changes,omitempty" json:"changes,omitempty"`
	Timestamp time.Time          `bson:"timestamp" json:"timestamp"`
}

type User struct {
	ID         primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Username   string             `bson:"username" json:"username"`
	Password   string             `bson:"password" json:"-"`
	Email      string             `bson:"email" json:"email"`
	FirstName  string             `bson:"first_name,omitempty" json:"first_name,omitempty"`
	LastName   string             `bson:"last_name,omitempty" json:"last_name,omitempty"`
	Status     string             `bson:"status" json:"status"` // active, inactive, suspended
	Roles      []string           `bson:"roles" json:"roles"`   // role names (quality_manager, analyst, ...)
	Department string             `bson:"department,omitempty" json:"department,omitempty"`
	Groups     []string           `bson:"groups,omitempty" json:"groups,omitempty"`
	IsManager  bool               `bson:"is_manager" json:"is_manager"`
	LastLogin  *time.Time         `bson:"last_login,omitempty" json:"last_login,omitempty"`
	CreatedAt  time.Time          `bson:"created_at" json:"created_at"`
	UpdatedAt  time.Time          `bson:"updated_at" json:"updated_at"`
}

type Log struct {
	Message      string    `bson:"message" json:"message"`
	Caller       string    `bson:"caller" json:"caller"`
	AppId        string    `bson:"app_id" json:"app_id"`
	LogLevelId   int       `bson:"log_level_id" json:"log_level_id"`
	CreatedOnUtc time.Time `bson:"created_on_utc" json:"created_on_utc"`
}
