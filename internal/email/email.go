package emails

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type EmailStatus string

const (
	EmailQueued EmailStatus = "queued"
	EmailSent   EmailStatus = "sent"
	EmailFailed EmailStatus = "failed"
)

// Attachment is stored inline with the queued email so a retry can resend
// the same bytes.
type Attachment struct {
	Filename    string `bson:"filename" json:"filename"`
	ContentType string `bson:"contentType" json:"contentType"`
	Data        []byte `bson:"data" json:"-"`
}

type Email struct {
	ID          primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	From        string             `bson:"from" json:"from"`
	To          []string           `bson:"to" json:"to"`
	Cc          []string           `bson:"cc,omitempty" json:"cc,omitempty"`
	Subject     string             `bson:"subject" json:"subject"`
	HtmlBody    string             `bson:"htmlBody,omitempty" json:"htmlBody,omitempty"`
	TextBody    string             `bson:"textBody,omitempty" json:"textBody,omitempty"`
	Attachments []Attachment       `bson:"attachments,omitempty" json:"attachments,omitempty"`
	Status      EmailStatus        `bson:"status" json:"status"`
	EntityType  string             `bson:"entityType,omitempty" json:"entityType,omitempty"`
	EntityID    string             `bson:"entityId,omitempty" json:"entityId,omitempty"`
	ErrorMsg    string             `bson:"errorMessage,omitempty" json:"errorMessage,omitempty"`
	CreatedAt   time.Time          `bson:"createdAt" json:"createdAt"`
	SentAt      *time.Time         `bson:"sentAt,omitempty" json:"sentAt,omitempty"`
}
