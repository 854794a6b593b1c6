package recipient

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// DistributionList is a named static recipient list, referenced by
// "list:<name>" specs.
type DistributionList struct {
	ID          primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Name        string             `bson:"name" json:"name"`
	Description string             `bson:"description,omitempty" json:"description,omitempty"`
	Addresses   []string           `bson:"addresses" json:"addresses"`
	CreatedAt   time.Time          `bson:"created_at" json:"created_at"`
	UpdatedAt   time.Time          `bson:"updated_at" json:"updated_at"`
}

// RecipientScript is a named tengo script referenced by "dynamic:<name>"
// specs. The script sees the evaluation context scopes as maps and must
// assign an array of addresses to `recipients`.
type RecipientScript struct {
	ID          primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Name        string             `bson:"name" json:"name"`
	Description string             `bson:"description,omitempty" json:"description,omitempty"`
	Script      string             `bson:"script" json:"script"`
	CreatedAt   time.Time          `bson:"created_at" json:"created_at"`
	UpdatedAt   time.Time          `bson:"updated_at" json:"updated_at"`
}
