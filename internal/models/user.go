package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// User is a tenant account. Unit number and phone number live directly on the
// user document instead of a separate profile record, so the callback path can
// resolve an owner even when the tenant never filled in a profile.
type User struct {
	ID          primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Username    string             `bson:"username" json:"username"`
	Email       string             `bson:"email" json:"email"`
	FirstName   string             `bson:"first_name" json:"first_name"`
	LastName    string             `bson:"last_name" json:"last_name"`
	HPassword   string             `bson:"password" json:"-"`
	UnitNumber  string             `bson:"unit_number" json:"unit_number"`
	PhoneNumber string             `bson:"phone_number" json:"phone_number"`
	CreatedAt   time.Time          `bson:"created_at" json:"created_at"`
}
