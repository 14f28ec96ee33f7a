package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Urgency levels for maintenance requests
const (
	UrgencyLow    = "Low"
	UrgencyMedium = "Medium"
	UrgencyHigh   = "High"
)

// MaintenanceRequest is a tenant-submitted repair request
type MaintenanceRequest struct {
	ID             primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	UserID         string             `bson:"user_id" json:"user_id"`
	RequestSubject string             `bson:"request_subject" json:"request_subject"`
	Description    string             `bson:"description" json:"description"`
	Urgency        string             `bson:"urgency" json:"urgency"`
	IsResolved     bool               `bson:"is_resolved" json:"is_resolved"`
	CreatedAt      time.Time          `bson:"created_at" json:"created_at"`
}
