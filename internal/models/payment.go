package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Payment is a confirmed rent payment. It is written exactly once, by the
// callback reconciliation when a transaction completes, and never mutated.
type Payment struct {
	ID            primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	UserID        string             `bson:"user_id,omitempty" json:"user_id,omitempty"`
	Amount        int64              `bson:"amount" json:"amount"`
	MonthPaidFor  time.Time          `bson:"month_paid_for" json:"month_paid_for"`
	PaymentMethod string             `bson:"payment_method" json:"payment_method"`
	TransactionID string             `bson:"transaction_id" json:"transaction_id"` // M-Pesa receipt number
	Status        string             `bson:"status" json:"status"`
	Timestamp     time.Time          `bson:"timestamp" json:"timestamp"`
}
