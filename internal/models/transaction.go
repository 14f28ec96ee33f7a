package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Transaction states. A transaction is created PENDING and moves to exactly one
// terminal state; once terminal it never changes again.
const (
	StatusPending   = "PENDING"
	StatusCompleted = "COMPLETED"
	StatusFailed    = "FAILED"
)

// MpesaTransaction records every STK push initiation attempt and the callback
// result that later resolves it. CheckoutRequestID is the sole lookup key for
// applying a callback.
type MpesaTransaction struct {
	ID                 primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	CheckoutRequestID  string             `bson:"checkout_request_id" json:"checkout_request_id"`
	MerchantRequestID  string             `bson:"merchant_request_id" json:"merchant_request_id"`
	AccountReference   string             `bson:"account_reference" json:"account_reference"`
	UserID             string             `bson:"user_id,omitempty" json:"user_id,omitempty"` // empty when initiated anonymously
	Amount             int64              `bson:"amount" json:"amount"`
	PhoneNumber        string             `bson:"phone_number" json:"phone_number"`
	Status             string             `bson:"status" json:"status"`
	MpesaReceiptNumber string             `bson:"mpesa_receipt_number,omitempty" json:"mpesa_receipt_number,omitempty"`
	CallbackData       []byte             `bson:"callback_data,omitempty" json:"-"` // raw provider payload, stored once for audit
	CreatedAt          time.Time          `bson:"created_at" json:"created_at"`
	UpdatedAt          time.Time          `bson:"updated_at" json:"updated_at"`
}
