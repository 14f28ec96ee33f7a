package services

import (
	"context"
	"errors"

	"github.com/carlvyper/rental-portal/internal/models"
)

var (
	// ErrNotFound covers both records that do not exist and records the
	// caller does not own; handlers map it to 404 either way.
	ErrNotFound = errors.New("not found")
	// ErrValidation marks bad caller input (amount, phone, empty fields).
	ErrValidation = errors.New("invalid input")
)

// TransactionStore persists STK push transactions. FinalizePending is the
// critical operation: it must atomically transition a single PENDING document
// to the given terminal status, returning ErrNotFound when no PENDING
// transaction matched (unknown checkout ID or already terminal).
type TransactionStore interface {
	Insert(ctx context.Context, tx *models.MpesaTransaction) error
	FindByCheckoutID(ctx context.Context, checkoutID string) (*models.MpesaTransaction, error)
	FindOwnedByID(ctx context.Context, id, userID string) (*models.MpesaTransaction, error)
	ListCompletedByUser(ctx context.Context, userID string) ([]models.MpesaTransaction, error)
	FinalizePending(ctx context.Context, checkoutID, status, receipt string, raw []byte) (*models.MpesaTransaction, error)
}

// PaymentStore persists confirmed payments. Only the reconciliation path
// inserts; everything else reads.
type PaymentStore interface {
	Insert(ctx context.Context, p *models.Payment) error
	ListByUser(ctx context.Context, userID string) ([]models.Payment, error)
}
