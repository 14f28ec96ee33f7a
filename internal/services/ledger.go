package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/carlvyper/rental-portal/internal/models"
	"github.com/carlvyper/rental-portal/internal/observability"
)

const (
	accountRefPrefix = "REF-"
	transactionDesc  = "Rent Payment"
	defaultAccount   = "RENT-PAY"
)

// InitiateResult is returned to the caller for polling after a successful
// STK push initiation.
type InitiateResult struct {
	CheckoutRequestID string
	CustomerMessage   string
}

// StkRejectedError carries the provider's synchronous rejection back to the
// handler so it can echo the provider code.
type StkRejectedError struct {
	Code    string
	Message string
}

func (e *StkRejectedError) Error() string {
	return fmt.Sprintf("gateway rejected request: code=%s %s", e.Code, e.Message)
}

// LedgerService owns the transaction lifecycle: initiation, callback
// reconciliation, and status/history reads.
type LedgerService struct {
	gateway      StkPusher
	transactions TransactionStore
	payments     PaymentStore
	metrics      *observability.Metrics
}

func NewLedgerService(gateway StkPusher, transactions TransactionStore, payments PaymentStore, metrics *observability.Metrics) *LedgerService {
	return &LedgerService{
		gateway:      gateway,
		transactions: transactions,
		payments:     payments,
		metrics:      metrics,
	}
}

// InitiatePayment validates the input, pushes the charge to the gateway and
// records a PENDING transaction only when the gateway accepted. Nothing is
// persisted on rejection or transport failure.
func (s *LedgerService) InitiatePayment(ctx context.Context, userID string, rawAmount interface{}, rawPhone string) (*InitiateResult, error) {
	amount, err := ParseAmount(rawAmount)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrValidation, err)
	}
	phone := NormalizePhone(rawPhone)
	if phone == "" {
		return nil, fmt.Errorf("%w: phone number is required", ErrValidation)
	}

	result, err := s.gateway.StkPush(ctx, phone, amount, defaultAccount, transactionDesc)
	if err != nil {
		if s.metrics != nil {
			s.metrics.StkInitiated.WithLabelValues("transport_error").Inc()
		}
		return nil, err
	}
	if result.Rejected != nil {
		if s.metrics != nil {
			s.metrics.StkInitiated.WithLabelValues("rejected").Inc()
		}
		return nil, &StkRejectedError{Code: result.Rejected.Code, Message: result.Rejected.Message}
	}

	acc := result.Accepted
	now := time.Now()
	tx := &models.MpesaTransaction{
		CheckoutRequestID: acc.CheckoutRequestID,
		MerchantRequestID: acc.MerchantRequestID,
		AccountReference:  accountReference(acc.CheckoutRequestID),
		UserID:            userID,
		Amount:            amount,
		PhoneNumber:       phone,
		Status:            models.StatusPending,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	if err := s.transactions.Insert(ctx, tx); err != nil {
		log.Printf("Failed to record PENDING transaction for checkout %s: %v", acc.CheckoutRequestID, err)
		return nil, fmt.Errorf("failed to record transaction: %v", err)
	}

	if s.metrics != nil {
		s.metrics.StkInitiated.WithLabelValues("accepted").Inc()
	}
	log.Printf("STK push accepted: checkout_id=%s amount=%d phone=%s", acc.CheckoutRequestID, amount, phone)
	return &InitiateResult{CheckoutRequestID: acc.CheckoutRequestID, CustomerMessage: acc.CustomerMessage}, nil
}

// accountReference derives a short human-readable reference from the checkout
// request ID so support staff can quote it without the full provider ID.
func accountReference(checkoutID string) string {
	ref := checkoutID
	if len(ref) > 8 {
		ref = ref[:8]
	}
	return accountRefPrefix + strings.ToUpper(ref)
}

// ApplyCallback reconciles an asynchronous provider callback with the ledger.
// It never returns an error: every internal failure is logged and absorbed,
// because the HTTP layer must acknowledge the provider regardless. Duplicate
// and late callbacks are safe no-ops; exactly one confirmed payment is created
// per completed transaction.
func (s *LedgerService) ApplyCallback(ctx context.Context, body []byte) {
	if s.metrics != nil {
		s.metrics.CallbacksReceived.Inc()
	}

	event, err := ParseCallback(body)
	if err != nil {
		log.Printf("Ignoring malformed callback: %v", err)
		return
	}

	status := models.StatusFailed
	if event.Success() {
		if event.Receipt == "" {
			// A success result without the receipt item cannot be
			// finalized; leave the transaction PENDING for a retry.
			log.Printf("Success callback for checkout %s missing %s, skipping", event.CheckoutRequestID, receiptFieldName)
			return
		}
		status = models.StatusCompleted
	}

	tx, err := s.transactions.FinalizePending(ctx, event.CheckoutRequestID, status, event.Receipt, event.Raw)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			// Unknown checkout ID or already terminal: a normal race
			// with at-least-once delivery, not an error.
			if s.metrics != nil {
				s.metrics.DuplicateCallbacks.Inc()
			}
			log.Printf("No PENDING transaction for checkout %s, callback ignored", event.CheckoutRequestID)
			return
		}
		log.Printf("Failed to finalize transaction %s: %v", event.CheckoutRequestID, err)
		return
	}

	if s.metrics != nil {
		s.metrics.CallbacksApplied.WithLabelValues(status).Inc()
	}

	if status != models.StatusCompleted {
		log.Printf("Transaction %s marked FAILED: %s", event.CheckoutRequestID, event.ResultDesc)
		return
	}

	payment := &models.Payment{
		UserID:        tx.UserID,
		Amount:        tx.Amount,
		MonthPaidFor:  monthOf(tx.CreatedAt),
		PaymentMethod: "M-Pesa STK",
		TransactionID: event.Receipt,
		Status:        "Paid",
		Timestamp:     time.Now(),
	}
	if err := s.payments.Insert(ctx, payment); err != nil {
		log.Printf("Transaction %s COMPLETED but payment record failed: %v", event.CheckoutRequestID, err)
		return
	}
	log.Printf("Transaction %s COMPLETED, receipt=%s", event.CheckoutRequestID, event.Receipt)
}

func monthOf(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, t.Location())
}

// CheckStatus returns the current state and receipt for a checkout request ID.
// Unknown IDs yield ErrNotFound, never a default PENDING.
func (s *LedgerService) CheckStatus(ctx context.Context, checkoutID string) (status, receipt string, err error) {
	tx, err := s.transactions.FindByCheckoutID(ctx, checkoutID)
	if err != nil {
		return "", "", err
	}
	return tx.Status, tx.MpesaReceiptNumber, nil
}

// History lists the caller's completed transactions, newest first.
func (s *LedgerService) History(ctx context.Context, userID string) ([]models.MpesaTransaction, error) {
	return s.transactions.ListCompletedByUser(ctx, userID)
}

// Payments lists the caller's confirmed payment records.
func (s *LedgerService) Payments(ctx context.Context, userID string) ([]models.Payment, error) {
	return s.payments.ListByUser(ctx, userID)
}

// OwnedTransaction fetches a transaction scoped to its owner for receipt
// rendering. A transaction that exists but belongs to someone else reads as
// ErrNotFound.
func (s *LedgerService) OwnedTransaction(ctx context.Context, id, userID string) (*models.MpesaTransaction, error) {
	return s.transactions.FindOwnedByID(ctx, id, userID)
}
