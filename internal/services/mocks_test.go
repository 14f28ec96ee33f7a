package services

import (
	"context"
	"sync"

	"github.com/stretchr/testify/mock"

	"github.com/carlvyper/rental-portal/internal/models"
)

type GatewayMock struct {
	mock.Mock
}

func (m *GatewayMock) StkPush(ctx context.Context, phone string, amount int64, accountRef, description string) (*StkResult, error) {
	args := m.Called(ctx, phone, amount, accountRef, description)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*StkResult), args.Error(1)
}

type TransactionStoreMock struct {
	mock.Mock
}

func (m *TransactionStoreMock) Insert(ctx context.Context, tx *models.MpesaTransaction) error {
	return m.Called(ctx, tx).Error(0)
}

func (m *TransactionStoreMock) FindByCheckoutID(ctx context.Context, checkoutID string) (*models.MpesaTransaction, error) {
	args := m.Called(ctx, checkoutID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.MpesaTransaction), args.Error(1)
}

func (m *TransactionStoreMock) FindOwnedByID(ctx context.Context, id, userID string) (*models.MpesaTransaction, error) {
	args := m.Called(ctx, id, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.MpesaTransaction), args.Error(1)
}

func (m *TransactionStoreMock) ListCompletedByUser(ctx context.Context, userID string) ([]models.MpesaTransaction, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.MpesaTransaction), args.Error(1)
}

func (m *TransactionStoreMock) FinalizePending(ctx context.Context, checkoutID, status, receipt string, raw []byte) (*models.MpesaTransaction, error) {
	args := m.Called(ctx, checkoutID, status, receipt, raw)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.MpesaTransaction), args.Error(1)
}

type PaymentStoreMock struct {
	mock.Mock
}

func (m *PaymentStoreMock) Insert(ctx context.Context, p *models.Payment) error {
	return m.Called(ctx, p).Error(0)
}

func (m *PaymentStoreMock) ListByUser(ctx context.Context, userID string) ([]models.Payment, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Payment), args.Error(1)
}

// memoryTransactionStore implements the CAS contract in memory so the
// idempotency and concurrency laws can be exercised with real races.
type memoryTransactionStore struct {
	mu  sync.Mutex
	txs map[string]*models.MpesaTransaction
}

func newMemoryTransactionStore() *memoryTransactionStore {
	return &memoryTransactionStore{txs: make(map[string]*models.MpesaTransaction)}
}

func (s *memoryTransactionStore) Insert(ctx context.Context, tx *models.MpesaTransaction) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *tx
	s.txs[tx.CheckoutRequestID] = &cp
	return nil
}

func (s *memoryTransactionStore) FindByCheckoutID(ctx context.Context, checkoutID string) (*models.MpesaTransaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	tx, ok := s.txs[checkoutID]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *tx
	return &cp, nil
}

func (s *memoryTransactionStore) FindOwnedByID(ctx context.Context, id, userID string) (*models.MpesaTransaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, tx := range s.txs {
		if tx.ID.Hex() == id && tx.UserID == userID {
			cp := *tx
			return &cp, nil
		}
	}
	return nil, ErrNotFound
}

func (s *memoryTransactionStore) ListCompletedByUser(ctx context.Context, userID string) ([]models.MpesaTransaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.MpesaTransaction
	for _, tx := range s.txs {
		if tx.UserID == userID && tx.Status == models.StatusCompleted {
			out = append(out, *tx)
		}
	}
	return out, nil
}

func (s *memoryTransactionStore) FinalizePending(ctx context.Context, checkoutID, status, receipt string, raw []byte) (*models.MpesaTransaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	tx, ok := s.txs[checkoutID]
	if !ok || tx.Status != models.StatusPending {
		return nil, ErrNotFound
	}
	tx.Status = status
	if receipt != "" {
		tx.MpesaReceiptNumber = receipt
	}
	tx.CallbackData = raw
	cp := *tx
	return &cp, nil
}

// memoryPaymentStore counts inserts under a lock for the duplicate-callback
// tests.
type memoryPaymentStore struct {
	mu       sync.Mutex
	payments []models.Payment
}

func (s *memoryPaymentStore) Insert(ctx context.Context, p *models.Payment) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.payments = append(s.payments, *p)
	return nil
}

func (s *memoryPaymentStore) ListByUser(ctx context.Context, userID string) ([]models.Payment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.Payment
	for _, p := range s.payments {
		if p.UserID == userID {
			out = append(out, p)
		}
	}
	return out, nil
}
