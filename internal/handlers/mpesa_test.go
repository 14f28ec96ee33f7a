package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/carlvyper/rental-portal/internal/models"
	"github.com/carlvyper/rental-portal/internal/services"
)

const testCallback = `{
	"Body": {
		"stkCallback": {
			"CheckoutRequestID": "ws_CO_191220191020363925",
			"ResultCode": 0,
			"CallbackMetadata": {
				"Item": [{"Name": "MpesaReceiptNumber", "Value": "ABC123"}]
			}
		}
	}
}`

type stubGateway struct {
	result *services.StkResult
	err    error
}

func (g *stubGateway) StkPush(ctx context.Context, phone string, amount int64, accountRef, description string) (*services.StkResult, error) {
	return g.result, g.err
}

// stubTransactionStore is a minimal in-memory TransactionStore for wiring a
// real LedgerService under httptest.
type stubTransactionStore struct {
	mu  sync.Mutex
	txs map[string]*models.MpesaTransaction
}

func newStubTransactionStore() *stubTransactionStore {
	return &stubTransactionStore{txs: make(map[string]*models.MpesaTransaction)}
}

func (s *stubTransactionStore) Insert(ctx context.Context, tx *models.MpesaTransaction) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *tx
	s.txs[tx.CheckoutRequestID] = &cp
	return nil
}

func (s *stubTransactionStore) FindByCheckoutID(ctx context.Context, checkoutID string) (*models.MpesaTransaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	tx, ok := s.txs[checkoutID]
	if !ok {
		return nil, services.ErrNotFound
	}
	cp := *tx
	return &cp, nil
}

func (s *stubTransactionStore) FindOwnedByID(ctx context.Context, id, userID string) (*models.MpesaTransaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, tx := range s.txs {
		if tx.ID.Hex() == id && tx.UserID == userID {
			cp := *tx
			return &cp, nil
		}
	}
	return nil, services.ErrNotFound
}

func (s *stubTransactionStore) ListCompletedByUser(ctx context.Context, userID string) ([]models.MpesaTransaction, error) {
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

func (s *stubTransactionStore) FinalizePending(ctx context.Context, checkoutID, status, receipt string, raw []byte) (*models.MpesaTransaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	tx, ok := s.txs[checkoutID]
	if !ok || tx.Status != models.StatusPending {
		return nil, services.ErrNotFound
	}
	tx.Status = status
	if receipt != "" {
		tx.MpesaReceiptNumber = receipt
	}
	tx.CallbackData = raw
	cp := *tx
	return &cp, nil
}

type stubPaymentStore struct {
	mu       sync.Mutex
	payments []models.Payment
}

func (s *stubPaymentStore) Insert(ctx context.Context, p *models.Payment) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.payments = append(s.payments, *p)
	return nil
}

func (s *stubPaymentStore) ListByUser(ctx context.Context, userID string) ([]models.Payment, error) {
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

func withPrincipal(r *http.Request, p Principal) *http.Request {
	return r.WithContext(context.WithValue(r.Context(), principalKey, p))
}

func TestMpesaHandler_StkCallback(t *testing.T) {
	t.Run("valid POST is acknowledged even for an unknown checkout id", func(t *testing.T) {
		payStore := &stubPaymentStore{}
		h := NewMpesaHandler(services.NewLedgerService(nil, newStubTransactionStore(), payStore, nil))

		req := httptest.NewRequest(http.MethodPost, "/api/stk-callback", strings.NewReader(testCallback))
		rec := httptest.NewRecorder()
		h.StkCallback(rec, req)

		require.Equal(t, http.StatusOK, rec.Code)
		var resp map[string]interface{}
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		require.EqualValues(t, 0, resp["ResultCode"])
		require.Equal(t, "Success", resp["ResultDesc"])
		require.Empty(t, payStore.payments)
	})

	t.Run("malformed body is still acknowledged", func(t *testing.T) {
		h := NewMpesaHandler(services.NewLedgerService(nil, newStubTransactionStore(), &stubPaymentStore{}, nil))

		req := httptest.NewRequest(http.MethodPost, "/api/stk-callback", strings.NewReader(`{broken`))
		rec := httptest.NewRecorder()
		h.StkCallback(rec, req)

		require.Equal(t, http.StatusOK, rec.Code)
		var resp map[string]interface{}
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		require.EqualValues(t, 0, resp["ResultCode"])
	})

	t.Run("non-POST is refused with the provider envelope", func(t *testing.T) {
		h := NewMpesaHandler(services.NewLedgerService(nil, newStubTransactionStore(), &stubPaymentStore{}, nil))

		req := httptest.NewRequest(http.MethodGet, "/api/stk-callback", nil)
		rec := httptest.NewRecorder()
		h.StkCallback(rec, req)

		require.Equal(t, http.StatusMethodNotAllowed, rec.Code)
		var resp map[string]interface{}
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		require.EqualValues(t, 1, resp["ResultCode"])
	})

	t.Run("success callback finalizes the transaction", func(t *testing.T) {
		txStore := newStubTransactionStore()
		require.NoError(t, txStore.Insert(context.Background(), &models.MpesaTransaction{
			CheckoutRequestID: "ws_CO_191220191020363925",
			UserID:            "u1",
			Amount:            1500,
			Status:            models.StatusPending,
			CreatedAt:         time.Now(),
		}))
		payStore := &stubPaymentStore{}
		h := NewMpesaHandler(services.NewLedgerService(nil, txStore, payStore, nil))

		req := httptest.NewRequest(http.MethodPost, "/api/stk-callback", strings.NewReader(testCallback))
		rec := httptest.NewRecorder()
		h.StkCallback(rec, req)

		require.Equal(t, http.StatusOK, rec.Code)
		tx, err := txStore.FindByCheckoutID(context.Background(), "ws_CO_191220191020363925")
		require.NoError(t, err)
		require.Equal(t, models.StatusCompleted, tx.Status)
		require.Len(t, payStore.payments, 1)
		require.Equal(t, "ABC123", payStore.payments[0].TransactionID)
	})
}

func TestMpesaHandler_InitiateStkPush(t *testing.T) {
	accepted := &services.StkResult{Accepted: &services.StkAccepted{
		CheckoutRequestID: "ws_CO_191220191020363925",
		MerchantRequestID: "29115-34620561-1",
	}}

	t.Run("accepted push returns the checkout id", func(t *testing.T) {
		txStore := newStubTransactionStore()
		h := NewMpesaHandler(services.NewLedgerService(&stubGateway{result: accepted}, txStore, &stubPaymentStore{}, nil))

		req := httptest.NewRequest(http.MethodPost, "/api/initiate-stk-push",
			strings.NewReader(`{"amount": 1500, "phone_number": "0712345678"}`))
		req = withPrincipal(req, Principal{UserID: "u1", Username: "alice"})
		rec := httptest.NewRecorder()
		h.InitiateStkPush(rec, req)

		require.Equal(t, http.StatusOK, rec.Code)
		var resp map[string]string
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		require.Equal(t, "0", resp["ResponseCode"])
		require.Equal(t, "ws_CO_191220191020363925", resp["CheckoutRequestID"])

		tx, err := txStore.FindByCheckoutID(context.Background(), "ws_CO_191220191020363925")
		require.NoError(t, err)
		require.Equal(t, "u1", tx.UserID)
		require.Equal(t, models.StatusPending, tx.Status)
	})

	t.Run("string amount is accepted", func(t *testing.T) {
		h := NewMpesaHandler(services.NewLedgerService(&stubGateway{result: accepted}, newStubTransactionStore(), &stubPaymentStore{}, nil))

		req := httptest.NewRequest(http.MethodPost, "/api/initiate-stk-push",
			strings.NewReader(`{"amount": "1500", "phone_number": "0712345678"}`))
		rec := httptest.NewRecorder()
		h.InitiateStkPush(rec, req)

		require.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("non-positive amount is a 400", func(t *testing.T) {
		txStore := newStubTransactionStore()
		h := NewMpesaHandler(services.NewLedgerService(&stubGateway{result: accepted}, txStore, &stubPaymentStore{}, nil))

		req := httptest.NewRequest(http.MethodPost, "/api/initiate-stk-push",
			strings.NewReader(`{"amount": 0, "phone_number": "0712345678"}`))
		rec := httptest.NewRecorder()
		h.InitiateStkPush(rec, req)

		require.Equal(t, http.StatusBadRequest, rec.Code)
		require.Empty(t, txStore.txs)
	})

	t.Run("gateway rejection echoes the provider code", func(t *testing.T) {
		txStore := newStubTransactionStore()
		rejected := &services.StkResult{Rejected: &services.StkRejected{Code: "1", Message: "Insufficient balance"}}
		h := NewMpesaHandler(services.NewLedgerService(&stubGateway{result: rejected}, txStore, &stubPaymentStore{}, nil))

		req := httptest.NewRequest(http.MethodPost, "/api/initiate-stk-push",
			strings.NewReader(`{"amount": 1500, "phone_number": "0712345678"}`))
		rec := httptest.NewRecorder()
		h.InitiateStkPush(rec, req)

		require.Equal(t, http.StatusBadRequest, rec.Code)
		var resp map[string]string
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		require.Equal(t, "1", resp["ResponseCode"])
		require.Equal(t, "Safaricom Rejected", resp["error"])
		require.Empty(t, txStore.txs)
	})
}

func TestMpesaHandler_CheckStatus(t *testing.T) {
	t.Run("unknown id is 404, not a default PENDING", func(t *testing.T) {
		h := NewMpesaHandler(services.NewLedgerService(nil, newStubTransactionStore(), &stubPaymentStore{}, nil))

		req := httptest.NewRequest(http.MethodGet, "/api/check-status?checkout_id=ws_CO_nope", nil)
		rec := httptest.NewRecorder()
		h.CheckStatus(rec, req)

		require.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("known pending id reports status and empty receipt", func(t *testing.T) {
		txStore := newStubTransactionStore()
		require.NoError(t, txStore.Insert(context.Background(), &models.MpesaTransaction{
			CheckoutRequestID: "ws_CO_1",
			Status:            models.StatusPending,
		}))
		h := NewMpesaHandler(services.NewLedgerService(nil, txStore, &stubPaymentStore{}, nil))

		req := httptest.NewRequest(http.MethodGet, "/api/check-status?checkout_id=ws_CO_1", nil)
		rec := httptest.NewRecorder()
		h.CheckStatus(rec, req)

		require.Equal(t, http.StatusOK, rec.Code)
		var resp map[string]string
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		require.Equal(t, models.StatusPending, resp["status"])
		require.Equal(t, "", resp["receipt"])
	})

	t.Run("missing checkout_id is a 400", func(t *testing.T) {
		h := NewMpesaHandler(services.NewLedgerService(nil, newStubTransactionStore(), &stubPaymentStore{}, nil))

		req := httptest.NewRequest(http.MethodGet, "/api/check-status", nil)
		rec := httptest.NewRecorder()
		h.CheckStatus(rec, req)

		require.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestReceiptHandler_Ownership(t *testing.T) {
	txStore := newStubTransactionStore()
	tx := &models.MpesaTransaction{
		CheckoutRequestID:  "ws_CO_1",
		UserID:             "owner",
		Amount:             1500,
		PhoneNumber:        "254712345678",
		Status:             models.StatusCompleted,
		MpesaReceiptNumber: "ABC123",
		CreatedAt:          time.Now(),
	}
	tx.ID = primitive.NewObjectID()
	require.NoError(t, txStore.Insert(context.Background(), tx))

	h := NewReceiptHandler(services.NewLedgerService(nil, txStore, &stubPaymentStore{}, nil))
	router := mux.NewRouter()
	router.HandleFunc("/api/download-receipt/{transactionID}", h.DownloadReceipt).Methods("GET")

	t.Run("another user's transaction is 404, never 403", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/download-receipt/"+tx.ID.Hex(), nil)
		req = withPrincipal(req, Principal{UserID: "intruder", Username: "mallory"})
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		require.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("owner gets a PDF attachment", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/download-receipt/"+tx.ID.Hex(), nil)
		req = withPrincipal(req, Principal{UserID: "owner", Username: "alice"})
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		require.Equal(t, http.StatusOK, rec.Code)
		require.Equal(t, "application/pdf", rec.Header().Get("Content-Type"))
		require.Contains(t, rec.Header().Get("Content-Disposition"), "Receipt_ABC123.pdf")
		require.True(t, strings.HasPrefix(rec.Body.String(), "%PDF"))
	})
}

func TestAuthMiddleware(t *testing.T) {
	auth := NewAuth("test-secret")
	protected := auth.Require(func(w http.ResponseWriter, r *http.Request) {
		p, ok := PrincipalFrom(r.Context())
		require.True(t, ok)
		w.Write([]byte(p.UserID))
	})

	t.Run("missing token is a 401", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/profile", nil)
		rec := httptest.NewRecorder()
		protected(rec, req)
		require.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("garbage token is a 401", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/profile", nil)
		req.Header.Set("Authorization", "Bearer not-a-token")
		rec := httptest.NewRecorder()
		protected(rec, req)
		require.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("issued token round-trips the principal", func(t *testing.T) {
		token, err := auth.IssueToken("u1", "alice")
		require.NoError(t, err)

		req := httptest.NewRequest(http.MethodGet, "/api/profile", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		rec := httptest.NewRecorder()
		protected(rec, req)

		require.Equal(t, http.StatusOK, rec.Code)
		require.Equal(t, "u1", rec.Body.String())
	})

	t.Run("token signed with another secret is a 401", func(t *testing.T) {
		other := NewAuth("other-secret")
		token, err := other.IssueToken("u1", "alice")
		require.NoError(t, err)

		req := httptest.NewRequest(http.MethodGet, "/api/profile", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		rec := httptest.NewRecorder()
		protected(rec, req)
		require.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("optional auth lets anonymous requests through", func(t *testing.T) {
		handler := auth.Optional(func(w http.ResponseWriter, r *http.Request) {
			_, ok := PrincipalFrom(r.Context())
			require.False(t, ok)
			w.WriteHeader(http.StatusOK)
		})
		req := httptest.NewRequest(http.MethodPost, "/api/initiate-stk-push", nil)
		rec := httptest.NewRecorder()
		handler(rec, req)
		require.Equal(t, http.StatusOK, rec.Code)
	})
}
