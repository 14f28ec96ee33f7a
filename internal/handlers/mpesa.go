package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"log"
	"net/http"

	"github.com/carlvyper/rental-portal/internal/services"
)

// callbackAck is the fixed acknowledgement Safaricom expects. It is returned
// for every structurally valid POST regardless of internal outcome, so a
// broken handler never triggers a provider retry storm.
var callbackAck = map[string]interface{}{"ResultCode": 0, "ResultDesc": "Success"}

type MpesaHandler struct {
	ledger *services.LedgerService
}

func NewMpesaHandler(ledger *services.LedgerService) *MpesaHandler {
	return &MpesaHandler{ledger: ledger}
}

// InitiateStkPush handles POST /api/initiate-stk-push. Authentication is
// optional; an anonymous charge is recorded without an owner.
func (h *MpesaHandler) InitiateStkPush(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Amount      json.RawMessage `json:"amount"`
		PhoneNumber string          `json:"phone_number"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, `{"error":"Invalid request body"}`, http.StatusBadRequest)
		return
	}

	// amount may arrive as a JSON number or a numeric string
	var rawAmount interface{}
	if err := json.Unmarshal(req.Amount, &rawAmount); err != nil {
		http.Error(w, `{"error":"Invalid amount"}`, http.StatusBadRequest)
		return
	}

	userID := ""
	if p, ok := PrincipalFrom(r.Context()); ok {
		userID = p.UserID
	}

	result, err := h.ledger.InitiatePayment(r.Context(), userID, rawAmount, req.PhoneNumber)
	if err != nil {
		var rejected *services.StkRejectedError
		switch {
		case errors.Is(err, services.ErrValidation):
			http.Error(w, `{"error":"`+err.Error()+`"}`, http.StatusBadRequest)
		case errors.As(err, &rejected):
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusBadRequest)
			json.NewEncoder(w).Encode(map[string]string{
				"ResponseCode": rejected.Code,
				"error":        "Safaricom Rejected",
			})
		default:
			log.Printf("Failed to initiate STK push: %v", err)
			http.Error(w, `{"error":"Failed to initiate payment"}`, http.StatusInternalServerError)
		}
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{
		"ResponseCode":      "0",
		"CustomerMessage":   "STK Push initiated successfully",
		"CheckoutRequestID": result.CheckoutRequestID,
	})
}

// StkCallback handles POST /api/stk-callback, the provider's asynchronous
// confirmation. Parse failures, unknown checkout IDs and replays are all
// absorbed; the wire response is the fixed success envelope either way.
func (h *MpesaHandler) StkCallback(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusMethodNotAllowed)
		json.NewEncoder(w).Encode(map[string]interface{}{"ResultCode": 1, "ResultDesc": "Invalid Method"})
		return
	}

	body, err := io.ReadAll(r.Body)
	if err != nil {
		log.Printf("Failed to read callback body: %v", err)
		body = nil
	}

	h.ledger.ApplyCallback(r.Context(), body)

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(callbackAck)
}

// CheckStatus handles GET /api/check-status?checkout_id=…
func (h *MpesaHandler) CheckStatus(w http.ResponseWriter, r *http.Request) {
	checkoutID := r.URL.Query().Get("checkout_id")
	if checkoutID == "" {
		http.Error(w, `{"error":"checkout_id is required"}`, http.StatusBadRequest)
		return
	}

	status, receipt, err := h.ledger.CheckStatus(r.Context(), checkoutID)
	if err != nil {
		if errors.Is(err, services.ErrNotFound) {
			http.Error(w, `{"error":"Transaction not found"}`, http.StatusNotFound)
			return
		}
		log.Printf("Failed to check status for checkout %s: %v", checkoutID, err)
		http.Error(w, `{"error":"Failed to check status"}`, http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"status": status, "receipt": receipt})
}

// PaymentHistory handles GET /api/payment-history: the caller's COMPLETED
// transactions, newest first.
func (h *MpesaHandler) PaymentHistory(w http.ResponseWriter, r *http.Request) {
	p, _ := PrincipalFrom(r.Context())

	txs, err := h.ledger.History(r.Context(), p.UserID)
	if err != nil {
		log.Printf("Failed to fetch payment history for user %s: %v", p.UserID, err)
		http.Error(w, `{"error":"Failed to fetch history"}`, http.StatusInternalServerError)
		return
	}

	history := make([]map[string]interface{}, 0, len(txs))
	for _, tx := range txs {
		history = append(history, map[string]interface{}{
			"id":      tx.ID.Hex(),
			"date":    tx.CreatedAt.Format("2006-01-02 15:04"),
			"amount":  tx.Amount,
			"receipt": tx.MpesaReceiptNumber,
			"phone":   tx.PhoneNumber,
		})
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(history)
}

// Payments handles GET /api/payments: the caller's confirmed payment records.
func (h *MpesaHandler) Payments(w http.ResponseWriter, r *http.Request) {
	p, _ := PrincipalFrom(r.Context())

	payments, err := h.ledger.Payments(r.Context(), p.UserID)
	if err != nil {
		log.Printf("Failed to fetch payments for user %s: %v", p.UserID, err)
		http.Error(w, `{"error":"Failed to fetch payments"}`, http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(payments)
}
