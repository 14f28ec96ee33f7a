package handlers

import (
	"errors"
	"fmt"
	"log"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/carlvyper/rental-portal/internal/services"
)

type ReceiptHandler struct {
	ledger *services.LedgerService
}

func NewReceiptHandler(ledger *services.LedgerService) *ReceiptHandler {
	return &ReceiptHandler{ledger: ledger}
}

// DownloadReceipt handles GET /api/download-receipt/{transactionID}. The
// lookup is scoped to the caller: a transaction that exists but belongs to
// another tenant answers 404, never 403, so existence is not leaked.
func (h *ReceiptHandler) DownloadReceipt(w http.ResponseWriter, r *http.Request) {
	p, _ := PrincipalFrom(r.Context())
	transactionID := mux.Vars(r)["transactionID"]

	tx, err := h.ledger.OwnedTransaction(r.Context(), transactionID, p.UserID)
	if err != nil {
		if errors.Is(err, services.ErrNotFound) {
			http.Error(w, `{"error":"Receipt not found"}`, http.StatusNotFound)
			return
		}
		log.Printf("Failed to fetch transaction %s: %v", transactionID, err)
		http.Error(w, `{"error":"Failed to fetch receipt"}`, http.StatusInternalServerError)
		return
	}

	pdf, err := services.RenderReceipt(tx, p.Username)
	if err != nil {
		if errors.Is(err, services.ErrNotFound) {
			http.Error(w, `{"error":"Receipt not found"}`, http.StatusNotFound)
			return
		}
		log.Printf("Failed to render receipt for transaction %s: %v", transactionID, err)
		http.Error(w, `{"error":"Failed to render receipt"}`, http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="Receipt_%s.pdf"`, tx.MpesaReceiptNumber))
	w.Write(pdf)
}
