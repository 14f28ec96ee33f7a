package services

import (
	"bytes"
	"fmt"

	"github.com/jung-kurt/gofpdf"

	"github.com/carlvyper/rental-portal/internal/models"
)

// RenderReceipt produces the fixed-layout printable receipt for a completed
// transaction. Callers are expected to have resolved the transaction through
// an ownership-scoped lookup first.
func RenderReceipt(tx *models.MpesaTransaction, tenantName string) ([]byte, error) {
	if tx.Status != models.StatusCompleted {
		return nil, ErrNotFound
	}

	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.AddPage()

	pdf.SetFont("Helvetica", "B", 16)
	pdf.Cell(0, 10, "RENTAL PORTAL - OFFICIAL RECEIPT")
	pdf.Ln(12)
	pdf.SetLineWidth(0.5)
	pdf.Line(10, pdf.GetY(), 200, pdf.GetY())
	pdf.Ln(8)

	pdf.SetFont("Helvetica", "", 12)
	pdf.Cell(0, 8, fmt.Sprintf("Receipt No: %s", tx.MpesaReceiptNumber))
	pdf.Ln(8)
	pdf.Cell(0, 8, fmt.Sprintf("Date: %s", tx.CreatedAt.Format("02 Jan 2006")))
	pdf.Ln(8)
	pdf.Cell(0, 8, fmt.Sprintf("Tenant: %s", tenantName))
	pdf.Ln(8)
	pdf.Cell(0, 8, fmt.Sprintf("Amount: KES %d", tx.Amount))
	pdf.Ln(8)
	pdf.Cell(0, 8, fmt.Sprintf("Phone: %s", tx.PhoneNumber))
	pdf.Ln(12)
	pdf.Cell(0, 8, "Status: VERIFIED & PAID")

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("failed to render receipt: %v", err)
	}
	return buf.Bytes(), nil
}
