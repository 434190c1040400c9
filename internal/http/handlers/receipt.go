package handlers

import (
	"bytes"
	"errors"
	"fmt"
	"net/http"
	"regexp"
	"strings"

	"github.com/phpdave11/gofpdf"
	"go.uber.org/zap"

	"kusina-order-service/internal/order"
	"kusina-order-service/internal/storage"
	"kusina-order-service/pkg/response"
)

// OrderReceiptPDF streams a printable receipt for a paid order.
func (h *Handler) OrderReceiptPDF(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	orderNumber := readPathString(r, "orderNumber")

	o, err := h.Orders.Get(ctx, orderNumber)
	if errors.Is(err, order.ErrNotFound) {
		response.Error(w, http.StatusNotFound, "NOT_FOUND", "Order not found")
		return
	}
	if err != nil {
		h.Logger.Error("order load failed", zap.String("orderNumber", orderNumber), zap.Error(err))
		response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to load order")
		return
	}

	buf, err := h.renderReceiptPDF(o)
	if err != nil {
		h.Logger.Error("receipt render failed", zap.String("orderNumber", orderNumber), zap.Error(err))
		response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to generate receipt")
		return
	}

	filename := fmt.Sprintf("receipt_%s.pdf", sanitizeFilename(orderNumber))
	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", fmt.Sprintf("inline; filename=%q", filename))
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}

// OrderReceiptArchive renders the receipt and files it in the object store,
// returning the public URL.
func (h *Handler) OrderReceiptArchive(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	orderNumber := readPathString(r, "orderNumber")

	o, err := h.Orders.Get(ctx, orderNumber)
	if errors.Is(err, order.ErrNotFound) {
		response.Error(w, http.StatusNotFound, "NOT_FOUND", "Order not found")
		return
	}
	if err != nil {
		h.Logger.Error("order load failed", zap.String("orderNumber", orderNumber), zap.Error(err))
		response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to load order")
		return
	}

	if h.Objects == nil {
		response.Error(w, http.StatusServiceUnavailable, "STORAGE_DISABLED", "Object storage is not configured")
		return
	}

	buf, err := h.renderReceiptPDF(o)
	if err != nil {
		h.Logger.Error("receipt render failed", zap.String("orderNumber", orderNumber), zap.Error(err))
		response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to generate receipt")
		return
	}

	url, err := h.Objects.PutObject(ctx, storage.ReceiptKey(orderNumber), buf.Bytes(), "application/pdf")
	if err != nil {
		h.Logger.Error("receipt archive failed", zap.String("orderNumber", orderNumber), zap.Error(err))
		response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to archive receipt")
		return
	}
	response.Success(w, map[string]any{"url": url})
}

func (h *Handler) renderReceiptPDF(o order.Order) (*bytes.Buffer, error) {
	peso := func(v float64) string { return fmt.Sprintf("PHP %.2f", v) }

	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(12, 12, 12)
	pdf.AddPage()
	pdf.SetFont("Arial", "B", 14)
	pdf.CellFormat(0, 8, h.Config.StoreName, "", 1, "C", false, 0, "")

	pdf.SetFont("Arial", "", 10)
	if h.Config.StoreAddress != "" {
		pdf.CellFormat(0, 5, h.Config.StoreAddress, "", 1, "C", false, 0, "")
	}
	if h.Config.StorePhone != "" {
		pdf.CellFormat(0, 5, h.Config.StorePhone, "", 1, "C", false, 0, "")
	}

	pdf.Ln(2)
	pdf.SetFont("Arial", "B", 11)
	pdf.CellFormat(0, 6, fmt.Sprintf("Order %s", o.ID.String()), "", 1, "C", false, 0, "")
	pdf.SetFont("Arial", "", 9)
	pdf.CellFormat(0, 5, string(o.Type), "", 1, "C", false, 0, "")
	if o.ShowsTable() {
		pdf.CellFormat(0, 5, fmt.Sprintf("Table %s / Pax %s", o.TableNumber, o.PaxLabel()), "", 1, "C", false, 0, "")
	}
	if !o.CreatedAt.IsZero() {
		pdf.CellFormat(0, 5, fmt.Sprintf("Placed: %s", o.CreatedAt.Format("2006-01-02 15:04")), "", 1, "C", false, 0, "")
	}

	pdf.Ln(3)
	pdf.SetFont("Arial", "B", 10)
	pdf.CellFormat(0, 6, "Items", "B", 1, "L", false, 0, "")
	pdf.SetFont("Arial", "", 9)
	for _, item := range o.Items {
		qty := item.Quantity
		if qty <= 0 {
			qty = 1
		}
		pdf.CellFormat(120, 5, fmt.Sprintf("%dx %s", qty, item.Name), "", 0, "L", false, 0, "")
		pdf.CellFormat(0, 5, peso(item.LineTotal), "", 1, "R", false, 0, "")
	}

	pdf.Ln(2)
	pdf.SetFont("Arial", "B", 10)
	pdf.CellFormat(0, 6, "Totals", "B", 1, "L", false, 0, "")
	pdf.SetFont("Arial", "", 9)
	pdf.CellFormat(0, 5, fmt.Sprintf("Subtotal: %s", peso(o.Subtotal)), "", 1, "L", false, 0, "")
	pdf.CellFormat(0, 5, fmt.Sprintf("Tax: %s", peso(o.Tax)), "", 1, "L", false, 0, "")
	if o.Discount != nil {
		label := string(o.Discount.Type)
		if o.Discount.HolderName != "" {
			label = fmt.Sprintf("%s - %s", label, o.Discount.HolderName)
		}
		pdf.CellFormat(0, 5, fmt.Sprintf("Discount (%s): -%s", label, peso(o.Discount.Amount)), "", 1, "L", false, 0, "")
	}
	pdf.SetFont("Arial", "B", 11)
	pdf.CellFormat(0, 6, fmt.Sprintf("Total: %s", peso(o.Total)), "", 1, "L", false, 0, "")

	if o.Payment != nil {
		pdf.Ln(2)
		pdf.SetFont("Arial", "", 9)
		pdf.CellFormat(0, 5, fmt.Sprintf("Payment: %s", o.Payment.Method), "", 1, "L", false, 0, "")
		if o.Payment.Method == order.PaymentCash {
			pdf.CellFormat(0, 5, fmt.Sprintf("Received: %s", peso(o.Payment.AmountReceived)), "", 1, "L", false, 0, "")
			pdf.CellFormat(0, 5, fmt.Sprintf("Change: %s", peso(o.Payment.Change)), "", 1, "L", false, 0, "")
		} else if o.Payment.ReferenceNumber != "" {
			pdf.CellFormat(0, 5, fmt.Sprintf("Reference: %s", o.Payment.ReferenceNumber), "", 1, "L", false, 0, "")
		}
	}

	pdf.Ln(4)
	pdf.SetFont("Arial", "I", 8)
	pdf.CellFormat(0, 5, "Thank you for dining with us!", "", 1, "C", false, 0, "")

	var out bytes.Buffer
	if err := pdf.Output(&out); err != nil {
		return nil, err
	}
	return &out, nil
}

func sanitizeFilename(value string) string {
	re := regexp.MustCompile(`[^a-zA-Z0-9_-]+`)
	clean := re.ReplaceAllString(value, "_")
	return strings.Trim(clean, "_")
}
