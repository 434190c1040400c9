package handlers

import (
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"kusina-order-service/internal/delivery"
	"kusina-order-service/internal/notify"
	"kusina-order-service/internal/order"
	"kusina-order-service/internal/queue"
	"kusina-order-service/internal/storage"
	"kusina-order-service/internal/utils"
	"kusina-order-service/pkg/response"
)

type deliveryQuoteRequest struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Address   string  `json:"address"`
}

func (h *Handler) PublicDeliveryQuote(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var body deliveryQuoteRequest
	if !decodeJSON(w, r, &body) {
		return
	}

	pickup := delivery.Stop{
		Latitude:  h.Config.StoreLatitude,
		Longitude: h.Config.StoreLongitude,
		Address:   h.Config.StoreAddress,
	}
	dropoff := delivery.Stop{
		Latitude:  body.Latitude,
		Longitude: body.Longitude,
		Address:   body.Address,
	}

	quote, err := h.Delivery.GetQuote(ctx, pickup, dropoff)
	if errors.Is(err, delivery.ErrInvalidCoordinates) {
		response.Error(w, http.StatusBadRequest, "INVALID_COORDS", "Valid latitude and longitude are required")
		return
	}
	if err != nil {
		h.Logger.Error("delivery quote failed", zap.Error(err))
		response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to quote delivery")
		return
	}
	response.Success(w, quote)
}

type publicOrderRequest struct {
	Items         []order.LineItem    `json:"items"`
	CustomerName  string              `json:"customerName"`
	CustomerPhone string              `json:"customerPhone"`
	Address       string              `json:"address"`
	Latitude      float64             `json:"latitude"`
	Longitude     float64             `json:"longitude"`
	PaymentMethod order.PaymentMethod `json:"paymentMethod"`
}

// PublicOrderCreate places a delivery order from the public page. It parks in
// Pending Payment until a proof is submitted and approved.
func (h *Handler) PublicOrderCreate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var body publicOrderRequest
	if !decodeJSON(w, r, &body) {
		return
	}
	if len(body.Items) == 0 {
		response.Error(w, http.StatusBadRequest, "VALIDATION_ERROR", "Order must have at least one item")
		return
	}
	if strings.TrimSpace(body.CustomerName) == "" || strings.TrimSpace(body.CustomerPhone) == "" {
		response.Error(w, http.StatusBadRequest, "VALIDATION_ERROR", "Customer name and phone are required")
		return
	}

	number, err := h.nextOrderNumber(ctx)
	if err != nil {
		h.Logger.Error("order number allocation failed", zap.Error(err))
		response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to create order")
		return
	}

	o := order.Order{
		ID:            order.PersistedID(number),
		Type:          order.TypeDelivery,
		Items:         body.Items,
		CustomerName:  strings.TrimSpace(body.CustomerName),
		CustomerPhone: strings.TrimSpace(body.CustomerPhone),
		PaymentMethod: body.PaymentMethod,
	}

	o, err = order.ApplyTransition(o, order.SaveForLater{
		TaxAmount:       h.Config.OrderTaxAmount,
		DiscountPercent: h.Config.DiscountPercent,
		At:              time.Now(),
	})
	if err != nil {
		writeTransitionError(w, err)
		return
	}

	if err := h.Orders.Create(ctx, o); err != nil {
		h.Logger.Error("order create failed", zap.String("orderNumber", number), zap.Error(err))
		response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to create order")
		return
	}
	h.publishStatus(ctx, number, o.Status)

	payload := orderPayload(o)

	// Quote the courier leg alongside; a failed quote degrades to the flat
	// fallback fee rather than blocking the order.
	quote, qErr := h.Delivery.GetQuote(ctx,
		delivery.Stop{Latitude: h.Config.StoreLatitude, Longitude: h.Config.StoreLongitude, Address: h.Config.StoreAddress},
		delivery.Stop{Latitude: body.Latitude, Longitude: body.Longitude, Address: body.Address},
	)
	if qErr == nil {
		payload["deliveryQuote"] = quote
	}

	response.Created(w, payload, "Order created")
}

// PublicProofSubmit takes a payment proof from the public page: reference
// details as form fields or JSON, plus the receipt screenshot. The proof is
// matched to a pending order by a weighted score; an unmatchable proof is
// still recorded for manual review.
func (h *Handler) PublicProofSubmit(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	isMultipart := strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data")

	var proof notify.Proof
	if isMultipart {
		proof = notify.Proof{
			Reference:     strings.TrimSpace(r.FormValue("referenceNumber")),
			CustomerName:  strings.TrimSpace(r.FormValue("customerName")),
			CustomerPhone: strings.TrimSpace(r.FormValue("customerPhone")),
			PaymentMethod: order.PaymentMethod(strings.TrimSpace(r.FormValue("paymentMethod"))),
		}
		if amount, err := strconv.ParseFloat(r.FormValue("amount"), 64); err == nil {
			proof.Amount = amount
		}
	} else if !decodeJSON(w, r, &proof) {
		return
	}

	if !validateProofReference(proof.Reference, h.Config.ProofReferenceMinLength) {
		response.Error(w, http.StatusBadRequest, "VALIDATION_ERROR",
			fmt.Sprintf("Reference number must be at least %d characters, letters and digits only", h.Config.ProofReferenceMinLength))
		return
	}

	var raw []byte
	if isMultipart {
		data, err := h.readUploadedImage(r)
		if err != nil {
			response.Error(w, http.StatusBadRequest, "VALIDATION_ERROR", "A receipt image is required")
			return
		}
		raw = data
	} else {
		b64 := proof.ImageBase64
		if idx := strings.Index(b64, ","); idx >= 0 && strings.HasPrefix(b64, "data:") {
			b64 = b64[idx+1:]
		}
		data, err := base64.StdEncoding.DecodeString(b64)
		if err != nil || len(data) == 0 {
			response.Error(w, http.StatusBadRequest, "VALIDATION_ERROR", "A receipt image is required")
			return
		}
		raw = data
	}
	proof.ImageBase64 = ""

	normalized, _, err := utils.NormalizeProofImage(raw, 1600, 85)
	if err != nil {
		response.Error(w, http.StatusBadRequest, "INVALID_IMAGE", "Could not read the uploaded image")
		return
	}

	// The record must survive even when the object store is down, so a failed
	// upload keeps the image inline as a data URL.
	if h.Objects != nil {
		url, err := h.Objects.PutObject(ctx, storage.ProofKey(""), normalized, "image/jpeg")
		if err == nil {
			proof.ImageURL = url
		} else {
			h.Logger.Warn("proof upload failed, keeping image inline", zap.Error(err))
		}
	}
	if proof.ImageURL == "" {
		proof.ImageURL = "data:image/jpeg;base64," + base64.StdEncoding.EncodeToString(normalized)
	}

	pending, err := h.Orders.ListByStatus(ctx, order.StatusPendingPayment)
	if err != nil {
		h.Logger.Error("pending order list failed", zap.Error(err))
		response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to submit proof")
		return
	}

	matchedNumber := ""
	matched, err := notify.BestMatch(pending, proof)
	if err == nil {
		matchedNumber = matched.ID.String()
	} else if !errors.Is(err, notify.ErrNoMatchingOrder) {
		h.Logger.Error("proof matching failed", zap.Error(err))
		response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to submit proof")
		return
	}

	n, err := h.Notifications.Create(ctx, proof, matchedNumber)
	if err != nil {
		h.Logger.Error("notification create failed", zap.Error(err))
		response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to submit proof")
		return
	}

	if err := queue.PublishProofSubmitted(ctx, h.Queue, n.ID, matchedNumber); err != nil {
		h.Logger.Warn("proof event publish failed", zap.String("notificationId", n.ID), zap.Error(err))
	}

	response.Created(w, map[string]any{
		"notificationId": n.ID,
		"orderNumber":    matchedNumber,
		"matched":        matchedNumber != "",
	}, "Payment proof received")
}
