package handlers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"go.uber.org/zap"

	"kusina-order-service/internal/delivery"
	"kusina-order-service/internal/inventory"
	"kusina-order-service/internal/notify"
	"kusina-order-service/internal/order"
	"kusina-order-service/pkg/response"
)

func (h *Handler) NotificationsList(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	pendingOnly := r.URL.Query().Get("pending") == "true"

	notifications, err := h.Notifications.List(ctx, pendingOnly)
	if err != nil {
		h.Logger.Error("notification list failed", zap.Error(err))
		response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to list notifications")
		return
	}
	response.Success(w, notifications)
}

func (h *Handler) NotificationMarkSeen(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := readPathString(r, "notificationId")

	if err := h.Notifications.MarkSeen(ctx, id); err != nil {
		if errors.Is(err, notify.ErrNotFound) {
			response.Error(w, http.StatusNotFound, "NOT_FOUND", "Notification not found")
			return
		}
		h.Logger.Error("mark seen failed", zap.String("notificationId", id), zap.Error(err))
		response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to update notification")
		return
	}
	response.Success(w, map[string]any{"seen": true})
}

// NotificationApprove resolves the proof and moves the matched order to
// Payment Approved. A proof left unlinked at submission is re-scored against
// the pending orders here, so an order that arrived after the proof can still
// be matched; a proof matching nothing cannot be approved. Approval never
// dispatches to the kitchen; that stays an explicit second action.
func (h *Handler) NotificationApprove(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := readPathString(r, "notificationId")

	n, err := h.Notifications.Get(ctx, id)
	if err != nil {
		writeNotificationError(w, err)
		return
	}

	orderNumber := n.OrderNumber
	if orderNumber == "" && n.Status == notify.StatusPending {
		pending, err := h.Orders.ListByStatus(ctx, order.StatusPendingPayment)
		if err != nil {
			h.Logger.Error("pending order list failed", zap.Error(err))
			response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to approve notification")
			return
		}
		matched, err := notify.BestMatch(pending, notify.ProofFromNotification(n))
		if errors.Is(err, notify.ErrNoMatchingOrder) {
			response.Error(w, http.StatusConflict, "NO_MATCHING_ORDER", "No pending order matches this payment proof")
			return
		}
		orderNumber = matched.ID.String()
		if err := h.Notifications.LinkOrder(ctx, id, orderNumber); err != nil {
			h.Logger.Error("notification link failed", zap.String("notificationId", id), zap.Error(err))
			response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to approve notification")
			return
		}
	}

	n, err = h.Notifications.Approve(ctx, id)
	if err != nil {
		writeNotificationError(w, err)
		return
	}

	if orderNumber != "" {
		if err := h.applyVerification(ctx, orderNumber, order.ApproveVerification{At: time.Now()}); err != nil {
			writeTransitionError(w, err)
			return
		}
		h.publishStatus(ctx, orderNumber, order.StatusPaymentApproved)
	}

	response.Success(w, n)
}

type declineRequest struct {
	Reason string `json:"reason"`
}

func (h *Handler) NotificationDecline(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := readPathString(r, "notificationId")

	var body declineRequest
	if !decodeJSON(w, r, &body) {
		return
	}

	n, err := h.Notifications.Decline(ctx, id, body.Reason)
	if err != nil {
		writeNotificationError(w, err)
		return
	}

	if n.OrderNumber != "" {
		if err := h.applyVerification(ctx, n.OrderNumber, order.DeclineVerification{
			Reason: body.Reason,
			At:     time.Now(),
		}); err != nil {
			writeTransitionError(w, err)
			return
		}
		h.publishStatus(ctx, n.OrderNumber, order.StatusPaymentDeclined)
	}

	response.Success(w, n)
}

// applyVerification loads, reduces and patches the order linked to a
// resolved notification.
func (h *Handler) applyVerification(ctx context.Context, orderNumber string, ev order.Event) error {
	existing, err := h.Orders.Get(ctx, orderNumber)
	if err != nil {
		return err
	}
	next, err := order.ApplyTransition(existing, ev)
	if err != nil {
		return err
	}

	status := next.Status
	patch := order.Patch{Status: &status}
	if next.ApprovedAt != nil {
		patch.ApprovedAt = next.ApprovedAt
	}
	if next.DeclinedAt != nil {
		patch.DeclinedAt = next.DeclinedAt
		patch.DeclineReason = &next.DeclineReason
	}
	return h.Orders.Upsert(ctx, orderNumber, patch)
}

// AdminOrderDispatch sends a payment-approved order to the kitchen, deducting
// inventory on the way. For delivery orders a courier can be booked
// separately once the kitchen accepts it.
func (h *Handler) AdminOrderDispatch(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	orderNumber := readPathString(r, "orderNumber")

	existing, err := h.Orders.Get(ctx, orderNumber)
	if errors.Is(err, order.ErrNotFound) {
		response.Error(w, http.StatusNotFound, "NOT_FOUND", "Order not found")
		return
	}
	if err != nil {
		h.Logger.Error("order load failed", zap.String("orderNumber", orderNumber), zap.Error(err))
		response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to load order")
		return
	}

	next, err := order.ApplyTransition(existing, order.DispatchToKitchen{At: time.Now()})
	if err != nil {
		writeTransitionError(w, err)
		return
	}

	reqs, err := h.Menus.RequirementsForItems(ctx, next.Items)
	if err != nil {
		h.Logger.Error("recipe expansion failed", zap.Error(err))
		response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to check inventory")
		return
	}
	if err := h.Ledger.ConsumeForOrder(ctx, orderNumber, reqs); err != nil {
		var short *inventory.InsufficientStockError
		if errors.As(err, &short) {
			response.Error(w, http.StatusConflict, "INSUFFICIENT_STOCK", short.Error())
			return
		}
		h.Logger.Error("inventory deduction failed", zap.String("orderNumber", orderNumber), zap.Error(err))
		response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to update inventory")
		return
	}

	status := next.Status
	if err := h.Orders.Upsert(ctx, orderNumber, order.Patch{
		Status:          &status,
		SentToKitchenAt: next.SentToKitchenAt,
	}); err != nil {
		h.Logger.Error("order dispatch failed", zap.String("orderNumber", orderNumber), zap.Error(err))
		response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to dispatch order")
		return
	}
	h.sweepStock(ctx)
	h.publishStatus(ctx, orderNumber, status)

	response.Success(w, orderPayload(next))
}

type bookDeliveryRequest struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Address   string  `json:"address"`
}

// AdminOrderBookDelivery quotes and books a courier for a dispatched delivery
// order, storing the booking reference on the record.
func (h *Handler) AdminOrderBookDelivery(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	orderNumber := readPathString(r, "orderNumber")

	var body bookDeliveryRequest
	if !decodeJSON(w, r, &body) {
		return
	}

	existing, err := h.Orders.Get(ctx, orderNumber)
	if errors.Is(err, order.ErrNotFound) {
		response.Error(w, http.StatusNotFound, "NOT_FOUND", "Order not found")
		return
	}
	if err != nil {
		h.Logger.Error("order load failed", zap.String("orderNumber", orderNumber), zap.Error(err))
		response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to load order")
		return
	}
	if existing.Type != order.TypeDelivery {
		response.Error(w, http.StatusBadRequest, "VALIDATION_ERROR", "Only delivery orders can book a courier")
		return
	}
	if existing.DeliveryRef != "" {
		response.Error(w, http.StatusConflict, "ALREADY_BOOKED", "A courier is already booked for this order")
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
	if err != nil || quote.Fallback {
		response.Error(w, http.StatusBadGateway, "COURIER_UNAVAILABLE", "Courier service is unavailable right now")
		return
	}

	booking, err := h.Delivery.Book(ctx, quote,
		h.Config.StoreName, h.Config.StorePhone,
		existing.CustomerName, existing.CustomerPhone)
	if err != nil {
		h.Logger.Error("courier booking failed", zap.String("orderNumber", orderNumber), zap.Error(err))
		response.Error(w, http.StatusBadGateway, "COURIER_UNAVAILABLE", "Courier booking failed")
		return
	}

	if err := h.Orders.Upsert(ctx, orderNumber, order.Patch{DeliveryRef: &booking.BookingRef}); err != nil {
		h.Logger.Error("delivery ref save failed", zap.String("orderNumber", orderNumber), zap.Error(err))
		response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to save booking")
		return
	}

	response.Success(w, map[string]any{
		"booking": booking,
		"quote":   quote,
	})
}

func writeNotificationError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, notify.ErrNotFound):
		response.Error(w, http.StatusNotFound, "NOT_FOUND", "Notification not found")
	case errors.Is(err, notify.ErrAlreadyResolved):
		response.Error(w, http.StatusConflict, "ALREADY_RESOLVED", "Notification has already been resolved")
	case errors.Is(err, notify.ErrReasonRequired):
		response.Error(w, http.StatusBadRequest, "VALIDATION_ERROR", "Decline reason is required")
	default:
		response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to resolve notification")
	}
}
