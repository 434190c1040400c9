package handlers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"go.uber.org/zap"

	"kusina-order-service/internal/inventory"
	"kusina-order-service/internal/order"
	"kusina-order-service/internal/queue"
	"kusina-order-service/internal/session"
	"kusina-order-service/pkg/response"
)

type startOrderRequest struct {
	SessionKey  string     `json:"sessionKey"`
	OrderType   order.Type `json:"orderType"`
	TableNumber string     `json:"tableNumber"`
	Pax         *int       `json:"pax"`
	// ProvisionalNumber is a locally minted identifier from a terminal that
	// could not reach the backend when the order was started.
	ProvisionalNumber string `json:"provisionalNumber"`
}

// POSOrderStart assigns an order number and opens a draft for the terminal.
// The record itself is not created until the cashier parks or pays the order.
func (h *Handler) POSOrderStart(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var body startOrderRequest
	if !decodeJSON(w, r, &body) {
		return
	}
	if body.SessionKey == "" {
		response.Error(w, http.StatusBadRequest, "VALIDATION_ERROR", "Session key is required")
		return
	}
	switch body.OrderType {
	case order.TypeDineIn, order.TypeTakeOut, order.TypeDelivery:
	default:
		response.Error(w, http.StatusBadRequest, "VALIDATION_ERROR", "Unknown order type")
		return
	}

	draft := session.Draft{
		Type:        body.OrderType,
		TableNumber: body.TableNumber,
		Pax:         body.Pax,
	}
	if body.ProvisionalNumber != "" {
		draft.OrderNumber = body.ProvisionalNumber
		draft.Provisional = true
	} else {
		number, err := h.nextOrderNumber(ctx)
		if err != nil {
			h.Logger.Error("order number allocation failed", zap.Error(err))
			response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to start order")
			return
		}
		draft.OrderNumber = number
	}

	if err := h.Sessions.Save(ctx, body.SessionKey, draft); err != nil {
		h.Logger.Error("draft save failed", zap.Error(err))
		response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to start order")
		return
	}

	response.Created(w, draft, "Order started")
}

func (h *Handler) POSDraftGet(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	key := readPathString(r, "sessionKey")

	draft, err := h.Sessions.Load(ctx, key)
	if errors.Is(err, session.ErrNoDraft) {
		response.Error(w, http.StatusNotFound, "NOT_FOUND", "No draft for this session")
		return
	}
	if err != nil {
		h.Logger.Error("draft load failed", zap.Error(err))
		response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to load draft")
		return
	}
	response.Success(w, draft)
}

func (h *Handler) POSDraftSave(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	key := readPathString(r, "sessionKey")

	var draft session.Draft
	if !decodeJSON(w, r, &draft) {
		return
	}
	if err := h.Sessions.Save(ctx, key, draft); err != nil {
		h.Logger.Error("draft save failed", zap.Error(err))
		response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to save draft")
		return
	}
	response.Success(w, draft)
}

func (h *Handler) POSDraftClear(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	key := readPathString(r, "sessionKey")

	if err := h.Sessions.Clear(ctx, key); err != nil {
		h.Logger.Error("draft clear failed", zap.Error(err))
		response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to clear draft")
		return
	}
	response.Success(w, map[string]any{"cleared": true})
}

type laterRequest struct {
	SessionKey string `json:"sessionKey"`
	session.Draft
}

// POSOrderLater parks the draft as a Pending Payment record: the "Later"
// button. The draft body wins over whatever was stored server-side.
func (h *Handler) POSOrderLater(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	orderNumber := readPathString(r, "orderNumber")

	var body laterRequest
	if !decodeJSON(w, r, &body) {
		return
	}
	body.Draft.OrderNumber = orderNumber

	o, err := order.ApplyTransition(body.Draft.ToOrder(), order.SaveForLater{
		TaxAmount:       h.Config.OrderTaxAmount,
		DiscountPercent: h.Config.DiscountPercent,
		At:              time.Now(),
	})
	if err != nil {
		writeTransitionError(w, err)
		return
	}

	if err := h.upsertFromOrder(ctx, o); err != nil {
		h.Logger.Error("order park failed", zap.String("orderNumber", orderNumber), zap.Error(err))
		response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to save order")
		return
	}
	if body.SessionKey != "" {
		_ = h.Sessions.Clear(ctx, body.SessionKey)
	}
	h.publishStatus(ctx, orderNumber, o.Status)

	response.Success(w, orderPayload(o))
}

type confirmPaymentRequest struct {
	SessionKey string        `json:"sessionKey"`
	Payment    order.Payment `json:"payment"`
	session.Draft
}

// POSOrderConfirmPayment takes payment and sends the order to the kitchen:
// the "Proceed" button. Inventory is deducted before the record flips, and a
// deduction failure aborts the whole confirmation.
func (h *Handler) POSOrderConfirmPayment(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	orderNumber := readPathString(r, "orderNumber")

	var body confirmPaymentRequest
	if !decodeJSON(w, r, &body) {
		return
	}
	body.Draft.OrderNumber = orderNumber

	o, err := order.ApplyTransition(body.Draft.ToOrder(), order.ConfirmPayment{
		Payment:         body.Payment,
		TaxAmount:       h.Config.OrderTaxAmount,
		DiscountPercent: h.Config.DiscountPercent,
		ReferenceMin:    h.Config.POSReferenceMinLength,
		At:              time.Now(),
	})
	if err != nil {
		writeTransitionError(w, err)
		return
	}

	reqs, err := h.Menus.RequirementsForItems(ctx, o.Items)
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

	if err := h.upsertFromOrder(ctx, o); err != nil {
		h.Logger.Error("order confirm failed", zap.String("orderNumber", orderNumber), zap.Error(err))
		response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to save order")
		return
	}
	if body.SessionKey != "" {
		_ = h.Sessions.Clear(ctx, body.SessionKey)
	}
	h.sweepStock(ctx)
	h.publishStatus(ctx, orderNumber, o.Status)

	response.Success(w, orderPayload(o))
}

type cancelRequest struct {
	SessionKey string `json:"sessionKey"`
}

// POSOrderCancel is the "Back" compensation: restore any deducted inventory,
// clear the terminal draft, then delete the record. Restoration is idempotent,
// so a retried cancel after a timeout cannot double-credit stock. Only a
// failed restore blocks the cancellation; the delete is best-effort.
func (h *Handler) POSOrderCancel(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	orderNumber := readPathString(r, "orderNumber")

	var body cancelRequest
	decodeOptionalJSON(r, &body)

	clearDraft := func() {
		if body.SessionKey == "" {
			return
		}
		if err := h.Sessions.Clear(ctx, body.SessionKey); err != nil {
			h.Logger.Warn("draft clear failed", zap.String("sessionKey", body.SessionKey), zap.Error(err))
		}
	}

	existing, err := h.Orders.Get(ctx, orderNumber)
	if errors.Is(err, order.ErrNotFound) {
		// Nothing persisted yet; only the draft needs to go.
		clearDraft()
		response.Success(w, map[string]any{"cancelled": true})
		return
	}
	if err != nil {
		h.Logger.Error("order load failed", zap.String("orderNumber", orderNumber), zap.Error(err))
		response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to cancel order")
		return
	}

	if existing.Status == order.StatusInKitchen {
		reqs, err := h.Menus.RequirementsForItems(ctx, existing.Items)
		if err != nil {
			h.Logger.Error("recipe expansion failed", zap.Error(err))
			response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to restore inventory")
			return
		}
		if err := h.Ledger.RestoreForOrder(ctx, orderNumber, reqs); err != nil {
			h.Logger.Error("inventory restore failed", zap.String("orderNumber", orderNumber), zap.Error(err))
			response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to restore inventory")
			return
		}
	}

	clearDraft()

	if err := h.Orders.Delete(ctx, orderNumber); err != nil && !errors.Is(err, order.ErrNotFound) {
		// Stock is already restored and the session reset; a stuck row is an
		// operational cleanup, not a reason to trap the cashier.
		h.Logger.Error("order delete failed", zap.String("orderNumber", orderNumber), zap.Error(err))
	}
	h.publishStatus(ctx, orderNumber, order.StatusCancelled)

	response.Success(w, map[string]any{"cancelled": true})
}

type resumeRequest struct {
	SessionKey string `json:"sessionKey"`
}

// POSOrderResume loads a parked order back into the terminal draft in edit
// mode.
func (h *Handler) POSOrderResume(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	orderNumber := readPathString(r, "orderNumber")

	var body resumeRequest
	if !decodeJSON(w, r, &body) {
		return
	}
	if body.SessionKey == "" {
		response.Error(w, http.StatusBadRequest, "VALIDATION_ERROR", "Session key is required")
		return
	}

	existing, err := h.Orders.Get(ctx, orderNumber)
	if errors.Is(err, order.ErrNotFound) {
		response.Error(w, http.StatusNotFound, "NOT_FOUND", "Order not found")
		return
	}
	if err != nil {
		h.Logger.Error("order load failed", zap.String("orderNumber", orderNumber), zap.Error(err))
		response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to resume order")
		return
	}
	if existing.Status != order.StatusPendingPayment {
		response.Error(w, http.StatusConflict, "NOT_RESUMABLE", "Only pending orders can be resumed")
		return
	}

	draft := session.DraftFromOrder(existing)
	if err := h.Sessions.Save(ctx, body.SessionKey, draft); err != nil {
		h.Logger.Error("draft save failed", zap.Error(err))
		response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to resume order")
		return
	}
	response.Success(w, draft)
}

func (h *Handler) OrdersList(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	status := order.Status(r.URL.Query().Get("status"))
	if status == "" {
		status = order.StatusPendingPayment
	}

	orders, err := h.Orders.ListByStatus(ctx, status)
	if err != nil {
		h.Logger.Error("order list failed", zap.Error(err))
		response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to list orders")
		return
	}

	payloads := make([]map[string]any, 0, len(orders))
	for _, o := range orders {
		payloads = append(payloads, orderPayload(o))
	}
	response.Success(w, payloads)
}

func (h *Handler) OrderGet(w http.ResponseWriter, r *http.Request) {
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
	response.Success(w, orderPayload(o))
}

// OrderComplete closes out a kitchen order.
func (h *Handler) OrderComplete(w http.ResponseWriter, r *http.Request) {
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

	o, err := order.ApplyTransition(existing, order.Complete{At: time.Now()})
	if err != nil {
		writeTransitionError(w, err)
		return
	}

	status := o.Status
	if err := h.Orders.Upsert(ctx, orderNumber, order.Patch{Status: &status}); err != nil {
		h.Logger.Error("order complete failed", zap.String("orderNumber", orderNumber), zap.Error(err))
		response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to complete order")
		return
	}
	h.publishStatus(ctx, orderNumber, status)

	response.Success(w, orderPayload(o))
}

// upsertFromOrder writes a full field-level patch from a reduced order value.
func (h *Handler) upsertFromOrder(ctx context.Context, o order.Order) error {
	status := o.Status
	orderType := o.Type
	patch := order.Patch{
		Status:        &status,
		Type:          &orderType,
		TableNumber:   &o.TableNumber,
		Pax:           o.Pax,
		Items:         o.Items,
		Subtotal:      &o.Subtotal,
		Tax:           &o.Tax,
		Total:         &o.Total,
		CustomerName:  &o.CustomerName,
		CustomerPhone: &o.CustomerPhone,
	}
	if o.Discount != nil {
		patch.Discount = o.Discount
	} else {
		patch.ClearDiscount = true
	}
	if o.PaymentMethod != "" {
		method := o.PaymentMethod
		patch.PaymentMethod = &method
	}
	if o.Payment != nil {
		patch.Payment = o.Payment
	}
	if o.SentToKitchenAt != nil {
		patch.SentToKitchenAt = o.SentToKitchenAt
	}
	return h.Orders.Upsert(ctx, o.ID.String(), patch)
}

// sweepStock runs after any deduction: refresh menu availability and flag
// depleted items to the admin alert stream. Both halves are best-effort.
func (h *Handler) sweepStock(ctx context.Context) {
	if _, err := h.Menus.SweepAvailability(ctx, h.Ledger); err != nil {
		h.Logger.Warn("availability sweep failed", zap.Error(err))
	}
	low, err := h.Ledger.LowStockItems(ctx)
	if err != nil {
		h.Logger.Warn("low stock check failed", zap.Error(err))
		return
	}
	if len(low) == 0 {
		return
	}
	names := make([]string, 0, len(low))
	for _, item := range low {
		names = append(names, item.Name)
	}
	if err := queue.PublishStockDepleted(ctx, h.Queue, names); err != nil {
		h.Logger.Warn("stock alert publish failed", zap.Error(err))
	}
}

func (h *Handler) publishStatus(ctx context.Context, orderNumber string, status order.Status) {
	if err := queue.PublishOrderStatusUpdated(ctx, h.Queue, orderNumber, string(status)); err != nil {
		h.Logger.Warn("status event publish failed",
			zap.String("orderNumber", orderNumber), zap.Error(err))
	}
}

func writeTransitionError(w http.ResponseWriter, err error) {
	var verr *order.ValidationError
	if errors.As(err, &verr) {
		response.Error(w, http.StatusBadRequest, "VALIDATION_ERROR", verr.Error())
		return
	}
	switch {
	case errors.Is(err, order.ErrEmptyCart),
		errors.Is(err, order.ErrMissingOrderID),
		errors.Is(err, order.ErrMissingHolder),
		errors.Is(err, order.ErrReasonRequired):
		response.Error(w, http.StatusBadRequest, "VALIDATION_ERROR", err.Error())
	case errors.Is(err, order.ErrNotAwaitingReview), errors.Is(err, order.ErrNotApproved):
		response.Error(w, http.StatusConflict, "INVALID_STATE", err.Error())
	default:
		response.Error(w, http.StatusConflict, "INVALID_STATE", err.Error())
	}
}

func orderPayload(o order.Order) map[string]any {
	payload := map[string]any{
		"orderNumber": o.ID.String(),
		"provisional": o.ID.Provisional(),
		"orderType":   string(o.Type),
		"items":       o.Items,
		"subtotal":    o.Subtotal,
		"tax":         o.Tax,
		"total":       o.Total,
		"status":      string(o.Status),
	}
	if o.ShowsTable() {
		payload["tableNumber"] = o.TableNumber
		payload["pax"] = o.PaxLabel()
	}
	if o.Discount != nil {
		payload["discount"] = o.Discount
	}
	if o.PaymentMethod != "" {
		payload["paymentMethod"] = string(o.PaymentMethod)
	}
	if o.Payment != nil {
		payload["payment"] = o.Payment
	}
	if o.CustomerName != "" {
		payload["customerName"] = o.CustomerName
	}
	if o.CustomerPhone != "" {
		payload["customerPhone"] = o.CustomerPhone
	}
	if o.DeliveryRef != "" {
		payload["deliveryRef"] = o.DeliveryRef
	}
	if o.DeclineReason != "" {
		payload["declineReason"] = o.DeclineReason
	}
	payload["updatedAt"] = o.UpdatedAt
	if o.SentToKitchenAt != nil {
		payload["sentToKitchenAt"] = o.SentToKitchenAt
	}
	return payload
}
