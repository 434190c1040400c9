package handlers

import (
	"errors"
	"net/http"

	"go.uber.org/zap"

	"kusina-order-service/internal/inventory"
	"kusina-order-service/pkg/response"
)

func (h *Handler) InventoryList(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	items, err := h.Ledger.ListItems(ctx)
	if err != nil {
		h.Logger.Error("inventory list failed", zap.Error(err))
		response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to list inventory")
		return
	}
	response.Success(w, items)
}

type inventoryCreateRequest struct {
	Name         string  `json:"name"`
	Quantity     float64 `json:"quantity"`
	Unit         string  `json:"unit"`
	PiecesPerBox float64 `json:"piecesPerBox"`
}

func (h *Handler) InventoryCreate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var body inventoryCreateRequest
	if !decodeJSON(w, r, &body) {
		return
	}
	if body.Name == "" || body.Quantity < 0 {
		response.Error(w, http.StatusBadRequest, "VALIDATION_ERROR", "Item name and a non-negative quantity are required")
		return
	}

	item, err := h.Ledger.CreateItem(ctx, body.Name, body.Quantity, body.Unit, body.PiecesPerBox)
	if err != nil {
		response.Error(w, http.StatusBadRequest, "VALIDATION_ERROR", err.Error())
		return
	}
	response.Created(w, item, "Inventory item created")
}

type receiveStockRequest struct {
	Amount float64 `json:"amount"`
	Unit   string  `json:"unit"`
}

func (h *Handler) InventoryReceive(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := readPathString(r, "itemId")

	var body receiveStockRequest
	if !decodeJSON(w, r, &body) {
		return
	}
	if body.Amount <= 0 {
		response.Error(w, http.StatusBadRequest, "VALIDATION_ERROR", "Amount must be greater than zero")
		return
	}

	item, err := h.Ledger.ReceiveStock(ctx, id, body.Amount, body.Unit)
	if errors.Is(err, inventory.ErrItemNotFound) {
		response.Error(w, http.StatusNotFound, "NOT_FOUND", "Inventory item not found")
		return
	}
	if err != nil {
		response.Error(w, http.StatusBadRequest, "VALIDATION_ERROR", err.Error())
		return
	}
	response.Success(w, item)
}

func (h *Handler) InventoryDelete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := readPathString(r, "itemId")

	if err := h.Ledger.DeleteItem(ctx, id); err != nil {
		if errors.Is(err, inventory.ErrItemNotFound) {
			response.Error(w, http.StatusNotFound, "NOT_FOUND", "Inventory item not found")
			return
		}
		h.Logger.Error("inventory delete failed", zap.String("itemId", id), zap.Error(err))
		response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to delete item")
		return
	}
	response.Success(w, map[string]any{"deleted": true})
}
