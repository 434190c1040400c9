package handlers

import (
	"errors"
	"net/http"

	"go.uber.org/zap"

	"kusina-order-service/internal/inventory"
	"kusina-order-service/internal/menu"
	"kusina-order-service/internal/storage"
	"kusina-order-service/internal/utils"
	"kusina-order-service/pkg/response"
)

// MenusList serves both the POS grid (available only) and the admin screen.
func (h *Handler) MenusList(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	availableOnly := r.URL.Query().Get("available") == "true"

	items, err := h.Menus.List(ctx, availableOnly)
	if err != nil {
		h.Logger.Error("menu list failed", zap.Error(err))
		response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to list menus")
		return
	}
	response.Success(w, items)
}

func (h *Handler) MenuCreate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var body menu.CreateInput
	if !decodeJSON(w, r, &body) {
		return
	}
	if body.Name == "" || body.Price < 0 {
		response.Error(w, http.StatusBadRequest, "VALIDATION_ERROR", "Menu name and a non-negative price are required")
		return
	}

	item, err := h.Menus.Create(ctx, body)
	if err != nil {
		var short *inventory.InsufficientStockError
		if errors.As(err, &short) {
			response.Error(w, http.StatusConflict, "INSUFFICIENT_STOCK", short.Error())
			return
		}
		if errors.Is(err, inventory.ErrItemNotFound) {
			response.Error(w, http.StatusBadRequest, "VALIDATION_ERROR", err.Error())
			return
		}
		h.Logger.Error("menu create failed", zap.Error(err))
		response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to create menu")
		return
	}
	h.sweepStock(ctx)
	response.Created(w, item, "Menu created")
}

func (h *Handler) MenuUpdate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := readPathString(r, "menuId")

	var body menu.UpdateInput
	if !decodeJSON(w, r, &body) {
		return
	}

	item, err := h.Menus.Update(ctx, id, body)
	if errors.Is(err, menu.ErrNotFound) {
		response.Error(w, http.StatusNotFound, "NOT_FOUND", "Menu not found")
		return
	}
	if err != nil {
		h.Logger.Error("menu update failed", zap.String("menuId", id), zap.Error(err))
		response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to update menu")
		return
	}
	response.Success(w, item)
}

func (h *Handler) MenuDelete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := readPathString(r, "menuId")

	if err := h.Menus.Delete(ctx, id); err != nil {
		if errors.Is(err, menu.ErrNotFound) {
			response.Error(w, http.StatusNotFound, "NOT_FOUND", "Menu not found")
			return
		}
		h.Logger.Error("menu delete failed", zap.String("menuId", id), zap.Error(err))
		response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to delete menu")
		return
	}
	response.Success(w, map[string]any{"deleted": true})
}

// MenuUploadImage stores the square grid thumbnail for a menu.
func (h *Handler) MenuUploadImage(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := readPathString(r, "menuId")

	if h.Objects == nil {
		response.Error(w, http.StatusServiceUnavailable, "STORAGE_DISABLED", "Object storage is not configured")
		return
	}
	if _, err := h.Menus.Get(ctx, id); errors.Is(err, menu.ErrNotFound) {
		response.Error(w, http.StatusNotFound, "NOT_FOUND", "Menu not found")
		return
	}

	data, err := h.readUploadedImage(r)
	if err != nil {
		response.Error(w, http.StatusBadRequest, "INVALID_FILE", err.Error())
		return
	}
	thumb, _, err := utils.MenuThumbnail(data, 512, 85)
	if err != nil {
		response.Error(w, http.StatusBadRequest, "INVALID_IMAGE", "Could not read the uploaded image")
		return
	}

	url, err := h.Objects.PutObject(ctx, storage.MenuImageKey(id), thumb, "image/jpeg")
	if err != nil {
		h.Logger.Error("menu image upload failed", zap.String("menuId", id), zap.Error(err))
		response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to store image")
		return
	}

	item, err := h.Menus.Update(ctx, id, menu.UpdateInput{ImageURL: &url})
	if err != nil {
		h.Logger.Error("menu image save failed", zap.String("menuId", id), zap.Error(err))
		response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to save image")
		return
	}
	response.Success(w, item)
}

type recipeBuildRequest struct {
	Servings int `json:"servings"`
}

// MenuRecipeBuild deducts the ingredients for a kitchen batch of the menu's
// recipe: prepping ten servings of a stew consumes ten recipes' worth of
// stock up front.
func (h *Handler) MenuRecipeBuild(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := readPathString(r, "menuId")

	var body recipeBuildRequest
	if !decodeJSON(w, r, &body) {
		return
	}
	if body.Servings <= 0 {
		response.Error(w, http.StatusBadRequest, "VALIDATION_ERROR", "Servings must be greater than zero")
		return
	}

	item, err := h.Menus.Get(ctx, id)
	if errors.Is(err, menu.ErrNotFound) {
		response.Error(w, http.StatusNotFound, "NOT_FOUND", "Menu not found")
		return
	}
	if err != nil {
		h.Logger.Error("menu load failed", zap.String("menuId", id), zap.Error(err))
		response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to load menu")
		return
	}
	if len(item.Ingredients) == 0 {
		response.Error(w, http.StatusBadRequest, "NO_RECIPE", "Menu has no recipe configured")
		return
	}

	reqs := inventory.ScaleRequirements(item.Ingredients, body.Servings)
	if err := h.Ledger.DeductForRecipeBuild(ctx, reqs); err != nil {
		var short *inventory.InsufficientStockError
		if errors.As(err, &short) {
			response.Error(w, http.StatusConflict, "INSUFFICIENT_STOCK", short.Error())
			return
		}
		h.Logger.Error("recipe build failed", zap.String("menuId", id), zap.Error(err))
		response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to deduct ingredients")
		return
	}

	h.sweepStock(ctx)

	response.Success(w, map[string]any{
		"menuId":   id,
		"servings": body.Servings,
	})
}
