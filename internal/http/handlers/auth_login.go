package handlers

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"kusina-order-service/internal/auth"
	"kusina-order-service/pkg/response"
)

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

func (h *Handler) AuthLogin(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var body loginRequest
	if !decodeJSON(w, r, &body) {
		return
	}
	body.Username = strings.TrimSpace(body.Username)
	if body.Username == "" || body.Password == "" {
		response.Error(w, http.StatusBadRequest, "VALIDATION_ERROR", "Username and password are required")
		return
	}

	user, err := h.Users.Authenticate(ctx, body.Username, body.Password)
	if errors.Is(err, auth.ErrInvalidCredentials) {
		response.Error(w, http.StatusUnauthorized, "INVALID_CREDENTIALS", "Invalid username or password")
		return
	}
	if err != nil {
		h.Logger.Error("login failed", zap.Error(err))
		response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Login failed")
		return
	}

	ttl := time.Duration(h.Config.JWTExpirySeconds) * time.Second
	token, err := auth.IssueAccessToken(user.ID, user.Username, user.Name, user.Role, h.Config.JWTSecret, ttl)
	if err != nil {
		h.Logger.Error("token issue failed", zap.Error(err))
		response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Login failed")
		return
	}

	response.Success(w, map[string]any{
		"token": token,
		"user":  user,
	})
}
