package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"kusina-order-service/internal/auth"
	"kusina-order-service/internal/config"
	"kusina-order-service/internal/http/handlers"
	"kusina-order-service/internal/middleware"
	"kusina-order-service/internal/ws"
)

func NewRouter(h *handlers.Handler, logger *zap.Logger, cfg config.Config, wsServer *ws.Server) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID())
	r.Use(middleware.Telemetry(logger))

	if cfg.Env == "development" || len(cfg.CorsAllowedOrigins) > 0 {
		options := cors.Options{
			AllowedMethods: []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
			AllowedHeaders: []string{
				"Accept",
				"Authorization",
				"Content-Type",
				"X-Requested-With",
				"Cache-Control",
			},
			AllowCredentials: true,
			MaxAge:           300,
		}
		if cfg.Env == "development" {
			options.AllowOriginFunc = func(_ *http.Request, origin string) bool { return true }
		} else {
			options.AllowedOrigins = cfg.CorsAllowedOrigins
		}
		r.Use(cors.Handler(options))
	}

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	r.Post("/api/auth/login", h.AuthLogin)

	// Public surfaces: the delivery ordering page and the proof-of-payment
	// form. No auth; these are what customers reach from the QR link.
	r.Route("/api/public", func(r chi.Router) {
		r.Get("/menus", h.MenusList)
		r.Post("/delivery/quote", h.PublicDeliveryQuote)
		r.Post("/orders", h.PublicOrderCreate)
		r.Get("/orders/{orderNumber}", h.OrderGet)
		r.Post("/payment-proofs", h.PublicProofSubmit)
	})

	// POS terminal surfaces.
	r.Route("/api/pos", func(r chi.Router) {
		r.Use(middleware.StaffAuth(cfg.JWTSecret, auth.RoleAdmin, auth.RoleCashier))

		r.Post("/orders", h.POSOrderStart)
		r.Get("/sessions/{sessionKey}/draft", h.POSDraftGet)
		r.Put("/sessions/{sessionKey}/draft", h.POSDraftSave)
		r.Delete("/sessions/{sessionKey}/draft", h.POSDraftClear)

		r.Post("/orders/{orderNumber}/later", h.POSOrderLater)
		r.Post("/orders/{orderNumber}/confirm-payment", h.POSOrderConfirmPayment)
		r.Post("/orders/{orderNumber}/cancel", h.POSOrderCancel)
		r.Post("/orders/{orderNumber}/resume", h.POSOrderResume)

		r.Get("/orders", h.OrdersList)
		r.Get("/orders/{orderNumber}", h.OrderGet)
		r.Get("/orders/{orderNumber}/receipt", h.OrderReceiptPDF)
	})

	// Kitchen display.
	r.Route("/api/kitchen", func(r chi.Router) {
		r.Use(middleware.StaffAuth(cfg.JWTSecret, auth.RoleAdmin, auth.RoleKitchen))
		r.Get("/orders", h.OrdersList)
		r.Post("/orders/{orderNumber}/complete", h.OrderComplete)
	})

	// Admin back office.
	r.Route("/api/admin", func(r chi.Router) {
		r.Use(middleware.StaffAuth(cfg.JWTSecret, auth.RoleAdmin))

		r.Get("/notifications", h.NotificationsList)
		r.Post("/notifications/{notificationId}/seen", h.NotificationMarkSeen)
		r.Post("/notifications/{notificationId}/approve", h.NotificationApprove)
		r.Post("/notifications/{notificationId}/decline", h.NotificationDecline)

		r.Post("/orders/{orderNumber}/dispatch", h.AdminOrderDispatch)
		r.Post("/orders/{orderNumber}/book-delivery", h.AdminOrderBookDelivery)
		r.Post("/orders/{orderNumber}/receipt/archive", h.OrderReceiptArchive)

		r.Get("/menus", h.MenusList)
		r.Post("/menus", h.MenuCreate)
		r.Patch("/menus/{menuId}", h.MenuUpdate)
		r.Delete("/menus/{menuId}", h.MenuDelete)
		r.Post("/menus/{menuId}/image", h.MenuUploadImage)
		r.Post("/menus/{menuId}/build", h.MenuRecipeBuild)

		r.Get("/inventory", h.InventoryList)
		r.Post("/inventory", h.InventoryCreate)
		r.Post("/inventory/{itemId}/receive", h.InventoryReceive)
		r.Delete("/inventory/{itemId}", h.InventoryDelete)
	})

	r.Get("/ws/admin/badges", wsServer.HandleAdminBadges)

	return r
}
