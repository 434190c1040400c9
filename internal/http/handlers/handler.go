package handlers

import (
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"kusina-order-service/internal/auth"
	"kusina-order-service/internal/config"
	"kusina-order-service/internal/delivery"
	"kusina-order-service/internal/inventory"
	"kusina-order-service/internal/menu"
	"kusina-order-service/internal/notify"
	"kusina-order-service/internal/order"
	"kusina-order-service/internal/queue"
	"kusina-order-service/internal/session"
	"kusina-order-service/internal/storage"
)

type Handler struct {
	DB     *pgxpool.Pool
	Logger *zap.Logger
	Config config.Config
	Queue  *queue.Client

	Orders        *order.Store
	Menus         *menu.Store
	Ledger        *inventory.Ledger
	Notifications *notify.Store
	Sessions      *session.Store
	Users         *auth.UserStore
	Delivery      *delivery.Client
	Objects       *storage.ObjectStore
}
