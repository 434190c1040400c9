package ws

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"kusina-order-service/internal/auth"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// Server pushes live counters to the admin dashboard: unseen payment
// verifications and the kitchen queue depth. State changes are detected by
// polling, so a missed broadcast self-heals on the next tick.
type Server struct {
	DB           *pgxpool.Pool
	Logger       *zap.Logger
	JWTSecret    string
	PollInterval time.Duration

	started sync.Once
	mu      sync.RWMutex
	clients map[*badgeClient]struct{}
}

func New(db *pgxpool.Pool, logger *zap.Logger, jwtSecret string, pollInterval time.Duration) *Server {
	if pollInterval <= 0 {
		pollInterval = 3 * time.Second
	}
	return &Server{
		DB:           db,
		Logger:       logger,
		JWTSecret:    jwtSecret,
		PollInterval: pollInterval,
		clients:      make(map[*badgeClient]struct{}),
	}
}

type badgeClient struct {
	conn    *websocket.Conn
	writeMu sync.Mutex
}

func (c *badgeClient) writeJSON(value any) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return c.conn.WriteJSON(value)
}

type badgePayload struct {
	Type                string `json:"type"`
	UnseenVerifications int    `json:"unseenVerifications"`
	KitchenQueue        int    `json:"kitchenQueue"`
	At                  string `json:"at"`
}

// HandleAdminBadges upgrades the connection after validating the staff token
// passed as a query parameter, browsers being unable to set headers on
// websocket dials.
func (s *Server) HandleAdminBadges(w http.ResponseWriter, r *http.Request) {
	token := r.URL.Query().Get("token")
	claims, err := auth.VerifyAccessToken(token, s.JWTSecret)
	if err != nil || claims.Role != auth.RoleAdmin {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.Logger.Warn("ws upgrade failed", zap.Error(err))
		return
	}

	s.started.Do(func() {
		go s.pollLoop(context.Background())
	})

	client := &badgeClient{conn: conn}
	s.mu.Lock()
	s.clients[client] = struct{}{}
	s.mu.Unlock()

	// Initial snapshot so the badge renders before the first poll tick.
	if payload, err := s.snapshot(r.Context()); err == nil {
		_ = client.writeJSON(payload)
	}

	go s.readUntilClose(client)
}

func (s *Server) readUntilClose(client *badgeClient) {
	defer func() {
		_ = client.conn.Close()
		s.mu.Lock()
		delete(s.clients, client)
		s.mu.Unlock()
	}()
	for {
		if _, _, err := client.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (s *Server) pollLoop(ctx context.Context) {
	ticker := time.NewTicker(s.PollInterval)
	defer ticker.Stop()

	var last badgePayload
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		s.mu.RLock()
		empty := len(s.clients) == 0
		s.mu.RUnlock()
		if empty {
			continue
		}

		payload, err := s.snapshot(ctx)
		if err != nil {
			s.Logger.Warn("badge snapshot failed", zap.Error(err))
			continue
		}
		if payload.UnseenVerifications == last.UnseenVerifications &&
			payload.KitchenQueue == last.KitchenQueue {
			continue
		}
		last = payload
		s.broadcast(payload)
	}
}

func (s *Server) snapshot(ctx context.Context) (badgePayload, error) {
	var unseen, kitchen int
	err := s.DB.QueryRow(ctx,
		`select count(*) from notifications where not seen and status = 'pending'`,
	).Scan(&unseen)
	if err != nil {
		return badgePayload{}, err
	}
	err = s.DB.QueryRow(ctx,
		`select count(*) from orders where status = 'In the Kitchen'`,
	).Scan(&kitchen)
	if err != nil {
		return badgePayload{}, err
	}
	return badgePayload{
		Type:                "badges",
		UnseenVerifications: unseen,
		KitchenQueue:        kitchen,
		At:                  time.Now().UTC().Format(time.RFC3339),
	}, nil
}

func (s *Server) broadcast(payload badgePayload) {
	s.mu.RLock()
	clients := make([]*badgeClient, 0, len(s.clients))
	for c := range s.clients {
		clients = append(clients, c)
	}
	s.mu.RUnlock()

	for _, c := range clients {
		if err := c.writeJSON(payload); err != nil {
			_ = c.conn.Close()
			s.mu.Lock()
			delete(s.clients, c)
			s.mu.Unlock()
		}
	}
}
