package api

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/hlog"
	"github.com/shopspring/decimal"
	"github.com/wnt/mevx/internal/autosnipe"
	"github.com/wnt/mevx/internal/events"
	"github.com/wnt/mevx/internal/logger"
	"github.com/wnt/mevx/internal/models"
	"github.com/wnt/mevx/internal/price"
	"github.com/wnt/mevx/internal/users"
	"github.com/wnt/mevx/internal/wallet"
)

const maxBodyBytes = 1 << 20

// ConnectionLister reads the wallet connection audit log
type ConnectionLister interface {
	Connections(ctx context.Context, address string) ([]models.WalletConnection, error)
}

// Deps are the stores and services the API serves
type Deps struct {
	Users     *users.Store
	AutoSnipe *autosnipe.Store
	Connector *wallet.Connector
	Sessions  *wallet.SessionStore
	Oracle    *price.Oracle
	Bus       *events.Bus
	Audit     ConnectionLister

	// MinimumBalance is the guard threshold used when a request names none
	MinimumBalance decimal.Decimal
	JWTSecret      []byte
}

// Server is the HTTP surface over the stores
type Server struct {
	users     *users.Store
	autosnipe *autosnipe.Store
	connector *wallet.Connector
	sessions  *wallet.SessionStore
	oracle    *price.Oracle
	bus       *events.Bus
	audit     ConnectionLister
	minimum   decimal.Decimal
	jwtSecret []byte
	logger    zerolog.Logger
	upgrader  websocket.Upgrader

	closeOnce sync.Once
	done      chan struct{}
}

// NewServer creates the API server
func NewServer(deps Deps, baseLogger zerolog.Logger) *Server {
	s := &Server{
		users:     deps.Users,
		autosnipe: deps.AutoSnipe,
		connector: deps.Connector,
		sessions:  deps.Sessions,
		oracle:    deps.Oracle,
		bus:       deps.Bus,
		audit:     deps.Audit,
		minimum:   deps.MinimumBalance,
		jwtSecret: deps.JWTSecret,
		logger:    logger.WithComponent(baseLogger, "api"),
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		done: make(chan struct{}),
	}

	if len(s.jwtSecret) == 0 {
		s.logger.Warn().Msg("ADMIN_JWT_SECRET is empty, admin routes are unauthenticated")
	}
	return s
}

// Router returns the HTTP handler with every route mounted
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(hlog.NewHandler(s.logger))
	r.Use(hlog.AccessHandler(func(r *http.Request, status, size int, duration time.Duration) {
		hlog.FromRequest(r).Debug().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Str("request_id", middleware.GetReqID(r.Context())).
			Int("status", status).
			Int("size", size).
			Dur("duration", duration).
			Msg("Handled request")
	}))
	r.Use(middleware.Recoverer)

	r.Get("/health", s.handleHealth)

	r.Route("/admin", func(r chi.Router) {
		r.Use(s.adminAuth)
		r.Get("/stats", s.handleStats)
		r.Post("/reload", s.handleReload)
		r.Get("/users", s.handleListUsers)
		r.Route("/users/{id}", func(r chi.Router) {
			r.Get("/", s.handleGetUser)
			r.Patch("/", s.handleUpdateUser)
			r.Delete("/", s.handleDeleteUser)
			r.Patch("/balance", s.handleUpdateBalance)
			r.Post("/toggle-status", s.handleToggleStatus)
			r.Post("/toggle-vip", s.handleToggleVip)
			r.Post("/kyc", s.handleSetKYC)
			r.Get("/connections", s.handleConnections)
		})
	})

	r.Route("/wallet", func(r chi.Router) {
		r.Post("/connect", s.handleConnect)
		r.Post("/disconnect", s.handleDisconnect)
		r.Get("/session", s.handleSession)
		r.Put("/session/balance", s.handleSessionBalance)
	})

	r.Route("/autosnipe", func(r chi.Router) {
		r.Get("/configs", s.handleListConfigs)
		r.Post("/configs", s.handleAddConfig)
		r.Delete("/configs", s.handleClearConfigs)
		r.Get("/configs/{id}", s.handleGetConfig)
		r.Put("/configs/{id}", s.handleUpdateConfig)
		r.Delete("/configs/{id}", s.handleDeleteConfig)
		r.Post("/configs/{id}/toggle", s.handleToggleConfig)
		r.Get("/tokens", s.handleListTokens)
		r.Get("/tokens/{tokenId}", s.handleTokenStatus)
		r.Post("/tokens/{tokenId}/toggle", s.handleToggleToken)
		r.Get("/activity", s.handleActivity)
	})

	r.Get("/price", s.handlePrice)
	r.Get("/guard", s.handleGuard)
	r.Post("/guard/check", s.handleGuardCheck)

	r.With(s.adminAuth).Get("/ws/events", s.handleEvents)

	return r
}

// Close ends every open event stream
func (s *Server) Close() {
	s.closeOnce.Do(func() {
		close(s.done)
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":        "ok",
		"users":         len(s.users.GetAllUsers()),
		"configs":       len(s.autosnipe.AllConfigs()),
		"priceSources":  s.oracle.HealthySources(),
		"usersLoading":  s.users.Loading(),
		"walletSession": s.sessions.Current().IsConnected,
	})
}
