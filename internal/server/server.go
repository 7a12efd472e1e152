package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/sessions"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/pagepulse/pagepulse/internal/app"
	"github.com/pagepulse/pagepulse/internal/config"
	"github.com/pagepulse/pagepulse/internal/database"
	"github.com/pagepulse/pagepulse/internal/domain"
	apperrors "github.com/pagepulse/pagepulse/internal/errors"
	"github.com/pagepulse/pagepulse/internal/meta"
	"github.com/pagepulse/pagepulse/internal/platform/correlation"
	"github.com/pagepulse/pagepulse/internal/redis"
	"github.com/pagepulse/pagepulse/internal/webhook"
	"github.com/pagepulse/pagepulse/internal/websocket"
)

// Repos bundles the repositories the handlers read from directly.
type Repos struct {
	Users         domain.UserRepository
	Pages         domain.PageRepository
	Posts         domain.PostRepository
	Reviews       domain.ReviewRepository
	Notifications domain.NotificationRepository
	Analytics     domain.AnalyticsRepository
}

type Server struct {
	echo         *echo.Echo
	config       *config.Config
	app          *app.Service
	repos        Repos
	meta         *meta.Client
	webhook      *webhook.Handler
	hub          *websocket.Hub
	pubsub       *redis.PubSub
	db           *database.DB
	redisClient  *redis.Client
	sessionStore *sessions.CookieStore
	startTime    time.Time

	// subs tracks the per-user Redis subscriptions feeding the hub.
	subsMu sync.Mutex
	subs   map[uuid.UUID]*redis.Subscription
}

func NewServer(
	cfg *config.Config,
	appService *app.Service,
	repos Repos,
	metaClient *meta.Client,
	webhookHandler *webhook.Handler,
	pubsub *redis.PubSub,
	db *database.DB,
	redisClient *redis.Client,
) *Server {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	// Middleware
	e.Use(middleware.Recover())
	e.Use(correlationMiddleware)
	e.Use(requestLogger)
	e.HTTPErrorHandler = apperrors.HTTPErrorHandler

	sessionStore := sessions.NewCookieStore([]byte(cfg.SessionSecret))
	sessionStore.Options = &sessions.Options{
		Path:     "/",
		MaxAge:   int(cfg.SessionMaxAge.Seconds()),
		HttpOnly: true,
		Secure:   cfg.AppEnv == "production",
		SameSite: http.SameSiteLaxMode,
	}

	srv := &Server{
		echo:         e,
		config:       cfg,
		app:          appService,
		repos:        repos,
		meta:         metaClient,
		webhook:      webhookHandler,
		pubsub:       pubsub,
		db:           db,
		redisClient:  redisClient,
		sessionStore: sessionStore,
		startTime:    time.Now(),
		subs:         make(map[uuid.UUID]*redis.Subscription),
	}

	// The hub brackets a user's presence so the per-user Redis subscription
	// only lives while the user has open dashboard connections.
	srv.hub = websocket.NewHub(srv.subscribeUser, srv.unsubscribeUser)

	srv.registerRoutes()

	return srv
}

func (s *Server) Start() error {
	slog.Info("Starting server", "port", s.config.Port)
	return s.echo.Start(fmt.Sprintf(":%s", s.config.Port))
}

func (s *Server) Shutdown(ctx context.Context) error {
	s.hub.Stop()

	s.subsMu.Lock()
	for userID, sub := range s.subs {
		sub.Close()
		delete(s.subs, userID)
	}
	s.subsMu.Unlock()

	return s.echo.Shutdown(ctx)
}

// subscribeUser opens the Redis subscription for a user and forwards updates
// to their WebSocket connections.
func (s *Server) subscribeUser(userID uuid.UUID) {
	if s.pubsub == nil {
		return
	}

	sub := s.pubsub.SubscribeUser(context.Background(), userID)

	s.subsMu.Lock()
	if _, exists := s.subs[userID]; exists {
		s.subsMu.Unlock()
		sub.Close()
		return
	}
	s.subs[userID] = sub
	s.subsMu.Unlock()

	go func() {
		for update := range sub.Ch {
			s.hub.Push(userID, update)
		}
	}()
}

func (s *Server) unsubscribeUser(userID uuid.UUID) {
	s.subsMu.Lock()
	sub, exists := s.subs[userID]
	if exists {
		delete(s.subs, userID)
	}
	s.subsMu.Unlock()

	if exists {
		sub.Close()
	}
}

// correlationMiddleware stamps every request with a correlation ID so log
// lines can be tied back to a single request or webhook delivery.
func correlationMiddleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		id := c.Request().Header.Get("X-Correlation-ID")
		if id == "" {
			id = correlation.NewID()
		}

		ctx := correlation.WithID(c.Request().Context(), id)
		c.SetRequest(c.Request().WithContext(ctx))
		c.Response().Header().Set("X-Correlation-ID", id)

		return next(c)
	}
}

func requestLogger(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		start := time.Now()
		err := next(c)

		slog.InfoContext(c.Request().Context(), "request",
			"method", c.Request().Method,
			"path", c.Request().URL.Path,
			"status", c.Response().Status,
			"duration_ms", time.Since(start).Milliseconds(),
		)

		return err
	}
}
