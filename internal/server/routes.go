package server

import (
	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func (s *Server) registerRoutes() {
	// Observability endpoints (no auth required)
	s.echo.GET("/health/live", s.handleLiveness)
	s.echo.GET("/health/ready", s.handleReadiness)
	s.echo.GET("/metrics", echo.WrapHandler(promhttp.Handler()))
	s.echo.GET("/version", s.handleVersion)

	// Auth routes
	s.echo.GET("/auth/login", s.handleLogin)
	s.echo.GET("/auth/callback", s.handleOAuthCallback)
	s.echo.POST("/auth/logout", s.handleLogout, s.requireAuth)
	s.echo.GET("/auth/me", s.handleMe, s.requireAuth)

	// API routes (authenticated)
	api := s.echo.Group("/api", s.requireAuth)

	api.GET("/pages", s.handleListPages)
	api.POST("/pages/sync", s.handleSyncPages)
	api.DELETE("/pages/:id", s.handleDisconnectPage)
	api.GET("/pages/:id/insights", s.handlePageInsights)

	api.GET("/pages/:id/posts", s.handleListPosts)
	api.POST("/pages/:id/posts", s.handleCreatePost)
	api.POST("/pages/:id/posts/sync", s.handleSyncPosts)
	api.POST("/posts/:id/publish", s.handlePublishPost)
	api.DELETE("/posts/:id", s.handleDeletePost)

	api.GET("/pages/:id/reviews", s.handleListReviews)
	api.POST("/pages/:id/reviews/sync", s.handleSyncReviews)

	api.GET("/analytics/overview", s.handleAnalyticsOverview)
	api.GET("/analytics/sentiment", s.handleAnalyticsSentiment)
	api.GET("/analytics/engagement", s.handleAnalyticsEngagement)
	api.GET("/analytics/top-posts", s.handleAnalyticsTopPosts)

	api.GET("/notifications", s.handleListNotifications)
	api.POST("/notifications/read", s.handleMarkNotificationsRead)
	api.DELETE("/notifications/:id", s.handleDeleteNotification)

	// Webhook routes (verified by token/signature, NOT by session)
	s.echo.GET("/webhooks/meta", s.webhook.HandleVerification)
	s.echo.POST("/webhooks/meta", s.webhook.HandleDelivery)

	// WebSocket notification stream (authenticated)
	s.echo.GET("/ws/notifications", s.handleWebSocket, s.requireAuth)
}
