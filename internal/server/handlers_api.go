package server

import (
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/pagepulse/pagepulse/internal/domain"
	apperrors "github.com/pagepulse/pagepulse/internal/errors"
)

// --- Response shapes ---

type pageResponse struct {
	ID         uuid.UUID  `json:"id"`
	MetaPageID string     `json:"metaPageId"`
	Name       string     `json:"name"`
	Platform   string     `json:"platform"`
	Category   string     `json:"category"`
	Picture    string     `json:"picture"`
	Connected  bool       `json:"connected"`
	LastSyncAt *time.Time `json:"lastSyncAt,omitempty"`
}

func toPageResponse(p domain.Page) pageResponse {
	return pageResponse{
		ID:         p.ID,
		MetaPageID: p.MetaPageID,
		Name:       p.Name,
		Platform:   string(p.Platform),
		Category:   p.Category,
		Picture:    p.Picture,
		Connected:  p.Connected,
		LastSyncAt: p.LastSyncAt,
	}
}

type postResponse struct {
	ID          uuid.UUID  `json:"id"`
	PageID      uuid.UUID  `json:"pageId"`
	MetaPostID  string     `json:"metaPostId,omitempty"`
	Content     string     `json:"content"`
	Type        string     `json:"type"`
	Status      string     `json:"status"`
	ScheduledAt *time.Time `json:"scheduledAt,omitempty"`
	PublishedAt *time.Time `json:"publishedAt,omitempty"`
	Likes       int        `json:"likes"`
	Comments    int        `json:"comments"`
	Shares      int        `json:"shares"`
	Permalink   string     `json:"permalink,omitempty"`
}

func toPostResponse(p domain.Post) postResponse {
	return postResponse{
		ID:          p.ID,
		PageID:      p.PageID,
		MetaPostID:  p.MetaPostID,
		Content:     p.Content,
		Type:        p.Type,
		Status:      string(p.Status),
		ScheduledAt: p.ScheduledAt,
		PublishedAt: p.PublishedAt,
		Likes:       p.Engagement.Likes,
		Comments:    p.Engagement.Comments,
		Shares:      p.Engagement.Shares,
		Permalink:   p.Permalink,
	}
}

type reviewResponse struct {
	ID                 uuid.UUID `json:"id"`
	PageID             uuid.UUID `json:"pageId"`
	ReviewerName       string    `json:"reviewerName"`
	Message            string    `json:"message"`
	Rating             int       `json:"rating"`
	Sentiment          string    `json:"sentiment"`
	RecommendationType string    `json:"recommendationType,omitempty"`
	CreatedAt          time.Time `json:"createdAt"`
}

func toReviewResponse(r domain.Review) reviewResponse {
	return reviewResponse{
		ID:                 r.ID,
		PageID:             r.PageID,
		ReviewerName:       r.ReviewerName,
		Message:            r.Message,
		Rating:             r.Rating,
		Sentiment:          string(r.Sentiment),
		RecommendationType: r.RecommendationType,
		CreatedAt:          r.CreatedAt,
	}
}

type notificationResponse struct {
	ID        uuid.UUID      `json:"id"`
	Severity  string         `json:"severity"`
	Title     string         `json:"title"`
	Message   string         `json:"message"`
	Read      bool           `json:"read"`
	Data      map[string]any `json:"data,omitempty"`
	CreatedAt time.Time      `json:"createdAt"`
}

func toNotificationResponse(n domain.Notification) notificationResponse {
	return notificationResponse{
		ID:        n.ID,
		Severity:  string(n.Severity),
		Title:     n.Title,
		Message:   n.Message,
		Read:      n.Read,
		Data:      n.Data,
		CreatedAt: n.CreatedAt,
	}
}

// --- Helpers ---

// resolvePage loads a page from the :id param and verifies the caller owns it.
func (s *Server) resolvePage(c echo.Context) (*domain.Page, error) {
	userID := c.Get("userID").(uuid.UUID)

	pageID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return nil, apperrors.Validation("invalid page ID")
	}

	page, err := s.repos.Pages.GetByID(c.Request().Context(), pageID)
	if errors.Is(err, domain.ErrPageNotFound) {
		return nil, apperrors.NotFound("page not found")
	}
	if err != nil {
		return nil, apperrors.Internal("failed to load page", err)
	}
	if page.UserID != userID {
		return nil, apperrors.Forbidden("page belongs to another user")
	}

	return page, nil
}

func queryInt(c echo.Context, name, fallback string) int {
	v := c.QueryParam(name)
	if v == "" {
		v = fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0
	}
	return n
}

// --- Page handlers ---

func (s *Server) handleListPages(c echo.Context) error {
	userID := c.Get("userID").(uuid.UUID)

	pages, err := s.repos.Pages.ListByUser(c.Request().Context(), userID)
	if err != nil {
		return apperrors.Internal("failed to list pages", err)
	}

	resp := make([]pageResponse, 0, len(pages))
	for _, p := range pages {
		resp = append(resp, toPageResponse(p))
	}
	return c.JSON(200, resp)
}

func (s *Server) handleSyncPages(c echo.Context) error {
	userID := c.Get("userID").(uuid.UUID)

	pages, err := s.app.SyncPages(c.Request().Context(), userID)
	if err != nil {
		return apperrors.External("failed to sync pages", err)
	}

	resp := make([]pageResponse, 0, len(pages))
	for _, p := range pages {
		resp = append(resp, toPageResponse(p))
	}
	return c.JSON(200, resp)
}

func (s *Server) handleDisconnectPage(c echo.Context) error {
	page, err := s.resolvePage(c)
	if err != nil {
		return err
	}

	if err := s.repos.Pages.Disconnect(c.Request().Context(), page.ID); err != nil {
		return apperrors.Internal("failed to disconnect page", err)
	}

	return c.JSON(200, map[string]string{"status": "ok"})
}

// handlePageInsights proxies the platform's native page metrics.
func (s *Server) handlePageInsights(c echo.Context) error {
	page, err := s.resolvePage(c)
	if err != nil {
		return err
	}

	var metricNames []string
	if raw := c.QueryParam("metrics"); raw != "" {
		metricNames = strings.Split(raw, ",")
	}

	insights, err := s.app.PageInsights(c.Request().Context(), page.ID, metricNames, c.QueryParam("period"))
	if err != nil {
		return apperrors.External("failed to fetch insights", err)
	}

	return c.JSON(200, insights)
}

// --- Post handlers ---

func (s *Server) handleListPosts(c echo.Context) error {
	page, err := s.resolvePage(c)
	if err != nil {
		return err
	}

	limit := queryInt(c, "limit", "25")
	posts, err := s.repos.Posts.ListByPage(c.Request().Context(), page.ID, limit)
	if err != nil {
		return apperrors.Internal("failed to list posts", err)
	}

	resp := make([]postResponse, 0, len(posts))
	for _, p := range posts {
		resp = append(resp, toPostResponse(p))
	}
	return c.JSON(200, resp)
}

func (s *Server) handleCreatePost(c echo.Context) error {
	page, err := s.resolvePage(c)
	if err != nil {
		return err
	}

	var req struct {
		Content     string     `json:"content"`
		Type        string     `json:"type"`
		ScheduledAt *time.Time `json:"scheduledAt"`
	}
	if err := c.Bind(&req); err != nil {
		return apperrors.Validation("invalid request body")
	}
	if req.Content == "" {
		return apperrors.Validation("content is required")
	}

	post, err := s.app.CreatePost(c.Request().Context(), page.ID, req.Content, req.Type, req.ScheduledAt)
	if err != nil {
		return apperrors.Internal("failed to create post", err)
	}

	return c.JSON(201, toPostResponse(*post))
}

func (s *Server) handleSyncPosts(c echo.Context) error {
	page, err := s.resolvePage(c)
	if err != nil {
		return err
	}

	posts, err := s.app.SyncPosts(c.Request().Context(), page.ID)
	if err != nil {
		return apperrors.External("failed to sync posts", err)
	}

	resp := make([]postResponse, 0, len(posts))
	for _, p := range posts {
		resp = append(resp, toPostResponse(p))
	}
	return c.JSON(200, resp)
}

func (s *Server) handlePublishPost(c echo.Context) error {
	userID := c.Get("userID").(uuid.UUID)
	ctx := c.Request().Context()

	postID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return apperrors.Validation("invalid post ID")
	}

	post, err := s.repos.Posts.GetByID(ctx, postID)
	if errors.Is(err, domain.ErrPostNotFound) {
		return apperrors.NotFound("post not found")
	}
	if err != nil {
		return apperrors.Internal("failed to load post", err)
	}

	page, err := s.repos.Pages.GetByID(ctx, post.PageID)
	if err != nil {
		return apperrors.Internal("failed to load page", err)
	}
	if page.UserID != userID {
		return apperrors.Forbidden("post belongs to another user")
	}

	published, err := s.app.PublishPost(ctx, postID)
	if err != nil {
		return apperrors.External("failed to publish post", err)
	}

	return c.JSON(200, toPostResponse(*published))
}

func (s *Server) handleDeletePost(c echo.Context) error {
	userID := c.Get("userID").(uuid.UUID)
	ctx := c.Request().Context()

	postID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return apperrors.Validation("invalid post ID")
	}

	post, err := s.repos.Posts.GetByID(ctx, postID)
	if errors.Is(err, domain.ErrPostNotFound) {
		return apperrors.NotFound("post not found")
	}
	if err != nil {
		return apperrors.Internal("failed to load post", err)
	}

	page, err := s.repos.Pages.GetByID(ctx, post.PageID)
	if err != nil {
		return apperrors.Internal("failed to load page", err)
	}
	if page.UserID != userID {
		return apperrors.Forbidden("post belongs to another user")
	}

	if err := s.app.DeletePost(ctx, postID); err != nil {
		return apperrors.External("failed to delete post", err)
	}

	return c.JSON(200, map[string]string{"status": "ok"})
}

// --- Review handlers ---

func (s *Server) handleListReviews(c echo.Context) error {
	page, err := s.resolvePage(c)
	if err != nil {
		return err
	}

	limit := queryInt(c, "limit", "25")
	reviews, err := s.repos.Reviews.ListByPage(c.Request().Context(), page.ID, limit)
	if err != nil {
		return apperrors.Internal("failed to list reviews", err)
	}

	resp := make([]reviewResponse, 0, len(reviews))
	for _, r := range reviews {
		resp = append(resp, toReviewResponse(r))
	}
	return c.JSON(200, resp)
}

func (s *Server) handleSyncReviews(c echo.Context) error {
	page, err := s.resolvePage(c)
	if err != nil {
		return err
	}

	reviews, err := s.app.SyncReviews(c.Request().Context(), page.ID)
	if err != nil {
		return apperrors.External("failed to sync reviews", err)
	}

	resp := make([]reviewResponse, 0, len(reviews))
	for _, r := range reviews {
		resp = append(resp, toReviewResponse(r))
	}
	return c.JSON(200, resp)
}

// --- Analytics handlers ---

func (s *Server) handleAnalyticsOverview(c echo.Context) error {
	userID := c.Get("userID").(uuid.UUID)

	overview, err := s.repos.Analytics.Overview(c.Request().Context(), userID)
	if err != nil {
		return apperrors.Internal("failed to load overview", err)
	}
	return c.JSON(200, overview)
}

func (s *Server) handleAnalyticsSentiment(c echo.Context) error {
	userID := c.Get("userID").(uuid.UUID)

	breakdown, err := s.repos.Analytics.SentimentBreakdown(c.Request().Context(), userID)
	if err != nil {
		return apperrors.Internal("failed to load sentiment breakdown", err)
	}
	return c.JSON(200, breakdown)
}

func (s *Server) handleAnalyticsEngagement(c echo.Context) error {
	userID := c.Get("userID").(uuid.UUID)

	days := queryInt(c, "days", "30")
	points, err := s.repos.Analytics.EngagementOverTime(c.Request().Context(), userID, days)
	if err != nil {
		return apperrors.Internal("failed to load engagement", err)
	}
	if points == nil {
		points = []domain.EngagementPoint{}
	}
	return c.JSON(200, points)
}

func (s *Server) handleAnalyticsTopPosts(c echo.Context) error {
	userID := c.Get("userID").(uuid.UUID)

	limit := queryInt(c, "limit", "5")
	top, err := s.repos.Analytics.TopPosts(c.Request().Context(), userID, limit)
	if err != nil {
		return apperrors.Internal("failed to load top posts", err)
	}
	if top == nil {
		top = []domain.TopPost{}
	}
	return c.JSON(200, top)
}

// --- Notification handlers ---

func (s *Server) handleListNotifications(c echo.Context) error {
	userID := c.Get("userID").(uuid.UUID)

	page := queryInt(c, "page", "1")
	limit := queryInt(c, "limit", "20")
	unreadOnly := c.QueryParam("unread") == "true"

	result, err := s.repos.Notifications.ListByUser(c.Request().Context(), userID, page, limit, unreadOnly)
	if err != nil {
		return apperrors.Internal("failed to list notifications", err)
	}

	items := make([]notificationResponse, 0, len(result.Notifications))
	for _, n := range result.Notifications {
		items = append(items, toNotificationResponse(n))
	}

	return c.JSON(200, map[string]any{
		"notifications": items,
		"total":         result.Total,
		"unreadCount":   result.UnreadCount,
	})
}

func (s *Server) handleMarkNotificationsRead(c echo.Context) error {
	userID := c.Get("userID").(uuid.UUID)

	var req struct {
		IDs  []uuid.UUID `json:"ids"`
		Read *bool       `json:"read"`
	}
	if err := c.Bind(&req); err != nil {
		return apperrors.Validation("invalid request body")
	}

	read := true
	if req.Read != nil {
		read = *req.Read
	}

	if err := s.repos.Notifications.MarkRead(c.Request().Context(), userID, req.IDs, read); err != nil {
		return apperrors.Internal("failed to update notifications", err)
	}

	return c.JSON(200, map[string]string{"status": "ok"})
}

func (s *Server) handleDeleteNotification(c echo.Context) error {
	userID := c.Get("userID").(uuid.UUID)

	notificationID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return apperrors.Validation("invalid notification ID")
	}

	err = s.repos.Notifications.Delete(c.Request().Context(), userID, notificationID)
	if errors.Is(err, domain.ErrNotificationNotFound) {
		return apperrors.NotFound("notification not found")
	}
	if err != nil {
		return apperrors.Internal("failed to delete notification", err)
	}

	return c.JSON(200, map[string]string{"status": "ok"})
}
