package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"

	"github.com/pagepulse/pagepulse/internal/domain"
	"github.com/pagepulse/pagepulse/internal/meta"
	"github.com/pagepulse/pagepulse/internal/metrics"
	"github.com/pagepulse/pagepulse/internal/redis"
	"github.com/pagepulse/pagepulse/internal/sentiment"
	"github.com/pagepulse/pagepulse/internal/webhook"
)

// tokenRefreshWindow is how close to expiry a token may get before a refresh
// is forced on use.
const tokenRefreshWindow = time.Hour

// Deps bundles the collaborators of the Service.
type Deps struct {
	Users         domain.UserRepository
	Pages         domain.PageRepository
	Posts         domain.PostRepository
	Reviews       domain.ReviewRepository
	Notifications domain.NotificationRepository
	Meta          *meta.Client
	PubSub        *redis.PubSub
	Clock         clockwork.Clock
	PostLimit     int
	ReviewLimit   int
}

// Service executes domain operations on top of the repositories and the
// Graph API client.
type Service struct {
	users         domain.UserRepository
	pages         domain.PageRepository
	posts         domain.PostRepository
	reviews       domain.ReviewRepository
	notifications domain.NotificationRepository
	meta          *meta.Client
	pubsub        *redis.PubSub
	clock         clockwork.Clock
	postLimit     int
	reviewLimit   int
}

func NewService(d Deps) *Service {
	if d.Clock == nil {
		d.Clock = clockwork.NewRealClock()
	}
	if d.PostLimit <= 0 {
		d.PostLimit = 25
	}
	if d.ReviewLimit <= 0 {
		d.ReviewLimit = 25
	}

	return &Service{
		users:         d.Users,
		pages:         d.Pages,
		posts:         d.Posts,
		reviews:       d.Reviews,
		notifications: d.Notifications,
		meta:          d.Meta,
		pubsub:        d.PubSub,
		clock:         d.Clock,
		postLimit:     d.PostLimit,
		reviewLimit:   d.ReviewLimit,
	}
}

// ApplyActions executes the actions produced by the webhook normalizer. A
// failing action does not stop the rest of the batch; errors are joined and
// returned after every action has been attempted.
func (s *Service) ApplyActions(ctx context.Context, actions []webhook.Action) error {
	var errs []error
	for _, action := range actions {
		var err error
		switch a := action.(type) {
		case webhook.UpsertReview:
			err = s.applyUpsertReview(ctx, a)
		case webhook.UpsertPost:
			err = s.applyUpsertPost(ctx, a)
		case webhook.CreateNotification:
			err = s.applyCreateNotification(ctx, a)
		default:
			err = fmt.Errorf("unknown action type %T", action)
		}
		if err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (s *Service) applyUpsertReview(ctx context.Context, a webhook.UpsertReview) error {
	_, err := s.reviews.UpsertByMetaReviewID(ctx, &domain.Review{
		PageID:             a.PageID,
		MetaReviewID:       a.MetaReviewID,
		ReviewerName:       a.ReviewerName,
		ReviewerID:         a.ReviewerID,
		Message:            a.Message,
		Rating:             a.Rating,
		Sentiment:          a.Sentiment,
		RecommendationType: a.RecommendationType,
	})
	if err != nil {
		return fmt.Errorf("failed to apply review upsert: %w", err)
	}

	metrics.WebhookActionsTotal.WithLabelValues("upsert_review").Inc()
	return nil
}

func (s *Service) applyUpsertPost(ctx context.Context, a webhook.UpsertPost) error {
	publishedAt := a.PublishedAt
	var publishedAtPtr *time.Time
	if !publishedAt.IsZero() {
		publishedAtPtr = &publishedAt
	}

	_, err := s.posts.UpsertByMetaPostID(ctx, &domain.Post{
		PageID:      a.PageID,
		MetaPostID:  a.MetaPostID,
		Content:     a.Content,
		Type:        a.Type,
		Status:      a.Status,
		PublishedAt: publishedAtPtr,
		Engagement:  a.Engagement,
		Permalink:   a.Permalink,
	})
	if err != nil {
		return fmt.Errorf("failed to apply post upsert: %w", err)
	}

	metrics.WebhookActionsTotal.WithLabelValues("upsert_post").Inc()
	return nil
}

func (s *Service) applyCreateNotification(ctx context.Context, a webhook.CreateNotification) error {
	saved, err := s.notifications.Create(ctx, &domain.Notification{
		UserID:   a.UserID,
		Severity: a.Severity,
		Title:    a.Title,
		Message:  a.Message,
		Data:     a.Data,
	})
	if err != nil {
		return fmt.Errorf("failed to create notification: %w", err)
	}

	metrics.WebhookActionsTotal.WithLabelValues("create_notification").Inc()
	metrics.NotificationsCreatedTotal.WithLabelValues(string(saved.Severity)).Inc()

	// Realtime push is best effort: the notification is stored either way and
	// the dashboard catches up on its next poll.
	if s.pubsub != nil {
		err := s.pubsub.PublishNotification(ctx, saved.UserID, redis.NotificationUpdate{
			ID:       saved.ID,
			Severity: string(saved.Severity),
			Title:    saved.Title,
			Message:  saved.Message,
			Data:     saved.Data,
		})
		if err != nil {
			slog.Warn("Failed to publish notification update", "error", err, "user_id", saved.UserID)
			metrics.NotificationPushesTotal.WithLabelValues("error").Inc()
		}
	}

	return nil
}

// EnsureValidToken returns a usable access token for the user, refreshing it
// first when it expires within tokenRefreshWindow.
func (s *Service) EnsureValidToken(ctx context.Context, user *domain.User) (string, error) {
	if s.clock.Now().Add(tokenRefreshWindow).Before(user.TokenExpiry) {
		return user.AccessToken, nil
	}

	token, err := s.meta.RefreshLongLivedToken(ctx, user.AccessToken)
	if err != nil {
		return "", fmt.Errorf("failed to refresh access token: %w", err)
	}

	expiry := s.clock.Now().Add(time.Duration(token.ExpiresIn) * time.Second)
	if err := s.users.UpdateToken(ctx, user.ID, token.AccessToken, expiry); err != nil {
		return "", fmt.Errorf("failed to store refreshed token: %w", err)
	}

	user.AccessToken = token.AccessToken
	user.TokenExpiry = expiry
	slog.Info("Access token refreshed", "user_id", user.ID, "expiry", expiry)

	return token.AccessToken, nil
}

// SyncPages mirrors the user's pages from the Graph API.
func (s *Service) SyncPages(ctx context.Context, userID uuid.UUID) ([]domain.Page, error) {
	start := time.Now()

	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load user: %w", err)
	}

	token, err := s.EnsureValidToken(ctx, user)
	if err != nil {
		metrics.SyncRunsTotal.WithLabelValues("pages", "error").Inc()
		return nil, err
	}

	metaPages, err := s.meta.GetUserPages(ctx, token)
	if err != nil {
		metrics.SyncRunsTotal.WithLabelValues("pages", "error").Inc()
		return nil, fmt.Errorf("failed to fetch pages: %w", err)
	}

	var pages []domain.Page
	for _, mp := range metaPages {
		platform := domain.PlatformFacebook
		if mp.InstagramBusinessAccount != nil {
			platform = domain.PlatformInstagram
		}

		saved, err := s.pages.Upsert(ctx, &domain.Page{
			UserID:      userID,
			MetaPageID:  mp.ID,
			Name:        mp.Name,
			Platform:    platform,
			AccessToken: mp.AccessToken,
			Category:    mp.Category,
			Picture:     mp.Picture.Data.URL,
		})
		if err != nil {
			metrics.SyncRunsTotal.WithLabelValues("pages", "error").Inc()
			return nil, fmt.Errorf("failed to upsert page %s: %w", mp.ID, err)
		}
		pages = append(pages, *saved)
	}

	metrics.SyncRunsTotal.WithLabelValues("pages", "ok").Inc()
	metrics.SyncDuration.WithLabelValues("pages").Observe(time.Since(start).Seconds())
	slog.Info("Pages synced", "user_id", userID, "count", len(pages))

	return pages, nil
}

// SyncPosts mirrors a page's recent posts, including engagement counters.
func (s *Service) SyncPosts(ctx context.Context, pageID uuid.UUID) ([]domain.Post, error) {
	start := time.Now()

	page, err := s.pages.GetByID(ctx, pageID)
	if err != nil {
		return nil, fmt.Errorf("failed to load page: %w", err)
	}

	metaPosts, err := s.meta.GetPagePosts(ctx, page.MetaPageID, page.AccessToken, s.postLimit)
	if err != nil {
		metrics.SyncRunsTotal.WithLabelValues("posts", "error").Inc()
		return nil, fmt.Errorf("failed to fetch posts: %w", err)
	}

	var posts []domain.Post
	for _, mp := range metaPosts {
		content := mp.Message
		if content == "" {
			content = mp.Story
		}

		publishedAt := meta.ParseTime(mp.CreatedTime)
		var publishedAtPtr *time.Time
		if !publishedAt.IsZero() {
			publishedAtPtr = &publishedAt
		}

		saved, err := s.posts.UpsertByMetaPostID(ctx, &domain.Post{
			PageID:      page.ID,
			MetaPostID:  mp.ID,
			Content:     content,
			Type:        mp.Type,
			Status:      domain.PostStatusPublished,
			PublishedAt: publishedAtPtr,
			Engagement: domain.Engagement{
				Likes:    mp.LikeCount(),
				Comments: mp.CommentCount(),
				Shares:   mp.ShareCount(),
			},
			Permalink: mp.PermalinkURL,
		})
		if err != nil {
			metrics.SyncRunsTotal.WithLabelValues("posts", "error").Inc()
			return nil, fmt.Errorf("failed to upsert post %s: %w", mp.ID, err)
		}
		posts = append(posts, *saved)
	}

	metrics.SyncRunsTotal.WithLabelValues("posts", "ok").Inc()
	metrics.SyncDuration.WithLabelValues("posts").Observe(time.Since(start).Seconds())
	slog.Info("Posts synced", "page_id", pageID, "count", len(posts))

	return posts, nil
}

// SyncReviews mirrors a page's ratings, scoring each review text.
func (s *Service) SyncReviews(ctx context.Context, pageID uuid.UUID) ([]domain.Review, error) {
	start := time.Now()

	page, err := s.pages.GetByID(ctx, pageID)
	if err != nil {
		return nil, fmt.Errorf("failed to load page: %w", err)
	}

	metaReviews, err := s.meta.GetPageReviews(ctx, page.MetaPageID, page.AccessToken, s.reviewLimit)
	if err != nil {
		metrics.SyncRunsTotal.WithLabelValues("reviews", "error").Inc()
		return nil, fmt.Errorf("failed to fetch reviews: %w", err)
	}

	var kept []meta.Review
	for _, mr := range metaReviews {
		if mr.ExternalID() == "" {
			slog.Debug("Review without stable ID skipped", "page_id", pageID)
			continue
		}
		kept = append(kept, mr)
	}

	texts := make([]string, len(kept))
	for i, mr := range kept {
		texts[i] = mr.ReviewText
	}
	results, summary := sentiment.AnalyzeBulk(texts)

	var reviews []domain.Review
	for i, mr := range kept {
		metrics.SentimentScoredTotal.WithLabelValues(string(results[i].Sentiment)).Inc()

		saved, err := s.reviews.UpsertByMetaReviewID(ctx, &domain.Review{
			PageID:             page.ID,
			MetaReviewID:       mr.ExternalID(),
			ReviewerName:       mr.Reviewer.Name,
			ReviewerID:         mr.Reviewer.ID,
			Message:            mr.ReviewText,
			Rating:             mr.Rating,
			Sentiment:          results[i].Sentiment,
			RecommendationType: mr.RecommendationType,
		})
		if err != nil {
			metrics.SyncRunsTotal.WithLabelValues("reviews", "error").Inc()
			return nil, fmt.Errorf("failed to upsert review %s: %w", mr.ExternalID(), err)
		}
		reviews = append(reviews, *saved)
	}

	metrics.SyncRunsTotal.WithLabelValues("reviews", "ok").Inc()
	metrics.SyncDuration.WithLabelValues("reviews").Observe(time.Since(start).Seconds())
	slog.Info("Reviews synced", "page_id", pageID, "count", len(reviews),
		"positive", summary.Positive, "negative", summary.Negative, "neutral", summary.Neutral)

	return reviews, nil
}

// CreatePost stores a draft or scheduled post. A post with a future
// ScheduledAt is stored as scheduled, anything else starts as a draft.
func (s *Service) CreatePost(ctx context.Context, pageID uuid.UUID, content, postType string, scheduledAt *time.Time) (*domain.Post, error) {
	if content == "" {
		return nil, fmt.Errorf("post content is required")
	}
	if postType == "" {
		postType = "status"
	}

	status := domain.PostStatusDraft
	if scheduledAt != nil && scheduledAt.After(s.clock.Now()) {
		status = domain.PostStatusScheduled
	}

	post, err := s.posts.Create(ctx, &domain.Post{
		PageID:      pageID,
		Content:     content,
		Type:        postType,
		Status:      status,
		ScheduledAt: scheduledAt,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create post: %w", err)
	}

	return post, nil
}

// PublishPost pushes a stored post to the platform and marks it published.
func (s *Service) PublishPost(ctx context.Context, postID uuid.UUID) (*domain.Post, error) {
	post, err := s.posts.GetByID(ctx, postID)
	if err != nil {
		return nil, fmt.Errorf("failed to load post: %w", err)
	}
	if post.Status == domain.PostStatusPublished {
		return post, nil
	}

	page, err := s.pages.GetByID(ctx, post.PageID)
	if err != nil {
		return nil, fmt.Errorf("failed to load page: %w", err)
	}

	metaPostID, err := s.meta.PublishPost(ctx, page.MetaPageID, page.AccessToken, meta.PublishRequest{
		Message: post.Content,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to publish post: %w", err)
	}

	publishedAt := s.clock.Now()
	if err := s.posts.MarkPublished(ctx, post.ID, metaPostID, publishedAt); err != nil {
		return nil, fmt.Errorf("failed to mark post published: %w", err)
	}

	post.MetaPostID = metaPostID
	post.Status = domain.PostStatusPublished
	post.PublishedAt = &publishedAt
	slog.Info("Post published", "post_id", post.ID, "meta_post_id", metaPostID)

	return post, nil
}

// DeletePost removes a stored post, taking it down from the platform first
// when it has been published there.
func (s *Service) DeletePost(ctx context.Context, postID uuid.UUID) error {
	post, err := s.posts.GetByID(ctx, postID)
	if err != nil {
		return fmt.Errorf("failed to load post: %w", err)
	}

	if post.MetaPostID != "" {
		page, err := s.pages.GetByID(ctx, post.PageID)
		if err != nil {
			return fmt.Errorf("failed to load page: %w", err)
		}
		if err := s.meta.DeletePost(ctx, post.MetaPostID, page.AccessToken); err != nil {
			return fmt.Errorf("failed to delete platform post: %w", err)
		}
	}

	if err := s.posts.Delete(ctx, post.ID); err != nil {
		return fmt.Errorf("failed to delete post: %w", err)
	}

	slog.Info("Post deleted", "post_id", post.ID, "meta_post_id", post.MetaPostID)
	return nil
}

// defaultInsightMetrics are requested when the caller names none.
var defaultInsightMetrics = []string{"page_impressions", "page_post_engagements", "page_fans"}

// PageInsights fetches the platform's native metrics for a page.
func (s *Service) PageInsights(ctx context.Context, pageID uuid.UUID, metricNames []string, period string) ([]meta.Insight, error) {
	page, err := s.pages.GetByID(ctx, pageID)
	if err != nil {
		return nil, fmt.Errorf("failed to load page: %w", err)
	}

	if len(metricNames) == 0 {
		metricNames = defaultInsightMetrics
	}
	if period == "" {
		period = "day"
	}

	insights, err := s.meta.GetPageInsights(ctx, page.MetaPageID, page.AccessToken, metricNames, period)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch insights: %w", err)
	}

	return insights, nil
}
