package app

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pagepulse/pagepulse/internal/domain"
	"github.com/pagepulse/pagepulse/internal/meta"
	"github.com/pagepulse/pagepulse/internal/sentiment"
	"github.com/pagepulse/pagepulse/internal/webhook"
)

type fakeUserRepo struct {
	users        map[uuid.UUID]*domain.User
	tokenUpdates int
}

func (f *fakeUserRepo) GetByID(_ context.Context, userID uuid.UUID) (*domain.User, error) {
	user, ok := f.users[userID]
	if !ok {
		return nil, domain.ErrUserNotFound
	}
	clone := *user
	return &clone, nil
}

func (f *fakeUserRepo) GetByMetaUserID(_ context.Context, metaUserID string) (*domain.User, error) {
	for _, user := range f.users {
		if user.MetaUserID == metaUserID {
			clone := *user
			return &clone, nil
		}
	}
	return nil, domain.ErrUserNotFound
}

func (f *fakeUserRepo) Upsert(_ context.Context, metaUserID, name, email, picture, accessToken string, tokenExpiry time.Time) (*domain.User, error) {
	user := &domain.User{ID: uuid.New(), MetaUserID: metaUserID, Name: name, Email: email, Picture: picture, AccessToken: accessToken, TokenExpiry: tokenExpiry}
	f.users[user.ID] = user
	return user, nil
}

func (f *fakeUserRepo) UpdateToken(_ context.Context, userID uuid.UUID, accessToken string, tokenExpiry time.Time) error {
	user, ok := f.users[userID]
	if !ok {
		return domain.ErrUserNotFound
	}
	user.AccessToken = accessToken
	user.TokenExpiry = tokenExpiry
	f.tokenUpdates++
	return nil
}

type fakePageRepo struct {
	pages map[uuid.UUID]*domain.Page
}

func (f *fakePageRepo) GetByID(_ context.Context, pageID uuid.UUID) (*domain.Page, error) {
	page, ok := f.pages[pageID]
	if !ok {
		return nil, domain.ErrPageNotFound
	}
	clone := *page
	return &clone, nil
}

func (f *fakePageRepo) GetByMetaPageID(_ context.Context, metaPageID string) (*domain.Page, error) {
	for _, page := range f.pages {
		if page.MetaPageID == metaPageID {
			clone := *page
			return &clone, nil
		}
	}
	return nil, domain.ErrPageNotFound
}

func (f *fakePageRepo) ListByUser(_ context.Context, userID uuid.UUID) ([]domain.Page, error) {
	var out []domain.Page
	for _, page := range f.pages {
		if page.UserID == userID {
			out = append(out, *page)
		}
	}
	return out, nil
}

func (f *fakePageRepo) Upsert(_ context.Context, page *domain.Page) (*domain.Page, error) {
	for _, existing := range f.pages {
		if existing.MetaPageID == page.MetaPageID {
			page.ID = existing.ID
			page.Connected = true
			f.pages[existing.ID] = page
			clone := *page
			return &clone, nil
		}
	}
	page.ID = uuid.New()
	page.Connected = true
	f.pages[page.ID] = page
	clone := *page
	return &clone, nil
}

func (f *fakePageRepo) Disconnect(_ context.Context, pageID uuid.UUID) error {
	page, ok := f.pages[pageID]
	if !ok {
		return domain.ErrPageNotFound
	}
	page.Connected = false
	return nil
}

type fakePostRepo struct {
	posts     map[uuid.UUID]*domain.Post
	createErr error
	upsertErr error
}

func (f *fakePostRepo) GetByID(_ context.Context, postID uuid.UUID) (*domain.Post, error) {
	post, ok := f.posts[postID]
	if !ok {
		return nil, domain.ErrPostNotFound
	}
	clone := *post
	return &clone, nil
}

func (f *fakePostRepo) ListByPage(_ context.Context, pageID uuid.UUID, _ int) ([]domain.Post, error) {
	var out []domain.Post
	for _, post := range f.posts {
		if post.PageID == pageID {
			out = append(out, *post)
		}
	}
	return out, nil
}

func (f *fakePostRepo) Create(_ context.Context, post *domain.Post) (*domain.Post, error) {
	if f.createErr != nil {
		return nil, f.createErr
	}
	post.ID = uuid.New()
	f.posts[post.ID] = post
	clone := *post
	return &clone, nil
}

func (f *fakePostRepo) UpsertByMetaPostID(_ context.Context, post *domain.Post) (*domain.Post, error) {
	if f.upsertErr != nil {
		return nil, f.upsertErr
	}
	for _, existing := range f.posts {
		if existing.MetaPostID == post.MetaPostID && post.MetaPostID != "" {
			post.ID = existing.ID
			f.posts[existing.ID] = post
			clone := *post
			return &clone, nil
		}
	}
	post.ID = uuid.New()
	f.posts[post.ID] = post
	clone := *post
	return &clone, nil
}

func (f *fakePostRepo) MarkPublished(_ context.Context, postID uuid.UUID, metaPostID string, publishedAt time.Time) error {
	post, ok := f.posts[postID]
	if !ok {
		return domain.ErrPostNotFound
	}
	post.MetaPostID = metaPostID
	post.Status = domain.PostStatusPublished
	post.PublishedAt = &publishedAt
	return nil
}

func (f *fakePostRepo) Delete(_ context.Context, postID uuid.UUID) error {
	if _, ok := f.posts[postID]; !ok {
		return domain.ErrPostNotFound
	}
	delete(f.posts, postID)
	return nil
}

type fakeReviewRepo struct {
	reviews   map[string]*domain.Review
	upsertErr error
}

func (f *fakeReviewRepo) ListByPage(_ context.Context, pageID uuid.UUID, _ int) ([]domain.Review, error) {
	var out []domain.Review
	for _, review := range f.reviews {
		if review.PageID == pageID {
			out = append(out, *review)
		}
	}
	return out, nil
}

func (f *fakeReviewRepo) UpsertByMetaReviewID(_ context.Context, review *domain.Review) (*domain.Review, error) {
	if f.upsertErr != nil {
		return nil, f.upsertErr
	}
	if existing, ok := f.reviews[review.MetaReviewID]; ok {
		review.ID = existing.ID
	} else {
		review.ID = uuid.New()
	}
	f.reviews[review.MetaReviewID] = review
	clone := *review
	return &clone, nil
}

type fakeNotificationRepo struct {
	created   []*domain.Notification
	createErr error
}

func (f *fakeNotificationRepo) Create(_ context.Context, n *domain.Notification) (*domain.Notification, error) {
	if f.createErr != nil {
		return nil, f.createErr
	}
	n.ID = uuid.New()
	f.created = append(f.created, n)
	clone := *n
	return &clone, nil
}

func (f *fakeNotificationRepo) ListByUser(_ context.Context, userID uuid.UUID, _, _ int, _ bool) (*domain.NotificationPage, error) {
	var out []domain.Notification
	for _, n := range f.created {
		if n.UserID == userID {
			out = append(out, *n)
		}
	}
	return &domain.NotificationPage{Notifications: out, Total: len(out)}, nil
}

func (f *fakeNotificationRepo) MarkRead(context.Context, uuid.UUID, []uuid.UUID, bool) error {
	return nil
}

func (f *fakeNotificationRepo) Delete(context.Context, uuid.UUID, uuid.UUID) error {
	return nil
}

type fixture struct {
	svc           *Service
	users         *fakeUserRepo
	pages         *fakePageRepo
	posts         *fakePostRepo
	reviews       *fakeReviewRepo
	notifications *fakeNotificationRepo
	clock         *clockwork.FakeClock
}

func newFixture(t *testing.T, graphHandler http.HandlerFunc) *fixture {
	t.Helper()

	f := &fixture{
		users:         &fakeUserRepo{users: map[uuid.UUID]*domain.User{}},
		pages:         &fakePageRepo{pages: map[uuid.UUID]*domain.Page{}},
		posts:         &fakePostRepo{posts: map[uuid.UUID]*domain.Post{}},
		reviews:       &fakeReviewRepo{reviews: map[string]*domain.Review{}},
		notifications: &fakeNotificationRepo{},
		clock:         clockwork.NewFakeClock(),
	}

	var metaClient *meta.Client
	if graphHandler != nil {
		srv := httptest.NewServer(graphHandler)
		t.Cleanup(srv.Close)
		metaClient = meta.NewClient("client-id", "client-secret", "v18.0",
			meta.WithBaseURL(srv.URL), meta.WithHTTPClient(srv.Client()))
	}

	f.svc = NewService(Deps{
		Users:         f.users,
		Pages:         f.pages,
		Posts:         f.posts,
		Reviews:       f.reviews,
		Notifications: f.notifications,
		Meta:          metaClient,
		Clock:         f.clock,
	})
	return f
}

func (f *fixture) addUser(tokenExpiry time.Time) *domain.User {
	user := &domain.User{ID: uuid.New(), MetaUserID: "fb-1", Name: "Owner", AccessToken: "user-token", TokenExpiry: tokenExpiry}
	f.users.users[user.ID] = user
	return user
}

func (f *fixture) addPage(userID uuid.UUID) *domain.Page {
	page := &domain.Page{ID: uuid.New(), UserID: userID, MetaPageID: "page-1", Name: "Coffee Corner", AccessToken: "page-token", Connected: true}
	f.pages.pages[page.ID] = page
	return page
}

func TestApplyActionsStoresAllKinds(t *testing.T) {
	f := newFixture(t, nil)
	pageID := uuid.New()
	userID := uuid.New()
	publishedAt := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)

	err := f.svc.ApplyActions(context.Background(), []webhook.Action{
		webhook.UpsertReview{MetaReviewID: "r-1", PageID: pageID, Rating: 5, Sentiment: sentiment.Positive, Message: "great"},
		webhook.UpsertPost{MetaPostID: "p-1", PageID: pageID, Content: "hello", Status: domain.PostStatusPublished, PublishedAt: publishedAt},
		webhook.CreateNotification{UserID: userID, Severity: domain.SeveritySuccess, Title: "New Review", Message: "5 stars"},
	})
	require.NoError(t, err)

	require.Contains(t, f.reviews.reviews, "r-1")
	assert.Equal(t, sentiment.Positive, f.reviews.reviews["r-1"].Sentiment)

	require.Len(t, f.posts.posts, 1)
	for _, post := range f.posts.posts {
		assert.Equal(t, "p-1", post.MetaPostID)
		require.NotNil(t, post.PublishedAt)
		assert.Equal(t, publishedAt, *post.PublishedAt)
	}

	require.Len(t, f.notifications.created, 1)
	assert.Equal(t, domain.SeveritySuccess, f.notifications.created[0].Severity)
}

func TestApplyActionsZeroPublishedAtStaysNil(t *testing.T) {
	f := newFixture(t, nil)

	err := f.svc.ApplyActions(context.Background(), []webhook.Action{
		webhook.UpsertPost{MetaPostID: "p-1", PageID: uuid.New(), Content: "x", Status: domain.PostStatusPublished},
	})
	require.NoError(t, err)

	for _, post := range f.posts.posts {
		assert.Nil(t, post.PublishedAt)
	}
}

func TestApplyActionsContinuesPastFailures(t *testing.T) {
	f := newFixture(t, nil)
	f.reviews.upsertErr = errors.New("review table locked")

	err := f.svc.ApplyActions(context.Background(), []webhook.Action{
		webhook.UpsertReview{MetaReviewID: "r-1", PageID: uuid.New()},
		webhook.CreateNotification{UserID: uuid.New(), Severity: domain.SeverityInfo, Title: "t", Message: "m"},
	})

	require.Error(t, err)
	assert.ErrorIs(t, err, f.reviews.upsertErr)
	// The notification after the failing review still lands.
	assert.Len(t, f.notifications.created, 1)
}

func TestEnsureValidTokenSkipsFreshToken(t *testing.T) {
	f := newFixture(t, nil)
	user := f.addUser(f.clock.Now().Add(48 * time.Hour))

	token, err := f.svc.EnsureValidToken(context.Background(), user)
	require.NoError(t, err)
	assert.Equal(t, "user-token", token)
	assert.Zero(t, f.users.tokenUpdates)
}

func TestEnsureValidTokenRefreshesExpiring(t *testing.T) {
	f := newFixture(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/oauth/access_token", r.URL.Path)
		assert.Equal(t, "user-token", r.URL.Query().Get("fb_exchange_token"))
		_ = json.NewEncoder(w).Encode(meta.Token{AccessToken: "fresh-token", ExpiresIn: 3600 * 24})
	})
	user := f.addUser(f.clock.Now().Add(30 * time.Minute))

	token, err := f.svc.EnsureValidToken(context.Background(), user)
	require.NoError(t, err)
	assert.Equal(t, "fresh-token", token)
	assert.Equal(t, 1, f.users.tokenUpdates)

	// The caller's copy is updated in place.
	assert.Equal(t, "fresh-token", user.AccessToken)
	assert.Equal(t, f.clock.Now().Add(24*time.Hour), user.TokenExpiry)
}

func TestSyncPagesDetectsPlatform(t *testing.T) {
	f := newFixture(t, func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{
			"data": []map[string]any{
				{"id": "page-1", "name": "Coffee Corner", "access_token": "t1", "category": "Cafe"},
				{
					"id": "page-2", "name": "Gram Only", "access_token": "t2",
					"instagram_business_account": map[string]any{"id": "ig-1", "username": "gramonly"},
				},
			},
		})
	})
	user := f.addUser(f.clock.Now().Add(48 * time.Hour))

	pages, err := f.svc.SyncPages(context.Background(), user.ID)
	require.NoError(t, err)
	require.Len(t, pages, 2)

	byMetaID := map[string]domain.Page{}
	for _, page := range pages {
		byMetaID[page.MetaPageID] = page
	}
	assert.Equal(t, domain.PlatformFacebook, byMetaID["page-1"].Platform)
	assert.Equal(t, domain.PlatformInstagram, byMetaID["page-2"].Platform)
	assert.True(t, byMetaID["page-1"].Connected)
	assert.Equal(t, user.ID, byMetaID["page-1"].UserID)
}

func TestSyncPostsMapsEngagement(t *testing.T) {
	f := newFixture(t, func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{
			"data": []map[string]any{
				{
					"id": "fb-post-1", "message": "hello", "created_time": "2026-08-01T12:00:00+0000",
					"likes":    map[string]any{"summary": map[string]any{"total_count": 4}},
					"comments": map[string]any{"summary": map[string]any{"total_count": 1}},
					"shares":   map[string]any{"count": 2},
				},
				{"id": "fb-post-2", "story": "updated their cover photo"},
			},
		})
	})
	user := f.addUser(f.clock.Now().Add(48 * time.Hour))
	page := f.addPage(user.ID)

	posts, err := f.svc.SyncPosts(context.Background(), page.ID)
	require.NoError(t, err)
	require.Len(t, posts, 2)

	byMetaID := map[string]domain.Post{}
	for _, post := range posts {
		byMetaID[post.MetaPostID] = post
	}

	first := byMetaID["fb-post-1"]
	assert.Equal(t, "hello", first.Content)
	assert.Equal(t, domain.Engagement{Likes: 4, Comments: 1, Shares: 2}, first.Engagement)
	assert.Equal(t, domain.PostStatusPublished, first.Status)
	require.NotNil(t, first.PublishedAt)

	second := byMetaID["fb-post-2"]
	assert.Equal(t, "updated their cover photo", second.Content)
	assert.Nil(t, second.PublishedAt)
}

func TestSyncReviewsScoresSentiment(t *testing.T) {
	f := newFixture(t, func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{
			"data": []map[string]any{
				{
					"reviewer":         map[string]any{"name": "Alice", "id": "u-1"},
					"rating":           5,
					"review_text":      "amazing coffee, love this place",
					"open_graph_story": map[string]any{"id": "story-1"},
				},
				{
					"reviewer":         map[string]any{"name": "Bob", "id": "u-2"},
					"rating":           1,
					"review_text":      "terrible experience, awful service",
					"open_graph_story": map[string]any{"id": "story-2"},
				},
				// No open graph story, so no stable key: skipped.
				{"reviewer": map[string]any{"name": "Eve"}, "rating": 3},
			},
		})
	})
	user := f.addUser(f.clock.Now().Add(48 * time.Hour))
	page := f.addPage(user.ID)

	reviews, err := f.svc.SyncReviews(context.Background(), page.ID)
	require.NoError(t, err)
	require.Len(t, reviews, 2)

	assert.Equal(t, sentiment.Positive, f.reviews.reviews["story-1"].Sentiment)
	assert.Equal(t, sentiment.Negative, f.reviews.reviews["story-2"].Sentiment)
}

func TestCreatePostDraftByDefault(t *testing.T) {
	f := newFixture(t, nil)
	pageID := uuid.New()

	post, err := f.svc.CreatePost(context.Background(), pageID, "hello", "", nil)
	require.NoError(t, err)
	assert.Equal(t, domain.PostStatusDraft, post.Status)
	assert.Equal(t, "status", post.Type)
	assert.Empty(t, post.MetaPostID)
}

func TestCreatePostScheduledWhenFuture(t *testing.T) {
	f := newFixture(t, nil)

	future := f.clock.Now().Add(2 * time.Hour)
	post, err := f.svc.CreatePost(context.Background(), uuid.New(), "later", "status", &future)
	require.NoError(t, err)
	assert.Equal(t, domain.PostStatusScheduled, post.Status)

	past := f.clock.Now().Add(-2 * time.Hour)
	post, err = f.svc.CreatePost(context.Background(), uuid.New(), "earlier", "status", &past)
	require.NoError(t, err)
	assert.Equal(t, domain.PostStatusDraft, post.Status)
}

func TestCreatePostRequiresContent(t *testing.T) {
	f := newFixture(t, nil)

	_, err := f.svc.CreatePost(context.Background(), uuid.New(), "", "status", nil)
	assert.Error(t, err)
}

func TestPublishPost(t *testing.T) {
	f := newFixture(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/page-1/feed", r.URL.Path)
		_ = json.NewEncoder(w).Encode(map[string]string{"id": "page-1_post-7"})
	})
	user := f.addUser(f.clock.Now().Add(48 * time.Hour))
	page := f.addPage(user.ID)

	draft, err := f.svc.CreatePost(context.Background(), page.ID, "hello", "status", nil)
	require.NoError(t, err)

	published, err := f.svc.PublishPost(context.Background(), draft.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.PostStatusPublished, published.Status)
	assert.Equal(t, "page-1_post-7", published.MetaPostID)
	require.NotNil(t, published.PublishedAt)
	assert.Equal(t, f.clock.Now(), *published.PublishedAt)
}

func TestPublishPostIdempotent(t *testing.T) {
	var calls int
	f := newFixture(t, func(w http.ResponseWriter, r *http.Request) {
		calls++
		_ = json.NewEncoder(w).Encode(map[string]string{"id": "page-1_post-7"})
	})
	user := f.addUser(f.clock.Now().Add(48 * time.Hour))
	page := f.addPage(user.ID)

	draft, err := f.svc.CreatePost(context.Background(), page.ID, "hello", "status", nil)
	require.NoError(t, err)

	_, err = f.svc.PublishPost(context.Background(), draft.ID)
	require.NoError(t, err)
	again, err := f.svc.PublishPost(context.Background(), draft.ID)
	require.NoError(t, err)

	assert.Equal(t, 1, calls)
	assert.Equal(t, domain.PostStatusPublished, again.Status)
}

func TestDeletePostDraft(t *testing.T) {
	f := newFixture(t, nil)
	user := f.addUser(f.clock.Now().Add(48 * time.Hour))
	page := f.addPage(user.ID)

	draft, err := f.svc.CreatePost(context.Background(), page.ID, "never mind", "status", nil)
	require.NoError(t, err)

	require.NoError(t, f.svc.DeletePost(context.Background(), draft.ID))

	_, err = f.posts.GetByID(context.Background(), draft.ID)
	assert.ErrorIs(t, err, domain.ErrPostNotFound)
}

func TestDeletePostPublishedRemovesFromPlatform(t *testing.T) {
	var deleteCalls int
	f := newFixture(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodDelete {
			deleteCalls++
			assert.Equal(t, "/page-1_post-7", r.URL.Path)
			assert.Equal(t, "Bearer page-token", r.Header.Get("Authorization"))
		}
		_ = json.NewEncoder(w).Encode(map[string]string{"id": "page-1_post-7"})
	})
	user := f.addUser(f.clock.Now().Add(48 * time.Hour))
	page := f.addPage(user.ID)

	draft, err := f.svc.CreatePost(context.Background(), page.ID, "hello", "status", nil)
	require.NoError(t, err)
	published, err := f.svc.PublishPost(context.Background(), draft.ID)
	require.NoError(t, err)

	require.NoError(t, f.svc.DeletePost(context.Background(), published.ID))

	assert.Equal(t, 1, deleteCalls)
	_, err = f.posts.GetByID(context.Background(), published.ID)
	assert.ErrorIs(t, err, domain.ErrPostNotFound)
}

func TestPageInsightsDefaults(t *testing.T) {
	f := newFixture(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/page-1/insights", r.URL.Path)
		assert.Equal(t, "page_impressions,page_post_engagements,page_fans", r.URL.Query().Get("metric"))
		assert.Equal(t, "day", r.URL.Query().Get("period"))
		_ = json.NewEncoder(w).Encode(map[string]any{
			"data": []map[string]any{
				{
					"name":   "page_impressions",
					"period": "day",
					"values": []map[string]any{{"value": 1234, "end_time": "2026-08-28T07:00:00+0000"}},
					"title":  "Daily Total Impressions",
				},
			},
		})
	})
	user := f.addUser(f.clock.Now().Add(48 * time.Hour))
	page := f.addPage(user.ID)

	insights, err := f.svc.PageInsights(context.Background(), page.ID, nil, "")
	require.NoError(t, err)
	require.Len(t, insights, 1)
	assert.Equal(t, "page_impressions", insights[0].Name)
	require.Len(t, insights[0].Values, 1)
	assert.Equal(t, float64(1234), insights[0].Values[0].Value)
}

func TestPageInsightsCustomMetrics(t *testing.T) {
	f := newFixture(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "page_fans", r.URL.Query().Get("metric"))
		assert.Equal(t, "week", r.URL.Query().Get("period"))
		_ = json.NewEncoder(w).Encode(map[string]any{"data": []map[string]any{}})
	})
	user := f.addUser(f.clock.Now().Add(48 * time.Hour))
	page := f.addPage(user.ID)

	insights, err := f.svc.PageInsights(context.Background(), page.ID, []string{"page_fans"}, "week")
	require.NoError(t, err)
	assert.Empty(t, insights)
}
