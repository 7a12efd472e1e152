package server

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"log/slog"
	"net/url"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	apperrors "github.com/pagepulse/pagepulse/internal/errors"
)

// Session keys
const (
	sessionName          = "pagepulse-session"
	sessionKeyUserID     = "user_id"
	sessionKeyOAuthState = "oauth_state"
)

const (
	metaAuthURL = "https://www.facebook.com/v18.0/dialog/oauth"
	oauthScopes = "pages_show_list,pages_read_engagement,pages_read_user_content,pages_manage_posts,pages_messaging,business_management"
)

func (s *Server) requireAuth(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		session, err := s.sessionStore.Get(c.Request(), sessionName)
		if err != nil {
			return apperrors.Unauthorized("not authenticated")
		}

		userIDStr, ok := session.Values[sessionKeyUserID].(string)
		if !ok {
			return apperrors.Unauthorized("not authenticated")
		}

		userID, err := uuid.Parse(userIDStr)
		if err != nil {
			return apperrors.Unauthorized("not authenticated")
		}

		c.Set("userID", userID)
		return next(c)
	}
}

func generateOAuthState() (string, error) {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("failed to generate OAuth state: %w", err)
	}
	return hex.EncodeToString(b), nil
}

// handleLogin redirects the browser into the Facebook OAuth dialog.
func (s *Server) handleLogin(c echo.Context) error {
	state, err := generateOAuthState()
	if err != nil {
		return apperrors.Internal("failed to start login", err)
	}

	session, err := s.sessionStore.Get(c.Request(), sessionName)
	if err != nil {
		slog.Warn("Failed to get session for OAuth state", "error", err)
	}
	session.Values[sessionKeyOAuthState] = state
	if err := session.Save(c.Request(), c.Response().Writer); err != nil {
		return apperrors.Internal("failed to save session", err)
	}

	authURL := fmt.Sprintf(
		"%s?client_id=%s&redirect_uri=%s&response_type=code&scope=%s&state=%s",
		metaAuthURL,
		url.QueryEscape(s.config.MetaClientID),
		url.QueryEscape(s.config.MetaRedirectURI),
		url.QueryEscape(oauthScopes),
		url.QueryEscape(state),
	)

	return c.Redirect(302, authURL)
}

// handleOAuthCallback exchanges the code for a long-lived token, fetches the
// Graph profile, and signs the user in.
func (s *Server) handleOAuthCallback(c echo.Context) error {
	code := c.QueryParam("code")
	if code == "" {
		return apperrors.Validation("missing code parameter")
	}

	session, err := s.sessionStore.Get(c.Request(), sessionName)
	if err != nil {
		return apperrors.Validation("invalid session")
	}
	expectedState, ok := session.Values[sessionKeyOAuthState].(string)
	if !ok || expectedState == "" {
		return apperrors.Validation("missing OAuth state")
	}
	if c.QueryParam("state") != expectedState {
		return apperrors.Validation("invalid OAuth state")
	}
	delete(session.Values, sessionKeyOAuthState)

	ctx := c.Request().Context()

	token, err := s.meta.ExchangeCode(ctx, code, s.config.MetaRedirectURI)
	if err != nil {
		slog.Error("OAuth code exchange failed", "error", err)
		return apperrors.External("failed to authenticate with Meta", err)
	}

	me, err := s.meta.GetMe(ctx, token.AccessToken)
	if err != nil {
		slog.Error("Profile fetch failed", "error", err)
		return apperrors.External("failed to load profile", err)
	}

	tokenExpiry := time.Now().Add(time.Duration(token.ExpiresIn) * time.Second)
	user, err := s.repos.Users.Upsert(ctx, me.ID, me.Name, me.Email, me.Picture.Data.URL, token.AccessToken, tokenExpiry)
	if err != nil {
		return apperrors.Internal("failed to save user", err)
	}

	session.Values[sessionKeyUserID] = user.ID.String()
	if err := session.Save(c.Request(), c.Response().Writer); err != nil {
		return apperrors.Internal("failed to save session", err)
	}

	slog.Info("User signed in", "user_id", user.ID)
	return c.Redirect(302, "/")
}

func (s *Server) handleLogout(c echo.Context) error {
	session, err := s.sessionStore.Get(c.Request(), sessionName)
	if err != nil {
		slog.Warn("Failed to get session during logout", "error", err)
		session, err = s.sessionStore.New(c.Request(), sessionName)
		if err != nil {
			slog.Error("Failed to create new session during logout", "error", err)
		}
	}
	session.Options.MaxAge = -1

	if err := session.Save(c.Request(), c.Response().Writer); err != nil {
		return apperrors.Internal("failed to clear session", err)
	}

	return c.JSON(200, map[string]string{"status": "ok"})
}

func (s *Server) handleMe(c echo.Context) error {
	userID := c.Get("userID").(uuid.UUID)

	user, err := s.repos.Users.GetByID(c.Request().Context(), userID)
	if err != nil {
		return apperrors.Internal("failed to load user", err)
	}

	return c.JSON(200, map[string]any{
		"id":      user.ID,
		"name":    user.Name,
		"email":   user.Email,
		"picture": user.Picture,
	})
}
