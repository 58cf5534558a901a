package api

import (
	"context"
	"net/http"
	"net/url"
	"time"

	"github.com/Domenick1991/barberbooking/internal/domain"
	"github.com/gin-gonic/gin"
)

// Sessions is the part of the session manager the bridge drives.
type Sessions interface {
	HandleRedirect(ctx context.Context, location *url.URL) (*url.URL, bool)
	Credential() (domain.Credential, bool)
	Logout(ctx context.Context)
}

type SessionHandler struct {
	sessions   Sessions
	loginURL   string
	afterLogin string
	onLogout   func(ctx context.Context)
}

type sessionResponse struct {
	Authenticated bool   `json:"authenticated"`
	Email         string `json:"email,omitempty"`
	Name          string `json:"name,omitempty"`
	DisplayName   string `json:"displayName,omitempty"`
	Picture       string `json:"picture,omitempty"`
	ExpiresAt     string `json:"expiresAt,omitempty"`
}

type SessionOption func(*SessionHandler)

// OnLogout registers a hook run after the session is cleared.
func OnLogout(fn func(ctx context.Context)) SessionOption {
	return func(h *SessionHandler) {
		h.onLogout = fn
	}
}

func NewSessionHandler(sessions Sessions, loginURL, afterLogin string, opts ...SessionOption) *SessionHandler {
	h := &SessionHandler{
		sessions:   sessions,
		loginURL:   loginURL,
		afterLogin: afterLogin,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

func (h *SessionHandler) Register(router *gin.RouterGroup) {
	router.GET("/auth/login", h.login)
	router.GET("/auth/callback", h.callback)
	router.GET("/session", h.current)
	router.POST("/session/logout", h.logout)
}

func (h *SessionHandler) login(c *gin.Context) {
	c.Redirect(http.StatusFound, h.loginURL)
}

// callback receives the OAuth hand-off and sends the browser on without the token.
func (h *SessionHandler) callback(c *gin.Context) {
	stripped, _ := h.sessions.HandleRedirect(c.Request.Context(), c.Request.URL)
	c.Redirect(http.StatusFound, h.redirectTarget(stripped))
}

func (h *SessionHandler) current(c *gin.Context) {
	cred, ok := h.sessions.Credential()
	if !ok {
		c.JSON(http.StatusOK, sessionResponse{Authenticated: false})
		return
	}

	c.JSON(http.StatusOK, sessionResponse{
		Authenticated: true,
		Email:         cred.Identity.Email,
		Name:          cred.Identity.Name,
		DisplayName:   cred.Identity.DisplayName(),
		Picture:       cred.Identity.Picture,
		ExpiresAt:     cred.ExpiresAt.UTC().Format(time.RFC3339),
	})
}

func (h *SessionHandler) logout(c *gin.Context) {
	h.sessions.Logout(c.Request.Context())
	if h.onLogout != nil {
		h.onLogout(c.Request.Context())
	}
	c.Status(http.StatusNoContent)
}

// redirectTarget is the post-login page carrying whatever query the callback
// received besides the token.
func (h *SessionHandler) redirectTarget(stripped *url.URL) string {
	target, err := url.Parse(h.afterLogin)
	if err != nil {
		return "/"
	}
	if stripped != nil && stripped.RawQuery != "" && target.RawQuery == "" {
		target.RawQuery = stripped.RawQuery
	}
	return target.String()
}
