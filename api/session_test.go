package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"testing"
	"time"

	"github.com/Domenick1991/barberbooking/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// MockSessions is a mock implementation of Sessions
type MockSessions struct {
	mock.Mock
}

func (m *MockSessions) HandleRedirect(ctx context.Context, location *url.URL) (*url.URL, bool) {
	args := m.Called(ctx, location)
	return args.Get(0).(*url.URL), args.Bool(1)
}

func (m *MockSessions) Credential() (domain.Credential, bool) {
	args := m.Called()
	return args.Get(0).(domain.Credential), args.Bool(1)
}

func (m *MockSessions) Logout(ctx context.Context) {
	m.Called(ctx)
}

func TestSessionHandler_login(t *testing.T) {
	handler := NewSessionHandler(&MockSessions{}, "http://api.local/oauth2/authorization/google", "/")
	c, w := newTestContext("GET", "/auth/login", nil)

	handler.login(c)

	assert.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, "http://api.local/oauth2/authorization/google", w.Header().Get("Location"))
}

func TestSessionHandler_callback(t *testing.T) {
	testCases := []struct {
		name       string
		target     string
		stripped   string
		afterLogin string
		expected   string
	}{
		{
			name:       "token only",
			target:     "/auth/callback?token=abc",
			stripped:   "/auth/callback",
			afterLogin: "/",
			expected:   "/",
		},
		{
			name:       "keeps other parameters",
			target:     "/auth/callback?token=abc&shop=s-1",
			stripped:   "/auth/callback?shop=s-1",
			afterLogin: "http://localhost:5173/",
			expected:   "http://localhost:5173/?shop=s-1",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			sessions := &MockSessions{}
			handler := NewSessionHandler(sessions, "http://api.local/login", tc.afterLogin)
			c, w := newTestContext("GET", tc.target, nil)

			stripped, err := url.Parse(tc.stripped)
			require.NoError(t, err)
			sessions.On("HandleRedirect", c.Request.Context(), c.Request.URL).Return(stripped, true).Once()

			handler.callback(c)

			assert.Equal(t, http.StatusFound, w.Code)
			assert.Equal(t, tc.expected, w.Header().Get("Location"))
			assert.NotContains(t, w.Header().Get("Location"), "token=")
			sessions.AssertExpectations(t)
		})
	}
}

func TestSessionHandler_current(t *testing.T) {
	t.Run("authenticated", func(t *testing.T) {
		sessions := &MockSessions{}
		handler := NewSessionHandler(sessions, "", "/")
		c, w := newTestContext("GET", "/session", nil)

		sessions.On("Credential").Return(domain.Credential{
			Raw:       "raw",
			Identity:  domain.Identity{Email: "ana@example.com", Picture: "https://cdn/ana.png"},
			ExpiresAt: time.Date(2025, 3, 10, 13, 0, 0, 0, time.UTC),
		}, true)

		handler.current(c)

		assert.Equal(t, http.StatusOK, w.Code)
		var response sessionResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
		assert.True(t, response.Authenticated)
		assert.Equal(t, "ana@example.com", response.Email)
		assert.Equal(t, "ana@example.com", response.DisplayName)
		assert.Equal(t, "2025-03-10T13:00:00Z", response.ExpiresAt)
		assert.NotContains(t, w.Body.String(), "raw")
	})

	t.Run("anonymous", func(t *testing.T) {
		sessions := &MockSessions{}
		handler := NewSessionHandler(sessions, "", "/")
		c, w := newTestContext("GET", "/session", nil)
		sessions.On("Credential").Return(domain.Credential{}, false)

		handler.current(c)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.JSONEq(t, `{"authenticated":false}`, w.Body.String())
	})
}

func TestSessionHandler_logout(t *testing.T) {
	sessions := &MockSessions{}
	hookCalled := false
	handler := NewSessionHandler(sessions, "", "/", OnLogout(func(context.Context) { hookCalled = true }))
	c, _ := newTestContext("POST", "/session/logout", nil)
	sessions.On("Logout", c.Request.Context()).Once()

	handler.logout(c)

	assert.Equal(t, http.StatusNoContent, c.Writer.Status())
	assert.True(t, hookCalled)
	sessions.AssertExpectations(t)
}
