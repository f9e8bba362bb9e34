package auth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIssueAndValidateToken(t *testing.T) {
	service := NewService([]byte("test-secret"), time.Hour)

	t.Run("round trip", func(t *testing.T) {
		token, err := service.IssueToken("player-1")
		require.NoError(t, err)

		playerID, err := service.ValidateToken(token)
		require.NoError(t, err)
		assert.Equal(t, "player-1", playerID)
	})

	t.Run("missing subject", func(t *testing.T) {
		_, err := service.IssueToken("")
		assert.ErrorIs(t, err, ErrMissingSubject)
	})

	t.Run("wrong secret", func(t *testing.T) {
		other := NewService([]byte("other-secret"), time.Hour)
		token, err := other.IssueToken("player-1")
		require.NoError(t, err)

		_, err = service.ValidateToken(token)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("expired", func(t *testing.T) {
		expired := NewService([]byte("test-secret"), time.Hour)
		expired.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }
		token, err := expired.IssueToken("player-1")
		require.NoError(t, err)

		_, err = service.ValidateToken(token)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("garbage", func(t *testing.T) {
		_, err := service.ValidateToken("invalid-token")
		assert.ErrorIs(t, err, ErrInvalidToken)
	})
}

func TestMiddleware(t *testing.T) {
	service := NewService([]byte("test-secret"), time.Hour)
	token, err := service.IssueToken("player-7")
	require.NoError(t, err)

	var seen string
	handler := service.Middleware(service.RequireAuth(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = PlayerIDFromContext(r.Context())
	})))

	tests := []struct {
		name     string
		prepare  func(r *http.Request)
		status   int
		expected string
	}{
		{"bearer header", func(r *http.Request) { r.Header.Set("Authorization", "Bearer "+token) }, http.StatusOK, "player-7"},
		{"query token", func(r *http.Request) { r.URL.RawQuery = "access_token=" + token }, http.StatusOK, "player-7"},
		{"no credentials", func(r *http.Request) {}, http.StatusUnauthorized, ""},
		{"malformed header", func(r *http.Request) { r.Header.Set("Authorization", "Token abc") }, http.StatusUnauthorized, ""},
		{"bad token", func(r *http.Request) { r.Header.Set("Authorization", "Bearer nope") }, http.StatusUnauthorized, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			seen = ""
			req := httptest.NewRequest(http.MethodGet, "/me", nil)
			tt.prepare(req)
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)
			assert.Equal(t, tt.status, rec.Code)
			assert.Equal(t, tt.expected, seen)
		})
	}
}

func TestPlayerIDContext(t *testing.T) {
	ctx := context.Background()
	assert.Empty(t, PlayerIDFromContext(ctx))

	ctx = WithPlayerID(ctx, "alice")
	assert.Equal(t, "alice", PlayerIDFromContext(ctx))

	// a plain string key cannot collide with the player entry
	ctx = context.WithValue(ctx, "playerID", "mallory")
	assert.Equal(t, "alice", PlayerIDFromContext(ctx))
}
