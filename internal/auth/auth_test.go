package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/umar/campus-chat/internal/models"
)

const secret = "test-secret"

func TestGenerateAndValidateToken(t *testing.T) {
	token, err := GenerateToken(42, "someone@campus.edu", secret, time.Hour)
	require.NoError(t, err)

	claims, err := ValidateToken(token, secret)
	require.NoError(t, err)
	assert.Equal(t, int64(42), claims.UserID)
	assert.Equal(t, "someone@campus.edu", claims.Email)
}

func TestValidateToken_Rejects(t *testing.T) {
	expired, err := GenerateToken(42, "someone@campus.edu", secret, -time.Minute)
	require.NoError(t, err)
	otherSecret, err := GenerateToken(42, "someone@campus.edu", "other", time.Hour)
	require.NoError(t, err)
	noUser, err := GenerateToken(0, "someone@campus.edu", secret, time.Hour)
	require.NoError(t, err)

	for name, token := range map[string]string{
		"empty":        "",
		"garbage":      "not-a-jwt",
		"expired":      expired,
		"wrong secret": otherSecret,
		"no user id":   noUser,
	} {
		t.Run(name, func(t *testing.T) {
			_, err := ValidateToken(token, secret)
			assert.ErrorIs(t, err, ErrInvalidToken)
		})
	}
}

func TestJWTMiddleware(t *testing.T) {
	var got models.Caller
	h := JWTMiddleware(secret)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		c, ok := CallerFromContext(r.Context())
		require.True(t, ok)
		got = c
		w.WriteHeader(http.StatusNoContent)
	}))

	token, err := GenerateToken(7, "seller@campus.edu", secret, time.Hour)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/api/users/chats", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, models.Caller{ID: 7, Email: "seller@campus.edu"}, got)

	for _, header := range []string{"", "Bearer", "Basic abc", "Bearer nope"} {
		req := httptest.NewRequest(http.MethodGet, "/api/users/chats", nil)
		if header != "" {
			req.Header.Set("Authorization", header)
		}
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusUnauthorized, rec.Code, "header %q", header)
	}
}
