package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIssueAndVerify(t *testing.T) {
	m := NewManager("test-secret", time.Hour)

	token, expires, err := m.Issue("user-1")
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(time.Hour), expires, time.Minute)

	uid, err := m.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, "user-1", uid)
}

func TestVerify_RejectsBadTokens(t *testing.T) {
	m := NewManager("test-secret", time.Hour)

	_, err := m.Verify("not-a-token")
	assert.ErrorIs(t, err, ErrInvalidToken)

	other := NewManager("other-secret", time.Hour)
	token, _, err := other.Issue("user-1")
	require.NoError(t, err)
	_, err = m.Verify(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestVerify_RejectsExpired(t *testing.T) {
	m := NewManager("test-secret", -time.Minute)
	token, _, err := m.Issue("user-1")
	require.NoError(t, err)

	_, err = m.Verify(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestCookieRoundTrip(t *testing.T) {
	m := NewManager("test-secret", time.Hour)

	rec := httptest.NewRecorder()
	require.NoError(t, m.Create(rec, "user-1"))
	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.True(t, cookies[0].HttpOnly)

	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.AddCookie(cookies[0])
	uid, ok := m.CurrentUserID(r)
	assert.True(t, ok)
	assert.Equal(t, "user-1", uid)
}

func TestCurrentUserID_NoCookie(t *testing.T) {
	m := NewManager("test-secret", time.Hour)
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	_, ok := m.CurrentUserID(r)
	assert.False(t, ok)
}

func TestDestroy_ClearsCookie(t *testing.T) {
	m := NewManager("test-secret", time.Hour)
	rec := httptest.NewRecorder()
	m.Destroy(rec)

	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Empty(t, cookies[0].Value)
	assert.True(t, cookies[0].Expires.Before(time.Now()))
}
