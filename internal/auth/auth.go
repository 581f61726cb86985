// Package auth issues and verifies the stateless session tokens carried in
// an HttpOnly cookie.
package auth

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const sessionCookie = "ideafeed_token"

var ErrInvalidToken = errors.New("auth: invalid token")

type Manager struct {
	secret []byte
	maxAge time.Duration
}

func NewManager(secret string, maxAge time.Duration) *Manager {
	return &Manager{secret: []byte(secret), maxAge: maxAge}
}

// Issue signs a token for userID and returns it with its expiry.
func (m *Manager) Issue(userID string) (string, time.Time, error) {
	now := time.Now()
	expires := now.Add(m.maxAge)
	claims := jwt.RegisteredClaims{
		Subject:   userID,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(expires),
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.secret)
	if err != nil {
		return "", time.Time{}, err
	}
	return token, expires, nil
}

// Verify parses the token and returns the user ID it was issued for.
func (m *Manager) Verify(token string) (string, error) {
	var claims jwt.RegisteredClaims
	parsed, err := jwt.ParseWithClaims(token, &claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return m.secret, nil
	})
	if err != nil || !parsed.Valid || claims.Subject == "" {
		return "", ErrInvalidToken
	}
	return claims.Subject, nil
}

// Create issues a token for userID and sets it as the session cookie.
func (m *Manager) Create(w http.ResponseWriter, userID string) error {
	token, expires, err := m.Issue(userID)
	if err != nil {
		return err
	}
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookie,
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		Secure:   false,
		SameSite: http.SameSiteLaxMode,
		Expires:  expires,
	})
	return nil
}

// Destroy clears the session cookie. Tokens are stateless, so there is
// nothing server-side to revoke.
func (m *Manager) Destroy(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookie,
		Value:    "",
		Path:     "/",
		HttpOnly: true,
		Expires:  time.Unix(0, 0),
	})
}

// CurrentUserID returns the user ID from the request's session cookie, if a
// valid one is present.
func (m *Manager) CurrentUserID(r *http.Request) (string, bool) {
	c, err := r.Cookie(sessionCookie)
	if err != nil || c.Value == "" {
		return "", false
	}
	uid, err := m.Verify(c.Value)
	if err != nil {
		return "", false
	}
	return uid, true
}
