package auth

import (
	"errors"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// SessionCookieName is the cookie carrying the signed session token.
const SessionCookieName = "canteen_session"

// Claims represents the session token claims.
type Claims struct {
	UserID   uint   `json:"user_id"`
	Username string `json:"username"`
	jwt.RegisteredClaims
}

// Session is a freshly issued session token.
type Session struct {
	ID        string
	Token     string
	ExpiresAt time.Time
}

// SessionManager signs and validates session tokens with the application secret key.
type SessionManager struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewSessionManager creates a session manager issuing tokens valid for ttl.
func NewSessionManager(secret string, ttl time.Duration) *SessionManager {
	return &SessionManager{
		secret: []byte(secret),
		ttl:    ttl,
		now:    time.Now,
	}
}

// SigningKey returns the HMAC key used to sign tokens.
func (m *SessionManager) SigningKey() []byte {
	return m.secret
}

// Issue generates a new session token for the user.
func (m *SessionManager) Issue(userID uint, username string) (*Session, error) {
	now := m.now()
	expiresAt := now.Add(m.ttl)
	id := uuid.New().String()

	claims := &Claims{
		UserID:   userID,
		Username: username,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        id,
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
		},
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.secret)
	if err != nil {
		return nil, err
	}
	return &Session{ID: id, Token: token, ExpiresAt: expiresAt}, nil
}

// Parse validates a session token and returns its claims.
func (m *SessionManager) Parse(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		return m.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithTimeFunc(m.now))
	if err != nil {
		return nil, err
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, errors.New("invalid token")
	}
	if claims.ID == "" || claims.UserID == 0 {
		return nil, errors.New("incomplete session claims")
	}
	return claims, nil
}

// Cookie wraps a session in an HttpOnly cookie.
func (m *SessionManager) Cookie(s *Session) *http.Cookie {
	return &http.Cookie{
		Name:     SessionCookieName,
		Value:    s.Token,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		Expires:  s.ExpiresAt,
	}
}

// ExpiredCookie deletes the session cookie in the browser.
func (m *SessionManager) ExpiredCookie() *http.Cookie {
	return &http.Cookie{
		Name:     SessionCookieName,
		Value:    "",
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		Expires:  time.Unix(0, 0),
		MaxAge:   -1,
	}
}

// RemainingTTL returns how long the claims stay valid.
func (m *SessionManager) RemainingTTL(claims *Claims) time.Duration {
	if claims.ExpiresAt == nil {
		return m.ttl
	}
	if d := claims.ExpiresAt.Sub(m.now()); d > 0 {
		return d
	}
	return 0
}
