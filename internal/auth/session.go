// Package auth issues and verifies the encrypted session cookie that carries
// a user's tenant membership across requests.
package auth

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/hkdf"

	"github.com/kiranshivaraju/loghunter/internal/config"
)

// sessionHKDFInfo domain-separates the derived cookie encryption key from
// any other secret derived from the same NEXTAUTH_SECRET.
const sessionHKDFInfo = "loghunter-session-cookie-v1"

// ErrInvalidSession is returned when a cookie is missing, expired, or
// fails decryption/signature verification.
var ErrInvalidSession = errors.New("auth: invalid session")

// Session is the set of claims carried inside the cookie. TenantID and
// Role become the tenancy.Context for every request scoped to this user.
type Session struct {
	UserID     uuid.UUID
	Email      string
	Name       string
	TenantID   uuid.UUID
	TenantSlug string
	Role       string
}

type claims struct {
	jwt.RegisteredClaims
	UserID     string `json:"uid"`
	Email      string `json:"email"`
	Name       string `json:"name"`
	TenantID   string `json:"tid"`
	TenantSlug string `json:"tslug"`
	Role       string `json:"role"`
}

// Manager signs and encrypts session cookies for one cookie name/secret.
// The JWT layer gives the claims a signature and expiry; the AES-GCM layer
// on top keeps the claims themselves (email, name, role) unreadable to
// anyone who only has the cookie, not the NEXTAUTH_SECRET.
type Manager struct {
	signKey    []byte
	aead       cipher.AEAD
	cookieName string
	maxAge     time.Duration
	secure     bool
}

// NewManager builds a Manager from auth config. secure controls the
// cookie's Secure flag; pass false only for local HTTP development.
func NewManager(cfg config.AuthConfig, secure bool) *Manager {
	secret := []byte(cfg.SessionSecret)
	encKey := make([]byte, 32)
	if _, err := io.ReadFull(hkdf.New(sha256.New, secret, nil, []byte(sessionHKDFInfo)), encKey); err != nil {
		panic("auth: derive session encryption key: " + err.Error())
	}
	block, err := aes.NewCipher(encKey)
	if err != nil {
		panic("auth: build AES cipher: " + err.Error())
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		panic("auth: build AES-GCM AEAD: " + err.Error())
	}

	return &Manager{
		signKey:    secret,
		aead:       aead,
		cookieName: cfg.CookieName,
		maxAge:     cfg.MaxAge,
		secure:     secure,
	}
}

// Issue signs s, encrypts the signed token, and writes it to the response
// as an HTTP-only cookie.
func (m *Manager) Issue(w http.ResponseWriter, s Session) error {
	now := time.Now()
	c := claims{
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(m.maxAge)),
		},
		UserID:     s.UserID.String(),
		Email:      s.Email,
		Name:       s.Name,
		TenantID:   s.TenantID.String(),
		TenantSlug: s.TenantSlug,
		Role:       s.Role,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, c)
	signed, err := token.SignedString(m.signKey)
	if err != nil {
		return err
	}

	sealed, err := m.seal([]byte(signed))
	if err != nil {
		return err
	}

	http.SetCookie(w, &http.Cookie{
		Name:     m.cookieName,
		Value:    sealed,
		Path:     "/",
		MaxAge:   int(m.maxAge.Seconds()),
		HttpOnly: true,
		Secure:   m.secure,
		SameSite: http.SameSiteLaxMode,
	})
	return nil
}

// Clear expires the session cookie, logging the caller out.
func (m *Manager) Clear(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     m.cookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   m.secure,
		SameSite: http.SameSiteLaxMode,
	})
}

// FromRequest reads, decrypts, and verifies the session cookie, returning
// ErrInvalidSession if it is missing or unusable.
func (m *Manager) FromRequest(r *http.Request) (Session, error) {
	cookie, err := r.Cookie(m.cookieName)
	if err != nil || cookie.Value == "" {
		return Session{}, ErrInvalidSession
	}
	signed, err := m.open(cookie.Value)
	if err != nil {
		return Session{}, ErrInvalidSession
	}
	return m.parse(signed)
}

// seal encrypts plaintext under a random nonce and returns it base64url-encoded
// with the nonce prepended.
func (m *Manager) seal(plaintext []byte) (string, error) {
	nonce := make([]byte, m.aead.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return "", err
	}
	sealed := m.aead.Seal(nonce, nonce, plaintext, nil)
	return base64.RawURLEncoding.EncodeToString(sealed), nil
}

// open reverses seal, returning ErrInvalidSession on any tamper or format error.
func (m *Manager) open(value string) (string, error) {
	raw, err := base64.RawURLEncoding.DecodeString(value)
	if err != nil {
		return "", ErrInvalidSession
	}
	nonceSize := m.aead.NonceSize()
	if len(raw) < nonceSize {
		return "", ErrInvalidSession
	}
	nonce, ciphertext := raw[:nonceSize], raw[nonceSize:]
	plaintext, err := m.aead.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return "", ErrInvalidSession
	}
	return string(plaintext), nil
}

func (m *Manager) parse(raw string) (Session, error) {
	c := &claims{}
	token, err := jwt.ParseWithClaims(raw, c, func(t *jwt.Token) (interface{}, error) {
		return m.signKey, nil
	})
	if err != nil || !token.Valid {
		return Session{}, ErrInvalidSession
	}

	userID, err := uuid.Parse(c.UserID)
	if err != nil {
		return Session{}, ErrInvalidSession
	}
	tenantID, err := uuid.Parse(c.TenantID)
	if err != nil {
		return Session{}, ErrInvalidSession
	}

	return Session{
		UserID:     userID,
		Email:      c.Email,
		Name:       c.Name,
		TenantID:   tenantID,
		TenantSlug: c.TenantSlug,
		Role:       c.Role,
	}, nil
}
