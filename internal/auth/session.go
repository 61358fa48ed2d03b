// Package auth provides the mocked login session that supplies the staff id
// for new reports.
//
// There is no identity provider: any non-empty email logs in as the fixed
// paramedic user. The session keeps an AES-GCM encrypted token so the token
// handling path matches what a real backend would require.
package auth

import (
	"context"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"

	"golang.org/x/crypto/hkdf"
)

// mockToken is the bearer token every login receives.
const mockToken = "mock-jwt-token"

// ErrEmailRequired is returned by Login for a blank email.
var ErrEmailRequired = errors.New("email is required")

// User is the logged-in staff member.
type User struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Role  string `json:"role"`
	Email string `json:"email"`
}

// Session holds the current user and encrypted token.
//
// Thread-safety: all methods are safe for concurrent use.
type Session struct {
	aead   cipher.AEAD
	logger *slog.Logger

	mu    sync.RWMutex
	user  *User
	token string
}

// NewSession creates a logged-out session whose tokens are sealed with a key
// derived from encryptionKey.
func NewSession(encryptionKey string, logger *slog.Logger) (*Session, error) {
	if encryptionKey == "" {
		return nil, errors.New("encryption key is required")
	}
	if logger == nil {
		logger = slog.Default()
	}

	key := make([]byte, 32)
	kdf := hkdf.New(sha256.New, []byte(encryptionKey), nil, []byte("epcr session token"))
	if _, err := io.ReadFull(kdf, key); err != nil {
		return nil, fmt.Errorf("failed to derive token key: %w", err)
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("failed to create cipher: %w", err)
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCM: %w", err)
	}

	return &Session{aead: aead, logger: logger}, nil
}

// Login accepts any password and signs in as the mock paramedic.
func (s *Session) Login(ctx context.Context, email, password string) (User, error) {
	if err := ctx.Err(); err != nil {
		return User{}, err
	}
	email = strings.TrimSpace(email)
	if email == "" {
		return User{}, ErrEmailRequired
	}

	token, err := s.seal(mockToken)
	if err != nil {
		return User{}, fmt.Errorf("login failed: %w", err)
	}

	u := User{
		ID:    "1",
		Name:  "John Doe",
		Role:  "Paramedic",
		Email: email,
	}

	s.mu.Lock()
	s.user = &u
	s.token = token
	s.mu.Unlock()

	s.logger.Debug("logged in", "user_id", u.ID, "email", u.Email)
	return u, nil
}

// Logout clears the user and token.
func (s *Session) Logout() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.user = nil
	s.token = ""
}

// IsAuthenticated reports whether a user is logged in.
func (s *Session) IsAuthenticated() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.user != nil
}

// User returns the logged-in user.
func (s *Session) User() (User, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.user == nil {
		return User{}, false
	}
	return *s.user, true
}

// StaffID returns the logged-in user's id, or "" when logged out.
func (s *Session) StaffID() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.user == nil {
		return ""
	}
	return s.user.ID
}

// Token returns the encrypted token, or "" when logged out.
func (s *Session) Token() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token
}

// OpenToken decrypts a token produced by this session's key.
func (s *Session) OpenToken(token string) (string, error) {
	raw, err := base64.StdEncoding.DecodeString(token)
	if err != nil {
		return "", fmt.Errorf("invalid token encoding: %w", err)
	}
	n := s.aead.NonceSize()
	if len(raw) < n {
		return "", errors.New("invalid token: too short")
	}
	plain, err := s.aead.Open(nil, raw[:n], raw[n:], nil)
	if err != nil {
		return "", fmt.Errorf("invalid token: %w", err)
	}
	return string(plain), nil
}

// seal encrypts plain as base64(nonce || ciphertext).
func (s *Session) seal(plain string) (string, error) {
	nonce := make([]byte, s.aead.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return "", fmt.Errorf("failed to generate nonce: %w", err)
	}
	sealed := s.aead.Seal(nonce, nonce, []byte(plain), nil)
	return base64.StdEncoding.EncodeToString(sealed), nil
}
