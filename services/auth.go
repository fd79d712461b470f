package services

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/CrowderSoup/kanban/database"
)

// MinPasswordLength is the shortest password accepted at sign up.
const MinPasswordLength = 6

var (
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrEmailTaken         = errors.New("email already registered")
	ErrInvalidEmail       = errors.New("invalid email address")
	ErrWeakPassword       = fmt.Errorf("password must be at least %d characters", MinPasswordLength)
	ErrTokenRevoked       = errors.New("token has been revoked")
	ErrUnknownUser        = errors.New("token subject is not a known user")
)

// UserStore is the persistence AuthService needs.
type UserStore interface {
	CreateUser(id, email, passwordHash string) (*database.User, error)
	GetUserByEmail(email string) (*database.User, error)
	GetUserByID(id string) (*database.User, error)
}

// SessionUser is the public part of a user.
type SessionUser struct {
	ID    string `json:"id"`
	Email string `json:"email"`
}

// Session is what sign in and sign up hand back to clients.
type Session struct {
	AccessToken string      `json:"access_token"`
	ExpiresAt   time.Time   `json:"expires_at"`
	User        SessionUser `json:"user"`
}

// Claims are the JWT claims of an access token.
type Claims struct {
	Email string `json:"email"`
	jwt.RegisteredClaims
}

type AuthService struct {
	users     UserStore
	jwtSecret []byte
	ttl       time.Duration
	now       func() time.Time

	mu      sync.Mutex
	revoked map[string]time.Time // token id -> expiry
}

func NewAuthService(users UserStore, jwtSecret string, ttl time.Duration) *AuthService {
	if ttl <= 0 {
		ttl = 7 * 24 * time.Hour
	}
	return &AuthService{
		users:     users,
		jwtSecret: []byte(jwtSecret),
		ttl:       ttl,
		now:       time.Now,
		revoked:   make(map[string]time.Time),
	}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// SignUp registers a user and opens a session for it.
func (s *AuthService) SignUp(email, password string) (*Session, error) {
	email = normalizeEmail(email)
	if email == "" || !strings.Contains(email, "@") {
		return nil, ErrInvalidEmail
	}
	if len(password) < MinPasswordLength {
		return nil, ErrWeakPassword
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user, err := s.users.CreateUser(uuid.NewString(), email, string(hash))
	if errors.Is(err, database.ErrConflict) {
		return nil, ErrEmailTaken
	}
	if err != nil {
		return nil, err
	}
	return s.newSession(user)
}

// SignIn checks the credentials and opens a session.
func (s *AuthService) SignIn(email, password string) (*Session, error) {
	user, err := s.users.GetUserByEmail(normalizeEmail(email))
	if errors.Is(err, database.ErrNotFound) {
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}
	return s.newSession(user)
}

// SessionFor rebuilds the session of an already verified token.
func (s *AuthService) SessionFor(token string, claims *Claims) *Session {
	var expires time.Time
	if claims.ExpiresAt != nil {
		expires = claims.ExpiresAt.Time
	}
	return &Session{
		AccessToken: token,
		ExpiresAt:   expires,
		User:        SessionUser{ID: claims.Subject, Email: claims.Email},
	}
}

func (s *AuthService) newSession(user *database.User) (*Session, error) {
	token, expires, err := s.CreateJWT(user.ID, user.Email)
	if err != nil {
		return nil, err
	}
	return &Session{
		AccessToken: token,
		ExpiresAt:   expires,
		User:        SessionUser{ID: user.ID, Email: user.Email},
	}, nil
}

// CreateJWT generates an access token for a user
func (s *AuthService) CreateJWT(userID, email string) (string, time.Time, error) {
	now := s.now()
	expires := now.Add(s.ttl)
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		Email: email,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expires),
		},
	})

	tokenString, err := token.SignedString(s.jwtSecret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("failed to sign token: %w", err)
	}
	return tokenString, expires.Truncate(time.Second), nil
}

// VerifyJWT verifies an access token and returns its claims
func (s *AuthService) VerifyJWT(tokenString string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		// Validate signing method
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return s.jwtSecret, nil
	}, jwt.WithTimeFunc(s.now))
	if err != nil {
		return nil, fmt.Errorf("failed to parse token: %w", err)
	}
	if !token.Valid {
		return nil, errors.New("invalid token")
	}
	if claims.Subject == "" {
		return nil, errors.New("subject claim missing")
	}
	if s.isRevoked(claims.ID) {
		return nil, ErrTokenRevoked
	}
	if _, err := s.users.GetUserByID(claims.Subject); err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return nil, ErrUnknownUser
		}
		return nil, fmt.Errorf("failed to look up token subject: %w", err)
	}
	return claims, nil
}

// Revoke invalidates a token until it would have expired anyway.
func (s *AuthService) Revoke(claims *Claims) {
	if claims.ID == "" {
		return
	}
	expires := s.now().Add(s.ttl)
	if claims.ExpiresAt != nil {
		expires = claims.ExpiresAt.Time
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.revoked[claims.ID] = expires
	s.pruneLocked()
}

func (s *AuthService) isRevoked(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.revoked[id]
	return ok
}

// pruneLocked forgets revocations of tokens that have expired.
func (s *AuthService) pruneLocked() {
	now := s.now()
	for id, exp := range s.revoked {
		if now.After(exp) {
			delete(s.revoked, id)
		}
	}
}
