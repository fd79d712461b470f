package services

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/CrowderSoup/kanban/database"
)

type memUsers struct {
	mu    sync.Mutex
	users map[string]*database.User
}

func newMemUsers() *memUsers {
	return &memUsers{users: make(map[string]*database.User)}
}

func (m *memUsers) CreateUser(id, email, hash string) (*database.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.Email == email {
			return nil, database.ErrConflict
		}
	}
	u := &database.User{ID: id, Email: email, PasswordHash: hash}
	m.users[id] = u
	return u, nil
}

func (m *memUsers) GetUserByEmail(email string) (*database.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.Email == email {
			return u, nil
		}
	}
	return nil, database.ErrNotFound
}

func (m *memUsers) GetUserByID(id string) (*database.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if u, ok := m.users[id]; ok {
		return u, nil
	}
	return nil, database.ErrNotFound
}

func TestSignUpAndSignIn(t *testing.T) {
	auth := NewAuthService(newMemUsers(), "test-secret", time.Hour)

	session, err := auth.SignUp(" Ana@Example.com ", "hunter22")
	require.NoError(t, err)
	assert.Equal(t, "ana@example.com", session.User.Email)
	assert.NotEmpty(t, session.User.ID)
	assert.NotEmpty(t, session.AccessToken)

	claims, err := auth.VerifyJWT(session.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, session.User.ID, claims.Subject)
	assert.Equal(t, "ana@example.com", claims.Email)

	again, err := auth.SignIn("ana@example.com", "hunter22")
	require.NoError(t, err)
	assert.Equal(t, session.User.ID, again.User.ID)

	_, err = auth.SignIn("ana@example.com", "wrong-password")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	_, err = auth.SignIn("nobody@example.com", "hunter22")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestSignUpValidation(t *testing.T) {
	auth := NewAuthService(newMemUsers(), "test-secret", time.Hour)

	_, err := auth.SignUp("not-an-email", "hunter22")
	assert.ErrorIs(t, err, ErrInvalidEmail)
	_, err = auth.SignUp("ana@example.com", "short")
	assert.ErrorIs(t, err, ErrWeakPassword)

	_, err = auth.SignUp("ana@example.com", "hunter22")
	require.NoError(t, err)
	_, err = auth.SignUp("ANA@example.com", "hunter22")
	assert.ErrorIs(t, err, ErrEmailTaken)
}

func TestVerifyJWTRejectsBadTokens(t *testing.T) {
	auth := NewAuthService(newMemUsers(), "test-secret", time.Hour)
	other := NewAuthService(newMemUsers(), "other-secret", time.Hour)

	token, _, err := other.CreateJWT("u1", "ana@example.com")
	require.NoError(t, err)
	_, err = auth.VerifyJWT(token)
	assert.Error(t, err)

	_, err = auth.VerifyJWT("garbage")
	assert.Error(t, err)
}

func TestVerifyJWTExpiry(t *testing.T) {
	auth := NewAuthService(newMemUsers(), "test-secret", time.Hour)
	now := time.Now()
	auth.now = func() time.Time { return now }

	token, expires, err := auth.CreateJWT("u1", "ana@example.com")
	require.NoError(t, err)
	assert.WithinDuration(t, now.Add(time.Hour), expires, time.Second)

	auth.now = func() time.Time { return now.Add(2 * time.Hour) }
	_, err = auth.VerifyJWT(token)
	assert.Error(t, err)
}

func TestRevoke(t *testing.T) {
	auth := NewAuthService(newMemUsers(), "test-secret", time.Hour)

	session, err := auth.SignUp("ana@example.com", "hunter22")
	require.NoError(t, err)
	claims, err := auth.VerifyJWT(session.AccessToken)
	require.NoError(t, err)

	auth.Revoke(claims)
	_, err = auth.VerifyJWT(session.AccessToken)
	assert.ErrorIs(t, err, ErrTokenRevoked)

	// a fresh sign in still works
	fresh, err := auth.SignIn("ana@example.com", "hunter22")
	require.NoError(t, err)
	_, err = auth.VerifyJWT(fresh.AccessToken)
	assert.NoError(t, err)
}

func TestVerifyJWTRejectsUnknownUser(t *testing.T) {
	users := newMemUsers()
	auth := NewAuthService(users, "test-secret", time.Hour)

	token, _, err := auth.CreateJWT("gone", "gone@example.com")
	require.NoError(t, err)
	_, err = auth.VerifyJWT(token)
	assert.ErrorIs(t, err, ErrUnknownUser)

	_, err = users.CreateUser("gone", "gone@example.com", "hash")
	require.NoError(t, err)
	_, err = auth.VerifyJWT(token)
	assert.NoError(t, err)
}

func TestSessionFor(t *testing.T) {
	users := newMemUsers()
	_, err := users.CreateUser("u1", "ana@example.com", "hash")
	require.NoError(t, err)
	auth := NewAuthService(users, "test-secret", time.Hour)
	token, expires, err := auth.CreateJWT("u1", "ana@example.com")
	require.NoError(t, err)
	claims, err := auth.VerifyJWT(token)
	require.NoError(t, err)

	s := auth.SessionFor(token, claims)
	assert.Equal(t, token, s.AccessToken)
	assert.Equal(t, "u1", s.User.ID)
	assert.True(t, expires.Equal(s.ExpiresAt))
}
