package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"constitution-chat-be/internal/dto"
	"constitution-chat-be/internal/entity"
	"constitution-chat-be/internal/pkg/serverutils"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

type fakeEmailService struct {
	mu    sync.Mutex
	sent  []string
	fail  bool
	calls int
}

func (f *fakeEmailService) SendWelcomeEmail(toEmail, fullName string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.fail {
		return assert.AnError
	}
	f.sent = append(f.sent, toEmail)
	return nil
}

func (f *fakeEmailService) sentCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.sent)
}

func newAuthFixture() (*memoryStore, *fakeEmailService, IAuthService) {
	store := newMemoryStore()
	email := &fakeEmailService{}
	svc := NewAuthService(&fakeFactory{store: store}, email, nil)
	return store, email, svc
}

func seedUser(store *memoryStore, email, password string) *entity.User {
	hash, _ := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	hashStr := string(hash)
	user := &entity.User{
		Id:           uuid.New(),
		Email:        email,
		FullName:     "Seeded User",
		PasswordHash: &hashStr,
		CreatedAt:    time.Now(),
	}
	store.mu.Lock()
	store.users[user.Id] = user
	store.mu.Unlock()
	return user
}

func TestRegister(t *testing.T) {
	store, email, svc := newAuthFixture()

	res, err := svc.Register(context.Background(), &dto.RegisterRequest{
		Email:    "ada@example.com",
		Password: "s3cret-pass",
		FullName: "Ada Obi",
	})
	require.NoError(t, err)
	assert.Equal(t, "ada@example.com", res.Email)

	store.mu.Lock()
	created := store.users[res.Id]
	store.mu.Unlock()
	require.NotNil(t, created)
	require.NotNil(t, created.PasswordHash)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(*created.PasswordHash), []byte("s3cret-pass")))

	// The welcome email goes out asynchronously.
	assert.Eventually(t, func() bool {
		return email.sentCount() == 1
	}, time.Second, 10*time.Millisecond)
}

func TestRegister_DuplicateEmail(t *testing.T) {
	store, _, svc := newAuthFixture()
	seedUser(store, "taken@example.com", "whatever")

	_, err := svc.Register(context.Background(), &dto.RegisterRequest{
		Email:    "taken@example.com",
		Password: "pass1234",
		FullName: "Second Claimant",
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already registered")
}

func TestLogin(t *testing.T) {
	store, _, svc := newAuthFixture()
	t.Setenv("JWT_SECRET", "test-secret")
	user := seedUser(store, "bola@example.com", "correct-horse")

	res, err := svc.Login(context.Background(), &dto.LoginRequest{
		Email:    "bola@example.com",
		Password: "correct-horse",
	})
	require.NoError(t, err)
	assert.Equal(t, user.Id, res.User.Id)
	require.NotEmpty(t, res.AccessToken)

	// The token carries the user id and is signed with the configured secret.
	token, err := jwt.Parse(res.AccessToken, func(t *jwt.Token) (interface{}, error) {
		return []byte("test-secret"), nil
	})
	require.NoError(t, err)
	claims, ok := token.Claims.(jwt.MapClaims)
	require.True(t, ok)
	assert.Equal(t, user.Id.String(), claims["user_id"])
}

func TestLogin_TokenVerifiesWithoutConfiguredSecret(t *testing.T) {
	store, _, svc := newAuthFixture()
	t.Setenv("JWT_SECRET", "")
	user := seedUser(store, "bola@example.com", "correct-horse")

	res, err := svc.Login(context.Background(), &dto.LoginRequest{
		Email:    "bola@example.com",
		Password: "correct-horse",
	})
	require.NoError(t, err)

	// Signing and middleware verification share one secret resolution, so
	// a deployment without JWT_SECRET still accepts its own tokens.
	claims, err := serverutils.ParseToken(res.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, user.Id.String(), claims["user_id"])
}

func TestLogin_WrongPassword(t *testing.T) {
	store, _, svc := newAuthFixture()
	seedUser(store, "bola@example.com", "correct-horse")

	_, err := svc.Login(context.Background(), &dto.LoginRequest{
		Email:    "bola@example.com",
		Password: "wrong-horse",
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid credentials")
}

func TestLogin_UnknownEmail(t *testing.T) {
	_, _, svc := newAuthFixture()

	_, err := svc.Login(context.Background(), &dto.LoginRequest{
		Email:    "nobody@example.com",
		Password: "anything",
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid credentials")
}

func TestLogin_OAuthOnlyAccount(t *testing.T) {
	store, _, svc := newAuthFixture()
	user := &entity.User{
		Id:       uuid.New(),
		Email:    "google-only@example.com",
		FullName: "OAuth User",
	}
	store.mu.Lock()
	store.users[user.Id] = user
	store.mu.Unlock()

	_, err := svc.Login(context.Background(), &dto.LoginRequest{
		Email:    "google-only@example.com",
		Password: "anything",
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "OAuth")
}

func TestGetProfile(t *testing.T) {
	store, _, svc := newAuthFixture()
	user := seedUser(store, "chi@example.com", "pass")
	avatar := "https://cdn.example.com/chi.png"
	store.mu.Lock()
	store.users[user.Id].AvatarURL = &avatar
	store.mu.Unlock()

	res, err := svc.GetProfile(context.Background(), user.Id)
	require.NoError(t, err)
	assert.Equal(t, "chi@example.com", res.Email)
	assert.Equal(t, avatar, res.AvatarURL)

	_, err = svc.GetProfile(context.Background(), uuid.New())
	require.Error(t, err)
}
