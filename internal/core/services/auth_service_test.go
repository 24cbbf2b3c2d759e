package services_test

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/SscSPs/shope_lite/internal/apperrors"
	"github.com/SscSPs/shope_lite/internal/core/domain"
	portssvc "github.com/SscSPs/shope_lite/internal/core/ports/services"
	"github.com/SscSPs/shope_lite/internal/core/services"
	"github.com/SscSPs/shope_lite/internal/repositories/memory"
	"github.com/SscSPs/shope_lite/internal/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"golang.org/x/crypto/bcrypt"
)

// MockResetNotifier records reset emails.
type MockResetNotifier struct {
	mock.Mock
}

func (m *MockResetNotifier) IsEnabled() bool {
	return m.Called().Bool(0)
}

func (m *MockResetNotifier) SendPasswordResetEmail(ctx context.Context, toEmail, username, resetLink string) error {
	args := m.Called(ctx, toEmail, username, resetLink)
	return args.Error(0)
}

type AuthServiceTestSuite struct {
	suite.Suite
	repo     *memory.UserRepository
	clock    *fakeClock
	tokens   portssvc.SessionTokenSvc
	notifier *MockResetNotifier
	svc      portssvc.AuthSvcFacade
	ctx      context.Context
}

func (s *AuthServiceTestSuite) SetupTest() {
	s.repo = memory.NewUserRepository()
	s.clock = newFakeClock()
	s.ctx = context.Background()
	s.notifier = new(MockResetNotifier)

	tokens, err := services.NewSessionTokenService("test-secret", "shope-lite", services.WithTokenClock(s.clock.Now))
	require.NoError(s.T(), err)
	s.tokens = tokens

	hasher := utils.NewBcryptHasher(bcrypt.MinCost)
	s.svc = services.NewAuthService(
		services.AuthServiceConfig{FrontendBaseURL: "http://localhost:5173", DemoMode: true},
		s.repo,
		hasher,
		tokens,
		services.NewResetTokenService(s.repo, hasher, s.clock.Now),
		services.WithResetNotifier(s.notifier),
		services.WithAuthClock(s.clock.Now),
	)
}

func (s *AuthServiceTestSuite) register(username, email, password string) *domain.User {
	user, err := s.svc.Register(s.ctx, portssvc.RegisterInput{Username: username, Email: email, Password: password})
	require.NoError(s.T(), err)
	return user
}

func (s *AuthServiceTestSuite) assertStatus(err error, status int, message string) {
	require.Error(s.T(), err)
	assert.Equal(s.T(), status, apperrors.HTTPStatus(err))
	if message != "" {
		assert.Equal(s.T(), message, apperrors.PublicMessage(err))
	}
}

func (s *AuthServiceTestSuite) TestRegister_Success() {
	user := s.register("alice", "  Alice@X.com ", "secret1")

	assert.Equal(s.T(), "alice", user.Username)
	assert.Equal(s.T(), "alice@x.com", user.Email)
	assert.Equal(s.T(), domain.RoleUser, user.Role)
	assert.NotEqual(s.T(), "secret1", user.PasswordHash)
	assert.Equal(s.T(), s.clock.Now(), user.CreatedAt)
	assert.Equal(s.T(), 1, s.repo.Len())
}

func (s *AuthServiceTestSuite) TestRegister_DistinctEmailsAllStored() {
	for i := 0; i < 5; i++ {
		s.register(fmt.Sprintf("user%d", i), fmt.Sprintf("user%d@x.com", i), "secret1")
	}
	assert.Equal(s.T(), 5, s.repo.Len())
}

func (s *AuthServiceTestSuite) TestRegister_EmailCaseConflict() {
	s.register("alice", "alice@x.com", "secret1")

	_, err := s.svc.Register(s.ctx, portssvc.RegisterInput{Username: "alice2", Email: "ALICE@x.com", Password: "secret1"})
	s.assertStatus(err, http.StatusConflict, "User already exists")
	assert.ErrorIs(s.T(), err, apperrors.ErrEmailTaken)
	assert.Equal(s.T(), 1, s.repo.Len())
}

func (s *AuthServiceTestSuite) TestRegister_UsernameCaseConflict() {
	s.register("alice", "alice@x.com", "secret1")

	_, err := s.svc.Register(s.ctx, portssvc.RegisterInput{Username: "ALICE", Email: "other@x.com", Password: "secret1"})
	s.assertStatus(err, http.StatusConflict, "Username already taken")
}

func (s *AuthServiceTestSuite) TestRegister_Validation() {
	cases := []struct {
		in  portssvc.RegisterInput
		msg string
	}{
		{portssvc.RegisterInput{Email: "a@x.com", Password: "secret1"}, "All fields are required"},
		{portssvc.RegisterInput{Username: "ab", Email: "a@x.com", Password: "secret1"}, "Username must be 3 to 20 characters"},
		{portssvc.RegisterInput{Username: "bad name", Email: "a@x.com", Password: "secret1"}, "Username can contain only letters, numbers, and underscore"},
		{portssvc.RegisterInput{Username: "alice", Email: "not-an-email", Password: "secret1"}, "Valid email required"},
		{portssvc.RegisterInput{Username: "alice", Email: "a@x.com", Password: "12345"}, "Password must be at least 6 characters"},
		{portssvc.RegisterInput{Username: "alice", Email: "a@x.com", Password: "secret1", Role: "admin"}, "Role cannot be chosen at registration"},
	}
	for _, tc := range cases {
		_, err := s.svc.Register(s.ctx, tc.in)
		s.assertStatus(err, http.StatusBadRequest, tc.msg)
	}
	assert.Equal(s.T(), 0, s.repo.Len())
}

func (s *AuthServiceTestSuite) TestRegister_ExplicitUserRoleAccepted() {
	user, err := s.svc.Register(s.ctx, portssvc.RegisterInput{Username: "alice", Email: "a@x.com", Password: "secret1", Role: "User"})
	require.NoError(s.T(), err)
	assert.Equal(s.T(), domain.RoleUser, user.Role)
}

func (s *AuthServiceTestSuite) TestLogin_Success() {
	registered := s.register("alice", "alice@x.com", "secret1")

	result, err := s.svc.Login(s.ctx, "ALICE@x.com ", "secret1")
	require.NoError(s.T(), err)
	assert.Equal(s.T(), registered.UserID, result.User.UserID)
	assert.Equal(s.T(), s.clock.Now().Add(services.SessionTTL), result.ExpiresAt)

	identity, err := s.tokens.Verify(s.ctx, result.Token)
	require.NoError(s.T(), err)
	assert.Equal(s.T(), registered.UserID, identity.UserID)
	assert.Equal(s.T(), domain.RoleUser, identity.Role)
}

func (s *AuthServiceTestSuite) TestLogin_NoEnumeration() {
	s.register("alice", "alice@x.com", "secret1")

	_, wrongPw := s.svc.Login(s.ctx, "alice@x.com", "wrong-password")
	_, unknown := s.svc.Login(s.ctx, "nobody@x.com", "secret1")

	s.assertStatus(wrongPw, http.StatusUnauthorized, "Invalid credentials")
	s.assertStatus(unknown, http.StatusUnauthorized, "Invalid credentials")
	assert.Equal(s.T(), wrongPw.Error(), unknown.Error())
	assert.ErrorIs(s.T(), unknown, apperrors.ErrInvalidCredentials)
}

func (s *AuthServiceTestSuite) TestProfile() {
	user := s.register("alice", "alice@x.com", "secret1")

	profile, err := s.svc.Profile(s.ctx, user.UserID)
	require.NoError(s.T(), err)
	assert.Equal(s.T(), "alice", profile.Username)

	_, err = s.svc.Profile(s.ctx, "deleted-user")
	s.assertStatus(err, http.StatusNotFound, "User not found")
}

func (s *AuthServiceTestSuite) TestChangeUsername() {
	alice := s.register("alice", "alice@x.com", "secret1")
	s.register("bob", "bob@x.com", "secret1")
	s.clock.Advance(time.Minute)

	_, err := s.svc.ChangeUsername(s.ctx, alice.UserID, "ab")
	s.assertStatus(err, http.StatusBadRequest, "Username must be 3 to 20 characters")

	_, err = s.svc.ChangeUsername(s.ctx, alice.UserID, strings.Repeat("a", 21))
	s.assertStatus(err, http.StatusBadRequest, "Username must be 3 to 20 characters")

	_, err = s.svc.ChangeUsername(s.ctx, alice.UserID, "BOB")
	s.assertStatus(err, http.StatusConflict, "Username already taken")

	updated, err := s.svc.ChangeUsername(s.ctx, alice.UserID, "Alice_2")
	require.NoError(s.T(), err)
	assert.Equal(s.T(), "Alice_2", updated.Username)
	assert.Equal(s.T(), s.clock.Now(), updated.UpdatedAt)

	// Re-casing one's own name is not a conflict.
	_, err = s.svc.ChangeUsername(s.ctx, alice.UserID, "alice_2")
	assert.NoError(s.T(), err)

	_, err = s.svc.ChangeUsername(s.ctx, "ghost", "ghosty")
	s.assertStatus(err, http.StatusNotFound, "User not found")
}

func (s *AuthServiceTestSuite) TestChangeEmail() {
	alice := s.register("alice", "alice@x.com", "secret1")
	s.register("bob", "bob@x.com", "secret1")

	_, err := s.svc.ChangeEmail(s.ctx, alice.UserID, "nope")
	s.assertStatus(err, http.StatusBadRequest, "Valid email required")

	_, err = s.svc.ChangeEmail(s.ctx, alice.UserID, " BOB@x.com")
	s.assertStatus(err, http.StatusConflict, "Email already in use")

	updated, err := s.svc.ChangeEmail(s.ctx, alice.UserID, "Alice@New.com")
	require.NoError(s.T(), err)
	assert.Equal(s.T(), "alice@new.com", updated.Email)

	_, err = s.svc.Login(s.ctx, "alice@new.com", "secret1")
	assert.NoError(s.T(), err)
}

func (s *AuthServiceTestSuite) TestChangePassword() {
	alice := s.register("alice", "alice@x.com", "secret1")

	err := s.svc.ChangePassword(s.ctx, alice.UserID, "", "newsecret")
	s.assertStatus(err, http.StatusBadRequest, "Both passwords required")

	err = s.svc.ChangePassword(s.ctx, alice.UserID, "secret1", "123")
	s.assertStatus(err, http.StatusBadRequest, "New password must be at least 6 characters")

	err = s.svc.ChangePassword(s.ctx, alice.UserID, "secret1", strings.Repeat("p", 80))
	s.assertStatus(err, http.StatusBadRequest, "Password must be at most 72 bytes")

	err = s.svc.ChangePassword(s.ctx, alice.UserID, "wrong", "newsecret")
	s.assertStatus(err, http.StatusUnauthorized, "Current password incorrect")

	require.NoError(s.T(), s.svc.ChangePassword(s.ctx, alice.UserID, "secret1", "newsecret"))

	_, err = s.svc.Login(s.ctx, "alice@x.com", "secret1")
	assert.ErrorIs(s.T(), err, apperrors.ErrInvalidCredentials)
	_, err = s.svc.Login(s.ctx, "alice@x.com", "newsecret")
	assert.NoError(s.T(), err)
}

func (s *AuthServiceTestSuite) TestForgotPassword_IdenticalShape() {
	s.register("alice", "alice@x.com", "secret1")
	s.notifier.On("IsEnabled").Return(false)

	known, err := s.svc.ForgotPassword(s.ctx, "alice@x.com")
	require.NoError(s.T(), err)
	unknown, err := s.svc.ForgotPassword(s.ctx, "nonexistent@x.com")
	require.NoError(s.T(), err)

	for _, res := range []*portssvc.ForgotPasswordResult{known, unknown} {
		assert.Len(s.T(), res.ResetToken, 64)
		assert.Equal(s.T(), "http://localhost:5173/reset-password/"+res.ResetToken, res.ResetLink)
	}

	stored, err := s.repo.FindUserByEmail(s.ctx, "alice@x.com")
	require.NoError(s.T(), err)
	require.NotNil(s.T(), stored.ResetTokenHash)
	assert.Equal(s.T(), utils.HashResetToken(known.ResetToken), *stored.ResetTokenHash)
	assert.Equal(s.T(), s.clock.Now().Add(services.ResetTokenTTL), *stored.ResetTokenExpiresAt)

	// The decoy token is never redeemable.
	err = s.svc.ResetPassword(s.ctx, unknown.ResetToken, "newsecret")
	s.assertStatus(err, http.StatusBadRequest, "Token invalid or expired")
}

func (s *AuthServiceTestSuite) TestForgotPassword_InvalidEmail() {
	_, err := s.svc.ForgotPassword(s.ctx, "not-an-email")
	s.assertStatus(err, http.StatusBadRequest, "Valid email required")
}

func (s *AuthServiceTestSuite) TestForgotPassword_SendsEmailWhenEnabled() {
	s.register("alice", "alice@x.com", "secret1")
	s.notifier.On("IsEnabled").Return(true)
	s.notifier.On("SendPasswordResetEmail", mock.Anything, "alice@x.com", "alice",
		mock.MatchedBy(func(link string) bool {
			return strings.HasPrefix(link, "http://localhost:5173/reset-password/")
		})).Return(errors.New("ses throttled"))

	// Delivery failures are not surfaced to the caller.
	_, err := s.svc.ForgotPassword(s.ctx, "alice@x.com")
	require.NoError(s.T(), err)

	_, err = s.svc.ForgotPassword(s.ctx, "ghost@x.com")
	require.NoError(s.T(), err)

	s.notifier.AssertNumberOfCalls(s.T(), "SendPasswordResetEmail", 1)
}

func (s *AuthServiceTestSuite) TestForgotPassword_NoDemoHidesToken() {
	hasher := utils.NewBcryptHasher(bcrypt.MinCost)
	svc := services.NewAuthService(
		services.AuthServiceConfig{FrontendBaseURL: "http://localhost:5173"},
		s.repo, hasher, s.tokens, services.NewResetTokenService(s.repo, hasher, s.clock.Now),
	)
	s.register("alice", "alice@x.com", "secret1")

	res, err := svc.ForgotPassword(s.ctx, "alice@x.com")
	require.NoError(s.T(), err)
	assert.Empty(s.T(), res.ResetLink)
	assert.Empty(s.T(), res.ResetToken)
}

func (s *AuthServiceTestSuite) TestResetPassword_Flow() {
	s.register("alice", "alice@x.com", "secret1")
	s.notifier.On("IsEnabled").Return(false)

	res, err := s.svc.ForgotPassword(s.ctx, "alice@x.com")
	require.NoError(s.T(), err)

	err = s.svc.ResetPassword(s.ctx, res.ResetToken, "12345")
	s.assertStatus(err, http.StatusBadRequest, "New password must be at least 6 characters")

	// Rejected before the token is consumed.
	err = s.svc.ResetPassword(s.ctx, res.ResetToken, strings.Repeat("p", 80))
	s.assertStatus(err, http.StatusBadRequest, "Password must be at most 72 bytes")

	err = s.svc.ResetPassword(s.ctx, "   ", "newsecret")
	s.assertStatus(err, http.StatusBadRequest, "Reset token required")

	require.NoError(s.T(), s.svc.ResetPassword(s.ctx, res.ResetToken, "newsecret"))

	// Single use.
	err = s.svc.ResetPassword(s.ctx, res.ResetToken, "another1")
	s.assertStatus(err, http.StatusBadRequest, "Token invalid or expired")

	_, err = s.svc.Login(s.ctx, "alice@x.com", "newsecret")
	assert.NoError(s.T(), err)

	stored, err := s.repo.FindUserByEmail(s.ctx, "alice@x.com")
	require.NoError(s.T(), err)
	assert.Nil(s.T(), stored.ResetTokenHash)
	assert.Nil(s.T(), stored.ResetTokenExpiresAt)
}

func (s *AuthServiceTestSuite) TestResetPassword_NewRequestInvalidatesOld() {
	s.register("alice", "alice@x.com", "secret1")
	s.notifier.On("IsEnabled").Return(false)

	first, err := s.svc.ForgotPassword(s.ctx, "alice@x.com")
	require.NoError(s.T(), err)
	second, err := s.svc.ForgotPassword(s.ctx, "alice@x.com")
	require.NoError(s.T(), err)

	err = s.svc.ResetPassword(s.ctx, first.ResetToken, "newsecret")
	s.assertStatus(err, http.StatusBadRequest, "Token invalid or expired")
	assert.NoError(s.T(), s.svc.ResetPassword(s.ctx, second.ResetToken, "newsecret"))
}

func (s *AuthServiceTestSuite) TestResetPassword_Expired() {
	s.register("alice", "alice@x.com", "secret1")
	s.notifier.On("IsEnabled").Return(false)

	res, err := s.svc.ForgotPassword(s.ctx, "alice@x.com")
	require.NoError(s.T(), err)

	s.clock.Advance(services.ResetTokenTTL + time.Second)
	err = s.svc.ResetPassword(s.ctx, res.ResetToken, "newsecret")
	s.assertStatus(err, http.StatusBadRequest, "Token invalid or expired")
}

func (s *AuthServiceTestSuite) TestResetPassword_ConcurrentExactlyOneWins() {
	s.register("alice", "alice@x.com", "secret1")
	s.notifier.On("IsEnabled").Return(false)

	res, err := s.svc.ForgotPassword(s.ctx, "alice@x.com")
	require.NoError(s.T(), err)

	const attempts = 8
	var wg sync.WaitGroup
	var ok, invalid int32
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			err := s.svc.ResetPassword(s.ctx, res.ResetToken, fmt.Sprintf("newsecret%d", i))
			switch {
			case err == nil:
				atomic.AddInt32(&ok, 1)
			case errors.Is(err, apperrors.ErrTokenInvalidOrExpired):
				atomic.AddInt32(&invalid, 1)
			}
		}(i)
	}
	wg.Wait()

	assert.EqualValues(s.T(), 1, ok)
	assert.EqualValues(s.T(), attempts-1, invalid)
}

func (s *AuthServiceTestSuite) TestLoginWithGoogle_CreatesThenReuses() {
	s.register("jane_doe", "taken@x.com", "secret1")
	info := &domain.GoogleUserInfo{Subject: "g-1", Email: "Jane.Doe@Gmail.com", EmailVerified: true}

	first, err := s.svc.LoginWithGoogle(s.ctx, info)
	require.NoError(s.T(), err)
	assert.Equal(s.T(), "jane.doe@gmail.com", first.User.Email)
	assert.Equal(s.T(), domain.RoleUser, first.User.Role)
	assert.True(s.T(), utils.IsValidUsername(first.User.Username))
	assert.NotEqual(s.T(), "jane_doe", strings.ToLower(first.User.Username), "taken username gets a suffix")
	assert.NotEmpty(s.T(), first.Token)

	second, err := s.svc.LoginWithGoogle(s.ctx, info)
	require.NoError(s.T(), err)
	assert.Equal(s.T(), first.User.UserID, second.User.UserID)
	assert.Equal(s.T(), 2, s.repo.Len())
}

func (s *AuthServiceTestSuite) TestLoginWithGoogle_UnverifiedEmail() {
	_, err := s.svc.LoginWithGoogle(s.ctx, &domain.GoogleUserInfo{Email: "a@x.com"})
	s.assertStatus(err, http.StatusUnauthorized, "Google account email is not verified")
	assert.Equal(s.T(), 0, s.repo.Len())
}

func TestAuthService(t *testing.T) {
	suite.Run(t, new(AuthServiceTestSuite))
}
