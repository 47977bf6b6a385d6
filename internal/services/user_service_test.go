package services

import (
	"context"
	"errors"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"github.com/needus/ecommerce-backend/internal/apperr"
	"github.com/needus/ecommerce-backend/internal/config"
	"github.com/needus/ecommerce-backend/internal/models"
	"github.com/needus/ecommerce-backend/internal/repository/memory"
)

type UserServiceTestSuite struct {
	suite.Suite
	ctx     context.Context
	store   *memory.Store
	mailer  *recordingMailer
	service *UserService
}

func TestUserServiceTestSuite(t *testing.T) {
	suite.Run(t, new(UserServiceTestSuite))
}

func (s *UserServiceTestSuite) SetupTest() {
	s.ctx = context.Background()
	s.store = memory.NewStore()
	s.mailer = &recordingMailer{}
	cfg := testConfig()
	s.service = NewUserService(s.store, NewNotificationServiceWithMailer(cfg, s.mailer), cfg)
}

func (s *UserServiceTestSuite) register(username, email string) *models.User {
	user, err := s.service.Register(s.ctx, &RegisterRequest{
		Username: username,
		Email:    email,
		Password: "Secret#123",
	})
	s.Require().NoError(err)
	return user
}

// mailedToken pulls the activation token out of the last verification email.
func (s *UserServiceTestSuite) mailedToken() string {
	s.Require().NotEmpty(s.mailer.sent)
	text := s.mailer.sent[len(s.mailer.sent)-1].Text
	idx := strings.Index(text, "http://")
	s.Require().GreaterOrEqual(idx, 0)

	link, err := url.Parse(text[idx:])
	s.Require().NoError(err)
	s.Equal("/activation", link.Path)
	return link.Query().Get("token")
}

func (s *UserServiceTestSuite) TestRegisterCreatesDisabledUser() {
	user := s.register("alice", "Alice@Example.com")

	s.False(user.Enabled)
	s.Equal(models.UserRoleUser, user.Role)
	s.Equal("alice@example.com", user.Email)
	s.NotEqual("Secret#123", user.PasswordHash)

	stored, err := s.store.Users().FindByUsername(s.ctx, "alice")
	s.Require().NoError(err)
	s.False(stored.Enabled)

	s.Require().Len(s.mailer.sent, 1)
	s.Equal("alice@example.com", s.mailer.sent[0].To)
	s.Contains(s.mailer.sent[0].HTML, "http://shop.test/activation?token=")
	s.Len(s.mailedToken(), 32)
}

func (s *UserServiceTestSuite) TestRegisterRejectsDuplicates() {
	s.register("alice", "alice@example.com")

	_, err := s.service.Register(s.ctx, &RegisterRequest{Username: "alice", Email: "other@example.com", Password: "Secret#123"})
	s.Equal(apperr.KindValidation, apperr.KindOf(err))
	s.Equal("USERNAME_TAKEN", apperr.CodeOf(err))

	_, err = s.service.Register(s.ctx, &RegisterRequest{Username: "bob", Email: "ALICE@example.com", Password: "Secret#123"})
	s.Equal("EMAIL_TAKEN", apperr.CodeOf(err))
}

func (s *UserServiceTestSuite) TestRegisterValidatesInput() {
	tests := []RegisterRequest{
		{Username: "a", Email: "a@example.com", Password: "Secret#123"},
		{Username: "alice", Email: "not-an-email", Password: "Secret#123"},
		{Username: "alice", Email: "alice@example.com", Password: "weak"},
	}
	for _, req := range tests {
		req := req
		_, err := s.service.Register(s.ctx, &req)
		s.Equal(apperr.KindValidation, apperr.KindOf(err), "request %+v", req)
	}
	s.Empty(s.mailer.sent)
}

func (s *UserServiceTestSuite) TestRegisterSurvivesMailFailure() {
	s.mailer.err = errors.New("smtp down")

	user := s.register("carol", "carol@example.com")

	exists, err := s.store.Users().ExistsByUsername(s.ctx, "carol")
	s.Require().NoError(err)
	s.True(exists)
	s.False(user.Enabled)
}

func (s *UserServiceTestSuite) TestActivate() {
	s.register("alice", "alice@example.com")
	token := s.mailedToken()

	outcome, err := s.service.Activate(s.ctx, token)
	s.Require().NoError(err)
	s.Equal(ActivationActivated, outcome)

	user, err := s.store.Users().FindByUsername(s.ctx, "alice")
	s.Require().NoError(err)
	s.True(user.Enabled)

	outcome, err = s.service.Activate(s.ctx, token)
	s.Require().NoError(err)
	s.Equal(ActivationAlreadyActive, outcome)
}

func (s *UserServiceTestSuite) TestActivateInvalidToken() {
	for _, token := range []string{"", "   ", "unknown-token"} {
		outcome, err := s.service.Activate(s.ctx, token)
		s.Require().NoError(err)
		s.Equal(ActivationInvalid, outcome)
	}
}

func (s *UserServiceTestSuite) TestActivateExpiredToken() {
	s.register("alice", "alice@example.com")
	token := s.mailedToken()
	s.service.now = func() time.Time { return time.Now().Add(25 * time.Hour) }

	outcome, err := s.service.Activate(s.ctx, token)
	s.Require().NoError(err)
	s.Equal(ActivationExpired, outcome)

	user, err := s.store.Users().FindByUsername(s.ctx, "alice")
	s.Require().NoError(err)
	s.False(user.Enabled)
}

func TestEnsureAdmin(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	cfg := testConfig()
	service := NewUserService(store, NewNotificationServiceWithMailer(cfg, &recordingMailer{}), cfg)
	admin := config.AdminConfig{Username: "admin", Email: "Admin@Shop.test", Password: "Admin#123"}

	created, err := service.EnsureAdmin(ctx, admin)
	require.NoError(t, err)
	assert.True(t, created)

	user, err := store.Users().FindByUsername(ctx, "admin")
	require.NoError(t, err)
	assert.Equal(t, models.UserRoleAdmin, user.Role)
	assert.True(t, user.Enabled)
	assert.Equal(t, "admin@shop.test", user.Email)
	assert.NoError(t, user.CheckPassword("Admin#123"))

	created, err = service.EnsureAdmin(ctx, admin)
	require.NoError(t, err)
	assert.False(t, created)
}
