// internal/services/user_service.go
package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/needus/ecommerce-backend/internal/apperr"
	"github.com/needus/ecommerce-backend/internal/config"
	"github.com/needus/ecommerce-backend/internal/models"
	"github.com/needus/ecommerce-backend/internal/repository"
	"github.com/needus/ecommerce-backend/internal/utils"
)

type UserService struct {
	store         repository.Store
	notifications *NotificationService
	tokenTTL      time.Duration
	now           func() time.Time
}

type RegisterRequest struct {
	Username string `json:"username" form:"username" validate:"required,username"`
	Email    string `json:"email" form:"email" validate:"required,email"`
	Password string `json:"password" form:"password" validate:"required,strong_password"`
}

type ActivationOutcome string

const (
	ActivationInvalid       ActivationOutcome = "invalid"
	ActivationExpired       ActivationOutcome = "expired"
	ActivationAlreadyActive ActivationOutcome = "already_active"
	ActivationActivated     ActivationOutcome = "activated"
)

func NewUserService(store repository.Store, notifications *NotificationService, cfg *config.Config) *UserService {
	return &UserService{
		store:         store,
		notifications: notifications,
		tokenTTL:      time.Duration(cfg.Verification.TokenTTL) * time.Hour,
		now:           time.Now,
	}
}

// Register creates a disabled account and mails its activation link.
func (s *UserService) Register(ctx context.Context, req *RegisterRequest) (*models.User, error) {
	req.Username = strings.TrimSpace(req.Username)
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	if err := utils.ValidateStruct(req); err != nil {
		return nil, validationFailure(err)
	}

	log := logrus.WithFields(logrus.Fields{"op": "register", "username": req.Username})

	taken, err := s.store.Users().ExistsByUsername(ctx, req.Username)
	if err != nil {
		log.WithError(err).Error("Failed to check username")
		return nil, apperr.Unexpected("Something went wrong while registering", err)
	}
	if taken {
		return nil, apperr.ValidationCode("USERNAME_TAKEN", "Username is already taken")
	}

	taken, err = s.store.Users().ExistsByEmail(ctx, req.Email)
	if err != nil {
		log.WithError(err).Error("Failed to check email")
		return nil, apperr.Unexpected("Something went wrong while registering", err)
	}
	if taken {
		return nil, apperr.ValidationCode("EMAIL_TAKEN", "Email is already registered")
	}

	user := &models.User{
		Username: req.Username,
		Email:    req.Email,
		Role:     models.UserRoleUser,
		Enabled:  false,
	}
	if err := user.SetPassword(req.Password); err != nil {
		return nil, apperr.Unexpected("Something went wrong while registering", err)
	}

	code, err := utils.GenerateVerificationCode()
	if err != nil {
		return nil, apperr.Unexpected("Something went wrong while registering", err)
	}
	token := &models.ConfirmationToken{Token: code, ExpiresAt: s.now().Add(s.tokenTTL)}

	err = s.store.Transaction(ctx, func(tx repository.Store) error {
		if err := tx.Users().Save(ctx, user); err != nil {
			return err
		}
		token.UserID = user.ID
		return tx.Tokens().Save(ctx, token)
	})
	if err != nil {
		log.WithError(err).Error("Failed to create user")
		return nil, apperr.Unexpected("Something went wrong while registering", err)
	}

	// A failed mail does not undo the registration.
	if err := s.notifications.SendVerificationEmail(ctx, user, token); err != nil {
		log.WithError(err).Error("Failed to send verification email")
	}

	log.WithField("user_id", user.ID).Info("User registered")
	return user, nil
}

// Activate enables the account behind token.
func (s *UserService) Activate(ctx context.Context, token string) (ActivationOutcome, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return ActivationInvalid, nil
	}

	confirmation, err := s.store.Tokens().FindByToken(ctx, token)
	if errors.Is(err, repository.ErrNotFound) {
		return ActivationInvalid, nil
	}
	if err != nil {
		logrus.WithError(err).Error("Failed to fetch confirmation token")
		return "", apperr.Unexpected("Something went wrong while activating the account", err)
	}

	user, err := s.store.Users().FindByID(ctx, confirmation.UserID)
	if errors.Is(err, repository.ErrNotFound) {
		return ActivationInvalid, nil
	}
	if err != nil {
		logrus.WithError(err).Error("Failed to fetch user")
		return "", apperr.Unexpected("Something went wrong while activating the account", err)
	}

	if user.Enabled {
		return ActivationAlreadyActive, nil
	}
	if confirmation.Expired(s.now()) {
		return ActivationExpired, nil
	}

	user.Enabled = true
	if err := s.store.Users().Save(ctx, user); err != nil {
		logrus.WithFields(logrus.Fields{"user_id": user.ID, "error": err}).Error("Failed to activate user")
		return "", apperr.Unexpected("Something went wrong while activating the account", err)
	}

	logrus.WithField("user_id", user.ID).Info("User activated")
	return ActivationActivated, nil
}

// EnsureAdmin creates the configured admin account when no admin exists.
func (s *UserService) EnsureAdmin(ctx context.Context, admin config.AdminConfig) (bool, error) {
	count, err := s.store.Users().CountByRole(ctx, models.UserRoleAdmin)
	if err != nil {
		return false, err
	}
	if count > 0 {
		return false, nil
	}

	user := &models.User{
		Username: admin.Username,
		Email:    strings.ToLower(admin.Email),
		Role:     models.UserRoleAdmin,
		Enabled:  true,
	}
	if err := user.SetPassword(admin.Password); err != nil {
		return false, err
	}
	if err := s.store.Users().Save(ctx, user); err != nil {
		return false, err
	}

	logrus.WithField("username", user.Username).Info("Default admin account created")
	return true, nil
}
