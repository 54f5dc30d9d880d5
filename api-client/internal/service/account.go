package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/aaronwang/auction-client/api-client/internal/session"
	"github.com/aaronwang/auction-client/shared/api"
	"github.com/aaronwang/auction-client/shared/models"
)

// MinPasswordLength is the shortest password the platform accepts
const MinPasswordLength = 6

// AccountAPI is the part of the REST client accounts need
type AccountAPI interface {
	Login(ctx context.Context, username, password string) (*api.AuthResult, error)
	Register(ctx context.Context, creds *models.Credentials) (*api.AuthResult, error)
	Verify(ctx context.Context) (*models.User, error)
	UpdateProfile(ctx context.Context, update *models.ProfileUpdate) error
}

// Registration is the sign-up form
type Registration struct {
	Username        string
	Password        string
	ConfirmPassword string
	Email           string
	Role            string
}

// ProfileChange is the profile form. Password fields are left empty
// when only the email changes.
type ProfileChange struct {
	Email           string
	CurrentPassword string
	NewPassword     string
	ConfirmPassword string
}

// ValidateLogin checks the login form
func ValidateLogin(username, password string) error {
	if strings.TrimSpace(username) == "" {
		return invalid("username", "Username is required")
	}
	if password == "" {
		return invalid("password", "Password is required")
	}
	if len(password) < MinPasswordLength {
		return invalid("password", fmt.Sprintf("Password must be at least %d characters", MinPasswordLength))
	}
	return nil
}

// ValidateRegistration checks the sign-up form
func ValidateRegistration(r *Registration) error {
	if err := ValidateLogin(r.Username, r.Password); err != nil {
		return err
	}
	if r.Role != models.RoleBuyer && r.Role != models.RoleSeller {
		return invalid("role", "Please select a role (Buyer or Seller)")
	}
	if r.Password != r.ConfirmPassword {
		return invalid("confirmPassword", "Passwords do not match")
	}
	if !validEmail(r.Email) {
		return invalid("email", "Please enter a valid email address")
	}
	return nil
}

// ValidateProfile checks the profile form
func ValidateProfile(p *ProfileChange) error {
	if !validEmail(p.Email) {
		return invalid("email", "Please enter a valid email address")
	}
	if p.NewPassword == "" && p.ConfirmPassword == "" {
		return nil
	}
	if len(p.NewPassword) < MinPasswordLength {
		return invalid("newPassword", fmt.Sprintf("New password must be at least %d characters", MinPasswordLength))
	}
	if p.NewPassword != p.ConfirmPassword {
		return invalid("confirmPassword", "New passwords do not match")
	}
	if p.CurrentPassword == "" {
		return invalid("currentPassword", "Current password is required to change password")
	}
	return nil
}

func validEmail(email string) bool {
	return email != "" && strings.Contains(email, "@")
}

// AccountService logs users in and out and keeps the session current
type AccountService struct {
	api    AccountAPI
	store  session.Store
	logger zerolog.Logger
}

// NewAccountService creates an account service
func NewAccountService(accountAPI AccountAPI, store session.Store, logger zerolog.Logger) *AccountService {
	return &AccountService{
		api:    accountAPI,
		store:  store,
		logger: logger.With().Str("component", "account").Logger(),
	}
}

// Login authenticates and saves the session
func (s *AccountService) Login(ctx context.Context, username, password string) (*session.Session, error) {
	username = strings.TrimSpace(username)
	if err := ValidateLogin(username, password); err != nil {
		return nil, err
	}

	result, err := s.api.Login(ctx, username, password)
	if err != nil {
		return nil, err
	}
	return s.save(ctx, result)
}

// Register creates the account and saves the session
func (s *AccountService) Register(ctx context.Context, r *Registration) (*session.Session, error) {
	r.Username = strings.TrimSpace(r.Username)
	if err := ValidateRegistration(r); err != nil {
		return nil, err
	}

	result, err := s.api.Register(ctx, &models.Credentials{
		Username: r.Username,
		Password: r.Password,
		Email:    r.Email,
		Role:     r.Role,
	})
	if err != nil {
		return nil, err
	}
	return s.save(ctx, result)
}

func (s *AccountService) save(ctx context.Context, result *api.AuthResult) (*session.Session, error) {
	if result.Token == "" {
		return nil, errors.New("server did not return a token")
	}
	sess := &session.Session{Token: result.Token, User: result.User, SavedAt: time.Now()}
	if err := s.store.Save(ctx, sess); err != nil {
		return nil, err
	}
	s.logger.Info().Str("username", sess.User.Username).Msg("Logged in")
	return sess, nil
}

// Logout forgets the session
func (s *AccountService) Logout(ctx context.Context) error {
	return s.store.Clear(ctx)
}

// Current returns the stored session without contacting the server
func (s *AccountService) Current(ctx context.Context) (*session.Session, error) {
	return s.store.Load(ctx)
}

// Verify asks the server who the token belongs to. A rejected token
// clears the stored session.
func (s *AccountService) Verify(ctx context.Context) (*models.User, error) {
	user, err := s.api.Verify(ctx)
	if errors.Is(err, api.ErrUnauthorized) {
		if clearErr := s.store.Clear(ctx); clearErr != nil {
			s.logger.Warn().Err(clearErr).Msg("Failed to clear rejected session")
		}
		return nil, session.ErrNoSession
	}
	if err != nil {
		return nil, err
	}
	return user, nil
}

// UpdateProfile changes the email and optionally the password, then
// refreshes the stored email.
func (s *AccountService) UpdateProfile(ctx context.Context, p *ProfileChange) error {
	if err := ValidateProfile(p); err != nil {
		return err
	}

	update := &models.ProfileUpdate{Email: p.Email}
	if p.NewPassword != "" {
		update.CurrentPassword = p.CurrentPassword
		update.NewPassword = p.NewPassword
	}
	if err := s.api.UpdateProfile(ctx, update); err != nil {
		return err
	}

	sess, err := s.store.Load(ctx)
	if err != nil {
		return nil
	}
	sess.User.Email = p.Email
	return s.store.Save(ctx, sess)
}
