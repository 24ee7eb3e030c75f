// Package auth implements registration, login, email verification and role
// selection for the onboarding flow.
//
// ==============================================================================
// AUTH SERVICE - internal/auth/service.go
// ==============================================================================
package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"taskhub/internal/domain"
	"taskhub/pkg/config"
	errs "taskhub/pkg/errors"
	"taskhub/pkg/logger"
	"taskhub/pkg/mailer"
	"taskhub/pkg/validator"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/pquerna/otp"
	"github.com/pquerna/otp/totp"
	"golang.org/x/crypto/bcrypt"
)

// Service provides user registration, login, and token issuance.
type Service struct {
	repo       Repository
	mailer     mailer.Sender
	secrets    SecretCipher
	validator  *validator.Validator
	jwtSecret  string
	jwtExpiry  time.Duration
	issuer     string
	codePeriod time.Duration
	logger     logger.Logger
	now        func() time.Time
}

// NewService constructs a Service with the given repository and JWT settings.
func NewService(repo Repository, sender mailer.Sender, jwtCfg config.JWTConfig, verifyCfg config.VerificationConfig, log logger.Logger) *Service {
	period := verifyCfg.CodePeriod
	if period < time.Second {
		period = 10 * time.Minute
	}
	return &Service{
		repo:       repo,
		mailer:     sender,
		validator:  validator.New(),
		jwtSecret:  jwtCfg.Secret,
		jwtExpiry:  jwtCfg.Expiration,
		issuer:     verifyCfg.Issuer,
		codePeriod: period,
		logger:     log,
		now:        time.Now,
	}
}

// RegisterRequest captures the fields required to create a new user.
type RegisterRequest struct {
	FirstName string `json:"firstName" validate:"required,max=100"`
	LastName  string `json:"lastName" validate:"required,max=100"`
	Email     string `json:"email" validate:"required,email"`
	Password  string `json:"password" validate:"required,min=8"`
}

// Complete reports whether every field was supplied.
func (r *RegisterRequest) Complete() bool {
	return strings.TrimSpace(r.FirstName) != "" &&
		strings.TrimSpace(r.LastName) != "" &&
		strings.TrimSpace(r.Email) != "" &&
		r.Password != ""
}

// LoginRequest captures credentials for login.
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// TokenResponse is returned on successful register/login.
type TokenResponse struct {
	AccessToken string       `json:"accessToken"`
	ExpiresAt   time.Time    `json:"expiresAt"`
	User        *domain.User `json:"user"`
}

type MeResponse struct {
	User           *domain.User          `json:"user"`
	OnboardingStep domain.OnboardingStep `json:"onboardingStep"`
}

// Register creates a new user and returns a token.
func (s *Service) Register(ctx context.Context, req *RegisterRequest) (*TokenResponse, error) {
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	if err := s.validator.Check(req); err != nil {
		return nil, err
	}

	exists, err := s.repo.ExistsByEmail(ctx, req.Email)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, errs.ErrUserAlreadyExists
	}

	passwordHash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	now := s.now()
	user := &domain.User{
		ID:           uuid.New(),
		Email:        req.Email,
		PasswordHash: string(passwordHash),
		FirstName:    strings.TrimSpace(req.FirstName),
		LastName:     strings.TrimSpace(req.LastName),
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := s.repo.Create(ctx, user); err != nil {
		// Handle unique constraint violations on email
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23505" {
			return nil, errs.ErrUserAlreadyExists
		}
		return nil, err
	}

	s.logger.Info("User registered", map[string]interface{}{
		"user_id": user.ID.String(),
	})
	return s.generateToken(user)
}

// Login authenticates a user and returns a token.
func (s *Service) Login(ctx context.Context, req *LoginRequest) (*TokenResponse, error) {
	user, err := s.repo.FindByEmail(ctx, strings.ToLower(strings.TrimSpace(req.Email)))
	if err != nil {
		return nil, errs.ErrInvalidCredentials
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		return nil, errs.ErrInvalidCredentials
	}

	now := s.now()
	user.LastLogin = &now
	if err := s.repo.Update(ctx, user); err != nil {
		return nil, err
	}

	return s.generateToken(user)
}

func (s *Service) Me(ctx context.Context, userID uuid.UUID) (*MeResponse, error) {
	user, err := s.repo.FindByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	return &MeResponse{User: user, OnboardingStep: user.OnboardingStep()}, nil
}

// ==============================================================================
// EMAIL VERIFICATION
// ==============================================================================

func (s *Service) validateOpts() totp.ValidateOpts {
	return totp.ValidateOpts{
		Period:    uint(s.codePeriod / time.Second),
		Skew:      1,
		Digits:    otp.DigitsSix,
		Algorithm: otp.AlgorithmSHA1,
	}
}

// SecretCipher seals verification secrets before they reach the repository.
type SecretCipher interface {
	Encrypt(plaintext string) (string, error)
	Decrypt(text string) (string, error)
}

// WithSecretCipher stores verification secrets encrypted.
func (s *Service) WithSecretCipher(c SecretCipher) *Service {
	s.secrets = c
	return s
}

func (s *Service) sealSecret(secret string) (string, error) {
	if s.secrets == nil {
		return secret, nil
	}
	return s.secrets.Encrypt(secret)
}

func (s *Service) openSecret(stored string) (string, error) {
	if s.secrets == nil {
		return stored, nil
	}
	return s.secrets.Decrypt(stored)
}

// SendVerificationCode emails a six-digit code. The per-user secret is
// created on first use and kept until the email is verified.
func (s *Service) SendVerificationCode(ctx context.Context, userID uuid.UUID) error {
	user, err := s.repo.FindByID(ctx, userID)
	if err != nil {
		return err
	}
	if user.EmailVerified {
		return nil
	}

	var secret string
	if user.VerificationSecret != nil {
		if secret, err = s.openSecret(*user.VerificationSecret); err != nil {
			s.logger.Warn("Replacing unreadable verification secret", map[string]interface{}{
				"user_id": user.ID.String(),
				"error":   err,
			})
			secret = ""
		}
	}
	if secret == "" {
		key, err := totp.Generate(totp.GenerateOpts{
			Issuer:      s.issuer,
			AccountName: user.Email,
			Period:      uint(s.codePeriod / time.Second),
		})
		if err != nil {
			return errs.Wrap(err, "failed to generate verification secret")
		}
		secret = key.Secret()
		sealed, err := s.sealSecret(secret)
		if err != nil {
			return errs.Wrap(err, "failed to seal verification secret")
		}
		user.VerificationSecret = &sealed
	}

	now := s.now()
	code, err := totp.GenerateCodeCustom(secret, now, s.validateOpts())
	if err != nil {
		return errs.Wrap(err, "failed to generate verification code")
	}

	user.VerificationSentAt = &now
	user.UpdatedAt = now
	if err := s.repo.Update(ctx, user); err != nil {
		return err
	}

	body := fmt.Sprintf(
		"<p>Hi %s,</p><p>Your verification code is <strong>%s</strong>. It expires in %d minutes.</p>",
		user.FirstName, code, int(s.codePeriod.Minutes()),
	)
	if err := s.mailer.Send(user.Email, "Verify your email", body); err != nil {
		s.logger.Error("Failed to send verification email", map[string]interface{}{
			"user_id": user.ID.String(),
			"error":   err,
		})
		return errs.Wrap(err, "failed to send verification email")
	}

	s.logger.Info("Verification code sent", map[string]interface{}{
		"user_id": user.ID.String(),
	})
	return nil
}

func (s *Service) VerifyCode(ctx context.Context, userID uuid.UUID, code string) (*domain.User, error) {
	user, err := s.repo.FindByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user.EmailVerified {
		return user, nil
	}
	if user.VerificationSecret == nil {
		return nil, errs.ErrInvalidCode
	}

	secret, err := s.openSecret(*user.VerificationSecret)
	if err != nil {
		return nil, errs.ErrInvalidCode
	}
	ok, err := totp.ValidateCustom(strings.TrimSpace(code), secret, s.now(), s.validateOpts())
	if err != nil || !ok {
		return nil, errs.ErrInvalidCode
	}

	user.EmailVerified = true
	user.VerificationSecret = nil
	user.UpdatedAt = s.now()
	if err := s.repo.Update(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

func (s *Service) SelectRole(ctx context.Context, userID uuid.UUID, role domain.Role) (*TokenResponse, error) {
	if !role.Valid() {
		return nil, errs.ErrInvalidRole
	}
	user, err := s.repo.FindByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	user.Role = role
	user.UpdatedAt = s.now()
	if err := s.repo.Update(ctx, user); err != nil {
		return nil, err
	}

	s.logger.Info("Role selected", map[string]interface{}{
		"user_id": user.ID.String(),
		"role":    string(role),
	})
	// Re-issue so the token carries the role.
	return s.generateToken(user)
}

func (s *Service) generateToken(user *domain.User) (*TokenResponse, error) {
	now := s.now()
	expiresAt := now.Add(s.jwtExpiry)

	claims := jwt.MapClaims{
		"user_id": user.ID.String(),
		"email":   user.Email,
		"role":    string(user.Role),
		"exp":     expiresAt.Unix(),
		"iat":     now.Unix(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	accessToken, err := token.SignedString([]byte(s.jwtSecret))
	if err != nil {
		return nil, fmt.Errorf("failed to sign token: %w", err)
	}

	return &TokenResponse{
		AccessToken: accessToken,
		ExpiresAt:   expiresAt,
		User:        user,
	}, nil
}

// Repository interface
type Repository interface {
	Create(ctx context.Context, user *domain.User) error
	FindByID(ctx context.Context, id uuid.UUID) (*domain.User, error)
	FindByEmail(ctx context.Context, email string) (*domain.User, error)
	ExistsByEmail(ctx context.Context, email string) (bool, error)
	Update(ctx context.Context, user *domain.User) error
}
