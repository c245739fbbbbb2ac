package service

import (
	"context"
	"errors"
	"net/mail"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"rules-chat/internal/domain"
	"rules-chat/internal/email"
	"rules-chat/internal/repository"
)

const minPasswordLength = 8

// UserService coordina reglas de negocio para usuarios.
type UserService struct {
	logger      *zap.Logger
	users       repository.UserRepository
	emailSender email.Sender
	jwt         *JWTService
	limiter     RequestLimiter
	frontendURL string
}

func NewUserService(logger *zap.Logger, users repository.UserRepository, emailSender email.Sender, jwtSvc *JWTService, limiter RequestLimiter, frontendURL string) *UserService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if limiter == nil {
		limiter = NewRequestLimiter(10*time.Minute, 3)
	}
	return &UserService{
		logger:      logger,
		users:       users,
		emailSender: emailSender,
		jwt:         jwtSvc,
		limiter:     limiter,
		frontendURL: strings.TrimRight(frontendURL, "/"),
	}
}

var (
	ErrUserNotFound       = errors.New("user not found")
	ErrInvalidEmail       = errors.New("invalid email")
	ErrWeakPassword       = errors.New("password must be at least 8 characters")
	ErrEmailTaken         = errors.New("email already registered")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrEmailNotVerified   = errors.New("email not verified")
	ErrForbidden          = errors.New("forbidden")
	ErrRateLimited        = errors.New("rate limited")
	ErrEmailSendFailure   = errors.New("email send failed")
	ErrInvalidToken       = errors.New("invalid or already used token")
	ErrTokenExpired       = errors.New("token expired")
)

// SignupResult indica si el correo de verificacion salio. El usuario queda creado aunque falle el envio.
type SignupResult struct {
	User      domain.User
	EmailSent bool
}

func (s *UserService) Signup(ctx context.Context, emailAddr, password string) (SignupResult, error) {
	if s.users == nil || s.jwt == nil {
		return SignupResult{}, errors.New("user service not configured")
	}

	emailAddr = normalizeEmail(emailAddr)
	if !isValidEmail(emailAddr) {
		return SignupResult{}, ErrInvalidEmail
	}
	if len(password) < minPasswordLength {
		return SignupResult{}, ErrWeakPassword
	}
	if !s.limiter.Allow(emailAddr) {
		return SignupResult{}, ErrRateLimited
	}

	_, err := s.users.GetByEmail(ctx, emailAddr)
	if err == nil {
		return SignupResult{}, ErrEmailTaken
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return SignupResult{}, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return SignupResult{}, err
	}
	user := domain.User{
		ID:           uuid.NewString(),
		Email:        emailAddr,
		PasswordHash: string(hash),
		CreatedAt:    time.Now().UTC(),
	}
	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, repository.ErrDuplicateEmail) {
			return SignupResult{}, ErrEmailTaken
		}
		return SignupResult{}, err
	}

	token, err := s.jwt.IssuePurposeToken(user, TokenTypeEmailVerification)
	if err != nil {
		return SignupResult{}, err
	}
	result := SignupResult{User: user}
	if err := s.sendVerification(ctx, emailAddr, token); err != nil {
		s.logger.Warn("send verification email failed", zap.Error(err), zap.String("email", emailAddr))
		return result, nil
	}
	result.EmailSent = true
	return result, nil
}

func (s *UserService) Authenticate(ctx context.Context, emailAddr, password string) (domain.User, error) {
	if s.users == nil {
		return domain.User{}, errors.New("user service not configured")
	}

	emailAddr = normalizeEmail(emailAddr)
	if emailAddr == "" || password == "" {
		return domain.User{}, ErrInvalidCredentials
	}
	user, err := s.users.GetByEmail(ctx, emailAddr)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.User{}, ErrInvalidCredentials
		}
		return domain.User{}, err
	}
	if user.PasswordHash == "" {
		return domain.User{}, ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return domain.User{}, ErrInvalidCredentials
	}
	if !user.IsVerified() {
		return domain.User{}, ErrEmailNotVerified
	}
	return user, nil
}

// ChangePassword exige que el correo indicado sea el del usuario autenticado.
func (s *UserService) ChangePassword(ctx context.Context, callerID, emailAddr, oldPassword, newPassword string) error {
	if s.users == nil {
		return errors.New("user service not configured")
	}

	user, err := s.users.GetByID(ctx, callerID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrUserNotFound
		}
		return err
	}
	if normalizeEmail(emailAddr) != user.Email {
		return ErrForbidden
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(oldPassword)); err != nil {
		return ErrInvalidCredentials
	}
	if len(newPassword) < minPasswordLength {
		return ErrWeakPassword
	}
	return s.setPassword(ctx, user.ID, newPassword)
}

// RequestPasswordReset no revela si el correo existe: usuarios desconocidos devuelven nil.
func (s *UserService) RequestPasswordReset(ctx context.Context, emailAddr string) error {
	if s.users == nil || s.jwt == nil {
		return errors.New("user service not configured")
	}

	emailAddr = normalizeEmail(emailAddr)
	if !isValidEmail(emailAddr) {
		return ErrInvalidEmail
	}
	if !s.limiter.Allow(emailAddr) {
		return ErrRateLimited
	}

	user, err := s.users.GetByEmail(ctx, emailAddr)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			s.logger.Info("password reset for unknown email", zap.String("email", emailAddr))
			return nil
		}
		return err
	}

	token, err := s.jwt.IssuePurposeToken(user, TokenTypePasswordReset)
	if err != nil {
		return err
	}
	if s.emailSender == nil {
		return ErrEmailSendFailure
	}
	if err := s.emailSender.SendPasswordResetEmail(ctx, emailAddr, s.link("/reset-password", token)); err != nil {
		s.logger.Warn("send password reset email failed", zap.Error(err), zap.String("email", emailAddr))
		return ErrEmailSendFailure
	}
	return nil
}

// ResetPassword consume el token de reseteo. El token se quema recien despues de guardar la
// contraseña nueva: un error de base no invalida el link. Restablecer la contraseña desde el
// correo tambien confirma la direccion.
func (s *UserService) ResetPassword(ctx context.Context, token, newPassword string) (domain.User, error) {
	if s.users == nil || s.jwt == nil {
		return domain.User{}, errors.New("user service not configured")
	}
	if len(newPassword) < minPasswordLength {
		return domain.User{}, ErrWeakPassword
	}

	claims, err := s.jwt.CheckPurposeToken(token, TokenTypePasswordReset)
	if err != nil {
		return domain.User{}, mapTokenError(err)
	}
	user, err := s.users.GetByID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.User{}, ErrInvalidToken
		}
		return domain.User{}, err
	}
	if err := s.setPassword(ctx, user.ID, newPassword); err != nil {
		return domain.User{}, err
	}
	if !user.IsVerified() {
		verifiedAt := time.Now().UTC()
		if err := s.users.VerifyEmail(ctx, user.ID, verifiedAt); err != nil {
			return domain.User{}, err
		}
		user.EmailVerifiedAt = &verifiedAt
	}
	if err := s.jwt.MarkPurposeTokenUsed(claims); err != nil {
		return domain.User{}, mapTokenError(err)
	}
	return user, nil
}

func (s *UserService) VerifyEmail(ctx context.Context, token string) (domain.User, error) {
	if s.users == nil || s.jwt == nil {
		return domain.User{}, errors.New("user service not configured")
	}

	claims, err := s.jwt.ConsumePurposeToken(token, TokenTypeEmailVerification)
	if err != nil {
		return domain.User{}, mapTokenError(err)
	}
	user, err := s.users.GetByID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.User{}, ErrInvalidToken
		}
		return domain.User{}, err
	}
	verifiedAt := time.Now().UTC()
	if err := s.users.VerifyEmail(ctx, user.ID, verifiedAt); err != nil {
		return domain.User{}, err
	}
	if user.EmailVerifiedAt == nil {
		user.EmailVerifiedAt = &verifiedAt
	}
	return user, nil
}

func (s *UserService) setPassword(ctx context.Context, userID, password string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	return s.users.UpdatePassword(ctx, userID, string(hash))
}

func (s *UserService) sendVerification(ctx context.Context, emailAddr, token string) error {
	if s.emailSender == nil {
		return ErrEmailSendFailure
	}
	return s.emailSender.SendVerificationEmail(ctx, emailAddr, s.link("/verify", token))
}

func (s *UserService) link(path, token string) string {
	return s.frontendURL + path + "?token=" + url.QueryEscape(token)
}

func mapTokenError(err error) error {
	switch {
	case errors.Is(err, ErrJWTExpired):
		return ErrTokenExpired
	case errors.Is(err, ErrJWTInvalid), errors.Is(err, ErrJWTUsed):
		return ErrInvalidToken
	default:
		return err
	}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func isValidEmail(email string) bool {
	if email == "" {
		return false
	}
	addr, err := mail.ParseAddress(email)
	return err == nil && addr.Address == email
}
