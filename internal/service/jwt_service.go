package service

import (
	"errors"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"rules-chat/internal/domain"
)

const (
	TokenTypeAccess            = "access"
	TokenTypeEmailVerification = "email_verification"
	TokenTypePasswordReset     = "password_reset"
)

// JWTService emite y valida tokens JWT de acceso y de proposito unico.
type JWTService struct {
	secret          []byte
	accessTTL       time.Duration
	verificationTTL time.Duration
	resetTTL        time.Duration
	issuer          string
	used            UsedTokenStore
}

// AccessToken es la respuesta de /token, compatible con OAuth2 password flow.
type AccessToken struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int64  `json:"expires_in"`
}

type Claims struct {
	UserID    string `json:"uid"`
	Email     string `json:"email"`
	TokenType string `json:"typ"`
	jwt.RegisteredClaims
}

var (
	ErrJWTInvalid = errors.New("jwt invalid")
	ErrJWTExpired = errors.New("jwt expired")
	ErrJWTUsed    = errors.New("jwt already used")
)

func NewJWTService(secret string, accessTTL, verificationTTL, resetTTL time.Duration) *JWTService {
	if accessTTL <= 0 {
		accessTTL = time.Hour
	}
	if verificationTTL <= 0 {
		verificationTTL = 24 * time.Hour
	}
	if resetTTL <= 0 {
		resetTTL = time.Hour
	}
	return &JWTService{
		secret:          []byte(secret),
		accessTTL:       accessTTL,
		verificationTTL: verificationTTL,
		resetTTL:        resetTTL,
		issuer:          "rules-chat",
		used:            NewMemoryUsedTokenStore(),
	}
}

func NewJWTServiceWithStore(secret string, accessTTL, verificationTTL, resetTTL time.Duration, store UsedTokenStore) *JWTService {
	svc := NewJWTService(secret, accessTTL, verificationTTL, resetTTL)
	if store != nil {
		svc.used = store
	}
	return svc
}

func (s *JWTService) IssueAccessToken(user domain.User) (AccessToken, error) {
	if len(s.secret) == 0 {
		return AccessToken{}, ErrJWTInvalid
	}
	signed, err := s.sign(user, TokenTypeAccess, time.Now().UTC(), s.accessTTL)
	if err != nil {
		return AccessToken{}, err
	}
	return AccessToken{
		AccessToken: signed,
		TokenType:   "bearer",
		ExpiresIn:   int64(s.accessTTL.Seconds()),
	}, nil
}

// IssuePurposeToken firma un token de verificacion de correo o de reseteo de password.
func (s *JWTService) IssuePurposeToken(user domain.User, purpose string) (string, error) {
	if len(s.secret) == 0 {
		return "", ErrJWTInvalid
	}
	ttl, ok := s.purposeTTL(purpose)
	if !ok {
		return "", ErrJWTInvalid
	}
	return s.sign(user, purpose, time.Now().UTC(), ttl)
}

func (s *JWTService) ParseAccessToken(accessToken string) (Claims, error) {
	return s.parseTyped(accessToken, TokenTypeAccess)
}

// ConsumePurposeToken valida el token y lo marca como usado. Un segundo uso devuelve ErrJWTUsed.
func (s *JWTService) ConsumePurposeToken(token, purpose string) (Claims, error) {
	claims, err := s.CheckPurposeToken(token, purpose)
	if err != nil {
		return Claims{}, err
	}
	if err := s.MarkPurposeTokenUsed(claims); err != nil {
		return Claims{}, err
	}
	return claims, nil
}

// CheckPurposeToken valida el token y que no haya sido usado, sin marcarlo. Sirve cuando el
// token solo debe quemarse despues de que la operacion que autoriza haya tenido exito.
func (s *JWTService) CheckPurposeToken(token, purpose string) (Claims, error) {
	if _, ok := s.purposeTTL(purpose); !ok {
		return Claims{}, ErrJWTInvalid
	}
	claims, err := s.parseTyped(token, purpose)
	if err != nil {
		return Claims{}, err
	}
	if claims.ID == "" || s.used == nil {
		return Claims{}, ErrJWTInvalid
	}
	if claims.ExpiresAt == nil || time.Until(claims.ExpiresAt.Time) <= 0 {
		return Claims{}, ErrJWTExpired
	}
	used, err := s.used.IsUsed(claims.ID)
	if err != nil {
		return Claims{}, err
	}
	if used {
		return Claims{}, ErrJWTUsed
	}
	return claims, nil
}

// MarkPurposeTokenUsed quema el jti. Si otro pedido lo quemo antes devuelve ErrJWTUsed.
func (s *JWTService) MarkPurposeTokenUsed(claims Claims) error {
	if claims.ID == "" || s.used == nil || claims.ExpiresAt == nil {
		return ErrJWTInvalid
	}
	ttl := time.Until(claims.ExpiresAt.Time)
	if ttl <= 0 {
		return ErrJWTExpired
	}
	first, err := s.used.MarkUsed(claims.ID, ttl)
	if err != nil {
		return err
	}
	if !first {
		return ErrJWTUsed
	}
	return nil
}

func (s *JWTService) purposeTTL(purpose string) (time.Duration, bool) {
	switch purpose {
	case TokenTypeEmailVerification:
		return s.verificationTTL, true
	case TokenTypePasswordReset:
		return s.resetTTL, true
	default:
		return 0, false
	}
}

func (s *JWTService) parseTyped(token, tokenType string) (Claims, error) {
	if len(s.secret) == 0 {
		return Claims{}, ErrJWTInvalid
	}
	if strings.TrimSpace(token) == "" {
		return Claims{}, ErrJWTInvalid
	}
	claims, err := s.parseToken(token)
	if err != nil {
		return Claims{}, err
	}
	if claims.TokenType != tokenType {
		return Claims{}, ErrJWTInvalid
	}
	if !s.isValidClaims(claims) {
		return Claims{}, ErrJWTInvalid
	}
	return claims, nil
}

func (s *JWTService) sign(user domain.User, tokenType string, now time.Time, ttl time.Duration) (string, error) {
	claims := Claims{
		UserID:    user.ID,
		Email:     user.Email,
		TokenType: tokenType,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    s.issuer,
			Subject:   user.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	if tokenType != TokenTypeAccess {
		claims.ID = uuid.NewString()
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.secret)
}

func (s *JWTService) parseToken(tokenString string) (Claims, error) {
	var claims Claims
	parser := jwt.NewParser(jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	_, err := parser.ParseWithClaims(tokenString, &claims, func(_ *jwt.Token) (any, error) {
		return s.secret, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return Claims{}, ErrJWTExpired
		}
		return Claims{}, ErrJWTInvalid
	}
	return claims, nil
}

func (s *JWTService) isValidClaims(claims Claims) bool {
	if strings.TrimSpace(claims.UserID) == "" {
		return false
	}
	if strings.TrimSpace(claims.Subject) == "" {
		return false
	}
	if claims.Subject != claims.UserID {
		return false
	}
	if claims.ExpiresAt == nil {
		return false
	}
	return strings.TrimSpace(claims.Issuer) == s.issuer
}
