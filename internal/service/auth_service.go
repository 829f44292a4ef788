package service

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"fittrack/app/internal/domain"
	"fittrack/app/internal/events"
	"fittrack/app/internal/repository"

	"github.com/golang-jwt/jwt/v4"
	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"golang.org/x/crypto/bcrypt"
)

const (
	MinPasswordLength = 6
	ResetTokenTTL     = time.Hour
	tokenIssuer       = "fittrack"
)

// --- Error Definitions ---
var (
	ErrUserAlreadyExists    = errors.New("user with this email already exists")
	ErrAuthenticationFailed = errors.New("authentication failed: invalid email or password")
	ErrHashingFailed        = errors.New("failed to hash password")
	ErrTokenGeneration      = errors.New("failed to generate authentication token")
	ErrInvalidToken         = errors.New("invalid or expired token")
	ErrInvalidResetToken    = errors.New("invalid or expired password reset token")
	ErrWeakPassword         = fmt.Errorf("%w: password must be at least %d characters", ErrInvalidInput, MinPasswordLength)
)

// RegisterInput carries the sign-up form. Body metrics are optional.
type RegisterInput struct {
	Name     string
	Email    string
	Password string
	Age      *int
	Weight   *float64
	Height   *float64
}

// Claims is the JWT payload. The registered ID claim (jti) identifies the token for sign-out.
type Claims struct {
	UserID string `json:"uid"`
	jwt.RegisteredClaims
}

type AuthService interface {
	Register(ctx context.Context, input RegisterInput) (*domain.User, error)
	Login(ctx context.Context, email, password string) (token string, user *domain.User, err error)
	// ParseToken verifies the signature and expiry and rejects revoked tokens.
	ParseToken(ctx context.Context, token string) (*Claims, error)
	Logout(ctx context.Context, claims *Claims) error
	// RequestPasswordReset never reveals whether the email is registered.
	RequestPasswordReset(ctx context.Context, email string) error
	ConfirmPasswordReset(ctx context.Context, token, newPassword string) error
}

// authService implements the AuthService interface.
type authService struct {
	userRepo      repository.UserRepository
	tokenRepo     repository.TokenRepository
	publisher     events.Publisher
	jwtSecret     string
	jwtExpiration time.Duration
	now           func() time.Time
}

// NewAuthService creates a new instance of authService.
func NewAuthService(
	userRepo repository.UserRepository,
	tokenRepo repository.TokenRepository,
	publisher events.Publisher,
	jwtSecret string,
	jwtExpiration time.Duration,
) AuthService {
	if jwtSecret == "" {
		panic("JWT secret cannot be empty")
	}
	if jwtExpiration <= 0 {
		jwtExpiration = time.Hour
	}
	return &authService{
		userRepo:      userRepo,
		tokenRepo:     tokenRepo,
		publisher:     publisher,
		jwtSecret:     jwtSecret,
		jwtExpiration: jwtExpiration,
		now:           time.Now,
	}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Register handles new user registration.
func (s *authService) Register(ctx context.Context, input RegisterInput) (*domain.User, error) {
	name := strings.TrimSpace(input.Name)
	email := normalizeEmail(input.Email)
	if name == "" || email == "" || input.Password == "" {
		return nil, invalidInput("name, email and password cannot be empty")
	}
	if _, err := mail.ParseAddress(email); err != nil {
		return nil, invalidInput("malformed email address")
	}
	if len(input.Password) < MinPasswordLength {
		return nil, ErrWeakPassword
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(input.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, ErrHashingFailed
	}

	user := &domain.User{
		Name:         name,
		Email:        email,
		PasswordHash: string(hashedPassword),
		Age:          input.Age,
		Weight:       input.Weight,
		Height:       input.Height,
	}

	// The unique email index decides races between concurrent sign-ups.
	userID, err := s.userRepo.Create(ctx, user)
	if err != nil {
		if errors.Is(err, repository.ErrConflict) {
			return nil, ErrUserAlreadyExists
		}
		return nil, storeErr("create user", err)
	}
	user.ID = userID
	user.PasswordHash = ""

	log.WithField("user_id", userID.Hex()).Info("user registered")
	return user, nil
}

// Login handles user authentication and JWT generation.
func (s *authService) Login(ctx context.Context, email, password string) (string, *domain.User, error) {
	email = normalizeEmail(email)
	if email == "" || password == "" {
		return "", nil, invalidInput("email and password cannot be empty")
	}

	user, err := s.userRepo.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return "", nil, ErrAuthenticationFailed
		}
		return "", nil, storeErr("get user by email", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return "", nil, ErrAuthenticationFailed
	}

	token, err := s.generateJWT(user)
	if err != nil {
		return "", nil, ErrTokenGeneration
	}

	user.PasswordHash = ""
	return token, user, nil
}

// generateJWT creates a new JWT token for the given user.
func (s *authService) generateJWT(user *domain.User) (string, error) {
	now := s.now()
	claims := &Claims{
		UserID: user.ID.Hex(),
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   user.ID.Hex(),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.jwtExpiration)),
			IssuedAt:  jwt.NewNumericDate(now),
			Issuer:    tokenIssuer,
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(s.jwtSecret))
}

func (s *authService) ParseToken(ctx context.Context, tokenString string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(s.jwtSecret), nil
	})
	if err != nil || !token.Valid {
		return nil, ErrInvalidToken
	}
	if _, err := primitive.ObjectIDFromHex(claims.UserID); err != nil {
		return nil, ErrInvalidToken
	}

	if claims.ID != "" {
		revoked, err := s.tokenRepo.IsRevoked(ctx, claims.ID)
		if err != nil {
			return nil, storeErr("check token revocation", err)
		}
		if revoked {
			return nil, ErrInvalidToken
		}
	}
	return claims, nil
}

func (s *authService) Logout(ctx context.Context, claims *Claims) error {
	if claims == nil || claims.ID == "" {
		return ErrInvalidToken
	}
	expiresAt := s.now().Add(s.jwtExpiration)
	if claims.ExpiresAt != nil {
		expiresAt = claims.ExpiresAt.Time
	}
	if err := s.tokenRepo.Revoke(ctx, claims.ID, expiresAt); err != nil {
		return storeErr("revoke token", err)
	}
	log.WithField("user_id", claims.UserID).Debug("token revoked")
	return nil
}

// Reset tokens look like <userID hex>.<random uuid>; only a bcrypt hash of the uuid is stored.
func (s *authService) RequestPasswordReset(ctx context.Context, email string) error {
	email = normalizeEmail(email)
	if email == "" {
		return invalidInput("email cannot be empty")
	}

	user, err := s.userRepo.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			log.Debug("password reset requested for unknown email")
			return nil
		}
		return storeErr("get user by email", err)
	}

	secret := uuid.NewString()
	hash, err := bcrypt.GenerateFromPassword([]byte(secret), bcrypt.DefaultCost)
	if err != nil {
		return ErrHashingFailed
	}
	until := s.now().Add(ResetTokenTTL)
	if err := s.userRepo.SetResetToken(ctx, user.ID, string(hash), until); err != nil {
		return storeErr("store reset token", err)
	}

	event := events.New(events.TypePasswordResetRequested, user.ID.Hex(), map[string]any{
		"email":     user.Email,
		"name":      user.DisplayName(),
		"token":     user.ID.Hex() + "." + secret,
		"expiresAt": until.UTC(),
	})
	if err := s.publisher.Publish(ctx, event); err != nil {
		log.WithError(err).WithField("user_id", user.ID.Hex()).Error("publish password reset event")
	}
	return nil
}

func (s *authService) ConfirmPasswordReset(ctx context.Context, token, newPassword string) error {
	if len(newPassword) < MinPasswordLength {
		return ErrWeakPassword
	}
	idHex, secret, ok := strings.Cut(token, ".")
	if !ok || secret == "" {
		return ErrInvalidResetToken
	}
	userID, err := primitive.ObjectIDFromHex(idHex)
	if err != nil {
		return ErrInvalidResetToken
	}

	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrInvalidResetToken
		}
		return storeErr("get user", err)
	}
	if user.ResetTokenHash == "" || user.ResetTokenUntil == nil || s.now().After(*user.ResetTokenUntil) {
		return ErrInvalidResetToken
	}
	if bcrypt.CompareHashAndPassword([]byte(user.ResetTokenHash), []byte(secret)) != nil {
		return ErrInvalidResetToken
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcrypt.DefaultCost)
	if err != nil {
		return ErrHashingFailed
	}
	if err := s.userRepo.ResetPassword(ctx, userID, string(hash)); err != nil {
		return storeErr("reset password", err)
	}
	log.WithField("user_id", userID.Hex()).Info("password reset")
	return nil
}
