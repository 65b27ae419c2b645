package identity

import (
	"context"
	"errors"
	"time"

	"github.com/highprosper/backend/internal/domain/identity"
	"github.com/highprosper/backend/internal/domain/shared"
	"github.com/highprosper/backend/internal/infrastructure/auth"
	"go.uber.org/zap"
)

// AuthService issues access tokens against stored credentials
type AuthService struct {
	jwt        *auth.JWTService
	principals identity.PrincipalRepository
	logger     *zap.Logger
}

// NewAuthService creates the auth service
func NewAuthService(jwt *auth.JWTService, principals identity.PrincipalRepository, logger *zap.Logger) *AuthService {
	return &AuthService{jwt: jwt, principals: principals, logger: logger}
}

// LoginResult is what a successful login returns
type LoginResult struct {
	Token     string              `json:"token"`
	ExpiresAt time.Time           `json:"expires_at"`
	Principal *identity.Principal `json:"principal"`
}

// Login authenticates by phone number and password. Failures are collapsed
// into a single unauthorized error so callers cannot probe which phones exist.
func (s *AuthService) Login(ctx context.Context, phone, password string) (*LoginResult, error) {
	normalized, err := identity.NormalizeMSISDN(phone)
	if err != nil {
		return nil, shared.ErrUnauthorized
	}
	p, err := s.principals.FindByPhone(ctx, normalized)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return nil, shared.ErrUnauthorized
		}
		return nil, err
	}
	if !p.Active || !auth.CheckPassword(password, p.PasswordHash) {
		return nil, shared.ErrUnauthorized
	}

	token, expiresAt, err := s.jwt.Generate(p.ID, p.Role.String(), p.Locale)
	if err != nil {
		return nil, err
	}
	s.logger.Info("principal logged in", zap.String("principal_id", p.ID.String()), zap.String("role", p.Role.String()))
	return &LoginResult{Token: token, ExpiresAt: expiresAt, Principal: p}, nil
}

// Register creates a new principal with hashed credentials
func (s *AuthService) Register(ctx context.Context, name, phone, email, password string, role identity.Role) (*identity.Principal, error) {
	p, err := identity.NewPrincipal(name, phone, email, role)
	if err != nil {
		return nil, err
	}
	if existing, err := s.principals.FindByPhone(ctx, p.Phone); err == nil && existing != nil {
		return nil, shared.ErrAlreadyExists
	}
	hash, err := auth.HashPassword(password)
	if err != nil {
		return nil, err
	}
	p.PasswordHash = hash
	if err := s.principals.Save(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}
