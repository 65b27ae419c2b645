// Package identity resolves bearer tokens and phone numbers to principals.
package identity

import (
	"context"
	"errors"

	"github.com/highprosper/backend/internal/domain/identity"
	"github.com/highprosper/backend/internal/domain/shared"
	"github.com/highprosper/backend/internal/infrastructure/auth"
	"go.uber.org/zap"
)

// Resolver maps (token | MSISDN) to a Principal. Token resolution never
// panics and returns nil for expired or invalid tokens; callers decide how
// to reject.
type Resolver struct {
	jwt        *auth.JWTService
	principals identity.PrincipalRepository
	logger     *zap.Logger
}

// NewResolver creates the resolver
func NewResolver(jwt *auth.JWTService, principals identity.PrincipalRepository, logger *zap.Logger) *Resolver {
	return &Resolver{jwt: jwt, principals: principals, logger: logger}
}

// ResolveToken returns the principal behind a bearer token, nil when the
// token is missing, expired, invalid, or the principal is deactivated.
func (r *Resolver) ResolveToken(ctx context.Context, token string) *identity.Principal {
	if token == "" {
		return nil
	}
	claims, err := r.jwt.Validate(token)
	if err != nil {
		return nil
	}
	id, err := claims.GetPrincipalUUID()
	if err != nil {
		return nil
	}
	p, err := r.principals.FindByID(ctx, id)
	if err != nil {
		if !errors.Is(err, shared.ErrNotFound) {
			r.logger.Warn("principal lookup failed during token resolution", zap.Error(err))
		}
		return nil
	}
	if !p.Active {
		return nil
	}
	return p
}

// ResolveMSISDN returns the principal behind a phone number. The raw number
// is normalized to E.164 before lookup.
func (r *Resolver) ResolveMSISDN(ctx context.Context, raw string) (*identity.Principal, error) {
	phone, err := identity.NormalizeMSISDN(raw)
	if err != nil {
		return nil, shared.NewDomainError("INVALID_PHONE", err.Error())
	}
	return r.principals.FindByPhone(ctx, phone)
}

// LocaleFor picks the best locale for a caller: the principal's stored
// locale when known, the phone-prefix table otherwise.
func (r *Resolver) LocaleFor(p *identity.Principal, phone string) string {
	if p != nil && p.Locale != "" {
		return p.Locale
	}
	if phone != "" {
		return identity.LocaleForPhone(phone)
	}
	return identity.DefaultLocale
}
