package auth

import (
	"challenge-chat/contract"
	"challenge-chat/domain"
	"challenge-chat/errors"
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

type tokenIdentity struct {
	Subject string `validate:"required,max=128"`
	Name    string `validate:"max=128"`
}

// Gateway turns a bearer credential into the identity a connection is bound to.
type Gateway struct {
	issuer      *Issuer
	credentials contract.ICredentialRepository
	log         *slog.Logger
}

func NewGateway(issuer *Issuer, credentials contract.ICredentialRepository, log *slog.Logger) *Gateway {
	return &Gateway{issuer: issuer, credentials: credentials, log: log}
}

// Authenticate accepts "Bearer <jwt>" or a bare token.
// Every failure classifies as an authentication error.
func (g *Gateway) Authenticate(ctx context.Context, bearer string) (domain.Identity, error) {
	raw := strings.TrimSpace(bearer)
	if len(raw) >= 7 && strings.EqualFold(raw[:7], "bearer ") {
		raw = strings.TrimSpace(raw[7:])
	}
	if raw == "" {
		return domain.Identity{}, errors.ErrUnauthenticated
	}

	claims, err := g.issuer.Parse(raw)
	if err != nil {
		g.log.Debug("Token rejected", "error", err)
		return domain.Identity{}, fmt.Errorf("%w: %v", errors.ErrInvalidToken, err)
	}
	if err := validate.Struct(tokenIdentity{Subject: claims.Subject, Name: claims.Name}); err != nil {
		return domain.Identity{}, fmt.Errorf("%w: %v", errors.ErrInvalidToken, err)
	}
	identity := domain.Identity{ID: domain.UserID(claims.Subject), DisplayName: claims.Name}
	if !identity.ID.Valid() {
		return domain.Identity{}, fmt.Errorf("%w: malformed subject", errors.ErrInvalidToken)
	}
	if identity.DisplayName == "" {
		identity.DisplayName = identity.ID.String()
	}

	current, err := g.credentials.Current(ctx, identity.ID)
	if err != nil {
		g.log.Error("Unable to read credential version", "user_id", identity.ID, "error", err)
		return domain.Identity{}, fmt.Errorf("%w: credential version unavailable", errors.ErrUnauthenticated)
	}
	if current != claims.Version {
		g.log.Info("Stale credential refused", "user_id", identity.ID,
			"token_version", claims.Version, "current_version", current)
		return domain.Identity{}, errors.ErrStaleCredential
	}
	return identity, nil
}
