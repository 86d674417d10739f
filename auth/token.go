package auth

import (
	"challenge-chat/domain"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const DefaultIssuer = "challenge-chat"

// Claims defines the structure of the data stored inside the JWT.
// The subject carries the user id.
type Claims struct {
	Name    string `json:"name"`
	Version uint64 `json:"ver"`
	jwt.RegisteredClaims
}

// Issuer signs and verifies bearer credentials with a shared HS256 secret.
type Issuer struct {
	secret []byte
	name   string
	now    func() time.Time
}

func NewIssuer(secret []byte, name string) *Issuer {
	if name == "" {
		name = DefaultIssuer
	}
	return &Issuer{secret: secret, name: name, now: time.Now}
}

// Issue creates a signed JWT bound to an identity and a credential version.
func (i *Issuer) Issue(identity domain.Identity, version uint64, ttl time.Duration) (string, error) {
	now := i.now()
	claims := &Claims{
		Name:    identity.DisplayName,
		Version: version,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   identity.ID.String(),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
			Issuer:    i.name,
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(i.secret)
}

// Parse validates the signature, the expiration and the issuer of a JWT string.
func (i *Issuer) Parse(raw string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(raw, &Claims{}, func(token *jwt.Token) (any, error) {
		return i.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(i.name),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(i.now),
	)
	if err != nil {
		return nil, err
	}
	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, fmt.Errorf("unexpected claims: %w", jwt.ErrTokenInvalidClaims)
	}
	return claims, nil
}
