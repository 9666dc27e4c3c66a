package jwtauth

import (
	"context"
	"fmt"

	domainerrors "heirloom/contexts/edge-trust/gateway-service/domain/errors"
	"heirloom/contexts/edge-trust/gateway-service/ports"

	"github.com/golang-jwt/jwt/v5"
)

// Verifier validates HS256 session tokens minted by the identity issuer.
// Token minting itself lives outside this system; the gateway only consumes.
type Verifier struct {
	secret []byte
}

func NewVerifier(secret string) *Verifier {
	return &Verifier{secret: []byte(secret)}
}

func (v *Verifier) Verify(_ context.Context, token string) (ports.Identity, error) {
	parsed, err := jwt.Parse(token, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return v.secret, nil
	}, jwt.WithValidMethods([]string{"HS256"}))
	if err != nil {
		return ports.Identity{}, fmt.Errorf("%w: %v", domainerrors.ErrInvalidToken, err)
	}

	claims, ok := parsed.Claims.(jwt.MapClaims)
	if !ok {
		return ports.Identity{}, domainerrors.ErrInvalidToken
	}
	subject, _ := claims["sub"].(string)
	email, _ := claims["email"].(string)
	if subject == "" || email == "" {
		return ports.Identity{}, fmt.Errorf("%w: missing subject or email claim", domainerrors.ErrInvalidToken)
	}
	return ports.Identity{SubjectID: subject, Email: email}, nil
}
