package service

import (
	"context"
	"fmt"

	"github.com/pkg/errors"
	"go.opentelemetry.io/otel"

	mediflow "github.com/singhaditya73/MediFlow"
	"github.com/singhaditya73/MediFlow/jwt"
)

var tracer = otel.Tracer("auth")

type AuthService struct{}

func NewAuthService() *AuthService {
	return &AuthService{}
}

type AuthResult struct {
	Address string
}

// AuthJwt validates a wallet-signed token and yields the caller's address.
// The wallet address is the only identity; there is no separate user store.
func (s *AuthService) AuthJwt(ctx context.Context, token string) (*AuthResult, error) {
	ctx, span := tracer.Start(ctx, "Auth.Service.AuthJwt")
	defer span.End()

	header, claims, err := jwt.Validate(token)
	if err != nil {
		span.RecordError(errors.Wrap(err, "jwt validation failed"))
		return nil, err
	}

	if claims.Subject != "mediflow" {
		err := fmt.Errorf("invalid subject")
		span.RecordError(err)
		return nil, err
	}

	keyID := header.KeyID
	if keyID == "" {
		keyID = claims.Issuer
	}
	if !mediflow.IsAddress(keyID) {
		err := fmt.Errorf("invalid issuer")
		span.RecordError(err)
		return nil, err
	}

	return &AuthResult{Address: mediflow.NormalizeAddress(keyID)}, nil
}
