package auth

import (
	"context"
	"fmt"
	"time"

	"github.com/flexprice/paysync/internal/config"
	ierr "github.com/flexprice/paysync/internal/errors"
	"github.com/golang-jwt/jwt/v4"
)

// Claims is the caller identity carried by a bearer token
type Claims struct {
	UserID   string
	TenantID string
	Email    string
}

// Provider validates the tokens issued by the identity service
type Provider interface {
	ValidateToken(ctx context.Context, token string) (*Claims, error)
}

type jwtProvider struct {
	secret []byte
}

func NewProvider(cfg *config.Configuration) Provider {
	return &jwtProvider{secret: []byte(cfg.Auth.Secret)}
}

func (p *jwtProvider) ValidateToken(ctx context.Context, tokenString string) (*Claims, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return p.secret, nil
	})
	if err != nil {
		return nil, ierr.WithError(err).
			WithHint("Invalid token").
			Mark(ierr.ErrUnauthorized)
	}

	mapClaims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return nil, ierr.NewError("invalid token claims").
			WithHint("Invalid token").
			Mark(ierr.ErrUnauthorized)
	}

	userID, _ := mapClaims["user_id"].(string)
	tenantID, _ := mapClaims["tenant_id"].(string)
	email, _ := mapClaims["email"].(string)
	if userID == "" || tenantID == "" {
		return nil, ierr.NewError("token is missing user or tenant").
			WithHint("Invalid token claims").
			Mark(ierr.ErrUnauthorized)
	}

	return &Claims{
		UserID:   userID,
		TenantID: tenantID,
		Email:    email,
	}, nil
}

// GenerateToken signs an HS256 token for the given identity. It backs the
// local token command and tests; production tokens come from the identity service.
func GenerateToken(secret string, claims Claims, ttl time.Duration) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"user_id":   claims.UserID,
		"tenant_id": claims.TenantID,
		"email":     claims.Email,
		"exp":       time.Now().Add(ttl).Unix(),
	})

	signed, err := token.SignedString([]byte(secret))
	if err != nil {
		return "", ierr.WithError(err).
			WithHint("Failed to generate token").
			Mark(ierr.ErrSystem)
	}
	return signed, nil
}
