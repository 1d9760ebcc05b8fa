package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/X-culture24/my-farm/pkg/middleware"
)

// TokenClaims is the access-token payload issued by the farm user service.
type TokenClaims struct {
	UserID string   `json:"userId"`
	Email  string   `json:"email"`
	Role   string   `json:"role"`
	Farms  []string `json:"farms"`
	jwt.RegisteredClaims
}

// Verifier validates HS256 access tokens. It never mints them.
type Verifier struct {
	secret []byte
	issuer string
	leeway time.Duration
}

// NewVerifier returns a Verifier for secret. An empty issuer skips the iss check.
func NewVerifier(secret, issuer string, leeway time.Duration) *Verifier {
	return &Verifier{secret: []byte(secret), issuer: issuer, leeway: leeway}
}

// Verify parses token and returns the caller's claims.
func (v *Verifier) Verify(token string) (*middleware.Claims, error) {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithLeeway(v.leeway),
		jwt.WithExpirationRequired(),
	}
	if v.issuer != "" {
		opts = append(opts, jwt.WithIssuer(v.issuer))
	}

	parsed, err := jwt.ParseWithClaims(token, &TokenClaims{}, func(*jwt.Token) (any, error) {
		return v.secret, nil
	}, opts...)
	if err != nil {
		return nil, fmt.Errorf("parse access token: %w", err)
	}

	tc, ok := parsed.Claims.(*TokenClaims)
	if !ok || !parsed.Valid {
		return nil, errors.New("invalid access token claims")
	}

	userID := tc.UserID
	if userID == "" {
		userID = tc.Subject
	}
	if userID == "" {
		return nil, errors.New("access token has no user id")
	}

	return &middleware.Claims{
		UserID: userID,
		Email:  tc.Email,
		Role:   tc.Role,
		Farms:  tc.Farms,
	}, nil
}
