// Package auth issues and verifies the bearer tokens carried by API requests.
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// DefaultAccessTokenTTL applies when JWTConfig.AccessTokenTTL is not positive.
const DefaultAccessTokenTTL = 24 * time.Hour

var (
	// ErrEmptyToken is returned when no token string is supplied.
	ErrEmptyToken = errors.New("jwt: token string is empty")
	// ErrMissingUserID is returned for a token whose uid claim is blank.
	ErrMissingUserID = errors.New("jwt: missing user id claim")
)

// JWTConfig configures a JWTService. Leeway tolerates clock skew on exp, nbf and iat.
type JWTConfig struct {
	Secret         string
	Issuer         string
	AccessTokenTTL time.Duration
	Leeway         time.Duration
	Clock          func() time.Time
}

// Claims are the application claims carried next to the registered ones.
type Claims struct {
	UserID   string `json:"uid"`
	Username string `json:"usr,omitempty"`
	jwt.RegisteredClaims
}

// AccessToken is a signed token together with its expiry.
type AccessToken struct {
	Token     string    `json:"access_token"`
	TokenType string    `json:"token_type"`
	ExpiresAt time.Time `json:"expires_at"`
}

// JWTService signs and verifies HS256 access tokens.
type JWTService struct {
	key    []byte
	issuer string
	ttl    time.Duration
	clock  func() time.Time
	parser *jwt.Parser
}

func NewJWTService(cfg JWTConfig) (*JWTService, error) {
	if cfg.Secret == "" {
		return nil, errors.New("jwt: secret must be provided")
	}

	svc := &JWTService{
		key:    []byte(cfg.Secret),
		issuer: cfg.Issuer,
		ttl:    cfg.AccessTokenTTL,
		clock:  cfg.Clock,
	}
	if svc.ttl <= 0 {
		svc.ttl = DefaultAccessTokenTTL
	}
	if svc.clock == nil {
		svc.clock = time.Now
	}

	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(svc.clock),
		jwt.WithExpirationRequired(),
		jwt.WithIssuedAt(),
	}
	if cfg.Leeway > 0 {
		opts = append(opts, jwt.WithLeeway(cfg.Leeway))
	}
	if cfg.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(cfg.Issuer))
	}
	svc.parser = jwt.NewParser(opts...)

	return svc, nil
}

// GenerateAccessToken issues a token for userID. Each token gets a unique jti.
func (s *JWTService) GenerateAccessToken(userID, username string) (*AccessToken, error) {
	if userID == "" {
		return nil, errors.New("jwt: user id is required")
	}

	issuedAt := s.clock()
	expiresAt := issuedAt.Add(s.ttl)

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, &Claims{
		UserID:   userID,
		Username: username,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   userID,
			Issuer:    s.issuer,
			IssuedAt:  jwt.NewNumericDate(issuedAt),
			NotBefore: jwt.NewNumericDate(issuedAt),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	})

	signed, err := token.SignedString(s.key)
	if err != nil {
		return nil, fmt.Errorf("jwt: sign token: %w", err)
	}
	return &AccessToken{Token: signed, TokenType: "Bearer", ExpiresAt: expiresAt.UTC()}, nil
}

// ValidateAccessToken verifies signature, timing and issuer and returns the claims. Failures wrap
// the jwt package sentinels (jwt.ErrTokenExpired, jwt.ErrTokenInvalidIssuer, ...) so callers can
// tell them apart with errors.Is.
func (s *JWTService) ValidateAccessToken(raw string) (*Claims, error) {
	if raw == "" {
		return nil, ErrEmptyToken
	}

	claims := &Claims{}
	if _, err := s.parser.ParseWithClaims(raw, claims, func(*jwt.Token) (any, error) {
		return s.key, nil
	}); err != nil {
		return nil, fmt.Errorf("jwt: parse token: %w", err)
	}
	if claims.UserID == "" {
		return nil, ErrMissingUserID
	}
	return claims, nil
}

// TTL reports how long issued tokens stay valid.
func (s *JWTService) TTL() time.Duration {
	return s.ttl
}
