// Package auth verifies the bearer tokens presented by app clients.
package auth

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// DefaultAccessTokenTTL is the validity of tokens issued by IssueAccessToken.
const DefaultAccessTokenTTL = 15 * time.Minute

// DefaultLeeway absorbs clock skew between the issuer and this service.
const DefaultLeeway = 30 * time.Second

// ErrInvalidToken is returned for every token that fails verification.
var ErrInvalidToken = errors.New("auth: invalid token")

// TokenConfig configures a TokenService.
type TokenConfig struct {
	Secret         string
	Issuer         string
	Audience       string
	AccessTokenTTL time.Duration
	Leeway         time.Duration
	Clock          func() time.Time
}

// Claims are the application claims carried by access tokens. Tokens minted
// by the identity service may carry the user only in the subject.
type Claims struct {
	UserID string `json:"uid,omitempty"`
	jwt.RegisteredClaims
}

// TokenService verifies HS256 access tokens shared with the identity service.
type TokenService struct {
	secret   []byte
	issuer   string
	audience string
	ttl      time.Duration
	leeway   time.Duration
	now      func() time.Time
}

// NewTokenService constructs a TokenService.
func NewTokenService(cfg TokenConfig) (*TokenService, error) {
	if strings.TrimSpace(cfg.Secret) == "" {
		return nil, errors.New("auth: jwt secret must be provided")
	}
	svc := &TokenService{
		secret:   []byte(cfg.Secret),
		issuer:   strings.TrimSpace(cfg.Issuer),
		audience: strings.TrimSpace(cfg.Audience),
		ttl:      cfg.AccessTokenTTL,
		leeway:   cfg.Leeway,
		now:      cfg.Clock,
	}
	if svc.ttl <= 0 {
		svc.ttl = DefaultAccessTokenTTL
	}
	if svc.leeway <= 0 {
		svc.leeway = DefaultLeeway
	}
	if svc.now == nil {
		svc.now = time.Now
	}
	return svc, nil
}

// IssueAccessToken signs a token for userID.
func (s *TokenService) IssueAccessToken(userID string) (string, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return "", errors.New("auth: user id is required")
	}

	now := s.now()
	claims := Claims{
		UserID: userID,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			Issuer:    s.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
		},
	}
	if s.audience != "" {
		claims.Audience = jwt.ClaimStrings{s.audience}
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("auth: sign token: %w", err)
	}
	return signed, nil
}

// Verify validates a signed token and returns the user it was issued for.
func (s *TokenService) Verify(token string) (*Claims, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, fmt.Errorf("%w: empty token", ErrInvalidToken)
	}

	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(s.now),
		jwt.WithLeeway(s.leeway),
		jwt.WithExpirationRequired(),
	}
	if s.issuer != "" {
		opts = append(opts, jwt.WithIssuer(s.issuer))
	}
	if s.audience != "" {
		opts = append(opts, jwt.WithAudience(s.audience))
	}

	var claims Claims
	if _, err := jwt.NewParser(opts...).ParseWithClaims(token, &claims, func(*jwt.Token) (any, error) {
		return s.secret, nil
	}); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}

	if claims.UserID == "" {
		claims.UserID = claims.Subject
	}
	if claims.UserID == "" {
		return nil, fmt.Errorf("%w: missing user id", ErrInvalidToken)
	}
	return &claims, nil
}
