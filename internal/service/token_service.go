package service

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"socialnet/internal/cache"
	"socialnet/internal/middleware"
	"socialnet/internal/models"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const ephemeralKeyBits = 2048

// Claims are the JWT claims issued by TokenService.
type Claims struct {
	Username string `json:"username"`
	Scope    string `json:"scope"`
	jwt.RegisteredClaims
}

// TokenService issues and verifies RS256 access tokens. Revoked token IDs are
// kept in Redis until the token would have expired anyway.
type TokenService struct {
	key    *rsa.PrivateKey
	issuer string
	ttl    time.Duration
	rdb    *redis.Client
	now    func() time.Time
}

// NewTokenService returns a TokenService. rdb may be nil, which disables revocation.
func NewTokenService(key *rsa.PrivateKey, issuer string, ttl time.Duration, rdb *redis.Client) *TokenService {
	return &TokenService{key: key, issuer: issuer, ttl: ttl, rdb: rdb, now: time.Now}
}

// LoadSigningKey reads a PEM encoded RSA private key. An empty path yields a
// freshly generated key, so tokens do not survive a restart.
func LoadSigningKey(path string) (*rsa.PrivateKey, error) {
	if path == "" {
		key, err := rsa.GenerateKey(rand.Reader, ephemeralKeyBits)
		if err != nil {
			return nil, fmt.Errorf("generate signing key: %w", err)
		}
		return key, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read signing key: %w", err)
	}
	key, err := jwt.ParseRSAPrivateKeyFromPEM(data)
	if err != nil {
		return nil, fmt.Errorf("parse signing key: %w", err)
	}
	return key, nil
}

// TTL returns the lifetime of issued tokens.
func (s *TokenService) TTL() time.Duration { return s.ttl }

// Issue signs a token for user.
func (s *TokenService) Issue(user *models.User) (string, time.Time, error) {
	now := s.now()
	expiresAt := now.Add(s.ttl)
	claims := Claims{
		Username: user.Username,
		Scope:    user.Role.Scope(),
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    s.issuer,
			Subject:   strconv.FormatUint(uint64(user.ID), 10),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			ID:        uuid.NewString(),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodRS256, claims).SignedString(s.key)
	if err != nil {
		return "", time.Time{}, models.NewInternalError(err)
	}
	return signed, expiresAt, nil
}

// Parse validates signature, issuer, expiry and revocation of token.
func (s *TokenService) Parse(ctx context.Context, token string) (*Claims, error) {
	claims := &Claims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(*jwt.Token) (any, error) {
		return &s.key.PublicKey, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodRS256.Alg()}),
		jwt.WithIssuer(s.issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil || !parsed.Valid {
		return nil, models.NewUnauthorizedError("invalid or expired token")
	}

	revoked, err := s.isRevoked(ctx, claims.ID)
	if err != nil {
		return nil, err
	}
	if revoked {
		return nil, models.NewUnauthorizedError("token has been revoked")
	}
	return claims, nil
}

// Verify implements middleware.TokenVerifier.
func (s *TokenService) Verify(ctx context.Context, token string) (*middleware.Identity, error) {
	claims, err := s.Parse(ctx, token)
	if err != nil {
		return nil, err
	}
	id, err := strconv.ParseUint(claims.Subject, 10, 32)
	if err != nil || id == 0 {
		return nil, models.NewUnauthorizedError("invalid subject claim")
	}
	role := models.Role(strings.TrimPrefix(claims.Scope, "ROLE_"))
	if !role.Valid() {
		return nil, models.NewUnauthorizedError("invalid scope claim")
	}
	identity := &middleware.Identity{
		UserID:   uint(id),
		Username: claims.Username,
		Role:     role,
		TokenID:  claims.ID,
	}
	if claims.ExpiresAt != nil {
		identity.ExpiresAt = claims.ExpiresAt.Time
	}
	return identity, nil
}

// Revoke blacklists jti until expiresAt.
func (s *TokenService) Revoke(ctx context.Context, jti string, expiresAt time.Time) error {
	if s.rdb == nil || jti == "" {
		return nil
	}
	ttl := expiresAt.Sub(s.now())
	if ttl <= 0 {
		return nil
	}
	if err := s.rdb.Set(ctx, cache.BlacklistKey(jti), "1", ttl).Err(); err != nil {
		return models.NewInternalError(err)
	}
	return nil
}

func (s *TokenService) isRevoked(ctx context.Context, jti string) (bool, error) {
	if s.rdb == nil || jti == "" {
		return false, nil
	}
	n, err := s.rdb.Exists(ctx, cache.BlacklistKey(jti)).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return false, models.NewInternalError(err)
	}
	return n > 0, nil
}
