package devserver

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"
)

var (
	// ErrInvalidToken is returned for tokens that fail validation.
	ErrInvalidToken = errors.New("invalid token")

	// ErrRefreshNotFound is returned when a refresh token is unknown
	// or already revoked.
	ErrRefreshNotFound = errors.New("refresh token not found")
)

// Claims are the access-token claims: registered sub/exp plus email.
type Claims struct {
	Email string `json:"email"`
	jwt.RegisteredClaims
}

// TokenPair is one issued access/refresh token bundle.
type TokenPair struct {
	AccessToken  string
	ExpiresIn    int64
	ExpiresAt    int64
	RefreshToken string
}

// TokenIssuer mints HS256 access tokens and keeps refresh tokens in
// Redis with a TTL, keyed for per-user revocation on logout.
type TokenIssuer struct {
	secret     []byte
	accessTTL  time.Duration
	refreshTTL time.Duration
	redis      *goredis.Client
}

// NewTokenIssuer creates a token issuer.
func NewTokenIssuer(secret string, accessTTL, refreshTTL time.Duration, redis *goredis.Client) *TokenIssuer {
	return &TokenIssuer{
		secret:     []byte(secret),
		accessTTL:  accessTTL,
		refreshTTL: refreshTTL,
		redis:      redis,
	}
}

func refreshKey(token string) string { return "refresh:" + token }
func userTokensKey(userID string) string { return "user_refresh:" + userID }

// Issue mints a token pair for the user.
func (t *TokenIssuer) Issue(ctx context.Context, userID, email string) (TokenPair, error) {
	now := time.Now()
	expiresAt := now.Add(t.accessTTL)

	claims := Claims{
		Email: email,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(t.secret)
	if err != nil {
		return TokenPair{}, fmt.Errorf("sign access token: %w", err)
	}

	refresh := uuid.NewString()
	if err := t.redis.Set(ctx, refreshKey(refresh), userID, t.refreshTTL).Err(); err != nil {
		return TokenPair{}, fmt.Errorf("store refresh token: %w", err)
	}
	if err := t.redis.SAdd(ctx, userTokensKey(userID), refresh).Err(); err != nil {
		return TokenPair{}, fmt.Errorf("index refresh token: %w", err)
	}
	t.redis.Expire(ctx, userTokensKey(userID), t.refreshTTL)

	return TokenPair{
		AccessToken:  signed,
		ExpiresIn:    int64(t.accessTTL.Seconds()),
		ExpiresAt:    expiresAt.Unix(),
		RefreshToken: refresh,
	}, nil
}

// Redeem exchanges a refresh token for the user it belongs to and
// revokes it. The caller issues a fresh pair afterwards.
func (t *TokenIssuer) Redeem(ctx context.Context, refreshToken string) (string, error) {
	userID, err := t.redis.Get(ctx, refreshKey(refreshToken)).Result()
	if err == goredis.Nil {
		return "", ErrRefreshNotFound
	}
	if err != nil {
		return "", err
	}

	if err := t.redis.Del(ctx, refreshKey(refreshToken)).Err(); err != nil {
		return "", err
	}
	t.redis.SRem(ctx, userTokensKey(userID), refreshToken)

	return userID, nil
}

// RevokeAll revokes every refresh token issued to the user.
func (t *TokenIssuer) RevokeAll(ctx context.Context, userID string) error {
	tokens, err := t.redis.SMembers(ctx, userTokensKey(userID)).Result()
	if err != nil && err != goredis.Nil {
		return err
	}
	for _, tok := range tokens {
		if err := t.redis.Del(ctx, refreshKey(tok)).Err(); err != nil {
			return err
		}
	}
	return t.redis.Del(ctx, userTokensKey(userID)).Err()
}

// Validate parses and verifies an access token, returning the user id
// and email claims.
func (t *TokenIssuer) Validate(tokenString string) (userID, email string, err error) {
	var claims Claims
	token, err := jwt.ParseWithClaims(tokenString, &claims, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return t.secret, nil
	})
	if err != nil || !token.Valid {
		return "", "", ErrInvalidToken
	}
	if claims.Subject == "" {
		return "", "", ErrInvalidToken
	}
	return claims.Subject, claims.Email, nil
}
