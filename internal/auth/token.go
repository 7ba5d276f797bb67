package auth

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/meridian-wms/meridian-wms/internal/shared"
)

// TokenStore keeps issued token IDs in Redis so tokens can be revoked before
// their JWT expiry. A token is valid only while its ID is present.
type TokenStore struct {
	client *redis.Client
}

// NewTokenStore constructs a TokenStore.
func NewTokenStore(client *redis.Client) *TokenStore {
	return &TokenStore{client: client}
}

func (s *TokenStore) key(jti string) string {
	return "token:" + jti
}

// Save registers a token ID with the given lifetime.
func (s *TokenStore) Save(ctx context.Context, jti string, userID int64, ttl time.Duration) error {
	if s == nil {
		return errors.New("token store not initialised")
	}
	return s.client.Set(ctx, s.key(jti), strconv.FormatInt(userID, 10), ttl).Err()
}

// Exists reports whether a token ID is still registered.
func (s *TokenStore) Exists(ctx context.Context, jti string) (bool, error) {
	if s == nil {
		return false, errors.New("token store not initialised")
	}
	n, err := s.client.Exists(ctx, s.key(jti)).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// Delete revokes a token ID.
func (s *TokenStore) Delete(ctx context.Context, jti string) error {
	if s == nil {
		return errors.New("token store not initialised")
	}
	return s.client.Del(ctx, s.key(jti)).Err()
}

// Issuer signs and verifies bearer access tokens.
type Issuer struct {
	secret []byte
	ttl    time.Duration
	store  *TokenStore
}

// NewIssuer constructs an Issuer.
func NewIssuer(secret string, ttl time.Duration, store *TokenStore) *Issuer {
	return &Issuer{secret: []byte(secret), ttl: ttl, store: store}
}

// TTL exposes the configured token lifetime.
func (i *Issuer) TTL() time.Duration {
	return i.ttl
}

// Issue creates a signed token for the user and registers it in the store.
func (i *Issuer) Issue(ctx context.Context, user *User) (string, time.Time, error) {
	now := time.Now().UTC()
	expiresAt := now.Add(i.ttl)
	jti := uuid.NewString()
	claims := jwt.MapClaims{
		"sub":   strconv.FormatInt(user.ID, 10),
		"email": user.Email,
		"jti":   jti,
		"iat":   now.Unix(),
		"exp":   expiresAt.Unix(),
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(i.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("auth: sign token: %w", err)
	}
	if i.store != nil {
		if err := i.store.Save(ctx, jti, user.ID, i.ttl); err != nil {
			return "", time.Time{}, fmt.Errorf("auth: register token: %w", err)
		}
	}
	return token, expiresAt, nil
}

// Verify parses a token string and returns the actor it identifies.
// Expired, malformed, or revoked tokens yield shared.ErrTokenInvalid.
func (i *Issuer) Verify(ctx context.Context, tokenString string) (shared.Actor, error) {
	parsed, err := jwt.Parse(tokenString, func(t *jwt.Token) (any, error) {
		return i.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil || !parsed.Valid {
		return shared.Actor{}, shared.ErrTokenInvalid
	}
	claims, ok := parsed.Claims.(jwt.MapClaims)
	if !ok {
		return shared.Actor{}, shared.ErrTokenInvalid
	}
	jti, _ := claims["jti"].(string)
	if jti == "" {
		return shared.Actor{}, shared.ErrTokenInvalid
	}
	if i.store != nil {
		alive, err := i.store.Exists(ctx, jti)
		if err != nil {
			return shared.Actor{}, err
		}
		if !alive {
			return shared.Actor{}, shared.ErrTokenInvalid
		}
	}
	sub, _ := claims["sub"].(string)
	userID, err := strconv.ParseInt(sub, 10, 64)
	if err != nil || userID <= 0 {
		return shared.Actor{}, shared.ErrTokenInvalid
	}
	email, _ := claims["email"].(string)
	return shared.Actor{UserID: userID, Email: email}, nil
}

// Revoke invalidates a previously issued token.
func (i *Issuer) Revoke(ctx context.Context, tokenString string) error {
	parsed, err := jwt.Parse(tokenString, func(t *jwt.Token) (any, error) {
		return i.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil || !parsed.Valid {
		return shared.ErrTokenInvalid
	}
	claims, ok := parsed.Claims.(jwt.MapClaims)
	if !ok {
		return shared.ErrTokenInvalid
	}
	jti, _ := claims["jti"].(string)
	if jti == "" {
		return shared.ErrTokenInvalid
	}
	if i.store == nil {
		return nil
	}
	return i.store.Delete(ctx, jti)
}
