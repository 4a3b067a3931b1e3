package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"toyshop/internal/cart"

	"github.com/dgrijalva/jwt-go"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

var (
	ErrInvalidCheckoutToken = errors.New("invalid checkout token")
	ErrCheckoutTokenUsed    = errors.New("checkout token already used")
	ErrStaleCheckoutToken   = errors.New("cart changed since checkout started")
)

// TokenLedger records consumed token ids.
type TokenLedger interface {
	// Consume marks jti as used and reports whether this call was the first.
	Consume(ctx context.Context, jti string, ttl time.Duration) (bool, error)
}

// MemoryTokenLedger is a process-local TokenLedger.
type MemoryTokenLedger struct {
	mu   sync.Mutex
	used map[string]time.Time
	now  func() time.Time
}

// NewMemoryTokenLedger creates an empty ledger.
func NewMemoryTokenLedger() *MemoryTokenLedger {
	return &MemoryTokenLedger{used: make(map[string]time.Time), now: time.Now}
}

func (l *MemoryTokenLedger) Consume(_ context.Context, jti string, ttl time.Duration) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	for id, exp := range l.used {
		if now.After(exp) {
			delete(l.used, id)
		}
	}
	if _, seen := l.used[jti]; seen {
		return false, nil
	}
	l.used[jti] = now.Add(ttl)
	return true, nil
}

// RedisTokenLedger shares consumed ids between instances with SETNX.
type RedisTokenLedger struct {
	client *redis.Client
	prefix string
}

// NewRedisTokenLedger creates a ledger storing keys under prefix.
func NewRedisTokenLedger(client *redis.Client, prefix string) *RedisTokenLedger {
	return &RedisTokenLedger{client: client, prefix: prefix}
}

func (l *RedisTokenLedger) Consume(ctx context.Context, jti string, ttl time.Duration) (bool, error) {
	if ttl <= 0 {
		ttl = time.Second
	}
	ok, err := l.client.SetNX(ctx, l.prefix+jti, 1, ttl).Result()
	if err != nil {
		return false, fmt.Errorf("failed to record checkout token: %w", err)
	}
	return ok, nil
}

type checkoutClaims struct {
	CartDigest string `json:"cart"`
	jwt.StandardClaims
}

// CheckoutTokens issues and redeems single-use checkout tokens bound to a
// user and the exact cart contents.
type CheckoutTokens struct {
	secret []byte
	ttl    time.Duration
	ledger TokenLedger
	now    func() time.Time
}

// NewCheckoutTokens creates a token issuer.
func NewCheckoutTokens(secret string, ttl time.Duration, ledger TokenLedger) *CheckoutTokens {
	return &CheckoutTokens{
		secret: []byte(secret),
		ttl:    ttl,
		ledger: ledger,
		now:    time.Now,
	}
}

// Issue signs a token for the user and cart.
func (t *CheckoutTokens) Issue(userID string, c cart.Cart) (string, error) {
	now := t.now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, checkoutClaims{
		CartDigest: c.Digest(),
		StandardClaims: jwt.StandardClaims{
			Subject:   userID,
			Id:        uuid.New().String(),
			IssuedAt:  now.Unix(),
			ExpiresAt: now.Add(t.ttl).Unix(),
		},
	})

	tokenString, err := token.SignedString(t.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign checkout token: %w", err)
	}
	return tokenString, nil
}

// Redeem validates the token and consumes it. A token can succeed once.
func (t *CheckoutTokens) Redeem(ctx context.Context, tokenString, userID string, c cart.Cart) error {
	if tokenString == "" {
		return ErrInvalidCheckoutToken
	}
	claims := &checkoutClaims{}
	// exp and iat are checked below against t.now.
	parser := &jwt.Parser{SkipClaimsValidation: true}
	token, err := parser.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return t.secret, nil
	})
	if err != nil || !token.Valid {
		return fmt.Errorf("%w: %v", ErrInvalidCheckoutToken, err)
	}
	now := t.now()
	if !claims.VerifyExpiresAt(now.Unix(), true) {
		return fmt.Errorf("%w: token expired", ErrInvalidCheckoutToken)
	}
	if !claims.VerifyIssuedAt(now.Unix(), false) {
		return fmt.Errorf("%w: token used before issued", ErrInvalidCheckoutToken)
	}
	if claims.Subject != userID {
		return fmt.Errorf("%w: issued to another user", ErrInvalidCheckoutToken)
	}
	if claims.CartDigest != c.Digest() {
		return ErrStaleCheckoutToken
	}

	remaining := time.Unix(claims.ExpiresAt, 0).Sub(now)
	first, err := t.ledger.Consume(ctx, claims.Id, remaining)
	if err != nil {
		return err
	}
	if !first {
		return ErrCheckoutTokenUsed
	}
	return nil
}
