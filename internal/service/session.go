package service

import (
	"context"
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"

	"github.com/pitstopcrm/gateway/internal/model"
	"github.com/pitstopcrm/gateway/internal/store"
)

var ErrInvalidCredentials = errors.New("invalid credentials")

// Sessions issues and verifies account-owner session tokens for the
// management API. Callers of the public data API never hold these; they use
// API keys.
type Sessions struct {
	store  *store.Store
	secret []byte
	ttl    time.Duration
}

// NewSessions builds a session service signing tokens with secret.
func NewSessions(st *store.Store, secret string, ttl time.Duration) *Sessions {
	return &Sessions{store: st, secret: []byte(secret), ttl: ttl}
}

type sessionClaims struct {
	AccountID string `json:"account_id"`
	Email     string `json:"email"`
	jwt.RegisteredClaims
}

// Login verifies an email/password pair and returns a signed session token.
// The account's last-login timestamp is touched fire-and-forget.
func (s *Sessions) Login(ctx context.Context, email, password string) (string, *model.Account, error) {
	acct, err := s.store.GetAccountByEmail(ctx, email)
	if err != nil {
		if err == store.ErrNotFound {
			return "", nil, ErrInvalidCredentials
		}
		return "", nil, err
	}
	if !acct.IsActive {
		return "", nil, ErrInvalidCredentials
	}
	if bcrypt.CompareHashAndPassword([]byte(acct.PasswordHash), []byte(password)) != nil {
		return "", nil, ErrInvalidCredentials
	}

	go s.store.TouchAccountLogin(context.Background(), acct.ID)

	token, err := s.issue(acct)
	if err != nil {
		return "", nil, err
	}
	return token, acct, nil
}

func (s *Sessions) issue(acct *model.Account) (string, error) {
	now := time.Now()
	claims := sessionClaims{
		AccountID: acct.ID,
		Email:     acct.Email,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
			Issuer:    "pitstop-gateway",
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
}

// Verify parses and validates a session token, returning the account ID it
// was issued to.
func (s *Sessions) Verify(tokenStr string) (accountID string, err error) {
	claims := &sessionClaims{}
	token, err := jwt.ParseWithClaims(tokenStr, claims, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return s.secret, nil
	})
	if err != nil || !token.Valid {
		return "", ErrInvalidCredentials
	}
	return claims.AccountID, nil
}

// HashPassword returns the bcrypt hash stored for account passwords.
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}
