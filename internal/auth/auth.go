// Package auth issues and verifies the bearer tokens the HTTP API accepts.
package auth

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var ErrInvalidToken = errors.New("auth: invalid token")

type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

func (r Role) Valid() bool {
	return r == RoleUser || r == RoleAdmin
}

// Principal is the caller a verified token speaks for.
type Principal struct {
	UserID int64
	Role   Role
}

func (p Principal) Admin() bool {
	return p.Role == RoleAdmin
}

type claims struct {
	jwt.RegisteredClaims
	Role Role `json:"role"`
}

const issuer = "numrent"

type Issuer struct {
	secret []byte
	ttl    time.Duration
	admins []int64
	now    func() time.Time
}

// NewIssuer signs tokens with secret. Users listed in admins get RoleAdmin.
func NewIssuer(secret string, ttl time.Duration, admins []int64) *Issuer {
	return &Issuer{secret: []byte(secret), ttl: ttl, admins: admins, now: time.Now}
}

func (i *Issuer) WithClock(now func() time.Time) *Issuer {
	i.now = now
	return i
}

// RoleOf reports the role a token for userID would carry.
func (i *Issuer) RoleOf(userID int64) Role {
	if slices.Contains(i.admins, userID) {
		return RoleAdmin
	}

	return RoleUser
}

// Issue returns a signed token for userID and its expiry.
func (i *Issuer) Issue(userID int64) (string, time.Time, error) {
	now := i.now()
	expires := now.Add(i.ttl)

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			Subject:   strconv.FormatInt(userID, 10),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expires),
		},
		Role: i.RoleOf(userID),
	})

	signed, err := token.SignedString(i.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("auth: sign token: %w", err)
	}

	return signed, expires, nil
}

// Verify checks the signature and expiry of token and returns its principal.
func (i *Issuer) Verify(token string) (Principal, error) {
	var c claims

	_, err := jwt.ParseWithClaims(token, &c, func(*jwt.Token) (any, error) {
		return i.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(i.now),
	)
	if err != nil {
		return Principal{}, fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}

	userID, err := strconv.ParseInt(c.Subject, 10, 64)
	if err != nil {
		return Principal{}, fmt.Errorf("%w: subject %q", ErrInvalidToken, c.Subject)
	}

	if !c.Role.Valid() {
		return Principal{}, fmt.Errorf("%w: role %q", ErrInvalidToken, c.Role)
	}

	return Principal{UserID: userID, Role: c.Role}, nil
}

type ctxKey struct{}

func WithPrincipal(ctx context.Context, p Principal) context.Context {
	return context.WithValue(ctx, ctxKey{}, p)
}

func FromContext(ctx context.Context) (Principal, bool) {
	p, ok := ctx.Value(ctxKey{}).(Principal)
	return p, ok
}
