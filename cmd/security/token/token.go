package token

import (
	"bytes"
	"crypto/rand"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/oklog/ulid/v2"
)

const minSecretBytes = 32

// Config defines signing secrets and lifetimes for the issuer.
// AccessSecret and RefreshSecret must be distinct.
type Config struct {
	Issuer string

	AccessSecret  []byte
	RefreshSecret []byte

	AccessTTL  time.Duration
	RefreshTTL time.Duration

	// ClockSkew is the allowed time skew during verification.
	ClockSkew time.Duration
}

// AccessClaims is the decoded payload of an access token.
type AccessClaims struct {
	UserID    string
	Email     string
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// RefreshClaims is the decoded payload of a refresh token.
type RefreshClaims struct {
	UserID    string
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// Pair bundles a freshly issued access/refresh token pair.
type Pair struct {
	AccessToken      string
	RefreshToken     string
	AccessExpiresAt  time.Time
	RefreshExpiresAt time.Time
}

// Issuer mints and verifies signed token pairs.
type Issuer struct {
	cfg Config
}

type accessTokenClaims struct {
	jwt.RegisteredClaims
	Email string `json:"email"`
}

// NewIssuer constructs an Issuer, validating the secret material up front.
func NewIssuer(cfg Config) (*Issuer, error) {
	if len(cfg.AccessSecret) < minSecretBytes {
		return nil, fmt.Errorf("%w: access secret shorter than %d bytes", ErrConfig, minSecretBytes)
	}
	if len(cfg.RefreshSecret) < minSecretBytes {
		return nil, fmt.Errorf("%w: refresh secret shorter than %d bytes", ErrConfig, minSecretBytes)
	}
	if bytes.Equal(cfg.AccessSecret, cfg.RefreshSecret) {
		return nil, fmt.Errorf("%w: access and refresh secrets must be distinct", ErrConfig)
	}
	if cfg.AccessTTL <= 0 || cfg.RefreshTTL <= 0 {
		return nil, fmt.Errorf("%w: token TTLs must be positive", ErrConfig)
	}
	if cfg.ClockSkew < 0 {
		return nil, fmt.Errorf("%w: negative clock skew", ErrConfig)
	}
	return &Issuer{cfg: cfg}, nil
}

// IssuePair mints a new access/refresh token pair for the user.
func (i *Issuer) IssuePair(userID, email string, now time.Time) (Pair, error) {
	if userID == "" {
		return Pair{}, fmt.Errorf("%w: empty user id", ErrConfig)
	}
	if now.IsZero() {
		now = time.Now().UTC()
	}

	accessExp := now.Add(i.cfg.AccessTTL)
	refreshExp := now.Add(i.cfg.RefreshTTL)

	access := jwt.NewWithClaims(jwt.SigningMethodHS256, accessTokenClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    i.cfg.Issuer,
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(accessExp),
		},
		Email: email,
	})
	accessSigned, err := access.SignedString(i.cfg.AccessSecret)
	if err != nil {
		return Pair{}, err
	}

	// The jti keeps refresh tokens distinct even when two are minted for the
	// same user within the same second; rotation relies on the new token
	// differing from the old one.
	jti, err := ulid.New(ulid.Timestamp(now), rand.Reader)
	if err != nil {
		return Pair{}, err
	}
	refresh := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		ID:        jti.String(),
		Issuer:    i.cfg.Issuer,
		Subject:   userID,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(refreshExp),
	})
	refreshSigned, err := refresh.SignedString(i.cfg.RefreshSecret)
	if err != nil {
		return Pair{}, err
	}

	return Pair{
		AccessToken:      accessSigned,
		RefreshToken:     refreshSigned,
		AccessExpiresAt:  accessExp,
		RefreshExpiresAt: refreshExp,
	}, nil
}

// VerifyAccess checks signature and expiry of an access token under the
// access secret and returns its claims.
func (i *Issuer) VerifyAccess(tokenStr string, now time.Time) (AccessClaims, error) {
	claims := &accessTokenClaims{}
	if err := i.parse(tokenStr, claims, i.cfg.AccessSecret, now); err != nil {
		return AccessClaims{}, err
	}
	if claims.Subject == "" {
		return AccessClaims{}, ErrTokenMalformed
	}
	return AccessClaims{
		UserID:    claims.Subject,
		Email:     claims.Email,
		IssuedAt:  timeOf(claims.IssuedAt),
		ExpiresAt: timeOf(claims.ExpiresAt),
	}, nil
}

// VerifyRefresh checks signature and expiry of a refresh token under the
// refresh secret and returns its claims. Equality with the stored token is
// the session layer's responsibility.
func (i *Issuer) VerifyRefresh(tokenStr string, now time.Time) (RefreshClaims, error) {
	claims := &jwt.RegisteredClaims{}
	if err := i.parse(tokenStr, claims, i.cfg.RefreshSecret, now); err != nil {
		return RefreshClaims{}, err
	}
	if claims.Subject == "" {
		return RefreshClaims{}, ErrTokenMalformed
	}
	return RefreshClaims{
		UserID:    claims.Subject,
		IssuedAt:  timeOf(claims.IssuedAt),
		ExpiresAt: timeOf(claims.ExpiresAt),
	}, nil
}

func (i *Issuer) parse(tokenStr string, claims jwt.Claims, secret []byte, now time.Time) error {
	if now.IsZero() {
		now = time.Now().UTC()
	}

	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(func() time.Time { return now }),
		jwt.WithLeeway(i.cfg.ClockSkew),
		jwt.WithExpirationRequired(),
	}
	if i.cfg.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(i.cfg.Issuer))
	}

	parsed, err := jwt.ParseWithClaims(tokenStr, claims, func(*jwt.Token) (any, error) {
		return secret, nil
	}, opts...)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return ErrTokenExpired
		}
		return ErrTokenMalformed
	}
	if !parsed.Valid {
		return ErrTokenMalformed
	}
	return nil
}

func timeOf(d *jwt.NumericDate) time.Time {
	if d == nil {
		return time.Time{}
	}
	return d.Time
}
