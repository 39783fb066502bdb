package utils

import (
	"errors"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// AccessToken is a signed staff JWT and its expiry.
type AccessToken struct {
	Token string
	Exp   time.Time
}

// StaffClaims are the claims carried by a staff access token. The subject
// is the staff user id in decimal.
type StaffClaims struct {
	Role  string `json:"role"`
	Email string `json:"email,omitempty"`
	jwt.RegisteredClaims
}

// StaffID parses the subject back into an id.
func (c StaffClaims) StaffID() (uint64, error) {
	return strconv.ParseUint(c.Subject, 10, 64)
}

// NewAccessToken signs an HS256 token for a staff user, valid for ttlMin
// minutes from now.
func NewAccessToken(secret string, staffID uint64, email, role string, ttlMin int, now time.Time) (AccessToken, error) {
	now = now.UTC()
	exp := now.Add(time.Duration(ttlMin) * time.Minute)
	claims := StaffClaims{
		Role:  role,
		Email: email,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatUint(staffID, 10),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	if err != nil {
		return AccessToken{}, err
	}
	return AccessToken{Token: signed, Exp: exp}, nil
}

// ParseAccessToken verifies signature, algorithm and expiry and returns the
// claims.
func ParseAccessToken(secret, raw string) (*StaffClaims, error) {
	claims := &StaffClaims{}
	tok, err := jwt.ParseWithClaims(raw, claims, func(*jwt.Token) (any, error) {
		return []byte(secret), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithExpirationRequired())
	if err != nil {
		return nil, err
	}
	if !tok.Valid {
		return nil, errors.New("invalid token")
	}
	if _, err := claims.StaffID(); err != nil {
		return nil, errors.New("invalid subject")
	}
	return claims, nil
}
