package utils // package utils provides helper functions for token creation and hashing

import (
    "errors" // sentinel errors for verification failures
    "time"   // time utilities for generating expirations

    "github.com/golang-jwt/jwt/v5" // JWT library for creating and parsing signed tokens
    "github.com/google/uuid"       // random token ids (jti)
)

// ErrTokenExpired is returned by VerifyToken when the signature is valid but
// the exp claim lies in the past.  No leeway is applied.
var ErrTokenExpired = errors.New("token expired")

// ErrInvalidToken covers every other verification failure: bad signature,
// unexpected algorithm, malformed token or missing exp.
var ErrInvalidToken = errors.New("invalid token")

// Claims is the payload carried by both access and refresh tokens.  The
// registered claims hold sub (principal id), iat, exp and jti.  sv is the
// principal's session version at issue time; a logout bumps the version so
// older tokens stop matching.
type Claims struct {
    Email          string `json:"email"`
    Role           string `json:"role"`
    SessionVersion int64  `json:"sv"`
    jwt.RegisteredClaims
}

// Token is a signed JWT together with its expiry.  The Value is what the
// client receives and what the session store keeps.
type Token struct {
    Value     string    // the serialized JWT string
    ExpiresAt time.Time // the UTC expiration time
}

// IssueToken signs claims with HS256 and the given secret.  iat, exp and a
// fresh random jti are set here; callers only fill subject, email, role and
// session version.  The claims value is copied, so the caller's copy is not
// modified.
func IssueToken(claims Claims, secret string, ttl time.Duration) (Token, error) {
    if secret == "" {
        return Token{}, errors.New("empty signing secret")
    }
    now := time.Now().UTC()
    exp := now.Add(ttl)
    claims.IssuedAt = jwt.NewNumericDate(now)
    claims.ExpiresAt = jwt.NewNumericDate(exp)
    claims.ID = uuid.NewString()

    t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
    signed, err := t.SignedString([]byte(secret))
    if err != nil {
        return Token{}, err
    }
    return Token{Value: signed, ExpiresAt: exp}, nil
}

// VerifyToken checks the signature and expiry of raw and returns its claims.
// Only HS256 is accepted, which rules out "none" and algorithm-confusion
// tokens.  Expired tokens yield ErrTokenExpired; everything else that fails
// yields ErrInvalidToken.
func VerifyToken(raw, secret string) (*Claims, error) {
    if raw == "" || secret == "" {
        return nil, ErrInvalidToken
    }
    claims := &Claims{}
    tok, err := jwt.ParseWithClaims(raw, claims, func(*jwt.Token) (any, error) {
        return []byte(secret), nil
    }, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithExpirationRequired())
    if err != nil {
        if errors.Is(err, jwt.ErrTokenExpired) {
            return nil, ErrTokenExpired
        }
        return nil, ErrInvalidToken
    }
    if !tok.Valid {
        return nil, ErrInvalidToken
    }
    return claims, nil
}
