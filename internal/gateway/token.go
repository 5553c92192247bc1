package gateway

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"strings"
	"time"
)

// ErrInvalidToken covers every token defect: bad shape, bad signature,
// expired, unknown algorithm. Callers answer 401 without detail.
var ErrInvalidToken = errors.New("could not validate credentials")

type tokenHeader struct {
	Alg string `json:"alg"`
	Typ string `json:"typ"`
}

type tokenClaims struct {
	Sub string `json:"sub"`
	Exp int64  `json:"exp"`
}

var b64 = base64.RawURLEncoding

// IssueToken mints an HS256 JWT with subject and expiry claims.
func IssueToken(secret, username string, ttl time.Duration) (string, error) {
	header, err := json.Marshal(tokenHeader{Alg: "HS256", Typ: "JWT"})
	if err != nil {
		return "", err
	}
	claims, err := json.Marshal(tokenClaims{
		Sub: username,
		Exp: time.Now().Add(ttl).Unix(),
	})
	if err != nil {
		return "", err
	}

	signing := b64.EncodeToString(header) + "." + b64.EncodeToString(claims)
	return signing + "." + sign(secret, signing), nil
}

// ParseToken verifies an HS256 JWT and returns its subject.
func ParseToken(secret, token string) (string, error) {
	parts := strings.Split(token, ".")
	if len(parts) != 3 {
		return "", ErrInvalidToken
	}
	signing := parts[0] + "." + parts[1]
	if !hmac.Equal([]byte(sign(secret, signing)), []byte(parts[2])) {
		return "", ErrInvalidToken
	}

	rawHeader, err := b64.DecodeString(parts[0])
	if err != nil {
		return "", ErrInvalidToken
	}
	var header tokenHeader
	if json.Unmarshal(rawHeader, &header) != nil || header.Alg != "HS256" {
		return "", ErrInvalidToken
	}

	rawClaims, err := b64.DecodeString(parts[1])
	if err != nil {
		return "", ErrInvalidToken
	}
	var claims tokenClaims
	if json.Unmarshal(rawClaims, &claims) != nil {
		return "", ErrInvalidToken
	}
	if claims.Sub == "" || time.Now().Unix() >= claims.Exp {
		return "", ErrInvalidToken
	}
	return claims.Sub, nil
}

func sign(secret, signing string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(signing))
	return b64.EncodeToString(mac.Sum(nil))
}
