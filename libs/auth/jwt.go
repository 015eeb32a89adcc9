package auth

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"strings"
	"time"
)

// ErrInvalidToken covers every rejection reason: bad signature, malformed
// payload, expired. Callers must not be able to tell them apart.
var ErrInvalidToken = errors.New("invalid token")

// TokenTTL bounds the exposure window of a leaked token; there is no
// revocation list, so expiry is the only way out.
const TokenTTL = 15 * time.Minute

type Claims struct {
	Sub int64 `json:"sub"`
	Iat int64 `json:"iat"`
	Exp int64 `json:"exp"`
}

// NewClaims builds claims for the given patient id with the fixed TTL.
func NewClaims(patientID int64, now time.Time) Claims {
	return Claims{
		Sub: patientID,
		Iat: now.Unix(),
		Exp: now.Add(TokenTTL).Unix(),
	}
}

// Sign produces an HS256 JWT for the claims.
func Sign(claims Claims, secret string) (string, error) {
	header := map[string]string{
		"alg": "HS256",
		"typ": "JWT",
	}
	headerJSON, err := json.Marshal(header)
	if err != nil {
		return "", err
	}
	payloadJSON, err := json.Marshal(claims)
	if err != nil {
		return "", err
	}

	unsigned := base64.RawURLEncoding.EncodeToString(headerJSON) +
		"." + base64.RawURLEncoding.EncodeToString(payloadJSON)
	return unsigned + "." + hmacSHA256(unsigned, secret), nil
}

// ParseAndVerify checks the signature and expiration and returns the claims.
// The signature is checked before the payload is decoded.
func ParseAndVerify(token, secret string) (*Claims, error) {
	parts := strings.Split(token, ".")
	if len(parts) != 3 {
		return nil, ErrInvalidToken
	}
	unsigned := parts[0] + "." + parts[1]
	if !hmac.Equal([]byte(parts[2]), []byte(hmacSHA256(unsigned, secret))) {
		return nil, ErrInvalidToken
	}

	payload, err := base64.RawURLEncoding.DecodeString(parts[1])
	if err != nil {
		return nil, ErrInvalidToken
	}

	var claims Claims
	if err := json.Unmarshal(payload, &claims); err != nil {
		return nil, ErrInvalidToken
	}
	if claims.Sub <= 0 {
		return nil, ErrInvalidToken
	}
	if claims.Exp > 0 && time.Now().Unix() >= claims.Exp {
		return nil, ErrInvalidToken
	}
	return &claims, nil
}

func hmacSHA256(data, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	_, _ = mac.Write([]byte(data))
	return base64.RawURLEncoding.EncodeToString(mac.Sum(nil))
}
