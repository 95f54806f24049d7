package storage

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Token validation failures.
var (
	ErrTokenMalformed = errors.New("invalid token format")
	ErrTokenSignature = errors.New("invalid token signature")
	ErrTokenExpired   = errors.New("token expired")
)

// SignedURLSigner creates and validates signed download tokens for objects.
type SignedURLSigner struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewSignedURLSigner constructs a signer with the provided secret and TTL.
func NewSignedURLSigner(secret string, ttl time.Duration) *SignedURLSigner {
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &SignedURLSigner{secret: []byte(secret), ttl: ttl, now: time.Now}
}

// Generate returns a token granting read access to resourceID's variant
// ("original" or "thumb") until the returned expiry.
func (s *SignedURLSigner) Generate(resourceID, variant string) (string, time.Time, error) {
	if resourceID == "" || variant == "" {
		return "", time.Time{}, fmt.Errorf("resource id and variant required")
	}
	if strings.Contains(resourceID, ".") || strings.Contains(variant, ".") {
		return "", time.Time{}, fmt.Errorf("resource id and variant must not contain '.'")
	}
	if len(s.secret) == 0 {
		return "", time.Time{}, fmt.Errorf("signing secret missing")
	}
	expiresAt := s.now().Add(s.ttl).Truncate(time.Second)
	ts := strconv.FormatInt(expiresAt.Unix(), 10)
	token := strings.Join([]string{resourceID, variant, ts, s.sign(resourceID, variant, ts)}, ".")
	return token, expiresAt, nil
}

// Verify checks token for resourceID and returns the variant it grants.
func (s *SignedURLSigner) Verify(token, resourceID string) (string, error) {
	parts := strings.Split(token, ".")
	if len(parts) != 4 {
		return "", ErrTokenMalformed
	}
	id, variant, ts, signature := parts[0], parts[1], parts[2], parts[3]

	expUnix, err := strconv.ParseInt(ts, 10, 64)
	if err != nil {
		return "", ErrTokenMalformed
	}
	if !hmac.Equal([]byte(s.sign(id, variant, ts)), []byte(signature)) {
		return "", ErrTokenSignature
	}
	if id != resourceID {
		return "", ErrTokenSignature
	}
	if s.now().After(time.Unix(expUnix, 0)) {
		return "", ErrTokenExpired
	}
	return variant, nil
}

func (s *SignedURLSigner) sign(id, variant, ts string) string {
	mac := hmac.New(sha256.New, s.secret)
	_, _ = mac.Write([]byte(id + "|" + variant + "|" + ts))
	return hex.EncodeToString(mac.Sum(nil))
}
