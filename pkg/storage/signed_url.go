package storage

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// SignedURLSigner mints and verifies HMAC-signed download tokens. A
// token encodes the export job id, the stored file name and an expiry,
// so download links need no server-side session state.
type SignedURLSigner struct {
	secret []byte
	ttl    time.Duration
}

// NewSignedURLSigner constructs a signer with the provided secret and TTL.
func NewSignedURLSigner(secret string, ttl time.Duration) *SignedURLSigner {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &SignedURLSigner{secret: []byte(secret), ttl: ttl}
}

// Generate returns a signed token for the job's stored file.
func (s *SignedURLSigner) Generate(jobID, name string) (string, time.Time, error) {
	if jobID == "" || name == "" {
		return "", time.Time{}, fmt.Errorf("job id and file name required")
	}
	if len(s.secret) == 0 {
		return "", time.Time{}, fmt.Errorf("signing secret missing")
	}
	expiresAt := time.Now().Add(s.ttl).Truncate(time.Second)
	payload := strings.Join([]string{jobID, strconv.FormatInt(expiresAt.Unix(), 10), name}, "\x00")
	encoded := base64.RawURLEncoding.EncodeToString([]byte(payload))
	token := encoded + "." + s.sign(encoded)
	return token, expiresAt, nil
}

// Parse verifies a token and returns the embedded job id, file name and
// expiry. With allowExpired the expiry check is skipped; cleanup paths
// use that to resolve files for already-lapsed jobs.
func (s *SignedURLSigner) Parse(token string, allowExpired bool) (jobID, name string, expiresAt time.Time, err error) {
	encoded, sig, ok := strings.Cut(token, ".")
	if !ok || encoded == "" || sig == "" {
		return "", "", time.Time{}, fmt.Errorf("malformed token")
	}
	if !hmac.Equal([]byte(s.sign(encoded)), []byte(sig)) {
		return "", "", time.Time{}, fmt.Errorf("token signature mismatch")
	}
	raw, err := base64.RawURLEncoding.DecodeString(encoded)
	if err != nil {
		return "", "", time.Time{}, fmt.Errorf("decode token: %w", err)
	}
	fields := strings.SplitN(string(raw), "\x00", 3)
	if len(fields) != 3 {
		return "", "", time.Time{}, fmt.Errorf("malformed token payload")
	}
	unix, err := strconv.ParseInt(fields[1], 10, 64)
	if err != nil {
		return "", "", time.Time{}, fmt.Errorf("malformed token expiry")
	}
	expiresAt = time.Unix(unix, 0)
	if !allowExpired && time.Now().After(expiresAt) {
		return "", "", time.Time{}, fmt.Errorf("token expired")
	}
	return fields[0], fields[2], expiresAt, nil
}

func (s *SignedURLSigner) sign(encoded string) string {
	mac := hmac.New(sha256.New, s.secret)
	mac.Write([]byte(encoded))
	return base64.RawURLEncoding.EncodeToString(mac.Sum(nil))
}
