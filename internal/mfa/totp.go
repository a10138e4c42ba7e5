// Package mfa implements TOTP enrollment material and code verification:
// secret generation, otpauth provisioning URIs, SVG QR codes, and
// clock-drift-tolerant code checks.
package mfa

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha1"
	"crypto/subtle"
	"encoding/base32"
	"encoding/binary"
	"fmt"
	"net/url"
	"strconv"
	"time"
)

const (
	secretBytes = 20
	codeDigits  = 6
	// period is the TOTP time step in seconds.
	period = 30
	// skew is the number of adjacent time steps accepted on either side of
	// now, tolerating client clock drift.
	skew = 1
)

var b32 = base32.StdEncoding.WithPadding(base32.NoPadding)

// Engine generates and verifies TOTP material. Issuer is the label shown by
// authenticator apps.
type Engine struct {
	issuer string
}

// NewEngine creates a TOTP engine with the given issuer label.
func NewEngine(issuer string) *Engine {
	return &Engine{issuer: issuer}
}

// GenerateSecret returns a fresh shared secret: 20 cryptographically random
// bytes, base32-encoded without padding.
func (e *Engine) GenerateSecret() (string, error) {
	raw := make([]byte, secretBytes)
	if _, err := rand.Read(raw); err != nil {
		return "", fmt.Errorf("generate totp secret: %w", err)
	}
	return b32.EncodeToString(raw), nil
}

// ProvisioningURI builds the otpauth:// URI an authenticator app enrolls
// from.
func (e *Engine) ProvisioningURI(secret, account string) string {
	label := url.PathEscape(e.issuer + ":" + account)

	v := url.Values{}
	v.Set("secret", secret)
	v.Set("issuer", e.issuer)
	v.Set("period", strconv.Itoa(period))
	v.Set("digits", strconv.Itoa(codeDigits))
	v.Set("algorithm", "SHA1")

	return "otpauth://totp/" + label + "?" + v.Encode()
}

// CurrentCode computes the 6-digit code for the current time step.
func (e *Engine) CurrentCode(secret string) (string, error) {
	return e.CodeAt(secret, time.Now())
}

// CodeAt computes the 6-digit code for the time step containing t.
func (e *Engine) CodeAt(secret string, t time.Time) (string, error) {
	key, err := b32.DecodeString(secret)
	if err != nil {
		return "", fmt.Errorf("decode totp secret: %w", err)
	}
	return hotpCode(key, t.Unix()/period), nil
}

// VerifyCode reports whether the candidate matches a code computed for the
// time steps t-1, t, or t+1 around now. Comparison is constant-time over
// zero-padded 6-digit strings.
func (e *Engine) VerifyCode(secret, candidate string, now time.Time) (bool, error) {
	if len(candidate) != codeDigits || !isNumeric(candidate) {
		return false, nil
	}

	key, err := b32.DecodeString(secret)
	if err != nil {
		return false, fmt.Errorf("decode totp secret: %w", err)
	}

	baseCounter := now.Unix() / period
	for step := int64(-skew); step <= skew; step++ {
		counter := baseCounter + step
		if counter < 0 {
			continue
		}
		if subtle.ConstantTimeCompare([]byte(hotpCode(key, counter)), []byte(candidate)) == 1 {
			return true, nil
		}
	}

	return false, nil
}

// hotpCode implements RFC 4226 dynamic truncation over HMAC-SHA1.
func hotpCode(key []byte, counter int64) string {
	var msg [8]byte
	binary.BigEndian.PutUint64(msg[:], uint64(counter))

	mac := hmac.New(sha1.New, key)
	_, _ = mac.Write(msg[:])
	sum := mac.Sum(nil)

	offset := sum[len(sum)-1] & 0x0f
	bin := (int(sum[offset])&0x7f)<<24 |
		(int(sum[offset+1])&0xff)<<16 |
		(int(sum[offset+2])&0xff)<<8 |
		(int(sum[offset+3]) & 0xff)

	return fmt.Sprintf("%06d", bin%1000000)
}

func isNumeric(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
