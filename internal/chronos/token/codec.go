// Package token implements the signed check-in token a kiosk embeds in
// its QR code: base64url(JSON payload) + "." + base64url(HMAC-SHA256).
package token

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

var (
	// ErrNoSecret means the shared signing secret is missing or too short.
	// This is a startup-time condition: a server without a secret must
	// refuse to start, never fall back to unsigned tokens.
	ErrNoSecret = errors.New("token secret not configured (need at least 32 bytes)")

	ErrMalformedToken   = errors.New("malformed token")
	ErrInvalidSignature = errors.New("invalid token signature")
	ErrExpiredToken     = errors.New("token expired")
)

// Version is the current token payload format version.
const Version = "v1"

// minSecretLen is the minimum accepted secret length. HMAC-SHA256 keys
// shorter than the hash output weaken the MAC for no benefit.
const minSecretLen = 32

// nonceBytes gives a 128-bit nonce (32 hex chars on the wire).
const nonceBytes = 16

// Token is the decoded check-in token payload. It is never persisted as
// an object; it is reconstructed from its encoded form on every scan.
type Token struct {
	MachineID  string `json:"machineId"`
	IssuedAtMs int64  `json:"timestamp"`
	Nonce      string `json:"nonce"`
	ExpiresIn  int    `json:"expiresIn"` // seconds
	Version    string `json:"version"`
}

// ExpiresAtMs returns the instant after which the token is no longer valid.
func (t Token) ExpiresAtMs() int64 {
	return t.IssuedAtMs + int64(t.ExpiresIn)*1000
}

// Codec signs and verifies check-in tokens with a server-held shared secret.
// A Codec is immutable and safe for concurrent use.
type Codec struct {
	secret []byte
}

func NewCodec(secret string) (*Codec, error) {
	if len(secret) < minSecretLen {
		return nil, ErrNoSecret
	}
	return &Codec{secret: []byte(secret)}, nil
}

// Issue builds a token for the given machine with a fresh random nonce,
// valid for validFor from now. It returns the encoded wire form along
// with the decoded payload (callers need the nonce to pre-register the
// replay record).
func (c *Codec) Issue(machineID string, validFor time.Duration) (string, Token, error) {
	machineID = strings.TrimSpace(machineID)
	if machineID == "" {
		return "", Token{}, fmt.Errorf("%w: empty machine id", ErrMalformedToken)
	}
	if validFor <= 0 {
		return "", Token{}, fmt.Errorf("%w: non-positive validity", ErrMalformedToken)
	}

	nonce := make([]byte, nonceBytes)
	if _, err := rand.Read(nonce); err != nil {
		return "", Token{}, fmt.Errorf("generate nonce: %w", err)
	}

	tok := Token{
		MachineID:  machineID,
		IssuedAtMs: time.Now().UTC().UnixMilli(),
		Nonce:      hex.EncodeToString(nonce),
		ExpiresIn:  int(validFor / time.Second),
		Version:    Version,
	}

	raw, err := json.Marshal(tok)
	if err != nil {
		return "", Token{}, fmt.Errorf("encode payload: %w", err)
	}

	payload := base64.RawURLEncoding.EncodeToString(raw)
	sig := c.sign(payload)

	return payload + "." + sig, tok, nil
}

// Verify checks an encoded token against the shared secret and the given
// time. The signature is verified before any payload field is trusted:
// a forged payload must not be able to influence control flow, not even
// by looking expired. Machine existence and replay status are the
// caller's responsibility.
func (c *Codec) Verify(encoded string, now time.Time) (Token, error) {
	parts := strings.Split(strings.TrimSpace(encoded), ".")
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return Token{}, ErrMalformedToken
	}
	payload, sig := parts[0], parts[1]

	want, err := base64.RawURLEncoding.DecodeString(sig)
	if err != nil {
		return Token{}, ErrMalformedToken
	}
	got := c.mac(payload)
	if !hmac.Equal(got, want) {
		return Token{}, ErrInvalidSignature
	}

	raw, err := base64.RawURLEncoding.DecodeString(payload)
	if err != nil {
		return Token{}, ErrMalformedToken
	}

	var tok Token
	if err := json.Unmarshal(raw, &tok); err != nil {
		return Token{}, ErrMalformedToken
	}
	if tok.MachineID == "" || tok.Nonce == "" || tok.IssuedAtMs == 0 || tok.ExpiresIn <= 0 {
		return Token{}, ErrMalformedToken
	}

	if now.UTC().UnixMilli() > tok.ExpiresAtMs() {
		return Token{}, ErrExpiredToken
	}

	return tok, nil
}

func (c *Codec) mac(payload string) []byte {
	h := hmac.New(sha256.New, c.secret)
	h.Write([]byte(payload))
	return h.Sum(nil)
}

func (c *Codec) sign(payload string) string {
	return base64.RawURLEncoding.EncodeToString(c.mac(payload))
}
