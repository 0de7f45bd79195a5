package tools

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"strings"
)

const SIGNATURE_HEADER = "X-Hub-Signature-256"

var ErrInvalidSignature = errors.New("invalid webhook signature")

// VerifySignature checks the "sha256=<hex>" HMAC Meta sends over the raw body.
func VerifySignature(appSecret string, body []byte, header string) error {
	sig := strings.TrimSpace(header)
	if !strings.HasPrefix(sig, "sha256=") {
		return ErrInvalidSignature
	}
	got, err := hex.DecodeString(strings.TrimPrefix(sig, "sha256="))
	if err != nil {
		return ErrInvalidSignature
	}

	mac := hmac.New(sha256.New, []byte(appSecret))
	mac.Write(body)
	if !hmac.Equal(got, mac.Sum(nil)) {
		return ErrInvalidSignature
	}
	return nil
}

// Sign returns the header value VerifySignature accepts for body.
func Sign(appSecret string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(appSecret))
	mac.Write(body)
	return "sha256=" + hex.EncodeToString(mac.Sum(nil))
}
