package signature

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// Outbound delivery headers.
const (
	EventHeader     = "X-Webhook-Event"
	IDHeader        = "X-Webhook-Id"
	SignatureHeader = "X-Webhook-Signature"
)

// Prefix identifies the MAC scheme in the signature header value.
const Prefix = "sha256="

// Sign computes the hex HMAC-SHA256 of payload keyed by secret. The payload
// must be the exact bytes transmitted; signing a reserialized copy produces a
// signature the receiver cannot verify.
func Sign(payload []byte, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(payload)
	return hex.EncodeToString(mac.Sum(nil))
}

// HeaderValue formats a signature for the X-Webhook-Signature header.
func HeaderValue(payload []byte, secret string) string {
	return Prefix + Sign(payload, secret)
}

// Verify checks a received signature header against the exact body bytes
// using a constant-time comparison.
func Verify(secret string, body []byte, header string) bool {
	got := strings.TrimPrefix(header, Prefix)
	want := Sign(body, secret)
	return hmac.Equal([]byte(got), []byte(want))
}
