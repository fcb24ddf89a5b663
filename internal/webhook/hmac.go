package webhook

import (
	"crypto/hmac"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
)

// VerifySignature checks that providedSignature is the base64-encoded
// HMAC-SHA256 of body under secret.
//
// The digest is computed over the exact raw request bytes, never a
// re-serialized form, and compared with crypto/subtle to prevent timing
// attacks. The function is pure and never fails loudly: an empty secret, an
// undecodable signature, or a mismatch all return false and are treated
// identically by the caller as "unauthenticated".
func VerifySignature(body []byte, providedSignature, secret string) bool {
	if secret == "" || providedSignature == "" {
		return false
	}

	provided, err := base64.StdEncoding.DecodeString(providedSignature)
	if err != nil {
		return false
	}

	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	expected := mac.Sum(nil)

	return subtle.ConstantTimeCompare(expected, provided) == 1
}

// ComputeSignature returns the base64-encoded HMAC-SHA256 of body under
// secret, in the exact format the sender attaches to the signature header.
func ComputeSignature(body []byte, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}
