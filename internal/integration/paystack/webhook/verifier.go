package webhook

import (
	"crypto/hmac"
	"crypto/sha512"
	"encoding/hex"
	"strings"

	"github.com/flexprice/paysync/internal/config"
)

// Verifier authenticates inbound webhook deliveries
type Verifier struct {
	secret []byte
	header string
}

func NewVerifier(cfg *config.Configuration) *Verifier {
	return &Verifier{
		secret: []byte(cfg.Gateway.SecretKey),
		header: cfg.Gateway.SignatureHeader,
	}
}

// Header is the request header carrying the signature
func (v *Verifier) Header() string {
	return v.header
}

// Verify checks signature against the HMAC-SHA512 of rawBody. The body must be
// the exact bytes received; re-encoded JSON will not verify.
func (v *Verifier) Verify(rawBody []byte, signature string) bool {
	if len(v.secret) == 0 {
		return false
	}

	provided, err := hex.DecodeString(strings.TrimSpace(signature))
	if err != nil || len(provided) != sha512.Size {
		return false
	}

	return hmac.Equal(provided, Sign(v.secret, rawBody))
}

// Sign computes the raw HMAC-SHA512 of body
func Sign(secret, body []byte) []byte {
	mac := hmac.New(sha512.New, secret)
	mac.Write(body)
	return mac.Sum(nil)
}
