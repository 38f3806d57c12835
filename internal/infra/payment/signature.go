package payment

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// HMAC-SHA256(secret, 生body) の hex
func Sign(secret string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

type HMACVerifier struct {
	secret string
}

func NewHMACVerifier(secret string) *HMACVerifier {
	return &HMACVerifier{secret: secret}
}

// "sha256=" 付きでも受け付ける
func (v *HMACVerifier) Verify(body []byte, signature string) bool {
	sig := strings.TrimPrefix(strings.TrimSpace(signature), "sha256=")
	if sig == "" || v.secret == "" {
		return false
	}
	want := Sign(v.secret, body)
	return hmac.Equal([]byte(strings.ToLower(sig)), []byte(want))
}
