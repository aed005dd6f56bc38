package webhook

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"net/http"
	"strings"
)

var (
	errMissingSignature = errors.New("webhook: missing X-Hub-Signature-256 header")
	errUnsupportedAlgo  = errors.New("webhook: unsupported signature algorithm")
	errInvalidSignature = errors.New("webhook: signature mismatch")
)

const signaturePrefix = "sha256="

// verifySignature checks the X-Hub-Signature-256 header against body using
// secret as the HMAC key. An empty secret still enforces header shape
// (presence and the sha256= prefix) but skips the HMAC comparison itself.
func verifySignature(header string, body []byte, secret string) error {
	if header == "" {
		return errMissingSignature
	}
	if !strings.HasPrefix(header, signaturePrefix) {
		return errUnsupportedAlgo
	}

	if secret == "" {
		return nil
	}

	provided, err := hex.DecodeString(strings.TrimPrefix(header, signaturePrefix))
	if err != nil {
		return errInvalidSignature
	}

	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	expected := mac.Sum(nil)

	if !hmac.Equal(provided, expected) {
		return errInvalidSignature
	}
	return nil
}

func signatureHeader(r *http.Request) string {
	return r.Header.Get("X-Hub-Signature-256")
}
