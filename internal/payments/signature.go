package payments

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"strings"
)

// ErrInvalidSignature is returned when a notification carries a signature
// header that is malformed or does not match the body.
var ErrInvalidSignature = errors.New("invalid webhook signature")

// parseSignatureHeader extracts the timestamp and v1 digest from a header of
// the form "ts=1700000000,v1=<hex>". "t" is accepted as an alias of "ts".
func parseSignatureHeader(header string) (ts, v1 string, err error) {
	for _, part := range strings.Split(header, ",") {
		key, value, ok := strings.Cut(strings.TrimSpace(part), "=")
		if !ok {
			continue
		}
		switch strings.TrimSpace(key) {
		case "ts", "t":
			ts = strings.TrimSpace(value)
		case "v1":
			v1 = strings.TrimSpace(value)
		}
	}

	if ts == "" || v1 == "" {
		return "", "", ErrInvalidSignature
	}
	return ts, v1, nil
}

func digest(secret, ts string, body []byte) []byte {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(ts))
	mac.Write([]byte{':'})
	mac.Write(body)
	return mac.Sum(nil)
}

// Sign returns the hex HMAC-SHA256 of "{ts}:{body}" keyed by secret.
func Sign(secret, ts string, body []byte) string {
	return hex.EncodeToString(digest(secret, ts, body))
}

// VerifySignature checks header against the raw body in constant time.
func VerifySignature(secret, header string, body []byte) error {
	ts, v1, err := parseSignatureHeader(header)
	if err != nil {
		return err
	}

	received, err := hex.DecodeString(v1)
	if err != nil {
		return ErrInvalidSignature
	}

	if !hmac.Equal(digest(secret, ts, body), received) {
		return ErrInvalidSignature
	}
	return nil
}
