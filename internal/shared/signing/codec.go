package signing

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"strconv"
	"strings"
)

// Internal envelope headers shared by every service in the trust domain.
const (
	HeaderSignature     = "X-Internal-Signature"
	HeaderTimestamp     = "X-Internal-Timestamp"
	HeaderUserID        = "X-User-Id"
	HeaderUserEmail     = "X-User-Email"
	HeaderCorrelationID = "X-Correlation-Id"
)

// Descriptor is the canonical view of one internal request. Both signer and
// verifier must build it from the same raw bytes: Path is the exact path the
// receiver sees after any prefix rewrite, and BodyHash is computed over the
// transmitted body bytes, never over a re-serialized copy.
type Descriptor struct {
	Method          string
	Path            string
	TimestampMillis int64
	BodyHash        string
	CallerID        string
	CallerEmail     string
}

// BodyHash returns the lower-hex SHA-256 of the raw body bytes. A nil or
// empty body hashes like the empty string so signer and verifier agree when
// no body is sent.
func BodyHash(raw []byte) string {
	sum := sha256.Sum256(raw)
	return hex.EncodeToString(sum[:])
}

// CanonicalString joins the descriptor fields with newlines in fixed order.
// Any drift here breaks every deployed verifier at once, so call sites must
// never rebuild this by hand.
func CanonicalString(d Descriptor) string {
	return strings.Join([]string{
		strings.ToUpper(d.Method),
		d.Path,
		strconv.FormatInt(d.TimestampMillis, 10),
		d.BodyHash,
		d.CallerID,
		d.CallerEmail,
	}, "\n")
}

// Sign returns the lower-hex HMAC-SHA256 of the canonical string under secret.
func Sign(secret string, d Descriptor) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(CanonicalString(d)))
	return hex.EncodeToString(mac.Sum(nil))
}

// Verify recomputes the expected signature and compares in constant time.
// It returns false for any malformed input and never panics.
func Verify(secret string, d Descriptor, signature string) bool {
	provided, err := hex.DecodeString(strings.TrimSpace(signature))
	if err != nil {
		return false
	}
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(CanonicalString(d)))
	return hmac.Equal(mac.Sum(nil), provided)
}
