package policy

import (
	"crypto/sha256"
	"encoding/hex"
	"net/http"
	"strings"
)

// UnknownIP is the fallback identity when no configured header carries an
// address. Unknown senders cannot be rate-limited (documented policy).
const UnknownIP = "unknown"

const ipHashLen = 16

// ClientIP picks the client address from proxy headers in the configured
// precedence order; the first non-empty header wins. Comma-separated values
// (X-Forwarded-For) yield the first hop.
func ClientIP(h http.Header, headerOrder []string) string {
	for _, name := range headerOrder {
		v := h.Get(name)
		if i := strings.IndexByte(v, ','); i >= 0 {
			v = v[:i]
		}
		v = strings.TrimSpace(v)
		if v != "" {
			return v
		}
	}
	return UnknownIP
}

// HashIP derives the one-way identity key used by the rate limiter and the
// audit log: a salted SHA-256 digest truncated to 16 hex characters. The
// original address is not recoverable from it.
func HashIP(ip, salt string) string {
	sum := sha256.Sum256([]byte(ip + salt))
	return hex.EncodeToString(sum[:])[:ipHashLen]
}
