// Package redact scrubs credentials and personal data from error texts before
// they are written to observation artifacts.
package redact

import (
	"regexp"
	"strings"
	"sync/atomic"
)

var enabled atomic.Bool

func init() {
	enabled.Store(true)
}

var (
	urlPassRe = regexp.MustCompile(`(?i)([a-z][a-z0-9+.\-]*://[^:/@\s]+:)[^@\s]+@`)
	kvPassRe  = regexp.MustCompile(`(?i)\b(password|passwd|pwd)\s*=\s*('[^']*'|"[^"]*"|\S+)`)
	emailRe   = regexp.MustCompile(`(?i)[a-z0-9._%+\-]+@[a-z0-9.\-]+\.[a-z]{2,}`)
	phoneRe   = regexp.MustCompile(`\b\+?\d[\d\s\-]{7,}\d\b`)
)

// SetEnabled toggles redaction. It is on by default.
func SetEnabled(v bool) {
	enabled.Store(v)
}

func Enabled() bool {
	return enabled.Load()
}

// Text masks connection-string passwords, emails and phone numbers.
func Text(in string) string {
	if !enabled.Load() || strings.TrimSpace(in) == "" {
		return in
	}
	out := urlPassRe.ReplaceAllString(in, "${1}[REDACTED]@")
	out = kvPassRe.ReplaceAllString(out, "${1}=[REDACTED]")
	out = emailRe.ReplaceAllString(out, "[REDACTED_EMAIL]")
	out = phoneRe.ReplaceAllString(out, "[REDACTED_PHONE]")
	return out
}
