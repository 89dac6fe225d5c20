package logger

import (
	"net/http"
	"sort"
	"strings"
)

// Headers whose values never reach a log line.
var redacted = []string{"authorization", "cookie", "x-api-key"}

// SafeHeaders renders request headers for logging, with credential-bearing
// values masked. Output is sorted so log lines diff cleanly.
func SafeHeaders(r *http.Request) string {
	parts := make([]string, 0, len(r.Header))
	for name, vals := range r.Header {
		if len(vals) == 0 {
			continue
		}
		v := vals[0]
		for _, sec := range redacted {
			if strings.EqualFold(name, sec) {
				v = "<redacted>"
				break
			}
		}
		parts = append(parts, name+"="+v)
	}
	sort.Strings(parts)
	return strings.Join(parts, "; ")
}

// LogRequest writes one line per incoming request.
func LogRequest(r *http.Request) {
	Info("incoming_request",
		"method", r.Method,
		"path", r.URL.Path,
		"remote", r.RemoteAddr,
		"headers", SafeHeaders(r),
	)
}
