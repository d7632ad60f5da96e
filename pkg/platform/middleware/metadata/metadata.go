package metadata

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/mssola/useragent"

	"evidex/pkg/requestcontext"
)

// ClientMetadata extracts the client IP, raw User-Agent and a parsed device
// summary, and stores them on the request context. Custody entries record the
// device of the request that caused them.
func ClientMetadata(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ip := ClientIPFromRequest(r)
		ua := r.Header.Get("User-Agent")

		ctx := requestcontext.WithClientMetadata(r.Context(), ip, ua)
		ctx = requestcontext.WithDevice(ctx, DeviceFromUserAgent(ua))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// DeviceFromUserAgent condenses a User-Agent into "Browser Version on OS",
// "bot: Name" for crawlers, or the raw product token when nothing parses.
func DeviceFromUserAgent(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}
	ua := useragent.New(raw)
	name, version := ua.Browser()
	if ua.Bot() {
		return "bot: " + name
	}
	device := strings.TrimSpace(name + " " + version)
	if os := ua.OS(); os != "" {
		device = fmt.Sprintf("%s on %s", device, os)
	}
	if ua.Mobile() {
		device += " (mobile)"
	}
	if device == "" {
		return raw
	}
	return device
}

// ClientIPFromRequest extracts the real client IP, honouring proxy headers.
func ClientIPFromRequest(r *http.Request) string {
	// First entry of X-Forwarded-For is the original client.
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		if idx := strings.Index(xff, ","); idx != -1 {
			return strings.TrimSpace(xff[:idx])
		}
		return strings.TrimSpace(xff)
	}

	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return strings.TrimSpace(xri)
	}

	// RemoteAddr is "ip:port" or "[::1]:port".
	if addr := r.RemoteAddr; addr != "" {
		if idx := strings.LastIndex(addr, ":"); idx != -1 {
			return strings.Trim(addr[:idx], "[]")
		}
		return addr
	}

	return "unknown"
}
