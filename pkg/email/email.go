// Package email normalizes custodian addresses and derives display names.
package email

import (
	"strings"
	"unicode"
)

// Normalize lowercases and trims an address for case-insensitive comparison.
func Normalize(addr string) string {
	return strings.ToLower(strings.TrimSpace(addr))
}

// LooksValid is a shape check only: one "@" with text on both sides and a dot
// in the domain. Deliverability is not our concern.
func LooksValid(addr string) bool {
	if addr == "" || len(addr) > 254 || strings.ContainsAny(addr, " \t\r\n") {
		return false
	}
	at := strings.IndexByte(addr, '@')
	if at <= 0 || at != strings.LastIndexByte(addr, '@') {
		return false
	}
	domain := addr[at+1:]
	return strings.Contains(domain, ".") && !strings.HasPrefix(domain, ".") && !strings.HasSuffix(domain, ".")
}

// DisplayName derives "First Last" from the local part of an address, for
// custodians listed without a name.
func DisplayName(addr string) string {
	localPart := addr
	if at := strings.IndexByte(addr, '@'); at >= 0 {
		localPart = addr[:at]
	}

	parts := strings.FieldsFunc(localPart, func(r rune) bool {
		return r == '.' || r == '_' || r == '-' || r == '+'
	})
	if len(parts) == 0 {
		return "Custodian"
	}

	names := make([]string, 0, 2)
	names = append(names, capitalize(parts[0]))
	if len(parts) > 1 {
		names = append(names, capitalize(parts[len(parts)-1]))
	}
	return strings.Join(names, " ")
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	runes := []rune(strings.ToLower(s))
	runes[0] = unicode.ToUpper(runes[0])
	return string(runes)
}
