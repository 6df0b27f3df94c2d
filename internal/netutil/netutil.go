package netutil

import (
	"net/netip"
	"strings"
)

// MaxUserAgentLength bounds the user agent stored with a session, in runes.
const MaxUserAgentLength = 512

// NormalizeIP reduces a remote address to its canonical IP text. It accepts
// bare addresses, host:port pairs and bracketed IPv6 with any port suffix,
// and drops zone identifiers. On failure the trimmed input is returned with
// ok=false.
func NormalizeIP(raw string) (ip string, ok bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", false
	}
	for _, candidate := range hostCandidates(raw) {
		addr, err := netip.ParseAddr(candidate)
		if err != nil {
			continue
		}
		if addr = addr.WithZone(""); addr.IsValid() {
			return addr.Unmap().String(), true
		}
	}
	return raw, false
}

// hostCandidates lists the substrings of raw that may hold the address,
// most specific first.
func hostCandidates(raw string) []string {
	out := []string{raw}
	if ap, err := netip.ParseAddrPort(raw); err == nil {
		return []string{ap.Addr().String()}
	}
	if strings.HasPrefix(raw, "[") {
		if end := strings.Index(raw, "]"); end > 0 {
			out = append(out, raw[1:end])
		}
	}
	if i := strings.LastIndexByte(raw, ':'); i > 0 {
		out = append(out, raw[:i])
	}
	return out
}

// TruncateUserAgent caps ua at MaxUserAgentLength runes without splitting a
// multi-byte character.
func TruncateUserAgent(ua string) string {
	if len(ua) <= MaxUserAgentLength {
		return ua
	}
	n := 0
	for i := range ua {
		if n == MaxUserAgentLength {
			return ua[:i]
		}
		n++
	}
	return ua
}
