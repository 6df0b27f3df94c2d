package netutil

import "strings"

// deviceRules are checked in order; the first substring hit wins. iPhone must
// precede Mac because iOS agents also mention "Mac OS X".
var deviceRules = []struct {
	needle string
	label  string
}{
	{"iPhone", "iPhone"},
	{"iPad", "iPad"},
	{"Android", "Android"},
	{"Macintosh", "Mac"},
	{"Windows", "Windows"},
	{"Linux", "Linux"},
}

// ClassifyDevice maps a user agent to a coarse platform label.
func ClassifyDevice(ua string) string {
	if strings.TrimSpace(ua) == "" {
		return "Unknown"
	}
	for _, r := range deviceRules {
		if strings.Contains(ua, r.needle) {
			return r.label
		}
	}
	return "Browser"
}

// TokenPreview exposes only the first n characters of a secret value.
func TokenPreview(token string, n int) string {
	if len(token) <= n {
		return strings.Repeat("*", len(token))
	}
	return token[:n] + "..."
}
