package netutil

import (
	"strings"
	"testing"
	"unicode/utf8"
)

func TestNormalizeIP(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
		ok       bool
	}{
		{name: "ipv4 with port", input: "192.0.2.4:8080", expected: "192.0.2.4", ok: true},
		{name: "ipv6 with port", input: "[2001:db8::1]:443", expected: "2001:db8::1", ok: true},
		{name: "ipv6 textual port", input: "[::1]:port", expected: "::1", ok: true},
		{name: "plain ipv4", input: "203.0.113.9", expected: "203.0.113.9", ok: true},
		{name: "plain ipv6", input: "2001:db8::5", expected: "2001:db8::5", ok: true},
		{name: "zone dropped", input: "[fe80::1%eth0]:80", expected: "fe80::1", ok: true},
		{name: "mapped ipv4", input: "[::ffff:198.51.100.7]:9000", expected: "198.51.100.7", ok: true},
		{name: "surrounding space", input: "  198.51.100.8 ", expected: "198.51.100.8", ok: true},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, ok := NormalizeIP(tc.input)
			if ok != tc.ok {
				t.Fatalf("expected ok=%v, got %v", tc.ok, ok)
			}
			if got != tc.expected {
				t.Fatalf("expected %q, got %q", tc.expected, got)
			}
		})
	}
}

func TestNormalizeIPInvalid(t *testing.T) {
	if got, ok := NormalizeIP("not-an-ip"); ok {
		t.Fatalf("expected failure, got success with %q", got)
	}
}

func TestTruncateUserAgent(t *testing.T) {
	for _, r := range []string{"a", "é", "界"} {
		long := strings.Repeat(r, MaxUserAgentLength+10)
		got := TruncateUserAgent(long)
		if n := utf8.RuneCountInString(got); n != MaxUserAgentLength {
			t.Fatalf("%q: expected %d runes, got %d", r, MaxUserAgentLength, n)
		}
		if !utf8.ValidString(got) {
			t.Fatalf("%q: truncation split a character", r)
		}
	}
	if got := TruncateUserAgent("curl/8.4.0"); got != "curl/8.4.0" {
		t.Fatalf("short agent changed: %q", got)
	}
}

func TestClassifyDevice(t *testing.T) {
	tests := []struct {
		ua   string
		want string
	}{
		{"", "Unknown"},
		{"Mozilla/5.0 (iPhone; CPU iPhone OS 17_0 like Mac OS X)", "iPhone"},
		{"Mozilla/5.0 (Linux; Android 14; Pixel 8)", "Android"},
		{"Mozilla/5.0 (Macintosh; Intel Mac OS X 14_0)", "Mac"},
		{"Mozilla/5.0 (Windows NT 10.0; Win64; x64)", "Windows"},
		{"Mozilla/5.0 (X11; Linux x86_64)", "Linux"},
		{"curl/8.4.0", "Browser"},
	}
	for _, tc := range tests {
		if got := ClassifyDevice(tc.ua); got != tc.want {
			t.Fatalf("ClassifyDevice(%q) = %q, want %q", tc.ua, got, tc.want)
		}
	}
}

func TestTokenPreviewNeverLeaksFullValue(t *testing.T) {
	if got := TokenPreview("abcdefghijklmnop", 10); got != "abcdefghij..." {
		t.Fatalf("unexpected preview %q", got)
	}
	if got := TokenPreview("short", 10); got != "*****" {
		t.Fatalf("short tokens must be masked, got %q", got)
	}
}
