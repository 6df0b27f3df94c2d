package logging

import (
	"bytes"
	"encoding/json"
	"testing"
)

func TestNewLoggerWritesServiceFields(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(Config{ServiceName: "auth", Environment: "test", Level: "warn", Output: &buf})

	logger.Info("dropped")
	if buf.Len() != 0 {
		t.Fatalf("info should be filtered at warn level, got %q", buf.String())
	}

	logger.Warn("kept", "user_id", "u-1")
	var rec map[string]any
	if err := json.Unmarshal(buf.Bytes(), &rec); err != nil {
		t.Fatalf("decode log line: %v", err)
	}
	if rec["service"] != "auth" || rec["env"] != "test" || rec["user_id"] != "u-1" {
		t.Fatalf("unexpected record: %+v", rec)
	}
}

func TestNewLoggerRedactsSecrets(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(Config{ServiceName: "auth", Output: &buf})

	logger.Info("login", "password", "hunter2", "refresh_token", "abc123", "user_id", "u-2")
	if bytes.Contains(buf.Bytes(), []byte("hunter2")) || bytes.Contains(buf.Bytes(), []byte("abc123")) {
		t.Fatalf("secret leaked: %s", buf.String())
	}
	var rec map[string]any
	if err := json.Unmarshal(buf.Bytes(), &rec); err != nil {
		t.Fatalf("decode log line: %v", err)
	}
	if rec["password"] != "[redacted]" || rec["user_id"] != "u-2" {
		t.Fatalf("unexpected record: %+v", rec)
	}
}

func TestNewLoggerTextFormat(t *testing.T) {
	var buf bytes.Buffer
	NewLogger(Config{ServiceName: "authctl", Format: "text", Output: &buf}).Info("hello")
	if !bytes.Contains(buf.Bytes(), []byte("service=authctl")) {
		t.Fatalf("expected text record, got %q", buf.String())
	}
}
