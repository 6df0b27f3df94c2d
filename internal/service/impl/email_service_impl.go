package impl

import (
	"context"
	"log/slog"
	"net/url"
	"strings"

	"authcore/internal/netutil"
	"authcore/internal/observability/middleware"
	"authcore/internal/service"
)

var _ service.EmailService = (*LogEmailService)(nil)

// LogEmailService writes outgoing mail to the log instead of an SMTP relay.
// Links are logged at debug level only.
type LogEmailService struct {
	From    string
	BaseURL string
	Logger  *slog.Logger
}

func NewLogEmailService(from, baseURL string, logger *slog.Logger) *LogEmailService {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogEmailService{From: from, BaseURL: strings.TrimRight(baseURL, "/"), Logger: logger}
}

func (m *LogEmailService) SendVerification(ctx context.Context, to, token string) error {
	return m.send(ctx, to, "Verify your email address", m.link("/verify-email", token), token)
}

func (m *LogEmailService) SendPasswordReset(ctx context.Context, to, token string) error {
	return m.send(ctx, to, "Reset your password", m.link("/reset-password", token), token)
}

func (m *LogEmailService) link(path, token string) string {
	return m.BaseURL + path + "?token=" + url.QueryEscape(token)
}

func (m *LogEmailService) send(ctx context.Context, to, subject, link, token string) error {
	m.Logger.InfoContext(ctx, "mail queued",
		"from", m.From,
		"to", to,
		"subject", subject,
		"token_preview", netutil.TokenPreview(token, 6),
		"request_id", middleware.RequestIDFromContext(ctx),
	)
	m.Logger.DebugContext(ctx, "mail link", "to", to, "link", link)
	return nil
}
