package notify

import (
	"context"
	"fmt"
	"html"
	"net/url"
	"strings"
	"time"

	"github.com/goaltracker/goaltracker/internal/config"
	"github.com/goaltracker/goaltracker/internal/telemetry"
)

// Template names, also used as the "template" metric label.
const (
	TemplateVerification  = "verification"
	TemplatePasswordReset = "password_reset"
	TemplateAPIKeyExpiry  = "api_key_expiry"
)

// Notifier renders and sends the credential emails.
type Notifier struct {
	sender     Sender
	blacklist  Blacklist
	siteName   string
	websiteURL string
}

// NewNotifier creates a Notifier. A nil blacklist blocks nothing.
func NewNotifier(cfg *config.NotificationsConfig, sender Sender, blacklist Blacklist) *Notifier {
	return &Notifier{
		sender:     sender,
		blacklist:  blacklist,
		siteName:   cfg.SiteName,
		websiteURL: strings.TrimRight(cfg.WebsiteURL, "/"),
	}
}

// IsBlacklisted reports whether email must not receive mail.
func (n *Notifier) IsBlacklisted(ctx context.Context, email string) bool {
	return n.blacklist != nil && n.blacklist.Contains(ctx, email)
}

// SendVerification mails the registration confirmation link for rawKey.
func (n *Notifier) SendVerification(ctx context.Context, email, name, rawKey string, validity time.Duration) error {
	link := n.websiteURL + "/register_confirm?verificationChallengeKey=" + url.QueryEscape(rawKey)
	body := paragraphs(
		"Required email verification requested under the name: "+html.EscapeString(name),
		"If you did not make this request, then feel free to ignore.",
		fmt.Sprintf("This link is valid for up to %s.", humanDuration(validity)),
		"Do not share this link with others.",
		"Verification link: "+link,
	)
	return n.send(ctx, TemplateVerification, Message{
		To:      email,
		Subject: n.siteName + ": Email Verification",
		HTML:    body,
	})
}

// SendPasswordReset mails the password reset link for rawKey.
func (n *Notifier) SendPasswordReset(ctx context.Context, email, rawKey string, validity time.Duration) error {
	link := n.websiteURL + "/reset_password?resetKey=" + url.QueryEscape(rawKey)
	body := paragraphs(
		"Requested password reset service.",
		"If you did not make this request, then feel free to ignore.",
		fmt.Sprintf("This link is valid for up to %s.", humanDuration(validity)),
		"Do not share this link with others.",
		"Password Change link: "+link,
	)
	return n.send(ctx, TemplatePasswordReset, Message{
		To:      email,
		Subject: n.siteName + ": Password Reset",
		HTML:    body,
	})
}

// SendAPIKeyExpiry reminds the owner that the key created at createdAt expires
// at expiresAt. Neither the key nor its hash appears in the message.
func (n *Notifier) SendAPIKeyExpiry(ctx context.Context, email, name string, createdAt, expiresAt time.Time) error {
	body := paragraphs(
		"Hello "+html.EscapeString(name)+",",
		fmt.Sprintf("Your API key created on %s will expire on %s.",
			createdAt.UTC().Format(time.RFC1123), expiresAt.UTC().Format(time.RFC1123)),
		"Issue a replacement key before then to avoid interruption. If you no longer need this key, no action is required.",
	)
	return n.send(ctx, TemplateAPIKeyExpiry, Message{
		To:      email,
		Subject: n.siteName + ": API Key Expiring",
		HTML:    body,
	})
}

func (n *Notifier) send(ctx context.Context, template string, msg Message) error {
	if n.IsBlacklisted(ctx, msg.To) {
		telemetry.NotificationsTotal.WithLabelValues(template, "blacklisted").Inc()
		return nil
	}
	if err := n.sender.Send(ctx, msg); err != nil {
		telemetry.NotificationsTotal.WithLabelValues(template, "failed").Inc()
		return fmt.Errorf("failed to send %s email: %w", template, err)
	}
	telemetry.NotificationsTotal.WithLabelValues(template, "sent").Inc()
	return nil
}

func paragraphs(lines ...string) string {
	var b strings.Builder
	for _, l := range lines {
		b.WriteString("<p>")
		b.WriteString(l)
		b.WriteString("</p>")
	}
	return b.String()
}

// humanDuration renders whole minutes as "15 minutes" and falls back to
// time.Duration formatting otherwise.
func humanDuration(d time.Duration) string {
	if d > 0 && d%time.Minute == 0 {
		m := int(d / time.Minute)
		if m == 1 {
			return "1 minute"
		}
		return fmt.Sprintf("%d minutes", m)
	}
	return d.String()
}
