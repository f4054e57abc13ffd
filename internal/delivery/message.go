// Package delivery sends resolved notifications over SMTP and Slack webhooks.
package delivery

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/deskops/itsm-service/internal/domain"
)

// EmailMessage is a plain-text email.
type EmailMessage struct {
	To      []string
	Subject string
	Body    string
}

// Mailer sends email through a tenant account.
type Mailer interface {
	Send(ctx context.Context, account domain.EmailAccount, msg EmailMessage) error
}

// SlackPoster posts a message to a Slack channel webhook.
type SlackPoster interface {
	Post(ctx context.Context, channel domain.SlackChannel, text string) error
}

// buildMessage renders RFC 5322 headers and body with CRLF line endings.
func buildMessage(from string, msg EmailMessage, now time.Time) []byte {
	domainPart := "localhost"
	if at := strings.LastIndex(from, "@"); at >= 0 && at < len(from)-1 {
		domainPart = from[at+1:]
	}

	headers := []string{
		fmt.Sprintf("From: %s", from),
		fmt.Sprintf("To: %s", strings.Join(msg.To, ", ")),
		fmt.Sprintf("Subject: %s", sanitizeHeader(msg.Subject)),
		fmt.Sprintf("Date: %s", now.UTC().Format(time.RFC1123Z)),
		fmt.Sprintf("Message-ID: <%s@%s>", uuid.NewString(), domainPart),
		"MIME-Version: 1.0",
		"Content-Type: text/plain; charset=UTF-8",
	}
	body := strings.ReplaceAll(strings.ReplaceAll(msg.Body, "\r\n", "\n"), "\n", "\r\n")
	return []byte(strings.Join(headers, "\r\n") + "\r\n\r\n" + body)
}

func sanitizeHeader(v string) string {
	return strings.NewReplacer("\r", " ", "\n", " ").Replace(v)
}
