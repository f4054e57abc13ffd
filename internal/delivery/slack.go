package delivery

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/deskops/itsm-service/internal/domain"
)

// SlackClient posts to Slack incoming webhooks.
type SlackClient struct {
	timeout time.Duration
}

// NewSlackClient constructs the client.
func NewSlackClient(timeout time.Duration) *SlackClient {
	return &SlackClient{timeout: timeout}
}

type slackPayload struct {
	Text string `json:"text"`
}

// Post sends text to channel. Any non-2xx answer is an error.
func (s *SlackClient) Post(ctx context.Context, channel domain.SlackChannel, text string) error {
	if channel.WebhookURL == "" {
		return fmt.Errorf("slack channel %s has no webhook url", channel.ID)
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	timeout := s.timeout
	if deadline, ok := ctx.Deadline(); ok {
		if remaining := time.Until(deadline); remaining < timeout || timeout <= 0 {
			timeout = remaining
		}
	}

	agent := fiber.Post(channel.WebhookURL).JSON(slackPayload{Text: text})
	if timeout > 0 {
		agent = agent.Timeout(timeout)
	}
	status, body, errs := agent.Bytes()
	if len(errs) > 0 {
		return fmt.Errorf("slack webhook: %w", errors.Join(errs...))
	}
	if status < 200 || status >= 300 {
		return fmt.Errorf("slack webhook returned %d: %s", status, truncate(string(body), 200))
	}
	return nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
