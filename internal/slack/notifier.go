package slack

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/vector-m/signald/internal/classify"
)

const defaultPostMessageURL = "https://slack.com/api/chat.postMessage"

// Notifier posts an alert when a signal lands in the urgent priority tier.
// Delivery is best effort: callers log the returned error and move on.
type Notifier struct {
	token    string
	channel  string
	linkBase string
	client   *http.Client
	logger   *slog.Logger
	apiURL   string
}

func NewNotifier(token, channel, linkBase string, logger *slog.Logger) *Notifier {
	return &Notifier{
		token:    token,
		channel:  channel,
		linkBase: linkBase,
		client:   &http.Client{Timeout: 10 * time.Second},
		apiURL:   defaultPostMessageURL,
		logger:   logger,
	}
}

// SetTestTransport points the notifier at a stand-in API, for tests.
func (n *Notifier) SetTestTransport(url string) {
	n.apiURL = url
}

// Notify posts a structured alert for one enriched signal.
func (n *Notifier) Notify(ctx context.Context, title, intent string, priority classify.Priority, action, signalID string) error {
	text := formatAlert(title, intent, priority, action)
	link := n.linkBase + strings.ReplaceAll(signalID, "-", "")

	body, err := json.Marshal(map[string]any{
		"channel": n.channel,
		"text":    text,
		"blocks": []map[string]any{
			{
				"type": "section",
				"text": map[string]any{
					"type": "mrkdwn",
					"text": text,
				},
			},
			{
				"type": "context",
				"elements": []map[string]any{
					{
						"type": "mrkdwn",
						"text": "<" + link + "|Open signal>",
					},
				},
			},
		},
	})
	if err != nil {
		return fmt.Errorf("marshal slack payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.apiURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json; charset=utf-8")
	req.Header.Set("Authorization", "Bearer "+n.token)

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("slack post: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	var slackResp struct {
		OK    bool   `json:"ok"`
		TS    string `json:"ts"`
		Error string `json:"error,omitempty"`
	}
	if err := json.Unmarshal(respBody, &slackResp); err != nil {
		return fmt.Errorf("parse slack response: %w", err)
	}
	if !slackResp.OK {
		return fmt.Errorf("slack error: %s", slackResp.Error)
	}

	n.logger.Info("posted signal alert", "ts", slackResp.TS, "signal_id", signalID, "priority", string(priority))
	return nil
}

func formatAlert(title, intent string, priority classify.Priority, action string) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, ":rotating_light: *%s signal captured*\n", priority)
	fmt.Fprintf(&sb, "*%s*\n", title)
	fmt.Fprintf(&sb, "Intent: %s\n", intent)
	fmt.Fprintf(&sb, "Next best action: %s", action)
	return sb.String()
}
