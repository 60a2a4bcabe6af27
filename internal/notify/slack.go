package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"autobook/internal/config"
)

// SlackNotifier posts through the chat.postMessage Web API method.
type SlackNotifier struct {
	token      string
	channel    string
	url        string
	httpClient *http.Client
}

func NewSlackNotifier(cfg config.SlackConfig) *SlackNotifier {
	return &SlackNotifier{
		token:      cfg.Token,
		channel:    cfg.Channel,
		url:        cfg.APIURL,
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
}

type slackMessage struct {
	Channel string `json:"channel"`
	Text    string `json:"text"`
}

type slackResponse struct {
	OK    bool   `json:"ok"`
	Error string `json:"error"`
}

// Send fails unless Slack answers with ok=true, even on HTTP 200.
func (s *SlackNotifier) Send(ctx context.Context, text string) error {
	body, err := json.Marshal(slackMessage{Channel: s.channel, Text: text})
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json; charset=utf-8")
	req.Header.Set("Authorization", "Bearer "+s.token)

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("slack post: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("slack read: %w", err)
	}

	var out slackResponse
	if err := json.Unmarshal(raw, &out); err != nil {
		return fmt.Errorf("slack: http %d: undecodable response: %w", resp.StatusCode, err)
	}
	if !out.OK {
		return fmt.Errorf("slack: http %d: %s", resp.StatusCode, out.Error)
	}
	return nil
}
