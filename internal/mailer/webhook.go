package mailer

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/utafrali/identity/pkg/httpclient"
)

type webhookPayload struct {
	From    string `json:"from"`
	To      string `json:"to"`
	Subject string `json:"subject"`
	HTML    string `json:"html"`
}

// WebhookSender posts messages to an HTTP email API behind a circuit breaker.
type WebhookSender struct {
	client *httpclient.CircuitBreakerClient
	url    string
	from   string
}

func NewWebhookSender(client *httpclient.CircuitBreakerClient, url, from string) *WebhookSender {
	return &WebhookSender{client: client, url: url, from: from}
}

func (s *WebhookSender) Name() string { return "webhook" }

func (s *WebhookSender) Send(ctx context.Context, msg Message) error {
	body, err := json.Marshal(webhookPayload{
		From:    s.from,
		To:      msg.To,
		Subject: msg.Subject,
		HTML:    msg.HTML,
	})
	if err != nil {
		return fmt.Errorf("marshal webhook payload: %w", err)
	}
	return s.client.PostJSON(ctx, s.url, body)
}
