package notify

import (
	"context"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/barkalona/AISTM7/core"
)

const defaultTimeout = 5 * time.Second

// WebhookSink posts requirement changes to a subscriber endpoint. Delivery
// is best effort: failures are logged and never fail the update that
// produced the event, the store remains the audit record.
type WebhookSink struct {
	c   *resty.Client
	url string
	log core.Log
}

func NewWebhookSink(url string, log core.Log) *WebhookSink {
	return &WebhookSink{
		c:   resty.New().SetTimeout(defaultTimeout),
		url: url,
		log: log,
	}
}

func (w *WebhookSink) RequirementUpdated(ctx context.Context, event *core.RequirementUpdatedEvent) error {
	resp, err := w.c.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(event).
		Post(w.url)
	if err != nil {
		w.log.Warn().Err(err).Str("url", w.url).Msg("webhook delivery failed")
		return nil
	}
	if resp.IsError() {
		w.log.Warn().
			Int("status", resp.StatusCode()).
			Str("url", w.url).
			Msg("webhook rejected event")
	}
	return nil
}
