package notify

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"

	"github.com/jarcoal/httpmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/barkalona/AISTM7/core"
)

func newTestSink(t *testing.T) *WebhookSink {
	t.Helper()

	w := NewWebhookSink("https://hooks.test/requirement", core.NopLogger())
	httpmock.ActivateNonDefault(w.c.GetClient())
	t.Cleanup(httpmock.DeactivateAndReset)
	return w
}

func TestWebhookDeliversEvent(t *testing.T) {
	w := newTestSink(t)

	var got core.RequirementUpdatedEvent
	httpmock.RegisterResponder("POST", "https://hooks.test/requirement",
		func(req *http.Request) (*http.Response, error) {
			require.NoError(t, json.NewDecoder(req.Body).Decode(&got))
			return httpmock.NewStringResponse(200, "ok"), nil
		})

	event := &core.RequirementUpdatedEvent{NewRequirement: 1500, Price: 10_000, Timestamp: 100}
	require.NoError(t, w.RequirementUpdated(context.Background(), event))
	assert.Equal(t, *event, got)
}

func TestWebhookFailureIsSwallowed(t *testing.T) {
	w := newTestSink(t)

	httpmock.RegisterResponder("POST", "https://hooks.test/requirement",
		httpmock.NewStringResponder(500, "down"))

	event := &core.RequirementUpdatedEvent{NewRequirement: 100, Price: 1_000_000, Timestamp: 200}
	assert.NoError(t, w.RequirementUpdated(context.Background(), event))
}
