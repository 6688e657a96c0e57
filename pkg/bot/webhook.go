package bot

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/tzrikka/kenall/pkg/slack"
)

// WebhookReply is the HTTP response to a Slack webhook request.
type WebhookReply struct {
	StatusCode int
	Body       []byte // JSON, or empty.
	Kind       string // See [slack.Request.Kind].

	// Response.Continuation, if not nil, must run after sending the reply.
	Response Response
}

// HandleWebhook authenticates, parses and dispatches a Slack request that
// arrived over HTTP, regardless of the hosting environment (HTTP server,
// serverless function, etc.). Handling failures are acknowledged with a
// [FailureAck], because Slack shows its own error for non-200 responses.
func (c *Coordinator) HandleWebhook(ctx context.Context, signingSecret string, r slack.WebhookRequest) WebhookReply {
	l := zerolog.Ctx(ctx)

	if status := slack.VerifyRequest(*l, signingSecret, r); status != http.StatusOK {
		return WebhookReply{StatusCode: status, Kind: "unverified"}
	}

	req, err := slack.ParseWebhook(r)
	if err != nil {
		l.Warn().Err(err).Msg("bad request: failed to parse Slack webhook")
		return WebhookReply{StatusCode: http.StatusBadRequest, Kind: "unknown"}
	}

	resp, err := c.Dispatch(ctx, *req)
	if err != nil {
		resp = Response{Ack: FailureAck(*req)}
	}

	reply := WebhookReply{StatusCode: http.StatusOK, Kind: req.Kind(), Response: resp}
	if resp.Ack == nil {
		return reply
	}

	if reply.Body, err = json.Marshal(resp.Ack); err != nil {
		l.Err(err).Msg("failed to serialize Slack acknowledgment")
		return WebhookReply{StatusCode: http.StatusInternalServerError, Kind: req.Kind()}
	}
	return reply
}
