package slack

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"mime"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/rs/zerolog"
)

const (
	contentTypeHeader = "Content-Type"
	timestampHeader   = "X-Slack-Request-Timestamp"
	signatureHeader   = "X-Slack-Signature"

	formContentType = "application/x-www-form-urlencoded"
	jsonContentType = "application/json"

	// The maximum shift/delay that we allow between an inbound request's
	// timestamp, and our current timestamp, to defend against replay attacks.
	// See https://docs.slack.dev/authentication/verifying-requests-from-slack.
	maxDifference = 5 * time.Minute

	// Slack API implementation detail.
	// See https://docs.slack.dev/authentication/verifying-requests-from-slack.
	slackSigVersion = "v0"
)

// WebhookRequest is an inbound HTTP request from Slack, independent
// of the hosting transport (HTTP server, serverless function, etc.).
type WebhookRequest struct {
	Headers    http.Header
	RawPayload []byte
}

// Request is a transport-neutral inbound Slack request:
// exactly one of its fields is set by [ParseWebhook],
// or by Socket Mode envelope handling.
type Request struct {
	Command     *SlashCommand
	Interaction *InteractionCallback

	// Challenge is set only for Events API URL verification requests.
	// See https://docs.slack.dev/reference/events/url_verification.
	Challenge string
}

// Kind returns a short description of the request, for logging and metrics.
func (r Request) Kind() string {
	switch {
	case r.Command != nil:
		return "slash_command"
	case r.Interaction != nil:
		return r.Interaction.Type
	case r.Challenge != "":
		return "url_verification"
	default:
		return "unknown"
	}
}

// VerifyRequest checks the headers and signature of an inbound
// HTTP request, and returns an HTTP status code: [http.StatusOK]
// if the request is authentic, or an error status code otherwise.
func VerifyRequest(l zerolog.Logger, signingSecret string, r WebhookRequest) int {
	l = l.With().Str("link_type", "slack").Str("link_medium", "webhook").Logger()

	statusCode := checkContentTypeHeader(l, r)
	if statusCode != http.StatusOK {
		return statusCode
	}

	statusCode = checkTimestampHeader(l, r)
	if statusCode != http.StatusOK {
		return statusCode
	}

	return checkSignatureHeader(l, signingSecret, r)
}

func checkContentTypeHeader(l zerolog.Logger, r WebhookRequest) int {
	v := r.Headers.Get(contentTypeHeader)
	mediaType, _, err := mime.ParseMediaType(v)
	if err != nil || (mediaType != formContentType && mediaType != jsonContentType) {
		l.Warn().Str("header", contentTypeHeader).Str("got", v).
			Msg("bad request: unexpected header value")
		return http.StatusBadRequest
	}

	return http.StatusOK
}

func checkTimestampHeader(l zerolog.Logger, r WebhookRequest) int {
	ts := r.Headers.Get(timestampHeader)
	if ts == "" {
		l.Warn().Str("header", timestampHeader).Msg("bad request: missing header")
		return http.StatusBadRequest
	}

	secs, err := strconv.ParseInt(ts, 10, 64)
	if err != nil {
		l.Warn().Str("header", timestampHeader).Str("got", ts).
			Msg("bad request: invalid header value")
		return http.StatusBadRequest
	}

	d := time.Since(time.Unix(secs, 0))
	if d.Abs() > maxDifference {
		l.Warn().Str("header", timestampHeader).Dur("difference", d).
			Msg("bad request: stale header value")
		return http.StatusBadRequest
	}

	return http.StatusOK
}

func checkSignatureHeader(l zerolog.Logger, secret string, r WebhookRequest) int {
	sig := r.Headers.Get(signatureHeader)
	if sig == "" {
		l.Warn().Str("header", signatureHeader).Msg("bad request: missing header")
		return http.StatusForbidden
	}

	if secret == "" {
		l.Warn().Msg("signing secret is not configured")
		return http.StatusInternalServerError
	}

	ts := r.Headers.Get(timestampHeader)
	if !verifySignature(l, secret, ts, sig, r.RawPayload) {
		l.Warn().Str("signature", sig).Msg("signature verification failed")
		return http.StatusForbidden
	}

	return http.StatusOK
}

// verifySignature implements
// https://docs.slack.dev/authentication/verifying-requests-from-slack.
func verifySignature(l zerolog.Logger, signingSecret, ts, want string, body []byte) bool {
	mac := hmac.New(sha256.New, []byte(signingSecret))

	n, err := mac.Write(fmt.Appendf(nil, "%s:%s:", slackSigVersion, ts))
	if err != nil {
		l.Err(err).Msg("HMAC write error")
		return false
	}
	if n != len(ts)+4 {
		return false
	}

	if n, err := mac.Write(body); err != nil || n != len(body) {
		return false
	}

	got := fmt.Sprintf("%s=%s", slackSigVersion, hex.EncodeToString(mac.Sum(nil)))
	return hmac.Equal([]byte(got), []byte(want))
}

// Signature computes the value of the "X-Slack-Signature" header
// for the given request body, as Slack does. It is used in unit tests
// of packages that receive webhooks.
func Signature(signingSecret, ts string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(signingSecret))
	mac.Write(fmt.Appendf(nil, "%s:%s:", slackSigVersion, ts))
	mac.Write(body)
	return fmt.Sprintf("%s=%s", slackSigVersion, hex.EncodeToString(mac.Sum(nil)))
}

// ParseWebhook extracts a slash command, an interaction payload, or an Events API
// URL verification challenge, from an authenticated [WebhookRequest].
func ParseWebhook(r WebhookRequest) (*Request, error) {
	mediaType, _, _ := mime.ParseMediaType(r.Headers.Get(contentTypeHeader))
	if mediaType == jsonContentType {
		event := struct {
			Type      string `json:"type"`
			Challenge string `json:"challenge"`
		}{}
		if err := json.Unmarshal(r.RawPayload, &event); err != nil {
			return nil, fmt.Errorf("failed to parse JSON body: %w", err)
		}
		if event.Type == "url_verification" && event.Challenge != "" {
			return &Request{Challenge: event.Challenge}, nil
		}
		// Events API notifications are acknowledged but ignored.
		return &Request{}, nil
	}

	form, err := url.ParseQuery(string(r.RawPayload))
	if err != nil {
		return nil, fmt.Errorf("failed to parse web form: %w", err)
	}

	// https://docs.slack.dev/interactivity/handling-user-interaction#payloads
	if p := form.Get("payload"); p != "" {
		ic := &InteractionCallback{}
		if err := json.Unmarshal([]byte(p), ic); err != nil {
			return nil, fmt.Errorf("failed to parse interaction payload: %w", err)
		}
		return &Request{Interaction: ic}, nil
	}

	if form.Get("command") != "" {
		cmd := SlashCommandFromForm(form)
		return &Request{Command: &cmd}, nil
	}

	return nil, errors.New("unrecognized web form")
}
