package slack

import (
	"encoding/json"
	"fmt"
)

// Socket Mode envelope types.
// See https://docs.slack.dev/apis/events-api/using-socket-mode.
const (
	EnvelopeHello         = "hello"
	EnvelopeDisconnect    = "disconnect"
	EnvelopeSlashCommands = "slash_commands"
	EnvelopeInteractive   = "interactive"
	EnvelopeEventsAPI     = "events_api"
)

// Envelope wraps every message that Slack sends over a Socket Mode connection.
type Envelope struct {
	Type                   string          `json:"type"`
	EnvelopeID             string          `json:"envelope_id,omitempty"`
	Payload                json.RawMessage `json:"payload,omitempty"`
	AcceptsResponsePayload bool            `json:"accepts_response_payload,omitempty"`
	RetryAttempt           int             `json:"retry_attempt,omitempty"`

	// Only in "disconnect" envelopes.
	Reason string `json:"reason,omitempty"`
}

// EnvelopeAck acknowledges an [Envelope], optionally with a response payload
// (the same body that an HTTP webhook response would carry).
type EnvelopeAck struct {
	EnvelopeID string `json:"envelope_id"`
	Payload    any    `json:"payload,omitempty"`
}

// Request converts a slash command or interactive envelope into a
// transport-neutral [Request]. Other envelope types produce an empty one.
func (e Envelope) Request() (*Request, error) {
	switch e.Type {
	case EnvelopeSlashCommands:
		cmd := &SlashCommand{}
		if err := json.Unmarshal(e.Payload, cmd); err != nil {
			return nil, fmt.Errorf("failed to parse slash command payload: %w", err)
		}
		return &Request{Command: cmd}, nil

	case EnvelopeInteractive:
		ic := &InteractionCallback{}
		if err := json.Unmarshal(e.Payload, ic); err != nil {
			return nil, fmt.Errorf("failed to parse interaction payload: %w", err)
		}
		return &Request{Interaction: ic}, nil

	default:
		return &Request{}, nil
	}
}
