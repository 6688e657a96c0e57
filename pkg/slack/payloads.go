package slack

import (
	"net/url"
)

// SlashCommand is the payload of a slash command invocation. Over HTTP
// it arrives as a web form (see [SlashCommandFromForm]), and in Socket
// Mode as a JSON object with the same keys.
// See https://docs.slack.dev/interactivity/implementing-slash-commands.
type SlashCommand struct {
	Command     string `json:"command"`
	Text        string `json:"text"`
	TriggerID   string `json:"trigger_id"`
	ResponseURL string `json:"response_url"`
	UserID      string `json:"user_id"`
	ChannelID   string `json:"channel_id"`
	TeamID      string `json:"team_id"`
	APIAppID    string `json:"api_app_id"`
}

func SlashCommandFromForm(v url.Values) SlashCommand {
	return SlashCommand{
		Command:     v.Get("command"),
		Text:        v.Get("text"),
		TriggerID:   v.Get("trigger_id"),
		ResponseURL: v.Get("response_url"),
		UserID:      v.Get("user_id"),
		ChannelID:   v.Get("channel_id"),
		TeamID:      v.Get("team_id"),
		APIAppID:    v.Get("api_app_id"),
	}
}

// Interaction payload types that the bot handles.
const (
	InteractionShortcut       = "shortcut"
	InteractionViewSubmission = "view_submission"
)

// InteractionCallback is the subset of an interaction payload that the bot uses.
// See https://docs.slack.dev/reference/interaction-payloads.
type InteractionCallback struct {
	Type       string      `json:"type"`
	CallbackID string      `json:"callback_id,omitempty"`
	TriggerID  string      `json:"trigger_id,omitempty"`
	User       User        `json:"user"`
	View       ViewPayload `json:"view"`
}

type User struct {
	ID       string `json:"id"`
	Username string `json:"username,omitempty"`
	TeamID   string `json:"team_id,omitempty"`
}

// ViewPayload is an existing view, as it appears in interaction payloads.
type ViewPayload struct {
	ID         string    `json:"id"`
	CallbackID string    `json:"callback_id"`
	Hash       string    `json:"hash,omitempty"`
	State      ViewState `json:"state"`
}

// ViewState maps block IDs to action IDs to the values that users entered.
type ViewState struct {
	Values map[string]map[string]BlockAction `json:"values"`
}

// BlockAction is the state of a single input element.
// A nil value means that the user didn't enter anything.
type BlockAction struct {
	Type  string  `json:"type"`
	Value *string `json:"value"`
}

// Value returns the value of the given input element,
// or nil if the block, the element, or the value are missing.
func (s ViewState) Value(blockID, actionID string) *string {
	actions, ok := s.Values[blockID]
	if !ok {
		return nil
	}
	return actions[actionID].Value
}

// View is a modal view definition.
// See https://docs.slack.dev/reference/views/modal-views.
type View struct {
	Type       string      `json:"type"`
	CallbackID string      `json:"callback_id,omitempty"`
	Title      *TextObject `json:"title"`
	Submit     *TextObject `json:"submit,omitempty"`
	Close      *TextObject `json:"close,omitempty"`
	Blocks     []Block     `json:"blocks"`
}

// CommandResponse is the body of a slash command acknowledgment,
// or of a message sent later to the command's response URL.
// See https://docs.slack.dev/interactivity/handling-user-interaction#message_responses.
type CommandResponse struct {
	ResponseType    string  `json:"response_type,omitempty"`
	Text            string  `json:"text,omitempty"`
	Blocks          []Block `json:"blocks,omitempty"`
	ReplaceOriginal bool    `json:"replace_original,omitempty"`
}

// View submission response actions.
const (
	ResponseActionUpdate = "update"
	ResponseActionErrors = "errors"
)

// ViewSubmissionResponse is the body of a view submission acknowledgment.
// See https://docs.slack.dev/surfaces/modals#interactions.
type ViewSubmissionResponse struct {
	ResponseAction string            `json:"response_action"`
	View           *View             `json:"view,omitempty"`
	Errors         map[string]string `json:"errors,omitempty"`
}

func NewUpdateResponse(v View) *ViewSubmissionResponse {
	return &ViewSubmissionResponse{ResponseAction: ResponseActionUpdate, View: &v}
}

func NewErrorsResponse(errs map[string]string) *ViewSubmissionResponse {
	return &ViewSubmissionResponse{ResponseAction: ResponseActionErrors, Errors: errs}
}
