package bot

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tzrikka/kenall/pkg/kenall"
	"github.com/tzrikka/kenall/pkg/postalcode"
	"github.com/tzrikka/kenall/pkg/slack"
)

type fakeLookup struct {
	result kenall.Result
	err    error
	calls  []postalcode.Code
}

func (f *fakeLookup) Lookup(_ context.Context, code postalcode.Code) (kenall.Result, error) {
	f.calls = append(f.calls, code)
	return f.result, f.err
}

type viewUpdate struct {
	viewID string
	view   slack.View
}

type responsePost struct {
	url string
	msg slack.CommandResponse
}

type fakeSlack struct {
	err     error
	opened  []string
	updated []viewUpdate
	posted  []responsePost
}

func (f *fakeSlack) OpenView(_ context.Context, triggerID string, _ slack.View) error {
	f.opened = append(f.opened, triggerID)
	return f.err
}

func (f *fakeSlack) UpdateView(_ context.Context, viewID string, v slack.View) error {
	f.updated = append(f.updated, viewUpdate{viewID: viewID, view: v})
	return f.err
}

func (f *fakeSlack) PostResponse(_ context.Context, url string, msg slack.CommandResponse) error {
	f.posted = append(f.posted, responsePost{url: url, msg: msg})
	return f.err
}

func twoRecords() kenall.Found {
	return kenall.Found{Records: []kenall.Address{
		{Prefecture: ptr("東京都"), City: ptr("渋谷区"), Town: ptr("神宮前")},
		{Prefecture: ptr("東京都"), Corporation: &kenall.Corporation{Name: ptr("私書箱センター"), CodeType: kenall.POBox}},
	}}
}

func submission(values map[string]map[string]slack.BlockAction) slack.InteractionCallback {
	return slack.InteractionCallback{
		Type: slack.InteractionViewSubmission,
		View: slack.ViewPayload{
			ID:         "V123",
			CallbackID: CallbackID,
			State:      slack.ViewState{Values: values},
		},
	}
}

func postalCodeValue(v *string) map[string]map[string]slack.BlockAction {
	return map[string]map[string]slack.BlockAction{
		BlockID: {ActionID: {Type: "plain_text_input", Value: v}},
	}
}

func TestHandleCommandProcessBeforeResponse(t *testing.T) {
	lookup := &fakeLookup{result: twoRecords()}
	api := &fakeSlack{}
	c := New(lookup, api, Options{ProcessBeforeResponse: true})

	resp, err := c.HandleCommand(t.Context(), slack.SlashCommand{Command: CommandName, Text: "150-0001"})
	require.NoError(t, err)

	assert.Nil(t, resp.Continuation)
	msg, ok := resp.Ack.(*slack.CommandResponse)
	require.True(t, ok, "Ack type = %T", resp.Ack)
	assert.Equal(t, ResultText, msg.Text)
	assert.Len(t, msg.Blocks, 5)
	assert.Equal(t, []postalcode.Code{mustCode(t, "1500001")}, lookup.calls)
	assert.Empty(t, api.posted)
}

func TestHandleCommandDeferred(t *testing.T) {
	lookup := &fakeLookup{result: kenall.NotFound{}}
	api := &fakeSlack{}
	c := New(lookup, api, Options{})

	cmd := slack.SlashCommand{Command: CommandName, Text: "*0000000", ResponseURL: "https://hooks.slack.com/commands/1"}
	resp, err := c.HandleCommand(t.Context(), cmd)
	require.NoError(t, err)

	assert.Nil(t, resp.Ack)
	assert.Empty(t, lookup.calls, "lookup before acknowledgment")
	require.NotNil(t, resp.Continuation)

	require.NoError(t, resp.Continuation(t.Context()))
	require.Len(t, api.posted, 1)
	assert.Equal(t, cmd.ResponseURL, api.posted[0].url)
	assert.Equal(t, ResultText, api.posted[0].msg.Text)
	assert.Len(t, api.posted[0].msg.Blocks, 1)
}

func TestHandleCommandDeferredFailure(t *testing.T) {
	lookup := &fakeLookup{err: &kenall.UpstreamError{StatusCode: http.StatusInternalServerError, Body: "boom"}}
	api := &fakeSlack{}
	c := New(lookup, api, Options{})

	resp, err := c.HandleCommand(t.Context(), slack.SlashCommand{Command: CommandName, Text: "1500001", ResponseURL: "url"})
	require.NoError(t, err)

	err = resp.Continuation(t.Context())
	assert.ErrorAs(t, err, new(*kenall.UpstreamError))
	require.Len(t, api.posted, 1)
	assert.Equal(t, FailureMessage, api.posted[0].msg.Text)
	assert.Empty(t, api.posted[0].msg.Blocks)
}

func TestHandleCommandInvalid(t *testing.T) {
	for _, pbr := range []bool{true, false} {
		lookup := &fakeLookup{}
		api := &fakeSlack{}
		c := New(lookup, api, Options{ProcessBeforeResponse: pbr})

		resp, err := c.HandleCommand(t.Context(), slack.SlashCommand{Command: CommandName, Text: "abc-1234"})
		require.NoError(t, err)

		assert.Equal(t, &slack.CommandResponse{ResponseType: "ephemeral", Text: postalcode.HintMessage}, resp.Ack)
		assert.Nil(t, resp.Continuation)
		assert.Empty(t, lookup.calls)
		assert.Empty(t, api.opened)
	}
}

func TestHandleCommandEmpty(t *testing.T) {
	t.Run("process_before_response", func(t *testing.T) {
		lookup := &fakeLookup{}
		api := &fakeSlack{}
		c := New(lookup, api, Options{ProcessBeforeResponse: true})

		resp, err := c.HandleCommand(t.Context(), slack.SlashCommand{Command: CommandName, Text: "  ", TriggerID: "T1"})
		require.NoError(t, err)

		assert.Nil(t, resp.Ack)
		assert.Nil(t, resp.Continuation)
		assert.Equal(t, []string{"T1"}, api.opened)
		assert.Empty(t, lookup.calls)
	})

	t.Run("deferred", func(t *testing.T) {
		lookup := &fakeLookup{}
		api := &fakeSlack{}
		c := New(lookup, api, Options{})

		resp, err := c.HandleCommand(t.Context(), slack.SlashCommand{Command: CommandName, TriggerID: "T1"})
		require.NoError(t, err)

		assert.Nil(t, resp.Ack)
		assert.Empty(t, api.opened, "form opened before acknowledgment")
		require.NoError(t, resp.Continuation(t.Context()))
		assert.Equal(t, []string{"T1"}, api.opened)
		assert.Empty(t, lookup.calls)
	})

	t.Run("open_view_error", func(t *testing.T) {
		api := &fakeSlack{err: errors.New("Slack API error: expired_trigger_id")}
		c := New(&fakeLookup{}, api, Options{ProcessBeforeResponse: true})

		_, err := c.HandleCommand(t.Context(), slack.SlashCommand{Command: CommandName, TriggerID: "T1"})
		assert.Error(t, err)
	})
}

func TestHandleShortcut(t *testing.T) {
	api := &fakeSlack{}
	lookup := &fakeLookup{}
	c := New(lookup, api, Options{})

	resp, err := c.HandleShortcut(t.Context(), slack.InteractionCallback{Type: slack.InteractionShortcut, CallbackID: CallbackID, TriggerID: "T2"})
	require.NoError(t, err)
	assert.Nil(t, resp.Ack)

	require.NoError(t, resp.Continuation(t.Context()))
	assert.Equal(t, []string{"T2"}, api.opened)
	assert.Empty(t, lookup.calls)
}

func TestHandleViewSubmissionInputs(t *testing.T) {
	tests := []struct {
		name string
		ic   slack.InteractionCallback
		want any
	}{
		{
			name: "no_state_values",
			ic:   submission(nil),
			want: slack.NewUpdateResponse(SearchForm()),
		},
		{
			name: "missing_value",
			ic:   submission(postalCodeValue(nil)),
			want: slack.NewErrorsResponse(map[string]string{BlockID: postalcode.RequiredMessage}),
		},
		{
			name: "missing_block",
			ic:   submission(map[string]map[string]slack.BlockAction{"other": {}}),
			want: slack.NewErrorsResponse(map[string]string{BlockID: postalcode.RequiredMessage}),
		},
		{
			name: "blank_value",
			ic:   submission(postalCodeValue(ptr(" - "))),
			want: slack.NewErrorsResponse(map[string]string{BlockID: postalcode.RequiredMessage}),
		},
		{
			name: "invalid_value",
			ic:   submission(postalCodeValue(ptr("abc-1234"))),
			want: slack.NewErrorsResponse(map[string]string{BlockID: postalcode.HintMessage}),
		},
		{
			name: "too_many_digits",
			ic:   submission(postalCodeValue(ptr("12345678"))),
			want: slack.NewErrorsResponse(map[string]string{BlockID: postalcode.HintMessage}),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			lookup := &fakeLookup{}
			api := &fakeSlack{}
			c := New(lookup, api, Options{})

			resp, err := c.HandleViewSubmission(t.Context(), tt.ic)
			require.NoError(t, err)

			assert.Equal(t, tt.want, resp.Ack)
			assert.Nil(t, resp.Continuation)
			assert.Empty(t, lookup.calls)
			assert.Empty(t, api.updated)
		})
	}
}

func TestHandleViewSubmissionProcessBeforeResponse(t *testing.T) {
	lookup := &fakeLookup{result: twoRecords()}
	api := &fakeSlack{}
	c := New(lookup, api, Options{ProcessBeforeResponse: true})

	resp, err := c.HandleViewSubmission(t.Context(), submission(postalCodeValue(ptr("150-0001"))))
	require.NoError(t, err)

	assert.Nil(t, resp.Continuation)
	want := slack.NewUpdateResponse(ResultView(Format(mustCode(t, "1500001"), twoRecords())))
	assert.Equal(t, want, resp.Ack)
	assert.Empty(t, api.updated, "interim view update")
	assert.Len(t, lookup.calls, 1)
}

func TestHandleViewSubmissionDeferred(t *testing.T) {
	lookup := &fakeLookup{result: kenall.NotFound{}}
	api := &fakeSlack{}
	c := New(lookup, api, Options{})

	resp, err := c.HandleViewSubmission(t.Context(), submission(postalCodeValue(ptr("0000000"))))
	require.NoError(t, err)

	code := mustCode(t, "0000000")
	assert.Equal(t, slack.NewUpdateResponse(SearchingView(code)), resp.Ack)
	assert.Empty(t, lookup.calls)

	require.NoError(t, resp.Continuation(t.Context()))
	require.Len(t, api.updated, 1)
	assert.Equal(t, "V123", api.updated[0].viewID)
	assert.Equal(t, ResultView(Format(code, kenall.NotFound{})), api.updated[0].view)
}

func TestHandleViewSubmissionDeferredFailure(t *testing.T) {
	lookup := &fakeLookup{err: &kenall.UpstreamError{StatusCode: http.StatusServiceUnavailable}}
	api := &fakeSlack{}
	c := New(lookup, api, Options{})

	resp, err := c.HandleViewSubmission(t.Context(), submission(postalCodeValue(ptr("1500001"))))
	require.NoError(t, err)

	assert.Error(t, resp.Continuation(t.Context()))
	require.Len(t, api.updated, 1)
	assert.Equal(t, FailureView(), api.updated[0].view)
}

func TestResultViewResubmission(t *testing.T) {
	v := ResultView(Format(mustCode(t, "1500001"), kenall.NotFound{}))
	for _, b := range v.Blocks {
		assert.NotEqual(t, "input", b.BlockType())
	}
	assert.Equal(t, "再検索", v.Submit.Text)
	assert.Equal(t, "閉じる", v.Close.Text)
	assert.Equal(t, "ケンオール検索", v.Title.Text)
}

func TestSearchForm(t *testing.T) {
	v := SearchForm()
	assert.Equal(t, CallbackID, v.CallbackID)
	assert.Equal(t, "検索", v.Submit.Text)
	assert.Equal(t, "キャンセル", v.Close.Text)

	require.Len(t, v.Blocks, 1)
	input, ok := v.Blocks[0].(*slack.InputBlock)
	require.True(t, ok)
	assert.Equal(t, BlockID, input.BlockID)
	assert.Equal(t, ActionID, input.Element.ActionID)
	assert.Equal(t, "郵便番号", input.Label.Text)
	assert.Equal(t, postalcode.RequiredMessage, input.Element.Placeholder.Text)
}

func TestDispatch(t *testing.T) {
	tests := []struct {
		name        string
		req         slack.Request
		wantAck     any
		wantLookups int
		wantOpened  int
	}{
		{
			name:        "slash_command",
			req:         slack.Request{Command: &slack.SlashCommand{Command: CommandName, Text: "1500001"}},
			wantAck:     &slack.CommandResponse{Text: ResultText, Blocks: Format(mustCode(t, "1500001"), twoRecords())},
			wantLookups: 1,
		},
		{
			name: "other_slash_command",
			req:  slack.Request{Command: &slack.SlashCommand{Command: "/other", Text: "1500001"}},
		},
		{
			name:       "shortcut",
			req:        slack.Request{Interaction: &slack.InteractionCallback{Type: slack.InteractionShortcut, CallbackID: CallbackID}},
			wantOpened: 1,
		},
		{
			name: "other_shortcut",
			req:  slack.Request{Interaction: &slack.InteractionCallback{Type: slack.InteractionShortcut, CallbackID: "other"}},
		},
		{
			name:    "view_submission",
			req:     slack.Request{Interaction: &slack.InteractionCallback{Type: slack.InteractionViewSubmission, View: slack.ViewPayload{CallbackID: CallbackID}}},
			wantAck: slack.NewUpdateResponse(SearchForm()),
		},
		{
			name: "other_view_submission",
			req:  slack.Request{Interaction: &slack.InteractionCallback{Type: slack.InteractionViewSubmission, View: slack.ViewPayload{CallbackID: "other"}}},
		},
		{
			name: "block_actions",
			req:  slack.Request{Interaction: &slack.InteractionCallback{Type: "block_actions"}},
		},
		{
			name:    "url_verification",
			req:     slack.Request{Challenge: "abc"},
			wantAck: map[string]string{"challenge": "abc"},
		},
		{
			name: "unknown",
			req:  slack.Request{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			lookup := &fakeLookup{result: twoRecords()}
			api := &fakeSlack{}
			c := New(lookup, api, Options{ProcessBeforeResponse: true})

			resp, err := c.Dispatch(t.Context(), tt.req)
			require.NoError(t, err)

			assert.Equal(t, tt.wantAck, resp.Ack)
			assert.Nil(t, resp.Continuation)
			assert.Len(t, lookup.calls, tt.wantLookups)
			assert.Len(t, api.opened, tt.wantOpened)
		})
	}
}

func TestDispatchUpstreamError(t *testing.T) {
	buf := &bytes.Buffer{}
	ctx := zerolog.New(buf).WithContext(t.Context())

	lookup := &fakeLookup{err: &kenall.UpstreamError{StatusCode: http.StatusInternalServerError, Body: `{"message":"boom"}`}}
	c := New(lookup, &fakeSlack{}, Options{ProcessBeforeResponse: true})

	req := slack.Request{Command: &slack.SlashCommand{Command: CommandName, Text: "1500001"}}
	resp, err := c.Dispatch(ctx, req)

	assert.ErrorAs(t, err, new(*kenall.UpstreamError))
	assert.Nil(t, resp.Ack)
	assert.Contains(t, buf.String(), `"level":"error"`)
	assert.Contains(t, buf.String(), `"status":500`)
	assert.Contains(t, buf.String(), `"body":"{\"message\":\"boom\"}"`)
	assert.Contains(t, buf.String(), `"interaction_id":`)

	assert.Equal(t, &slack.CommandResponse{ResponseType: "ephemeral", Text: FailureMessage}, FailureAck(req))
}

func TestDispatchContinuationLogging(t *testing.T) {
	buf := &bytes.Buffer{}
	ctx := zerolog.New(buf).WithContext(t.Context())

	lookup := &fakeLookup{err: &kenall.UpstreamError{StatusCode: http.StatusBadGateway, Body: "bad gateway"}}
	api := &fakeSlack{}
	c := New(lookup, api, Options{})

	req := slack.Request{Interaction: ptrInteraction(submission(postalCodeValue(ptr("1500001"))))}
	resp, err := c.Dispatch(ctx, req)
	require.NoError(t, err)
	require.NotNil(t, resp.Continuation)

	<-resp.Spawn(ctx)
	assert.Contains(t, buf.String(), `"status":502`)
	assert.Contains(t, buf.String(), "failed to complete Slack request")
	require.Len(t, api.updated, 1)
	assert.Equal(t, FailureView(), api.updated[0].view)
}

func ptrInteraction(ic slack.InteractionCallback) *slack.InteractionCallback {
	return &ic
}

func TestFailureAck(t *testing.T) {
	tests := []struct {
		name string
		req  slack.Request
		want any
	}{
		{
			name: "slash_command",
			req:  slack.Request{Command: &slack.SlashCommand{}},
			want: &slack.CommandResponse{ResponseType: "ephemeral", Text: FailureMessage},
		},
		{
			name: "view_submission",
			req:  slack.Request{Interaction: &slack.InteractionCallback{Type: slack.InteractionViewSubmission}},
			want: slack.NewErrorsResponse(map[string]string{BlockID: FailureMessage}),
		},
		{
			name: "shortcut",
			req:  slack.Request{Interaction: &slack.InteractionCallback{Type: slack.InteractionShortcut}},
		},
		{
			name: "unknown",
			req:  slack.Request{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, FailureAck(tt.req))
		})
	}
}

func TestSpawnWithoutContinuation(t *testing.T) {
	select {
	case <-Response{}.Spawn(t.Context()):
	default:
		t.Error("Spawn() without continuation: channel not closed")
	}
}

func TestSpawnOutlivesRequest(t *testing.T) {
	ctx, cancel := context.WithCancel(t.Context())
	var got error
	resp := Response{Continuation: func(ctx context.Context) error {
		got = ctx.Err()
		return nil
	}}

	cancel()
	<-resp.Spawn(ctx)
	assert.NoError(t, got)
}
