// Package bot implements the bot's interaction flows (slash command,
// global shortcut, and modal submission), independent of how Slack
// requests arrive (HTTP webhooks, Socket Mode, or AWS Lambda).
package bot

import (
	"context"
	"errors"

	"github.com/lithammer/shortuuid/v4"
	"github.com/rs/zerolog"

	"github.com/tzrikka/kenall/pkg/kenall"
	"github.com/tzrikka/kenall/pkg/postalcode"
	"github.com/tzrikka/kenall/pkg/slack"
)

// Lookuper finds the postal areas of a postal code, e.g. [kenall.Client].
type Lookuper interface {
	Lookup(ctx context.Context, code postalcode.Code) (kenall.Result, error)
}

// SlackAPI is the subset of the Slack client that the bot calls, e.g. [slack.Client].
type SlackAPI interface {
	OpenView(ctx context.Context, triggerID string, v slack.View) error
	UpdateView(ctx context.Context, viewID string, v slack.View) error
	PostResponse(ctx context.Context, responseURL string, msg slack.CommandResponse) error
}

type Options struct {
	// ProcessBeforeResponse means that all the work must be done before
	// acknowledging requests, because the host may freeze or terminate
	// the process right after that (e.g. AWS Lambda). In this mode
	// responses never have continuations.
	ProcessBeforeResponse bool
}

// Coordinator handles Slack requests, and decides how to deliver results:
// in the acknowledgment itself, or in a continuation after it.
type Coordinator struct {
	lookup Lookuper
	api    SlackAPI
	opts   Options
}

func New(lookup Lookuper, api SlackAPI, opts Options) *Coordinator {
	return &Coordinator{lookup: lookup, api: api, opts: opts}
}

// Dispatch routes a transport-neutral Slack request to the matching handler.
// Unrecognized requests are acknowledged without a body. Handler errors are
// logged here, callers only need to acknowledge them with [FailureAck].
func (c *Coordinator) Dispatch(ctx context.Context, req slack.Request) (Response, error) {
	l := zerolog.Ctx(ctx).With().Str("interaction_id", shortuuid.New()).Str("kind", req.Kind()).Logger()
	ctx = l.WithContext(ctx)

	resp, err := c.route(ctx, req)
	if err != nil {
		logFailure(&l, "failed to handle Slack request", err)
		return Response{}, err
	}

	if cont := resp.Continuation; cont != nil {
		resp.Continuation = func(ctx context.Context) error {
			err := cont(l.WithContext(ctx))
			if err != nil {
				logFailure(&l, "failed to complete Slack request", err)
			}
			return err
		}
	}

	return resp, nil
}

func (c *Coordinator) route(ctx context.Context, req slack.Request) (Response, error) {
	l := zerolog.Ctx(ctx)

	switch {
	case req.Command != nil:
		if req.Command.Command != CommandName {
			l.Warn().Str("command", req.Command.Command).Msg("unrecognized slash command")
			return Response{}, nil
		}
		return c.HandleCommand(ctx, *req.Command)

	case req.Interaction != nil:
		ic := req.Interaction
		switch ic.Type {
		case slack.InteractionShortcut:
			if ic.CallbackID != CallbackID {
				l.Warn().Str("callback_id", ic.CallbackID).Msg("unrecognized shortcut")
				return Response{}, nil
			}
			return c.HandleShortcut(ctx, *ic)

		case slack.InteractionViewSubmission:
			if ic.View.CallbackID != CallbackID {
				l.Warn().Str("callback_id", ic.View.CallbackID).Msg("unrecognized view submission")
				return Response{}, nil
			}
			return c.HandleViewSubmission(ctx, *ic)

		default:
			l.Warn().Str("type", ic.Type).Msg("unhandled interaction type")
			return Response{}, nil
		}

	case req.Challenge != "":
		return Response{Ack: map[string]string{"challenge": req.Challenge}}, nil

	default:
		l.Warn().Msg("unrecognized Slack request")
		return Response{}, nil
	}
}

// HandleCommand handles the "/kenall" slash command: empty text opens
// the search form, invalid text is answered with a format hint, and a valid
// postal code is looked up (before or after the acknowledgment).
func (c *Coordinator) HandleCommand(ctx context.Context, cmd slack.SlashCommand) (Response, error) {
	code, err := postalcode.ForLookup(cmd.Text)
	if errors.Is(err, postalcode.ErrEmpty) {
		return c.openSearchForm(ctx, cmd.TriggerID)
	}
	if err != nil {
		zerolog.Ctx(ctx).Debug().Err(err).Str("text", cmd.Text).Msg("invalid postal code in slash command")
		return Response{Ack: ephemeral(postalcode.HintMessage)}, nil
	}

	if c.opts.ProcessBeforeResponse {
		blocks, err := c.search(ctx, code)
		if err != nil {
			return Response{}, err
		}
		return Response{Ack: resultMessage(blocks)}, nil
	}

	return Response{Continuation: func(ctx context.Context) error {
		blocks, err := c.search(ctx, code)
		if err != nil {
			if perr := c.api.PostResponse(ctx, cmd.ResponseURL, *ephemeral(FailureMessage)); perr != nil {
				zerolog.Ctx(ctx).Warn().Err(perr).Msg("failed to report lookup failure")
			}
			return err
		}
		return c.api.PostResponse(ctx, cmd.ResponseURL, *resultMessage(blocks))
	}}, nil
}

// HandleShortcut handles the "kenall-search" global shortcut,
// by opening the search form. It never looks anything up.
func (c *Coordinator) HandleShortcut(ctx context.Context, ic slack.InteractionCallback) (Response, error) {
	return c.openSearchForm(ctx, ic.TriggerID)
}

func (c *Coordinator) openSearchForm(ctx context.Context, triggerID string) (Response, error) {
	if c.opts.ProcessBeforeResponse {
		if err := c.api.OpenView(ctx, triggerID, SearchForm()); err != nil {
			return Response{}, err
		}
		return Response{}, nil
	}

	return Response{Continuation: func(ctx context.Context) error {
		return c.api.OpenView(ctx, triggerID, SearchForm())
	}}, nil
}

// HandleViewSubmission handles submissions of the bot's modal views.
// Submissions without state values (i.e. of a [ResultView]) get a fresh
// [SearchForm], and input errors are reported next to the input field.
func (c *Coordinator) HandleViewSubmission(ctx context.Context, ic slack.InteractionCallback) (Response, error) {
	if len(ic.View.State.Values) == 0 {
		return Response{Ack: slack.NewUpdateResponse(SearchForm())}, nil
	}

	v := ic.View.State.Value(BlockID, ActionID)
	if v == nil {
		return Response{Ack: fieldError(postalcode.RequiredMessage)}, nil
	}

	code, err := postalcode.Normalize(*v)
	if err != nil {
		zerolog.Ctx(ctx).Debug().Err(err).Str("value", *v).Msg("invalid postal code in view submission")
		msg := postalcode.HintMessage
		if errors.Is(err, postalcode.ErrEmpty) {
			msg = postalcode.RequiredMessage
		}
		return Response{Ack: fieldError(msg)}, nil
	}

	if c.opts.ProcessBeforeResponse {
		blocks, err := c.search(ctx, code)
		if err != nil {
			return Response{}, err
		}
		return Response{Ack: slack.NewUpdateResponse(ResultView(blocks))}, nil
	}

	viewID := ic.View.ID
	return Response{
		Ack: slack.NewUpdateResponse(SearchingView(code)),
		Continuation: func(ctx context.Context) error {
			blocks, err := c.search(ctx, code)
			if err != nil {
				if uerr := c.api.UpdateView(ctx, viewID, FailureView()); uerr != nil {
					zerolog.Ctx(ctx).Warn().Err(uerr).Msg("failed to report lookup failure")
				}
				return err
			}
			return c.api.UpdateView(ctx, viewID, ResultView(blocks))
		},
	}, nil
}

func (c *Coordinator) search(ctx context.Context, code postalcode.Code) ([]slack.Block, error) {
	result, err := c.lookup.Lookup(ctx, code)
	if err != nil {
		return nil, err
	}
	return Format(code, result), nil
}

func resultMessage(blocks []slack.Block) *slack.CommandResponse {
	return &slack.CommandResponse{Text: ResultText, Blocks: blocks}
}

func ephemeral(text string) *slack.CommandResponse {
	return &slack.CommandResponse{ResponseType: "ephemeral", Text: text}
}

func fieldError(msg string) *slack.ViewSubmissionResponse {
	return slack.NewErrorsResponse(map[string]string{BlockID: msg})
}

// FailureAck returns a generic acknowledgment for a request whose handling
// failed, without leaking any details: an ephemeral message for slash
// commands, a field error for view submissions, and nil (an empty
// acknowledgment) for everything else.
func FailureAck(req slack.Request) any {
	switch {
	case req.Command != nil:
		return ephemeral(FailureMessage)
	case req.Interaction != nil && req.Interaction.Type == slack.InteractionViewSubmission:
		return fieldError(FailureMessage)
	default:
		return nil
	}
}

// logFailure adds the provider's status code and response
// body to error logs, if the error is a [kenall.UpstreamError].
func logFailure(l *zerolog.Logger, msg string, err error) {
	e := l.Error().Err(err)
	var uerr *kenall.UpstreamError
	if errors.As(err, &uerr) && uerr.StatusCode != 0 {
		e = e.Int("status", uerr.StatusCode).Str("body", uerr.Body)
	}
	e.Msg(msg)
}
