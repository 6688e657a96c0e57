// Package lambda receives Slack requests in an AWS Lambda function,
// behind an API Gateway (REST API) proxy integration or a function URL
// with the same payload format.
//
// Lambda may freeze the function as soon as it returns a response, so
// this transport always processes requests before responding to them.
package lambda

import (
	"context"
	"encoding/base64"
	"net/http"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"
	"github.com/aws/aws-lambda-go/lambdacontext"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v3"

	"github.com/tzrikka/kenall/pkg/bot"
	"github.com/tzrikka/kenall/pkg/config"
	"github.com/tzrikka/kenall/pkg/slack"
)

// Start initializes the bot's Lambda handler, backend clients, and logging.
// This is blocking, it returns only if the Lambda runtime API fails.
func Start(ctx context.Context, cmd *cli.Command) error {
	config.InitLog(cmd.Bool("dev"), cmd.String("log-level"))
	ctx = log.Logger.WithContext(ctx)

	cfg, err := config.Load(ctx, cmd, config.TransportLambda)
	if err != nil {
		log.Err(err).Msg("failed to load configuration")
		return err
	}

	if !cfg.ProcessBeforeResponse {
		log.Debug().Msg("enabling process-before-response mode in AWS Lambda")
		cfg.ProcessBeforeResponse = true
	}

	c, err := cfg.Coordinator()
	if err != nil {
		log.Err(err).Msg("failed to initialize bot")
		return err
	}

	lambda.StartWithOptions(newHandler(cfg.SigningSecret, c).handle, lambda.WithContext(ctx))
	return nil
}

// webhookHandler is implemented by [bot.Coordinator].
type webhookHandler interface {
	HandleWebhook(ctx context.Context, signingSecret string, r slack.WebhookRequest) bot.WebhookReply
}

type handler struct {
	signingSecret string
	bot           webhookHandler
}

func newHandler(signingSecret string, h webhookHandler) *handler {
	return &handler{signingSecret: signingSecret, bot: h}
}

func (h *handler) handle(ctx context.Context, req events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	l := zerolog.Ctx(ctx).With().Str("http_method", req.HTTPMethod).Str("url_path", req.Path)
	if lc, ok := lambdacontext.FromContext(ctx); ok {
		l = l.Str("aws_request_id", lc.AwsRequestID)
	}
	logger := l.Logger()
	ctx = logger.WithContext(ctx)
	logger.Debug().Msg("received Lambda invocation")

	body := []byte(req.Body)
	if req.IsBase64Encoded {
		var err error
		if body, err = base64.StdEncoding.DecodeString(req.Body); err != nil {
			logger.Warn().Err(err).Msg("bad request: invalid base64 body")
			return events.APIGatewayProxyResponse{StatusCode: http.StatusBadRequest}, nil
		}
	}

	reply := h.bot.HandleWebhook(ctx, h.signingSecret, slack.WebhookRequest{
		Headers:    headers(req),
		RawPayload: body,
	})

	// Never the case in process-before-response mode, but
	// anything left after returning might never run.
	if reply.Response.Continuation != nil {
		logger.Warn().Msg("running continuation before responding")
		<-reply.Response.Spawn(ctx)
	}

	resp := events.APIGatewayProxyResponse{StatusCode: reply.StatusCode, Body: string(reply.Body)}
	if len(reply.Body) > 0 {
		resp.Headers = map[string]string{"Content-Type": "application/json"}
	}
	return resp, nil
}

// headers merges the single- and multi-value headers of an API Gateway request.
func headers(req events.APIGatewayProxyRequest) http.Header {
	hs := http.Header{}
	for k, v := range req.Headers {
		hs.Set(k, v)
	}
	for k, vs := range req.MultiValueHeaders {
		hs.Del(k)
		for _, v := range vs {
			hs.Add(k, v)
		}
	}
	return hs
}
