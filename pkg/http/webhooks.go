// Package http receives Slack requests as HTTP webhooks, and also
// exposes health and Prometheus metrics endpoints.
package http

import (
	"context"
	"io"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"

	"github.com/tzrikka/kenall/pkg/bot"
	"github.com/tzrikka/kenall/pkg/slack"
)

const (
	timeout = 3 * time.Second
	maxSize = 1 << 20 // 1 MiB.
)

var webhookRequests = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "slack_webhook_requests_total",
	Help: "Inbound Slack HTTP requests, by request kind and response status code.",
}, []string{"kind", "status"})

// webhookHandler is implemented by [bot.Coordinator].
type webhookHandler interface {
	HandleWebhook(ctx context.Context, signingSecret string, r slack.WebhookRequest) bot.WebhookReply
}

type httpServer struct {
	httpPort      int
	signingSecret string
	writeTimeout  time.Duration
	bot           webhookHandler
}

func newHTTPServer(port int, signingSecret string, writeTimeout time.Duration, h webhookHandler) *httpServer {
	return &httpServer{
		httpPort:      port,
		signingSecret: signingSecret,
		writeTimeout:  writeTimeout,
		bot:           h,
	}
}

// responseTimeout is the server's write timeout. In process-before-response
// mode, responses are written only after the kenall.jp lookup (or a Slack
// API call) is done, so the timeout must outlast it.
func responseTimeout(processBeforeResponse bool, lookupTimeout time.Duration) time.Duration {
	if !processBeforeResponse {
		return timeout
	}
	return lookupTimeout + timeout
}

func (s *httpServer) handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /slack/events", s.webhookHandler)
	mux.HandleFunc("GET /healthz", healthzHandler)
	mux.Handle("GET /metrics", promhttp.Handler())
	return mux
}

// run starts an HTTP server to expose webhooks.
// This is blocking, to keep the bot running.
func (s *httpServer) run() error {
	server := &http.Server{
		Addr:         net.JoinHostPort("", strconv.Itoa(s.httpPort)),
		Handler:      s.handler(),
		ReadTimeout:  timeout,
		WriteTimeout: s.writeTimeout,
	}

	log.Info().Msgf("HTTP server listening on port %d", s.httpPort)
	err := server.ListenAndServe()
	if err != nil {
		log.Err(err).Send()
		return err
	}

	return nil
}

// webhookHandler checks and processes incoming Slack requests.
// Continuations, if any, run in the background after the response.
func (s *httpServer) webhookHandler(w http.ResponseWriter, r *http.Request) {
	defer r.Body.Close()

	l := log.With().Str("http_method", r.Method).Str("url_path", r.URL.EscapedPath()).Logger()
	l.Debug().Msg("received HTTP request")

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxSize))
	if err != nil {
		l.Warn().Err(err).Msg("bad request: failed to read body")
		webhookRequests.WithLabelValues("unknown", strconv.Itoa(http.StatusBadRequest)).Inc()
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	ctx := l.WithContext(r.Context())
	reply := s.bot.HandleWebhook(ctx, s.signingSecret, slack.WebhookRequest{Headers: r.Header, RawPayload: body})
	webhookRequests.WithLabelValues(reply.Kind, strconv.Itoa(reply.StatusCode)).Inc()

	if len(reply.Body) > 0 {
		w.Header().Set("Content-Type", "application/json")
	}
	w.WriteHeader(reply.StatusCode)
	if _, err := w.Write(reply.Body); err != nil {
		l.Err(err).Msg("failed to write HTTP response")
	}

	reply.Response.Spawn(ctx)
}

func healthzHandler(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}
