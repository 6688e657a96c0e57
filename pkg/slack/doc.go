// Package slack implements the parts of the Slack platform that the bot needs:
// [slash commands] and [interaction payloads] received over [HTTP webhooks and
// Socket Mode], [Block Kit] layouts, [modal views], and a few [Web API] methods.
//
// [slash commands]: https://docs.slack.dev/interactivity/implementing-slash-commands
// [interaction payloads]: https://docs.slack.dev/interactivity/handling-user-interaction
// [HTTP webhooks and Socket Mode]: https://docs.slack.dev/apis/events-api/comparing-http-socket-mode
// [Block Kit]: https://docs.slack.dev/block-kit
// [modal views]: https://docs.slack.dev/surfaces/modals
// [Web API]: https://docs.slack.dev/apis/web-api
package slack
