// Package notifications turns inbound notify.message payloads into alerts.
//
// A Dispatcher decodes the payload, derives a display title and body, and
// hands the resulting Alert to a platform Backend. Whether the alert is a
// lightweight in-app toast or a system notification depends on the cached
// foreground state, which the host refreshes from its lifecycle signals:
//
//	d := notifications.NewDispatcher(notifications.NewNativeBackend(host, notifications.WithToaster(host)))
//	d.SetForeground(false)
//	alert, err := d.Handle(ctx, payload)
//
// # Title and body
//
// The title is chatName, then chat.name, then "会话 {chatId}", then
// "Minechat". The body is the content string, else content.text, else
// content.body, else the content object serialised as JSON; it is empty when
// content is missing, null or a scalar. A payload without a message is
// malformed and dropped.
//
// # Backends
//
// NativeBackend drives a host SystemNotifier (permission, enabled check,
// channel, icon) and an optional Toaster. WebBackend drives a WebNotifier with
// browser permission semantics. ConsoleBackend logs alerts and NoOpBackend
// discards them. Rendering failures are reported as errors for status
// tracking but are never retried.
package notifications
