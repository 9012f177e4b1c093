// Package transport opens sessions to the notification endpoint.
//
// A Transport turns a Target (base URL, socket path, credential) into a
// Session that reports what happens on the wire through an Emitter:
//
//	EventConnected     the link is up
//	EventDisconnected  an established link dropped; the session redials
//	EventConnectError  dialing failed
//	EventMessage       a decoded {"event": ..., "payload": ...} frame arrived
//
// Two variants share the session machinery and differ only in the modes
// they try:
//
//   - NativeTransport dials a websocket and nothing else.
//   - BrowserTransport dials a websocket first and falls back to HTTP
//     long-polling (GET {base}{path}?transport=polling) when the handshake
//     fails. A poll answers 200 with a JSON array of frames or 204 when idle.
//
// The credential travels as an Authorization: Bearer header and as the
// token query parameter, for servers that cannot read handshake headers.
//
// After a link drops, the session redials on its own with a delay growing
// from one to five seconds. Failed redials surface as EventConnectError so
// the owner can decide to take over.
//
// Close is idempotent. Once it returns, the session's goroutine has exited
// and the Emitter is never called again. Emitters must not block and must
// not call Close.
package transport
