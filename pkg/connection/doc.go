// Package connection keeps at most one live transport session to the
// notification endpoint and recovers it with bounded backoff.
//
// A Connection is owned by an eventloop.Loop: every method must be called
// from a loop task, and session events are posted back to the same loop.
// Each session is tagged with a generation number; events from a session
// that has since been torn down are dropped, so closing a session during
// Connect never cascades into another reconnect.
//
// State moves between disconnected, connecting, connected and reconnecting:
//
//	disconnected --Connect--> connecting --connected--> connected
//	connected --disconnected--> reconnecting   (the session redials itself)
//	connecting|reconnecting --connect_error--> reconnecting + one retry timer
//	any --Close--> disconnected
//
// On a connect error while not connected the session is closed and a single
// retry is scheduled with backoff.Policy.NextDelay(attempts+1). Requests to
// schedule while a retry is pending are no-ops and do not count as attempts.
// A successful connect cancels the retry and resets the counter.
package connection
