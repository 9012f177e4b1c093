// Package pushreg registers the device push client id with the backend.
//
// The Client issues one POST {apiBase}/users/me/push/register with the
// bearer credential and a JSON body {"cid", "platform", "appId"}. When a
// signing secret is configured the body is signed with HMAC-SHA256 over
// "{timestamp}.{body}" and the signature travels in X-Notify-Signature,
// X-Notify-Timestamp and X-Notify-ID.
//
// The Registrar drives the client from the event loop as a three-state
// machine:
//
//	idle --trigger--> scheduled --timer--> in_flight --done--> idle
//
// Only one timer may be pending and only one request may be in flight.
// Triggers arriving while in flight are dropped; the attempt reschedules
// itself if it fails. Immediate triggers (start, connect, foreground,
// network restored, credential changed) pull a pending timer forward to now.
//
// An attempt needs a credential and a client id (fetched with a few short
// retries). A stored record that is Trusted for the current client id and
// API base ends the loop without any HTTP call. A 2xx response persists a
// fresh record and resets the delay to the policy floor; anything else grows
// the delay and schedules another attempt.
package pushreg
