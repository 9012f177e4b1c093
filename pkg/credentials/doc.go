// Package credentials stores the bearer token and the push registration
// record the notification client depends on.
//
// The token slot is owned by the host application: a login flow writes it,
// the client reads it before opening a connection and polls it with Watcher
// to notice changes made behind its back. The push registration record lives
// next to the token and remembers which device client id was last
// registered successfully, and against which API base.
//
// Three Storage implementations are provided:
//
//   - MemoryStore: process-local, for tests and embedding.
//   - FileStore: a JSON document on disk, rewritten atomically.
//   - RedisStore: keys under a configurable prefix, for hosts that share the
//     credential between processes.
//
// A record is trusted only when its client id matches the observed one, it
// carries a registration timestamp and it was made against the current API
// base:
//
//	rec, _ := store.LoadRecord(ctx)
//	if rec.Trusted(clientID, apiBase) {
//	    return // already registered
//	}
package credentials
