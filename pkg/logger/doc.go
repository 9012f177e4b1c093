// Package logger builds the *slog.Logger used across the notification client.
//
// New creates a logger configured by functional options: output format,
// minimum level, static attributes, context extractors and an optional
// in-memory Ring that keeps the most recent records for diagnostics.
//
// Helper constructors in attr.go keep attribute keys consistent between the
// connection manager, the dispatcher and the push registrar:
//
//	log.LogAttrs(ctx, slog.LevelWarn, "connect error",
//	    logger.Component("connection"),
//	    logger.Attempt(n),
//	    logger.Delay(d),
//	    logger.Error(err),
//	)
//
// Listener runs tag their context with WithRunID; records logged with that
// context carry a run_id attribute, which keeps the output of consecutive
// Start/Stop cycles apart.
//
// Credentials must never be logged in full; use Token, which keeps only a
// short prefix.
//
// # Diagnostics ring
//
//	ring := logger.NewRing(logger.DefaultRingSize)
//	log := logger.New(logger.WithRing(ring))
//	...
//	for _, e := range ring.Entries() {
//	    fmt.Println(e.Time, e.Level, e.Message)
//	}
package logger
